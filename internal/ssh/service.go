package ssh

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"deploytrigger/internal/logger"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Service holds at most one SSH connection to the deployment host
type Service struct {
	client  *ssh.Client
	creds   *Credentials
	options Options
	release func()
}

func NewService(options Options) *Service {
	if options.ConnectTimeout <= 0 {
		options.ConnectTimeout = DefaultConnectTimeout
	}

	return &Service{options: options}
}

func (s *Service) Connect(creds *Credentials) error {
	if creds == nil || creds.Auth == nil || creds.Auth.IsEmpty() {
		return ErrNoAuthMethodProvided
	}

	authMethods, release, err := creds.Auth.Prepare()

	if err != nil {
		release()
		return fmt.Errorf("%w: %w", ErrFailedToCreateAuth, err)
	}

	hostKeyCallback, err := s.hostKeyCallback()

	if err != nil {
		release()
		return err
	}

	sshConfig := &ssh.ClientConfig{
		User:            creds.Username,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         s.options.ConnectTimeout,
	}

	port := creds.Port

	if port == 0 {
		port = DefaultPort
	}

	hostPort := net.JoinHostPort(creds.Host, strconv.FormatUint(uint64(port), 10))

	conn, err := net.DialTimeout("tcp", hostPort, sshConfig.Timeout)

	if err != nil {
		release()
		return fmt.Errorf("%w: %w", ErrFailedToCreateSSHClient, err)
	}

	// ClientConfig.Timeout only covers the TCP dial, the handshake gets its own deadline
	if err := conn.SetDeadline(time.Now().Add(sshConfig.Timeout)); err != nil {
		conn.Close()
		release()
		return fmt.Errorf("%w: %w", ErrFailedToCreateSSHClient, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, hostPort, sshConfig)

	if err != nil {
		conn.Close()
		release()
		return fmt.Errorf("%w: %w", ErrFailedToCreateSSHClient, err)
	}

	if err := conn.SetDeadline(time.Time{}); err != nil {
		sshConn.Close()
		release()
		return fmt.Errorf("%w: %w", ErrFailedToCreateSSHClient, err)
	}

	s.client = ssh.NewClient(sshConn, chans, reqs)
	s.creds = creds
	s.release = release
	return nil
}

// Close disconnects and releases the auth material (removing any temporary key file).
func (s *Service) Close() error {
	var err error

	if s.client != nil {
		err = s.client.Close()
		s.client = nil
	}

	if s.release != nil {
		s.release()
		s.release = nil
	}

	return err
}

// StartDetached sends a single exec request and returns as soon as the server
// accepts it. The remote exit status is never read.
func (s *Service) StartDetached(command string) error {
	if s.client == nil {
		return ErrSSHConnectionNotEstablished
	}

	// The command goes out verbatim, no shell quoting is added
	session, err := s.client.NewSession()

	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToDispatchCommand, err)
	}

	defer session.Close()

	if err := session.Start(command); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToDispatchCommand, err)
	}

	return nil
}

func (s *Service) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if s.options.KnownHostsPath == "" {
		logger.Warn("Host key verification is disabled, any host key will be accepted")
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // matches the auto-accept policy of the deploy host
	}

	callback, err := knownhosts.New(s.options.KnownHostsPath)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToLoadKnownHosts, err)
	}

	return callback, nil
}
