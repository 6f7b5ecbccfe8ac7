// Package sshtest provides an in-process SSH server that records exec
// requests, for tests that need a real handshake without a real host.
package sshtest

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
)

// Server accepts public-key auth for a single authorized key.
type Server struct {
	Host string
	Port uint

	listener   net.Listener
	config     *ssh.ServerConfig
	hostSigner ssh.Signer

	mu          sync.Mutex
	connections int
	execs       []string
	execCh      chan string
	rejectExec  atomic.Bool
	wg          sync.WaitGroup
}

// KeyPair is a generated ed25519 client key.
type KeyPair struct {
	PEM    []byte
	Signer ssh.Signer
}

// GenerateKey returns an unencrypted OpenSSH-format ed25519 key.
func GenerateKey(t testing.TB) *KeyPair {
	t.Helper()
	return generateKey(t, "")
}

// GenerateEncryptedKey returns an ed25519 key protected by passphrase.
func GenerateEncryptedKey(t testing.TB, passphrase string) *KeyPair {
	t.Helper()
	return generateKey(t, passphrase)
}

func generateKey(t testing.TB, passphrase string) *KeyPair {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	var block *pem.Block
	if passphrase != "" {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "sshtest", []byte(passphrase))
	} else {
		block, err = ssh.MarshalPrivateKey(priv, "sshtest")
	}
	if err != nil {
		t.Fatalf("failed to marshal key: %v", err)
	}

	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}

	return &KeyPair{PEM: pem.EncodeToMemory(block), Signer: signer}
}

// NewServer starts a server on 127.0.0.1 that authorizes only the given key.
// It is closed automatically when the test ends.
func NewServer(t testing.TB, authorized ssh.PublicKey) *Server {
	t.Helper()

	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate host key: %v", err)
	}

	hostSigner, err := ssh.NewSignerFromKey(hostPriv)
	if err != nil {
		t.Fatalf("failed to create host signer: %v", err)
	}

	config := &ssh.ServerConfig{
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(key.Marshal(), authorized.Marshal()) {
				return &ssh.Permissions{}, nil
			}
			return nil, errors.New("unauthorized key")
		},
	}
	config.AddHostKey(hostSigner)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	addr := listener.Addr().(*net.TCPAddr)

	s := &Server{
		Host:       addr.IP.String(),
		Port:       uint(addr.Port),
		listener:   listener,
		config:     config,
		hostSigner: hostSigner,
		execCh:     make(chan string, 16),
	}

	s.wg.Add(1)
	go s.serve()

	t.Cleanup(s.Close)

	return s
}

// Addr returns host:port.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(int(s.Port)))
}

// HostKey is the server's public host key.
func (s *Server) HostKey() ssh.PublicKey {
	return s.hostSigner.PublicKey()
}

// RejectExec makes the server refuse every subsequent exec request.
func (s *Server) RejectExec() {
	s.rejectExec.Store(true)
}

// Connections counts accepted TCP connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connections
}

// Execs returns every exec command received so far.
func (s *Server) Execs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.execs...)
}

// WaitExec blocks until an exec request arrives or timeout elapses.
func (s *Server) WaitExec(timeout time.Duration) (string, bool) {
	select {
	case cmd := <-s.execCh:
		return cmd, true
	case <-time.After(timeout):
		return "", false
	}
}

func (s *Server) Close() {
	s.listener.Close()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		s.connections++
		s.mu.Unlock()

		go s.handle(conn)
	}
}

func (s *Server) handle(nConn net.Conn) {
	defer nConn.Close()

	sconn, chans, reqs, err := ssh.NewServerConn(nConn, s.config)
	if err != nil {
		return
	}
	defer sconn.Close()

	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			_ = newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}

		channel, requests, err := newChannel.Accept()
		if err != nil {
			continue
		}

		go s.handleSession(channel, requests)
	}
}

func (s *Server) handleSession(channel ssh.Channel, requests <-chan *ssh.Request) {
	defer channel.Close()

	for req := range requests {
		if req.Type != "exec" {
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
			continue
		}

		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil || s.rejectExec.Load() {
			_ = req.Reply(false, nil)
			continue
		}

		s.mu.Lock()
		s.execs = append(s.execs, payload.Command)
		s.mu.Unlock()

		_ = req.Reply(true, nil)
		select {
		case s.execCh <- payload.Command:
		default:
		}

		_, _ = channel.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{0}))
		return
	}
}
