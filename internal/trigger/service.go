package trigger

import (
	"errors"
	"fmt"
	"io"
	"os"

	"deploytrigger/internal/deployments"
	"deploytrigger/internal/logger"
	"deploytrigger/internal/ssh"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var startDetached = (*ssh.Service).StartDetached

// HistoryRecorder persists the outcome of every trigger attempt
type HistoryRecorder interface {
	Create(deployment *deployments.Deployment) error
}

type Options struct {
	ScriptPath string
	LogPath    string
	SSH        ssh.Options

	// ErrOut receives the one-line diagnostics. Defaults to os.Stderr.
	ErrOut io.Writer

	// History is optional.
	History HistoryRecorder
}

// Service fires the remote deploy script and forgets about it
type Service struct {
	commands   *CommandBuilder
	sshOptions ssh.Options
	errOut     io.Writer
	history    HistoryRecorder
}

func NewService(options Options) (*Service, error) {
	commands, err := NewCommandBuilder(options.ScriptPath, options.LogPath)

	if err != nil {
		return nil, err
	}

	errOut := options.ErrOut

	if errOut == nil {
		errOut = os.Stderr
	}

	return &Service{
		commands:   commands,
		sshOptions: options.SSH,
		errOut:     errOut,
		history:    options.History,
	}, nil
}

// Trigger dispatches the deploy command and reports whether the SSH server
// accepted it. It never panics and never returns an error: failures are
// written to the diagnostic stream. A true result says nothing about whether
// the remote script succeeded.
func (s *Service) Trigger(request DeploymentRequest, creds *ssh.Credentials) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(s.errOut, "  VPS: Panic: %v\n", r)
			ok = false
		}
	}()

	command, err := s.Dispatch(request, creds)

	s.record(request, creds, command, err)

	if err != nil {
		if errors.Is(err, ErrMissingArguments) {
			fmt.Fprintf(s.errOut, "  VPS: Missing required arguments\n")
		} else {
			fmt.Fprintf(s.errOut, "  VPS: %s: %v\n", ErrorKind(err), err)
		}
		return false
	}

	fmt.Fprintf(s.errOut, "  VPS: Deployment script triggered successfully\n")
	return true
}

// Dispatch is Trigger for callers that want the error. It returns the command
// that was (or would have been) sent.
func (s *Service) Dispatch(request DeploymentRequest, creds *ssh.Credentials) (string, error) {
	if err := validateInput(request, creds); err != nil {
		return "", err
	}

	command, err := s.commands.Build(request)

	if err != nil {
		return "", err
	}

	fmt.Fprintf(s.errOut, "  VPS: Connecting to %s@%s...\n", creds.Username, creds.Host)

	sshService := ssh.NewService(s.sshOptions)

	if err := sshService.Connect(creds); err != nil {
		return command, err
	}

	defer func() {
		if err := sshService.Close(); err != nil {
			logger.Debug("Closing SSH connection to %s: %v", creds.Host, err)
		}
	}()

	if err := startDetached(sshService, command); err != nil {
		return command, err
	}

	return command, nil
}

func validateInput(request DeploymentRequest, creds *ssh.Credentials) error {
	if creds == nil {
		return ErrMissingArguments
	}

	if err := validate.Struct(request); err != nil {
		return fmt.Errorf("%w: %v", ErrMissingArguments, err)
	}

	if err := validate.Struct(creds); err != nil {
		return fmt.Errorf("%w: %v", ErrMissingArguments, err)
	}

	if creds.Auth.IsEmpty() {
		return fmt.Errorf("%w: %v", ErrMissingArguments, ssh.ErrNoAuthMethodProvided)
	}

	return nil
}

func (s *Service) record(request DeploymentRequest, creds *ssh.Credentials, command string, err error) {
	if s.history == nil {
		return
	}

	deployment := &deployments.Deployment{
		Title:    request.Title,
		ImageURL: request.ImageURL,
		Command:  command,
		Success:  err == nil,
	}

	if creds != nil {
		deployment.Host = creds.Host
		deployment.Port = creds.Port
		deployment.Username = creds.Username
	}

	if err != nil {
		deployment.Error = fmt.Sprintf("%s: %v", ErrorKind(err), err)
	}

	if recordErr := s.history.Create(deployment); recordErr != nil {
		logger.Warn("Failed to record deployment history: %v", recordErr)
	}
}
