package trigger

import (
	"errors"

	"deploytrigger/internal/ssh"
)

var (
	ErrMissingArguments      = errors.New("missing required arguments")
	ErrFailedToBuildCommand  = errors.New("failed to build deploy command")
	ErrFailedToParseTemplate = errors.New("failed to parse deploy command template")
)

// ErrorKind names the failure class shown in diagnostics.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrMissingArguments):
		return "ValidationError"
	case errors.Is(err, ErrFailedToBuildCommand):
		return "CommandError"
	case errors.Is(err, ssh.ErrFailedToCreateAuth), errors.Is(err, ssh.ErrNoAuthMethodProvided):
		return "AuthenticationError"
	case errors.Is(err, ssh.ErrFailedToCreateSSHClient), errors.Is(err, ssh.ErrFailedToLoadKnownHosts):
		return "ConnectionError"
	case errors.Is(err, ssh.ErrFailedToDispatchCommand), errors.Is(err, ssh.ErrSSHConnectionNotEstablished):
		return "DispatchError"
	}

	return "Error"
}
