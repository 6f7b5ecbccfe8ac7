package ssh

import "errors"

// SSH connection errors
var (
	ErrNoAuthMethodProvided        = errors.New("no valid authentication method provided")
	ErrSSHConnectionNotEstablished = errors.New("SSH connection not established")
	ErrFailedToCreateAuth          = errors.New("failed to create auth")
	ErrFailedToCreateSSHClient     = errors.New("failed to create SSH client")
	ErrFailedToLoadKnownHosts      = errors.New("failed to load known_hosts")
)

// Key material errors
var (
	ErrEmptyPrivateKey         = errors.New("private key is empty")
	ErrInvalidKeyEncoding      = errors.New("private key is not valid base64")
	ErrFailedToParsePrivateKey = errors.New("failed to parse private key")
	ErrFailedToWriteTempKey    = errors.New("failed to write temporary key file")
	ErrPassphraseRequired      = errors.New("private key is encrypted and no passphrase was provided")
)

// Command execution errors
var (
	ErrFailedToDispatchCommand = errors.New("failed to dispatch command")
)
