package ssh

import "time"

const (
	DefaultPort           uint = 22
	DefaultConnectTimeout      = 30 * time.Second
)

// Credentials identifies the remote account. Auth is never logged or persisted.
type Credentials struct {
	Host     string `validate:"required"`
	Port     uint
	Username string       `validate:"required"`
	Auth     AuthMaterial `validate:"required"`
}

// Options controls how a connection is established.
type Options struct {
	// ConnectTimeout bounds both the TCP dial and the SSH handshake.
	// If zero, DefaultConnectTimeout is used.
	ConnectTimeout time.Duration

	// KnownHostsPath enables host key verification against an OpenSSH
	// known_hosts file. If empty, any host key is accepted.
	KnownHostsPath string
}
