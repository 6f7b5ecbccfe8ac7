package ssh

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"deploytrigger/internal/logger"

	"github.com/melbahja/goph"
	"golang.org/x/crypto/ssh"
)

const redacted = "[redacted]"

// AuthMaterial is the private key used for one connection. Prepare resolves it
// into SSH auth methods; the returned release func must be called exactly once
// after the connection is closed, whether or not connecting succeeded.
type AuthMaterial interface {
	Prepare() (auth goph.Auth, release func(), err error)
	IsEmpty() bool
	String() string
}

// InMemoryKey holds an already decoded private key. Nothing touches the disk.
type InMemoryKey struct {
	signer ssh.Signer
}

func NewInMemoryKeyFromSigner(signer ssh.Signer) *InMemoryKey {
	return &InMemoryKey{signer: signer}
}

// NewInMemoryKey parses a PEM (or OpenSSH) encoded private key.
func NewInMemoryKey(pemBytes []byte, passphrase string) (*InMemoryKey, error) {
	signer, err := parseSigner(pemBytes, passphrase)

	if err != nil {
		return nil, err
	}

	return &InMemoryKey{signer: signer}, nil
}

// NewInMemoryKeyFromBase64 decodes base64-wrapped key bytes, as found in VPS_SSH_KEY_B64.
func NewInMemoryKeyFromBase64(encoded string, passphrase string) (*InMemoryKey, error) {
	encoded = strings.TrimSpace(encoded)

	if encoded == "" {
		return nil, ErrEmptyPrivateKey
	}

	keyBytes, err := base64.StdEncoding.DecodeString(encoded)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyEncoding, err)
	}

	return NewInMemoryKey(keyBytes, passphrase)
}

func (k *InMemoryKey) Prepare() (goph.Auth, func(), error) {
	if k.IsEmpty() {
		return nil, func() {}, ErrNoAuthMethodProvided
	}

	return goph.Auth{ssh.PublicKeys(k.signer)}, func() {}, nil
}

func (k *InMemoryKey) IsEmpty() bool {
	return k == nil || k.signer == nil
}

func (k *InMemoryKey) String() string {
	return redacted
}

func (k *InMemoryKey) GoString() string {
	return redacted
}

// TemporaryKeyFile keeps raw key bytes and materialises them as an owner-only
// file for the lifetime of a single connection.
type TemporaryKeyFile struct {
	keyBytes   []byte
	passphrase string

	// Dir is where the key file is created. If empty, os.TempDir() is used.
	Dir string
}

func NewTemporaryKeyFile(keyBytes []byte, passphrase string) *TemporaryKeyFile {
	return &TemporaryKeyFile{keyBytes: keyBytes, passphrase: passphrase}
}

func (k *TemporaryKeyFile) Prepare() (goph.Auth, func(), error) {
	if k.IsEmpty() {
		return nil, func() {}, ErrNoAuthMethodProvided
	}

	keyFile, err := os.CreateTemp(k.Dir, "deploytrigger-key-*")

	if err != nil {
		return nil, func() {}, fmt.Errorf("%w: %v", ErrFailedToWriteTempKey, err)
	}

	keyPath := keyFile.Name()

	release := func() {
		if err := os.Remove(keyPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Debug("Could not remove temporary key file: %v", err)
		}
	}

	if err := keyFile.Chmod(0600); err != nil {
		keyFile.Close()
		release()
		return nil, func() {}, fmt.Errorf("%w: %v", ErrFailedToWriteTempKey, err)
	}

	_, writeErr := keyFile.Write(k.keyBytes)
	closeErr := keyFile.Close()

	if err := errors.Join(writeErr, closeErr); err != nil {
		release()
		return nil, func() {}, fmt.Errorf("%w: %v", ErrFailedToWriteTempKey, err)
	}

	auth, err := goph.Key(keyPath, k.passphrase)

	if err != nil {
		release()
		return nil, func() {}, fmt.Errorf("%w: %v", ErrFailedToParsePrivateKey, err)
	}

	return auth, release, nil
}

func (k *TemporaryKeyFile) IsEmpty() bool {
	return k == nil || len(k.keyBytes) == 0
}

func (k *TemporaryKeyFile) String() string {
	return redacted
}

func (k *TemporaryKeyFile) GoString() string {
	return redacted
}

// NormalizePEM turns PEM text stored in a single-line env var (literal "\n"
// sequences) back into a multi-line key.
func NormalizePEM(text string) []byte {
	text = strings.TrimSpace(text)

	if text == "" {
		return nil
	}

	return []byte(strings.ReplaceAll(text, `\n`, "\n") + "\n")
}

// KeyNeedsPassphrase reports whether keyBytes is an encrypted private key.
func KeyNeedsPassphrase(keyBytes []byte) bool {
	_, err := ssh.ParsePrivateKey(keyBytes)

	var missing *ssh.PassphraseMissingError
	return errors.As(err, &missing)
}

func parseSigner(keyBytes []byte, passphrase string) (ssh.Signer, error) {
	if len(keyBytes) == 0 {
		return nil, ErrEmptyPrivateKey
	}

	var signer ssh.Signer
	var err error

	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(keyBytes)
	}

	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, ErrPassphraseRequired
		}
		return nil, fmt.Errorf("%w: %v", ErrFailedToParsePrivateKey, err)
	}

	return signer, nil
}
