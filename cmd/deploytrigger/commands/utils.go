package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"deploytrigger/internal/ssh"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	keySourceAuto = "auto"
	keySourceB64  = "b64"
	keySourcePEM  = "pem"
	keySourceFile = "file"
)

// passphrasePrompt is swapped out in tests
var passphrasePrompt = func(cmd *cobra.Command) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", ssh.ErrPassphraseRequired
	}

	return readPasswordSecurely("🔒 Enter SSH key passphrase: ", cmd.ErrOrStderr())
}

func readPasswordSecurely(prompt string, errOut io.Writer) (string, error) {
	// readPasswordSecurely reads a password from the terminal without echoing
	fmt.Fprintf(errOut, "%s", prompt)

	bytePassword, err := term.ReadPassword(int(syscall.Stdin))

	fmt.Fprintf(errOut, "\n")

	if err != nil {
		return "", err
	}
	return string(bytePassword), nil
}

// parseSSHURL parses an SSH URL in the format username@hostname:port or username@hostname
// Returns username, hostname, port, and any error
func parseSSHURL(sshURL string) (username, hostname string, port uint, err error) {
	// Default port
	port = ssh.DefaultPort

	// Check if URL contains port
	if strings.Contains(sshURL, ":") {
		parts := strings.Split(sshURL, ":")
		if len(parts) != 2 {
			return "", "", 0, fmt.Errorf("invalid SSH URL format: %s", sshURL)
		}

		// Parse port
		if portStr := parts[1]; portStr != "" {
			parsedPort, err := strconv.ParseUint(portStr, 10, 32)

			if err != nil {
				return "", "", 0, fmt.Errorf("invalid port number: %s", portStr)
			}

			if parsedPort > 65535 {
				return "", "", 0, fmt.Errorf("port number must be between 0 and 65535")
			}

			port = uint(parsedPort)
		}

		sshURL = parts[0]
	}

	// Parse username@hostname
	if strings.Contains(sshURL, "@") {
		parts := strings.Split(sshURL, "@")
		if len(parts) != 2 {
			return "", "", 0, fmt.Errorf("invalid SSH URL format: %s", sshURL)
		}
		username = parts[0]
		hostname = parts[1]
	} else {
		return "", "", 0, fmt.Errorf("username is required in SSH URL format: username@hostname[:port]")
	}

	if username == "" {
		return "", "", 0, fmt.Errorf("username cannot be empty")
	}
	if hostname == "" {
		return "", "", 0, fmt.Errorf("hostname cannot be empty")
	}

	return username, hostname, port, nil
}

// buildSSHCredentials builds SSH credentials from the positional argument or the configuration.
// Empty host, user or key are left empty so the trigger reports them as missing arguments.
func buildSSHCredentials(cmd *cobra.Command, args []string, keySource string, keyPath string) (*ssh.Credentials, error) {
	creds := &ssh.Credentials{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.User,
	}

	if len(args) > 0 {
		username, hostname, port, err := parseSSHURL(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to parse SSH URL '%s': %v", args[0], err)
		}
		creds.Username = username
		creds.Host = hostname
		creds.Port = port
	}

	auth, err := resolveAuthMaterial(cmd, keySource, keyPath)

	if err != nil {
		return nil, err
	}

	if auth != nil {
		creds.Auth = auth
	}

	return creds, nil
}

// resolveAuthMaterial picks the key: --ssh-key-path, then VPS_SSH_KEY_B64, then VPS_SSH_KEY.
// It returns a nil material when nothing is configured.
func resolveAuthMaterial(cmd *cobra.Command, keySource string, keyPath string) (ssh.AuthMaterial, error) {
	if keySource == "" || keySource == keySourceAuto {
		switch {
		case keyPath != "":
			keySource = keySourceFile
		case cfg.SSHKeyB64 != "":
			keySource = keySourceB64
		case cfg.SSHKeyPEM != "":
			keySource = keySourcePEM
		default:
			return nil, nil
		}
	}

	switch keySource {
	case keySourceB64:
		if strings.TrimSpace(cfg.SSHKeyB64) == "" {
			return nil, nil
		}

		return withPassphrase(cmd, func(passphrase string) (ssh.AuthMaterial, error) {
			return ssh.NewInMemoryKeyFromBase64(cfg.SSHKeyB64, passphrase)
		})
	case keySourcePEM:
		keyBytes := ssh.NormalizePEM(cfg.SSHKeyPEM)

		if len(keyBytes) == 0 {
			return nil, nil
		}

		passphrase := cfg.SSHKeyPassphrase

		if passphrase == "" && ssh.KeyNeedsPassphrase(keyBytes) {
			var err error
			if passphrase, err = passphrasePrompt(cmd); err != nil {
				return nil, err
			}
		}

		return ssh.NewTemporaryKeyFile(keyBytes, passphrase), nil
	case keySourceFile:
		if keyPath == "" {
			return nil, fmt.Errorf("--ssh-key-path is required with --key-source=%s", keySourceFile)
		}

		keyBytes, err := os.ReadFile(keyPath)

		if err != nil {
			return nil, fmt.Errorf("%w: %v", ssh.ErrFailedToCreateAuth, err)
		}

		return withPassphrase(cmd, func(passphrase string) (ssh.AuthMaterial, error) {
			return ssh.NewInMemoryKey(keyBytes, passphrase)
		})
	}

	return nil, fmt.Errorf("unknown key source %q (expected %s, %s, %s or %s)", keySource, keySourceAuto, keySourceB64, keySourcePEM, keySourceFile)
}

func withPassphrase(cmd *cobra.Command, build func(passphrase string) (ssh.AuthMaterial, error)) (ssh.AuthMaterial, error) {
	auth, err := build(cfg.SSHKeyPassphrase)

	if !errors.Is(err, ssh.ErrPassphraseRequired) {
		return auth, err
	}

	passphrase, promptErr := passphrasePrompt(cmd)

	if promptErr != nil {
		return nil, fmt.Errorf("%w: %w", err, promptErr)
	}

	return build(passphrase)
}
