package commands

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"deploytrigger/cmd/deploytrigger/config"
	"deploytrigger/internal/database"
	"deploytrigger/internal/ssh"
	"deploytrigger/internal/ssh/sshtest"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Configuration {
	return &config.Configuration{
		Port:           22,
		ScriptPath:     "/root/reddit_post_automation/bash/deploy.sh",
		LogPath:        "/tmp/deploy.log",
		ConnectTimeout: 5 * time.Second,
	}
}

func withConfig(t *testing.T, c *config.Configuration) {
	t.Helper()

	previous := cfg
	cfg = c
	t.Cleanup(func() { cfg = previous })
}

func stubPassphrase(t *testing.T, passphrase string, err error) *int {
	t.Helper()

	calls := 0
	previous := passphrasePrompt
	passphrasePrompt = func(*cobra.Command) (string, error) {
		calls++
		return passphrase, err
	}
	t.Cleanup(func() { passphrasePrompt = previous })

	return &calls
}

func TestParseSSHURL(t *testing.T) {
	tests := []struct {
		in       string
		user     string
		host     string
		port     uint
		hasError bool
	}{
		{in: "root@203.0.113.7", user: "root", host: "203.0.113.7", port: 22},
		{in: "deploy@vps.example.com:2222", user: "deploy", host: "vps.example.com", port: 2222},
		{in: "deploy@vps.example.com:", user: "deploy", host: "vps.example.com", port: 22},
		{in: "vps.example.com", hasError: true},
		{in: "@vps.example.com", hasError: true},
		{in: "root@", hasError: true},
		{in: "root@host:abc", hasError: true},
		{in: "root@host:70000", hasError: true},
		{in: "root@host:22:33", hasError: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			user, host, port, err := parseSSHURL(tt.in)

			if tt.hasError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.user, user)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.port, port)
		})
	}
}

func TestResolveAuthMaterial_Sources(t *testing.T) {
	keyPair := sshtest.GenerateKey(t)
	keyPath := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(keyPath, keyPair.PEM, 0600))

	c := testConfig()
	c.SSHKeyB64 = base64.StdEncoding.EncodeToString(keyPair.PEM)
	c.SSHKeyPEM = strings.ReplaceAll(strings.TrimSpace(string(keyPair.PEM)), "\n", `\n`)
	withConfig(t, c)

	auth, err := resolveAuthMaterial(&cobra.Command{}, keySourceAuto, "")
	require.NoError(t, err)
	assert.IsType(t, &ssh.InMemoryKey{}, auth, "auto prefers VPS_SSH_KEY_B64")

	auth, err = resolveAuthMaterial(&cobra.Command{}, keySourcePEM, "")
	require.NoError(t, err)
	assert.IsType(t, &ssh.TemporaryKeyFile{}, auth)
	assert.False(t, auth.IsEmpty())

	auth, err = resolveAuthMaterial(&cobra.Command{}, keySourceAuto, keyPath)
	require.NoError(t, err)
	assert.IsType(t, &ssh.InMemoryKey{}, auth)

	_, err = resolveAuthMaterial(&cobra.Command{}, keySourceFile, "")
	assert.Error(t, err)

	_, err = resolveAuthMaterial(&cobra.Command{}, "vault", "")
	assert.ErrorContains(t, err, "unknown key source")
}

func TestResolveAuthMaterial_NothingConfigured(t *testing.T) {
	withConfig(t, testConfig())

	auth, err := resolveAuthMaterial(&cobra.Command{}, keySourceAuto, "")
	require.NoError(t, err)
	assert.Nil(t, auth)

	auth, err = resolveAuthMaterial(&cobra.Command{}, keySourceB64, "")
	require.NoError(t, err)
	assert.Nil(t, auth)
}

func TestResolveAuthMaterial_PromptsForPassphrase(t *testing.T) {
	keyPair := sshtest.GenerateEncryptedKey(t, "s3cret")

	c := testConfig()
	c.SSHKeyB64 = base64.StdEncoding.EncodeToString(keyPair.PEM)
	withConfig(t, c)

	calls := stubPassphrase(t, "s3cret", nil)

	auth, err := resolveAuthMaterial(&cobra.Command{}, keySourceB64, "")
	require.NoError(t, err)
	assert.False(t, auth.IsEmpty())
	assert.Equal(t, 1, *calls)
}

func TestResolveAuthMaterial_ConfiguredPassphraseSkipsPrompt(t *testing.T) {
	keyPair := sshtest.GenerateEncryptedKey(t, "s3cret")

	c := testConfig()
	c.SSHKeyB64 = base64.StdEncoding.EncodeToString(keyPair.PEM)
	c.SSHKeyPassphrase = "s3cret"
	withConfig(t, c)

	calls := stubPassphrase(t, "", fmt.Errorf("should not be called"))

	_, err := resolveAuthMaterial(&cobra.Command{}, keySourceB64, "")
	require.NoError(t, err)
	assert.Equal(t, 0, *calls)
}

func TestResolveAuthMaterial_NoTerminalForPassphrase(t *testing.T) {
	keyPair := sshtest.GenerateEncryptedKey(t, "s3cret")

	c := testConfig()
	c.SSHKeyB64 = base64.StdEncoding.EncodeToString(keyPair.PEM)
	withConfig(t, c)

	stubPassphrase(t, "", ssh.ErrPassphraseRequired)

	_, err := resolveAuthMaterial(&cobra.Command{}, keySourceB64, "")
	assert.ErrorIs(t, err, ssh.ErrPassphraseRequired)
}

func TestResolveAuthMaterial_PromptErrorIsKept(t *testing.T) {
	keyPair := sshtest.GenerateEncryptedKey(t, "s3cret")

	c := testConfig()
	c.SSHKeyB64 = base64.StdEncoding.EncodeToString(keyPair.PEM)
	withConfig(t, c)

	readErr := errors.New("read /dev/tty: input/output error")
	stubPassphrase(t, "", readErr)

	_, err := resolveAuthMaterial(&cobra.Command{}, keySourceB64, "")
	assert.ErrorIs(t, err, ssh.ErrPassphraseRequired)
	assert.ErrorIs(t, err, readErr)
}

func TestBuildDeploymentRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "post.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: From file\nimage:\n  url: https://example.com/file.png\n"), 0600))

	request, err := buildDeploymentRequest(&triggerFlags{payloadPath: path})
	require.NoError(t, err)
	assert.Equal(t, "From file", request.Title)
	assert.Equal(t, "https://example.com/file.png", request.ImageURL)

	request, err = buildDeploymentRequest(&triggerFlags{payloadPath: path, title: "Override"})
	require.NoError(t, err)
	assert.Equal(t, "Override", request.Title)
	assert.Equal(t, "https://example.com/file.png", request.ImageURL)
}

func newTestRoot(t *testing.T, c *config.Configuration, withHistory bool) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	previousCfg, previousRepo := cfg, deploymentsRepository
	t.Cleanup(func() { cfg, deploymentsRepository = previousCfg, previousRepo })

	root := &cobra.Command{Use: "deploytrigger", SilenceUsage: true, SilenceErrors: true}

	if withHistory {
		db, err := database.InitDB(filepath.Join(t.TempDir(), "history.db"))
		require.NoError(t, err)
		t.Cleanup(func() { database.CloseDB(db) })
		RegisterCommands(root, c, db)
	} else {
		RegisterCommands(root, c, nil)
	}

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)

	return root, &out, &errOut
}

func TestTriggerCommand_EndToEnd(t *testing.T) {
	keyPair := sshtest.GenerateKey(t)
	server := sshtest.NewServer(t, keyPair.Signer.PublicKey())

	c := testConfig()
	c.SSHKeyB64 = base64.StdEncoding.EncodeToString(keyPair.PEM)
	root, out, errOut := newTestRoot(t, c, true)

	root.SetArgs([]string{"trigger", fmt.Sprintf("deploy@%s:%d", server.Host, server.Port), "--title", "Weekly Update", "--image-url", "https://example.com/a.png"})
	require.NoError(t, root.Execute())

	assert.Equal(t, []string{"nohup /root/reddit_post_automation/bash/deploy.sh 'https://example.com/a.png' 'Weekly Update' > /tmp/deploy.log 2>&1 &"}, server.Execs())
	assert.Contains(t, errOut.String(), "  VPS: Deployment script triggered successfully")

	root.SetArgs([]string{"history", "list"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), `"Weekly Update"`)
	assert.Contains(t, out.String(), "✅")
}

func TestTriggerCommand_TemporaryKeyFileVariant(t *testing.T) {
	keyPair := sshtest.GenerateKey(t)
	server := sshtest.NewServer(t, keyPair.Signer.PublicKey())

	c := testConfig()
	c.Host = server.Host
	c.Port = server.Port
	c.User = "deploy"
	c.SSHKeyPEM = strings.ReplaceAll(strings.TrimSpace(string(keyPair.PEM)), "\n", `\n`)
	root, _, _ := newTestRoot(t, c, false)

	root.SetArgs([]string{"trigger", "--title", "O'Brien's", "--image-url", "https://example.com/a.png", "--script-path", "/opt/deploy.sh", "--log-path", "/var/log/deploy.log"})
	require.NoError(t, root.Execute())

	assert.Equal(t, []string{`nohup /opt/deploy.sh 'https://example.com/a.png' 'O'\''Brien'\''s' > /var/log/deploy.log 2>&1 &`}, server.Execs())
}

func TestTriggerCommand_MissingArguments(t *testing.T) {
	root, _, errOut := newTestRoot(t, testConfig(), false)

	root.SetArgs([]string{"trigger", "--title", "Weekly Update"})
	err := root.Execute()

	assert.ErrorIs(t, err, ErrTriggerFailed)
	assert.Contains(t, errOut.String(), "  VPS: Missing required arguments")
}

func TestHistoryCommand_Unavailable(t *testing.T) {
	root, _, _ := newTestRoot(t, testConfig(), false)

	root.SetArgs([]string{"history", "list"})
	assert.ErrorIs(t, root.Execute(), errHistoryUnavailable)
}

func TestHistoryCommand_Clear(t *testing.T) {
	root, out, _ := newTestRoot(t, testConfig(), true)

	root.SetArgs([]string{"trigger", "--title", "Weekly Update"})
	assert.ErrorIs(t, root.Execute(), ErrTriggerFailed)

	root.SetArgs([]string{"history", "clear"})
	require.NoError(t, root.Execute())

	out.Reset()
	root.SetArgs([]string{"history", "list"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "No deployments recorded yet")
}
