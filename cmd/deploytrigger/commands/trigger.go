package commands

import (
	"errors"
	"time"

	"deploytrigger/internal/payload"
	"deploytrigger/internal/ssh"
	"deploytrigger/internal/trigger"

	"github.com/spf13/cobra"
)

// ErrTriggerFailed is returned after the diagnostic line has already been printed
var ErrTriggerFailed = errors.New("deployment trigger failed")

type triggerFlags struct {
	title       string
	imageURL    string
	payloadPath string
	keySource   string
	keyPath     string
	knownHosts  string
	scriptPath  string
	logPath     string
	timeout     time.Duration
	noHistory   bool
}

func newTriggerCmd() *cobra.Command {
	flags := &triggerFlags{}

	cmd := &cobra.Command{
		Use:   "trigger [username@hostname[:port]]",
		Short: "Launch the deploy script on the VPS in the background",
		Long: `Connect to the VPS over SSH, start the deploy script with nohup and disconnect without waiting for it.

The script receives the image URL as its first argument and the post title as its second:

  nohup <script> '<image-url>' '<title>' > <log> 2>&1 &

If username@hostname[:port] is omitted, VPS_USER, VPS_HOST and VPS_PORT are used.
The private key comes from --ssh-key-path, VPS_SSH_KEY_B64 (base64, kept in memory)
or VPS_SSH_KEY (PEM text, written to a temporary 0600 file for the connection only).

A successful exit only means the command was dispatched; check the remote log for the outcome.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrigger(cmd, args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.title, "title", "", "Post title (second script argument)")
	cmd.Flags().StringVar(&flags.imageURL, "image-url", "", "Image URL (first script argument)")
	cmd.Flags().StringVar(&flags.payloadPath, "payload", "", `JSON or YAML file shaped like {"title": ..., "image": {"url": ...}}`)
	cmd.Flags().StringVar(&flags.keySource, "key-source", keySourceAuto, "Where to read the private key from: auto, b64, pem or file")
	cmd.Flags().StringVar(&flags.keyPath, "ssh-key-path", "", "Path to SSH private key file")
	cmd.Flags().StringVar(&flags.knownHosts, "known-hosts", "", "known_hosts file to verify the VPS host key against (default: accept any host key)")
	cmd.Flags().StringVar(&flags.scriptPath, "script-path", "", "Remote deploy script (default from DEPLOY_SCRIPT_PATH)")
	cmd.Flags().StringVar(&flags.logPath, "log-path", "", "Remote log file for the script output (default from DEPLOY_LOG_PATH)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "SSH connect timeout (default from SSH_CONNECT_TIMEOUT)")
	cmd.Flags().BoolVar(&flags.noHistory, "no-history", false, "Do not record this attempt in the local history")

	return cmd
}

func runTrigger(cmd *cobra.Command, args []string, flags *triggerFlags) error {
	request, err := buildDeploymentRequest(flags)

	if err != nil {
		return err
	}

	creds, err := buildSSHCredentials(cmd, args, flags.keySource, flags.keyPath)

	if err != nil {
		return err
	}

	options := trigger.Options{
		ScriptPath: firstNonEmpty(flags.scriptPath, cfg.ScriptPath),
		LogPath:    firstNonEmpty(flags.logPath, cfg.LogPath),
		SSH: ssh.Options{
			ConnectTimeout: cfg.ConnectTimeout,
			KnownHostsPath: firstNonEmpty(flags.knownHosts, cfg.KnownHostsPath),
		},
		ErrOut: cmd.ErrOrStderr(),
	}

	if flags.timeout > 0 {
		options.SSH.ConnectTimeout = flags.timeout
	}

	if deploymentsRepository != nil && !flags.noHistory {
		options.History = deploymentsRepository
	}

	service, err := trigger.NewService(options)

	if err != nil {
		return err
	}

	if !service.Trigger(request, creds) {
		return ErrTriggerFailed
	}

	return nil
}

// buildDeploymentRequest reads --payload first; --title and --image-url override it.
func buildDeploymentRequest(flags *triggerFlags) (trigger.DeploymentRequest, error) {
	request := trigger.DeploymentRequest{}

	if flags.payloadPath != "" {
		var err error
		if request, err = payload.Load(flags.payloadPath); err != nil {
			return request, err
		}
	}

	if flags.title != "" {
		request.Title = flags.title
	}

	if flags.imageURL != "" {
		request.ImageURL = flags.imageURL
	}

	return request, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
