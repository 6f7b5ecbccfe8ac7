package main

import (
	"errors"
	"os"

	"deploytrigger/cmd/deploytrigger/commands"
	"deploytrigger/cmd/deploytrigger/config"
	"deploytrigger/internal/database"
	"deploytrigger/internal/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "deploytrigger",
	Short: "Fire-and-forget SSH trigger for the remote post deployment script",
	Long: `deploytrigger opens one SSH session to the deployment VPS, launches the deploy script in the
background with an image URL and a post title, and disconnects without waiting for it.

Configuration is read from .env and the environment:

  VPS_HOST, VPS_USER, VPS_PORT          target account (or pass username@hostname[:port])
  VPS_SSH_KEY_B64                       base64-encoded private key, used in memory
  VPS_SSH_KEY                           PEM private key with literal \n, used via a temporary key file
  VPS_SSH_KEY_PASSPHRASE                passphrase for encrypted keys
  VPS_KNOWN_HOSTS                       known_hosts file; when unset any host key is accepted
  DEPLOY_SCRIPT_PATH, DEPLOY_LOG_PATH   remote script and its log file
  SSH_CONNECT_TIMEOUT                   connect timeout (default 30s)
  DATABASE_PATH                         local history database
  LOG_LEVEL                             debug, info, warn or error
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	cfg, err := config.Load()

	if err != nil {
		rootCmd.PrintErrf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		logger.Warn("Unknown LOG_LEVEL %q, falling back to info", cfg.LogLevel)
	}

	db, err := database.InitDB(cfg.DatabasePath)

	if err != nil {
		rootCmd.PrintErrf("Failed to initialize database at %s: %v\n", cfg.DatabasePath, err)
		db = nil
	}

	commands.RegisterCommands(rootCmd, cfg, db)

	err = rootCmd.Execute()

	if db != nil {
		if closeErr := database.CloseDB(db); closeErr != nil {
			rootCmd.PrintErrf("Failed to close database: %v\n", closeErr)
		}
	}

	if err != nil {
		if !errors.Is(err, commands.ErrTriggerFailed) {
			rootCmd.PrintErrf("Error: %v\n", err)
		}
		os.Exit(1)
	}
}
