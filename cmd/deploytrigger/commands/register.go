package commands

import (
	"deploytrigger/cmd/deploytrigger/config"
	"deploytrigger/internal/deployments"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	cfg                   *config.Configuration
	deploymentsRepository *deployments.Repository
)

// RegisterCommands wires the subcommands. db may be nil, in which case history is disabled.
func RegisterCommands(rootCmd *cobra.Command, configuration *config.Configuration, db *gorm.DB) {
	cfg = configuration
	deploymentsRepository = nil

	if db != nil {
		deploymentsRepository = deployments.NewRepository(db)
	}

	rootCmd.AddCommand(newTriggerCmd())
	rootCmd.AddCommand(newHistoryCmd())
}
