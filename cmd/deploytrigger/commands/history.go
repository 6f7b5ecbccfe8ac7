package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var errHistoryUnavailable = errors.New("history is unavailable: the database could not be opened")

func newHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect previous trigger attempts",
		Long:  `Inspect the local record of trigger attempts. Only the request, target and outcome are stored, never key material.`,
	}

	var limit int

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent trigger attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if deploymentsRepository == nil {
				return errHistoryUnavailable
			}

			deployments, err := deploymentsRepository.List(limit)

			if err != nil {
				return fmt.Errorf("failed to list deployments: %w", err)
			}

			if len(deployments) == 0 {
				cmd.Printf("No deployments recorded yet\n")
				return nil
			}

			for _, deployment := range deployments {
				status := "✅"
				if !deployment.Success {
					status = "❌"
				}

				cmd.Printf("%s %s  %s@%s:%d  %q\n", status, deployment.CreatedAt.Local().Format(time.DateTime), deployment.Username, deployment.Host, deployment.Port, deployment.Title)
				cmd.Printf("   Image: %s\n", deployment.ImageURL)

				if deployment.Error != "" {
					cmd.Printf("   Error: %s\n", deployment.Error)
				}
			}

			return nil
		},
	}

	listCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries to show (0 for all)")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded trigger attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if deploymentsRepository == nil {
				return errHistoryUnavailable
			}

			if err := deploymentsRepository.DeleteAll(); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}

			cmd.Printf("History cleared\n")
			return nil
		},
	}

	historyCmd.AddCommand(listCmd)
	historyCmd.AddCommand(clearCmd)

	return historyCmd
}
