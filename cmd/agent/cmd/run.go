package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"wallsync/internal/app/agent"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent loop",
	Long:  "Polls the coordinator for commands and heartbeats until interrupted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.DeviceToken == "" {
			return fmt.Errorf("a device token is required (--token or DEVICE_TOKEN)")
		}

		journal, err := agent.NewJournal(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer journal.Close()

		client := agent.NewClient(cfg, log)
		runner := agent.NewRunner(cfg, client, journal, log)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runner.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
