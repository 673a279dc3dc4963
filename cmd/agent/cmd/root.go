package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"wallsync/internal/app/agent/config"
	"wallsync/internal/utils/logger"
)

var (
	cfg         *config.Config
	log         *slog.Logger
	serverURL   string
	deviceToken string
)

var rootCmd = &cobra.Command{
	Use:   "wallsync-agent",
	Short: "WallSync agent - the device side of synchronized video-wall playback",
	Long: `The WallSync agent runs on a playback device. It polls the coordinator
for commands, prepares and stops synchronized playback, and reports
liveness and drift telemetry through heartbeats.`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func setup(_ *cobra.Command, _ []string) error {
	cfg = config.MustLoad()

	if serverURL != "" {
		cfg.ServerAddress = serverURL
	}
	if deviceToken != "" {
		cfg.DeviceToken = deviceToken
	}

	log = logger.New(cfg.Env)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "coordinator address")
	rootCmd.PersistentFlags().StringVar(&deviceToken, "token", "", "device token")
}
