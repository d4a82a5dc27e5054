package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/plantuml-studio/config"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		serverURL string
		logLevel  string
	)

	cmd := &cobra.Command{
		Use:           "plantumlctl",
		Short:         "Render, validate and generate PlantUML diagrams from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.SetLogLevel(logLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&serverURL, "server", "", "PlantUML server URL (defaults to PLANTUML_SERVER_URL)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	cmd.AddCommand(renderCmd(&serverURL))
	cmd.AddCommand(validateCmd(&serverURL))
	cmd.AddCommand(generateCmd(&serverURL))
	return cmd
}

func loadConfig(serverURL string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if serverURL != "" {
		cfg.Render.ServerURL = serverURL
	}
	return cfg, nil
}
