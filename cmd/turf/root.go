package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-turf-booking/internal/app"
	"github.com/tbourn/go-turf-booking/internal/config"
	"github.com/tbourn/go-turf-booking/internal/sysutil"
)

// Set with -ldflags "-X main.Version=...".
var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

func NewRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "turf",
		Short:         "Turf slot booking API with conflict-free commits",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile == "" {
				return nil
			}
			// A missing .env is normal outside local development.
			if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before configuration")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newPurgeCacheCmd())
	root.AddCommand(newSeedPricingCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and builds the process logger.
func loadConfig() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, zerolog.Nop(), fmt.Errorf("config: %w", err)
	}
	log := sysutil.NewLogger(cfg.LogLevel, cfg.LogPretty, os.Stderr)
	return cfg, log, nil
}

// openApp loads configuration and wires the engine for a one-shot command.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, log)
}
