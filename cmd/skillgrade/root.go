package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	app "github.com/okian/skillgrade/internal/app"
	"github.com/okian/skillgrade/internal/config"
	"github.com/okian/skillgrade/pkg/logger"
)

const name = "skillgrade"

var (
	cfgFile string
	cfg     *config.Config

	rootCmd = &cobra.Command{
		Use:               name,
		Short:             "skillgrade scores free-text answers to recruiting skill games",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(_ *cobra.Command, _ []string) { _ = logger.Sync() },
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (overrides SKILLGRADE_CONFIG)")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error")
}

// setup loads configuration and initialises logging for every subcommand.
func setup(cmd *cobra.Command, _ []string) error {
	if cfgFile != "" {
		if err := os.Setenv(config.EnvPrefix+"CONFIG", cfgFile); err != nil {
			return err
		}
	}
	loaded, err := config.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg = loaded
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}

	if err := logger.Init(logger.WithJSON(cfg.LogJSON), logger.WithFile(cfg.LogFile)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

// startService builds and starts the service from the loaded config.
func startService(ctx context.Context) (*app.Service, error) {
	svc := app.New(cfg, app.WithLogger(logger.Get()))
	if err := svc.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start service: %w", err)
	}
	return svc, nil
}
