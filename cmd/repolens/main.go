// Package main is the entry point for the repolens CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/repolens/repolens/internal/config"
	"github.com/repolens/repolens/internal/log"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repolens",
		Short: "Repository risk profiler",
		Long:  `repolens clones Git repositories and profiles their risk: security findings, code-entity complexity, aggregate risk score, and bus-factor analysis of the commit history.`,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(analyzeCmd())
	cmd.AddCommand(historyCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from .env file and environment variables.
func loadConfig(envFile string) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the configured logger.
func newLogger(cfg config.AppConfig) *log.Logger {
	return log.New(log.Format(cfg.LogFormat()), cfg.LogLevel())
}
