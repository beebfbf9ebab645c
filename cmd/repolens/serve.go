package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/repolens/repolens"
	"github.com/repolens/repolens/infrastructure/api"
	"github.com/repolens/repolens/internal/config"
)

// shutdownGrace bounds how long in-flight requests get on shutdown.
const shutdownGrace = 15 * time.Second

func serveCmd() *cobra.Command {
	var (
		envFile string
		host    string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server and analysis workers",
		Long: `Start the HTTP API server and analysis workers.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables (prefix REPOLENS_)
  4. Command line flags

Environment variables:
  REPOLENS_HOST                     Server host to bind to (default: 0.0.0.0)
  REPOLENS_PORT                     Server port to listen on (default: 8080)
  REPOLENS_DATA_DIR                 Data directory (default: ~/.repolens)
  REPOLENS_DB_URL                   Database URL (default: sqlite://{data_dir}/repolens.db)
  REPOLENS_LOG_LEVEL                Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  REPOLENS_LOG_FORMAT               Log format: pretty, json (default: pretty)
  REPOLENS_API_KEYS                 Comma-separated list of valid API keys
  REPOLENS_WORKER_COUNT             Queue worker count (default: 4)
  REPOLENS_RULES_FILE               Optional YAML file with extra security rules
  REPOLENS_MAX_FILES_PER_REPO       File-count cap per repository (default: 500)
  REPOLENS_MAX_FILE_SIZE            Per-file byte cap (default: 1048576)
  REPOLENS_MAX_REPO_SIZE            Total repository size cap (default: 536870912)
  REPOLENS_CLONE_TIMEOUT            Clone job timeout in seconds (default: 300)
  REPOLENS_ANALYSIS_TIMEOUT         Analysis job timeout in seconds (default: 600)
  REPOLENS_MAX_CONCURRENT_CLONES    Clone concurrency ceiling (default: 2)
  REPOLENS_MAX_CONCURRENT_ANALYSES  Analysis concurrency ceiling (default: 3)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(envFile, host, port)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on")

	return cmd
}

func runServe(envFile, host string, port int) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	cfg = config.NewAppConfigWithOptions(append(configOptions(cfg), config.WithHost(host), config.WithPort(port))...)

	logger := newLogger(cfg)
	slogger := logger.Slog()
	logger.SetDefault()

	slogger.Info("starting repolens",
		slog.String("version", version),
		slog.String("addr", cfg.Addr()),
		slog.Int("workers", cfg.WorkerCount()),
	)

	opts := append(clientOptions(cfg), repolens.WithLogger(slogger))
	client, err := repolens.New(opts...)
	if err != nil {
		return fmt.Errorf("create repolens client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close repolens client", slog.Any("error", err))
		}
	}()

	server := api.NewServer(cfg.Addr(), client.Repositories, client.Risk, cfg.APIKeys(), slogger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slogger.Info("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slogger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	if err := server.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// configOptions re-expresses a loaded config as options so flag overrides
// can be layered on top.
func configOptions(cfg config.AppConfig) []config.Option {
	return []config.Option{
		config.WithHost(cfg.Host()),
		config.WithPort(cfg.Port()),
		config.WithDataDir(cfg.DataDir()),
		config.WithDBURL(cfg.DBURL()),
		config.WithLogLevel(cfg.LogLevel()),
		config.WithLogFormat(cfg.LogFormat()),
		config.WithAPIKeys(cfg.APIKeys()...),
		config.WithWorkerCount(cfg.WorkerCount()),
		config.WithRulesFile(cfg.RulesFile()),
		config.WithLimits(cfg.Limits()),
	}
}
