package main

import (
	"strings"

	"github.com/repolens/repolens"
	"github.com/repolens/repolens/internal/config"
)

// clientOptions returns the repolens.Option slice derived from the shared
// parts of AppConfig: storage, limits, and worker sizing. Callers append
// entrypoint-specific options (logger, poll period) before passing the full
// slice to repolens.New.
func clientOptions(cfg config.AppConfig) []repolens.Option {
	opts := []repolens.Option{
		storageOption(cfg),
		repolens.WithDataDir(cfg.DataDir()),
		repolens.WithWorkerCount(cfg.WorkerCount()),
		repolens.WithLimits(cfg.Limits()),
	}

	if path := cfg.RulesFile(); path != "" {
		opts = append(opts, repolens.WithRulesFile(path))
	}

	return opts
}

// storageOption returns the repolens.Option for the configured database
// backend.
func storageOption(cfg config.AppConfig) repolens.Option {
	dbURL := cfg.DBURL()
	if isSQLite(dbURL) {
		return repolens.WithSQLite(strings.TrimPrefix(dbURL, "sqlite://"))
	}
	return repolens.WithPostgres(dbURL)
}

// isSQLite checks if the database URL is for SQLite.
func isSQLite(url string) bool {
	return strings.HasPrefix(url, "sqlite:")
}
