package repolens

import (
	"log/slog"
	"time"

	"github.com/repolens/repolens/internal/config"
)

// clientConfig holds configuration for Client construction.
// Use newClientConfig() to create with defaults from internal/config.
type clientConfig struct {
	dbURL            string
	dataDir          string
	rulesFile        string
	logger           *slog.Logger
	workerCount      int
	workerPollPeriod time.Duration
	limits           config.Limits
}

// newClientConfig creates a clientConfig with defaults from internal/config.
// This ensures all defaults come from the single source of truth.
func newClientConfig() *clientConfig {
	return &clientConfig{
		workerCount: config.DefaultWorkerCount,
		limits:      config.NewLimits(),
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithSQLite configures SQLite as the database.
func WithSQLite(path string) Option {
	return func(c *clientConfig) {
		c.dbURL = "sqlite://" + path
	}
}

// WithPostgres configures PostgreSQL as the database.
func WithPostgres(dsn string) Option {
	return func(c *clientConfig) {
		c.dbURL = dsn
	}
}

// WithDataDir sets the data directory for cloned repositories and database
// storage. If no database is configured, a SQLite file is created here.
func WithDataDir(dir string) Option {
	return func(c *clientConfig) {
		c.dataDir = dir
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithWorkerCount sets the number of background worker goroutines.
// Values <= 0 are ignored.
func WithWorkerCount(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.workerCount = n
		}
	}
}

// WithWorkerPollPeriod sets how often the background worker checks for new
// tasks. Defaults to 1 second. Tests lower this to pick up work faster.
func WithWorkerPollPeriod(d time.Duration) Option {
	return func(c *clientConfig) {
		c.workerPollPeriod = d
	}
}

// WithRulesFile sets a YAML file with extra security rules that are scanned
// in addition to the built-in rule set.
func WithRulesFile(path string) Option {
	return func(c *clientConfig) {
		c.rulesFile = path
	}
}

// WithLimits sets the resource limits enforced during ingestion and analysis.
func WithLimits(limits config.Limits) Option {
	return func(c *clientConfig) {
		c.limits = limits
	}
}
