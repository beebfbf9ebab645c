// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Default configuration values.
const (
	DefaultHost                  = "0.0.0.0"
	DefaultPort                  = 8080
	DefaultLogLevel              = "INFO"
	DefaultWorkerCount           = 4
	DefaultCloneSubdir           = "repos"
	DefaultMaxFilesPerRepo       = 500
	DefaultMaxFileSize           = 1 << 20  // 1 MiB
	DefaultMaxRepoSize           = 512 << 20 // 512 MiB
	DefaultCloneTimeout          = 5 * time.Minute
	DefaultAnalysisTimeout       = 10 * time.Minute
	DefaultMaxConcurrentClones   = 2
	DefaultMaxConcurrentAnalyses = 3
	DefaultMaxFindingsPerRepo    = 5000
	DefaultMaxEntitiesPerRepo    = 20000
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// Limits bounds resource usage during ingestion and analysis.
// Values, not mechanism: the pipeline and queue enforce them.
type Limits struct {
	maxFilesPerRepo       int
	maxFileSize           int64
	maxRepoSize           int64
	cloneTimeout          time.Duration
	analysisTimeout       time.Duration
	maxConcurrentClones   int
	maxConcurrentAnalyses int
	maxFindingsPerRepo    int
	maxEntitiesPerRepo    int
}

// NewLimits creates Limits with default values.
func NewLimits() Limits {
	return Limits{
		maxFilesPerRepo:       DefaultMaxFilesPerRepo,
		maxFileSize:           DefaultMaxFileSize,
		maxRepoSize:           DefaultMaxRepoSize,
		cloneTimeout:          DefaultCloneTimeout,
		analysisTimeout:       DefaultAnalysisTimeout,
		maxConcurrentClones:   DefaultMaxConcurrentClones,
		maxConcurrentAnalyses: DefaultMaxConcurrentAnalyses,
		maxFindingsPerRepo:    DefaultMaxFindingsPerRepo,
		maxEntitiesPerRepo:    DefaultMaxEntitiesPerRepo,
	}
}

// MaxFilesPerRepo returns the hard cap on files processed per repository.
func (l Limits) MaxFilesPerRepo() int { return l.maxFilesPerRepo }

// MaxFileSize returns the byte-size cap above which a file is skipped.
func (l Limits) MaxFileSize() int64 { return l.maxFileSize }

// MaxRepoSize returns the total repository size cap.
func (l Limits) MaxRepoSize() int64 { return l.maxRepoSize }

// CloneTimeout returns the wall-clock limit for a clone job.
func (l Limits) CloneTimeout() time.Duration { return l.cloneTimeout }

// AnalysisTimeout returns the wall-clock limit for an analysis job.
func (l Limits) AnalysisTimeout() time.Duration { return l.analysisTimeout }

// MaxConcurrentClones returns the clone concurrency ceiling.
func (l Limits) MaxConcurrentClones() int { return l.maxConcurrentClones }

// MaxConcurrentAnalyses returns the analysis concurrency ceiling.
func (l Limits) MaxConcurrentAnalyses() int { return l.maxConcurrentAnalyses }

// MaxFindingsPerRepo returns the accumulation guard for findings.
func (l Limits) MaxFindingsPerRepo() int { return l.maxFindingsPerRepo }

// MaxEntitiesPerRepo returns the accumulation guard for entities.
func (l Limits) MaxEntitiesPerRepo() int { return l.maxEntitiesPerRepo }

// WithMaxFilesPerRepo returns a copy with the file-count cap set.
func (l Limits) WithMaxFilesPerRepo(n int) Limits {
	if n > 0 {
		l.maxFilesPerRepo = n
	}
	return l
}

// WithMaxFileSize returns a copy with the per-file byte cap set.
func (l Limits) WithMaxFileSize(n int64) Limits {
	if n > 0 {
		l.maxFileSize = n
	}
	return l
}

// WithCloneTimeout returns a copy with the clone timeout set.
func (l Limits) WithCloneTimeout(d time.Duration) Limits {
	if d > 0 {
		l.cloneTimeout = d
	}
	return l
}

// WithAnalysisTimeout returns a copy with the analysis timeout set.
func (l Limits) WithAnalysisTimeout(d time.Duration) Limits {
	if d > 0 {
		l.analysisTimeout = d
	}
	return l
}

// WithMaxConcurrentClones returns a copy with the clone ceiling set.
func (l Limits) WithMaxConcurrentClones(n int) Limits {
	if n > 0 {
		l.maxConcurrentClones = n
	}
	return l
}

// WithMaxConcurrentAnalyses returns a copy with the analysis ceiling set.
func (l Limits) WithMaxConcurrentAnalyses(n int) Limits {
	if n > 0 {
		l.maxConcurrentAnalyses = n
	}
	return l
}

// AppConfig is the immutable application configuration.
type AppConfig struct {
	host        string
	port        int
	dataDir     string
	dbURL       string
	logLevel    string
	logFormat   LogFormat
	apiKeys     []string
	workerCount int
	rulesFile   string
	limits      Limits
}

// NewAppConfig creates an AppConfig with default values.
func NewAppConfig() AppConfig {
	return AppConfig{
		host:        DefaultHost,
		port:        DefaultPort,
		logLevel:    DefaultLogLevel,
		logFormat:   LogFormatPretty,
		workerCount: DefaultWorkerCount,
		limits:      NewLimits(),
	}
}

// Option mutates an AppConfig during construction.
type Option func(AppConfig) AppConfig

// NewAppConfigWithOptions creates an AppConfig with the given options applied.
func NewAppConfigWithOptions(options ...Option) AppConfig {
	cfg := NewAppConfig()
	for _, opt := range options {
		cfg = opt(cfg)
	}
	return cfg
}

// WithHost sets the server host.
func WithHost(host string) Option {
	return func(c AppConfig) AppConfig {
		if host != "" {
			c.host = host
		}
		return c
	}
}

// WithPort sets the server port.
func WithPort(port int) Option {
	return func(c AppConfig) AppConfig {
		if port > 0 {
			c.port = port
		}
		return c
	}
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) Option {
	return func(c AppConfig) AppConfig {
		if dir != "" {
			c.dataDir = dir
		}
		return c
	}
}

// WithDBURL sets the database URL.
func WithDBURL(url string) Option {
	return func(c AppConfig) AppConfig {
		if url != "" {
			c.dbURL = url
		}
		return c
	}
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) Option {
	return func(c AppConfig) AppConfig {
		if level != "" {
			c.logLevel = level
		}
		return c
	}
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) Option {
	return func(c AppConfig) AppConfig {
		if format != "" {
			c.logFormat = format
		}
		return c
	}
}

// WithAPIKeys sets the valid API keys.
func WithAPIKeys(keys ...string) Option {
	return func(c AppConfig) AppConfig {
		c.apiKeys = append([]string{}, keys...)
		return c
	}
}

// WithWorkerCount sets the queue worker count.
func WithWorkerCount(n int) Option {
	return func(c AppConfig) AppConfig {
		if n > 0 {
			c.workerCount = n
		}
		return c
	}
}

// WithRulesFile sets an optional YAML file with extra security rules.
func WithRulesFile(path string) Option {
	return func(c AppConfig) AppConfig {
		c.rulesFile = path
		return c
	}
}

// WithLimits sets the resource limits.
func WithLimits(limits Limits) Option {
	return func(c AppConfig) AppConfig {
		c.limits = limits
		return c
	}
}

// Host returns the server host.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port.
func (c AppConfig) Port() int { return c.port }

// Addr returns the listen address.
func (c AppConfig) Addr() string { return fmt.Sprintf("%s:%d", c.host, c.port) }

// DataDir returns the data directory, defaulting to ~/.repolens.
func (c AppConfig) DataDir() string {
	if c.dataDir != "" {
		return c.dataDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".repolens"
	}
	return filepath.Join(home, ".repolens")
}

// CloneDir returns the directory that holds repository clones.
func (c AppConfig) CloneDir() string {
	return filepath.Join(c.DataDir(), DefaultCloneSubdir)
}

// DBURL returns the database URL, defaulting to a SQLite file in DataDir.
func (c AppConfig) DBURL() string {
	if c.dbURL != "" {
		return c.dbURL
	}
	return "sqlite://" + filepath.Join(c.DataDir(), "repolens.db")
}

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// APIKeys returns the configured API keys.
func (c AppConfig) APIKeys() []string {
	return append([]string{}, c.apiKeys...)
}

// WorkerCount returns the queue worker count.
func (c AppConfig) WorkerCount() int { return c.workerCount }

// RulesFile returns the optional extra-rules file path.
func (c AppConfig) RulesFile() string { return c.rulesFile }

// Limits returns the resource limits.
func (c AppConfig) Limits() Limits { return c.limits }

// EnsureDataDir creates the data directory if it does not exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir(), 0o755)
}

// EnsureCloneDir creates the clone directory if it does not exist.
func (c AppConfig) EnsureCloneDir() error {
	return os.MkdirAll(c.CloneDir(), 0o755)
}
