package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envPrefix is the prefix for all environment variables.
const envPrefix = "REPOLENS"

// EnvConfig holds all environment-based configuration.
// Field names map to environment variables with the REPOLENS_ prefix.
type EnvConfig struct {
	// Host is the server host to bind to.
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	Port int `envconfig:"PORT" default:"8080"`

	// DataDir is the data directory path. Default: ~/.repolens
	DataDir string `envconfig:"DATA_DIR"`

	// DBURL is the database connection URL.
	// Default: sqlite://{data_dir}/repolens.db
	DBURL string `envconfig:"DB_URL"`

	// LogLevel is the log verbosity level (DEBUG, INFO, WARN, ERROR).
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// APIKeys is a comma-separated list of valid API keys.
	APIKeys []string `envconfig:"API_KEYS"`

	// WorkerCount is the number of queue workers.
	WorkerCount int `envconfig:"WORKER_COUNT" default:"4"`

	// RulesFile is an optional YAML file with additional security rules.
	RulesFile string `envconfig:"RULES_FILE"`

	// MaxFilesPerRepo caps how many files one repository analysis processes.
	MaxFilesPerRepo int `envconfig:"MAX_FILES_PER_REPO" default:"500"`

	// MaxFileSize is the per-file byte cap; larger files are skipped.
	MaxFileSize int64 `envconfig:"MAX_FILE_SIZE" default:"1048576"`

	// MaxRepoSize is the total repository size cap in bytes.
	MaxRepoSize int64 `envconfig:"MAX_REPO_SIZE" default:"536870912"`

	// CloneTimeoutSeconds is the wall-clock limit for a clone job.
	CloneTimeoutSeconds int `envconfig:"CLONE_TIMEOUT_SECONDS" default:"300"`

	// AnalysisTimeoutSeconds is the wall-clock limit for an analysis job.
	AnalysisTimeoutSeconds int `envconfig:"ANALYSIS_TIMEOUT_SECONDS" default:"600"`

	// MaxConcurrentClones bounds simultaneous clone operations.
	MaxConcurrentClones int `envconfig:"MAX_CONCURRENT_CLONES" default:"2"`

	// MaxConcurrentAnalyses bounds simultaneous analysis operations.
	MaxConcurrentAnalyses int `envconfig:"MAX_CONCURRENT_ANALYSES" default:"3"`

	// MaxFindingsPerRepo guards against finding accumulation.
	MaxFindingsPerRepo int `envconfig:"MAX_FINDINGS_PER_REPO" default:"5000"`

	// MaxEntitiesPerRepo guards against entity accumulation.
	MaxEntitiesPerRepo int `envconfig:"MAX_ENTITIES_PER_REPO" default:"20000"`
}

// LoadConfig loads configuration from an optional .env file and the
// environment, returning an immutable AppConfig.
func LoadConfig(envFile string) (AppConfig, error) {
	if err := LoadDotEnv(envFile); err != nil {
		return AppConfig{}, fmt.Errorf("load .env: %w", err)
	}

	var env EnvConfig
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return AppConfig{}, fmt.Errorf("process environment: %w", err)
	}

	return env.ToAppConfig(), nil
}

// ToAppConfig converts the raw environment values into an AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	limits := NewLimits().
		WithMaxFilesPerRepo(e.MaxFilesPerRepo).
		WithMaxFileSize(e.MaxFileSize).
		WithCloneTimeout(time.Duration(e.CloneTimeoutSeconds) * time.Second).
		WithAnalysisTimeout(time.Duration(e.AnalysisTimeoutSeconds) * time.Second).
		WithMaxConcurrentClones(e.MaxConcurrentClones).
		WithMaxConcurrentAnalyses(e.MaxConcurrentAnalyses)

	return NewAppConfigWithOptions(
		WithHost(e.Host),
		WithPort(e.Port),
		WithDataDir(e.DataDir),
		WithDBURL(e.DBURL),
		WithLogLevel(e.LogLevel),
		WithLogFormat(LogFormat(e.LogFormat)),
		WithAPIKeys(e.APIKeys...),
		WithWorkerCount(e.WorkerCount),
		WithRulesFile(e.RulesFile),
		WithLimits(limits),
	)
}
