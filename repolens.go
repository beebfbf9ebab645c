// Package repolens provides a library for repository risk profiling.
//
// Repolens clones Git repositories, extracts code entities with AST parsing,
// scans sources against a security rule set, and measures contributor bus
// factor from commit history. Results are persisted and aggregated into a
// per-repository risk score.
//
// Basic usage:
//
//	client, err := repolens.New(
//	    repolens.WithSQLite(".repolens/data.db"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Submit a repository for analysis
//	repo, err := client.Repositories.Submit(ctx, "torvalds", "linux",
//	    "https://github.com/torvalds/linux.git")
//
//	// Read the risk report once analysis completes
//	report, err := client.Risk.Report(ctx, repo.ID())
package repolens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/repolens/repolens/application/service"
	"github.com/repolens/repolens/infrastructure/git"
	"github.com/repolens/repolens/infrastructure/history"
	"github.com/repolens/repolens/infrastructure/parsing"
	"github.com/repolens/repolens/infrastructure/persistence"
	"github.com/repolens/repolens/internal/config"
	"github.com/repolens/repolens/internal/database"
	"github.com/repolens/repolens/internal/log"
)

// ErrClientClosed is returned by Close when the client is already closed.
var ErrClientClosed = errors.New("repolens: client already closed")

// Client is the main entry point for the repolens library.
// The background worker starts automatically on creation.
//
// Access resources via struct fields:
//
//	client.Repositories.Submit(ctx, owner, name, url)
//	client.Risk.Report(ctx, repositoryID)
//	client.Tasks.Pending(ctx)
type Client struct {
	// Public resource fields (direct service access)
	Repositories *service.RepositoryService
	Risk         *service.RiskService
	Tasks        *service.Queue

	db database.Database

	repos      persistence.RepositoryStore
	files      persistence.FileStore
	entities   persistence.EntityStore
	findings   persistence.FindingStore
	busFactors persistence.BusFactorStore
	tasks      persistence.TaskStore

	cloner   *git.WorkspaceCloner
	analyzer *history.Analyzer
	pipeline *service.Pipeline

	registry *service.Registry
	worker   *service.Worker
	cancel   context.CancelFunc

	logger *slog.Logger
	closed atomic.Bool
}

// New creates a new Client with the given options.
// The background worker is started automatically.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = log.New(log.FormatPretty, config.DefaultLogLevel).Slog()
	}

	appCfg := config.NewAppConfigWithOptions(
		config.WithDataDir(cfg.dataDir),
		config.WithDBURL(cfg.dbURL),
		config.WithWorkerCount(cfg.workerCount),
		config.WithRulesFile(cfg.rulesFile),
		config.WithLimits(cfg.limits),
	)

	if err := appCfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if err := appCfg.EnsureCloneDir(); err != nil {
		return nil, fmt.Errorf("create clone directory: %w", err)
	}

	ctx := context.Background()
	db, err := database.NewDatabase(ctx, appCfg.DBURL())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := persistence.AutoMigrate(db); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("migrate database: %w", err), errClose)
	}

	c := &Client{
		db:         db,
		repos:      persistence.NewRepositoryStore(db),
		files:      persistence.NewFileStore(db),
		entities:   persistence.NewEntityStore(db),
		findings:   persistence.NewFindingStore(db),
		busFactors: persistence.NewBusFactorStore(db),
		tasks:      persistence.NewTaskStore(db),
		logger:     logger,
	}

	c.cloner = git.NewWorkspaceCloner(git.NewGoGitAdapter(logger), appCfg.CloneDir(), logger)
	c.analyzer = history.NewAnalyzer(logger)

	scanner, err := buildScanner(appCfg, logger)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(err, errClose)
	}

	c.pipeline = service.NewPipeline(
		c.repos, c.files, c.entities, c.findings,
		parsing.NewParser(logger), parsing.NewExtractor(logger), scanner,
		appCfg.Limits(), logger,
	)

	queue := service.NewQueue(c.tasks, logger)
	c.Repositories = service.NewRepositoryService(c.repos, queue, logger)
	c.Risk = service.NewRiskService(c.findings, c.entities, c.busFactors)
	c.Tasks = queue

	c.registry = service.NewRegistry()
	c.registerHandlers()

	var workerOpts []service.WorkerOption
	if cfg.workerPollPeriod > 0 {
		workerOpts = append(workerOpts, service.WithPollInterval(cfg.workerPollPeriod))
	}
	c.worker = service.NewWorker(c.tasks, c.registry, c.repos, c.cloner, appCfg.Limits(), appCfg.WorkerCount(), logger, workerOpts...)

	workerCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go c.worker.Start(workerCtx)

	return c, nil
}

// Close stops the background worker and releases all resources.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	c.cancel()

	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	c.logger.Info("repolens client closed")
	return nil
}

// WorkerIdle reports whether the background worker has no in-flight tasks.
func (c *Client) WorkerIdle() bool {
	return !c.worker.Busy()
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}
