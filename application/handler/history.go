package handler

import (
	"context"
	"log/slog"

	"github.com/repolens/repolens/domain/analysis"
	"github.com/repolens/repolens/domain/repository"
	"github.com/repolens/repolens/domain/task"
)

// HistoryHandler derives a bus-factor snapshot from the clone's commit log
// and appends it. History is best-effort: an unreadable log yields a
// degraded snapshot, never a failed repository. The handler is the last
// stage of a run, so it also removes the clone workspace.
type HistoryHandler struct {
	repos      repository.Store
	cloner     Cloner
	analyzer   HistoryAnalyzer
	busFactors analysis.BusFactorStore
	logger     *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(
	repos repository.Store,
	cloner Cloner,
	analyzer HistoryAnalyzer,
	busFactors analysis.BusFactorStore,
	logger *slog.Logger,
) *HistoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryHandler{
		repos:      repos,
		cloner:     cloner,
		analyzer:   analyzer,
		busFactors: busFactors,
		logger:     logger,
	}
}

// Handle executes one history task.
func (h *HistoryHandler) Handle(ctx context.Context, t task.Task) error {
	repo, err := loadRepository(ctx, h.repos, t)
	if err != nil {
		return err
	}

	metric := h.snapshot(ctx, repo)
	if _, err := h.busFactors.Append(ctx, metric); err != nil {
		return err
	}

	h.cloner.Cleanup(repo.ClonePath())

	h.logger.Info("bus factor recorded",
		slog.String("repository", repo.FullName()),
		slog.Float64("bus_factor", metric.BusFactor()),
		slog.String("risk_level", string(metric.RiskLevel())),
	)
	return nil
}

func (h *HistoryHandler) snapshot(ctx context.Context, repo repository.Repository) analysis.BusFactorMetric {
	if repo.ClonePath() == "" {
		return analysis.DegradedBusFactorMetric(repo.ID(), "repository has no clone")
	}

	commitLog, err := h.cloner.CommitLog(ctx, repo.ClonePath())
	if err != nil {
		return analysis.DegradedBusFactorMetric(repo.ID(), "commit log unavailable: "+err.Error())
	}

	return h.analyzer.Analyze(repo.ID(), commitLog)
}
