package handler

import (
	"context"
	"log/slog"

	"github.com/repolens/repolens/domain/repository"
	"github.com/repolens/repolens/domain/task"
)

// AnalyzeHandler runs the ingestion pipeline over a cloned repository and
// moves it to completed with its aggregate risk score.
type AnalyzeHandler struct {
	repos    repository.Store
	pipeline Ingestor
	logger   *slog.Logger
}

// NewAnalyzeHandler creates an AnalyzeHandler.
func NewAnalyzeHandler(repos repository.Store, pipeline Ingestor, logger *slog.Logger) *AnalyzeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyzeHandler{repos: repos, pipeline: pipeline, logger: logger}
}

// Handle executes one analyze task.
func (h *AnalyzeHandler) Handle(ctx context.Context, t task.Task) error {
	repo, err := loadRepository(ctx, h.repos, t)
	if err != nil {
		return err
	}

	repo, err = transition(ctx, h.repos, repo, repository.StatusParsing)
	if err != nil {
		return err
	}

	repo, err = h.pipeline.Run(ctx, repo)
	if err != nil {
		return err
	}

	if _, err := transition(ctx, h.repos, repo, repository.StatusCompleted); err != nil {
		return err
	}

	h.logger.Info("repository analyzed", slog.String("repository", repo.FullName()))
	return nil
}
