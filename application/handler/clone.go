package handler

import (
	"context"
	"log/slog"

	"github.com/repolens/repolens/domain/repository"
	"github.com/repolens/repolens/domain/task"
)

// CloneHandler clones a repository's remote into a fresh workspace
// directory and records the clone path and head commit.
type CloneHandler struct {
	repos  repository.Store
	cloner Cloner
	logger *slog.Logger
}

// NewCloneHandler creates a CloneHandler.
func NewCloneHandler(repos repository.Store, cloner Cloner, logger *slog.Logger) *CloneHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloneHandler{repos: repos, cloner: cloner, logger: logger}
}

// Handle executes one clone task.
func (h *CloneHandler) Handle(ctx context.Context, t task.Task) error {
	repo, err := loadRepository(ctx, h.repos, t)
	if err != nil {
		return err
	}

	repo, err = transition(ctx, h.repos, repo, repository.StatusCloning)
	if err != nil {
		return err
	}

	// A retry may find the clone from a previous attempt; replace it.
	if repo.ClonePath() != "" {
		h.cloner.Cleanup(repo.ClonePath())
	}

	clonePath, err := h.cloner.Clone(ctx, repo.RemoteURL(), repo.Owner(), repo.Name())
	if err != nil {
		return err
	}

	headSHA, err := h.cloner.HeadSHA(ctx, clonePath)
	if err != nil {
		h.cloner.Cleanup(clonePath)
		return err
	}

	if err := h.repos.RecordClone(ctx, repo.ID(), clonePath, headSHA); err != nil {
		h.cloner.Cleanup(clonePath)
		return err
	}

	h.logger.Info("repository cloned",
		slog.String("repository", repo.FullName()),
		slog.String("head", headSHA),
	)
	return nil
}
