package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/repolens/repolens/domain/repository"
	"github.com/repolens/repolens/domain/task"
	"github.com/repolens/repolens/internal/database"
)

// RepositoryService registers repositories and schedules analysis runs.
type RepositoryService struct {
	repos  repository.Store
	queue  *Queue
	logger *slog.Logger
}

// NewRepositoryService creates a RepositoryService.
func NewRepositoryService(repos repository.Store, queue *Queue, logger *slog.Logger) *RepositoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepositoryService{repos: repos, queue: queue, logger: logger}
}

// Submit registers a repository (or finds the existing record for the same
// owner/name) and enqueues the full clone → analyze → history sequence.
// Re-submitting while a run is in progress raises the pending tasks'
// priority instead of starting a second run.
func (s *RepositoryService) Submit(ctx context.Context, owner, name, remoteURL string) (repository.Repository, error) {
	repo, err := s.repos.GetByOwnerAndName(ctx, owner, name)
	switch {
	case errors.Is(err, database.ErrNotFound):
		repo, err = s.repos.Save(ctx, repository.New(owner, name, remoteURL))
		if err != nil {
			return repository.Repository{}, err
		}
	case err != nil:
		return repository.Repository{}, err
	}

	if !repo.Status().IsInProgress() {
		queued, err := repo.WithStatus(repository.StatusQueued)
		if err != nil {
			return repository.Repository{}, err
		}
		repo, err = s.repos.Save(ctx, queued)
		if err != nil {
			return repository.Repository{}, err
		}
	}

	payload := map[string]any{"repository_id": repo.ID()}
	if err := s.queue.EnqueueSequence(ctx, task.PriorityUserInitiated, task.AnalyzeRepositoryOperations(), payload); err != nil {
		return repository.Repository{}, err
	}

	s.logger.Info("analysis scheduled",
		slog.String("repository", repo.FullName()),
		slog.Int64("repository_id", repo.ID()),
	)
	return repo, nil
}

// Get returns one repository by ID.
func (s *RepositoryService) Get(ctx context.Context, id int64) (repository.Repository, error) {
	return s.repos.Get(ctx, id)
}

// List returns all known repositories.
func (s *RepositoryService) List(ctx context.Context) ([]repository.Repository, error) {
	return s.repos.Find(ctx)
}

// ParseRemoteURL derives the owner/name pair from a git remote URL such as
// https://host/owner/name.git or git@host:owner/name.git.
func ParseRemoteURL(remoteURL string) (owner, name string, err error) {
	trimmed := strings.TrimSuffix(remoteURL, ".git")

	// SCP-like syntax has no scheme; everything after the colon is the path.
	if !strings.Contains(trimmed, "://") {
		if _, after, found := strings.Cut(trimmed, ":"); found {
			return repository.ParseRef(after)
		}
		return "", "", fmt.Errorf("unrecognized remote URL %q", remoteURL)
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", "", fmt.Errorf("parse remote URL %q: %w", remoteURL, err)
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("remote URL %q has no owner/name path", remoteURL)
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}
