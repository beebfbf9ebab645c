// Package handler implements the task handlers behind each queue
// operation: clone, analyze, and history.
package handler

import (
	"context"
	"fmt"

	"github.com/repolens/repolens/domain/analysis"
	"github.com/repolens/repolens/domain/repository"
	"github.com/repolens/repolens/domain/task"
)

// Cloner is the clone-workspace surface the handlers need.
type Cloner interface {
	Clone(ctx context.Context, remoteURL, owner, name string) (string, error)
	HeadSHA(ctx context.Context, clonePath string) (string, error)
	CommitLog(ctx context.Context, clonePath string) (string, error)
	Cleanup(clonePath string)
}

// Ingestor runs the analysis pipeline over a cloned repository.
type Ingestor interface {
	Run(ctx context.Context, repo repository.Repository) (repository.Repository, error)
}

// HistoryAnalyzer turns a raw commit log into a bus-factor metric.
type HistoryAnalyzer interface {
	Analyze(repositoryID int64, commitLog string) analysis.BusFactorMetric
}

// loadRepository resolves the task's repository or fails the task.
func loadRepository(ctx context.Context, repos repository.Store, t task.Task) (repository.Repository, error) {
	repositoryID := t.RepositoryID()
	if repositoryID == 0 {
		return repository.Repository{}, fmt.Errorf("task %s has no repository_id", t.Operation())
	}
	return repos.Get(ctx, repositoryID)
}

// transition moves a repository to the given status, persisting only the
// status field so a handler never clobbers columns written since it loaded
// the aggregate. Already being there (a retry re-entering the handler) is
// not an error.
func transition(ctx context.Context, repos repository.Store, repo repository.Repository, status repository.AnalysisStatus) (repository.Repository, error) {
	if repo.Status() == status {
		return repo, nil
	}
	next, err := repo.WithStatus(status)
	if err != nil {
		return repo, err
	}
	if err := repos.UpdateStatus(ctx, next.ID(), status); err != nil {
		return repo, err
	}
	return next, nil
}
