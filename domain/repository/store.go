package repository

import "context"

// Store defines persistence operations for repositories.
type Store interface {
	// Save creates or updates a repository, returning it with its ID set.
	Save(ctx context.Context, repo Repository) (Repository, error)

	// Get returns a repository by ID.
	Get(ctx context.Context, id int64) (Repository, error)

	// GetByOwnerAndName returns a repository by its owner/name pair.
	GetByOwnerAndName(ctx context.Context, owner, name string) (Repository, error)

	// Find returns repositories matching the given options.
	Find(ctx context.Context, options ...Option) ([]Repository, error)

	// UpdateStatus writes only the status column (clearing the last error
	// for non-failed statuses), leaving concurrent writers' fields alone.
	UpdateStatus(ctx context.Context, id int64, status AnalysisStatus) error

	// RecordClone writes only the clone path and head commit.
	RecordClone(ctx context.Context, id int64, clonePath, headSHA string) error

	// RecordAnalysis writes only the ingestion aggregates.
	RecordAnalysis(ctx context.Context, id int64, language string, sizeBytes int64, riskScore int) error

	// RecordFailure marks the repository failed with the given message and
	// clears the clone path; the workspace is gone by then.
	RecordFailure(ctx context.Context, id int64, message string) error

	// Delete purges a repository record.
	Delete(ctx context.Context, repo Repository) error
}
