package analysis

import "context"

// FileStore defines persistence for source files.
// Save has upsert semantics keyed by (repository, path): a file record is
// fully replaced or untouched, never partially written.
type FileStore interface {
	Save(ctx context.Context, file SourceFile) (SourceFile, error)
	SaveAll(ctx context.Context, files []SourceFile) ([]SourceFile, error)
	FindByRepository(ctx context.Context, repositoryID int64) ([]SourceFile, error)
	GetByPath(ctx context.Context, repositoryID int64, path string) (SourceFile, error)
	DeleteByRepository(ctx context.Context, repositoryID int64) error
}

// EntityStore defines persistence for extracted code entities.
// Each analysis pass clears a repository's entities before inserting new
// ones so re-analysis never accumulates duplicates.
type EntityStore interface {
	SaveAll(ctx context.Context, entities []CodeEntity) ([]CodeEntity, error)
	FindByRepository(ctx context.Context, repositoryID int64) ([]CodeEntity, error)
	CountByRepository(ctx context.Context, repositoryID int64) (int64, error)
	DeleteByRepository(ctx context.Context, repositoryID int64) error
}

// FindingStore defines persistence for security findings.
// Same clear-before-write discipline as EntityStore.
type FindingStore interface {
	SaveAll(ctx context.Context, findings []SecurityFinding) ([]SecurityFinding, error)
	FindByRepository(ctx context.Context, repositoryID int64) ([]SecurityFinding, error)
	CountByRepository(ctx context.Context, repositoryID int64) (int64, error)
	UpdateStatus(ctx context.Context, findingID int64, status FindingStatus) error
	DeleteByRepository(ctx context.Context, repositoryID int64) error
}

// BusFactorStore defines append-only persistence for bus-factor snapshots.
type BusFactorStore interface {
	Append(ctx context.Context, metric BusFactorMetric) (BusFactorMetric, error)
	Latest(ctx context.Context, repositoryID int64) (BusFactorMetric, error)
	Trend(ctx context.Context, repositoryID int64, limit int) ([]BusFactorMetric, error)
}
