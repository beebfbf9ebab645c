package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/repolens/repolens/domain/analysis"
	"github.com/repolens/repolens/domain/repository"
	"github.com/repolens/repolens/internal/database"
)

// FindingStore implements analysis.FindingStore using GORM. Finding content
// is insert-only; only the reviewer status column is ever updated.
type FindingStore struct {
	database.Repository[analysis.SecurityFinding, FindingModel]
}

// NewFindingStore creates a new FindingStore.
func NewFindingStore(db database.Database) FindingStore {
	return FindingStore{
		Repository: database.NewRepository[analysis.SecurityFinding, FindingModel](db, FindingMapper{}, "security finding"),
	}
}

// SaveAll inserts a batch of findings.
func (s FindingStore) SaveAll(ctx context.Context, findings []analysis.SecurityFinding) ([]analysis.SecurityFinding, error) {
	if len(findings) == 0 {
		return []analysis.SecurityFinding{}, nil
	}

	now := time.Now().UTC()
	models := make([]FindingModel, len(findings))
	for i, f := range findings {
		models[i] = s.Mapper().ToModel(f)
		models[i].CreatedAt = now
	}

	if result := s.DB(ctx).CreateInBatches(&models, insertBatchSize); result.Error != nil {
		return nil, fmt.Errorf("save security findings: %w", result.Error)
	}

	saved := make([]analysis.SecurityFinding, len(models))
	for i, m := range models {
		saved[i] = s.Mapper().ToDomain(m)
	}
	return saved, nil
}

// FindByRepository returns a repository's findings ordered by file and line.
func (s FindingStore) FindByRepository(ctx context.Context, repositoryID int64) ([]analysis.SecurityFinding, error) {
	return s.Find(ctx,
		repository.WithRepositoryID(repositoryID),
		repository.WithOrderAsc("file_path"),
		repository.WithOrderAsc("line_number"),
	)
}

// CountByRepository counts a repository's findings.
func (s FindingStore) CountByRepository(ctx context.Context, repositoryID int64) (int64, error) {
	return s.Count(ctx, repository.WithRepositoryID(repositoryID))
}

// UpdateStatus records a reviewer verdict on one finding.
func (s FindingStore) UpdateStatus(ctx context.Context, findingID int64, status analysis.FindingStatus) error {
	result := s.DB(ctx).Model(&FindingModel{}).
		Where("id = ?", findingID).
		Update("status", string(status))
	if result.Error != nil {
		return fmt.Errorf("update finding status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: security finding", database.ErrNotFound)
	}
	return nil
}

// DeleteByRepository removes all of a repository's findings.
func (s FindingStore) DeleteByRepository(ctx context.Context, repositoryID int64) error {
	return s.DeleteBy(ctx, repository.WithRepositoryID(repositoryID))
}

// Ensure FindingStore implements analysis.FindingStore.
var _ analysis.FindingStore = FindingStore{}
