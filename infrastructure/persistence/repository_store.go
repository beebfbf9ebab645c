package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/repolens/repolens/domain/repository"
	"github.com/repolens/repolens/internal/database"
)

// RepositoryStore implements repository.Store using GORM.
type RepositoryStore struct {
	database.Repository[repository.Repository, RepositoryModel]
}

// NewRepositoryStore creates a new RepositoryStore.
func NewRepositoryStore(db database.Database) RepositoryStore {
	return RepositoryStore{
		Repository: database.NewRepository[repository.Repository, RepositoryModel](db, RepositoryMapper{}, "repository"),
	}
}

// Save creates or updates a repository, returning it with its ID set.
func (s RepositoryStore) Save(ctx context.Context, repo repository.Repository) (repository.Repository, error) {
	model := s.Mapper().ToModel(repo)
	model.UpdatedAt = time.Now().UTC()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = model.UpdatedAt
	}

	if result := s.DB(ctx).Save(&model); result.Error != nil {
		return repository.Repository{}, fmt.Errorf("save repository: %w", result.Error)
	}
	return s.Mapper().ToDomain(model), nil
}

// Get returns a repository by ID.
func (s RepositoryStore) Get(ctx context.Context, id int64) (repository.Repository, error) {
	return s.FindOne(ctx, repository.WithID(id))
}

// GetByOwnerAndName returns a repository by its owner/name pair.
func (s RepositoryStore) GetByOwnerAndName(ctx context.Context, owner, name string) (repository.Repository, error) {
	return s.FindOne(ctx, repository.WithOwnerAndName(owner, name))
}

// UpdateStatus writes only the status column. Entering any non-failed
// status clears the last error, mirroring the aggregate's transition rule.
func (s RepositoryStore) UpdateStatus(ctx context.Context, id int64, status repository.AnalysisStatus) error {
	fields := map[string]any{"status": string(status)}
	if status != repository.StatusFailed {
		fields["last_error"] = ""
	}
	return s.update(ctx, id, fields)
}

// RecordClone writes only the clone path and head commit.
func (s RepositoryStore) RecordClone(ctx context.Context, id int64, clonePath, headSHA string) error {
	return s.update(ctx, id, map[string]any{
		"clone_path": clonePath,
		"head_sha":   headSHA,
	})
}

// RecordAnalysis writes only the ingestion aggregates.
func (s RepositoryStore) RecordAnalysis(ctx context.Context, id int64, language string, sizeBytes int64, riskScore int) error {
	return s.update(ctx, id, map[string]any{
		"language":   language,
		"size_bytes": sizeBytes,
		"risk_score": riskScore,
	})
}

// RecordFailure marks the repository failed and clears the clone path.
func (s RepositoryStore) RecordFailure(ctx context.Context, id int64, message string) error {
	return s.update(ctx, id, map[string]any{
		"status":     string(repository.StatusFailed),
		"last_error": message,
		"clone_path": "",
	})
}

func (s RepositoryStore) update(ctx context.Context, id int64, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC()
	result := s.DB(ctx).Model(&RepositoryModel{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("update repository %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: repository", database.ErrNotFound)
	}
	return nil
}

// Delete purges a repository record. Child rows are removed by the purge
// service through their own stores.
func (s RepositoryStore) Delete(ctx context.Context, repo repository.Repository) error {
	if result := s.DB(ctx).Where("id = ?", repo.ID()).Delete(&RepositoryModel{}); result.Error != nil {
		return fmt.Errorf("delete repository: %w", result.Error)
	}
	return nil
}

// Ensure RepositoryStore implements repository.Store.
var _ repository.Store = RepositoryStore{}
