package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/repolens/repolens/domain/analysis"
	"github.com/repolens/repolens/domain/repository"
	"github.com/repolens/repolens/internal/database"
)

// insertBatchSize bounds multi-row inserts for entities and findings.
const insertBatchSize = 500

// EntityStore implements analysis.EntityStore using GORM. Entities are
// insert-only; re-analysis clears a repository's rows first.
type EntityStore struct {
	database.Repository[analysis.CodeEntity, EntityModel]
}

// NewEntityStore creates a new EntityStore.
func NewEntityStore(db database.Database) EntityStore {
	return EntityStore{
		Repository: database.NewRepository[analysis.CodeEntity, EntityModel](db, EntityMapper{}, "code entity"),
	}
}

// SaveAll inserts a batch of entities.
func (s EntityStore) SaveAll(ctx context.Context, entities []analysis.CodeEntity) ([]analysis.CodeEntity, error) {
	if len(entities) == 0 {
		return []analysis.CodeEntity{}, nil
	}

	now := time.Now().UTC()
	models := make([]EntityModel, len(entities))
	for i, e := range entities {
		models[i] = s.Mapper().ToModel(e)
		models[i].CreatedAt = now
	}

	if result := s.DB(ctx).CreateInBatches(&models, insertBatchSize); result.Error != nil {
		return nil, fmt.Errorf("save code entities: %w", result.Error)
	}

	saved := make([]analysis.CodeEntity, len(models))
	for i, m := range models {
		saved[i] = s.Mapper().ToDomain(m)
	}
	return saved, nil
}

// FindByRepository returns a repository's entities ordered by file and
// position.
func (s EntityStore) FindByRepository(ctx context.Context, repositoryID int64) ([]analysis.CodeEntity, error) {
	return s.Find(ctx,
		repository.WithRepositoryID(repositoryID),
		repository.WithOrderAsc("file_path"),
		repository.WithOrderAsc("start_line"),
	)
}

// CountByRepository counts a repository's entities.
func (s EntityStore) CountByRepository(ctx context.Context, repositoryID int64) (int64, error) {
	return s.Count(ctx, repository.WithRepositoryID(repositoryID))
}

// DeleteByRepository removes all of a repository's entities.
func (s EntityStore) DeleteByRepository(ctx context.Context, repositoryID int64) error {
	return s.DeleteBy(ctx, repository.WithRepositoryID(repositoryID))
}

// Ensure EntityStore implements analysis.EntityStore.
var _ analysis.EntityStore = EntityStore{}
