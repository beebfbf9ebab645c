package persistence

import (
	"context"
	"fmt"

	"github.com/repolens/repolens/domain/analysis"
	"github.com/repolens/repolens/domain/repository"
	"github.com/repolens/repolens/internal/database"
)

// BusFactorStore implements analysis.BusFactorStore using GORM. Snapshots
// are append-only so trend queries can compare runs over time.
type BusFactorStore struct {
	database.Repository[analysis.BusFactorMetric, BusFactorModel]
}

// NewBusFactorStore creates a new BusFactorStore.
func NewBusFactorStore(db database.Database) BusFactorStore {
	return BusFactorStore{
		Repository: database.NewRepository[analysis.BusFactorMetric, BusFactorModel](db, BusFactorMapper{}, "bus factor metric"),
	}
}

// Append inserts a new snapshot. Existing rows are never updated.
func (s BusFactorStore) Append(ctx context.Context, metric analysis.BusFactorMetric) (analysis.BusFactorMetric, error) {
	model := s.Mapper().ToModel(metric)
	model.ID = 0

	if result := s.DB(ctx).Create(&model); result.Error != nil {
		return analysis.BusFactorMetric{}, fmt.Errorf("append bus factor metric: %w", result.Error)
	}
	return s.Mapper().ToDomain(model), nil
}

// Latest returns a repository's most recent snapshot.
func (s BusFactorStore) Latest(ctx context.Context, repositoryID int64) (analysis.BusFactorMetric, error) {
	return s.FindOne(ctx,
		repository.WithRepositoryID(repositoryID),
		repository.WithOrderDesc("id"),
	)
}

// Trend returns a repository's snapshots, newest first.
func (s BusFactorStore) Trend(ctx context.Context, repositoryID int64, limit int) ([]analysis.BusFactorMetric, error) {
	options := []repository.Option{
		repository.WithRepositoryID(repositoryID),
		repository.WithOrderDesc("id"),
	}
	if limit > 0 {
		options = append(options, repository.WithLimit(limit))
	}
	return s.Find(ctx, options...)
}

// Ensure BusFactorStore implements analysis.BusFactorStore.
var _ analysis.BusFactorStore = BusFactorStore{}
