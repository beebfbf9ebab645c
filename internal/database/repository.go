package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/repolens/repolens/domain/repository"
	"gorm.io/gorm"
)

// ErrNotFound indicates the requested entity was not found.
var ErrNotFound = errors.New("entity not found")

// EntityMapper maps between domain and database model types.
type EntityMapper[D any, E any] interface {
	ToDomain(entity E) D
	ToModel(domain D) E
}

// Repository provides generic persistence operations for one model type,
// queried through repository.Option builders. Stores embed it and add
// type-specific operations on top.
type Repository[D any, E any] struct {
	db     Database
	mapper EntityMapper[D, E]
	label  string
}

// NewRepository creates a Repository. The label names the entity in error
// messages.
func NewRepository[D any, E any](db Database, mapper EntityMapper[D, E], label string) Repository[D, E] {
	return Repository[D, E]{db: db, mapper: mapper, label: label}
}

// Find retrieves all entities matching the options, mapped to domain values.
func (r Repository[D, E]) Find(ctx context.Context, options ...repository.Option) ([]D, error) {
	var models []E
	session := ApplyOptions(r.db.Session(ctx).Model(new(E)), options...)
	if err := session.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("find %s: %w", r.label, err)
	}
	return r.toDomain(models), nil
}

// FindOne retrieves the first entity matching the options, or ErrNotFound.
func (r Repository[D, E]) FindOne(ctx context.Context, options ...repository.Option) (D, error) {
	var (
		model E
		zero  D
	)
	session := ApplyOptions(r.db.Session(ctx), options...)
	err := session.First(&model).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return zero, fmt.Errorf("%w: %s", ErrNotFound, r.label)
	case err != nil:
		return zero, fmt.Errorf("find one %s: %w", r.label, err)
	}
	return r.mapper.ToDomain(model), nil
}

// Count returns the number of entities matching the options.
func (r Repository[D, E]) Count(ctx context.Context, options ...repository.Option) (int64, error) {
	var count int64
	session := ApplyConditions(r.db.Session(ctx).Model(new(E)), options...)
	if err := session.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", r.label, err)
	}
	return count, nil
}

// Exists reports whether any entity matches the options.
func (r Repository[D, E]) Exists(ctx context.Context, options ...repository.Option) (bool, error) {
	count, err := r.Count(ctx, options...)
	return count > 0, err
}

// DeleteBy removes all entities matching the options.
func (r Repository[D, E]) DeleteBy(ctx context.Context, options ...repository.Option) error {
	session := ApplyConditions(r.db.Session(ctx), options...)
	if err := session.Delete(new(E)).Error; err != nil {
		return fmt.Errorf("delete %s: %w", r.label, err)
	}
	return nil
}

// DB returns a context-scoped GORM session for store-specific queries.
func (r Repository[D, E]) DB(ctx context.Context) *gorm.DB {
	return r.db.Session(ctx)
}

// Mapper returns the entity mapper.
func (r Repository[D, E]) Mapper() EntityMapper[D, E] {
	return r.mapper
}

func (r Repository[D, E]) toDomain(models []E) []D {
	domains := make([]D, len(models))
	for i, model := range models {
		domains[i] = r.mapper.ToDomain(model)
	}
	return domains
}
