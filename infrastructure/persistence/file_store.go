package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/repolens/repolens/domain/analysis"
	"github.com/repolens/repolens/domain/repository"
	"github.com/repolens/repolens/internal/database"
)

// FileStore implements analysis.FileStore using GORM. Saves upsert on the
// (repository_id, path) key so a file record is fully replaced or left
// untouched, never partially written.
type FileStore struct {
	database.Repository[analysis.SourceFile, FileModel]
}

// NewFileStore creates a new FileStore.
func NewFileStore(db database.Database) FileStore {
	return FileStore{
		Repository: database.NewRepository[analysis.SourceFile, FileModel](db, FileMapper{}, "source file"),
	}
}

// upsertOnRepoPath replaces all content columns when the key collides.
var upsertOnRepoPath = clause.OnConflict{
	Columns: []clause.Column{{Name: "repository_id"}, {Name: "path"}},
	DoUpdates: clause.AssignmentColumns([]string{
		"content", "language", "line_count", "size_bytes", "imports", "modified_at", "updated_at",
	}),
}

// Save upserts a single file.
func (s FileStore) Save(ctx context.Context, file analysis.SourceFile) (analysis.SourceFile, error) {
	model := s.Mapper().ToModel(file)
	now := time.Now().UTC()
	model.CreatedAt = now
	model.UpdatedAt = now

	if result := s.DB(ctx).Clauses(upsertOnRepoPath).Create(&model); result.Error != nil {
		return analysis.SourceFile{}, fmt.Errorf("save source file: %w", result.Error)
	}
	return s.reload(ctx, model.RepositoryID, model.Path)
}

// SaveAll upserts a batch of files.
func (s FileStore) SaveAll(ctx context.Context, files []analysis.SourceFile) ([]analysis.SourceFile, error) {
	if len(files) == 0 {
		return []analysis.SourceFile{}, nil
	}

	now := time.Now().UTC()
	models := make([]FileModel, len(files))
	for i, f := range files {
		models[i] = s.Mapper().ToModel(f)
		models[i].CreatedAt = now
		models[i].UpdatedAt = now
	}

	if result := s.DB(ctx).Clauses(upsertOnRepoPath).Create(&models); result.Error != nil {
		return nil, fmt.Errorf("save source files: %w", result.Error)
	}

	saved := make([]analysis.SourceFile, 0, len(models))
	for _, m := range models {
		file, err := s.reload(ctx, m.RepositoryID, m.Path)
		if err != nil {
			return nil, err
		}
		saved = append(saved, file)
	}
	return saved, nil
}

// FindByRepository returns a repository's stored files ordered by path.
func (s FileStore) FindByRepository(ctx context.Context, repositoryID int64) ([]analysis.SourceFile, error) {
	return s.Find(ctx,
		repository.WithRepositoryID(repositoryID),
		repository.WithOrderAsc("path"),
	)
}

// GetByPath returns one file by its (repository, path) key.
func (s FileStore) GetByPath(ctx context.Context, repositoryID int64, path string) (analysis.SourceFile, error) {
	return s.FindOne(ctx,
		repository.WithRepositoryID(repositoryID),
		repository.WithPath(path),
	)
}

// DeleteByRepository removes all of a repository's file records.
func (s FileStore) DeleteByRepository(ctx context.Context, repositoryID int64) error {
	return s.DeleteBy(ctx, repository.WithRepositoryID(repositoryID))
}

// reload reads a row back after an upsert so the caller always gets the
// stored ID, including on conflict updates where GORM leaves it unset.
func (s FileStore) reload(ctx context.Context, repositoryID int64, path string) (analysis.SourceFile, error) {
	return s.GetByPath(ctx, repositoryID, path)
}

// Ensure FileStore implements analysis.FileStore.
var _ analysis.FileStore = FileStore{}
