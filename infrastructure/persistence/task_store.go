package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/repolens/repolens/domain/repository"
	"github.com/repolens/repolens/domain/task"
	"github.com/repolens/repolens/internal/database"
)

// TaskStore implements task.Store using GORM. Tasks are claimed by setting
// claimed_at inside a transaction; Requeue clears the claim with the
// attempt counter advanced, Delete removes the row for good.
type TaskStore struct {
	database.Repository[task.Task, TaskModel]
	db database.Database
}

// NewTaskStore creates a new TaskStore.
func NewTaskStore(db database.Database) TaskStore {
	return TaskStore{
		Repository: database.NewRepository[task.Task, TaskModel](db, TaskMapper{}, "task"),
		db:         db,
	}
}

// Save inserts a task. When a pending task with the same dedup key already
// exists, only its priority is raised.
func (s TaskStore) Save(ctx context.Context, t task.Task) (task.Task, error) {
	model := s.Mapper().ToModel(t)
	now := time.Now().UTC()
	model.CreatedAt = now
	model.UpdatedAt = now

	result := s.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"priority", "updated_at"}),
	}).Create(&model)
	if result.Error != nil {
		return task.Task{}, fmt.Errorf("save task: %w", result.Error)
	}

	return s.FindOne(ctx, repository.WithCondition("dedup_key", model.DedupKey))
}

// Dequeue atomically claims the highest-priority unclaimed task. Tasks of
// a repository that already has a claimed task are skipped, so one
// repository's operations never run concurrently and the priority-ordered
// sequence holds under a multi-goroutine worker pool. found is false when
// no claimable task exists.
func (s TaskStore) Dequeue(ctx context.Context) (task.Task, bool, error) {
	var model TaskModel

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		busy := tx.Model(&TaskModel{}).
			Select("repository_id").
			Where("claimed_at IS NOT NULL").
			Where("repository_id <> 0")

		q := tx.Where("claimed_at IS NULL").
			Where("(repository_id = 0 OR repository_id NOT IN (?))", busy).
			Order("priority DESC").
			Order("id ASC")
		if s.db.IsPostgres() {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := q.First(&model).Error; err != nil {
			return err
		}

		return tx.Model(&TaskModel{}).
			Where("id = ?", model.ID).
			Update("claimed_at", time.Now().UTC()).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return task.Task{}, false, nil
	}
	if err != nil {
		return task.Task{}, false, fmt.Errorf("dequeue task: %w", err)
	}

	return s.Mapper().ToDomain(model), true, nil
}

// Requeue puts a claimed task back with its attempt counter advanced.
func (s TaskStore) Requeue(ctx context.Context, t task.Task) error {
	result := s.DB(ctx).Model(&TaskModel{}).
		Where("id = ?", t.ID()).
		Updates(map[string]any{
			"claimed_at": nil,
			"attempt":    t.Attempt(),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("requeue task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: task", database.ErrNotFound)
	}
	return nil
}

// Delete removes a task from the queue.
func (s TaskStore) Delete(ctx context.Context, t task.Task) error {
	if result := s.DB(ctx).Where("id = ?", t.ID()).Delete(&TaskModel{}); result.Error != nil {
		return fmt.Errorf("delete task: %w", result.Error)
	}
	return nil
}

// DeleteByRepository removes a repository's unclaimed tasks. Claimed rows
// stay; the worker holding the claim deletes them itself.
func (s TaskStore) DeleteByRepository(ctx context.Context, repositoryID int64) error {
	result := s.DB(ctx).
		Where("repository_id = ?", repositoryID).
		Where("claimed_at IS NULL").
		Delete(&TaskModel{})
	if result.Error != nil {
		return fmt.Errorf("delete tasks for repository %d: %w", repositoryID, result.Error)
	}
	return nil
}

// CountPending returns the number of unclaimed tasks.
func (s TaskStore) CountPending(ctx context.Context) (int64, error) {
	var count int64
	result := s.DB(ctx).Model(&TaskModel{}).
		Where("claimed_at IS NULL").
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("count pending tasks: %w", result.Error)
	}
	return count, nil
}

// Ensure TaskStore implements task.Store.
var _ task.Store = TaskStore{}
