package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/repolens/repolens/domain/task"
)

// sequenceOffsetStep spaces the priorities inside one enqueued sequence so
// its operations are dequeued in the prescribed order.
const sequenceOffsetStep = 10

// Queue enqueues tasks onto the persistent store.
type Queue struct {
	store  task.Store
	logger *slog.Logger
}

// NewQueue creates a Queue.
func NewQueue(store task.Store, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{store: store, logger: logger}
}

// Enqueue adds a single task. Re-submitting the same work raises the
// existing task's priority instead of duplicating it.
func (q *Queue) Enqueue(ctx context.Context, t task.Task) (task.Task, error) {
	saved, err := q.store.Save(ctx, t)
	if err != nil {
		return task.Task{}, fmt.Errorf("enqueue %s: %w", t.Operation(), err)
	}

	q.logger.Debug("task enqueued",
		slog.String("operation", saved.Operation().String()),
		slog.Int("priority", saved.Priority()),
		slog.Int64("task_id", saved.ID()),
	)
	return saved, nil
}

// EnqueueSequence adds a list of operations sharing one payload. Each
// operation gets a decreasing priority offset so the first operation is
// dequeued first and the sequence executes in order.
func (q *Queue) EnqueueSequence(ctx context.Context, priority task.Priority, operations []task.Operation, payload map[string]any) error {
	offset := sequenceOffsetStep * len(operations)
	for _, op := range operations {
		if _, err := q.Enqueue(ctx, task.NewTask(op, int(priority)+offset, payload)); err != nil {
			return err
		}
		offset -= sequenceOffsetStep
	}
	return nil
}

// Pending returns the number of unclaimed tasks.
func (q *Queue) Pending(ctx context.Context) (int64, error) {
	return q.store.CountPending(ctx)
}
