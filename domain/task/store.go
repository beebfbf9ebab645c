package task

import "context"

// Store defines persistence for queued tasks.
type Store interface {
	// Save inserts a task; when a pending task with the same dedup key
	// exists, its priority is updated instead.
	Save(ctx context.Context, t Task) (Task, error)

	// Dequeue atomically claims the highest-priority pending task.
	// found is false when the queue is empty.
	Dequeue(ctx context.Context) (t Task, found bool, err error)

	// Requeue puts a claimed task back with its attempt counter advanced.
	Requeue(ctx context.Context, t Task) error

	// Delete removes a task from the queue.
	Delete(ctx context.Context, t Task) error

	// DeleteByRepository removes a repository's unclaimed tasks, ending
	// the rest of its run.
	DeleteByRepository(ctx context.Context, repositoryID int64) error

	// CountPending returns the number of pending tasks.
	CountPending(ctx context.Context) (int64, error)
}
