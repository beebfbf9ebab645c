// Package task models the persistent work queue: operations, priorities,
// and the retry-carrying task value.
package task

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Priority represents task queue priority levels. Values are spaced far
// apart so sequence offsets never cause a lower level to exceed a higher one.
type Priority int

// Priority values.
const (
	PriorityBackground    Priority = 1000
	PriorityNormal        Priority = 2000
	PriorityUserInitiated Priority = 5000
)

// Task is one unit of queued work. A stored row means the work is still
// owed; finished tasks are deleted rather than marked.
type Task struct {
	id        int64
	dedupKey  string
	operation Operation
	priority  int
	attempt   int
	payload   map[string]any
	createdAt time.Time
	updatedAt time.Time
}

// NewTask creates a Task for one operation. The dedup key is derived from
// the operation and target so re-submitting the same work raises the
// existing row's priority instead of duplicating it.
func NewTask(operation Operation, priority int, payload map[string]any) Task {
	p := copyPayload(payload)
	return Task{
		dedupKey:  createDedupKey(operation, p),
		operation: operation,
		priority:  priority,
		payload:   p,
	}
}

// Reconstruct builds a Task from stored fields.
func Reconstruct(
	id int64,
	dedupKey string,
	operation Operation,
	priority, attempt int,
	payload map[string]any,
	createdAt, updatedAt time.Time,
) Task {
	return Task{
		id:        id,
		dedupKey:  dedupKey,
		operation: operation,
		priority:  priority,
		attempt:   attempt,
		payload:   copyPayload(payload),
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the stored row ID.
func (t Task) ID() int64 { return t.id }

// DedupKey returns the key that collapses duplicate submissions.
func (t Task) DedupKey() string { return t.dedupKey }

// Operation returns the operation this task performs.
func (t Task) Operation() Operation { return t.operation }

// Priority returns the dequeue priority (higher first).
func (t Task) Priority() int { return t.priority }

// Attempt returns how many times the task has been tried.
func (t Task) Attempt() int { return t.attempt }

// Payload returns a copy of the payload map.
func (t Task) Payload() map[string]any { return copyPayload(t.payload) }

// CreatedAt returns when the task was first enqueued.
func (t Task) CreatedAt() time.Time { return t.createdAt }

// UpdatedAt returns when the task row last changed.
func (t Task) UpdatedAt() time.Time { return t.updatedAt }

// WithID returns a copy carrying the stored row ID.
func (t Task) WithID(id int64) Task {
	t.id = id
	return t
}

// NextAttempt returns a copy with the attempt counter incremented.
func (t Task) NextAttempt() Task {
	t.attempt++
	t.updatedAt = time.Now().UTC()
	return t
}

// RepositoryID extracts the repository_id payload value, 0 if absent.
func (t Task) RepositoryID() int64 {
	val, ok := t.payload["repository_id"]
	if !ok {
		return 0
	}
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// PayloadJSON serializes the payload for storage.
func (t Task) PayloadJSON() ([]byte, error) {
	return json.Marshal(t.payload)
}

// createDedupKey renders "{operation}:{repository_id}", the identity of
// one piece of work.
func createDedupKey(operation Operation, payload map[string]any) string {
	return fmt.Sprintf("%s:%v", operation, payload["repository_id"])
}

func copyPayload(payload map[string]any) map[string]any {
	if payload == nil {
		return make(map[string]any)
	}
	result := make(map[string]any, len(payload))
	maps.Copy(result, payload)
	return result
}
