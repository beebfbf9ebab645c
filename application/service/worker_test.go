package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/domain/repository"
	"github.com/repolens/repolens/domain/task"
	"github.com/repolens/repolens/infrastructure/persistence"
	"github.com/repolens/repolens/internal/config"
	"github.com/repolens/repolens/internal/database"
)

// fakeWorkspaces records which clone directories the worker reclaimed.
type fakeWorkspaces struct {
	mu      sync.Mutex
	cleaned []string
}

func (f *fakeWorkspaces) Cleanup(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleaned = append(f.cleaned, path)
}

func (f *fakeWorkspaces) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cleaned...)
}

type workerEnv struct {
	tasks      persistence.TaskStore
	repos      persistence.RepositoryStore
	registry   *Registry
	queue      *Queue
	workspaces *fakeWorkspaces
}

func newWorkerEnv(t *testing.T) workerEnv {
	t.Helper()
	db, err := database.NewDatabase(context.Background(), "sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, persistence.AutoMigrate(db))
	t.Cleanup(func() { _ = db.Close() })

	tasks := persistence.NewTaskStore(db)
	return workerEnv{
		tasks:      tasks,
		repos:      persistence.NewRepositoryStore(db),
		registry:   NewRegistry(),
		queue:      NewQueue(tasks, nil),
		workspaces: &fakeWorkspaces{},
	}
}

func (e workerEnv) worker(t *testing.T) *Worker {
	t.Helper()
	return NewWorker(e.tasks, e.registry, e.repos, e.workspaces, config.NewLimits(), 1, nil)
}

func TestQueueEnqueueSequenceOrdersOperations(t *testing.T) {
	ctx := context.Background()
	env := newWorkerEnv(t)

	payload := map[string]any{"repository_id": int64(7)}
	require.NoError(t, env.queue.EnqueueSequence(ctx, task.PriorityUserInitiated, task.AnalyzeRepositoryOperations(), payload))

	pending, err := env.queue.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pending)

	// A claimed task blocks the rest of its repository's sequence, so each
	// one is deleted, like a worker finishing it, before the next claim.
	var order []task.Operation
	for {
		claimed, found, err := env.tasks.Dequeue(ctx)
		require.NoError(t, err)
		if !found {
			break
		}
		order = append(order, claimed.Operation())
		require.NoError(t, env.tasks.Delete(ctx, claimed))
	}
	assert.Equal(t, task.AnalyzeRepositoryOperations(), order)
}

func TestWorkerProcessOneSuccessDeletesTask(t *testing.T) {
	ctx := context.Background()
	env := newWorkerEnv(t)

	var handled []int64
	env.registry.Register(task.OperationAnalyzeRepository, HandlerFunc(func(_ context.Context, t task.Task) error {
		handled = append(handled, t.RepositoryID())
		return nil
	}))

	_, err := env.queue.Enqueue(ctx, task.NewTask(task.OperationAnalyzeRepository, int(task.PriorityNormal), map[string]any{"repository_id": int64(3)}))
	require.NoError(t, err)

	processed, err := env.worker(t).ProcessOne(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, []int64{3}, handled)

	pending, err := env.queue.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestWorkerProcessOneEmptyQueue(t *testing.T) {
	env := newWorkerEnv(t)

	processed, err := env.worker(t).ProcessOne(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestWorkerExhaustedRetriesMarkRepositoryFailed(t *testing.T) {
	ctx := context.Background()
	env := newWorkerEnv(t)

	repo, err := env.repos.Save(ctx, repository.New("acme", "widget", "https://example.com/acme/widget.git"))
	require.NoError(t, err)

	attempts := 0
	env.registry.Register(task.OperationAnalyzeRepository, HandlerFunc(func(context.Context, task.Task) error {
		attempts++
		return errors.New("disk full")
	}))

	_, err = env.queue.Enqueue(ctx, task.NewTask(task.OperationAnalyzeRepository, int(task.PriorityNormal), map[string]any{"repository_id": repo.ID()}))
	require.NoError(t, err)

	worker := env.worker(t)

	// Analyze gets 2 attempts with no backoff.
	processed, err := worker.ProcessOne(ctx)
	require.NoError(t, err)
	require.True(t, processed)
	processed, err = worker.ProcessOne(ctx)
	require.NoError(t, err)
	require.True(t, processed)

	assert.Equal(t, 2, attempts)

	pending, err := env.queue.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	failed, err := env.repos.Get(ctx, repo.ID())
	require.NoError(t, err)
	assert.Equal(t, repository.StatusFailed, failed.Status())
	assert.Equal(t, "disk full", failed.LastError())
}

func TestWorkerFailedRunCleansWorkspaceAndDropsTasks(t *testing.T) {
	ctx := context.Background()
	env := newWorkerEnv(t)

	repo, err := env.repos.Save(ctx, repository.New("acme", "widget", "https://example.com/acme/widget.git"))
	require.NoError(t, err)
	require.NoError(t, env.repos.RecordClone(ctx, repo.ID(), "/data/repos/acme_widget-ab12cd34", "deadbeef"))

	env.registry.Register(task.OperationAnalyzeRepository, HandlerFunc(func(context.Context, task.Task) error {
		return errors.New("walk failed")
	}))

	payload := map[string]any{"repository_id": repo.ID()}
	_, err = env.queue.Enqueue(ctx, task.NewTask(task.OperationAnalyzeRepository, int(task.PriorityNormal), payload))
	require.NoError(t, err)
	_, err = env.queue.Enqueue(ctx, task.NewTask(task.OperationHistoryRepository, int(task.PriorityNormal)-10, payload))
	require.NoError(t, err)

	worker := env.worker(t)
	for i := 0; i < 2; i++ {
		processed, err := worker.ProcessOne(ctx)
		require.NoError(t, err)
		require.True(t, processed)
	}

	// Exhausting analyze ends the whole run: the workspace is reclaimed,
	// the queued history task is dropped, and the stale path is cleared.
	assert.Equal(t, []string{"/data/repos/acme_widget-ab12cd34"}, env.workspaces.paths())

	pending, err := env.queue.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	failed, err := env.repos.Get(ctx, repo.ID())
	require.NoError(t, err)
	assert.Equal(t, repository.StatusFailed, failed.Status())
	assert.Empty(t, failed.ClonePath())
}

func TestWorkerPoolKeepsRepositorySequenceOrdered(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env := newWorkerEnv(t)

	repo, err := env.repos.Save(ctx, repository.New("acme", "widget", "https://example.com/acme/widget.git"))
	require.NoError(t, err)

	sequence := task.AnalyzeRepositoryOperations()

	var (
		mu      sync.Mutex
		order   []task.Operation
		running int
		overlap bool
	)
	for _, op := range sequence {
		op := op
		env.registry.Register(op, HandlerFunc(func(context.Context, task.Task) error {
			mu.Lock()
			if running > 0 {
				overlap = true
			}
			running++
			order = append(order, op)
			mu.Unlock()

			time.Sleep(20 * time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
			return nil
		}))
	}

	payload := map[string]any{"repository_id": repo.ID()}
	require.NoError(t, env.queue.EnqueueSequence(ctx, task.PriorityUserInitiated, sequence, payload))

	worker := NewWorker(env.tasks, env.registry, env.repos, env.workspaces, config.NewLimits(), 4, nil,
		WithPollInterval(10*time.Millisecond))
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		n := len(order)
		mu.Unlock()
		return n == len(sequence) && !worker.Busy()
	}, 10*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, sequence, order)
	assert.False(t, overlap, "one repository's tasks ran concurrently")
}

func TestWorkerRecoversFromHandlerPanic(t *testing.T) {
	ctx := context.Background()
	env := newWorkerEnv(t)

	repo, err := env.repos.Save(ctx, repository.New("acme", "widget", "https://example.com/acme/widget.git"))
	require.NoError(t, err)

	env.registry.Register(task.OperationHistoryRepository, HandlerFunc(func(context.Context, task.Task) error {
		panic("unexpected commit shape")
	}))

	_, err = env.queue.Enqueue(ctx, task.NewTask(task.OperationHistoryRepository, int(task.PriorityNormal), map[string]any{"repository_id": repo.ID()}))
	require.NoError(t, err)

	worker := env.worker(t)
	for i := 0; i < 2; i++ {
		processed, err := worker.ProcessOne(ctx)
		require.NoError(t, err)
		require.True(t, processed)
	}

	failed, err := env.repos.Get(ctx, repo.ID())
	require.NoError(t, err)
	assert.Equal(t, repository.StatusFailed, failed.Status())
	assert.Contains(t, failed.LastError(), "panicked")
}

func TestWorkerDropsTaskWithoutHandler(t *testing.T) {
	ctx := context.Background()
	env := newWorkerEnv(t)

	_, err := env.queue.Enqueue(ctx, task.NewTask(task.OperationCloneRepository, int(task.PriorityNormal), map[string]any{"repository_id": int64(0)}))
	require.NoError(t, err)

	processed, err := env.worker(t).ProcessOne(ctx)
	require.NoError(t, err)
	assert.True(t, processed)

	pending, err := env.queue.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}
