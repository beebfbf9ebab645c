package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/repolens/repolens/domain/repository"
	"github.com/repolens/repolens/domain/task"
	"github.com/repolens/repolens/internal/config"
)

// defaultPollInterval is how often an idle worker checks for tasks.
const defaultPollInterval = time.Second

// cloneBackoffBase is the first retry delay for clone jobs; it doubles per
// attempt. Analysis jobs retry without delay.
const cloneBackoffBase = time.Second

// Handler processes one task. A returned error counts against the
// operation's retry budget.
type Handler interface {
	Handle(ctx context.Context, t task.Task) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, t task.Task) error

// Handle calls the function.
func (f HandlerFunc) Handle(ctx context.Context, t task.Task) error { return f(ctx, t) }

// Workspaces removes clone directories. The worker uses it to reclaim the
// workspace of any run that terminates in failure.
type Workspaces interface {
	Cleanup(clonePath string)
}

// Registry maps operations to their handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[task.Operation]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[task.Operation]Handler)}
}

// Register binds a handler to an operation, replacing any previous binding.
func (r *Registry) Register(op task.Operation, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[op] = h
}

// Get returns the handler for an operation.
func (r *Registry) Get(op task.Operation) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[op]
	return h, ok
}

// Worker drains the task queue. Concurrency is bounded per operation kind
// (clone jobs and analysis jobs have independent ceilings), every job runs
// under a wall-clock deadline, panics are recovered, and failures are
// retried up to the operation's budget before the repository is marked
// failed. One repository's tasks never overlap: the store refuses to hand
// out a task while another task of the same repository is claimed, which
// keeps the clone, analyze, history order intact across pool goroutines.
type Worker struct {
	store        task.Store
	registry     *Registry
	repos        repository.Store
	workspaces   Workspaces
	limits       config.Limits
	workerCount  int
	pollInterval time.Duration
	semaphores   map[task.Kind]*semaphore.Weighted
	inFlight     atomic.Int64
	logger       *slog.Logger
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithPollInterval overrides the idle poll interval.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// NewWorker creates a Worker with per-kind concurrency ceilings taken from
// the limits.
func NewWorker(
	store task.Store,
	registry *Registry,
	repos repository.Store,
	workspaces Workspaces,
	limits config.Limits,
	workerCount int,
	logger *slog.Logger,
	opts ...WorkerOption,
) *Worker {
	if workerCount < 1 {
		workerCount = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &Worker{
		store:        store,
		registry:     registry,
		repos:        repos,
		workspaces:   workspaces,
		limits:       limits,
		workerCount:  workerCount,
		pollInterval: defaultPollInterval,
		semaphores: map[task.Kind]*semaphore.Weighted{
			task.KindClone:    semaphore.NewWeighted(int64(limits.MaxConcurrentClones())),
			task.KindAnalysis: semaphore.NewWeighted(int64(limits.MaxConcurrentAnalyses())),
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start runs the worker pool until the context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.poll(ctx, id)
		}(i)
	}
	wg.Wait()
}

// poll is one worker goroutine's loop: drain the queue, then sleep until
// the next tick.
func (w *Worker) poll(ctx context.Context, id int) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		for {
			processed, err := w.ProcessOne(ctx)
			if err != nil {
				w.logger.Error("task processing error",
					slog.Int("worker", id),
					slog.String("error", err.Error()),
				)
				break
			}
			if !processed {
				break
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessOne claims and executes a single task. It reports whether a task
// was available; handler failures are consumed by the retry policy and do
// not surface as errors.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	t, found, err := w.store.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	w.inFlight.Add(1)
	defer w.inFlight.Add(-1)

	w.process(ctx, t)
	return true, nil
}

// Busy reports whether any task is currently executing.
func (w *Worker) Busy() bool {
	return w.inFlight.Load() > 0
}

func (w *Worker) process(ctx context.Context, t task.Task) {
	logger := w.logger.With(
		slog.Int64("task_id", t.ID()),
		slog.String("operation", t.Operation().String()),
		slog.Int("attempt", t.Attempt()+1),
	)

	handler, ok := w.registry.Get(t.Operation())
	if !ok {
		logger.Error("no handler registered, dropping task")
		w.finish(ctx, t, fmt.Errorf("no handler for operation %s", t.Operation()))
		return
	}

	sem := w.semaphores[t.Operation().Kind()]
	if err := sem.Acquire(ctx, 1); err != nil {
		// Shutting down: release the claim so another worker picks it up.
		_ = w.store.Requeue(context.WithoutCancel(ctx), t)
		return
	}
	defer sem.Release(1)

	jobCtx, cancel := context.WithTimeout(ctx, w.timeout(t.Operation()))
	defer cancel()

	start := time.Now()
	err := executeWithRecovery(jobCtx, handler, t)
	if err == nil {
		logger.Info("task completed", slog.Duration("elapsed", time.Since(start)))
		if deleteErr := w.store.Delete(ctx, t); deleteErr != nil {
			logger.Error("completed task could not be deleted", slog.String("error", deleteErr.Error()))
		}
		return
	}

	logger.Warn("task failed",
		slog.Duration("elapsed", time.Since(start)),
		slog.String("error", err.Error()),
	)

	next := t.NextAttempt()
	if next.Attempt() < t.Operation().MaxAttempts() {
		w.waitBackoff(ctx, t.Operation(), next.Attempt())
		if requeueErr := w.store.Requeue(ctx, next); requeueErr != nil {
			logger.Error("task could not be requeued", slog.String("error", requeueErr.Error()))
		}
		return
	}

	w.finish(ctx, t, err)
}

// finish removes a task whose retries are exhausted, marks its repository
// failed with the last error message, and ends the rest of the run: the
// repository's remaining queued tasks are dropped and its clone workspace
// removed.
func (w *Worker) finish(ctx context.Context, t task.Task, cause error) {
	if repositoryID := t.RepositoryID(); repositoryID != 0 {
		w.markFailed(ctx, repositoryID, cause)
		if err := w.store.DeleteByRepository(ctx, repositoryID); err != nil {
			w.logger.Error("failed run's tasks could not be dropped",
				slog.Int64("repository_id", repositoryID),
				slog.String("error", err.Error()),
			)
		}
	}
	if err := w.store.Delete(ctx, t); err != nil {
		w.logger.Error("exhausted task could not be deleted",
			slog.Int64("task_id", t.ID()),
			slog.String("error", err.Error()),
		)
	}
}

func (w *Worker) markFailed(ctx context.Context, repositoryID int64, cause error) {
	repo, err := w.repos.Get(ctx, repositoryID)
	if err != nil {
		w.logger.Error("failed repository could not be loaded",
			slog.Int64("repository_id", repositoryID),
			slog.String("error", err.Error()),
		)
		return
	}
	if w.workspaces != nil && repo.ClonePath() != "" {
		w.workspaces.Cleanup(repo.ClonePath())
	}
	if err := w.repos.RecordFailure(ctx, repo.ID(), cause.Error()); err != nil {
		w.logger.Error("repository failure could not be recorded",
			slog.Int64("repository_id", repositoryID),
			slog.String("error", err.Error()),
		)
	}
}

// timeout returns the wall-clock budget for one job.
func (w *Worker) timeout(op task.Operation) time.Duration {
	if op.Kind() == task.KindClone {
		return w.limits.CloneTimeout()
	}
	return w.limits.AnalysisTimeout()
}

// waitBackoff sleeps before a retry. Clone jobs back off exponentially;
// analysis jobs retry immediately.
func (w *Worker) waitBackoff(ctx context.Context, op task.Operation, attempt int) {
	if op.Kind() != task.KindClone || attempt < 1 {
		return
	}
	delay := cloneBackoffBase << (attempt - 1)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// executeWithRecovery runs a handler, converting panics into errors so one
// bad repository cannot take a worker down.
func executeWithRecovery(ctx context.Context, handler Handler, t task.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", t.Operation(), r)
		}
	}()

	return handler.Handle(ctx, t)
}
