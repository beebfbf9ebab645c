package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/domain/analysis"
	"github.com/repolens/repolens/domain/repository"
	"github.com/repolens/repolens/domain/task"
	"github.com/repolens/repolens/infrastructure/history"
	"github.com/repolens/repolens/infrastructure/persistence"
	"github.com/repolens/repolens/internal/database"
)

type handlerEnv struct {
	repos      persistence.RepositoryStore
	busFactors persistence.BusFactorStore
}

func newHandlerEnv(t *testing.T) handlerEnv {
	t.Helper()
	db, err := database.NewDatabase(context.Background(), "sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, persistence.AutoMigrate(db))
	t.Cleanup(func() { _ = db.Close() })

	return handlerEnv{
		repos:      persistence.NewRepositoryStore(db),
		busFactors: persistence.NewBusFactorStore(db),
	}
}

func (e handlerEnv) seedRepository(t *testing.T, status repository.AnalysisStatus) repository.Repository {
	t.Helper()
	ctx := context.Background()
	repo, err := e.repos.Save(ctx, repository.New("acme", "widget", "https://example.com/acme/widget.git"))
	require.NoError(t, err)

	for _, next := range statusPath(status) {
		repo, err = repo.WithStatus(next)
		require.NoError(t, err)
	}
	repo, err = e.repos.Save(ctx, repo)
	require.NoError(t, err)
	return repo
}

// statusPath lists the legal transitions from pending up to the target.
func statusPath(target repository.AnalysisStatus) []repository.AnalysisStatus {
	all := []repository.AnalysisStatus{
		repository.StatusQueued,
		repository.StatusCloning,
		repository.StatusParsing,
		repository.StatusCompleted,
	}
	for i, s := range all {
		if s == target {
			return all[:i+1]
		}
	}
	return nil
}

func repoTask(op task.Operation, repositoryID int64) task.Task {
	return task.NewTask(op, int(task.PriorityNormal), map[string]any{"repository_id": repositoryID})
}

// fakeCloner is a scripted Cloner.
type fakeCloner struct {
	clonePath string
	cloneErr  error
	headSHA   string
	headErr   error
	commitLog string
	logErr    error
	cleaned   []string
}

func (f *fakeCloner) Clone(_ context.Context, _, _, _ string) (string, error) {
	return f.clonePath, f.cloneErr
}

func (f *fakeCloner) HeadSHA(_ context.Context, _ string) (string, error) {
	return f.headSHA, f.headErr
}

func (f *fakeCloner) CommitLog(_ context.Context, _ string) (string, error) {
	return f.commitLog, f.logErr
}

func (f *fakeCloner) Cleanup(path string) {
	f.cleaned = append(f.cleaned, path)
}

// fakeIngestor is a scripted Ingestor. Like the real pipeline it records
// the aggregates itself and returns the updated copy.
type fakeIngestor struct {
	repos repository.Store
	err   error
	runs  int
}

func (f *fakeIngestor) Run(ctx context.Context, repo repository.Repository) (repository.Repository, error) {
	f.runs++
	if f.err != nil {
		return repo, f.err
	}
	if err := f.repos.RecordAnalysis(ctx, repo.ID(), "javascript", 1024, 40); err != nil {
		return repo, err
	}
	return repo.WithLanguage("javascript").WithSizeBytes(1024).WithRiskScore(40), nil
}

func TestCloneHandlerRecordsCloneAndHead(t *testing.T) {
	ctx := context.Background()
	env := newHandlerEnv(t)
	repo := env.seedRepository(t, repository.StatusQueued)

	cloner := &fakeCloner{clonePath: "/data/repos/acme_widget-ab12cd34", headSHA: "deadbeef"}
	h := NewCloneHandler(env.repos, cloner, nil)

	require.NoError(t, h.Handle(ctx, repoTask(task.OperationCloneRepository, repo.ID())))

	got, err := env.repos.Get(ctx, repo.ID())
	require.NoError(t, err)
	assert.Equal(t, repository.StatusCloning, got.Status())
	assert.Equal(t, "/data/repos/acme_widget-ab12cd34", got.ClonePath())
	assert.Equal(t, "deadbeef", got.HeadSHA())
	assert.Empty(t, cloner.cleaned)
}

func TestCloneHandlerCleansUpWhenHeadFails(t *testing.T) {
	ctx := context.Background()
	env := newHandlerEnv(t)
	repo := env.seedRepository(t, repository.StatusQueued)

	cloner := &fakeCloner{clonePath: "/data/repos/acme_widget-ab12cd34", headErr: errors.New("empty repository")}
	h := NewCloneHandler(env.repos, cloner, nil)

	err := h.Handle(ctx, repoTask(task.OperationCloneRepository, repo.ID()))
	require.Error(t, err)
	assert.Equal(t, []string{"/data/repos/acme_widget-ab12cd34"}, cloner.cleaned)

	got, err := env.repos.Get(ctx, repo.ID())
	require.NoError(t, err)
	assert.Empty(t, got.ClonePath())
}

func TestCloneHandlerPropagatesCloneError(t *testing.T) {
	ctx := context.Background()
	env := newHandlerEnv(t)
	repo := env.seedRepository(t, repository.StatusQueued)

	cloner := &fakeCloner{cloneErr: errors.New("connection reset")}
	h := NewCloneHandler(env.repos, cloner, nil)

	err := h.Handle(ctx, repoTask(task.OperationCloneRepository, repo.ID()))
	assert.ErrorContains(t, err, "connection reset")
}

func TestCloneHandlerMissingRepository(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewCloneHandler(env.repos, &fakeCloner{}, nil)

	err := h.Handle(context.Background(), repoTask(task.OperationCloneRepository, 9999))
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestAnalyzeHandlerCompletesRepository(t *testing.T) {
	ctx := context.Background()
	env := newHandlerEnv(t)
	repo := env.seedRepository(t, repository.StatusCloning)

	ingestor := &fakeIngestor{repos: env.repos}
	h := NewAnalyzeHandler(env.repos, ingestor, nil)

	require.NoError(t, h.Handle(ctx, repoTask(task.OperationAnalyzeRepository, repo.ID())))
	assert.Equal(t, 1, ingestor.runs)

	got, err := env.repos.Get(ctx, repo.ID())
	require.NoError(t, err)
	assert.Equal(t, repository.StatusCompleted, got.Status())
	require.NotNil(t, got.RiskScore())
	assert.Equal(t, 40, *got.RiskScore())
}

func TestAnalyzeHandlerPropagatesPipelineError(t *testing.T) {
	ctx := context.Background()
	env := newHandlerEnv(t)
	repo := env.seedRepository(t, repository.StatusCloning)

	h := NewAnalyzeHandler(env.repos, &fakeIngestor{repos: env.repos, err: errors.New("walk failed")}, nil)

	err := h.Handle(ctx, repoTask(task.OperationAnalyzeRepository, repo.ID()))
	assert.ErrorContains(t, err, "walk failed")

	got, err := env.repos.Get(ctx, repo.ID())
	require.NoError(t, err)
	assert.Equal(t, repository.StatusParsing, got.Status())
}

func TestHistoryHandlerAppendsMetricAndCleansUp(t *testing.T) {
	ctx := context.Background()
	env := newHandlerEnv(t)
	repo := env.seedRepository(t, repository.StatusCompleted)

	var err error
	repo, err = env.repos.Save(ctx, repo.WithClone("/data/repos/acme_widget-ab12cd34", "deadbeef"))
	require.NoError(t, err)

	cloner := &fakeCloner{commitLog: "c1|Alice|alice@example.com|1700000000\nmain.go\n\nc2|Alice|alice@example.com|1700000100\nmain.go\n"}
	h := NewHistoryHandler(env.repos, cloner, history.NewAnalyzer(nil), env.busFactors, nil)

	require.NoError(t, h.Handle(ctx, repoTask(task.OperationHistoryRepository, repo.ID())))

	metric, err := env.busFactors.Latest(ctx, repo.ID())
	require.NoError(t, err)
	assert.False(t, metric.IsDegraded())
	assert.Equal(t, 2, metric.TotalCommits())
	assert.Equal(t, 1, metric.UniqueAuthors())
	assert.Equal(t, analysis.BusRiskCritical, metric.RiskLevel())

	assert.Equal(t, []string{"/data/repos/acme_widget-ab12cd34"}, cloner.cleaned)
}

func TestHistoryHandlerDegradesWhenLogUnavailable(t *testing.T) {
	ctx := context.Background()
	env := newHandlerEnv(t)
	repo := env.seedRepository(t, repository.StatusCompleted)

	var err error
	repo, err = env.repos.Save(ctx, repo.WithClone("/data/repos/acme_widget-ab12cd34", "deadbeef"))
	require.NoError(t, err)

	cloner := &fakeCloner{logErr: errors.New("not a git repository")}
	h := NewHistoryHandler(env.repos, cloner, history.NewAnalyzer(nil), env.busFactors, nil)

	// History is best effort: the handler succeeds with a degraded metric.
	require.NoError(t, h.Handle(ctx, repoTask(task.OperationHistoryRepository, repo.ID())))

	metric, err := env.busFactors.Latest(ctx, repo.ID())
	require.NoError(t, err)
	assert.True(t, metric.IsDegraded())
	assert.Contains(t, metric.Error(), "not a git repository")

	got, err := env.repos.Get(ctx, repo.ID())
	require.NoError(t, err)
	assert.Equal(t, repository.StatusCompleted, got.Status())
}
