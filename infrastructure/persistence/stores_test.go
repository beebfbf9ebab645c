package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/domain/analysis"
	"github.com/repolens/repolens/domain/repository"
	"github.com/repolens/repolens/domain/task"
	"github.com/repolens/repolens/internal/database"
)

// newTestDB creates a migrated in-memory SQLite database.
func newTestDB(t *testing.T) database.Database {
	t.Helper()
	ctx := context.Background()
	db, err := database.NewDatabase(ctx, "sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedRepository(t *testing.T, store RepositoryStore) repository.Repository {
	t.Helper()
	repo, err := store.Save(context.Background(), repository.New("acme", "widget", "https://example.com/acme/widget.git"))
	require.NoError(t, err)
	require.NotZero(t, repo.ID())
	return repo
}

func TestRepositoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewRepositoryStore(newTestDB(t))

	repo := seedRepository(t, store)

	got, err := store.Get(ctx, repo.ID())
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Owner())
	assert.Equal(t, "widget", got.Name())
	assert.Equal(t, repository.StatusPending, got.Status())
	assert.Nil(t, got.RiskScore())

	byName, err := store.GetByOwnerAndName(ctx, "acme", "widget")
	require.NoError(t, err)
	assert.Equal(t, repo.ID(), byName.ID())

	updated, err := store.Save(ctx, got.WithRiskScore(42))
	require.NoError(t, err)
	require.NotNil(t, updated.RiskScore())
	assert.Equal(t, 42, *updated.RiskScore())
}

func TestRepositoryStoreGetMissing(t *testing.T) {
	store := NewRepositoryStore(newTestDB(t))

	_, err := store.Get(context.Background(), 9999)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestFileStoreUpsertByRepoAndPath(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := seedRepository(t, NewRepositoryStore(db))
	store := NewFileStore(db)

	first := analysis.NewSourceFile(repo.ID(), "src/main.js", "console.log(1)", analysis.LangJavaScript, 14, time.Now().UTC())
	saved, err := store.Save(ctx, first)
	require.NoError(t, err)
	require.NotZero(t, saved.ID())

	// Same key again: content replaced, no second row.
	second := analysis.NewSourceFile(repo.ID(), "src/main.js", "console.log(2)", analysis.LangJavaScript, 14, time.Now().UTC())
	resaved, err := store.Save(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, saved.ID(), resaved.ID())
	assert.Equal(t, "console.log(2)", resaved.Content())

	files, err := store.FindByRepository(ctx, repo.ID())
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestFileStoreDeleteByRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := seedRepository(t, NewRepositoryStore(db))
	store := NewFileStore(db)

	_, err := store.SaveAll(ctx, []analysis.SourceFile{
		analysis.NewSourceFile(repo.ID(), "a.py", "pass", analysis.LangPython, 4, time.Now().UTC()),
		analysis.NewSourceFile(repo.ID(), "b.py", "pass", analysis.LangPython, 4, time.Now().UTC()),
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteByRepository(ctx, repo.ID()))

	files, err := store.FindByRepository(ctx, repo.ID())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestEntityStoreClearBeforeWrite(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := seedRepository(t, NewRepositoryStore(db))
	store := NewEntityStore(db)

	_, err := store.SaveAll(ctx, []analysis.CodeEntity{
		analysis.NewCodeEntity(repo.ID(), "a.go", analysis.EntityFunction, "alpha", "func alpha()", 1, 5, 2),
		analysis.NewCodeEntity(repo.ID(), "a.go", analysis.EntityFunction, "beta", "func beta()", 7, 9, 1),
	})
	require.NoError(t, err)

	count, err := store.CountByRepository(ctx, repo.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Re-analysis clears, then writes the fresh set.
	require.NoError(t, store.DeleteByRepository(ctx, repo.ID()))
	_, err = store.SaveAll(ctx, []analysis.CodeEntity{
		analysis.NewCodeEntity(repo.ID(), "a.go", analysis.EntityFunction, "alpha", "func alpha()", 1, 5, 3),
	})
	require.NoError(t, err)

	entities, err := store.FindByRepository(ctx, repo.ID())
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, 3, entities[0].Complexity())
}

func TestFindingStoreStatusUpdate(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := seedRepository(t, NewRepositoryStore(db))
	store := NewFindingStore(db)

	saved, err := store.SaveAll(ctx, []analysis.SecurityFinding{
		analysis.NewSecurityFinding(repo.ID(), "config.js", "HARDCODED_PASSWORD",
			analysis.SeverityCritical, analysis.CategorySecret, 1,
			"Password assigned as a string literal", "const password = 'admin12345';", 0.8),
	})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	require.NotZero(t, saved[0].ID())

	require.NoError(t, store.UpdateStatus(ctx, saved[0].ID(), analysis.FindingFalsePositive))

	findings, err := store.FindByRepository(ctx, repo.ID())
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, analysis.FindingFalsePositive, findings[0].Status())

	assert.ErrorIs(t, store.UpdateStatus(ctx, 12345, analysis.FindingResolved), database.ErrNotFound)
}

func TestBusFactorStoreAppendOnlyTrend(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := seedRepository(t, NewRepositoryStore(db))
	store := NewBusFactorStore(db)

	for _, score := range []float64{1.0, 2.0, 3.0} {
		metric := analysis.NewBusFactorMetric(repo.ID(), score, analysis.ClassifyBusFactor(score),
			10, 2, 50,
			[]analysis.FileOwnership{{Path: "a.go", TotalCommits: 5, PrimaryAuthor: "Alice", PrimaryPercentage: 100}},
			nil, nil, nil)
		_, err := store.Append(ctx, metric)
		require.NoError(t, err)
	}

	latest, err := store.Latest(ctx, repo.ID())
	require.NoError(t, err)
	assert.Equal(t, 3.0, latest.BusFactor())
	require.Len(t, latest.FileOwnership(), 1)
	assert.Equal(t, "Alice", latest.FileOwnership()[0].PrimaryAuthor)

	trend, err := store.Trend(ctx, repo.ID(), 2)
	require.NoError(t, err)
	require.Len(t, trend, 2)
	assert.Equal(t, 3.0, trend[0].BusFactor())
	assert.Equal(t, 2.0, trend[1].BusFactor())
}

func TestTaskStoreDedupUpdatesPriority(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(newTestDB(t))

	payload := map[string]any{"repository_id": int64(1)}
	first, err := store.Save(ctx, task.NewTask(task.OperationCloneRepository, int(task.PriorityNormal), payload))
	require.NoError(t, err)

	second, err := store.Save(ctx, task.NewTask(task.OperationCloneRepository, int(task.PriorityUserInitiated), payload))
	require.NoError(t, err)

	assert.Equal(t, first.ID(), second.ID())
	assert.Equal(t, int(task.PriorityUserInitiated), second.Priority())

	count, err := store.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestTaskStoreDequeueOrderAndRequeue(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(newTestDB(t))

	_, err := store.Save(ctx, task.NewTask(task.OperationAnalyzeRepository, int(task.PriorityBackground), map[string]any{"repository_id": int64(1)}))
	require.NoError(t, err)
	high, err := store.Save(ctx, task.NewTask(task.OperationCloneRepository, int(task.PriorityUserInitiated), map[string]any{"repository_id": int64(2)}))
	require.NoError(t, err)

	got, found, err := store.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, high.ID(), got.ID())

	// A claimed task is invisible to other workers.
	count, err := store.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, store.Requeue(ctx, got.NextAttempt()))

	requeued, found, err := store.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, high.ID(), requeued.ID())
	assert.Equal(t, 1, requeued.Attempt())

	require.NoError(t, store.Delete(ctx, requeued))

	last, found, err := store.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, task.OperationAnalyzeRepository, last.Operation())

	_, found, err = store.Dequeue(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTaskStoreDequeueSerializesPerRepository(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(newTestDB(t))

	// Repository 1 has its full sequence queued; repository 2 has one task.
	require.NoError(t, saveTask(ctx, store, task.OperationCloneRepository, int(task.PriorityNormal)+20, 1))
	require.NoError(t, saveTask(ctx, store, task.OperationAnalyzeRepository, int(task.PriorityNormal)+10, 1))
	require.NoError(t, saveTask(ctx, store, task.OperationHistoryRepository, int(task.PriorityNormal), 1))
	require.NoError(t, saveTask(ctx, store, task.OperationCloneRepository, int(task.PriorityBackground), 2))

	clone, found, err := store.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, task.OperationCloneRepository, clone.Operation())
	assert.Equal(t, int64(1), clone.RepositoryID())

	// While repository 1's clone is claimed, its analyze task must not be
	// handed out; another repository's work still is.
	other, found, err := store.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(2), other.RepositoryID())

	_, found, err = store.Dequeue(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	// Finishing the clone releases the next operation in the sequence.
	require.NoError(t, store.Delete(ctx, clone))
	next, found, err := store.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, task.OperationAnalyzeRepository, next.Operation())
	assert.Equal(t, int64(1), next.RepositoryID())
}

func TestTaskStoreDeleteByRepositoryKeepsClaimedRow(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(newTestDB(t))

	require.NoError(t, saveTask(ctx, store, task.OperationCloneRepository, int(task.PriorityNormal)+20, 1))
	require.NoError(t, saveTask(ctx, store, task.OperationAnalyzeRepository, int(task.PriorityNormal)+10, 1))
	require.NoError(t, saveTask(ctx, store, task.OperationHistoryRepository, int(task.PriorityNormal), 1))

	claimed, found, err := store.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, found)

	require.NoError(t, store.DeleteByRepository(ctx, 1))

	pending, err := store.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	// The claimed row survives; its worker deletes it on completion.
	require.NoError(t, store.Delete(ctx, claimed))
	_, found, err = store.Dequeue(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func saveTask(ctx context.Context, store TaskStore, op task.Operation, priority int, repositoryID int64) error {
	_, err := store.Save(ctx, task.NewTask(op, priority, map[string]any{"repository_id": repositoryID}))
	return err
}
