package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/domain/analysis"
	"github.com/repolens/repolens/domain/repository"
	"github.com/repolens/repolens/infrastructure/parsing"
	"github.com/repolens/repolens/infrastructure/persistence"
	"github.com/repolens/repolens/infrastructure/scanning"
	"github.com/repolens/repolens/internal/config"
	"github.com/repolens/repolens/internal/database"
)

type pipelineEnv struct {
	pipeline *Pipeline
	repos    persistence.RepositoryStore
	files    persistence.FileStore
	entities persistence.EntityStore
	findings persistence.FindingStore
}

func newPipelineEnv(t *testing.T) pipelineEnv {
	t.Helper()
	db, err := database.NewDatabase(context.Background(), "sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, persistence.AutoMigrate(db))
	t.Cleanup(func() { _ = db.Close() })

	env := pipelineEnv{
		repos:    persistence.NewRepositoryStore(db),
		files:    persistence.NewFileStore(db),
		entities: persistence.NewEntityStore(db),
		findings: persistence.NewFindingStore(db),
	}
	env.pipeline = NewPipeline(
		env.repos, env.files, env.entities, env.findings,
		parsing.NewParser(nil), parsing.NewExtractor(nil), scanning.NewScanner(nil),
		config.NewLimits(), nil,
	)
	return env
}

func clonedRepository(t *testing.T, repos persistence.RepositoryStore, clonePath string) repository.Repository {
	t.Helper()
	ctx := context.Background()
	repo, err := repos.Save(ctx, repository.New("acme", "widget", "https://example.com/acme/widget.git"))
	require.NoError(t, err)
	repo, err = repos.Save(ctx, repo.WithClone(clonePath, "deadbeef"))
	require.NoError(t, err)
	return repo
}

func TestPipelineRunFullPass(t *testing.T) {
	ctx := context.Background()
	env := newPipelineEnv(t)

	root := t.TempDir()
	writeFile(t, root, "src/auth.js", `import fs from 'fs';

function login(user, pass) {
  if (user && pass) {
    return true;
  }
  return false;
}
`)
	writeFile(t, root, "config.js", "const password = 'admin12345';\n")

	repo := clonedRepository(t, env.repos, root)

	updated, err := env.pipeline.Run(ctx, repo)
	require.NoError(t, err)

	// One critical finding: 1*40.
	require.NotNil(t, updated.RiskScore())
	assert.Equal(t, 40, *updated.RiskScore())
	assert.Equal(t, "javascript", updated.Language())
	assert.Positive(t, updated.SizeBytes())

	// The aggregates are persisted, not just returned.
	stored, err := env.repos.Get(ctx, repo.ID())
	require.NoError(t, err)
	require.NotNil(t, stored.RiskScore())
	assert.Equal(t, 40, *stored.RiskScore())
	assert.Equal(t, "javascript", stored.Language())

	files, err := env.files.FindByRepository(ctx, repo.ID())
	require.NoError(t, err)
	require.Len(t, files, 2)

	auth, err := env.files.GetByPath(ctx, repo.ID(), "src/auth.js")
	require.NoError(t, err)
	assert.Contains(t, auth.Imports(), "fs")

	entities, err := env.entities.FindByRepository(ctx, repo.ID())
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "login", entities[0].Name())
	assert.Equal(t, 3, entities[0].Complexity())
	assert.Equal(t, auth.ID(), entities[0].FileID())

	findings, err := env.findings.FindByRepository(ctx, repo.ID())
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "HARDCODED_PASSWORD", findings[0].RuleID())
	assert.Equal(t, "config.js", findings[0].FilePath())
	assert.Equal(t, 1, findings[0].LineNumber())
}

func TestPipelineRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newPipelineEnv(t)

	root := t.TempDir()
	writeFile(t, root, "config.js", "const password = 'admin12345';\n")
	repo := clonedRepository(t, env.repos, root)

	for i := 0; i < 2; i++ {
		var err error
		repo, err = env.pipeline.Run(ctx, repo)
		require.NoError(t, err)
	}

	findingCount, err := env.findings.CountByRepository(ctx, repo.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(1), findingCount)

	files, err := env.files.FindByRepository(ctx, repo.ID())
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestPipelineRunUnparsableFileStillScanned(t *testing.T) {
	ctx := context.Background()
	env := newPipelineEnv(t)

	root := t.TempDir()
	writeFile(t, root, "broken.js", "function ((( {{{ const password = 'admin12345';\n")
	repo := clonedRepository(t, env.repos, root)

	updated, err := env.pipeline.Run(ctx, repo)
	require.NoError(t, err)

	findings, err := env.findings.FindByRepository(ctx, repo.ID())
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "HARDCODED_PASSWORD", findings[0].RuleID())

	require.NotNil(t, updated.RiskScore())
	assert.Equal(t, 40, *updated.RiskScore())
}

func TestPipelineRunWithoutClonePath(t *testing.T) {
	env := newPipelineEnv(t)

	repo, err := env.repos.Save(context.Background(), repository.New("acme", "widget", "https://example.com/acme/widget.git"))
	require.NoError(t, err)

	_, err = env.pipeline.Run(context.Background(), repo)
	assert.Error(t, err)
}

func TestDominantLanguage(t *testing.T) {
	lang := dominantLanguage(map[analysis.LanguageTag]int64{
		analysis.LangPython:     100,
		analysis.LangJavaScript: 300,
		analysis.LangGo:         200,
	})
	assert.Equal(t, analysis.LangJavaScript, lang)

	assert.Equal(t, analysis.LangUnknown, dominantLanguage(nil))
}
