package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/internal/config"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func relPaths(files []DiscoveredFile) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.RelPath
	}
	return paths
}

func TestDiscoverFilesExclusions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/app.js", "console.log(1)")
	writeFile(t, root, "src/util.py", "pass")
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = {}")
	writeFile(t, root, "vendor/lib.go", "package lib")
	writeFile(t, root, "dist/bundle.js", "!function(){}()")
	writeFile(t, root, ".git/hooks/pre-commit.py", "pass")
	writeFile(t, root, "src/app.min.js", "!function(){}()")
	writeFile(t, root, "src/app.test.js", "it('works')")
	writeFile(t, root, "src/app.spec.ts", "it('works')")
	writeFile(t, root, "pkg/store_test.go", "package pkg")
	writeFile(t, root, "scripts/test_runner.py", "pass")
	writeFile(t, root, "tests/helper.py", "pass")
	writeFile(t, root, "README.md", "# readme")
	writeFile(t, root, "assets/logo.png", "\x89PNG")

	files, err := DiscoverFiles(root, config.NewLimits())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"src/app.js", "src/util.py", "main.go"}, relPaths(files))
}

func TestDiscoverFilesCapsFileCount(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js", "1")
	writeFile(t, root, "b.js", "2")
	writeFile(t, root, "c.js", "3")

	limits := config.NewLimits().WithMaxFilesPerRepo(2)
	files, err := DiscoverFiles(root, limits)
	require.NoError(t, err)

	// Discovery-order truncation: the walk is lexical.
	assert.Equal(t, []string{"a.js", "b.js"}, relPaths(files))
}

func TestDiscoverFilesSkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.js", "ok")
	writeFile(t, root, "huge.js", string(make([]byte, 64)))

	limits := config.NewLimits().WithMaxFileSize(16)
	files, err := DiscoverFiles(root, limits)
	require.NoError(t, err)

	assert.Equal(t, []string{"small.js"}, relPaths(files))
}

func TestDiscoverFilesEmptyRepository(t *testing.T) {
	files, err := DiscoverFiles(t.TempDir(), config.NewLimits())
	require.NoError(t, err)
	assert.Empty(t, files)
}
