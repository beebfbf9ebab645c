// Package service provides the application services: ingestion pipeline,
// risk reporting, and the task queue with its worker pool.
package service

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/repolens/repolens/domain/analysis"
	"github.com/repolens/repolens/internal/config"
)

// DiscoveredFile is one analysis candidate found under a clone path.
type DiscoveredFile struct {
	// RelPath is the repository-relative path with forward slashes.
	RelPath string
	// AbsPath is the on-disk location for reading.
	AbsPath string
	// SizeBytes is the file size as reported by the walk.
	SizeBytes int64
	// ModifiedAt is the file's mtime.
	ModifiedAt time.Time
}

// excludedDirs are directory names never descended into: VCS internals,
// dependency trees, build output, and tool caches.
var excludedDirs = map[string]struct{}{
	".git":         {},
	".hg":          {},
	".svn":         {},
	"node_modules": {},
	"vendor":       {},
	"dist":         {},
	"build":        {},
	"target":       {},
	"out":          {},
	"__pycache__":  {},
	".venv":        {},
	"venv":         {},
	"coverage":     {},
	".next":        {},
}

// testDirs are directory names whose contents are test code, not product code.
var testDirs = map[string]struct{}{
	"test":      {},
	"tests":     {},
	"__tests__": {},
	"spec":      {},
	"specs":     {},
	"fixtures":  {},
}

// DiscoverFiles walks a clone path and returns analysis candidates in walk
// order: supported extensions only, excluded and test directories skipped,
// minified and test files skipped, files over the per-file byte cap
// skipped. The walk stops once the file-count cap is reached or the running
// total would exceed the repository size cap, so the result is a
// discovery-order truncation.
func DiscoverFiles(root string, limits config.Limits) ([]DiscoveredFile, error) {
	var (
		files     []DiscoveredFile
		totalSize int64
	)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			name := d.Name()
			if _, skip := excludedDirs[name]; skip {
				return filepath.SkipDir
			}
			if _, skip := testDirs[name]; skip {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if analysis.DetectLanguage(rel) == analysis.LangUnknown {
			return nil
		}
		if isMinified(rel) || isTestFile(rel) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil // racing deletion, not worth failing the walk
		}
		if info.Size() > limits.MaxFileSize() {
			return nil
		}
		if totalSize+info.Size() > limits.MaxRepoSize() {
			return filepath.SkipAll
		}

		files = append(files, DiscoveredFile{
			RelPath:    rel,
			AbsPath:    path,
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime().UTC(),
		})
		totalSize += info.Size()

		if len(files) >= limits.MaxFilesPerRepo() {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover files under %s: %w", root, err)
	}

	return files, nil
}

// isMinified reports whether the file name marks generated minified output.
func isMinified(rel string) bool {
	return strings.Contains(filepath.Base(rel), ".min.")
}

// isTestFile reports whether the path names a test or spec file by the
// common per-ecosystem conventions.
func isTestFile(rel string) bool {
	base := strings.ToLower(filepath.Base(rel))
	switch {
	case strings.Contains(base, ".test."),
		strings.Contains(base, ".spec."),
		strings.Contains(base, "_test."),
		strings.HasPrefix(base, "test_"):
		return true
	}
	return false
}
