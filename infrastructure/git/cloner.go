package git

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// WorkspaceCloner manages per-run clone directories. Each run gets a
// directory derived from owner and name plus a unique suffix so concurrent
// analyses of the same repository never collide on disk.
type WorkspaceCloner struct {
	adapter  Adapter
	cloneDir string
	logger   *slog.Logger
}

// NewWorkspaceCloner creates a WorkspaceCloner rooted at cloneDir.
func NewWorkspaceCloner(adapter Adapter, cloneDir string, logger *slog.Logger) *WorkspaceCloner {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkspaceCloner{
		adapter:  adapter,
		cloneDir: cloneDir,
		logger:   logger,
	}
}

// Clone clones a repository into a fresh run directory and returns its
// path. On failure the directory is removed before returning.
func (c *WorkspaceCloner) Clone(ctx context.Context, remoteURL, owner, name string) (string, error) {
	clonePath := c.runPath(owner, name)

	if err := c.adapter.CloneRepository(ctx, remoteURL, clonePath); err != nil {
		_ = os.RemoveAll(clonePath)
		return "", fmt.Errorf("clone %s/%s: %w", owner, name, err)
	}

	return clonePath, nil
}

// HeadSHA returns the checked-out commit of a clone.
func (c *WorkspaceCloner) HeadSHA(ctx context.Context, clonePath string) (string, error) {
	return c.adapter.HeadSHA(ctx, clonePath)
}

// CommitLog returns the raw commit log text of a clone.
func (c *WorkspaceCloner) CommitLog(ctx context.Context, clonePath string) (string, error) {
	return c.adapter.CommitLog(ctx, clonePath)
}

// Cleanup removes a clone directory. It must run on every exit path of a
// job, success or timeout, and never fails the caller.
func (c *WorkspaceCloner) Cleanup(clonePath string) {
	if clonePath == "" {
		return
	}
	// Refuse to remove anything outside the managed clone root.
	abs, err := filepath.Abs(clonePath)
	if err != nil || !strings.HasPrefix(abs, c.cloneDir) {
		c.logger.Warn("skipping cleanup of unmanaged path", slog.String("path", clonePath))
		return
	}
	if err := os.RemoveAll(abs); err != nil {
		c.logger.Warn("clone cleanup failed",
			slog.String("path", abs),
			slog.String("error", err.Error()),
		)
	}
}

// runPath builds a collision-free directory name for one analysis run.
func (c *WorkspaceCloner) runPath(owner, name string) string {
	suffix := uuid.NewString()[:8]
	dir := fmt.Sprintf("%s_%s-%s", sanitizePathComponent(owner), sanitizePathComponent(name), suffix)
	return filepath.Join(c.cloneDir, dir)
}

// sanitizePathComponent strips characters that are unsafe in directory names.
func sanitizePathComponent(s string) string {
	result := make([]byte, 0, len(s))
	for _, b := range []byte(s) {
		switch b {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '@', ' ':
			result = append(result, '_')
		default:
			result = append(result, b)
		}
	}

	// Keep the full clone path well under filesystem limits.
	const maxLen = 80
	if len(result) > maxLen {
		result = result[:maxLen]
	}
	return string(result)
}
