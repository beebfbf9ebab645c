package git

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// historyDepth bounds how much history is fetched for ownership analysis.
// Shallow enough to keep clones fast, deep enough for a meaningful
// bus-factor signal.
const historyDepth = 500

// GoGitAdapter implements Adapter using the go-git library.
type GoGitAdapter struct {
	logger *slog.Logger
}

// NewGoGitAdapter creates a new GoGitAdapter.
func NewGoGitAdapter(logger *slog.Logger) *GoGitAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoGitAdapter{logger: logger}
}

// CloneRepository performs a shallow, single-branch clone.
func (g *GoGitAdapter) CloneRepository(ctx context.Context, remoteURL, localPath string) error {
	g.logger.Info("cloning repository",
		slog.String("url", remoteURL),
		slog.String("path", localPath),
	)

	if _, err := os.Stat(localPath); err == nil {
		g.logger.Warn("removing existing directory", slog.String("path", localPath))
		if err := os.RemoveAll(localPath); err != nil {
			return fmt.Errorf("remove existing directory: %w", err)
		}
	}

	_, err := gogit.PlainCloneContext(ctx, localPath, false, &gogit.CloneOptions{
		URL:          remoteURL,
		Depth:        historyDepth,
		SingleBranch: true,
		Tags:         gogit.NoTags,
	})
	if err != nil {
		return fmt.Errorf("clone repository: %w", err)
	}

	return nil
}

// HeadSHA returns the checked-out commit SHA of a local clone.
func (g *GoGitAdapter) HeadSHA(_ context.Context, localPath string) (string, error) {
	repo, err := gogit.PlainOpen(localPath)
	if err != nil {
		return "", fmt.Errorf("open repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}

	return head.Hash().String(), nil
}

// CommitLog replays the commit history of a local clone into the raw text
// format the history analyzer consumes.
func (g *GoGitAdapter) CommitLog(ctx context.Context, localPath string) (string, error) {
	repo, err := gogit.PlainOpen(localPath)
	if err != nil {
		return "", fmt.Errorf("open repository: %w", err)
	}

	iter, err := repo.Log(&gogit.LogOptions{})
	if err != nil {
		return "", fmt.Errorf("read commit log: %w", err)
	}
	defer iter.Close()

	var sb strings.Builder
	err = iter.ForEach(func(c *object.Commit) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fmt.Fprintf(&sb, "%s|%s|%s|%d\n",
			c.Hash.String(),
			c.Author.Name,
			c.Author.Email,
			c.Author.When.Unix(),
		)

		// Stats fail on shallow boundary commits whose parents were not
		// fetched; such commits contribute authorship but no file paths.
		stats, err := c.Stats()
		if err == nil {
			for _, stat := range stats {
				sb.WriteString(stat.Name)
				sb.WriteByte('\n')
			}
		}

		sb.WriteByte('\n')
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("iterate commits: %w", err)
	}

	return sb.String(), nil
}

// Ensure GoGitAdapter implements Adapter.
var _ Adapter = (*GoGitAdapter)(nil)
