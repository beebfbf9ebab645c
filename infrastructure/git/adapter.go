// Package git provides repository cloning and commit-log extraction.
package git

import "context"

// Adapter abstracts the underlying git library.
type Adapter interface {
	// CloneRepository performs a shallow, single-branch clone to localPath.
	CloneRepository(ctx context.Context, remoteURL, localPath string) error

	// HeadSHA returns the checked-out commit SHA of a local clone.
	HeadSHA(ctx context.Context, localPath string) (string, error)

	// CommitLog returns the raw commit log of a local clone as text:
	// one "hash|author|email|unixts" header per commit followed by the
	// touched file paths, records separated by blank lines.
	CommitLog(ctx context.Context, localPath string) (string, error)
}
