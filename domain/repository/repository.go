// Package repository provides the repository aggregate and its store contract.
package repository

import (
	"fmt"
	"strings"
	"time"
)

// Repository represents a source-code repository under analysis.
type Repository struct {
	id        int64
	owner     string
	name      string
	remoteURL string
	clonePath string
	headSHA   string
	language  string
	sizeBytes int64
	status    AnalysisStatus
	riskScore *int
	lastError string
	createdAt time.Time
	updatedAt time.Time
}

// New creates a Repository for a remote URL in the pending state.
func New(owner, name, remoteURL string) Repository {
	now := time.Now().UTC()
	return Repository{
		owner:     owner,
		name:      name,
		remoteURL: remoteURL,
		status:    StatusPending,
		createdAt: now,
		updatedAt: now,
	}
}

// Reconstruct builds a Repository from stored fields.
func Reconstruct(
	id int64,
	owner, name, remoteURL, clonePath, headSHA, language string,
	sizeBytes int64,
	status AnalysisStatus,
	riskScore *int,
	lastError string,
	createdAt, updatedAt time.Time,
) Repository {
	return Repository{
		id:        id,
		owner:     owner,
		name:      name,
		remoteURL: remoteURL,
		clonePath: clonePath,
		headSHA:   headSHA,
		language:  language,
		sizeBytes: sizeBytes,
		status:    status,
		riskScore: riskScore,
		lastError: lastError,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ParseRef splits an "owner/name" reference.
func ParseRef(ref string) (owner, name string, err error) {
	parts := strings.Split(strings.Trim(ref, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository reference %q, want owner/name", ref)
	}
	return parts[0], parts[1], nil
}

// ID returns the repository ID.
func (r Repository) ID() int64 { return r.id }

// Owner returns the repository owner.
func (r Repository) Owner() string { return r.owner }

// Name returns the repository name.
func (r Repository) Name() string { return r.name }

// FullName returns "owner/name".
func (r Repository) FullName() string { return r.owner + "/" + r.name }

// RemoteURL returns the clone source location.
func (r Repository) RemoteURL() string { return r.remoteURL }

// ClonePath returns the local working-copy path, empty if never cloned.
func (r Repository) ClonePath() string { return r.clonePath }

// HeadSHA returns the checked-out commit SHA, empty if never cloned.
func (r Repository) HeadSHA() string { return r.headSHA }

// Language returns the dominant language tag detected during ingestion.
func (r Repository) Language() string { return r.language }

// SizeBytes returns the total size of stored files.
func (r Repository) SizeBytes() int64 { return r.sizeBytes }

// Status returns the analysis status.
func (r Repository) Status() AnalysisStatus { return r.status }

// RiskScore returns the risk score, nil before the first completed analysis.
func (r Repository) RiskScore() *int { return r.riskScore }

// LastError returns the last failure message, empty if none.
func (r Repository) LastError() string { return r.lastError }

// CreatedAt returns when the repository record was created.
func (r Repository) CreatedAt() time.Time { return r.createdAt }

// UpdatedAt returns when the repository record was last updated.
func (r Repository) UpdatedAt() time.Time { return r.updatedAt }

// WithID returns a copy with the ID set.
func (r Repository) WithID(id int64) Repository {
	r.id = id
	return r
}

// WithStatus returns a copy in the given status, or an error when the
// transition is illegal. Entering any non-failed state clears the last error.
func (r Repository) WithStatus(status AnalysisStatus) (Repository, error) {
	if !r.status.CanTransition(status) {
		return r, fmt.Errorf("illegal status transition %s -> %s", r.status, status)
	}
	r.status = status
	if status != StatusFailed {
		r.lastError = ""
	}
	r.updatedAt = time.Now().UTC()
	return r, nil
}

// WithFailure returns a copy marked failed with the given message.
// Failure is reachable from any state.
func (r Repository) WithFailure(message string) Repository {
	r.status = StatusFailed
	r.lastError = message
	r.updatedAt = time.Now().UTC()
	return r
}

// WithClone returns a copy recording the clone location and head commit.
func (r Repository) WithClone(path, headSHA string) Repository {
	r.clonePath = path
	r.headSHA = headSHA
	r.updatedAt = time.Now().UTC()
	return r
}

// WithLanguage returns a copy with the dominant language set.
func (r Repository) WithLanguage(language string) Repository {
	r.language = language
	r.updatedAt = time.Now().UTC()
	return r
}

// WithSizeBytes returns a copy with the stored size set.
func (r Repository) WithSizeBytes(n int64) Repository {
	r.sizeBytes = n
	r.updatedAt = time.Now().UTC()
	return r
}

// WithRiskScore returns a copy with the risk score set.
func (r Repository) WithRiskScore(score int) Repository {
	r.riskScore = &score
	r.updatedAt = time.Now().UTC()
	return r
}
