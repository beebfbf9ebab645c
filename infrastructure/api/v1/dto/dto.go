// Package dto defines the JSON request and response shapes of the v1 API.
package dto

import (
	"time"

	"github.com/repolens/repolens/domain/analysis"
	"github.com/repolens/repolens/domain/repository"
)

// SubmitRepositoryRequest is the body of POST /repositories. Owner and name
// are optional; when absent they are derived from the remote URL.
type SubmitRepositoryRequest struct {
	RemoteURL string `json:"remote_url"`
	Owner     string `json:"owner,omitempty"`
	Name      string `json:"name,omitempty"`
}

// UpdateFindingStatusRequest is the body of PUT /findings/{id}/status.
type UpdateFindingStatusRequest struct {
	Status string `json:"status"`
}

// Repository is the response shape of a repository record.
type Repository struct {
	ID        int64     `json:"id"`
	Owner     string    `json:"owner"`
	Name      string    `json:"name"`
	FullName  string    `json:"full_name"`
	RemoteURL string    `json:"remote_url"`
	HeadSHA   string    `json:"head_sha,omitempty"`
	Language  string    `json:"language,omitempty"`
	SizeBytes int64     `json:"size_bytes"`
	Status    string    `json:"status"`
	RiskScore *int      `json:"risk_score"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromRepository converts a domain repository.
func FromRepository(r repository.Repository) Repository {
	return Repository{
		ID:        r.ID(),
		Owner:     r.Owner(),
		Name:      r.Name(),
		FullName:  r.FullName(),
		RemoteURL: r.RemoteURL(),
		HeadSHA:   r.HeadSHA(),
		Language:  r.Language(),
		SizeBytes: r.SizeBytes(),
		Status:    string(r.Status()),
		RiskScore: r.RiskScore(),
		LastError: r.LastError(),
		CreatedAt: r.CreatedAt(),
		UpdatedAt: r.UpdatedAt(),
	}
}

// FromRepositories converts a list of domain repositories.
func FromRepositories(repos []repository.Repository) []Repository {
	out := make([]Repository, len(repos))
	for i, r := range repos {
		out[i] = FromRepository(r)
	}
	return out
}

// Finding is the response shape of a security finding.
type Finding struct {
	ID          int64   `json:"id"`
	FilePath    string  `json:"file_path"`
	RuleID      string  `json:"rule_id"`
	Severity    string  `json:"severity"`
	Category    string  `json:"category"`
	LineNumber  int     `json:"line_number"`
	Description string  `json:"description"`
	Evidence    string  `json:"evidence"`
	Confidence  float64 `json:"confidence"`
	Status      string  `json:"status"`
}

// FromFinding converts a domain finding.
func FromFinding(f analysis.SecurityFinding) Finding {
	return Finding{
		ID:          f.ID(),
		FilePath:    f.FilePath(),
		RuleID:      f.RuleID(),
		Severity:    string(f.Severity()),
		Category:    string(f.Category()),
		LineNumber:  f.LineNumber(),
		Description: f.Description(),
		Evidence:    f.Evidence(),
		Confidence:  f.Confidence(),
		Status:      string(f.Status()),
	}
}

// FromFindings converts a list of domain findings.
func FromFindings(findings []analysis.SecurityFinding) []Finding {
	out := make([]Finding, len(findings))
	for i, f := range findings {
		out[i] = FromFinding(f)
	}
	return out
}

// Entity is the response shape of an extracted code entity.
type Entity struct {
	ID         int64  `json:"id"`
	FilePath   string `json:"file_path"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	Signature  string `json:"signature"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	Complexity int    `json:"complexity"`
}

// FromEntity converts a domain entity.
func FromEntity(e analysis.CodeEntity) Entity {
	return Entity{
		ID:         e.ID(),
		FilePath:   e.FilePath(),
		Kind:       string(e.Kind()),
		Name:       e.Name(),
		Signature:  e.Signature(),
		StartLine:  e.StartLine(),
		EndLine:    e.EndLine(),
		Complexity: e.Complexity(),
	}
}

// FromEntities converts a list of domain entities.
func FromEntities(entities []analysis.CodeEntity) []Entity {
	out := make([]Entity, len(entities))
	for i, e := range entities {
		out[i] = FromEntity(e)
	}
	return out
}

// RiskReport is the response shape of the categorized risk report.
type RiskReport struct {
	Score       int                    `json:"score"`
	Counts      analysis.FindingCounts `json:"counts"`
	ByCategory  map[string][]Finding   `json:"by_category"`
	TopFindings []Finding              `json:"top_findings"`
}

// FromRiskReport converts a domain risk report.
func FromRiskReport(r analysis.RiskReport) RiskReport {
	byCategory := make(map[string][]Finding, len(r.ByCategory))
	for category, findings := range r.ByCategory {
		byCategory[string(category)] = FromFindings(findings)
	}
	return RiskReport{
		Score:       r.Score,
		Counts:      r.Counts,
		ByCategory:  byCategory,
		TopFindings: FromFindings(r.TopFindings),
	}
}

// BusFactor is the response shape of a bus-factor snapshot.
type BusFactor struct {
	ID             int64                    `json:"id"`
	BusFactor      float64                  `json:"bus_factor"`
	RiskLevel      string                   `json:"risk_level"`
	TotalCommits   int                      `json:"total_commits"`
	UniqueAuthors  int                      `json:"unique_authors"`
	SingleOwnerPct int                      `json:"single_owner_pct"`
	FileOwnership  []analysis.FileOwnership `json:"file_ownership"`
	AuthorStats    []analysis.AuthorStats   `json:"author_stats"`
	CriticalFiles  []analysis.CriticalFile  `json:"critical_files"`
	KnowledgeSilos []analysis.KnowledgeSilo `json:"knowledge_silos"`
	Error          string                   `json:"error,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
}

// FromBusFactor converts a domain bus-factor metric.
func FromBusFactor(m analysis.BusFactorMetric) BusFactor {
	return BusFactor{
		ID:             m.ID(),
		BusFactor:      m.BusFactor(),
		RiskLevel:      string(m.RiskLevel()),
		TotalCommits:   m.TotalCommits(),
		UniqueAuthors:  m.UniqueAuthors(),
		SingleOwnerPct: m.SingleOwnerPct(),
		FileOwnership:  m.FileOwnership(),
		AuthorStats:    m.AuthorStats(),
		CriticalFiles:  m.CriticalFiles(),
		KnowledgeSilos: m.KnowledgeSilos(),
		Error:          m.Error(),
		CreatedAt:      m.CreatedAt(),
	}
}

// FromBusFactors converts a list of domain bus-factor metrics.
func FromBusFactors(metrics []analysis.BusFactorMetric) []BusFactor {
	out := make([]BusFactor, len(metrics))
	for i, m := range metrics {
		out[i] = FromBusFactor(m)
	}
	return out
}
