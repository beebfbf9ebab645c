package persistence

import (
	"encoding/json"

	"github.com/repolens/repolens/domain/analysis"
	"github.com/repolens/repolens/domain/repository"
	"github.com/repolens/repolens/domain/task"
)

// RepositoryMapper maps between domain Repository and RepositoryModel.
type RepositoryMapper struct{}

// ToDomain converts a RepositoryModel to a domain Repository.
func (m RepositoryMapper) ToDomain(e RepositoryModel) repository.Repository {
	return repository.Reconstruct(
		e.ID,
		e.Owner,
		e.Name,
		e.RemoteURL,
		e.ClonePath,
		e.HeadSHA,
		e.Language,
		e.SizeBytes,
		repository.AnalysisStatus(e.Status),
		e.RiskScore,
		e.LastError,
		e.CreatedAt,
		e.UpdatedAt,
	)
}

// ToModel converts a domain Repository to a RepositoryModel.
func (m RepositoryMapper) ToModel(r repository.Repository) RepositoryModel {
	return RepositoryModel{
		ID:        r.ID(),
		Owner:     r.Owner(),
		Name:      r.Name(),
		RemoteURL: r.RemoteURL(),
		ClonePath: r.ClonePath(),
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

// FileMapper maps between domain SourceFile and FileModel.
type FileMapper struct{}

// ToDomain converts a FileModel to a domain SourceFile.
func (m FileMapper) ToDomain(e FileModel) analysis.SourceFile {
	var imports []string
	unmarshalList(e.Imports, &imports)

	return analysis.ReconstructSourceFile(
		e.ID,
		e.RepositoryID,
		e.Path,
		e.Content,
		analysis.LanguageTag(e.Language),
		e.LineCount,
		e.SizeBytes,
		imports,
		e.ModifiedAt,
	)
}

// ToModel converts a domain SourceFile to a FileModel.
func (m FileMapper) ToModel(f analysis.SourceFile) FileModel {
	return FileModel{
		ID:           f.ID(),
		RepositoryID: f.RepositoryID(),
		Path:         f.Path(),
		Content:      f.Content(),
		Language:     string(f.Language()),
		LineCount:    f.LineCount(),
		SizeBytes:    f.SizeBytes(),
		Imports:      marshalList(f.Imports()),
		ModifiedAt:   f.ModifiedAt(),
	}
}

// EntityMapper maps between domain CodeEntity and EntityModel.
type EntityMapper struct{}

// ToDomain converts an EntityModel to a domain CodeEntity.
func (m EntityMapper) ToDomain(e EntityModel) analysis.CodeEntity {
	return analysis.ReconstructCodeEntity(
		e.ID,
		e.RepositoryID,
		e.FileID,
		e.FilePath,
		analysis.EntityKind(e.Kind),
		e.Name,
		e.Signature,
		e.StartLine,
		e.EndLine,
		e.Complexity,
	)
}

// ToModel converts a domain CodeEntity to an EntityModel.
func (m EntityMapper) ToModel(c analysis.CodeEntity) EntityModel {
	return EntityModel{
		ID:           c.ID(),
		RepositoryID: c.RepositoryID(),
		FileID:       c.FileID(),
		FilePath:     c.FilePath(),
		Kind:         string(c.Kind()),
		Name:         c.Name(),
		Signature:    c.Signature(),
		StartLine:    c.StartLine(),
		EndLine:      c.EndLine(),
		Complexity:   c.Complexity(),
	}
}

// FindingMapper maps between domain SecurityFinding and FindingModel.
type FindingMapper struct{}

// ToDomain converts a FindingModel to a domain SecurityFinding.
func (m FindingMapper) ToDomain(e FindingModel) analysis.SecurityFinding {
	return analysis.ReconstructSecurityFinding(
		e.ID,
		e.RepositoryID,
		e.FileID,
		e.FilePath,
		e.RuleID,
		analysis.Severity(e.Severity),
		analysis.Category(e.Category),
		e.LineNumber,
		e.Description,
		e.Evidence,
		e.Confidence,
		analysis.FindingStatus(e.Status),
	)
}

// ToModel converts a domain SecurityFinding to a FindingModel.
func (m FindingMapper) ToModel(f analysis.SecurityFinding) FindingModel {
	return FindingModel{
		ID:           f.ID(),
		RepositoryID: f.RepositoryID(),
		FileID:       f.FileID(),
		FilePath:     f.FilePath(),
		RuleID:       f.RuleID(),
		Severity:     string(f.Severity()),
		Category:     string(f.Category()),
		LineNumber:   f.LineNumber(),
		Description:  f.Description(),
		Evidence:     f.Evidence(),
		Confidence:   f.Confidence(),
		Status:       string(f.Status()),
	}
}

// BusFactorMapper maps between domain BusFactorMetric and BusFactorModel.
// The list fields round-trip through JSON; unreadable stored JSON maps to
// empty lists rather than failing a read.
type BusFactorMapper struct{}

// ToDomain converts a BusFactorModel to a domain BusFactorMetric.
func (m BusFactorMapper) ToDomain(e BusFactorModel) analysis.BusFactorMetric {
	var (
		ownership []analysis.FileOwnership
		authors   []analysis.AuthorStats
		critical  []analysis.CriticalFile
		silos     []analysis.KnowledgeSilo
	)
	unmarshalList(e.FileOwnership, &ownership)
	unmarshalList(e.AuthorStats, &authors)
	unmarshalList(e.CriticalFiles, &critical)
	unmarshalList(e.KnowledgeSilos, &silos)

	return analysis.ReconstructBusFactorMetric(
		e.ID,
		e.RepositoryID,
		e.BusFactor,
		analysis.BusRiskLevel(e.RiskLevel),
		e.TotalCommits,
		e.UniqueAuthors,
		e.SingleOwnerPct,
		ownership,
		authors,
		critical,
		silos,
		e.ErrorMessage,
		e.CreatedAt,
	)
}

// ToModel converts a domain BusFactorMetric to a BusFactorModel.
func (m BusFactorMapper) ToModel(b analysis.BusFactorMetric) BusFactorModel {
	return BusFactorModel{
		ID:             b.ID(),
		RepositoryID:   b.RepositoryID(),
		BusFactor:      b.BusFactor(),
		RiskLevel:      string(b.RiskLevel()),
		TotalCommits:   b.TotalCommits(),
		UniqueAuthors:  b.UniqueAuthors(),
		SingleOwnerPct: b.SingleOwnerPct(),
		FileOwnership:  marshalList(b.FileOwnership()),
		AuthorStats:    marshalList(b.AuthorStats()),
		CriticalFiles:  marshalList(b.CriticalFiles()),
		KnowledgeSilos: marshalList(b.KnowledgeSilos()),
		ErrorMessage:   b.Error(),
		CreatedAt:      b.CreatedAt(),
	}
}

// TaskMapper maps between domain Task and TaskModel.
type TaskMapper struct{}

// ToDomain converts a TaskModel to a domain Task.
func (m TaskMapper) ToDomain(e TaskModel) task.Task {
	var payload map[string]any
	if len(e.Payload) > 0 {
		_ = json.Unmarshal(e.Payload, &payload)
	}

	return task.Reconstruct(
		e.ID,
		e.DedupKey,
		task.Operation(e.Operation),
		e.Priority,
		e.Attempt,
		payload,
		e.CreatedAt,
		e.UpdatedAt,
	)
}

// ToModel converts a domain Task to a TaskModel.
func (m TaskMapper) ToModel(t task.Task) TaskModel {
	payload, err := t.PayloadJSON()
	if err != nil {
		payload = []byte("{}")
	}

	return TaskModel{
		ID:           t.ID(),
		DedupKey:     t.DedupKey(),
		RepositoryID: t.RepositoryID(),
		Operation:    string(t.Operation()),
		Priority:     t.Priority(),
		Attempt:      t.Attempt(),
		Payload:      payload,
		CreatedAt:    t.CreatedAt(),
		UpdatedAt:    t.UpdatedAt(),
	}
}

func marshalList(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("[]")
	}
	return data
}

func unmarshalList(data []byte, out any) {
	if len(data) == 0 {
		return
	}
	_ = json.Unmarshal(data, out)
}
