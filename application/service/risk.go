package service

import (
	"context"

	"github.com/repolens/repolens/domain/analysis"
)

// RiskService exposes stored analysis results: findings, entities, the
// categorized risk report, and bus-factor history.
type RiskService struct {
	findings   analysis.FindingStore
	entities   analysis.EntityStore
	busFactors analysis.BusFactorStore
}

// NewRiskService creates a RiskService.
func NewRiskService(findings analysis.FindingStore, entities analysis.EntityStore, busFactors analysis.BusFactorStore) *RiskService {
	return &RiskService{
		findings:   findings,
		entities:   entities,
		busFactors: busFactors,
	}
}

// Findings returns a repository's findings ordered by file and line.
func (s *RiskService) Findings(ctx context.Context, repositoryID int64) ([]analysis.SecurityFinding, error) {
	return s.findings.FindByRepository(ctx, repositoryID)
}

// Entities returns a repository's extracted entities.
func (s *RiskService) Entities(ctx context.Context, repositoryID int64) ([]analysis.CodeEntity, error) {
	return s.entities.FindByRepository(ctx, repositoryID)
}

// Report builds the categorized risk report from the latest stored pass.
// Clear-before-write persistence means the stored findings are exactly the
// latest pass, so the report score always matches the repository's score.
func (s *RiskService) Report(ctx context.Context, repositoryID int64) (analysis.RiskReport, error) {
	findings, err := s.findings.FindByRepository(ctx, repositoryID)
	if err != nil {
		return analysis.RiskReport{}, err
	}
	return analysis.BuildRiskReport(findings), nil
}

// UpdateFindingStatus records a reviewer verdict on one finding.
func (s *RiskService) UpdateFindingStatus(ctx context.Context, findingID int64, status analysis.FindingStatus) error {
	return s.findings.UpdateStatus(ctx, findingID, status)
}

// BusFactor returns a repository's most recent bus-factor snapshot.
func (s *RiskService) BusFactor(ctx context.Context, repositoryID int64) (analysis.BusFactorMetric, error) {
	return s.busFactors.Latest(ctx, repositoryID)
}

// BusFactorTrend returns a repository's snapshots, newest first.
func (s *RiskService) BusFactorTrend(ctx context.Context, repositoryID int64, limit int) ([]analysis.BusFactorMetric, error) {
	return s.busFactors.Trend(ctx, repositoryID, limit)
}
