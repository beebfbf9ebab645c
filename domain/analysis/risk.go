package analysis

import "sort"

// Severity weights for the aggregate risk score.
const (
	weightCritical = 40
	weightHigh     = 20
	weightMedium   = 5
	weightLow      = 1
)

// maxTopFindings caps the "top findings" slice in a report.
const maxTopFindings = 10

// FindingCounts tallies findings by severity.
type FindingCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// Total returns the sum of all severities.
func (c FindingCounts) Total() int {
	return c.Critical + c.High + c.Medium + c.Low
}

// CountFindings tallies a finding list by severity.
func CountFindings(findings []SecurityFinding) FindingCounts {
	var counts FindingCounts
	for _, f := range findings {
		switch f.Severity() {
		case SeverityCritical:
			counts.Critical++
		case SeverityHigh:
			counts.High++
		case SeverityMedium:
			counts.Medium++
		case SeverityLow:
			counts.Low++
		}
	}
	return counts
}

// RiskScore computes the deterministic 0-100 aggregate:
// min(100, critical*40 + high*20 + medium*5 + low*1).
func RiskScore(counts FindingCounts) int {
	score := counts.Critical*weightCritical +
		counts.High*weightHigh +
		counts.Medium*weightMedium +
		counts.Low*weightLow
	if score > 100 {
		return 100
	}
	return score
}

// RiskReport is the structured presentation of a repository's findings.
type RiskReport struct {
	Score       int                           `json:"score"`
	Counts      FindingCounts                 `json:"counts"`
	ByCategory  map[Category][]SecurityFinding `json:"by_category"`
	TopFindings []SecurityFinding             `json:"top_findings"`
}

// BuildRiskReport computes the score, groups findings by category, and
// selects the top critical and high findings (capped at 10, critical
// first, then by file path and line for determinism).
func BuildRiskReport(findings []SecurityFinding) RiskReport {
	counts := CountFindings(findings)

	byCategory := make(map[Category][]SecurityFinding)
	for _, f := range findings {
		byCategory[f.Category()] = append(byCategory[f.Category()], f)
	}

	top := make([]SecurityFinding, 0, maxTopFindings)
	for _, f := range findings {
		if f.Severity() == SeverityCritical || f.Severity() == SeverityHigh {
			top = append(top, f)
		}
	}
	sort.SliceStable(top, func(i, j int) bool {
		if top[i].Severity() != top[j].Severity() {
			return top[i].Severity() == SeverityCritical
		}
		if top[i].FilePath() != top[j].FilePath() {
			return top[i].FilePath() < top[j].FilePath()
		}
		return top[i].LineNumber() < top[j].LineNumber()
	})
	if len(top) > maxTopFindings {
		top = top[:maxTopFindings]
	}

	return RiskReport{
		Score:       RiskScore(counts),
		Counts:      counts,
		ByCategory:  byCategory,
		TopFindings: top,
	}
}
