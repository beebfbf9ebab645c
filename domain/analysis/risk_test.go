package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskScoreWeights(t *testing.T) {
	tests := []struct {
		name   string
		counts FindingCounts
		want   int
	}{
		{"empty", FindingCounts{}, 0},
		{"one of each", FindingCounts{Critical: 1, High: 1, Medium: 1, Low: 1}, 66},
		{"two high", FindingCounts{High: 2}, 40},
		{"mediums and lows", FindingCounts{Medium: 3, Low: 7}, 22},
		{"capped at 100", FindingCounts{Critical: 3}, 100},
		{"three files one critical each", FindingCounts{Critical: 3}, 100},
		{"exactly 100", FindingCounts{Critical: 2, High: 1}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RiskScore(tt.counts))
		})
	}
}

func TestRiskScoreMonotone(t *testing.T) {
	base := FindingCounts{Critical: 1, High: 2, Medium: 3, Low: 4}
	baseScore := RiskScore(base)

	for _, bumped := range []FindingCounts{
		{Critical: 2, High: 2, Medium: 3, Low: 4},
		{Critical: 1, High: 3, Medium: 3, Low: 4},
		{Critical: 1, High: 2, Medium: 4, Low: 4},
		{Critical: 1, High: 2, Medium: 3, Low: 5},
	} {
		assert.GreaterOrEqual(t, RiskScore(bumped), baseScore)
	}
}

func TestCountFindings(t *testing.T) {
	findings := []SecurityFinding{
		NewSecurityFinding(1, "a.js", "R1", SeverityCritical, CategorySecret, 1, "d", "e", 0.8),
		NewSecurityFinding(1, "a.js", "R2", SeverityHigh, CategoryVulnerability, 2, "d", "e", 0.8),
		NewSecurityFinding(1, "b.js", "R2", SeverityHigh, CategoryVulnerability, 3, "d", "e", 0.8),
		NewSecurityFinding(1, "c.js", "R3", SeverityLow, CategoryRisk, 4, "d", "e", 0.8),
	}

	counts := CountFindings(findings)
	assert.Equal(t, FindingCounts{Critical: 1, High: 2, Low: 1}, counts)
	assert.Equal(t, 4, counts.Total())
}

func TestBuildRiskReport(t *testing.T) {
	var findings []SecurityFinding
	for i := 0; i < 12; i++ {
		findings = append(findings, NewSecurityFinding(1, "a.js", "R1", SeverityHigh, CategoryVulnerability, i+1, "d", "e", 0.8))
	}
	findings = append(findings,
		NewSecurityFinding(1, "z.js", "R2", SeverityCritical, CategorySecret, 1, "d", "e", 0.8),
		NewSecurityFinding(1, "m.js", "R3", SeverityLow, CategoryRisk, 1, "d", "e", 0.8),
	)

	report := BuildRiskReport(findings)

	require.Len(t, report.TopFindings, 10)
	// Critical sorts ahead of high regardless of path order.
	assert.Equal(t, SeverityCritical, report.TopFindings[0].Severity())
	assert.Equal(t, 100, report.Score)
	assert.Len(t, report.ByCategory[CategoryVulnerability], 12)
	assert.Len(t, report.ByCategory[CategorySecret], 1)
	assert.Len(t, report.ByCategory[CategoryRisk], 1)
}

func TestNewSecurityFindingClamps(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}

	f := NewSecurityFinding(1, "a.js", "R1", SeverityLow, CategoryRisk, 0, "d", string(long), 0.95)
	assert.Equal(t, 1, f.LineNumber())
	assert.Len(t, f.Evidence(), 100)
	assert.Equal(t, MaxConfidence, f.Confidence())

	f = NewSecurityFinding(1, "a.js", "R1", SeverityLow, CategoryRisk, 5, "d", "e", 0.1)
	assert.Equal(t, MinConfidence, f.Confidence())
	assert.Equal(t, FindingOpen, f.Status())
}

func TestNewCodeEntityInvariants(t *testing.T) {
	e := NewCodeEntity(1, "a.js", EntityFunction, "", "function () {", 10, 5, 0)
	assert.Equal(t, AnonymousName, e.Name())
	assert.GreaterOrEqual(t, e.EndLine(), e.StartLine())
	assert.GreaterOrEqual(t, e.Complexity(), 1)
}

func TestClassifyBusFactor(t *testing.T) {
	assert.Equal(t, BusRiskCritical, ClassifyBusFactor(1.0))
	assert.Equal(t, BusRiskCritical, ClassifyBusFactor(1.5))
	assert.Equal(t, BusRiskHigh, ClassifyBusFactor(2.5))
	assert.Equal(t, BusRiskMedium, ClassifyBusFactor(4.0))
	assert.Equal(t, BusRiskLow, ClassifyBusFactor(4.1))
}
