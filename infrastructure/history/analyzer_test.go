package history

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/domain/analysis"
)

func commitEntry(seq int, author string, files ...string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "hash%04d|%s|%s@example.com|%d\n", seq, author, strings.ToLower(author), 1700000000+int64(seq)*60)
	for _, f := range files {
		sb.WriteString(f)
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	return sb.String()
}

func TestAnalyzeSingleAuthorIsCritical(t *testing.T) {
	var log strings.Builder
	for i := 0; i < 10; i++ {
		log.WriteString(commitEntry(i, "Alice", fmt.Sprintf("src/file%d.go", i)))
	}

	metric := NewAnalyzer(nil).Analyze(1, log.String())

	require.False(t, metric.IsDegraded())
	assert.Equal(t, 1.0, metric.BusFactor())
	assert.Equal(t, analysis.BusRiskCritical, metric.RiskLevel())
	assert.Equal(t, 10, metric.TotalCommits())
	assert.Equal(t, 1, metric.UniqueAuthors())
	assert.Equal(t, 100, metric.SingleOwnerPct())
}

func TestAnalyzeDominantOwnerNoAdjustment(t *testing.T) {
	var log strings.Builder
	seq := 0
	for i := 0; i < 80; i++ {
		log.WriteString(commitEntry(seq, "Alice", fmt.Sprintf("core/a%d.go", i)))
		seq++
	}
	for i := 0; i < 20; i++ {
		log.WriteString(commitEntry(seq, "Bob", fmt.Sprintf("util/b%d.go", i)))
		seq++
	}

	metric := NewAnalyzer(nil).Analyze(1, log.String())

	// Alice alone covers 80% of files: coverage 0.8 needs no fractional
	// adjustment.
	assert.Equal(t, 1.0, metric.BusFactor())
	assert.Equal(t, analysis.BusRiskCritical, metric.RiskLevel())
}

func TestAnalyzeEvenOwnershipGetsAdjustment(t *testing.T) {
	authors := []string{"Alice", "Bob", "Carol", "Dave"}
	var log strings.Builder
	seq := 0
	for i := 0; i < 100; i++ {
		log.WriteString(commitEntry(seq, authors[i%4], fmt.Sprintf("pkg/f%d.go", i)))
		seq++
	}

	metric := NewAnalyzer(nil).Analyze(1, log.String())

	// Two authors reach exactly 50% coverage; coverage 0.5 adds the full
	// fractional credit of 1.0.
	assert.Equal(t, 3.0, metric.BusFactor())
	assert.Equal(t, analysis.BusRiskMedium, metric.RiskLevel())
}

func TestAnalyzeEmptyLogIsDegraded(t *testing.T) {
	metric := NewAnalyzer(nil).Analyze(1, "")

	assert.True(t, metric.IsDegraded())
	assert.Equal(t, analysis.BusRiskUnknown, metric.RiskLevel())
	assert.Zero(t, metric.BusFactor())
	assert.NotEmpty(t, metric.Error())
}

func TestAnalyzeMalformedLogIsDegraded(t *testing.T) {
	metric := NewAnalyzer(nil).Analyze(1, "src/main.go\nnot a header\n")

	assert.True(t, metric.IsDegraded())
	assert.NotEmpty(t, metric.Error())
}

func TestAnalyzeExcludesNonCodeFiles(t *testing.T) {
	log := commitEntry(0, "Alice", "README.md", "docs/guide.md") +
		commitEntry(1, "Bob", "src/main.go")

	metric := NewAnalyzer(nil).Analyze(1, log)

	require.False(t, metric.IsDegraded())
	require.Len(t, metric.FileOwnership(), 1)
	assert.Equal(t, "src/main.go", metric.FileOwnership()[0].Path)
	assert.Equal(t, "Bob", metric.FileOwnership()[0].PrimaryAuthor)
}

func TestAnalyzeOnlyDocsIsDegraded(t *testing.T) {
	metric := NewAnalyzer(nil).Analyze(1, commitEntry(0, "Alice", "README.md"))

	assert.True(t, metric.IsDegraded())
}

func TestAnalyzeKnowledgeSilos(t *testing.T) {
	var log strings.Builder
	seq := 0
	// Alice single-owns 12 files under core/: a HIGH silo.
	for i := 0; i < 12; i++ {
		log.WriteString(commitEntry(seq, "Alice", fmt.Sprintf("core/a%d.go", i)))
		seq++
	}
	// Bob single-owns 6 files under util/: a MEDIUM silo.
	for i := 0; i < 6; i++ {
		log.WriteString(commitEntry(seq, "Bob", fmt.Sprintf("util/b%d.go", i)))
		seq++
	}
	// Carol owns too few files to form a silo.
	log.WriteString(commitEntry(seq, "Carol", "misc/c.go"))

	metric := NewAnalyzer(nil).Analyze(1, log.String())

	require.Len(t, metric.KnowledgeSilos(), 2)
	assert.Equal(t, "Alice", metric.KnowledgeSilos()[0].Author)
	assert.Equal(t, "core", metric.KnowledgeSilos()[0].Directory)
	assert.Equal(t, 12, metric.KnowledgeSilos()[0].FileCount)
	assert.Equal(t, analysis.BusRiskHigh, metric.KnowledgeSilos()[0].Risk)
	assert.Equal(t, analysis.BusRiskMedium, metric.KnowledgeSilos()[1].Risk)
}

func TestAnalyzeCriticalFiles(t *testing.T) {
	var log strings.Builder
	seq := 0
	// core/engine.go: 40 commits, all Alice. No backup, score 40: CRITICAL.
	for i := 0; i < 40; i++ {
		log.WriteString(commitEntry(seq, "Alice", "core/engine.go"))
		seq++
	}
	// core/shared.go: Alice 12, Bob 8. Bob is a real backup owner.
	for i := 0; i < 12; i++ {
		log.WriteString(commitEntry(seq, "Alice", "core/shared.go"))
		seq++
	}
	for i := 0; i < 8; i++ {
		log.WriteString(commitEntry(seq, "Bob", "core/shared.go"))
		seq++
	}

	metric := NewAnalyzer(nil).Analyze(1, log.String())

	require.Len(t, metric.CriticalFiles(), 1)
	cf := metric.CriticalFiles()[0]
	assert.Equal(t, "core/engine.go", cf.Path)
	assert.Equal(t, "Alice", cf.PrimaryAuthor)
	assert.Equal(t, 100, cf.PrimaryPercentage)
	assert.Equal(t, 40.0, cf.Score)
	assert.Equal(t, analysis.BusRiskCritical, cf.Risk)
}

func TestAnalyzeAuthorStats(t *testing.T) {
	log := commitEntry(0, "Alice", "a.go", "b.go") +
		commitEntry(1, "Alice", "a.go") +
		commitEntry(2, "Bob", "c.go")

	metric := NewAnalyzer(nil).Analyze(1, log)

	require.Len(t, metric.AuthorStats(), 2)
	alice := metric.AuthorStats()[0]
	assert.Equal(t, "Alice", alice.Name)
	assert.Equal(t, "alice@example.com", alice.Email)
	assert.Equal(t, 2, alice.Commits)
	assert.Equal(t, 2, alice.FilesTouched)
	assert.True(t, alice.FirstCommit.Before(alice.LastCommit))
}
