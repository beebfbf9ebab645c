// Package history computes ownership and bus-factor metrics from raw
// commit-log text.
package history

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/repolens/repolens/domain/analysis"
)

// Ownership thresholds.
const (
	singleOwnerThreshold = 80  // primary percentage marking a single-owner file
	backupThreshold      = 0.2 // a second contributor above this fraction counts as backup
	siloMinFiles         = 5
	siloHighFiles        = 10
	criticalMinScore     = 10.0
	criticalHighScore    = 15.0
	criticalCriticalScore = 30.0
	maxCriticalFiles     = 20
)

// codeExtensions is the fixed allow-list for ownership computation.
// Non-code files never count toward bus factor.
var codeExtensions = buildCodeExtensions()

func buildCodeExtensions() map[string]struct{} {
	set := make(map[string]struct{})
	for _, ext := range analysis.SupportedExtensions() {
		set[ext] = struct{}{}
	}
	for _, ext := range []string{".rb", ".php", ".cs", ".swift", ".kt", ".scala"} {
		set[ext] = struct{}{}
	}
	return set
}

// commitRecord is one parsed commit. Ephemeral; exists only during
// analysis.
type commitRecord struct {
	hash   string
	author string
	email  string
	when   time.Time
	files  []string
}

// Analyzer turns a commit log into a BusFactorMetric. It never returns an
// error: any parse or computation failure yields a degraded metric so
// history analysis cannot abort the rest of a pipeline run.
type Analyzer struct {
	logger *slog.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{logger: logger}
}

// Analyze parses the commit log and computes the full ownership report.
func (a *Analyzer) Analyze(repositoryID int64, commitLog string) (metric analysis.BusFactorMetric) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("history analysis panicked", slog.Any("panic", r))
			metric = analysis.DegradedBusFactorMetric(repositoryID, fmt.Sprintf("history analysis panicked: %v", r))
		}
	}()

	commits, err := parseCommitLog(commitLog)
	if err != nil {
		return analysis.DegradedBusFactorMetric(repositoryID, err.Error())
	}
	if len(commits) == 0 {
		return analysis.DegradedBusFactorMetric(repositoryID, "no commits in history")
	}

	return a.compute(repositoryID, commits)
}

// parseCommitLog reads records of the form "hash|author|email|unixts"
// followed by the touched file paths, separated by blank lines.
func parseCommitLog(commitLog string) ([]commitRecord, error) {
	var (
		commits []commitRecord
		current *commitRecord
	)

	for _, line := range strings.Split(commitLog, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if header, ok := parseHeader(line); ok {
			commits = append(commits, header)
			current = &commits[len(commits)-1]
			continue
		}

		if current == nil {
			return nil, fmt.Errorf("malformed commit log: file path before any commit header")
		}
		current.files = append(current.files, line)
	}

	return commits, nil
}

func parseHeader(line string) (commitRecord, bool) {
	parts := strings.SplitN(line, "|", 4)
	if len(parts) != 4 {
		return commitRecord{}, false
	}

	ts, err := strconv.ParseInt(strings.TrimSpace(parts[3]), 10, 64)
	if err != nil {
		return commitRecord{}, false
	}

	return commitRecord{
		hash:   parts[0],
		author: parts[1],
		email:  parts[2],
		when:   time.Unix(ts, 0).UTC(),
	}, true
}

func isCodeFile(path string) bool {
	_, ok := codeExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

type authorAccumulator struct {
	email   string
	commits int
	files   map[string]struct{}
	first   time.Time
	last    time.Time
}

func (a *Analyzer) compute(repositoryID int64, commits []commitRecord) analysis.BusFactorMetric {
	fileCommits := make(map[string]map[string]int)
	authors := make(map[string]*authorAccumulator)

	for _, c := range commits {
		acc, ok := authors[c.author]
		if !ok {
			acc = &authorAccumulator{
				email: c.email,
				files: make(map[string]struct{}),
				first: c.when,
				last:  c.when,
			}
			authors[c.author] = acc
		}
		acc.commits++
		if c.when.Before(acc.first) {
			acc.first = c.when
		}
		if c.when.After(acc.last) {
			acc.last = c.when
		}

		for _, path := range c.files {
			acc.files[path] = struct{}{}
			if !isCodeFile(path) {
				continue
			}
			if fileCommits[path] == nil {
				fileCommits[path] = make(map[string]int)
			}
			fileCommits[path][c.author]++
		}
	}

	if len(fileCommits) == 0 {
		return analysis.DegradedBusFactorMetric(repositoryID, "no code files in commit history")
	}

	ownership := buildOwnership(fileCommits)
	score := busFactorScore(ownership, len(fileCommits))
	singleOwnerPct := singleOwnerPercentage(ownership)
	silos := knowledgeSilos(ownership)
	critical := criticalFiles(fileCommits, ownership)

	return analysis.NewBusFactorMetric(
		repositoryID,
		score,
		analysis.ClassifyBusFactor(score),
		len(commits),
		len(authors),
		singleOwnerPct,
		ownership,
		buildAuthorStats(authors),
		critical,
		silos,
	)
}

// buildOwnership resolves the primary author and percentage for every code
// file. Results are sorted by commit count so the heaviest files lead.
func buildOwnership(fileCommits map[string]map[string]int) []analysis.FileOwnership {
	ownership := make([]analysis.FileOwnership, 0, len(fileCommits))

	for path, byAuthor := range fileCommits {
		total := 0
		primary := ""
		primaryCount := 0
		for author, count := range byAuthor {
			total += count
			if count > primaryCount || (count == primaryCount && author < primary) {
				primary = author
				primaryCount = count
			}
		}

		ownership = append(ownership, analysis.FileOwnership{
			Path:              path,
			TotalCommits:      total,
			PrimaryAuthor:     primary,
			PrimaryPercentage: roundPct(float64(primaryCount) / float64(total)),
		})
	}

	sort.Slice(ownership, func(i, j int) bool {
		if ownership[i].TotalCommits != ownership[j].TotalCommits {
			return ownership[i].TotalCommits > ownership[j].TotalCommits
		}
		return ownership[i].Path < ownership[j].Path
	})

	return ownership
}

// busFactorScore reproduces the smoothed bus-factor formula: greedy
// coverage to 50% of code files, plus a fractional adjustment when the
// resulting coverage lands below 0.6. The formula is intentionally
// asymmetric; do not simplify it.
func busFactorScore(ownership []analysis.FileOwnership, totalFiles int) float64 {
	owned := make(map[string]int)
	for _, o := range ownership {
		owned[o.PrimaryAuthor]++
	}

	counts := make([]int, 0, len(owned))
	for _, n := range owned {
		counts = append(counts, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))

	covered := 0
	base := 0
	for _, n := range counts {
		covered += n
		base++
		if float64(covered) >= float64(totalFiles)*0.5 {
			break
		}
	}

	coverage := float64(covered) / float64(totalFiles)
	score := float64(base)
	if coverage < 0.6 {
		score += (0.5 - (coverage - 0.5)) * 2
	}
	if score < 0 {
		score = 0
	}

	return math.Round(score*10) / 10
}

func singleOwnerPercentage(ownership []analysis.FileOwnership) int {
	single := 0
	for _, o := range ownership {
		if o.PrimaryPercentage >= singleOwnerThreshold {
			single++
		}
	}
	return roundPct(float64(single) / float64(len(ownership)))
}

// knowledgeSilos groups single-owner files by author and top-level
// directory. Only clusters of at least five files are reported.
func knowledgeSilos(ownership []analysis.FileOwnership) []analysis.KnowledgeSilo {
	type siloKey struct {
		author string
		dir    string
	}

	groups := make(map[siloKey]int)
	for _, o := range ownership {
		if o.PrimaryPercentage < singleOwnerThreshold {
			continue
		}
		groups[siloKey{author: o.PrimaryAuthor, dir: topLevelDir(o.Path)}]++
	}

	var silos []analysis.KnowledgeSilo
	for key, count := range groups {
		if count < siloMinFiles {
			continue
		}
		risk := analysis.BusRiskMedium
		if count > siloHighFiles {
			risk = analysis.BusRiskHigh
		}
		silos = append(silos, analysis.KnowledgeSilo{
			Author:    key.author,
			Directory: key.dir,
			FileCount: count,
			Risk:      risk,
		})
	}

	sort.Slice(silos, func(i, j int) bool {
		if silos[i].FileCount != silos[j].FileCount {
			return silos[i].FileCount > silos[j].FileCount
		}
		return silos[i].Author < silos[j].Author
	})

	return silos
}

// criticalFiles finds heavily-committed files with no second contributor
// above the backup threshold.
func criticalFiles(fileCommits map[string]map[string]int, ownership []analysis.FileOwnership) []analysis.CriticalFile {
	var critical []analysis.CriticalFile

	for _, o := range ownership {
		if o.PrimaryPercentage < singleOwnerThreshold {
			continue
		}

		if hasBackupOwner(fileCommits[o.Path], o.PrimaryAuthor, o.TotalCommits) {
			continue
		}

		score := float64(o.TotalCommits) * float64(o.PrimaryPercentage) / 100
		if score < criticalMinScore {
			continue
		}

		risk := analysis.BusRiskMedium
		switch {
		case score > criticalCriticalScore:
			risk = analysis.BusRiskCritical
		case score > criticalHighScore:
			risk = analysis.BusRiskHigh
		}

		critical = append(critical, analysis.CriticalFile{
			Path:              o.Path,
			TotalCommits:      o.TotalCommits,
			PrimaryAuthor:     o.PrimaryAuthor,
			PrimaryPercentage: o.PrimaryPercentage,
			Score:             score,
			Risk:              risk,
		})
	}

	sort.Slice(critical, func(i, j int) bool {
		if critical[i].TotalCommits != critical[j].TotalCommits {
			return critical[i].TotalCommits > critical[j].TotalCommits
		}
		return critical[i].Path < critical[j].Path
	})

	if len(critical) > maxCriticalFiles {
		critical = critical[:maxCriticalFiles]
	}

	return critical
}

func hasBackupOwner(byAuthor map[string]int, primary string, total int) bool {
	for author, count := range byAuthor {
		if author == primary {
			continue
		}
		if float64(count)/float64(total) > backupThreshold {
			return true
		}
	}
	return false
}

func buildAuthorStats(authors map[string]*authorAccumulator) []analysis.AuthorStats {
	stats := make([]analysis.AuthorStats, 0, len(authors))
	for name, acc := range authors {
		stats = append(stats, analysis.AuthorStats{
			Name:         name,
			Email:        acc.email,
			Commits:      acc.commits,
			FilesTouched: len(acc.files),
			FirstCommit:  acc.first,
			LastCommit:   acc.last,
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Commits != stats[j].Commits {
			return stats[i].Commits > stats[j].Commits
		}
		return stats[i].Name < stats[j].Name
	})

	return stats
}

func topLevelDir(path string) string {
	if idx := strings.IndexByte(path, '/'); idx > 0 {
		return path[:idx]
	}
	return "."
}

func roundPct(fraction float64) int {
	return int(math.Round(fraction * 100))
}
