package analysis

import "time"

// BusRiskLevel classifies a bus-factor score.
type BusRiskLevel string

// BusRiskLevel values. Unknown marks a degraded result from a failed
// history analysis.
const (
	BusRiskCritical BusRiskLevel = "CRITICAL"
	BusRiskHigh     BusRiskLevel = "HIGH"
	BusRiskMedium   BusRiskLevel = "MEDIUM"
	BusRiskLow      BusRiskLevel = "LOW"
	BusRiskUnknown  BusRiskLevel = "UNKNOWN"
)

// ClassifyBusFactor maps a bus-factor score to a risk level.
func ClassifyBusFactor(score float64) BusRiskLevel {
	switch {
	case score <= 1.5:
		return BusRiskCritical
	case score <= 2.5:
		return BusRiskHigh
	case score <= 4:
		return BusRiskMedium
	default:
		return BusRiskLow
	}
}

// FileOwnership describes who owns a file's commit history.
type FileOwnership struct {
	Path              string `json:"path"`
	TotalCommits      int    `json:"total_commits"`
	PrimaryAuthor     string `json:"primary_author"`
	PrimaryPercentage int    `json:"primary_percentage"`
}

// AuthorStats summarises one author's activity.
type AuthorStats struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Commits     int       `json:"commits"`
	FilesTouched int      `json:"files_touched"`
	FirstCommit time.Time `json:"first_commit"`
	LastCommit  time.Time `json:"last_commit"`
}

// KnowledgeSilo is a directory-scoped cluster of files effectively owned by
// one author.
type KnowledgeSilo struct {
	Author    string       `json:"author"`
	Directory string       `json:"directory"`
	FileCount int          `json:"file_count"`
	Risk      BusRiskLevel `json:"risk"`
}

// CriticalFile is a heavily-committed file with no meaningful backup owner.
type CriticalFile struct {
	Path              string       `json:"path"`
	TotalCommits      int          `json:"total_commits"`
	PrimaryAuthor     string       `json:"primary_author"`
	PrimaryPercentage int          `json:"primary_percentage"`
	Score             float64      `json:"score"`
	Risk              BusRiskLevel `json:"risk"`
}

// BusFactorMetric is one repository's knowledge-concentration snapshot.
// One metric is produced per analysis run and appended, never updated,
// to support trend queries.
type BusFactorMetric struct {
	id            int64
	repositoryID  int64
	busFactor     float64
	riskLevel     BusRiskLevel
	totalCommits  int
	uniqueAuthors int
	singleOwnerPct int
	fileOwnership []FileOwnership
	authorStats   []AuthorStats
	criticalFiles []CriticalFile
	knowledgeSilos []KnowledgeSilo
	errorMessage  string
	createdAt     time.Time
}

// NewBusFactorMetric creates a snapshot for a repository.
func NewBusFactorMetric(
	repositoryID int64,
	busFactor float64,
	riskLevel BusRiskLevel,
	totalCommits, uniqueAuthors, singleOwnerPct int,
	fileOwnership []FileOwnership,
	authorStats []AuthorStats,
	criticalFiles []CriticalFile,
	knowledgeSilos []KnowledgeSilo,
) BusFactorMetric {
	return BusFactorMetric{
		repositoryID:  repositoryID,
		busFactor:     busFactor,
		riskLevel:     riskLevel,
		totalCommits:  totalCommits,
		uniqueAuthors: uniqueAuthors,
		singleOwnerPct: singleOwnerPct,
		fileOwnership: fileOwnership,
		authorStats:   authorStats,
		criticalFiles: criticalFiles,
		knowledgeSilos: knowledgeSilos,
		createdAt:     time.Now().UTC(),
	}
}

// DegradedBusFactorMetric is the sentinel result for a failed history
// analysis: bus factor 0, risk UNKNOWN, error message attached.
func DegradedBusFactorMetric(repositoryID int64, message string) BusFactorMetric {
	return BusFactorMetric{
		repositoryID: repositoryID,
		riskLevel:    BusRiskUnknown,
		errorMessage: message,
		createdAt:    time.Now().UTC(),
	}
}

// ReconstructBusFactorMetric builds a metric from stored fields.
func ReconstructBusFactorMetric(
	id, repositoryID int64,
	busFactor float64,
	riskLevel BusRiskLevel,
	totalCommits, uniqueAuthors, singleOwnerPct int,
	fileOwnership []FileOwnership,
	authorStats []AuthorStats,
	criticalFiles []CriticalFile,
	knowledgeSilos []KnowledgeSilo,
	errorMessage string,
	createdAt time.Time,
) BusFactorMetric {
	return BusFactorMetric{
		id:            id,
		repositoryID:  repositoryID,
		busFactor:     busFactor,
		riskLevel:     riskLevel,
		totalCommits:  totalCommits,
		uniqueAuthors: uniqueAuthors,
		singleOwnerPct: singleOwnerPct,
		fileOwnership: fileOwnership,
		authorStats:   authorStats,
		criticalFiles: criticalFiles,
		knowledgeSilos: knowledgeSilos,
		errorMessage:  errorMessage,
		createdAt:     createdAt,
	}
}

// ID returns the snapshot ID.
func (m BusFactorMetric) ID() int64 { return m.id }

// RepositoryID returns the owning repository's ID.
func (m BusFactorMetric) RepositoryID() int64 { return m.repositoryID }

// BusFactor returns the smoothed bus-factor score.
func (m BusFactorMetric) BusFactor() float64 { return m.busFactor }

// RiskLevel returns the risk classification.
func (m BusFactorMetric) RiskLevel() BusRiskLevel { return m.riskLevel }

// TotalCommits returns the analysed commit count.
func (m BusFactorMetric) TotalCommits() int { return m.totalCommits }

// UniqueAuthors returns the distinct author count.
func (m BusFactorMetric) UniqueAuthors() int { return m.uniqueAuthors }

// SingleOwnerPct returns the percentage of code files where one author
// holds at least 80% of commits.
func (m BusFactorMetric) SingleOwnerPct() int { return m.singleOwnerPct }

// FileOwnership returns per-file ownership records.
func (m BusFactorMetric) FileOwnership() []FileOwnership { return m.fileOwnership }

// AuthorStats returns per-author statistics.
func (m BusFactorMetric) AuthorStats() []AuthorStats { return m.authorStats }

// CriticalFiles returns files with no meaningful backup owner.
func (m BusFactorMetric) CriticalFiles() []CriticalFile { return m.criticalFiles }

// KnowledgeSilos returns directory-scoped single-owner clusters.
func (m BusFactorMetric) KnowledgeSilos() []KnowledgeSilo { return m.knowledgeSilos }

// Error returns the degradation message, empty for a healthy result.
func (m BusFactorMetric) Error() string { return m.errorMessage }

// IsDegraded reports whether this is a sentinel result from a failed
// history analysis.
func (m BusFactorMetric) IsDegraded() bool { return m.riskLevel == BusRiskUnknown }

// CreatedAt returns when the snapshot was taken.
func (m BusFactorMetric) CreatedAt() time.Time { return m.createdAt }

// WithID returns a copy with the ID set.
func (m BusFactorMetric) WithID(id int64) BusFactorMetric {
	m.id = id
	return m
}
