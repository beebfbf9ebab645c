package analysis

// Severity grades a security finding.
type Severity string

// Severity values, highest first.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Category tags what kind of problem a rule detects.
type Category string

// Category values.
const (
	CategorySecret           Category = "secret"
	CategoryVulnerability    Category = "vulnerability"
	CategoryBackdoor         Category = "backdoor"
	CategoryMisconfiguration Category = "misconfiguration"
	CategoryRisk             Category = "risk"
)

// FindingStatus tracks a human reviewer's verdict on a finding.
type FindingStatus string

// FindingStatus values.
const (
	FindingOpen          FindingStatus = "open"
	FindingFalsePositive FindingStatus = "false_positive"
	FindingResolved      FindingStatus = "resolved"
)

// IsValid reports whether s is a known finding status.
func (s FindingStatus) IsValid() bool {
	switch s {
	case FindingOpen, FindingFalsePositive, FindingResolved:
		return true
	}
	return false
}

// Confidence bounds for findings. The base is reduced for test/comment
// context and clamped to the minimum.
const (
	MaxConfidence = 0.8
	MinConfidence = 0.3
)

// maxEvidenceChars caps the evidence snippet length.
const maxEvidenceChars = 100

// SecurityFinding is one instance of a security rule matching a line of
// source code. Content is immutable once created; only Status may change.
type SecurityFinding struct {
	id           int64
	repositoryID int64
	fileID       int64
	filePath     string
	ruleID       string
	severity     Severity
	category     Category
	lineNumber   int
	description  string
	evidence     string
	confidence   float64
	status       FindingStatus
}

// NewSecurityFinding creates an open finding. Evidence is truncated to 100
// characters; confidence is clamped into [MinConfidence, MaxConfidence];
// line numbers below 1 are raised to 1.
func NewSecurityFinding(repositoryID int64, filePath, ruleID string, severity Severity, category Category, lineNumber int, description, evidence string, confidence float64) SecurityFinding {
	if lineNumber < 1 {
		lineNumber = 1
	}
	if runes := []rune(evidence); len(runes) > maxEvidenceChars {
		evidence = string(runes[:maxEvidenceChars])
	}
	if confidence > MaxConfidence {
		confidence = MaxConfidence
	}
	if confidence < MinConfidence {
		confidence = MinConfidence
	}
	return SecurityFinding{
		repositoryID: repositoryID,
		filePath:     filePath,
		ruleID:       ruleID,
		severity:     severity,
		category:     category,
		lineNumber:   lineNumber,
		description:  description,
		evidence:     evidence,
		confidence:   confidence,
		status:       FindingOpen,
	}
}

// ReconstructSecurityFinding builds a SecurityFinding from stored fields.
func ReconstructSecurityFinding(id, repositoryID, fileID int64, filePath, ruleID string, severity Severity, category Category, lineNumber int, description, evidence string, confidence float64, status FindingStatus) SecurityFinding {
	return SecurityFinding{
		id:           id,
		repositoryID: repositoryID,
		fileID:       fileID,
		filePath:     filePath,
		ruleID:       ruleID,
		severity:     severity,
		category:     category,
		lineNumber:   lineNumber,
		description:  description,
		evidence:     evidence,
		confidence:   confidence,
		status:       status,
	}
}

// ID returns the finding ID.
func (f SecurityFinding) ID() int64 { return f.id }

// RepositoryID returns the owning repository's ID.
func (f SecurityFinding) RepositoryID() int64 { return f.repositoryID }

// FileID returns the owning file's ID.
func (f SecurityFinding) FileID() int64 { return f.fileID }

// FilePath returns the matched file's repository-relative path.
func (f SecurityFinding) FilePath() string { return f.filePath }

// RuleID returns the identifier of the rule that fired.
func (f SecurityFinding) RuleID() string { return f.ruleID }

// Severity returns the finding severity.
func (f SecurityFinding) Severity() Severity { return f.severity }

// Category returns the finding category.
func (f SecurityFinding) Category() Category { return f.category }

// LineNumber returns the 1-indexed matched line.
func (f SecurityFinding) LineNumber() int { return f.lineNumber }

// Description returns the human-readable rule description.
func (f SecurityFinding) Description() string { return f.description }

// Evidence returns the trimmed, truncated matched line.
func (f SecurityFinding) Evidence() string { return f.evidence }

// Confidence returns the adjusted confidence in [0.3, 0.8].
func (f SecurityFinding) Confidence() float64 { return f.confidence }

// Status returns the reviewer status.
func (f SecurityFinding) Status() FindingStatus { return f.status }

// WithStatus returns a copy with the reviewer status set.
// Finding content itself is immutable.
func (f SecurityFinding) WithStatus(status FindingStatus) SecurityFinding {
	f.status = status
	return f
}

// WithFileID returns a copy bound to a stored file record.
func (f SecurityFinding) WithFileID(fileID int64) SecurityFinding {
	f.fileID = fileID
	return f
}
