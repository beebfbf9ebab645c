package repository

// AnalysisStatus represents where a repository sits in the analysis lifecycle.
type AnalysisStatus string

// AnalysisStatus values.
const (
	StatusPending   AnalysisStatus = "pending"
	StatusQueued    AnalysisStatus = "queued"
	StatusCloning   AnalysisStatus = "cloning"
	StatusParsing   AnalysisStatus = "parsing"
	StatusCompleted AnalysisStatus = "completed"
	StatusFailed    AnalysisStatus = "failed"
)

// IsTerminal reports whether the status is a final state for a run.
func (s AnalysisStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsInProgress reports whether an analysis run is underway.
func (s AnalysisStatus) IsInProgress() bool {
	return s == StatusQueued || s == StatusCloning || s == StatusParsing
}

// String returns the string representation of the status.
func (s AnalysisStatus) String() string {
	return string(s)
}

// CanTransition reports whether moving from s to next is a legal status
// transition. Transitions are monotonic forward; failed is reachable from
// any in-progress state; failed and completed repositories may be re-queued.
func (s AnalysisStatus) CanTransition(next AnalysisStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusQueued || next == StatusFailed
	case StatusQueued:
		return next == StatusCloning || next == StatusFailed
	case StatusCloning:
		return next == StatusParsing || next == StatusFailed
	case StatusParsing:
		return next == StatusCompleted || next == StatusFailed
	case StatusCompleted, StatusFailed:
		return next == StatusQueued
	default:
		return false
	}
}
