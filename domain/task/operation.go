package task

import "strings"

// Operation represents the type of task operation.
type Operation string

// Operation values for the task queue system.
const (
	OperationCloneRepository   Operation = "repolens.repository.clone"
	OperationAnalyzeRepository Operation = "repolens.repository.analyze"
	OperationHistoryRepository Operation = "repolens.repository.history"
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	return string(o)
}

// IsRepositoryOperation reports whether this operates on a repository.
func (o Operation) IsRepositoryOperation() bool {
	return strings.HasPrefix(string(o), "repolens.repository.")
}

// Kind classifies an operation for concurrency accounting: clone jobs and
// analysis jobs have independent ceilings.
type Kind string

// Kind values.
const (
	KindClone    Kind = "clone"
	KindAnalysis Kind = "analysis"
)

// Kind returns the concurrency class of the operation.
func (o Operation) Kind() Kind {
	if o == OperationCloneRepository {
		return KindClone
	}
	return KindAnalysis
}

// MaxAttempts returns the retry budget for the operation: clone jobs get
// 3 attempts with exponential backoff, analysis jobs 2 with none.
func (o Operation) MaxAttempts() int {
	if o == OperationCloneRepository {
		return 3
	}
	return 2
}

// AnalyzeRepositoryOperations is the prescribed sequence for a full
// analysis run. The first operation gets the highest priority offset so
// the sequence executes in order.
func AnalyzeRepositoryOperations() []Operation {
	return []Operation{
		OperationCloneRepository,
		OperationAnalyzeRepository,
		OperationHistoryRepository,
	}
}
