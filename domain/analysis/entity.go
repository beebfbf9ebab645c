package analysis

// EntityKind classifies an extracted code entity.
type EntityKind string

// EntityKind values.
const (
	EntityFunction EntityKind = "function"
	EntityClass    EntityKind = "class"
)

// AnonymousName is the placeholder for entities without a resolvable name.
const AnonymousName = "anonymous"

// CodeEntity is a structural unit (function or class) extracted from a
// parsed source file. Immutable after creation.
type CodeEntity struct {
	id           int64
	repositoryID int64
	fileID       int64
	filePath     string
	kind         EntityKind
	name         string
	signature    string
	startLine    int
	endLine      int
	complexity   int
}

// NewCodeEntity creates a CodeEntity. Lines are 1-indexed inclusive;
// complexity is clamped to a minimum of 1 and an empty name becomes
// AnonymousName.
func NewCodeEntity(repositoryID int64, filePath string, kind EntityKind, name, signature string, startLine, endLine, complexity int) CodeEntity {
	if name == "" {
		name = AnonymousName
	}
	if complexity < 1 {
		complexity = 1
	}
	if endLine < startLine {
		endLine = startLine
	}
	return CodeEntity{
		repositoryID: repositoryID,
		filePath:     filePath,
		kind:         kind,
		name:         name,
		signature:    signature,
		startLine:    startLine,
		endLine:      endLine,
		complexity:   complexity,
	}
}

// ReconstructCodeEntity builds a CodeEntity from stored fields.
func ReconstructCodeEntity(id, repositoryID, fileID int64, filePath string, kind EntityKind, name, signature string, startLine, endLine, complexity int) CodeEntity {
	return CodeEntity{
		id:           id,
		repositoryID: repositoryID,
		fileID:       fileID,
		filePath:     filePath,
		kind:         kind,
		name:         name,
		signature:    signature,
		startLine:    startLine,
		endLine:      endLine,
		complexity:   complexity,
	}
}

// ID returns the entity ID.
func (e CodeEntity) ID() int64 { return e.id }

// RepositoryID returns the owning repository's ID.
func (e CodeEntity) RepositoryID() int64 { return e.repositoryID }

// FileID returns the owning file's ID.
func (e CodeEntity) FileID() int64 { return e.fileID }

// FilePath returns the owning file's repository-relative path.
func (e CodeEntity) FilePath() string { return e.filePath }

// Kind returns the entity kind.
func (e CodeEntity) Kind() EntityKind { return e.kind }

// Name returns the entity name.
func (e CodeEntity) Name() string { return e.name }

// Signature returns the first source line spanned by the entity.
func (e CodeEntity) Signature() string { return e.signature }

// StartLine returns the 1-indexed first line.
func (e CodeEntity) StartLine() int { return e.startLine }

// EndLine returns the 1-indexed last line (inclusive).
func (e CodeEntity) EndLine() int { return e.endLine }

// Complexity returns the cyclomatic complexity estimate (>= 1).
func (e CodeEntity) Complexity() int { return e.complexity }

// WithFileID returns a copy bound to a stored file record.
func (e CodeEntity) WithFileID(fileID int64) CodeEntity {
	e.fileID = fileID
	return e
}
