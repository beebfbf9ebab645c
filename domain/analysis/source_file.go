package analysis

import (
	"strings"
	"time"
)

// MaxStoredContentChars caps how much of a file's content is persisted.
// Scanning always runs on the original read buffer, not the stored copy.
const MaxStoredContentChars = 50000

// SourceFile is a stored snapshot of one file in a repository,
// uniquely identified by (repository, path).
type SourceFile struct {
	id           int64
	repositoryID int64
	path         string
	content      string
	language     LanguageTag
	lineCount    int
	sizeBytes    int64
	imports      []string
	modifiedAt   time.Time
}

// NewSourceFile creates a SourceFile from raw content. Content longer than
// MaxStoredContentChars is truncated at exactly the cap; line count and
// byte size reflect the original.
func NewSourceFile(repositoryID int64, path, content string, language LanguageTag, sizeBytes int64, modifiedAt time.Time) SourceFile {
	lineCount := strings.Count(content, "\n") + 1
	if content == "" {
		lineCount = 0
	}
	if len(content) > MaxStoredContentChars {
		content = content[:MaxStoredContentChars]
	}
	return SourceFile{
		repositoryID: repositoryID,
		path:         path,
		content:      content,
		language:     language,
		lineCount:    lineCount,
		sizeBytes:    sizeBytes,
		modifiedAt:   modifiedAt,
	}
}

// ReconstructSourceFile builds a SourceFile from stored fields.
func ReconstructSourceFile(id, repositoryID int64, path, content string, language LanguageTag, lineCount int, sizeBytes int64, imports []string, modifiedAt time.Time) SourceFile {
	return SourceFile{
		id:           id,
		repositoryID: repositoryID,
		path:         path,
		content:      content,
		language:     language,
		lineCount:    lineCount,
		sizeBytes:    sizeBytes,
		imports:      imports,
		modifiedAt:   modifiedAt,
	}
}

// ID returns the file ID.
func (f SourceFile) ID() int64 { return f.id }

// RepositoryID returns the owning repository's ID.
func (f SourceFile) RepositoryID() int64 { return f.repositoryID }

// Path returns the repository-relative path.
func (f SourceFile) Path() string { return f.path }

// Content returns the stored (possibly truncated) content.
func (f SourceFile) Content() string { return f.content }

// Language returns the detected language tag.
func (f SourceFile) Language() LanguageTag { return f.language }

// LineCount returns the original file's line count.
func (f SourceFile) LineCount() int { return f.lineCount }

// SizeBytes returns the original file's byte size.
func (f SourceFile) SizeBytes() int64 { return f.sizeBytes }

// Imports returns the import targets captured during extraction.
func (f SourceFile) Imports() []string { return f.imports }

// ModifiedAt returns the file's last-modified timestamp.
func (f SourceFile) ModifiedAt() time.Time { return f.modifiedAt }

// WithID returns a copy with the ID set.
func (f SourceFile) WithID(id int64) SourceFile {
	f.id = id
	return f
}

// WithImports returns a copy with the captured import targets set.
func (f SourceFile) WithImports(imports []string) SourceFile {
	f.imports = imports
	return f
}
