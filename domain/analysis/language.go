// Package analysis provides the code-analysis domain: source files,
// extracted entities, security findings, bus-factor metrics, and risk
// scoring.
package analysis

import (
	"path/filepath"
	"strings"
)

// LanguageTag identifies a supported source language.
type LanguageTag string

// LanguageTag values.
const (
	LangJavaScript LanguageTag = "javascript"
	LangTypeScript LanguageTag = "typescript"
	LangTSX        LanguageTag = "tsx"
	LangPython     LanguageTag = "python"
	LangGo         LanguageTag = "go"
	LangRust       LanguageTag = "rust"
	LangJava       LanguageTag = "java"
	LangC          LanguageTag = "c"
	LangCPP        LanguageTag = "cpp"
	LangUnknown    LanguageTag = "unknown"
)

// extensionTags is the fixed extension-to-tag table. JSX and TSX share the
// TSX grammar (the TypeScript family superset).
var extensionTags = map[string]LanguageTag{
	".js":  LangJavaScript,
	".mjs": LangJavaScript,
	".cjs": LangJavaScript,
	".ts":  LangTypeScript,
	".jsx": LangTSX,
	".tsx": LangTSX,
	".py":  LangPython,
	".go":  LangGo,
	".rs":  LangRust,
	".java": LangJava,
	".c":   LangC,
	".h":   LangC,
	".cpp": LangCPP,
	".cc":  LangCPP,
	".cxx": LangCPP,
	".hpp": LangCPP,
}

// DetectLanguage maps a file path's extension to a language tag.
// Unknown extensions map to LangUnknown, never an error.
func DetectLanguage(path string) LanguageTag {
	ext := strings.ToLower(filepath.Ext(path))
	if tag, ok := extensionTags[ext]; ok {
		return tag
	}
	return LangUnknown
}

// SupportedExtensions returns the extensions the detector recognises,
// used by file discovery to enumerate candidates.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionTags))
	for ext := range extensionTags {
		exts = append(exts, ext)
	}
	return exts
}

// String returns the string representation of the tag.
func (t LanguageTag) String() string {
	return string(t)
}
