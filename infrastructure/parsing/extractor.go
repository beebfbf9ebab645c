package parsing

import (
	"log/slog"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/repolens/repolens/domain/analysis"
)

// Extraction holds what a single file's syntax tree yielded.
type Extraction struct {
	entities []analysis.CodeEntity
	imports  []string
}

// Entities returns the extracted code entities.
func (x Extraction) Entities() []analysis.CodeEntity { return x.entities }

// Imports returns the captured import target strings.
func (x Extraction) Imports() []string { return x.imports }

// Extractor walks syntax trees and produces code entities. A failure on
// one tree never propagates; the caller gets an empty Extraction instead.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract walks the tree once, depth first, collecting function and class
// entities plus import targets. A nil tree yields an empty Extraction.
func (e *Extractor) Extract(tree *sitter.Tree, source []byte, tag analysis.LanguageTag, repositoryID int64, filePath string) Extraction {
	if tree == nil {
		return Extraction{}
	}
	grammar, ok := GrammarFor(tag)
	if !ok {
		return Extraction{}
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("entity extraction panicked",
				slog.String("path", filePath),
				slog.Any("panic", r),
			)
		}
	}()

	lines := strings.Split(string(source), "\n")
	walk := &treeWalk{
		grammar:      grammar,
		source:       source,
		lines:        lines,
		repositoryID: repositoryID,
		filePath:     filePath,
	}
	walk.visit(tree.RootNode())

	return Extraction{entities: walk.entities, imports: walk.imports}
}

// treeWalk carries state for one depth-first traversal.
type treeWalk struct {
	grammar      Grammar
	source       []byte
	lines        []string
	repositoryID int64
	filePath     string
	entities     []analysis.CodeEntity
	imports      []string
}

func (w *treeWalk) visit(node *sitter.Node) {
	if node == nil {
		return
	}

	// Keyword tokens reuse named node type strings in some grammars (the
	// bare "function" and "class" tokens in JavaScript), so only named
	// nodes are matched against the kind tables.
	if kind := node.Type(); node.IsNamed() {
		switch {
		case w.grammar.IsFunction(kind):
			w.entities = append(w.entities, w.buildEntity(node, analysis.EntityFunction, w.complexity(node)))
		case w.grammar.IsClass(kind):
			w.entities = append(w.entities, w.buildEntity(node, analysis.EntityClass, 1))
		case w.grammar.IsImport(kind):
			w.imports = append(w.imports, w.stringLiterals(node)...)
		case kind == "call_expression" || kind == "call":
			if target, ok := w.requireTarget(node); ok {
				w.imports = append(w.imports, target)
			}
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		w.visit(node.Child(i))
	}
}

func (w *treeWalk) buildEntity(node *sitter.Node, kind analysis.EntityKind, complexity int) analysis.CodeEntity {
	startLine := int(node.StartPoint().Row) + 1
	endLine := int(node.EndPoint().Row) + 1

	return analysis.NewCodeEntity(
		w.repositoryID,
		w.filePath,
		kind,
		w.entityName(node),
		w.signature(startLine),
		startLine,
		endLine,
		complexity,
	)
}

// entityName finds the nearest identifier below node, breadth first, so a
// direct name child wins over identifiers buried in parameters or bodies.
func (w *treeWalk) entityName(node *sitter.Node) string {
	queue := make([]*sitter.Node, 0, int(node.ChildCount()))
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil {
			queue = append(queue, child)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if w.grammar.IsIdentifier(current.Type()) {
			return w.nodeText(current)
		}
		// Do not descend into nested declarations; their names are theirs.
		if w.grammar.IsFunction(current.Type()) || w.grammar.IsClass(current.Type()) {
			continue
		}

		for i := 0; i < int(current.ChildCount()); i++ {
			if child := current.Child(i); child != nil {
				queue = append(queue, child)
			}
		}
	}

	return ""
}

// signature is the first source line the entity spans, trimmed.
func (w *treeWalk) signature(startLine int) string {
	if startLine < 1 || startLine > len(w.lines) {
		return ""
	}
	return strings.TrimSpace(w.lines[startLine-1])
}

// complexity is the cyclomatic estimate: 1 plus every branch point in the
// subtree. Short-circuit operators count because each adds a path.
func (w *treeWalk) complexity(fn *sitter.Node) int {
	score := 1

	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		kind := node.Type()
		switch {
		case w.grammar.IsConditional(kind),
			w.grammar.IsLoop(kind),
			w.grammar.IsSwitch(kind),
			w.grammar.IsCatch(kind):
			score++
		case w.grammar.IsBinary(kind):
			if w.grammar.IsLogicalOperator(w.operatorText(node)) {
				score++
			}
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}

	for i := 0; i < int(fn.ChildCount()); i++ {
		walk(fn.Child(i))
	}

	return score
}

// operatorText returns a binary node's operator token.
func (w *treeWalk) operatorText(node *sitter.Node) string {
	if op := node.ChildByFieldName("operator"); op != nil {
		return w.nodeText(op)
	}
	// Grammars without an operator field keep the token between the
	// operands as an unnamed middle child.
	if node.ChildCount() == 3 {
		return w.nodeText(node.Child(1))
	}
	return ""
}

// stringLiterals collects the unquoted string literals below node.
func (w *treeWalk) stringLiterals(node *sitter.Node) []string {
	var literals []string

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if isStringKind(n.Type()) {
			if text := unquote(w.nodeText(n)); text != "" {
				literals = append(literals, text)
			}
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)

	return literals
}

// requireTarget captures the literal first argument of a require-like call.
func (w *treeWalk) requireTarget(call *sitter.Node) (string, bool) {
	fn := call.ChildByFieldName("function")
	if fn == nil && call.ChildCount() > 0 {
		fn = call.Child(0)
	}
	if fn == nil || !w.grammar.IsRequireName(w.nodeText(fn)) {
		return "", false
	}

	args := call.ChildByFieldName("arguments")
	if args == nil {
		return "", false
	}
	for i := 0; i < int(args.ChildCount()); i++ {
		child := args.Child(i)
		if child != nil && isStringKind(child.Type()) {
			if text := unquote(w.nodeText(child)); text != "" {
				return text, true
			}
			return "", false
		}
	}

	return "", false
}

func (w *treeWalk) nodeText(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start >= uint32(len(w.source)) || end > uint32(len(w.source)) || start >= end {
		return ""
	}
	return string(w.source[start:end])
}

func isStringKind(kind string) bool {
	switch kind {
	case "string", "string_literal", "interpreted_string_literal", "raw_string_literal", "string_fragment":
		return true
	}
	return false
}

func unquote(s string) string {
	return strings.Trim(s, "\"'`")
}
