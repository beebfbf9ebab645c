package parsing

import (
	"context"
	"log/slog"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/repolens/repolens/domain/analysis"
)

// Parser parses source text into syntax trees. Unsupported language tags
// and malformed input produce a nil tree, never an error: callers treat
// nil as "nothing extractable".
type Parser struct {
	mu      sync.Mutex
	parsers map[analysis.LanguageTag]*cachedParser
	logger  *slog.Logger
}

// cachedParser wraps a tree-sitter parser with its own lock. Tree-sitter
// parsers are not safe for concurrent use.
type cachedParser struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewParser creates a Parser with an empty per-language cache.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		parsers: make(map[analysis.LanguageTag]*cachedParser),
		logger:  logger,
	}
}

// Parse parses source for the given language tag. Returns nil when the tag
// has no grammar or the source cannot be parsed.
func (p *Parser) Parse(ctx context.Context, source []byte, tag analysis.LanguageTag) *sitter.Tree {
	cached, ok := p.parserFor(tag)
	if !ok {
		return nil
	}

	cached.mu.Lock()
	defer cached.mu.Unlock()

	tree, err := safeParse(ctx, cached.parser, source)
	if err != nil {
		p.logger.Debug("parse failed",
			slog.String("language", string(tag)),
			slog.String("error", err.Error()),
		)
		return nil
	}

	return tree
}

func (p *Parser) parserFor(tag analysis.LanguageTag) (*cachedParser, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cached, ok := p.parsers[tag]; ok {
		return cached, true
	}

	grammar, ok := GrammarFor(tag)
	if !ok {
		return nil, false
	}

	parser := sitter.NewParser()
	parser.SetLanguage(grammar.Language())

	cached := &cachedParser{parser: parser}
	p.parsers[tag] = cached
	return cached, true
}

// safeParse converts tree-sitter panics into errors so a single hostile
// input cannot take down a worker.
func safeParse(ctx context.Context, parser *sitter.Parser, source []byte) (tree *sitter.Tree, err error) {
	defer func() {
		if r := recover(); r != nil {
			tree = nil
			err = panicError{value: r}
		}
	}()

	return parser.ParseCtx(ctx, nil, source)
}

type panicError struct {
	value any
}

func (e panicError) Error() string {
	if s, ok := e.value.(string); ok {
		return s
	}
	if err, ok := e.value.(error); ok {
		return err.Error()
	}
	return "parser panic"
}
