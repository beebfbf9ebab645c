package scanning

import (
	"log/slog"
	"strings"

	"github.com/repolens/repolens/domain/analysis"
)

// Confidence deductions applied per line context.
const (
	testContextDeduction    = 0.2
	commentContextDeduction = 0.3
)

// testMarkers lower confidence when present anywhere in the matched line.
var testMarkers = []string{"test", "spec", "mock", "fixture"}

// Scanner applies the rule table line by line over raw source text. It is
// language independent and must never panic, whatever the input.
type Scanner struct {
	rules  []Rule
	logger *slog.Logger
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithExtraRules appends rules after the builtin table.
func WithExtraRules(rules []Rule) ScannerOption {
	return func(s *Scanner) {
		s.rules = append(s.rules, rules...)
	}
}

// NewScanner creates a Scanner with the builtin rule table.
func NewScanner(logger *slog.Logger, opts ...ScannerOption) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scanner{
		rules:  BuiltinRules(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rules returns the active rule table in order.
func (s *Scanner) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Scan matches every rule against every line of content. Line numbers are
// 1-indexed. One line may produce findings from several rules.
func (s *Scanner) Scan(repositoryID int64, filePath, content string) []analysis.SecurityFinding {
	if content == "" {
		return nil
	}

	var findings []analysis.SecurityFinding
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		lineNumber := i + 1
		for _, rule := range s.rules {
			matched := s.matchLine(rule, line)
			if !matched {
				continue
			}

			findings = append(findings, analysis.NewSecurityFinding(
				repositoryID,
				filePath,
				rule.ID(),
				rule.Severity(),
				rule.Category(),
				lineNumber,
				rule.Description(),
				strings.TrimSpace(line),
				lineConfidence(line),
			))
		}
	}

	return findings
}

// matchLine isolates rule evaluation so a misbehaving pattern is skipped
// for that line only.
func (s *Scanner) matchLine(rule Rule, line string) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			matched = false
			s.logger.Warn("rule match panicked",
				slog.String("rule", rule.ID()),
				slog.Any("panic", r),
			)
		}
	}()

	return rule.pattern.MatchString(line)
}

// lineConfidence starts at the base confidence and deducts for test and
// comment context. Clamping to the floor happens in the finding
// constructor.
func lineConfidence(line string) float64 {
	confidence := analysis.MaxConfidence

	lower := strings.ToLower(line)
	for _, marker := range testMarkers {
		if strings.Contains(lower, marker) {
			confidence -= testContextDeduction
			break
		}
	}

	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "*") {
		confidence -= commentContextDeduction
	}

	return confidence
}
