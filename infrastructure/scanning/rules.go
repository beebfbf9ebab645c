// Package scanning applies pattern rules to raw source text and produces
// security findings with exact line numbers.
package scanning

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/repolens/repolens/domain/analysis"
)

// Rule is one pattern in the ordered rule table.
type Rule struct {
	id          string
	name        string
	pattern     *regexp.Regexp
	severity    analysis.Severity
	category    analysis.Category
	description string
}

// NewRule compiles a rule from its parts.
func NewRule(id, name, pattern string, severity analysis.Severity, category analysis.Category, description string) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("compile rule %s: %w", id, err)
	}
	return Rule{
		id:          id,
		name:        name,
		pattern:     re,
		severity:    severity,
		category:    category,
		description: description,
	}, nil
}

// ID returns the rule identifier.
func (r Rule) ID() string { return r.id }

// Name returns the short rule name.
func (r Rule) Name() string { return r.name }

// Severity returns the severity attached to matches.
func (r Rule) Severity() analysis.Severity { return r.severity }

// Category returns the category attached to matches.
func (r Rule) Category() analysis.Category { return r.category }

// Description returns the human-readable description.
func (r Rule) Description() string { return r.description }

func mustRule(id, name, pattern string, severity analysis.Severity, category analysis.Category, description string) Rule {
	r, err := NewRule(id, name, pattern, severity, category, description)
	if err != nil {
		panic(err)
	}
	return r
}

// BuiltinRules returns the fixed, ordered rule table. Order is part of the
// contract: findings for one line are emitted in table order.
func BuiltinRules() []Rule {
	return []Rule{
		mustRule(
			"HARDCODED_SECRET",
			"Hardcoded secret",
			`(?i)(api[_-]?key|apikey|secret|token|access[_-]?key)\s*[:=]\s*["'][A-Za-z0-9_\-/+]{8,}["']`,
			analysis.SeverityCritical,
			analysis.CategorySecret,
			"API key, token, or secret assigned as a string literal",
		),
		mustRule(
			"HARDCODED_PASSWORD",
			"Hardcoded password",
			`(?i)(password|passwd|pwd)\s*[:=]\s*["'][^"']{4,}["']`,
			analysis.SeverityCritical,
			analysis.CategorySecret,
			"Password assigned as a string literal",
		),
		mustRule(
			"SQL_INJECTION",
			"SQL built by string concatenation",
			`(?i)\b(query|execute|exec)\s*\(\s*["'`+"`"+`][^"'`+"`"+`]*["'`+"`"+`]\s*\+`,
			analysis.SeverityHigh,
			analysis.CategoryVulnerability,
			"String concatenation into a query call invites SQL injection",
		),
		mustRule(
			"DANGEROUS_EVAL",
			"Dynamic code evaluation",
			`\beval\s*\(|new\s+Function\s*\(|\bexecfile\s*\(`,
			analysis.SeverityHigh,
			analysis.CategoryVulnerability,
			"Dynamic evaluation executes arbitrary strings as code",
		),
		mustRule(
			"INSECURE_RANDOM",
			"Insecure randomness",
			`Math\.random\s*\(|\brandom\.random\s*\(|\bmath/rand\b|\brand\(\)`,
			analysis.SeverityMedium,
			analysis.CategoryRisk,
			"Non-cryptographic randomness used where it may matter",
		),
		mustRule(
			"DEBUG_STATEMENT",
			"Debug statement left in code",
			`\bconsole\.(log|debug|trace)\s*\(|\bdebugger\b|\bpdb\.set_trace\s*\(|\bbreakpoint\s*\(`,
			analysis.SeverityLow,
			analysis.CategoryRisk,
			"Debug or breakpoint statement left in source",
		),
		mustRule(
			"SECURITY_TODO",
			"Security-relevant TODO",
			`(?i)\b(TODO|FIXME|HACK|XXX)\b.*(security|auth|password|token|encrypt|sanitiz)`,
			analysis.SeverityLow,
			analysis.CategoryRisk,
			"Unfinished security work flagged in a comment",
		),
		mustRule(
			"HTTP_URL",
			"Plain HTTP URL",
			`["'`+"`"+`]http://[^"'`+"`"+`\s]+`,
			analysis.SeverityMedium,
			analysis.CategoryMisconfiguration,
			"Unencrypted HTTP URL literal",
		),
		mustRule(
			"TLS_VERIFY_DISABLED",
			"TLS verification disabled",
			`(?i)rejectUnauthorized\s*:\s*false|InsecureSkipVerify\s*:\s*true|verify\s*=\s*False|NODE_TLS_REJECT_UNAUTHORIZED|CURLOPT_SSL_VERIFYPEER\s*,\s*(0|false)`,
			analysis.SeverityHigh,
			analysis.CategoryMisconfiguration,
			"Certificate verification turned off",
		),
		mustRule(
			"REMOTE_SHELL_EXEC",
			"Remote fetch piped to shell",
			`(?i)(curl|wget)[^|;]*\|\s*(sh|bash)\b|\b(system|popen|child_process\.exec)\s*\([^)]*(curl|wget)`,
			analysis.SeverityCritical,
			analysis.CategoryBackdoor,
			"Downloading and executing remote content",
		),
	}
}

// rulesFile is the YAML shape of an extra-rules file.
type rulesFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Severity    string `yaml:"severity"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
}

// LoadRulesFile reads extra rules from a YAML file. Rules that fail to
// compile are skipped, not fatal: the rest of the file still loads.
func LoadRulesFile(path string) ([]Rule, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{fmt.Errorf("read rules file: %w", err)}
	}

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, []error{fmt.Errorf("parse rules file: %w", err)}
	}

	var (
		rules []Rule
		errs  []error
	)
	for _, spec := range file.Rules {
		rule, err := NewRule(
			spec.ID,
			spec.Name,
			spec.Pattern,
			analysis.Severity(spec.Severity),
			analysis.Category(spec.Category),
			spec.Description,
		)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rules = append(rules, rule)
	}

	return rules, errs
}
