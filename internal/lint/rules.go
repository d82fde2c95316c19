package lint

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/drewdunne/codecritic/internal/analysis"
	"github.com/drewdunne/codecritic/internal/provider"
)

// Rule is a single-line pattern check.
type Rule struct {
	ID          string
	Pattern     *regexp.Regexp
	Severity    analysis.Severity
	Description string
}

// DefaultRules are the built-in checks.
var DefaultRules = []Rule{
	{
		ID:          "hardcoded-credential",
		Pattern:     regexp.MustCompile(`(?i)\b(password|passwd|secret|api[_-]?key|access[_-]?token)\w*\s*[:=]\s*["'][^"']{4,}["']`),
		Severity:    analysis.SeverityHigh,
		Description: "Possible hard-coded credential",
	},
	{
		ID:          "empty-catch",
		Pattern:     regexp.MustCompile(`catch\s*\([^)]*\)\s*\{\s*\}`),
		Severity:    analysis.SeverityMedium,
		Description: "Empty catch block swallows the exception",
	},
	{
		ID:          "debug-print",
		Pattern:     regexp.MustCompile(`System\.(out|err)\.print|\.printStackTrace\(\)|console\.log\(`),
		Severity:    analysis.SeverityLow,
		Description: "Debug output left in code",
	},
	{
		ID:          "todo-marker",
		Pattern:     regexp.MustCompile(`\b(TODO|FIXME|XXX)\b`),
		Severity:    analysis.SeverityLow,
		Description: "Unresolved TODO/FIXME marker",
	},
}

// RuleAnalyzer checks added lines against a fixed rule set.
type RuleAnalyzer struct {
	rules         []Rule
	maxLineLength int
}

var _ analysis.StaticAnalyzer = (*RuleAnalyzer)(nil)

// NewRuleAnalyzer creates an analyzer with DefaultRules. maxLineLength of
// zero disables the line length check.
func NewRuleAnalyzer(maxLineLength int) *RuleAnalyzer {
	return &RuleAnalyzer{rules: DefaultRules, maxLineLength: maxLineLength}
}

// WithRules replaces the rule set.
func (a *RuleAnalyzer) WithRules(rules []Rule) *RuleAnalyzer {
	return &RuleAnalyzer{rules: rules, maxLineLength: a.maxLineLength}
}

// AnalyzeStatic reports issues in line order, then rule order within a line.
func (a *RuleAnalyzer) AnalyzeStatic(ctx context.Context, file provider.ChangedFile) ([]analysis.Issue, error) {
	var issues []analysis.Issue

	for _, line := range AddedLines(ParseDiff(file.Diff)) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, rule := range a.rules {
			loc := rule.Pattern.FindStringIndex(line.Text)
			if loc == nil {
				continue
			}
			col := utf8.RuneCountInString(line.Text[:loc[0]]) + 1
			issues = append(issues, analysis.Issue{
				Description: rule.Description,
				Severity:    rule.Severity,
				Line:        line.Number,
				Column:      &col,
			})
		}

		if a.maxLineLength > 0 {
			if n := utf8.RuneCountInString(line.Text); n > a.maxLineLength {
				issues = append(issues, analysis.Issue{
					Description: fmt.Sprintf("Line is %d characters long, exceeds %d", n, a.maxLineLength),
					Severity:    analysis.SeverityLow,
					Line:        line.Number,
				})
			}
		}
	}

	return issues, nil
}
