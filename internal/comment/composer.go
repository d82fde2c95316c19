// Package comment renders an analysis report as the Markdown comment posted
// on the change request.
package comment

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/drewdunne/codecritic/internal/analysis"
	"github.com/drewdunne/codecritic/internal/provider"
)

const (
	Title       = "# CodeCritic Review"
	NoIssues    = "No issues found."
	NoReviews   = "No reviews available."
	staticHead  = "## Static Analysis"
	reviewHead  = "## Generative Review"
	failureHead = "## Failures"
)

// Compose renders report. It does no I/O and depends only on the report, so
// the same report always yields the same comment.
func Compose(report *analysis.Report) provider.Comment {
	var b strings.Builder

	b.WriteString(Title + "\n\n")
	fmt.Fprintf(&b, "Analysis completed at: %s\n\n", report.CompletedAt.UTC().Format(time.RFC3339))

	writeStatic(&b, report)
	writeReviews(&b, report)
	writeFailures(&b, report)

	return provider.Comment{
		ID:        commentID(report),
		Body:      strings.TrimRight(b.String(), "\n") + "\n",
		CreatedAt: report.CompletedAt,
	}
}

func writeStatic(b *strings.Builder, report *analysis.Report) {
	b.WriteString(staticHead + "\n\n")

	total := report.IssueCount()
	if total == 0 {
		b.WriteString(NoIssues + "\n\n")
		return
	}

	withIssues := 0
	for _, f := range report.Files {
		if len(report.Static[f.ID]) > 0 {
			withIssues++
		}
	}
	fmt.Fprintf(b, "Found %d issue(s) across %d file(s).\n\n", total, withIssues)

	for _, f := range report.Files {
		issues := report.Static[f.ID]
		if len(issues) == 0 {
			continue
		}
		fmt.Fprintf(b, "### %s\n\n", f.Path)
		for _, issue := range issues {
			b.WriteString(formatIssue(issue) + "\n")
		}
		b.WriteString("\n")
	}
}

func formatIssue(issue analysis.Issue) string {
	line := fmt.Sprintf("- **%s**: %s", strings.ToUpper(string(issue.Severity)), issue.Description)
	switch {
	case issue.Line > 0 && issue.Column != nil:
		line += fmt.Sprintf(" (line %d, column %d)", issue.Line, *issue.Column)
	case issue.Line > 0:
		line += fmt.Sprintf(" (line %d)", issue.Line)
	}
	return line
}

func writeReviews(b *strings.Builder, report *analysis.Report) {
	b.WriteString(reviewHead + "\n\n")

	wrote := false
	for _, f := range report.Files {
		feedback := strings.TrimSpace(report.Reviews[f.ID])
		if feedback == "" {
			continue
		}
		b.WriteString(feedback + "\n\n")
		wrote = true
	}
	if !wrote {
		b.WriteString(NoReviews + "\n\n")
	}
}

// writeFailures lists failures by file order, static before review, so the
// order in which tasks settled doesn't show up in the comment.
func writeFailures(b *strings.Builder, report *analysis.Report) {
	if len(report.Failures) == 0 {
		return
	}

	b.WriteString(failureHead + "\n\n")

	used := make([]bool, len(report.Failures))
	for _, f := range report.Files {
		for _, kind := range []analysis.Kind{analysis.KindStatic, analysis.KindReview} {
			for i, failure := range report.Failures {
				if used[i] || failure.FileID != f.ID || failure.Kind != kind {
					continue
				}
				used[i] = true
				writeFailure(b, failure)
			}
		}
	}
	for i, failure := range report.Failures {
		if !used[i] {
			writeFailure(b, failure)
		}
	}
}

func writeFailure(b *strings.Builder, f analysis.Failure) {
	fmt.Fprintf(b, "- `%s` (%s): %s\n", f.Path, f.Kind.Label(), f.Reason)
}

func commentID(report *analysis.Report) string {
	key := report.CompletedAt.UTC().Format(time.RFC3339Nano)
	if cr := report.ChangeRequest; cr != nil {
		key = fmt.Sprintf("%s#%d@%s", cr.Repository, cr.Number, key)
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}
