// Package analysis fans a change request out to the static analyzer and the
// generative reviewer, one task per file and kind, and joins the results into
// a Report.
package analysis

import (
	"context"
	"time"

	"github.com/drewdunne/codecritic/internal/provider"
)

// Severity ranks an issue.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Issue is one finding of a static analyzer.
type Issue struct {
	Description string
	Severity    Severity
	Line        int
	Column      *int
}

// Kind identifies the analyzer a task ran.
type Kind string

const (
	KindStatic Kind = "static"
	KindReview Kind = "review"
)

// Label is the human-readable analyzer name used in comments.
func (k Kind) Label() string {
	switch k {
	case KindStatic:
		return "static analysis"
	case KindReview:
		return "generative review"
	default:
		return string(k)
	}
}

// Failure reasons produced by the orchestrator itself. Analyzer errors carry
// their own message.
const (
	ReasonTimeout  = "timeout"
	ReasonCanceled = "canceled"
)

// Outcome is the settled result of one task. Exactly one of Issues/Feedback
// or Err is meaningful, depending on Kind and success.
type Outcome struct {
	FileID   string
	Kind     Kind
	Issues   []Issue
	Feedback string
	Err      error
}

// Failure is a task that did not produce a result.
type Failure struct {
	FileID string
	Path   string
	Kind   Kind
	Reason string
}

// Report is the joined result of one orchestration run.
type Report struct {
	ChangeRequest *provider.ChangeRequest

	// Files are the eligible files in change-request order.
	Files []provider.ChangedFile

	// Static holds successful static results by file ID, including files
	// with no issues.
	Static map[string][]Issue

	// Reviews holds successful review feedback by file ID.
	Reviews map[string]string

	// Failures are in settlement order; stragglers cut off by the deadline
	// come last.
	Failures []Failure

	Scheduled int
	Settled   int

	CompletedAt time.Time
}

// IssueCount returns the number of static issues across all files.
func (r *Report) IssueCount() int {
	n := 0
	for _, issues := range r.Static {
		n += len(issues)
	}
	return n
}

// StaticAnalyzer finds issues in one changed file. Implementations must be
// safe for concurrent use.
type StaticAnalyzer interface {
	AnalyzeStatic(ctx context.Context, file provider.ChangedFile) ([]Issue, error)
}

// Reviewer produces free-form review feedback for one changed file.
// Implementations must be safe for concurrent use.
type Reviewer interface {
	Review(ctx context.Context, file provider.ChangedFile) (string, error)
}
