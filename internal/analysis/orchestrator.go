package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/drewdunne/codecritic/internal/metrics"
	"github.com/drewdunne/codecritic/internal/provider"
)

const maxReasonLength = 200

// Options bound a single run.
type Options struct {
	// FileSuffix restricts analysis to matching paths; empty accepts all.
	FileSuffix  string
	MaxInFlight int
	RunTimeout  time.Duration
}

// Orchestrator runs both analyzers over every eligible file of a change request.
type Orchestrator struct {
	static   StaticAnalyzer
	reviewer Reviewer
	opts     Options
	logger   *zap.SugaredLogger
	now      func() time.Time
}

// New creates an orchestrator.
func New(static StaticAnalyzer, reviewer Reviewer, opts Options, logger *zap.SugaredLogger) *Orchestrator {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 1
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Orchestrator{
		static:   static,
		reviewer: reviewer,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// WithFileSuffix returns a copy of o that filters on suffix.
func (o *Orchestrator) WithFileSuffix(suffix string) *Orchestrator {
	c := *o
	c.opts.FileSuffix = suffix
	return &c
}

// WithLogger returns a copy of o that logs to logger.
func (o *Orchestrator) WithLogger(logger *zap.SugaredLogger) *Orchestrator {
	c := *o
	c.logger = logger
	return &c
}

// Eligible returns the files that will be analyzed, in their original order.
func (o *Orchestrator) Eligible(files []provider.ChangedFile) []provider.ChangedFile {
	var eligible []provider.ChangedFile
	for _, f := range files {
		if f.Kind == provider.ChangeDeleted || f.Diff == "" {
			continue
		}
		if o.opts.FileSuffix != "" && !strings.HasSuffix(f.Path, o.opts.FileSuffix) {
			continue
		}
		eligible = append(eligible, f)
	}
	return eligible
}

type task struct {
	file provider.ChangedFile
	kind Kind
}

type settlement struct {
	index   int
	outcome Outcome
}

// Analyze schedules one static and one review task per eligible file, waits
// for all of them or the run deadline, and returns the joined report. Tasks
// still running at the deadline are reported as failures.
func (o *Orchestrator) Analyze(ctx context.Context, cr *provider.ChangeRequest) *Report {
	runCtx, cancel := context.WithTimeout(ctx, o.opts.RunTimeout)
	defer cancel()

	eligible := o.Eligible(cr.Files)
	tasks := make([]task, 0, 2*len(eligible))
	for _, f := range eligible {
		tasks = append(tasks, task{file: f, kind: KindStatic}, task{file: f, kind: KindReview})
	}

	report := &Report{
		ChangeRequest: cr,
		Files:         eligible,
		Static:        make(map[string][]Issue, len(eligible)),
		Reviews:       make(map[string]string, len(eligible)),
		Scheduled:     len(tasks),
	}

	o.logger.Infow("Starting analysis",
		"files", len(cr.Files), "eligible", len(eligible), "tasks", len(tasks))

	// Buffered for every task so late finishers never block after the join.
	results := make(chan settlement, len(tasks))
	sem := semaphore.NewWeighted(int64(o.opts.MaxInFlight))

	go func() {
		for i, t := range tasks {
			if err := sem.Acquire(runCtx, 1); err != nil {
				return
			}
			go func(i int, t task) {
				defer sem.Release(1)
				results <- settlement{index: i, outcome: o.run(runCtx, t)}
			}(i, t)
		}
	}()

	settled := make([]bool, len(tasks))
	record := func(s settlement) {
		settled[s.index] = true
		report.Settled++
		o.record(report, tasks[s.index], s.outcome)
	}

join:
	for report.Settled < len(tasks) {
		select {
		case s := <-results:
			record(s)
		case <-runCtx.Done():
			break join
		}
	}

	// Keep whatever settled while the deadline fired.
	for drained := false; !drained && report.Settled < len(tasks); {
		select {
		case s := <-results:
			record(s)
		default:
			drained = true
		}
	}

	if report.Settled < len(tasks) {
		reason := ReasonTimeout
		if errors.Is(runCtx.Err(), context.Canceled) {
			reason = ReasonCanceled
		}
		for i, t := range tasks {
			if settled[i] {
				continue
			}
			report.Settled++
			report.Failures = append(report.Failures, Failure{
				FileID: t.file.ID,
				Path:   t.file.Path,
				Kind:   t.kind,
				Reason: reason,
			})
			metrics.TaskTimedOut()
			o.logger.Warnw("Task did not settle before deadline",
				"path", t.file.Path, "kind", t.kind, "reason", reason)
		}
	}

	report.CompletedAt = o.now().UTC()

	o.logger.Infow("Analysis finished",
		"tasks", report.Scheduled, "failures", len(report.Failures), "issues", report.IssueCount())

	return report
}

// run executes one task, turning panics into errors.
func (o *Orchestrator) run(ctx context.Context, t task) (out Outcome) {
	out = Outcome{FileID: t.file.ID, Kind: t.kind}

	defer func() {
		if r := recover(); r != nil {
			out.Issues, out.Feedback = nil, ""
			out.Err = fmt.Errorf("analyzer panicked: %v", r)
		}
	}()

	switch t.kind {
	case KindStatic:
		out.Issues, out.Err = o.static.AnalyzeStatic(ctx, t.file)
	case KindReview:
		out.Feedback, out.Err = o.reviewer.Review(ctx, t.file)
	default:
		out.Err = fmt.Errorf("unknown analyzer kind %q", t.kind)
	}
	return out
}

func (o *Orchestrator) record(report *Report, t task, out Outcome) {
	if out.Err != nil {
		reason := failureReason(out.Err)
		report.Failures = append(report.Failures, Failure{
			FileID: t.file.ID,
			Path:   t.file.Path,
			Kind:   t.kind,
			Reason: reason,
		})
		if reason == ReasonTimeout {
			metrics.TaskTimedOut()
		} else {
			metrics.TaskFailed()
		}
		o.logger.Warnw("Analyzer task failed", "path", t.file.Path, "kind", t.kind, "error", out.Err)
		return
	}

	switch t.kind {
	case KindStatic:
		report.Static[t.file.ID] = out.Issues
	case KindReview:
		report.Reviews[t.file.ID] = out.Feedback
	}
}

// failureReason shortens an analyzer error to a single line.
func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	}

	reason := err.Error()
	if i := strings.IndexByte(reason, '\n'); i >= 0 {
		reason = reason[:i]
	}
	if len(reason) > maxReasonLength {
		cut := maxReasonLength
		for cut > 0 && !utf8.RuneStart(reason[cut]) {
			cut--
		}
		reason = reason[:cut] + "..."
	}
	return reason
}
