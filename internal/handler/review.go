package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/drewdunne/codecritic/internal/analysis"
	"github.com/drewdunne/codecritic/internal/comment"
	"github.com/drewdunne/codecritic/internal/config"
	"github.com/drewdunne/codecritic/internal/event"
	"github.com/drewdunne/codecritic/internal/logging"
	"github.com/drewdunne/codecritic/internal/metrics"
	"github.com/drewdunne/codecritic/internal/provider"
)

// ErrUnknownProvider is returned when no provider is configured for an event.
var ErrUnknownProvider = errors.New("provider not configured")

// Providers looks up a configured provider by name.
type Providers interface {
	Get(name string) provider.Provider
}

// Result is the outcome of one review run.
type Result struct {
	RunID         string
	ChangeRequest *provider.ChangeRequest
	Report        *analysis.Report
	Comment       provider.Comment
	Published     bool
}

// ReviewHandler runs the fetch, analyze, compose and publish pipeline for
// one change request.
type ReviewHandler struct {
	providers    Providers
	orchestrator *analysis.Orchestrator
	cfg          *config.Config
	logs         *logging.Writer
	logger       *zap.SugaredLogger
	now          func() time.Time

	callTimeout time.Duration // per provider call
}

// NewReviewHandler creates a review handler. logs may be nil to disable
// per-run log files.
func NewReviewHandler(providers Providers, orchestrator *analysis.Orchestrator, cfg *config.Config, logs *logging.Writer, logger *zap.SugaredLogger) *ReviewHandler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ReviewHandler{
		providers:    providers,
		orchestrator: orchestrator,
		cfg:          cfg,
		logs:         logs,
		logger:       logger,
		now:          time.Now,
		callTimeout:  cfg.Providers.RequestTimeout(),
	}
}

// Handle reviews the change request named by evt and publishes one comment.
// It matches event.Handler.
func (h *ReviewHandler) Handle(ctx context.Context, evt event.IngressEvent) error {
	_, err := h.Run(ctx, evt.Provider, evt.Repository, evt.Number, true)
	return err
}

// Run reviews repository#number on the named provider. With publish false
// the comment is composed but not posted.
func (h *ReviewHandler) Run(ctx context.Context, providerName, repository string, number int, publish bool) (*Result, error) {
	p := h.providers.Get(providerName)
	if p == nil {
		metrics.RunFailed()
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, providerName)
	}

	res := &Result{RunID: uuid.NewString()}
	logger, closeLog := h.runLogger(logging.RunEntry{
		RunID:      res.RunID,
		Repository: repository,
		Number:     number,
		Timestamp:  h.now(),
	})
	defer closeLog()

	logger.Infow("Review run started", "provider", providerName)

	cr, err := h.fetch(ctx, p, repository, number)
	if err != nil {
		metrics.RunFailed()
		logger.Errorw("Failed to fetch change request", "error", err)
		return nil, err
	}
	res.ChangeRequest = cr

	runCfg := config.MergeConfigs(h.cfg, h.repoConfig(ctx, p, cr, logger))

	orch := h.orchestrator.WithFileSuffix(runCfg.FileSuffix).WithLogger(logger)
	res.Report = orch.Analyze(ctx, cr)
	res.Comment = comment.Compose(res.Report)
	metrics.RunCompleted()

	logger.Infow("Review composed",
		"files", len(res.Report.Files),
		"issues", res.Report.IssueCount(),
		"failures", len(res.Report.Failures),
		"file_suffix", runCfg.FileSuffix,
	)

	if !publish {
		return res, nil
	}

	if err := h.publish(ctx, p, cr, res.Comment); err != nil {
		metrics.PublishFailed()
		logger.Errorw("Failed to publish comment", "comment_id", res.Comment.ID, "error", err)
		return res, err
	}
	res.Published = true
	metrics.CommentPublished()
	logger.Infow("Comment published", "comment_id", res.Comment.ID)

	return res, nil
}

func (h *ReviewHandler) fetch(ctx context.Context, p provider.Provider, repository string, number int) (*provider.ChangeRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, h.callTimeout)
	defer cancel()
	return p.FetchChangeRequest(ctx, repository, number)
}

func (h *ReviewHandler) publish(ctx context.Context, p provider.Provider, cr *provider.ChangeRequest, c provider.Comment) error {
	ctx, cancel := context.WithTimeout(ctx, h.callTimeout)
	defer cancel()
	return p.PublishComment(ctx, cr, c)
}

// repoConfig loads the repository's overrides from the target branch; the
// change under review never configures itself. Read errors fall back to the
// server defaults.
func (h *ReviewHandler) repoConfig(ctx context.Context, p provider.Provider, cr *provider.ChangeRequest, logger *zap.SugaredLogger) *config.RepoConfig {
	ctx, cancel := context.WithTimeout(ctx, h.callTimeout)
	defer cancel()

	repoCfg, err := config.LoadRepoConfig(ctx, fileReader{p}, cr.Repository, cr.BaseRevision())
	if err != nil {
		logger.Warnw("Ignoring repository config", "path", config.RepoConfigPath, "error", err)
		return nil
	}
	return repoCfg
}

func (h *ReviewHandler) runLogger(entry logging.RunEntry) (*zap.SugaredLogger, func()) {
	fields := []interface{}{"run_id", entry.RunID, "repository", entry.Repository, "number", entry.Number}
	if h.logs == nil {
		return h.logger.With(fields...), func() {}
	}

	logger, closeFn, err := h.logs.RunLogger(h.logger, entry)
	if err != nil {
		base := h.logger.With(fields...)
		base.Warnw("Per-run log file unavailable", "error", err)
		return base, func() {}
	}
	logger = logger.With(fields...)
	return logger, func() {
		if err := closeFn(); err != nil {
			h.logger.Warnw("Failed to close run log", "run_id", entry.RunID, "error", err)
		}
	}
}

// fileReader adapts a provider to config.FileReader.
type fileReader struct {
	p provider.Provider
}

func (r fileReader) ReadFile(ctx context.Context, repository, path, ref string) ([]byte, error) {
	data, err := r.p.ReadFile(ctx, repository, path, ref)
	if errors.Is(err, provider.ErrNotFound) {
		return nil, config.ErrConfigNotFound
	}
	return data, err
}
