package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/drewdunne/codecritic/internal/analysis"
	"github.com/drewdunne/codecritic/internal/config"
	"github.com/drewdunne/codecritic/internal/prompt"
	"github.com/drewdunne/codecritic/internal/provider"
	"github.com/drewdunne/codecritic/internal/retry"
)

// Reviewer produces generative review feedback for a single file.
type Reviewer struct {
	client    Client
	builder   *prompt.Builder
	model     string
	maxTokens int
	limiter   *rate.Limiter
	retry     retry.Config
	cache     Cache
	cacheTTL  time.Duration
	logger    *zap.SugaredLogger
}

var _ analysis.Reviewer = (*Reviewer)(nil)

// ReviewerOption configures a Reviewer.
type ReviewerOption func(*Reviewer)

// WithRateLimit caps backend calls at rps with the given burst. A
// non-positive rps removes the limit.
func WithRateLimit(rps float64, burst int) ReviewerOption {
	return func(r *Reviewer) {
		if rps <= 0 {
			r.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry sets the retry policy for transient backend errors.
func WithRetry(cfg retry.Config) ReviewerOption {
	return func(r *Reviewer) {
		r.retry = cfg
	}
}

// WithCache stores feedback in cache for ttl.
func WithCache(cache Cache, ttl time.Duration) ReviewerOption {
	return func(r *Reviewer) {
		r.cache = cache
		r.cacheTTL = ttl
	}
}

// WithMaxTokens bounds the length of each completion.
func WithMaxTokens(n int) ReviewerOption {
	return func(r *Reviewer) {
		r.maxTokens = n
	}
}

// WithReviewLogger sets the logger used for cache errors.
func WithReviewLogger(logger *zap.SugaredLogger) ReviewerOption {
	return func(r *Reviewer) {
		r.logger = logger
	}
}

// NewReviewer creates a Reviewer that asks model through client.
func NewReviewer(client Client, model string, opts ...ReviewerOption) *Reviewer {
	r := &Reviewer{
		client:    client,
		builder:   prompt.NewBuilder(),
		model:     model,
		maxTokens: 2048,
		retry:     retry.DefaultConfig(),
		logger:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewReviewerFromConfig wires the configured backend, rate limit, retry
// policy and optional Redis cache. The returned close function releases the
// cache connection. An unreachable cache is logged and skipped.
func NewReviewerFromConfig(ctx context.Context, cfg config.ReviewConfig, logger *zap.SugaredLogger) (*Reviewer, func() error, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, nil, err
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.MaxRetries

	opts := []ReviewerOption{
		WithRateLimit(cfg.RequestsPerSecond, cfg.Burst),
		WithRetry(retryCfg),
		WithMaxTokens(cfg.MaxTokens),
		WithReviewLogger(logger),
	}

	closeFn := func() error { return nil }
	if cfg.Cache.RedisAddr != "" {
		cache, err := NewRedisCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.Password, cfg.Cache.DB)
		if err != nil {
			logger.Warnw("review cache unavailable, continuing without it", "addr", cfg.Cache.RedisAddr, "error", err)
		} else {
			opts = append(opts, WithCache(cache, time.Duration(cfg.Cache.TTLSeconds)*time.Second))
			closeFn = cache.Close
		}
	}

	return NewReviewer(client, cfg.Model, opts...), closeFn, nil
}

// Review returns the formatted feedback for file, or an empty string when
// the backend had nothing to say.
func (r *Reviewer) Review(ctx context.Context, file provider.ChangedFile) (string, error) {
	key := CacheKey(r.model, file.Diff)

	if r.cache != nil {
		text, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			r.logger.Warnw("review cache read failed", "path", file.Path, "error", err)
		} else if ok {
			return format(file.Path, text), nil
		}
	}

	system, user := r.builder.Build(file)
	req := Request{
		Model:     r.model,
		System:    system,
		User:      user,
		MaxTokens: r.maxTokens,
	}

	var text string
	err := retry.Do(ctx, r.retry, func(ctx context.Context) error {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		var err error
		text, err = r.client.Complete(ctx, req)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("reviewing %s: %w", file.Path, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, text, r.cacheTTL); err != nil {
			r.logger.Warnw("review cache write failed", "path", file.Path, "error", err)
		}
	}

	return format(file.Path, text), nil
}

func format(path, text string) string {
	return fmt.Sprintf("### Review of %s\n\n%s", path, text)
}
