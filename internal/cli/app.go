package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/drewdunne/codecritic/internal/analysis"
	"github.com/drewdunne/codecritic/internal/config"
	"github.com/drewdunne/codecritic/internal/docker"
	"github.com/drewdunne/codecritic/internal/handler"
	"github.com/drewdunne/codecritic/internal/llm"
	"github.com/drewdunne/codecritic/internal/lint"
	"github.com/drewdunne/codecritic/internal/logging"
	"github.com/drewdunne/codecritic/internal/registry"
)

// app holds the components shared by serve and review.
type app struct {
	cfg      *config.Config
	logger   *zap.SugaredLogger
	registry *registry.Registry
	reviews  *handler.ReviewHandler
	docker   *docker.Client // nil unless the docker linter is enabled
	closers  []func() error
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() error { _ = logger.Sync(); return nil })

	a.registry, err = registry.New(cfg)
	if err != nil {
		return nil, err
	}
	if len(a.registry.List()) == 0 {
		logger.Warn("No provider tokens configured; every review run will fail")
	}

	var static analysis.StaticAnalyzer = lint.NewRuleAnalyzer(cfg.Lint.MaxLineLength)
	if cfg.Lint.Docker.Enabled {
		dc, err := docker.NewClient()
		if err != nil {
			a.Close()
			return nil, err
		}
		a.docker = dc
		a.closers = append(a.closers, dc.Close)

		if err := dc.PullImage(ctx, cfg.Lint.Docker.Image); err != nil {
			logger.Warnw("Could not pull linter image", "image", cfg.Lint.Docker.Image, "error", err)
		}
		static = lint.Chain{static, lint.NewDockerAnalyzer(dc, cfg.Lint.Docker, logger)}
	}

	reviewer, closeCache, err := llm.NewReviewerFromConfig(ctx, cfg.Review, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeCache)

	orch := analysis.New(static, reviewer, analysis.Options{
		FileSuffix:  cfg.Analysis.FileSuffix,
		MaxInFlight: cfg.Analysis.MaxInFlight,
		RunTimeout:  cfg.Analysis.RunTimeout(),
	}, logger)

	var logs *logging.Writer
	if cfg.Logging.Dir != "" {
		logs = logging.NewWriter(cfg.Logging.Dir)
	}

	a.reviews = handler.NewReviewHandler(a.registry, orch, cfg, logs, logger)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
