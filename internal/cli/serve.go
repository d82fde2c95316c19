package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/drewdunne/codecritic/internal/dispatch"
	"github.com/drewdunne/codecritic/internal/event"
	"github.com/drewdunne/codecritic/internal/logging"
	"github.com/drewdunne/codecritic/internal/server"
)

const logCleanupInterval = time.Hour

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg

	dispatcher := dispatch.New(dispatch.Config{
		Workers:   cfg.Dispatch.Workers,
		QueueSize: cfg.Dispatch.QueueSize,
	})
	router := event.NewRouter(cfg.Events, dispatcher, a.reviews.Handle, a.logger)

	if cfg.Logging.Dir != "" && cfg.Logging.RetentionDays > 0 {
		scheduler := logging.NewCleanupScheduler(
			logging.NewCleaner(cfg.Logging.Dir, cfg.Logging.RetentionDays),
			logCleanupInterval,
			a.logger,
		)
		scheduler.Start()
		defer scheduler.Stop()
	}

	opts := server.Options{
		Deliveries: router.HandleDelivery,
		Dispatcher: dispatcher,
		Logger:     a.logger,
	}
	if a.docker != nil {
		opts.Docker = a.docker
	}
	srv := server.New(cfg, opts)

	a.logger.Infow("Starting CodeCritic server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"providers", a.registry.List(),
		"workers", cfg.Dispatch.Workers,
	)
	return srv.Run(ctx)
}
