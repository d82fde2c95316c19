package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/drewdunne/codecritic/internal/config"
	"github.com/drewdunne/codecritic/internal/metrics"
	"github.com/drewdunne/codecritic/internal/webhook"
)

// HealthResponse represents the health check response structure.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

// Dispatcher is the background worker pool fed by the webhook routes. Its
// load is reported in /health and it is drained when the server stops.
type Dispatcher interface {
	QueueLength() int
	ActiveCount() int
	Shutdown(ctx context.Context) error
}

// Pinger checks a dependency's availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires the server to the rest of the service.
type Options struct {
	// Deliveries receives every verified webhook. Required for the webhook
	// routes to be registered.
	Deliveries webhook.DeliveryHandler

	Dispatcher Dispatcher

	// Docker, when set, is reported in /health and degrades the status
	// when unreachable.
	Docker Pinger

	Logger *zap.SugaredLogger
}

// Server is the HTTP server for CodeCritic.
type Server struct {
	cfg    *config.Config
	opts   Options
	logger *zap.SugaredLogger
	mux    *http.ServeMux
	ready  chan struct{} // closed once Run is accepting connections

	mu       sync.RWMutex
	listener net.Listener
}

// New creates a new Server with the given config.
func New(cfg *config.Config, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{
		cfg:    cfg,
		opts:   opts,
		logger: logger,
		mux:    http.NewServeMux(),
		ready:  make(chan struct{}),
	}
	s.routes()
	return s
}

// Ready returns a channel that is closed when the server is ready to accept connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// routes sets up the HTTP routes.
func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/metrics", s.handleMetrics)

	if s.opts.Deliveries == nil {
		return
	}

	if secret := s.cfg.Providers.GitHub.WebhookSecret; secret != "" {
		s.mux.Handle("/webhook/github", webhook.NewGitHubHandler(secret, s.opts.Deliveries))
	} else {
		s.logger.Warnw("GitHub webhook secret not set, endpoint disabled", "path", "/webhook/github")
	}

	if secret := s.cfg.Providers.GitLab.WebhookSecret; secret != "" {
		s.mux.Handle("/webhook/gitlab", webhook.NewGitLabHandler(secret, s.opts.Deliveries))
	} else {
		s.logger.Warnw("GitLab webhook secret not set, endpoint disabled", "path", "/webhook/gitlab")
	}
}

// handleHealth responds with server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]interface{}{}
	status := "ok"

	if d := s.opts.Dispatcher; d != nil {
		checks["queue_length"] = d.QueueLength()
		checks["active_runs"] = d.ActiveCount()
	}

	if s.opts.Docker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		available := s.opts.Docker.Ping(ctx) == nil
		checks["docker"] = available
		if !available {
			status = "degraded"
		}
	}

	health := HealthResponse{
		Status: status,
		Checks: checks,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleMetrics responds with current operational metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m := metrics.Get()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m)
}
