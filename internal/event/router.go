package event

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/drewdunne/codecritic/internal/config"
	"github.com/drewdunne/codecritic/internal/dispatch"
	"github.com/drewdunne/codecritic/internal/metrics"
	"github.com/drewdunne/codecritic/internal/webhook"
)

// Outcome is what the router did with an event.
type Outcome int

const (
	// Ack means the event was acknowledged and dropped.
	Ack Outcome = iota
	// Dispatched means a review run was queued for the event.
	Dispatched
)

// Handler runs the review for one event on a background context.
type Handler func(ctx context.Context, evt IngressEvent) error

// Submitter queues background jobs.
type Submitter interface {
	Submit(job dispatch.Job) error
}

// Router normalizes verified deliveries and hands recognized events to the
// dispatcher. It never waits for a review to finish.
type Router struct {
	events     config.EventsConfig
	dispatcher Submitter
	handler    Handler
	logger     *zap.SugaredLogger
}

// NewRouter creates a new event router.
func NewRouter(events config.EventsConfig, dispatcher Submitter, handler Handler, logger *zap.SugaredLogger) *Router {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Router{
		events:     events,
		dispatcher: dispatcher,
		handler:    handler,
		logger:     logger,
	}
}

// Normalize turns a verified delivery into an IngressEvent.
func (r *Router) Normalize(d *webhook.Delivery) (IngressEvent, error) {
	switch d.Provider {
	case "github":
		return normalizeGitHub(d.Body, d.EventType, d.DeliveryID, r.events.PullRequestActions, d.ReceivedAt)
	case "gitlab":
		return normalizeGitLab(d.Body, d.EventType, d.DeliveryID, r.events.MergeRequestActions, d.ReceivedAt)
	default:
		return IngressEvent{}, fmt.Errorf("unknown provider %q", d.Provider)
	}
}

// Route acknowledges KindOther events and dispatches the rest.
func (r *Router) Route(ctx context.Context, evt IngressEvent) (Outcome, error) {
	if evt.Kind != KindPullRequestUpdated {
		r.logger.Debugw("Event acknowledged without processing",
			"event_id", evt.ID, "provider", evt.Provider, "action", evt.Action)
		metrics.WebhookIgnored()
		return Ack, nil
	}

	err := r.dispatcher.Submit(func(jobCtx context.Context) {
		if err := r.handler(jobCtx, evt); err != nil {
			r.logger.Errorw("Review run failed", "event_id", evt.ID, "change_request", evt.Key(), "error", err)
		}
	})
	if err != nil {
		return Ack, fmt.Errorf("dispatching %s: %w", evt.Key(), err)
	}

	r.logger.Infow("Review run dispatched", "event_id", evt.ID, "change_request", evt.Key(), "action", evt.Action)
	metrics.RunDispatched()
	return Dispatched, nil
}

// HandleDelivery is the webhook.DeliveryHandler that ties ingress to routing.
func (r *Router) HandleDelivery(ctx context.Context, d *webhook.Delivery) (string, error) {
	metrics.WebhookReceived()

	evt, err := r.Normalize(d)
	if err != nil {
		var nerr *NormalizationError
		if errors.As(err, &nerr) {
			r.logger.Warnw("Rejected webhook payload",
				"provider", d.Provider, "delivery_id", d.DeliveryID, "reason", nerr.Reason, "error", err)
		}
		metrics.WebhookRejected()
		return "", err
	}

	outcome, err := r.Route(ctx, evt)
	if err != nil {
		r.logger.Errorw("Failed to dispatch review", "event_id", evt.ID, "error", err)
		metrics.WebhookRejected()
		return "", err
	}

	if outcome == Dispatched {
		return fmt.Sprintf("Review scheduled for %s", evt.Key()), nil
	}
	return "Webhook received", nil
}
