package metrics

import (
	"sync/atomic"
)

// Metrics tracks operational metrics.
type Metrics struct {
	WebhooksReceived  uint64 `json:"webhooks_received"`
	WebhooksIgnored   uint64 `json:"webhooks_ignored"`
	WebhooksRejected  uint64 `json:"webhooks_rejected"`
	RunsDispatched    uint64 `json:"runs_dispatched"`
	RunsCompleted     uint64 `json:"runs_completed"`
	RunsFailed        uint64 `json:"runs_failed"`
	TasksFailed       uint64 `json:"tasks_failed"`
	TasksTimedOut     uint64 `json:"tasks_timed_out"`
	CommentsPublished uint64 `json:"comments_published"`
	PublishFailures   uint64 `json:"publish_failures"`
}

var global = &Metrics{}

// WebhookReceived increments the count of webhooks that passed verification.
func WebhookReceived() { atomic.AddUint64(&global.WebhooksReceived, 1) }

// WebhookIgnored increments the count of acknowledged but unprocessed webhooks.
func WebhookIgnored() { atomic.AddUint64(&global.WebhooksIgnored, 1) }

// WebhookRejected increments the count of webhooks answered with an error.
func WebhookRejected() { atomic.AddUint64(&global.WebhooksRejected, 1) }

// RunDispatched increments the count of review runs handed to the dispatcher.
func RunDispatched() { atomic.AddUint64(&global.RunsDispatched, 1) }

// RunCompleted increments the count of review runs that reached publishing.
func RunCompleted() { atomic.AddUint64(&global.RunsCompleted, 1) }

// RunFailed increments the count of review runs aborted before publishing.
func RunFailed() { atomic.AddUint64(&global.RunsFailed, 1) }

// TaskFailed increments the count of analyzer tasks that settled as failures.
func TaskFailed() { atomic.AddUint64(&global.TasksFailed, 1) }

// TaskTimedOut increments the count of analyzer tasks cut off by the run deadline.
func TaskTimedOut() { atomic.AddUint64(&global.TasksTimedOut, 1) }

// CommentPublished increments the count of comments posted to a change request.
func CommentPublished() { atomic.AddUint64(&global.CommentsPublished, 1) }

// PublishFailed increments the count of comments the provider rejected.
func PublishFailed() { atomic.AddUint64(&global.PublishFailures, 1) }

// Get returns a snapshot of the current metrics.
func Get() Metrics {
	return Metrics{
		WebhooksReceived:  atomic.LoadUint64(&global.WebhooksReceived),
		WebhooksIgnored:   atomic.LoadUint64(&global.WebhooksIgnored),
		WebhooksRejected:  atomic.LoadUint64(&global.WebhooksRejected),
		RunsDispatched:    atomic.LoadUint64(&global.RunsDispatched),
		RunsCompleted:     atomic.LoadUint64(&global.RunsCompleted),
		RunsFailed:        atomic.LoadUint64(&global.RunsFailed),
		TasksFailed:       atomic.LoadUint64(&global.TasksFailed),
		TasksTimedOut:     atomic.LoadUint64(&global.TasksTimedOut),
		CommentsPublished: atomic.LoadUint64(&global.CommentsPublished),
		PublishFailures:   atomic.LoadUint64(&global.PublishFailures),
	}
}

// Reset resets all metrics to zero (useful for testing).
func Reset() {
	atomic.StoreUint64(&global.WebhooksReceived, 0)
	atomic.StoreUint64(&global.WebhooksIgnored, 0)
	atomic.StoreUint64(&global.WebhooksRejected, 0)
	atomic.StoreUint64(&global.RunsDispatched, 0)
	atomic.StoreUint64(&global.RunsCompleted, 0)
	atomic.StoreUint64(&global.RunsFailed, 0)
	atomic.StoreUint64(&global.TasksFailed, 0)
	atomic.StoreUint64(&global.TasksTimedOut, 0)
	atomic.StoreUint64(&global.CommentsPublished, 0)
	atomic.StoreUint64(&global.PublishFailures, 0)
}
