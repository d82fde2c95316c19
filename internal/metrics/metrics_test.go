package metrics

import (
	"sync"
	"testing"
)

func TestCounters(t *testing.T) {
	tests := []struct {
		name string
		inc  func()
		get  func(Metrics) uint64
	}{
		{"WebhookReceived", WebhookReceived, func(m Metrics) uint64 { return m.WebhooksReceived }},
		{"WebhookIgnored", WebhookIgnored, func(m Metrics) uint64 { return m.WebhooksIgnored }},
		{"WebhookRejected", WebhookRejected, func(m Metrics) uint64 { return m.WebhooksRejected }},
		{"RunDispatched", RunDispatched, func(m Metrics) uint64 { return m.RunsDispatched }},
		{"RunCompleted", RunCompleted, func(m Metrics) uint64 { return m.RunsCompleted }},
		{"RunFailed", RunFailed, func(m Metrics) uint64 { return m.RunsFailed }},
		{"TaskFailed", TaskFailed, func(m Metrics) uint64 { return m.TasksFailed }},
		{"TaskTimedOut", TaskTimedOut, func(m Metrics) uint64 { return m.TasksTimedOut }},
		{"CommentPublished", CommentPublished, func(m Metrics) uint64 { return m.CommentsPublished }},
		{"PublishFailed", PublishFailed, func(m Metrics) uint64 { return m.PublishFailures }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Reset()

			tt.inc()
			if got := tt.get(Get()); got != 1 {
				t.Errorf("expected %s=1, got %d", tt.name, got)
			}
		})
	}
}

func TestReset(t *testing.T) {
	WebhookReceived()
	RunDispatched()
	CommentPublished()

	Reset()

	if m := Get(); m != (Metrics{}) {
		t.Errorf("expected zero metrics after reset, got %+v", m)
	}
}

func TestConcurrentIncrements(t *testing.T) {
	Reset()

	var wg sync.WaitGroup
	iterations := 1000

	for i := 0; i < iterations; i++ {
		wg.Add(3)
		go func() {
			WebhookReceived()
			wg.Done()
		}()
		go func() {
			TaskFailed()
			wg.Done()
		}()
		go func() {
			CommentPublished()
			wg.Done()
		}()
	}

	wg.Wait()
	m := Get()

	if m.WebhooksReceived != uint64(iterations) {
		t.Errorf("expected WebhooksReceived=%d, got %d", iterations, m.WebhooksReceived)
	}
	if m.TasksFailed != uint64(iterations) {
		t.Errorf("expected TasksFailed=%d, got %d", iterations, m.TasksFailed)
	}
	if m.CommentsPublished != uint64(iterations) {
		t.Errorf("expected CommentsPublished=%d, got %d", iterations, m.CommentsPublished)
	}
}

func TestGetReturnsSnapshot(t *testing.T) {
	Reset()

	RunDispatched()
	snapshot := Get()

	RunDispatched()

	if snapshot.RunsDispatched != 1 {
		t.Errorf("snapshot should be immutable, expected 1, got %d", snapshot.RunsDispatched)
	}

	current := Get()
	if current.RunsDispatched != 2 {
		t.Errorf("current should be 2, got %d", current.RunsDispatched)
	}
}
