// Package dispatch runs review jobs in the background, detached from the
// webhook request that triggered them.
package dispatch

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrQueueFull is returned when the queue is at capacity.
	ErrQueueFull = errors.New("dispatch queue is full")

	// ErrStopped is returned by Submit after Shutdown has been called.
	ErrStopped = errors.New("dispatcher is stopped")
)

// Config sizes the dispatcher.
type Config struct {
	Workers   int
	QueueSize int
}

// Job is a unit of background work. The context is cancelled when a shutdown
// grace period runs out.
type Job func(ctx context.Context)

// Dispatcher queues jobs and runs at most Workers of them at a time.
type Dispatcher struct {
	cfg       Config
	queue     chan Job
	semaphore chan struct{}
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc

	mu      sync.RWMutex
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

// New creates a dispatcher and starts its worker loop.
func New(cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dispatcher{
		cfg:       cfg,
		queue:     make(chan Job, cfg.QueueSize),
		semaphore: make(chan struct{}, cfg.Workers),
		ctx:       ctx,
		cancel:    cancel,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	go d.worker()

	return d
}

// Submit adds a job to the queue without blocking.
func (d *Dispatcher) Submit(job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return ErrStopped
	}

	select {
	case d.queue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// worker pulls jobs off the queue as worker slots free up.
func (d *Dispatcher) worker() {
	defer close(d.done)
	for {
		select {
		case <-d.stop:
			return
		case job := <-d.queue:
			select {
			case d.semaphore <- struct{}{}:
			case <-d.stop:
				return
			}

			d.wg.Add(1)
			go func(j Job) {
				defer d.wg.Done()
				defer func() { <-d.semaphore }()

				j(d.ctx)
			}(job)
		}
	}
}

// QueueLength returns the number of jobs waiting for a worker.
func (d *Dispatcher) QueueLength() int {
	return len(d.queue)
}

// ActiveCount returns the number of jobs currently running.
func (d *Dispatcher) ActiveCount() int {
	return len(d.semaphore)
}

// Shutdown stops accepting jobs and waits for running ones to finish. When
// ctx expires first, running jobs are cancelled and ctx's error is returned.
// Jobs still queued are dropped.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.stop)
	}
	d.mu.Unlock()

	<-d.done
	defer d.cancel()

	finished := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
