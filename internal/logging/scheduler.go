package logging

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// CleanupScheduler runs a Cleaner periodically.
type CleanupScheduler struct {
	cleaner  *Cleaner
	interval time.Duration
	logger   *zap.SugaredLogger
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewCleanupScheduler(cleaner *Cleaner, interval time.Duration, logger *zap.SugaredLogger) *CleanupScheduler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &CleanupScheduler{
		cleaner:  cleaner,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs one cleanup immediately and then one per interval until Stop.
func (s *CleanupScheduler) Start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runCleanup()
		for {
			select {
			case <-ticker.C:
				s.runCleanup()
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *CleanupScheduler) runCleanup() {
	deleted, err := s.cleaner.Cleanup()
	if err != nil {
		s.logger.Warnw("Log cleanup failed", "error", err)
	} else if deleted > 0 {
		s.logger.Infow("Cleaned up old run logs", "deleted", deleted)
	}
}

// Stop halts the scheduler and waits for a running cleanup to finish. It
// must only be called after Start.
func (s *CleanupScheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
}
