package iam

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler renews the credential store on a fixed interval so request-path
// consumers normally never observe an expired token. Refresh failures are
// logged and the next tick proceeds as scheduled.
type Scheduler struct {
	store    *Store
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

// NewScheduler constructs a background refresher with the given period.
func NewScheduler(store *Store, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:    store,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the refresh loop. The first refresh runs immediately rather
// than waiting a full period.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	go s.run()
}

// Stop terminates the refresh loop and waits for it to exit. Safe to call
// multiple times; a no-op if Start was never called.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	s.mu.Unlock()

	close(s.stop)
	if started {
		<-s.done
	}
}

func (s *Scheduler) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.refreshOnce()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.refreshOnce()
		}
	}
}

func (s *Scheduler) refreshOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.store.Refresh(ctx); err != nil {
		s.logger.Error("scheduled token refresh failed", "error", err)
		return
	}

	info := s.store.Info()
	s.logger.Info("token refreshed", "expires_at", info.ExpiresAt)
}
