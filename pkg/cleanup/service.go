// Package cleanup provides the run-table retention service.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/maestro-ai/maestro/pkg/session"
)

// Defaults applied when the config leaves retention unset.
const (
	DefaultInterval  = time.Minute
	DefaultRetention = 30 * time.Minute
)

// Service periodically sweeps terminal runs out of the session manager so a
// long-lived process does not accumulate run state forever. Sweeping is
// idempotent; live runs are never touched.
type Service struct {
	sessions  *session.Manager
	interval  time.Duration
	retention time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates the retention service. Non-positive durations fall back
// to the defaults.
func NewService(sessions *session.Manager, interval, retention time.Duration) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Service{
		sessions:  sessions,
		interval:  interval,
		retention: retention,
	}
}

// Start launches the background sweep loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"interval", s.interval,
		"retention", s.retention)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Service) sweep() {
	if count := s.sessions.Sweep(s.retention); count > 0 {
		slog.Info("Retention: released terminal runs", "count", count)
	}
}
