package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/vyrodovalexey/scoregw/internal/observability"
)

// SizeRecorder receives the number of live buckets after each sweep.
type SizeRecorder interface {
	SetRateLimitKeys(limiter string, n int)
}

// Sweeper runs Registry.Sweep on a fixed interval.
type Sweeper struct {
	registries []*Registry
	interval   time.Duration
	logger     observability.Logger
	recorder   SizeRecorder

	stopCh   chan struct{}
	doneCh   chan struct{}
	startMu  sync.Mutex
	started  bool
	stopOnce sync.Once
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweeperLogger sets the logger.
func WithSweeperLogger(logger observability.Logger) SweeperOption {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

// WithSizeRecorder sets the recorder for registry sizes.
func WithSizeRecorder(rec SizeRecorder) SweeperOption {
	return func(s *Sweeper) {
		s.recorder = rec
	}
}

// NewSweeper creates a sweeper for the given registries.
func NewSweeper(interval time.Duration, registries []*Registry, opts ...SweeperOption) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	s := &Sweeper{
		registries: registries,
		interval:   interval,
		logger:     observability.NopLogger(),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SweepNow sweeps every registry once.
func (s *Sweeper) SweepNow() {
	for _, r := range s.registries {
		removed := r.Sweep()
		remaining := r.Len()

		if s.recorder != nil {
			s.recorder.SetRateLimitKeys(r.Name(), remaining)
		}
		s.logger.Debug("rate limit sweep completed",
			observability.String("limiter", r.Name()),
			observability.Int("removed", removed),
			observability.Int("remaining", remaining),
		)
	}
}

// Start launches the sweep loop. Calling Start twice is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.started {
		return
	}
	s.started = true

	go func() {
		defer close(s.doneCh)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.SweepNow()
			}
		}
	}()
}

// Stop ends the sweep loop and waits for it to exit if it was started.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})

	s.startMu.Lock()
	started := s.started
	s.startMu.Unlock()
	if started {
		<-s.doneCh
	}
}
