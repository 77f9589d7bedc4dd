package secrets

import (
	"context"
	"sync"
	"time"

	"github.com/vyrodovalexey/scoregw/internal/observability"
)

// DefaultRotationInterval is how often the secret is replaced.
const DefaultRotationInterval = 24 * time.Hour

// RotationRecorder receives the outcome of every rotation attempt.
type RotationRecorder interface {
	RecordSecretRotation(success bool)
}

// Rotator periodically replaces the secret in a Store.
type Rotator struct {
	store    *Store
	interval time.Duration
	length   int
	generate Generator
	logger   observability.Logger
	recorder RotationRecorder

	stopCh   chan struct{}
	doneCh   chan struct{}
	startMu  sync.Mutex
	started  bool
	stopOnce sync.Once
}

// RotatorOption configures a Rotator.
type RotatorOption func(*Rotator)

// WithRotatorLogger sets the logger.
func WithRotatorLogger(logger observability.Logger) RotatorOption {
	return func(r *Rotator) {
		r.logger = logger
	}
}

// WithGenerator replaces the secret generator.
func WithGenerator(g Generator) RotatorOption {
	return func(r *Rotator) {
		r.generate = g
	}
}

// WithSecretLength sets the length of generated secrets.
func WithSecretLength(n int) RotatorOption {
	return func(r *Rotator) {
		r.length = n
	}
}

// WithRotationRecorder sets the rotation outcome recorder.
func WithRotationRecorder(rec RotationRecorder) RotatorOption {
	return func(r *Rotator) {
		r.recorder = rec
	}
}

// NewRotator creates a rotator for store. A non-positive interval falls back
// to DefaultRotationInterval.
func NewRotator(store *Store, interval time.Duration, opts ...RotatorOption) *Rotator {
	if interval <= 0 {
		interval = DefaultRotationInterval
	}

	r := &Rotator{
		store:    store,
		interval: interval,
		length:   DefaultSecretLength,
		generate: GenerateSecret,
		logger:   observability.NopLogger(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RotateNow generates a new secret and swaps it in. On failure the current
// secret stays in place.
func (r *Rotator) RotateNow() error {
	secret, err := r.generate(r.length)
	if err == nil {
		err = r.store.Rotate(secret)
	}

	if r.recorder != nil {
		r.recorder.RecordSecretRotation(err == nil)
	}
	if err != nil {
		r.logger.Error("secret rotation failed, retrying on next tick",
			observability.Error(err),
			observability.Duration("interval", r.interval),
		)
		return err
	}

	r.logger.Info("signing secret rotated",
		observability.Int64("generation", int64(r.store.Generation())), //nolint:gosec // generation stays far below MaxInt64
	)
	return nil
}

// Start launches the rotation loop. It returns immediately; the loop runs
// until ctx is cancelled or Stop is called. Calling Start twice is a no-op.
func (r *Rotator) Start(ctx context.Context) {
	r.startMu.Lock()
	defer r.startMu.Unlock()
	if r.started {
		return
	}
	r.started = true

	go r.run(ctx)
}

func (r *Rotator) run(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			_ = r.RotateNow()
		}
	}
}

// Stop ends the rotation loop and waits for it to exit if it was started.
func (r *Rotator) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})

	r.startMu.Lock()
	started := r.started
	r.startMu.Unlock()
	if started {
		<-r.doneCh
	}
}
