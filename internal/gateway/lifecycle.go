package gateway

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vyrodovalexey/scoregw/internal/observability"
)

// State is the lifecycle state of the process.
type State int32

const (
	// StateRunning accepts new connections.
	StateRunning State = iota
	// StateDraining refuses new connections while in-flight requests finish.
	StateDraining
	// StateStopped is terminal.
	StateStopped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// DefaultGracePeriod bounds how long draining waits for in-flight requests.
const DefaultGracePeriod = 30 * time.Second

// ErrGraceExceeded is returned when in-flight requests outlived the grace
// period and their connections were closed.
var ErrGraceExceeded = errors.New("grace period exceeded")

// ErrListenerStopped is returned by Run when the serve loop exited while
// the coordinator was still Running.
var ErrListenerStopped = errors.New("listener stopped unexpectedly")

// Server is the part of the listener the coordinator drives.
type Server interface {
	Shutdown(ctx context.Context) error
	Close() error
	// Serving is closed once the serve loop has exited.
	Serving() <-chan struct{}
	// Err is the error that ended the serve loop, if any.
	Err() error
}

// StateRecorder receives every state transition.
type StateRecorder interface {
	SetLifecycleState(state int)
}

// Coordinator runs the one-way Running -> Draining -> Stopped sequence.
type Coordinator struct {
	server   Server
	grace    time.Duration
	logger   observability.Logger
	recorder StateRecorder
	hooks    []func()

	state     atomic.Int32
	drainOnce sync.Once
	done      chan struct{}
	err       error
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithCoordinatorLogger sets the logger.
func WithCoordinatorLogger(logger observability.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithGracePeriod sets how long draining waits for in-flight requests.
func WithGracePeriod(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.grace = d
		}
	}
}

// WithStateRecorder sets the recorder for state transitions.
func WithStateRecorder(rec StateRecorder) CoordinatorOption {
	return func(c *Coordinator) {
		c.recorder = rec
	}
}

// WithStopHooks registers functions run once the coordinator is Stopped,
// in order. Hooks must not block; background tasks are signaled, not
// joined.
func WithStopHooks(hooks ...func()) CoordinatorOption {
	return func(c *Coordinator) {
		c.hooks = append(c.hooks, hooks...)
	}
}

// NewCoordinator creates a coordinator in the Running state.
func NewCoordinator(server Server, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		server: server,
		grace:  DefaultGracePeriod,
		logger: observability.NopLogger(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.setState(StateRunning)
	return c
}

// State returns the current state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Done returns a channel closed when the coordinator reaches Stopped.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Run blocks until a signal arrives on signals, ctx is done or the server
// stops serving on its own, then drains. A second signal while draining
// closes every connection at once. A server that stopped on its own is
// reported as ErrListenerStopped.
func (c *Coordinator) Run(ctx context.Context, signals <-chan os.Signal) error {
	select {
	case sig := <-signals:
		c.logger.Info("received shutdown signal", observability.String("signal", sig.String()))
	case <-ctx.Done():
		c.logger.Info("context done, shutting down", observability.Error(ctx.Err()))
	case <-c.server.Serving():
		stopErr := ErrListenerStopped
		if err := c.server.Err(); err != nil {
			stopErr = fmt.Errorf("%w: %w", ErrListenerStopped, err)
		}
		c.logger.Error("listener exited while running", observability.Error(stopErr))
		return errors.Join(stopErr, c.Drain())
	case <-c.done:
		return c.err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Drain()
	}()

	for {
		select {
		case err := <-errCh:
			return err
		case sig := <-signals:
			c.logger.Warn("received second signal, closing connections",
				observability.String("signal", sig.String()),
			)
			if err := c.server.Close(); err != nil {
				c.logger.Error("failed to close listener", observability.Error(err))
			}
		}
	}
}

// Drain moves to Draining, waits up to the grace period for in-flight
// requests and then moves to Stopped. It is safe to call more than once;
// every call returns after Stopped is reached.
func (c *Coordinator) Drain() error {
	c.drainOnce.Do(func() {
		c.err = c.drain()
		close(c.done)
	})
	<-c.done
	return c.err
}

func (c *Coordinator) drain() error {
	c.setState(StateDraining)
	c.logger.Info("draining", observability.Duration("grace_period", c.grace))

	ctx, cancel := context.WithTimeout(context.Background(), c.grace)
	defer cancel()

	var result error
	if err := c.server.Shutdown(ctx); err != nil {
		c.logger.Warn("in-flight requests did not finish, closing connections", observability.Error(err))
		if closeErr := c.server.Close(); closeErr != nil {
			c.logger.Error("failed to close listener", observability.Error(closeErr))
		}
		result = fmt.Errorf("%w: %w", ErrGraceExceeded, err)
	}

	c.setState(StateStopped)
	for _, hook := range c.hooks {
		hook()
	}
	c.logger.Info("stopped")

	return result
}

func (c *Coordinator) setState(s State) {
	c.state.Store(int32(s))
	if c.recorder != nil {
		c.recorder.SetLifecycleState(int(s))
	}
}

// NotifyShutdown subscribes to the platform's shutdown signals. The
// returned function unsubscribes.
func NotifyShutdown() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, ShutdownSignals()...)
	return ch, func() { signal.Stop(ch) }
}
