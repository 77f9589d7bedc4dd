package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/vyrodovalexey/scoregw/internal/config"
	"github.com/vyrodovalexey/scoregw/internal/observability"
)

// Listener serves the pipeline on a TCP address.
type Listener struct {
	config  config.ServerConfig
	server  *http.Server
	handler http.Handler
	logger  observability.Logger
	running atomic.Bool

	mu       sync.Mutex
	addr     net.Addr
	serveErr error
	done     chan struct{}
}

// ListenerOption is a functional option for configuring a listener.
type ListenerOption func(*Listener)

// WithListenerLogger sets the logger for the listener.
func WithListenerLogger(logger observability.Logger) ListenerOption {
	return func(l *Listener) {
		l.logger = logger
	}
}

// NewListener creates a new listener.
func NewListener(cfg config.ServerConfig, handler http.Handler, opts ...ListenerOption) *Listener {
	l := &Listener{
		config:  cfg,
		handler: handler,
		logger:  observability.NopLogger(),
		done:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Start binds the address and serves in the background.
func (l *Listener) Start(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return fmt.Errorf("listener on %s is already running", l.config.Address)
	}

	l.server = &http.Server{
		Handler:           l.handler,
		ReadHeaderTimeout: l.config.ReadHeaderTimeout.Duration(),
		ReadTimeout:       l.config.ReadTimeout.Duration(),
		IdleTimeout:       l.config.IdleTimeout.Duration(),
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", l.config.Address)
	if err != nil {
		l.running.Store(false)
		return fmt.Errorf("failed to listen on %s: %w", l.config.Address, err)
	}

	l.mu.Lock()
	l.addr = ln.Addr()
	l.mu.Unlock()

	l.logger.Info("listener started", observability.String("address", ln.Addr().String()))

	go l.serve(ln)

	return nil
}

func (l *Listener) serve(ln net.Listener) {
	defer close(l.done)

	if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.logger.Error("listener error", observability.Error(err))
		l.mu.Lock()
		l.serveErr = err
		l.mu.Unlock()
	}
	l.running.Store(false)
}

// Addr returns the bound address, or nil before Start.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addr
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (l *Listener) Shutdown(ctx context.Context) error {
	if l.server == nil {
		return nil
	}

	l.logger.Info("stopping listener")

	if err := l.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown listener gracefully: %w", err)
	}

	l.logger.Info("listener stopped")
	return nil
}

// Close closes the listener and every open connection immediately.
func (l *Listener) Close() error {
	if l.server == nil {
		return nil
	}
	return l.server.Close()
}

// IsRunning returns true if the listener is serving.
func (l *Listener) IsRunning() bool {
	return l.running.Load()
}

// Serving returns a channel closed once the serve loop has exited.
func (l *Listener) Serving() <-chan struct{} {
	return l.done
}

// Err returns the error that ended the serve loop, or nil if it ended by
// Shutdown or Close or is still running.
func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.serveErr
}
