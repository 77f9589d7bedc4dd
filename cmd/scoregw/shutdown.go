package main

import (
	"context"
	"os"
	"time"

	"github.com/vyrodovalexey/scoregw/internal/gateway"
	"github.com/vyrodovalexey/scoregw/internal/observability"
)

// stopTimeout bounds the flush of the tracer and the metrics server once
// the gateway has stopped.
const stopTimeout = 5 * time.Second

// run starts the listener and the background tasks, then blocks until a
// shutdown signal has been handled.
func run(ctx context.Context, a *application) error {
	signals, stopNotify := gateway.NotifyShutdown()
	defer stopNotify()

	return serve(ctx, a, signals)
}

// serve is run without the process signal subscription.
func serve(ctx context.Context, a *application, signals <-chan os.Signal) error {
	coordinator, err := start(ctx, a)
	if err != nil {
		a.closeResources()
		return err
	}
	return coordinator.Run(ctx, signals)
}

// start binds the listener and launches the background tasks. The returned
// coordinator owns the shutdown sequence.
func start(ctx context.Context, a *application) (*gateway.Coordinator, error) {
	if err := a.listener.Start(ctx); err != nil {
		return nil, err
	}

	if a.metricsServer != nil {
		go runMetricsServer(a.metricsServer, a.logger)
	}

	a.rotator.Start(ctx)
	a.sweeper.Start(ctx)

	return gateway.NewCoordinator(a.listener,
		gateway.WithCoordinatorLogger(a.logger),
		gateway.WithGracePeriod(a.state.Config.Server.ShutdownGrace.Duration()),
		gateway.WithStateRecorder(lifecycleRecorder{metrics: a.metrics, checker: a.healthChecker}),
		gateway.WithStopHooks(a.stopBackground, a.closeResources),
	), nil
}

// stopBackground halts the rotation and sweep loops.
func (a *application) stopBackground() {
	a.rotator.Stop()
	a.sweeper.Stop()
}

// closeResources releases everything the gateway no longer needs once no
// request is in flight.
func (a *application) closeResources() {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if a.metricsServer != nil {
		a.logger.Info("stopping metrics server")
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			a.logger.Error("failed to stop metrics server gracefully", observability.Error(err))
		}
	}

	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	if err := a.state.Store.Close(); err != nil {
		a.logger.Error("failed to close store", observability.Error(err))
	}

	a.logger.Info("scoregw stopped")
}
