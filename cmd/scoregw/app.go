package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vyrodovalexey/scoregw/internal/api"
	"github.com/vyrodovalexey/scoregw/internal/app"
	"github.com/vyrodovalexey/scoregw/internal/config"
	"github.com/vyrodovalexey/scoregw/internal/gateway"
	"github.com/vyrodovalexey/scoregw/internal/health"
	"github.com/vyrodovalexey/scoregw/internal/observability"
	"github.com/vyrodovalexey/scoregw/internal/ratelimit"
	"github.com/vyrodovalexey/scoregw/internal/retry"
	"github.com/vyrodovalexey/scoregw/internal/secrets"
	"github.com/vyrodovalexey/scoregw/internal/store"
	"github.com/vyrodovalexey/scoregw/internal/util"
)

const (
	metricsNamespace = "scoregw"
	databaseCheck    = "database"
)

// application holds all application components.
type application struct {
	state         *app.State
	listener      *gateway.Listener
	pipeline      *gateway.Pipeline
	rotator       *secrets.Rotator
	sweeper       *ratelimit.Sweeper
	healthChecker *health.Checker
	metrics       *observability.Metrics
	metricsServer *http.Server
	tracer        *observability.Tracer
	logger        observability.Logger
}

// newApplication builds every component. Nothing is started: no socket is
// bound and no background task runs until run is called.
func newApplication(ctx context.Context, cfg *config.Config, logger observability.Logger) (*application, error) {
	metrics := observability.NewMetrics(metricsNamespace)
	metrics.SetBuildInfo(version, gitCommit, buildTime)

	secretStore, err := initSecrets(cfg)
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, cfg.Store, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	state, err := app.New(cfg, st, secretStore, logger, metrics)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if err := state.SeedAdmin(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	tracer, err := observability.NewTracer(ctx, observability.TracerConfig{
		ServiceName:  cfg.Observability.Tracing.ServiceName,
		OTLPEndpoint: cfg.Observability.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Observability.Tracing.SamplingRate,
		Enabled:      cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	public, authenticated, err := initRegistries(cfg.RateLimit)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	healthChecker := health.NewChecker(health.WithStatusRecorder(metrics))
	healthChecker.RegisterCheck(databaseCheck, health.PingCheck(st))

	router := api.NewRouter(api.NewHandlers(state, healthChecker))

	pipeline, err := gateway.NewPipeline(gateway.PipelineConfig{
		Secrets:          secretStore,
		Public:           public,
		Authenticated:    authenticated,
		PublicKey:        ratelimit.IPKey(ratelimit.NewClientIPExtractor(cfg.RateLimit.TrustedProxies)),
		AuthenticatedKey: ratelimit.BearerKey,
		MaxBodyBytes:     cfg.Limits.BodyBytes,
		RequestTimeout:   cfg.Limits.RequestTimeout.Duration(),
		CORS:             &cfg.CORS,
		ProtectedPrefix:  cfg.Auth.ProtectedPrefix,
		Logger:           logger,
		Metrics:          metrics,
		Tracer:           tracer,
	}, router)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	a := &application{
		state:         state,
		listener:      gateway.NewListener(cfg.Server, pipeline, gateway.WithListenerLogger(logger)),
		pipeline:      pipeline,
		healthChecker: healthChecker,
		metrics:       metrics,
		tracer:        tracer,
		logger:        logger,
		rotator: secrets.NewRotator(secretStore, cfg.Auth.RotationInterval.Duration(),
			secrets.WithRotatorLogger(logger),
			secrets.WithSecretLength(cfg.Auth.SecretLength),
			secrets.WithRotationRecorder(metrics),
		),
		sweeper: ratelimit.NewSweeper(cfg.RateLimit.SweepInterval.Duration(),
			[]*ratelimit.Registry{public, authenticated},
			ratelimit.WithSweeperLogger(logger),
			ratelimit.WithSizeRecorder(metrics),
		),
	}

	if cfg.Observability.Metrics.Enabled {
		a.metricsServer = createMetricsServer(cfg.Observability.Metrics, metrics, healthChecker, logger)
	}

	return a, nil
}

// openStore connects to the configured backend, retrying with backoff while
// it is not reachable yet. An unknown driver is not retried.
func openStore(
	ctx context.Context,
	cfg config.StoreConfig,
	logger observability.Logger,
	metrics *observability.Metrics,
) (store.Store, error) {
	var st store.Store
	policy := retry.Policy{
		MaxRetries:     cfg.Connect.MaxRetries,
		InitialBackoff: cfg.Connect.InitialBackoff.Duration(),
		MaxBackoff:     cfg.Connect.MaxBackoff.Duration(),
	}

	err := retry.Do(ctx, policy,
		func(ctx context.Context) error {
			var err error
			st, err = store.Open(ctx, cfg, logger, store.WithBreakerStateCallback(metrics.SetCircuitBreakerState))
			return err
		},
		retry.WithShouldRetry(func(err error) bool {
			return !errors.Is(err, store.ErrUnknownDriver)
		}),
		retry.WithOnRetry(func(attempt int, err error, backoff time.Duration) {
			logger.Warn("store not reachable, retrying",
				observability.Int("attempt", attempt),
				observability.Duration("backoff", backoff),
				observability.Error(err),
			)
		}),
	)
	return st, err
}

// initSecrets generates the first signing secret. The process must not
// start without one.
func initSecrets(cfg *config.Config) (*secrets.Store, error) {
	secret, err := secrets.GenerateSecret(cfg.Auth.SecretLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", util.ErrSecretUnavailable, err)
	}
	return secrets.NewStore(secret, secrets.Policy{
		Leeway:   cfg.Auth.Leeway.Duration(),
		TokenTTL: cfg.Auth.TokenTTL.Duration(),
	})
}

// initRegistries creates the public and authenticated limiters.
func initRegistries(cfg config.RateLimitConfig) (public, authenticated *ratelimit.Registry, err error) {
	public, err = ratelimit.NewRegistry(ratelimit.Config{
		Name:            "public",
		Capacity:        cfg.Public.Capacity,
		RefillPerSecond: cfg.Public.RefillPerSecond(),
		SweepInterval:   cfg.SweepInterval.Duration(),
		Shards:          cfg.Shards,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("public rate limiter: %w", err)
	}

	authenticated, err = ratelimit.NewRegistry(ratelimit.Config{
		Name:            "authenticated",
		Capacity:        cfg.Authenticated.Capacity,
		RefillPerSecond: cfg.Authenticated.RefillPerSecond(),
		SweepInterval:   cfg.SweepInterval.Duration(),
		Shards:          cfg.Shards,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("authenticated rate limiter: %w", err)
	}

	return public, authenticated, nil
}

// lifecycleRecorder mirrors lifecycle transitions into the metrics gauge
// and the readiness report.
type lifecycleRecorder struct {
	metrics *observability.Metrics
	checker *health.Checker
}

// SetLifecycleState implements gateway.StateRecorder.
func (r lifecycleRecorder) SetLifecycleState(state int) {
	if r.metrics != nil {
		r.metrics.SetLifecycleState(state)
	}
	r.checker.SetDraining(state != int(gateway.StateRunning))
}
