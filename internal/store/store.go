// Package store is the persistence collaborator of the gateway: the score
// table, the user table and a reachability probe. Two backends are
// provided, SQLite and Redis, and either can be wrapped in a circuit
// breaker.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/vyrodovalexey/scoregw/internal/config"
	"github.com/vyrodovalexey/scoregw/internal/observability"
)

// TopN is the number of scores kept on the board.
const TopN = 10

// Sentinel errors.
var (
	// ErrNotFound is returned when a user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable is returned when the circuit breaker rejects a call.
	ErrUnavailable = errors.New("store unavailable")
	// ErrUnknownDriver is returned by Open for an unsupported driver.
	ErrUnknownDriver = errors.New("unknown store driver")
)

// Score is one board entry.
type Score struct {
	PlayerName  string `json:"player_name"`
	PlayerScore int64  `json:"player_score"`
}

// User is an account that can log in.
type User struct {
	Username     string
	PasswordHash string
	Role         string
}

// Store is the persistence interface used by the handlers.
type Store interface {
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	// TopScores returns the board ordered by score, highest first.
	TopScores(ctx context.Context) ([]Score, error)
	// SubmitScore stores s if fewer than TopN scores exist or s is at
	// least the lowest of them, then trims the board to TopN. It reports
	// whether s was stored.
	SubmitScore(ctx context.Context, s Score) (bool, error)
	// Flush removes every score.
	Flush(ctx context.Context) error
	// FindUser returns the user or ErrNotFound.
	FindUser(ctx context.Context, username string) (User, error)
	// UpsertUser creates or replaces a user.
	UpsertUser(ctx context.Context, u User) error
	// Close releases the backend.
	Close() error
}

// Error wraps a backend failure with the operation that caused it.
type Error struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// Open opens the backend selected by cfg.Driver and wraps it in a circuit
// breaker when cfg.Breaker.Enabled is set.
func Open(ctx context.Context, cfg config.StoreConfig, logger observability.Logger, opts ...BreakerOption) (Store, error) {
	var (
		s   Store
		err error
	)

	switch cfg.Driver {
	case config.DriverSQLite, "":
		s, err = OpenSQLite(ctx, cfg.DSN)
	case config.DriverRedis:
		s, err = OpenRedis(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if !cfg.Breaker.Enabled {
		return s, nil
	}

	opts = append([]BreakerOption{WithBreakerLogger(logger)}, opts...)
	return NewBreaker(s, BreakerSettings{
		Name:        "store-" + driverName(cfg.Driver),
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: cfg.Breaker.OpenTimeout.Duration(),
	}, opts...), nil
}

func driverName(driver string) string {
	if driver == "" {
		return config.DriverSQLite
	}
	return driver
}
