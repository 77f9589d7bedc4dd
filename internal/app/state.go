// Package app holds the process-wide state shared by every request.
package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/vyrodovalexey/scoregw/internal/config"
	"github.com/vyrodovalexey/scoregw/internal/observability"
	"github.com/vyrodovalexey/scoregw/internal/secrets"
	"github.com/vyrodovalexey/scoregw/internal/store"
)

// ErrIncompleteState is returned by New when a required member is missing.
var ErrIncompleteState = errors.New("incomplete application state")

// State is built once at startup and shared by pointer. None of its
// members is replaced while the process runs; the secret inside Secrets
// changes only through rotation.
type State struct {
	Config  *config.Config
	Store   store.Store
	Secrets *secrets.Store
	Logger  observability.Logger
	Metrics *observability.Metrics
}

// New validates and returns the application state. Metrics may be nil.
func New(
	cfg *config.Config,
	st store.Store,
	sec *secrets.Store,
	logger observability.Logger,
	metrics *observability.Metrics,
) (*State, error) {
	switch {
	case cfg == nil:
		return nil, fmt.Errorf("%w: config", ErrIncompleteState)
	case st == nil:
		return nil, fmt.Errorf("%w: store", ErrIncompleteState)
	case sec == nil:
		return nil, fmt.Errorf("%w: secrets", ErrIncompleteState)
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	return &State{
		Config:  cfg,
		Store:   st,
		Secrets: sec,
		Logger:  logger,
		Metrics: metrics,
	}, nil
}

// SeedAdmin creates or refreshes the configured admin account. It does
// nothing when no admin password is configured.
func (s *State) SeedAdmin(ctx context.Context) error {
	auth := s.Config.Auth
	if auth.AdminUsername == "" || auth.AdminPassword == "" {
		s.Logger.Warn("admin account not seeded: no credentials configured")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(auth.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	if err := s.Store.UpsertUser(ctx, store.User{
		Username:     auth.AdminUsername,
		PasswordHash: string(hash),
		Role:         auth.AdminRole,
	}); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	s.Logger.Info("admin account seeded", observability.String("username", auth.AdminUsername))
	return nil
}
