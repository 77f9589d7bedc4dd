// Package secrets holds the process-wide signing secret and rotates it.
//
// The Store is a reader/writer-locked cell shared by every authentication
// check. The Rotator is its only writer: on a fixed interval it replaces the
// secret with a freshly generated one, which invalidates every credential
// issued before the swap.
package secrets

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vyrodovalexey/scoregw/internal/util"
)

// ErrEmptySecret is returned when an empty secret is offered to the store.
var ErrEmptySecret = errors.New("secret is empty")

// Policy is the validation policy derived from the secret's configuration.
type Policy struct {
	// Leeway is the clock skew tolerated when checking expiry.
	Leeway time.Duration
	// TokenTTL is the lifetime of credentials issued under the secret.
	TokenTTL time.Duration
}

// Snapshot is a consistent view of the store at one instant.
type Snapshot struct {
	Secret     string
	Policy     Policy
	Generation uint64
	RotatedAt  time.Time
}

// Store holds the current signing secret.
type Store struct {
	mu         sync.RWMutex
	secret     string
	policy     Policy
	generation uint64
	rotatedAt  time.Time
	now        func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreClock sets the clock used to stamp rotations.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a store seeded with secret. An empty secret is a fatal
// startup condition and is reported as util.ErrSecretUnavailable.
func NewStore(secret string, policy Policy, opts ...StoreOption) (*Store, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: %w", util.ErrSecretUnavailable, ErrEmptySecret)
	}

	s := &Store{
		secret: secret,
		policy: policy,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rotatedAt = s.now()

	return s, nil
}

// Read returns the current secret.
func (s *Store) Read() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.secret
}

// Policy returns the validation policy.
func (s *Store) Policy() Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// Snapshot returns the secret and policy read under a single lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Secret:     s.secret,
		Policy:     s.policy,
		Generation: s.generation,
		RotatedAt:  s.rotatedAt,
	}
}

// Generation returns the number of completed rotations.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Rotate replaces the secret. Readers see either the old or the new value.
func (s *Store) Rotate(secret string) error {
	if secret == "" {
		return ErrEmptySecret
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.secret = secret
	s.generation++
	s.rotatedAt = s.now()
	return nil
}
