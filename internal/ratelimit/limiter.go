// Package ratelimit provides the keyed token-bucket registries used to
// throttle public and authenticated traffic.
//
// A Registry maps a key (client address or raw bearer credential) to a
// golang.org/x/time/rate limiter. Buckets are created on first use, refilled
// lazily from elapsed time and dropped by Sweep once they have been idle for
// a full sweep interval. Keys are spread over independently locked shards so
// unrelated callers never contend on one mutex.
package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/time/rate"
)

// Defaults for the fixed configuration knobs.
const (
	DefaultSweepInterval = 24 * time.Hour
	DefaultShards        = 32
)

// ErrInvalidConfig is returned for a non-positive capacity or refill rate.
var ErrInvalidConfig = errors.New("invalid rate limit configuration")

// Config configures a Registry.
type Config struct {
	// Name labels the registry in logs and metrics.
	Name string
	// Capacity is the bucket size (burst).
	Capacity int
	// RefillPerSecond is the number of tokens added per second.
	RefillPerSecond float64
	// SweepInterval is how long a bucket may stay idle before Sweep drops it.
	SweepInterval time.Duration
	// Shards is the number of independently locked sub-maps.
	Shards int
}

// Decision is the outcome of a Check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// bucket is the per-key state. lastAccess is guarded by the shard lock.
type bucket struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

type shard struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

// Registry is a sharded map of token buckets.
type Registry struct {
	name     string
	limit    rate.Limit
	capacity int
	idle     time.Duration
	shards   []*shard
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the clock used by Check and Sweep.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates a registry from cfg.
func NewRegistry(cfg Config, opts ...Option) (*Registry, error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, cfg.Capacity)
	}
	if cfg.RefillPerSecond <= 0 || math.IsInf(cfg.RefillPerSecond, 0) || math.IsNaN(cfg.RefillPerSecond) {
		return nil, fmt.Errorf("%w: refill rate must be positive, got %v", ErrInvalidConfig, cfg.RefillPerSecond)
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Shards <= 0 {
		cfg.Shards = DefaultShards
	}

	r := &Registry{
		name:     cfg.Name,
		limit:    rate.Limit(cfg.RefillPerSecond),
		capacity: cfg.Capacity,
		idle:     cfg.SweepInterval,
		shards:   make([]*shard, cfg.Shards),
		now:      time.Now,
	}
	for i := range r.shards {
		r.shards[i] = &shard{buckets: make(map[string]*bucket)}
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Name returns the registry name.
func (r *Registry) Name() string {
	return r.name
}

// SweepInterval returns the idle period after which buckets are dropped.
func (r *Registry) SweepInterval() time.Duration {
	return r.idle
}

func (r *Registry) shardFor(key string) *shard {
	return r.shards[xxhash.Sum64String(key)%uint64(len(r.shards))]
}

// Check takes one token from key's bucket if one is available. The take is
// atomic per key: concurrent checks never both succeed on the last token.
func (r *Registry) Check(key string) Decision {
	now := r.now()
	s := r.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(r.limit, r.capacity)}
		s.buckets[key] = b
	}
	b.lastAccess = now

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)

	d := Decision{
		Allowed:   allowed,
		Limit:     r.capacity,
		Remaining: int(math.Max(0, math.Floor(tokens))),
	}
	if !allowed {
		d.RetryAfter = time.Duration((1 - tokens) / float64(r.limit) * float64(time.Second))
	}
	return d
}

// Sweep drops every bucket that has not been touched for a full sweep
// interval and returns how many were removed. Shards are locked one at a
// time, so a concurrent Check on a swept key simply recreates a full bucket.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idle)
	removed := 0

	for _, s := range r.shards {
		s.mu.Lock()
		for key, b := range s.buckets {
			if !b.lastAccess.After(cutoff) {
				delete(s.buckets, key)
				removed++
			}
		}
		s.mu.Unlock()
	}

	return removed
}

// Len returns the number of live buckets.
func (r *Registry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.Lock()
		n += len(s.buckets)
		s.mu.Unlock()
	}
	return n
}
