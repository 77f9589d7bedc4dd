package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/vyrodovalexey/scoregw/internal/util"
)

// minSecretLength is the shortest signing secret accepted for HS256.
const minSecretLength = 16

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, e[i].Error())
	}
	return sb.String()
}

// Unwrap lets callers match any validation failure with util.ErrConfigurationFailure.
func (e ValidationErrors) Unwrap() error {
	return util.ErrConfigurationFailure
}

// Validate checks every rule and reports all violations at once.
func Validate(cfg *Config) error {
	if cfg == nil {
		return ValidationErrors{{Message: "configuration is nil"}}
	}

	var errs ValidationErrors
	add := func(path, format string, args ...any) {
		errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if cfg.Server.Address == "" {
		add("server.address", "address is required")
	}
	if cfg.Server.ShutdownGrace <= 0 {
		add("server.shutdown_grace", "must be positive")
	}
	if cfg.Server.ReadTimeout < 0 {
		add("server.read_timeout", "must not be negative")
	}

	if cfg.Limits.BodyBytes <= 0 {
		add("limits.body_bytes", "must be positive, got %d", cfg.Limits.BodyBytes)
	}
	if cfg.Limits.RequestTimeout <= 0 {
		add("limits.request_timeout", "must be positive")
	}

	validateBucket("rate_limit.public", cfg.RateLimit.Public, add)
	validateBucket("rate_limit.authenticated", cfg.RateLimit.Authenticated, add)
	if cfg.RateLimit.SweepInterval <= 0 {
		add("rate_limit.sweep_interval", "must be positive")
	}
	if cfg.RateLimit.Shards <= 0 {
		add("rate_limit.shards", "must be positive, got %d", cfg.RateLimit.Shards)
	}
	for i, cidr := range cfg.RateLimit.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			add(fmt.Sprintf("rate_limit.trusted_proxies[%d]", i), "invalid CIDR %q", cidr)
		}
	}

	if cfg.Auth.Leeway < 0 {
		add("auth.leeway", "must not be negative")
	}
	if cfg.Auth.TokenTTL <= 0 {
		add("auth.token_ttl", "must be positive")
	}
	if cfg.Auth.RotationInterval <= 0 {
		add("auth.rotation_interval", "must be positive")
	}
	if cfg.Auth.SecretLength < minSecretLength {
		add("auth.secret_length", "must be at least %d, got %d", minSecretLength, cfg.Auth.SecretLength)
	}
	if !strings.HasPrefix(cfg.Auth.ProtectedPrefix, "/") {
		add("auth.protected_prefix", "must start with '/'")
	}

	if cfg.CORS.AllowCredentials {
		add("cors.allow_credentials", "credentials are never allowed cross-origin")
	}
	if cfg.CORS.MaxAge < 0 {
		add("cors.max_age", "must not be negative")
	}

	switch cfg.Store.Driver {
	case DriverSQLite:
		if cfg.Store.DSN == "" {
			add("store.dsn", "dsn is required for sqlite")
		}
	case DriverRedis:
		if cfg.Store.RedisAddr == "" {
			add("store.redis_addr", "redis_addr is required for redis")
		}
	default:
		add("store.driver", "unknown driver %q", cfg.Store.Driver)
	}
	if cfg.Store.Breaker.Enabled && cfg.Store.Breaker.MaxFailures == 0 {
		add("store.breaker.max_failures", "must be positive when the breaker is enabled")
	}
	if cfg.Store.Connect.MaxRetries < 0 {
		add("store.connect.max_retries", "must not be negative")
	}

	switch cfg.Observability.Log.Format {
	case "json", "console":
	default:
		add("observability.log.format", "unknown format %q", cfg.Observability.Log.Format)
	}
	switch cfg.Observability.Log.Output {
	case "stdout", "stderr", "file":
	default:
		add("observability.log.output", "unknown output %q", cfg.Observability.Log.Output)
	}
	if r := cfg.Observability.Tracing.SamplingRate; r < 0 || r > 1 {
		add("observability.tracing.sampling_rate", "must be within [0, 1], got %v", r)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateBucket(path string, b BucketConfig, add func(path, format string, args ...any)) {
	if b.Capacity <= 0 {
		add(path+".capacity", "must be positive, got %d", b.Capacity)
	}
	if b.RefillPerMinute <= 0 {
		add(path+".refill_per_minute", "must be positive, got %v", b.RefillPerMinute)
	}
}
