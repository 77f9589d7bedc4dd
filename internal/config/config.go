package config

import "time"

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config is the root configuration of the score gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Limits        LimitsConfig        `yaml:"limits" json:"limits"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit" json:"rateLimit"`
	Auth          AuthConfig          `yaml:"auth" json:"auth"`
	CORS          CORSConfig          `yaml:"cors" json:"cors"`
	Store         StoreConfig         `yaml:"store" json:"store"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address           string   `yaml:"address" json:"address"`
	ShutdownGrace     Duration `yaml:"shutdown_grace" json:"shutdownGrace"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout" json:"readHeaderTimeout"`
	ReadTimeout       Duration `yaml:"read_timeout" json:"readTimeout"`
	IdleTimeout       Duration `yaml:"idle_timeout" json:"idleTimeout"`
}

// LimitsConfig bounds the resources a single request can consume.
type LimitsConfig struct {
	BodyBytes      int64    `yaml:"body_bytes" json:"bodyBytes"`
	RequestTimeout Duration `yaml:"request_timeout" json:"requestTimeout"`
}

// BucketConfig configures one token-bucket limiter.
type BucketConfig struct {
	Capacity        int     `yaml:"capacity" json:"capacity"`
	RefillPerMinute float64 `yaml:"refill_per_minute" json:"refillPerMinute"`
}

// RefillPerSecond returns the refill rate in tokens per second.
func (b BucketConfig) RefillPerSecond() float64 {
	return b.RefillPerMinute / 60
}

// RateLimitConfig configures the public and authenticated limiters.
type RateLimitConfig struct {
	Public         BucketConfig `yaml:"public" json:"public"`
	Authenticated  BucketConfig `yaml:"authenticated" json:"authenticated"`
	SweepInterval  Duration     `yaml:"sweep_interval" json:"sweepInterval"`
	Shards         int          `yaml:"shards" json:"shards"`
	TrustedProxies []string     `yaml:"trusted_proxies" json:"trustedProxies"`
}

// AuthConfig configures credential issuing and verification.
type AuthConfig struct {
	Leeway           Duration `yaml:"leeway" json:"leeway"`
	TokenTTL         Duration `yaml:"token_ttl" json:"tokenTTL"`
	RotationInterval Duration `yaml:"rotation_interval" json:"rotationInterval"`
	SecretLength     int      `yaml:"secret_length" json:"secretLength"`
	ProtectedPrefix  string   `yaml:"protected_prefix" json:"protectedPrefix"`
	AdminUsername    string   `yaml:"admin_username" json:"adminUsername"`
	AdminPassword    string   `yaml:"admin_password" json:"-"`
	AdminRole        string   `yaml:"admin_role" json:"adminRole"`
}

// CORSConfig configures cross-origin access.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins" json:"allowedOrigins"`
	AllowedMethods   []string `yaml:"allowed_methods" json:"allowedMethods"`
	AllowedHeaders   []string `yaml:"allowed_headers" json:"allowedHeaders"`
	// AllowCredentials must stay false; Validate rejects true.
	AllowCredentials bool     `yaml:"allow_credentials" json:"allowCredentials"`
	MaxAge           int      `yaml:"max_age" json:"maxAge"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver        string        `yaml:"driver" json:"driver"`
	DSN           string        `yaml:"dsn" json:"dsn"`
	RedisAddr     string        `yaml:"redis_addr" json:"redisAddr"`
	RedisPassword string        `yaml:"redis_password" json:"-"`
	RedisDB       int           `yaml:"redis_db" json:"redisDB"`
	Breaker       BreakerConfig `yaml:"breaker" json:"breaker"`
	Connect       ConnectConfig `yaml:"connect" json:"connect"`
}

// ConnectConfig bounds the retries of the initial store connection.
type ConnectConfig struct {
	MaxRetries     int      `yaml:"max_retries" json:"maxRetries"`
	InitialBackoff Duration `yaml:"initial_backoff" json:"initialBackoff"`
	MaxBackoff     Duration `yaml:"max_backoff" json:"maxBackoff"`
}

// BreakerConfig configures the circuit breaker around the store.
type BreakerConfig struct {
	Enabled     bool     `yaml:"enabled" json:"enabled"`
	MaxFailures uint32   `yaml:"max_failures" json:"maxFailures"`
	OpenTimeout Duration `yaml:"open_timeout" json:"openTimeout"`
}

// ObservabilityConfig groups logging, metrics and tracing.
type ObservabilityConfig struct {
	Log     LogConfig     `yaml:"log" json:"log"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string        `yaml:"level" json:"level"`
	Format string        `yaml:"format" json:"format"`
	Output string        `yaml:"output" json:"output"`
	File   LogFileConfig `yaml:"file" json:"file"`
}

// LogFileConfig configures the rolling log file.
type LogFileConfig struct {
	Path       string `yaml:"path" json:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"maxSizeMB"`
	MaxAgeDays int    `yaml:"max_age_days" json:"maxAgeDays"`
	MaxBackups int    `yaml:"max_backups" json:"maxBackups"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
	Path    string `yaml:"path" json:"path"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlpEndpoint"`
	SamplingRate float64 `yaml:"sampling_rate" json:"samplingRate"`
	ServiceName  string  `yaml:"service_name" json:"serviceName"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:           "0.0.0.0:8080",
			ShutdownGrace:     Duration(30 * time.Second),
			ReadHeaderTimeout: Duration(5 * time.Second),
			ReadTimeout:       Duration(15 * time.Second),
			IdleTimeout:       Duration(120 * time.Second),
		},
		Limits: LimitsConfig{
			BodyBytes:      1024,
			RequestTimeout: Duration(10 * time.Second),
		},
		RateLimit: RateLimitConfig{
			Public:        BucketConfig{Capacity: 3, RefillPerMinute: 60},
			Authenticated: BucketConfig{Capacity: 5, RefillPerMinute: 60},
			SweepInterval: Duration(24 * time.Hour),
			Shards:        32,
		},
		Auth: AuthConfig{
			Leeway:           Duration(60 * time.Second),
			TokenTTL:         Duration(time.Hour),
			RotationInterval: Duration(24 * time.Hour),
			SecretLength:     32,
			ProtectedPrefix:  "/api/",
			AdminUsername:    "admin",
			AdminRole:        "admin",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://0.0.0.0:3000", "http://0.0.0.0:8080"},
			AllowedMethods: []string{"GET", "POST", "DELETE"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         86400,
		},
		Store: StoreConfig{
			Driver: DriverSQLite,
			DSN:    "file:scoregw.db",
			Breaker: BreakerConfig{
				Enabled:     true,
				MaxFailures: 5,
				OpenTimeout: Duration(30 * time.Second),
			},
			Connect: ConnectConfig{
				MaxRetries:     5,
				InitialBackoff: Duration(200 * time.Millisecond),
				MaxBackoff:     Duration(5 * time.Second),
			},
		},
		Observability: ObservabilityConfig{
			Log: LogConfig{
				Level:  "info",
				Format: "json",
				Output: "stdout",
				File: LogFileConfig{
					Path:       "logs/serv.log",
					MaxSizeMB:  100,
					MaxAgeDays: 7,
					MaxBackups: 7,
					Compress:   true,
				},
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Address: ":9090",
				Path:    "/metrics",
			},
			Tracing: TracingConfig{
				SamplingRate: 1.0,
				ServiceName:  "scoregw",
			},
		},
	}
}
