// Package config handles YAML configuration loading with environment
// variable expansion and struct validation.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"go.yaml.in/yaml/v3"
)

// Config is the top-level service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Cache     CacheConfig     `yaml:"cache"`
	Database  DatabaseConfig  `yaml:"database"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Workers   WorkersConfig   `yaml:"workers"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"             validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"  validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// UpstreamConfig configures the CEP lookup service.
type UpstreamConfig struct {
	BaseURL    string        `yaml:"base_url"    validate:"required,url"`
	Timeout    time.Duration `yaml:"timeout"     validate:"gt=0"`
	DNSCache   bool          `yaml:"dns_cache"`
	DNSRefresh time.Duration `yaml:"dns_refresh" validate:"gte=0"` // 0 disables the refresh worker
	Breaker    BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the optional upstream circuit breaker.
type BreakerConfig struct {
	Enabled        bool          `yaml:"enabled"`
	ErrorThreshold float64       `yaml:"error_threshold" validate:"gt=0,lte=1"`
	MinSamples     int           `yaml:"min_samples"     validate:"gte=1"`
	Window         time.Duration `yaml:"window"          validate:"gte=1s"`
	OpenTimeout    time.Duration `yaml:"open_timeout"    validate:"gt=0"`
}

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheTiered = "tiered"
)

// CacheConfig holds resolution cache settings.
type CacheConfig struct {
	Backend string        `yaml:"backend"  validate:"oneof=memory redis tiered"`
	TTL     time.Duration `yaml:"ttl"      validate:"gt=0"`
	MaxSize int           `yaml:"max_size" validate:"gte=1"`
	Redis   RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
}

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseConfig selects the audit store.
type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `yaml:"dsn"    validate:"required"` // sqlite: file path or ":memory:"; postgres: URL
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"    validate:"required_if=Enabled true"` // OTLP gRPC endpoint
	SampleRate float64 `yaml:"sample_rate" validate:"gte=0,lte=1"`
}

// WorkersConfig holds background worker intervals.
type WorkersConfig struct {
	StatsRefresh time.Duration `yaml:"stats_refresh" validate:"gt=0"`
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} patterns with environment variable values.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := string(match[2 : len(match)-1])
		if val, ok := os.LookupEnv(varName); ok {
			return []byte(val)
		}
		return match
	})
}

var validate = validator.New()

// Default returns a Config with every field set to its default.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Upstream: UpstreamConfig{
			BaseURL:    "https://viacep.com.br",
			Timeout:    5 * time.Second,
			DNSCache:   true,
			DNSRefresh: 5 * time.Minute,
			Breaker: BreakerConfig{
				ErrorThreshold: 0.5,
				MinSamples:     10,
				Window:         30 * time.Second,
				OpenTimeout:    15 * time.Second,
			},
		},
		Cache: CacheConfig{
			Backend: CacheMemory,
			TTL:     3600 * time.Second,
			MaxSize: 100_000,
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			DSN:    "ceptracker.db",
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{Enabled: true},
			Tracing: TracingConfig{SampleRate: 1.0},
		},
		Workers: WorkersConfig{
			StatsRefresh: 30 * time.Second,
		},
	}
}

// Load reads and parses a YAML config file, expanding environment variables,
// and validates the result. Unset fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	data = expandEnv(data)

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Cache.Backend != CacheMemory {
		if c.Cache.Redis.Addr == "" || envPattern.MatchString(c.Cache.Redis.Addr) {
			return fmt.Errorf("invalid config: cache.redis.addr is required for backend %q", c.Cache.Backend)
		}
	}
	return nil
}
