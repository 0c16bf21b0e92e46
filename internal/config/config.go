package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type (
	// RedisConfig holds connection settings for the workflow stores
	RedisConfig struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}

	// Config holds configuration settings for the workflow service
	Config struct {
		// API Server
		APIHost  string
		APIPort  int
		LogLevel string

		// Store
		Redis RedisConfig

		// Engine
		StepTimeout     time.Duration
		SweepInterval   time.Duration
		ConflictRetries int
		ShutdownTimeout time.Duration

		// Collaboration service; the in-process fallback is used when the
		// base URL is empty
		CollabBaseURL string
		CollabTimeout time.Duration

		// Monitoring
		PageSize int

		// Archival of terminal instances; archiving is disabled when the
		// bucket URL is empty
		ArchiveBucketURL string
		ArchivePrefix    string
	}
)

const (
	DefaultAPIPort = 8080
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535

	DefaultRedisEndpoint = "localhost:6379"
	DefaultRedisDB       = 0
	DefaultRedisPrefix   = "workflow"

	DefaultCollabTimeout = 10 * time.Second
	MaxCollabTimeout     = 5 * time.Minute

	DefaultStepTimeout     = 300 * time.Second
	DefaultSweepInterval   = 30 * time.Second
	DefaultConflictRetries = 3
	DefaultShutdownTimeout = 10 * time.Second
	DefaultPageSize        = 50

	MaxStepTimeout     = 24 * time.Hour
	MaxSweepInterval   = time.Hour
	MaxConflictRetries = 100
	MaxPageSize        = 1000
)

var (
	ErrInvalidAPIPort         = errors.New("invalid API port")
	ErrInvalidStepTimeout     = errors.New("step timeout must be positive")
	ErrInvalidSweepInterval   = errors.New("sweep interval must be positive")
	ErrInvalidConflictRetries = errors.New(
		"conflict retries cannot be negative",
	)
	ErrInvalidPageSize = errors.New("page size must be positive")
)

// NewDefaultConfig creates a configuration with sensible defaults for the
// API server, store, and engine settings
func NewDefaultConfig() *Config {
	return &Config{
		APIHost:  DefaultAPIHost,
		APIPort:  DefaultAPIPort,
		LogLevel: "info",
		Redis: RedisConfig{
			Addr:   DefaultRedisEndpoint,
			DB:     DefaultRedisDB,
			Prefix: DefaultRedisPrefix,
		},
		CollabTimeout:   DefaultCollabTimeout,
		StepTimeout:     DefaultStepTimeout,
		SweepInterval:   DefaultSweepInterval,
		ConflictRetries: DefaultConflictRetries,
		ShutdownTimeout: DefaultShutdownTimeout,
		PageSize:        DefaultPageSize,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed
func (c *Config) LoadFromEnv() error {
	if host := os.Getenv("API_HOST"); host != "" {
		c.APIHost = host
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if bucket := os.Getenv("ARCHIVE_BUCKET_URL"); bucket != "" {
		c.ArchiveBucketURL = bucket
	}
	if prefix := os.Getenv("ARCHIVE_PREFIX"); prefix != "" {
		c.ArchivePrefix = prefix
	}
	if base := os.Getenv("COLLAB_BASE_URL"); base != "" {
		c.CollabBaseURL = base
	}
	loadRedisFromEnv(&c.Redis)

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt(
		"CONFLICT_RETRIES", &c.ConflictRetries, -1, MaxConflictRetries,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"PAGE_SIZE", &c.PageSize, 0, MaxPageSize,
	); err != nil {
		return err
	}

	if err := loadEnvDuration(
		"STEP_TIMEOUT", &c.StepTimeout, MaxStepTimeout,
	); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"SWEEP_INTERVAL", &c.SweepInterval, MaxSweepInterval,
	); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"COLLAB_TIMEOUT", &c.CollabTimeout, MaxCollabTimeout,
	); err != nil {
		return err
	}

	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}
	if c.StepTimeout <= 0 {
		return ErrInvalidStepTimeout
	}
	if c.SweepInterval <= 0 {
		return ErrInvalidSweepInterval
	}
	if c.ConflictRetries < 0 {
		return ErrInvalidConflictRetries
	}
	if c.PageSize <= 0 {
		return ErrInvalidPageSize
	}
	return nil
}

func loadRedisFromEnv(r *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		r.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		r.Password = password
	}
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			r.DB = db
		}
	}
	if prefix := os.Getenv("REDIS_PREFIX"); prefix != "" {
		r.Prefix = prefix
	}
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max). Returns an error if
// the value cannot be parsed or falls outside the valid range
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}

// loadEnvDuration reads key from the environment as a Go duration string
// (e.g. "45s", "5m") and sets *dst if it parses into (0, max]
func loadEnvDuration(key string, dst *time.Duration, max time.Duration) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	if d <= 0 || d > max {
		return fmt.Errorf("invalid %s: %s out of range", key, d)
	}
	*dst = d
	return nil
}
