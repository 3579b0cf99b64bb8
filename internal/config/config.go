package config

import (
	"errors"
	"fmt"
	"time"
)

// Config represents the complete application configuration, layered as
// defaults, then an optional YAML file, then .env files, then environment.
type Config struct {
	Environment   string              `mapstructure:"environment"`
	Server        ServerConfig        `mapstructure:"server"`
	Store         StoreConfig         `mapstructure:"store"`
	CORS          CORSConfig          `mapstructure:"cors"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	OGImage       OGImageConfig       `mapstructure:"og_image"`
	ErrorTracking ErrorTrackingConfig `mapstructure:"error_tracking"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Health        HealthConfig        `mapstructure:"health"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// CORSConfig holds the origin allow-list. "*" allows every origin.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig controls limiter housekeeping. Category quotas are fixed
// in code.
type RateLimitConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// OGImageConfig bounds the rendered image cache.
type OGImageConfig struct {
	CacheMaxAge  time.Duration `mapstructure:"cache_max_age"`
	CacheMaxSize int           `mapstructure:"cache_max_size"`
}

// ErrorTrackingConfig configures Sentry. An empty DSN disables reporting.
type ErrorTrackingConfig struct {
	DSN              string  `mapstructure:"dsn"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level (SIMPLE, STRUCTURED)
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated exporter port; /metrics on the main server
	// proxies it.
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c != nil && c.Environment == "production"
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 0 and 65535, got %d", c.Metrics.Port)
	}
	if c.RateLimit.SweepInterval <= 0 {
		return errors.New("rate_limit.sweep_interval must be positive")
	}
	if c.OGImage.CacheMaxSize < 1 {
		return errors.New("og_image.cache_max_size must be at least 1")
	}
	if c.OGImage.CacheMaxAge <= 0 {
		return errors.New("og_image.cache_max_age must be positive")
	}
	if c.ErrorTracking.TracesSampleRate < 0 || c.ErrorTracking.TracesSampleRate > 1 {
		return errors.New("error_tracking.traces_sample_rate must be within [0, 1]")
	}
	return nil
}
