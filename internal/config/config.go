// Package config loads runtime settings from an optional YAML file and
// YEARDLE_* environment variables, in that order of precedence, and
// validates the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/yeardle/internal/streak"
)

// Environments.
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// Config holds all application configuration.
type Config struct {
	Environment string `yaml:"environment" validate:"required,oneof=development production test"`
	LogLevel    string `yaml:"log_level" validate:"required,oneof=debug info warn error"`

	DatabasePath string `yaml:"database" validate:"required"`
	SessionPath  string `yaml:"session" validate:"required"`
	CatalogPath  string `yaml:"catalog" validate:"required"`

	// MetricsPath, when set, receives a Prometheus textfile on exit.
	MetricsPath string `yaml:"metrics"`

	JWT       JWTConfig       `yaml:"jwt"`
	Anonymous AnonymousConfig `yaml:"anonymous"`
	Breaker   BreakerConfig   `yaml:"breaker"`
}

// JWTConfig configures session tokens.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Issuer string        `yaml:"issuer" validate:"required"`
	TTL    time.Duration `yaml:"ttl" validate:"gt=0"`
}

// AnonymousConfig bounds what a signed-out device may claim at sign-in.
type AnonymousConfig struct {
	WindowDays int `yaml:"window_days" validate:"min=1,max=3650"`
	MaxStreak  int `yaml:"max_streak" validate:"min=1"`
}

// BreakerConfig configures the circuit breaker around remote writes.
type BreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests" validate:"min=1"`
	Interval         time.Duration `yaml:"interval" validate:"gte=0"`
	Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
	FailureThreshold float64       `yaml:"failure_threshold" validate:"gt=0,lte=1"`
	MinRequests      uint32        `yaml:"min_requests" validate:"min=1"`
}

// devSecret signs tokens when no secret is configured outside production.
const devSecret = "yeardle-development-secret"

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Environment:  Development,
		LogLevel:     "info",
		DatabasePath: ".yeardle/yeardle.db",
		SessionPath:  ".yeardle/session.json",
		CatalogPath:  "puzzles.json",
		JWT: JWTConfig{
			Issuer: "yeardle",
			TTL:    30 * 24 * time.Hour,
		},
		Anonymous: AnonymousConfig{
			WindowDays: streak.DefaultLimits.WindowDays,
			MaxStreak:  streak.DefaultLimits.MaxStreak,
		},
		Breaker: BreakerConfig{
			MaxRequests:      5,
			Interval:         30 * time.Second,
			Timeout:          60 * time.Second,
			FailureThreshold: 0.8,
			MinRequests:      5,
		},
	}
}

// Load builds a Config from defaults, then the YAML file at path (skipped
// when path is empty), then environment variables. A path that does not
// exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found", path)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if cfg.JWT.Secret == "" && cfg.Environment != Production {
		cfg.JWT.Secret = devSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides fields from YEARDLE_* variables.
func (c *Config) applyEnv() {
	c.Environment = getEnv("YEARDLE_ENV", c.Environment)
	c.LogLevel = getEnv("YEARDLE_LOG_LEVEL", c.LogLevel)
	c.DatabasePath = getEnv("YEARDLE_DB", c.DatabasePath)
	c.SessionPath = getEnv("YEARDLE_SESSION", c.SessionPath)
	c.CatalogPath = getEnv("YEARDLE_CATALOG", c.CatalogPath)
	c.MetricsPath = getEnv("YEARDLE_METRICS", c.MetricsPath)
	c.JWT.Secret = getEnv("YEARDLE_JWT_SECRET", c.JWT.Secret)
	c.JWT.Issuer = getEnv("YEARDLE_JWT_ISSUER", c.JWT.Issuer)
	c.Anonymous.WindowDays = getEnvInt("YEARDLE_ANON_WINDOW_DAYS", c.Anonymous.WindowDays)
	c.Anonymous.MaxStreak = getEnvInt("YEARDLE_ANON_MAX_STREAK", c.Anonymous.MaxStreak)
}

var validate = validator.New()

// Validate checks struct constraints plus the rules that span fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if c.Environment == Production && c.JWT.Secret == "" {
		return errors.New("YEARDLE_JWT_SECRET is required in production")
	}
	return nil
}

// IsProduction checks if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// Limits returns the anonymous-streak bounds.
func (c *Config) Limits() streak.Limits {
	return streak.Limits{WindowDays: c.Anonymous.WindowDays, MaxStreak: c.Anonymous.MaxStreak}
}

// formatValidationError formats validation errors into readable messages.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Namespace())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
