// Package config provides configuration management for the harvester.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nilaykumar/msc-viz/pkg/harvest"
	"github.com/nilaykumar/msc-viz/pkg/logging"
	"github.com/nilaykumar/msc-viz/pkg/oai"
	"github.com/nilaykumar/msc-viz/pkg/output"
)

// Configuration validation errors.
var (
	ErrInvalidBaseURL           = errors.New("harvest.base_url must be an absolute URL")
	ErrMissingMetadataPrefix    = errors.New("harvest.metadata_prefix is required")
	ErrInvalidFormat            = errors.New("harvest.format must be 'legacy' or 'csv'")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be non-negative")
	ErrInvalidInitialBackoff    = errors.New("retry.initial_backoff_ms must be non-negative")
	ErrInvalidMaxBackoff        = errors.New("retry.max_backoff_ms must not be below retry.initial_backoff_ms")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("http.timeout_sec must be at least 1")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
)

// Config represents the complete harvester configuration.
type Config struct {
	Harvest HarvestConfig `yaml:"harvest"`
	Retry   RetryConfig   `yaml:"retry"`
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
	Redis   RedisConfig   `yaml:"redis"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// HarvestConfig describes what to harvest and where to write it.
type HarvestConfig struct {
	BaseURL        string `yaml:"base_url"`
	MetadataPrefix string `yaml:"metadata_prefix"`
	StartDate      string `yaml:"start_date"`
	TargetSeries   string `yaml:"target_series"`
	OutputPath     string `yaml:"output_path"`
	ResumeToken    string `yaml:"resume_token"`
	Format         string `yaml:"format"`
}

// RetryConfig defines how malformed pages are retried. MaxAttempts 0
// retries forever.
type RetryConfig struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialBackoffMs  int     `yaml:"initial_backoff_ms"`
	MaxBackoffMs      int     `yaml:"max_backoff_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	Jitter            bool    `yaml:"jitter"`
}

// HTTPConfig defines fetcher settings.
type HTTPConfig struct {
	UserAgent  string `yaml:"user_agent"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// RedisConfig defines the checkpoint store. An empty Addr disables
// checkpoints.
type RedisConfig struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

// MetricsConfig defines the metrics endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration of the original zbMATH harvest.
func Default() *Config {
	return &Config{
		Harvest: HarvestConfig{
			BaseURL:        oai.DefaultBaseURL,
			MetadataPrefix: oai.DefaultMetadataPrefix,
			StartDate:      "2020-01-01",
			TargetSeries:   "Advances in Mathematics",
			OutputPath:     "data.csv",
			Format:         string(output.FormatLegacy),
		},
		Retry: RetryConfig{
			BackoffMultiplier: 2.0,
		},
		HTTP: HTTPConfig{
			UserAgent:  oai.DefaultUserAgent,
			TimeoutSec: 300,
		},
		Logging: LoggingConfig{
			Level: string(logging.LevelInfo),
		},
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default values. The result is not validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv() {
	c.Harvest.BaseURL = getEnv("MSCHARVEST_BASE_URL", c.Harvest.BaseURL)
	c.Harvest.StartDate = getEnv("MSCHARVEST_START_DATE", c.Harvest.StartDate)
	c.Harvest.TargetSeries = getEnv("MSCHARVEST_TARGET_SERIES", c.Harvest.TargetSeries)
	c.Harvest.OutputPath = getEnv("MSCHARVEST_OUTPUT", c.Harvest.OutputPath)
	c.Harvest.Format = getEnv("MSCHARVEST_FORMAT", c.Harvest.Format)
	c.HTTP.UserAgent = getEnv("USER_AGENT", c.HTTP.UserAgent)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Redis.Addr = getEnv("REDIS_URL", c.Redis.Addr)
	c.Metrics.Addr = getEnv("METRICS_ADDR", c.Metrics.Addr)

	if v := os.Getenv("MSCHARVEST_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retry.MaxAttempts = n
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.ParseRequestURI(c.Harvest.BaseURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.Harvest.BaseURL)
	}
	if c.Harvest.MetadataPrefix == "" {
		return ErrMissingMetadataPrefix
	}
	if err := c.Request().Validate(); err != nil {
		return err
	}
	if _, err := output.ParseFormat(c.Harvest.Format); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Harvest.Format)
	}

	if c.Retry.MaxAttempts < 0 {
		return ErrInvalidMaxAttempts
	}
	if c.Retry.InitialBackoffMs < 0 {
		return ErrInvalidInitialBackoff
	}
	if c.Retry.MaxBackoffMs != 0 && c.Retry.MaxBackoffMs < c.Retry.InitialBackoffMs {
		return ErrInvalidMaxBackoff
	}
	if c.Retry.InitialBackoffMs > 0 && c.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if c.HTTP.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return ErrInvalidLogLevel
	}

	return nil
}

// Request returns the harvest request described by the configuration.
func (c *Config) Request() harvest.Request {
	return harvest.Request{
		StartDate:    c.Harvest.StartDate,
		TargetSeries: c.Harvest.TargetSeries,
		OutputPath:   c.Harvest.OutputPath,
		ResumeToken:  c.Harvest.ResumeToken,
	}
}

// RetryPolicy converts the retry section into a harvest.RetryPolicy.
func (c *Config) RetryPolicy() harvest.RetryPolicy {
	return harvest.RetryPolicy{
		MaxAttempts:       c.Retry.MaxAttempts,
		InitialBackoff:    time.Duration(c.Retry.InitialBackoffMs) * time.Millisecond,
		MaxBackoff:        time.Duration(c.Retry.MaxBackoffMs) * time.Millisecond,
		BackoffMultiplier: c.Retry.BackoffMultiplier,
		Jitter:            c.Retry.Jitter,
	}
}

// OAIConfig returns the fetcher configuration.
func (c *Config) OAIConfig() oai.Config {
	return oai.Config{
		BaseURL:        c.Harvest.BaseURL,
		MetadataPrefix: c.Harvest.MetadataPrefix,
		UserAgent:      c.HTTP.UserAgent,
		Timeout:        time.Duration(c.HTTP.TimeoutSec) * time.Second,
	}
}

// LoggerConfig returns the logger configuration.
func (c *Config) LoggerConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Logging.Level)
	cfg.Pretty = c.Logging.Pretty
	return cfg
}

// OutputFormat returns the parsed output format. Call Validate first.
func (c *Config) OutputFormat() output.Format {
	f, err := output.ParseFormat(c.Harvest.Format)
	if err != nil {
		return output.FormatLegacy
	}
	return f
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
