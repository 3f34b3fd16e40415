package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/veridoc-io/veridoc/internal/batch"
	"github.com/veridoc-io/veridoc/internal/cache"
	"github.com/veridoc-io/veridoc/internal/capability"
	"github.com/veridoc-io/veridoc/internal/classify"
	"github.com/veridoc-io/veridoc/internal/normalize"
	"github.com/veridoc-io/veridoc/internal/pipeline"
	"github.com/veridoc-io/veridoc/internal/scoring"
	"github.com/veridoc-io/veridoc/internal/server"
)

// Log level names accepted in log_level and --log-level.
const (
	debugLevel = "debug"
	infoLevel  = "info"
	warnLevel  = "warn"
	errorLevel = "error"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel:   infoLevel,
		Verbose:    false,
		Pipeline:   defaultPipelineConfig(),
		Capability: defaultCapabilityConfig(),
		Output: OutputConfig{
			Format:              "text",
			ConfidencePrecision: 2,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     20,
			TimeoutSec:      60,
			ShutdownTimeout: 10,
			RateLimitPerMin: 60,
		},
		Cache: CacheConfig{
			TTLSec: int(cache.DefaultTTL / time.Second),
		},
		Batch: BatchConfig{
			Workers:         4,
			ContinueOnError: false,
		},
	}
}

// defaultPipelineConfig pulls pipeline defaults from the stage packages.
func defaultPipelineConfig() PipelineConfig {
	norm := normalize.DefaultConfig()
	cls := classify.DefaultConfig()
	sc := scoring.DefaultConfig()
	return PipelineConfig{
		MaxDimension:          norm.MaxDimension,
		PlausibilityThreshold: cls.PlausibilityThreshold,
		ApproveThreshold:      sc.ApproveThreshold,
		ReviewThreshold:       sc.ReviewThreshold,
	}
}

// defaultCapabilityConfig pulls capability defaults from the capability package.
func defaultCapabilityConfig() CapabilityConfig {
	cfg := capability.DefaultConfig()
	return CapabilityConfig{
		CaptionURL:  cfg.CaptionURL,
		OCRURL:      cfg.OCRURL,
		TimeoutSec:  int(cfg.Timeout / time.Second),
		MaxInFlight: cfg.MaxInFlight,
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if err := c.validateBasicEnums(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateCapability(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	if c.Cache.TTLSec <= 0 {
		return fmt.Errorf("invalid cache ttl: %d (must be positive)", c.Cache.TTLSec)
	}
	return nil
}

// validateBasicEnums checks log level and output format.
func (c *Config) validateBasicEnums() error {
	validLogLevels := []string{debugLevel, infoLevel, warnLevel, errorLevel}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json", "csv"}
	if c.Output.Format != "" && !contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	return nil
}

// validatePipeline checks normalization and scoring settings. Threshold
// ordering and weight names are delegated to the scoring package so that a
// bad file or environment fails the same way a bad programmatic config does.
func (c *Config) validatePipeline() error {
	if c.Pipeline.MaxDimension <= 0 {
		return fmt.Errorf("invalid pipeline.max_dimension: %d (must be positive)", c.Pipeline.MaxDimension)
	}
	if err := validateThreshold(c.Pipeline.PlausibilityThreshold, "pipeline.plausibility_threshold"); err != nil {
		return err
	}
	return c.ToScoringConfig().Validate()
}

// validateCapability checks the model backend settings.
func (c *Config) validateCapability() error {
	if c.Capability.CaptionURL == "" {
		return fmt.Errorf("capability.caption_url cannot be empty")
	}
	if c.Capability.OCRURL == "" {
		return fmt.Errorf("capability.ocr_url cannot be empty")
	}
	if c.Capability.TimeoutSec <= 0 {
		return fmt.Errorf("invalid capability.timeout_sec: %d (must be positive)", c.Capability.TimeoutSec)
	}
	if c.Capability.MaxInFlight <= 0 {
		return fmt.Errorf("invalid capability.max_in_flight: %d (must be positive)", c.Capability.MaxInFlight)
	}
	return nil
}

// validateServer checks the HTTP server settings.
func (c *Config) validateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid server timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.RateLimitPerMin < 0 {
		return fmt.Errorf("invalid rate limit: %d (must not be negative)", c.Server.RateLimitPerMin)
	}
	return nil
}

// ToPipelineConfig converts the config to the internal pipeline configuration format.
func (c *Config) ToPipelineConfig() pipeline.Config {
	return pipeline.Config{
		Normalize:    normalize.Config{MaxDimension: c.Pipeline.MaxDimension},
		Classify:     classify.Config{PlausibilityThreshold: c.Pipeline.PlausibilityThreshold},
		Scoring:      c.ToScoringConfig(),
		ModelTimeout: time.Duration(c.Capability.TimeoutSec) * time.Second,
		MaxInFlight:  c.Capability.MaxInFlight,
	}
}

// ToScoringConfig converts to scoring.Config.
func (c *Config) ToScoringConfig() scoring.Config {
	cfg := scoring.Config{
		ApproveThreshold: c.Pipeline.ApproveThreshold,
		ReviewThreshold:  c.Pipeline.ReviewThreshold,
	}
	if len(c.Pipeline.Weights) > 0 {
		cfg.Weights = make(scoring.Weights, len(c.Pipeline.Weights))
		for name, w := range c.Pipeline.Weights {
			cfg.Weights[scoring.Component(name)] = w
		}
	}
	return cfg
}

// ToCapabilityConfig converts to capability.Config.
func (c *Config) ToCapabilityConfig() capability.Config {
	return capability.Config{
		CaptionURL:  c.Capability.CaptionURL,
		OCRURL:      c.Capability.OCRURL,
		Timeout:     time.Duration(c.Capability.TimeoutSec) * time.Second,
		MaxInFlight: c.Capability.MaxInFlight,
	}
}

// ToCacheConfig converts to cache.Config.
func (c *Config) ToCacheConfig() cache.Config {
	return cache.Config{
		URL: c.Cache.URL,
		TTL: time.Duration(c.Cache.TTLSec) * time.Second,
	}
}

// ToServerConfig converts to server.Config. The capability endpoints ride
// along so the health endpoint can report them.
func (c *Config) ToServerConfig() server.Config {
	return server.Config{
		Host:            c.Server.Host,
		Port:            c.Server.Port,
		CORSOrigin:      c.Server.CORSOrigin,
		MaxUploadMB:     c.Server.MaxUploadMB,
		Timeout:         time.Duration(c.Server.TimeoutSec) * time.Second,
		ShutdownTimeout: time.Duration(c.Server.ShutdownTimeout) * time.Second,
		RateLimitPerMin: c.Server.RateLimitPerMin,
		CaptionURL:      c.Capability.CaptionURL,
		OCRURL:          c.Capability.OCRURL,
	}
}

// ToBatchConfig converts to batch.Config.
func (c *Config) ToBatchConfig() batch.Config {
	return batch.Config{
		Workers:         c.Batch.Workers,
		ContinueOnError: c.Batch.ContinueOnError,
	}
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}
