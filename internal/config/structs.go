//nolint:lll
package config

// Config represents the complete configuration for the veridoc application.
// It covers all commands (verify, batch, serve, report) and supports loading
// from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Verification pipeline configuration
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`

	// Model capability backends
	Capability CapabilityConfig `mapstructure:"capability" yaml:"capability" json:"capability"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Submission persistence
	Store StoreConfig `mapstructure:"store" yaml:"store" json:"store"`

	// Outcome cache
	Cache CacheConfig `mapstructure:"cache" yaml:"cache" json:"cache"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// PipelineConfig contains verification pipeline settings.
type PipelineConfig struct {
	// Longer-edge cap applied during normalization, in pixels.
	MaxDimension int `mapstructure:"max_dimension" yaml:"max_dimension" json:"max_dimension"`

	// Keyword ratio the caption must reach for the claimed document kind.
	PlausibilityThreshold float64 `mapstructure:"plausibility_threshold" yaml:"plausibility_threshold" json:"plausibility_threshold"`

	// Overall confidence above this auto-approves.
	ApproveThreshold float64 `mapstructure:"approve_threshold" yaml:"approve_threshold" json:"approve_threshold"`

	// Overall confidence at or above this (and not auto-approved) goes to review.
	ReviewThreshold float64 `mapstructure:"review_threshold" yaml:"review_threshold" json:"review_threshold"`

	// Per-component score weights; components left out weigh 1.0.
	Weights map[string]float64 `mapstructure:"weights" yaml:"weights" json:"weights"`
}

// CapabilityConfig contains model backend settings.
type CapabilityConfig struct {
	CaptionURL  string `mapstructure:"caption_url" yaml:"caption_url" json:"caption_url"`
	OCRURL      string `mapstructure:"ocr_url" yaml:"ocr_url" json:"ocr_url"`
	TimeoutSec  int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	MaxInFlight int    `mapstructure:"max_in_flight" yaml:"max_in_flight" json:"max_in_flight"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format              string `mapstructure:"format" yaml:"format" json:"format"`
	File                string `mapstructure:"file" yaml:"file" json:"file"`
	ConfidencePrecision int    `mapstructure:"confidence_precision" yaml:"confidence_precision" json:"confidence_precision"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimitPerMin int    `mapstructure:"rate_limit_per_min" yaml:"rate_limit_per_min" json:"rate_limit_per_min"`
}

// StoreConfig contains submission persistence settings.
// An empty DSN leaves persistence disabled.
type StoreConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn" json:"dsn"`
}

// CacheConfig contains outcome cache settings.
// An empty URL leaves caching disabled.
type CacheConfig struct {
	URL    string `mapstructure:"url" yaml:"url" json:"url"`
	TTLSec int    `mapstructure:"ttl_sec" yaml:"ttl_sec" json:"ttl_sec"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int  `mapstructure:"workers" yaml:"workers" json:"workers"`
	ContinueOnError bool `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}
