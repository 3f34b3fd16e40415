package capability

import (
	"fmt"
	"time"
)

// Config holds configuration for the capability clients.
type Config struct {
	CaptionURL  string        // base URL of the captioning backend
	OCRURL      string        // base URL of the OCR backend
	Timeout     time.Duration // per-call ceiling, queue wait included (default: 30s)
	MaxInFlight int           // concurrent calls across both capabilities (default: 4)
}

// DefaultConfig returns the default capability client configuration.
func DefaultConfig() Config {
	return Config{
		CaptionURL:  "http://localhost:8501",
		OCRURL:      "http://localhost:8502",
		Timeout:     30 * time.Second,
		MaxInFlight: 4,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.CaptionURL == "" {
		return fmt.Errorf("caption backend URL cannot be empty")
	}
	if c.OCRURL == "" {
		return fmt.Errorf("OCR backend URL cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("capability timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxInFlight <= 0 {
		return fmt.Errorf("max in-flight calls must be positive, got %d", c.MaxInFlight)
	}
	return nil
}
