package scoring

import "fmt"

// ConfigurationError reports invalid threshold or weight configuration.
// It is fatal at startup, never corrected to a default.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid scoring configuration %s: %s", e.Setting, e.Reason)
}

// Weights maps components to their share of the overall confidence.
// Components without an entry weigh 1.0, giving the documented default of
// equal weighting across present components.
type Weights map[Component]float64

// Config holds the decision thresholds and component weights.
type Config struct {
	ApproveThreshold float64 // overall must exceed this to auto-approve (default: 0.85)
	ReviewThreshold  float64 // overall at or above this stays reviewable (default: 0.60)
	Weights          Weights // per-component weights, 1.0 when unset
}

// DefaultConfig returns the default scoring configuration.
func DefaultConfig() Config {
	return Config{
		ApproveThreshold: 0.85,
		ReviewThreshold:  0.60,
		Weights:          nil,
	}
}

// Validate checks thresholds and weights, returning *ConfigurationError on
// the first violation.
func (c Config) Validate() error {
	if err := validateThreshold("approve threshold", c.ApproveThreshold); err != nil {
		return err
	}
	if err := validateThreshold("review threshold", c.ReviewThreshold); err != nil {
		return err
	}
	if c.ReviewThreshold >= c.ApproveThreshold {
		return &ConfigurationError{
			Setting: "review threshold",
			Reason: fmt.Sprintf("must be below approve threshold (%v >= %v)",
				c.ReviewThreshold, c.ApproveThreshold),
		}
	}
	for component, w := range c.Weights {
		if !knownComponent(component) {
			return &ConfigurationError{
				Setting: "weights",
				Reason:  fmt.Sprintf("unknown component %q", component),
			}
		}
		if w <= 0 {
			return &ConfigurationError{
				Setting: "weights",
				Reason:  fmt.Sprintf("weight for %s must be positive, got %v", component, w),
			}
		}
	}
	return nil
}

func validateThreshold(name string, v float64) error {
	if v < 0 || v > 1 {
		return &ConfigurationError{
			Setting: name,
			Reason:  fmt.Sprintf("must be in [0,1], got %v", v),
		}
	}
	return nil
}
