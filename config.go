package goalloop

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the recognized session configuration options.
//
// Zero values are not valid; start from [DefaultConfig] and override, or load
// a YAML file with [LoadConfig] which layers the file over the defaults.
type Config struct {
	// MaxIterations is the iteration budget, 1-100.
	MaxIterations int `yaml:"max_iterations" json:"max_iterations"`

	// ReflectionInterval invokes reflection every N iterations, >= 1.
	// The default of 1 reflects after every iteration.
	ReflectionInterval int `yaml:"reflection_interval" json:"reflection_interval"`

	// RequireExplicitCompletion, when true, only accepts completion claims
	// produced by an explicit completion action. When false, a reflection
	// reporting complete progress may also terminate the session.
	RequireExplicitCompletion bool `yaml:"require_explicit_completion" json:"require_explicit_completion"`

	// TimeoutMinutes is the wall-clock budget in minutes, >= 1.
	TimeoutMinutes int `yaml:"timeout_minutes" json:"timeout_minutes"`

	// CompletionConfidenceThreshold is the base confidence required to accept
	// a completion claim, in [0, 1].
	CompletionConfidenceThreshold float64 `yaml:"completion_confidence_threshold" json:"completion_confidence_threshold"`

	// StuckWindow is the number of recent action signatures inspected by the
	// StuckDetector, >= 2.
	StuckWindow int `yaml:"stuck_window" json:"stuck_window"`

	// StuckSimilarity is the minimum difflib sequence ratio for two action
	// signatures to count as near-duplicates, in (0, 1]. The default of 1.0
	// requires identical signatures.
	StuckSimilarity float64 `yaml:"stuck_similarity" json:"stuck_similarity"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations:                 10,
		ReflectionInterval:            1,
		RequireExplicitCompletion:     true,
		TimeoutMinutes:                30,
		CompletionConfidenceThreshold: 0.8,
		StuckWindow:                   3,
		StuckSimilarity:               1.0,
	}
}

// Timeout returns the wall-clock budget as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMinutes) * time.Minute
}

// Validate checks all option ranges.
func (c Config) Validate() error {
	if c.MaxIterations < 1 || c.MaxIterations > 100 {
		return fmt.Errorf("max_iterations must be in [1, 100], got %d", c.MaxIterations)
	}
	if c.ReflectionInterval < 1 {
		return fmt.Errorf("reflection_interval must be >= 1, got %d", c.ReflectionInterval)
	}
	if c.TimeoutMinutes < 1 {
		return fmt.Errorf("timeout_minutes must be >= 1, got %d", c.TimeoutMinutes)
	}
	if c.CompletionConfidenceThreshold < 0 || c.CompletionConfidenceThreshold > 1 {
		return fmt.Errorf(
			"completion_confidence_threshold must be in [0, 1], got %v",
			c.CompletionConfidenceThreshold,
		)
	}
	if c.StuckWindow < 2 {
		return fmt.Errorf("stuck_window must be >= 2, got %d", c.StuckWindow)
	}
	if c.StuckSimilarity <= 0 || c.StuckSimilarity > 1 {
		return fmt.Errorf("stuck_similarity must be in (0, 1], got %v", c.StuckSimilarity)
	}
	return nil
}

// rawConfig mirrors Config with pointer fields so a YAML file can override a
// subset of options without zeroing the rest.
type rawConfig struct {
	MaxIterations                 *int     `yaml:"max_iterations"`
	ReflectionInterval            *int     `yaml:"reflection_interval"`
	RequireExplicitCompletion     *bool    `yaml:"require_explicit_completion"`
	TimeoutMinutes                *int     `yaml:"timeout_minutes"`
	CompletionConfidenceThreshold *float64 `yaml:"completion_confidence_threshold"`
	StuckWindow                   *int     `yaml:"stuck_window"`
	StuckSimilarity               *float64 `yaml:"stuck_similarity"`
}

func (r rawConfig) apply(c *Config) {
	if r.MaxIterations != nil {
		c.MaxIterations = *r.MaxIterations
	}
	if r.ReflectionInterval != nil {
		c.ReflectionInterval = *r.ReflectionInterval
	}
	if r.RequireExplicitCompletion != nil {
		c.RequireExplicitCompletion = *r.RequireExplicitCompletion
	}
	if r.TimeoutMinutes != nil {
		c.TimeoutMinutes = *r.TimeoutMinutes
	}
	if r.CompletionConfidenceThreshold != nil {
		c.CompletionConfidenceThreshold = *r.CompletionConfidenceThreshold
	}
	if r.StuckWindow != nil {
		c.StuckWindow = *r.StuckWindow
	}
	if r.StuckSimilarity != nil {
		c.StuckSimilarity = *r.StuckSimilarity
	}
}

// LoadConfig reads a YAML file and layers it over [DefaultConfig]. Options
// absent from the file keep their defaults. The result is validated.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML bytes, layering them over [DefaultConfig].
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	raw.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
