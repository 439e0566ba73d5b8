package goalloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	type input struct {
		mutate func(*Config)
	}

	tests := []struct {
		name      string
		input     input
		expectErr bool
	}{
		{
			name:  "defaults are valid",
			input: input{mutate: func(c *Config) {}},
		},
		{
			name:      "max_iterations below range",
			input:     input{mutate: func(c *Config) { c.MaxIterations = 0 }},
			expectErr: true,
		},
		{
			name:      "max_iterations above range",
			input:     input{mutate: func(c *Config) { c.MaxIterations = 101 }},
			expectErr: true,
		},
		{
			name:  "max_iterations at upper bound",
			input: input{mutate: func(c *Config) { c.MaxIterations = 100 }},
		},
		{
			name:      "reflection_interval zero",
			input:     input{mutate: func(c *Config) { c.ReflectionInterval = 0 }},
			expectErr: true,
		},
		{
			name:      "timeout_minutes zero",
			input:     input{mutate: func(c *Config) { c.TimeoutMinutes = 0 }},
			expectErr: true,
		},
		{
			name:      "confidence threshold above one",
			input:     input{mutate: func(c *Config) { c.CompletionConfidenceThreshold = 1.1 }},
			expectErr: true,
		},
		{
			name:      "confidence threshold negative",
			input:     input{mutate: func(c *Config) { c.CompletionConfidenceThreshold = -0.1 }},
			expectErr: true,
		},
		{
			name:  "confidence threshold zero is allowed",
			input: input{mutate: func(c *Config) { c.CompletionConfidenceThreshold = 0 }},
		},
		{
			name:      "stuck_window below two",
			input:     input{mutate: func(c *Config) { c.StuckWindow = 1 }},
			expectErr: true,
		},
		{
			name:      "stuck_similarity zero",
			input:     input{mutate: func(c *Config) { c.StuckSimilarity = 0 }},
			expectErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.input.mutate(&cfg)

			err := cfg.Validate()
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10, cfg.MaxIterations)
	assert.Equal(t, 1, cfg.ReflectionInterval)
	assert.True(t, cfg.RequireExplicitCompletion)
	assert.Equal(t, 30, cfg.TimeoutMinutes)
	assert.Equal(t, 0.8, cfg.CompletionConfidenceThreshold)
	assert.Equal(t, 3, cfg.StuckWindow)
	assert.Equal(t, 1.0, cfg.StuckSimilarity)
	assert.Equal(t, 30*time.Minute, cfg.Timeout())
}

func TestParseConfig(t *testing.T) {
	t.Run("partial file layers over defaults", func(t *testing.T) {
		cfg, err := ParseConfig([]byte("max_iterations: 25\nstuck_similarity: 0.9\n"))
		require.NoError(t, err)

		assert.Equal(t, 25, cfg.MaxIterations)
		assert.Equal(t, 0.9, cfg.StuckSimilarity)
		// Untouched options keep their defaults.
		assert.Equal(t, 30, cfg.TimeoutMinutes)
		assert.True(t, cfg.RequireExplicitCompletion)
	})

	t.Run("explicit false overrides default true", func(t *testing.T) {
		cfg, err := ParseConfig([]byte("require_explicit_completion: false\n"))
		require.NoError(t, err)
		assert.False(t, cfg.RequireExplicitCompletion)
	})

	t.Run("invalid value rejected", func(t *testing.T) {
		_, err := ParseConfig([]byte("max_iterations: 500\n"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml rejected", func(t *testing.T) {
		_, err := ParseConfig([]byte("max_iterations: [oops\n"))
		assert.Error(t, err)
	})

	t.Run("empty file yields defaults", func(t *testing.T) {
		cfg, err := ParseConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})
}
