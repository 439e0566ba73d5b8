package goalloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReflectionGate_Evaluate(t *testing.T) {
	type input struct {
		base            float64
		requireExplicit bool
		confidence      float64
		explicit        bool
		stuck           bool
	}

	type expected struct {
		accepted  bool
		threshold float64
		gap       float64
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name:     "confident explicit claim accepted",
			input:    input{base: 0.8, requireExplicit: true, confidence: 0.9, explicit: true},
			expected: expected{accepted: true, threshold: 0.8},
		},
		{
			name:     "confidence exactly at threshold accepted",
			input:    input{base: 0.8, requireExplicit: true, confidence: 0.8, explicit: true},
			expected: expected{accepted: true, threshold: 0.8},
		},
		{
			name:     "low confidence rejected with gap",
			input:    input{base: 0.8, requireExplicit: true, confidence: 0.6, explicit: true},
			expected: expected{accepted: false, threshold: 0.8, gap: 0.8 - 0.6},
		},
		{
			name:     "inferred claim rejected when explicit required",
			input:    input{base: 0.8, requireExplicit: true, confidence: 0.95, explicit: false},
			expected: expected{accepted: false, threshold: 0.8},
		},
		{
			name:     "inferred claim accepted when explicit not required",
			input:    input{base: 0.8, requireExplicit: false, confidence: 0.85, explicit: false},
			expected: expected{accepted: true, threshold: 0.8},
		},
		{
			name:     "stuck lowers threshold by 20 percent",
			input:    input{base: 0.8, requireExplicit: true, confidence: 0.7, explicit: true, stuck: true},
			expected: expected{accepted: true, threshold: 0.8 * 0.8},
		},
		{
			name:     "stuck reduction is not enough for very low confidence",
			input:    input{base: 0.8, requireExplicit: true, confidence: 0.5, explicit: true, stuck: true},
			expected: expected{accepted: false, threshold: 0.64, gap: 0.64 - 0.5},
		},
		{
			name:     "zero base threshold accepts anything explicit",
			input:    input{base: 0, requireExplicit: true, confidence: 0, explicit: true},
			expected: expected{accepted: true, threshold: 0},
		},
		{
			name:     "confidence above one is clamped before comparison",
			input:    input{base: 0.8, requireExplicit: true, confidence: 1.5, explicit: true},
			expected: expected{accepted: true, threshold: 0.8},
		},
		{
			name:     "negative confidence is clamped to zero",
			input:    input{base: 0.8, requireExplicit: true, confidence: -0.25, explicit: true},
			expected: expected{accepted: false, threshold: 0.8, gap: 0.8},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.CompletionConfidenceThreshold = tc.input.base
			cfg.RequireExplicitCompletion = tc.input.requireExplicit
			gate := NewReflectionGate(cfg)

			decision := gate.Evaluate(
				CompletionSignal{Confidence: tc.input.confidence},
				tc.input.explicit,
				tc.input.stuck,
			)

			assert.Equal(t, tc.expected.accepted, decision.Accepted)
			assert.InDelta(t, tc.expected.threshold, decision.EffectiveThreshold, 1e-9)
			assert.InDelta(t, tc.expected.gap, decision.Gap, 1e-9)
			if tc.expected.accepted {
				assert.Empty(t, decision.Reason)
			} else {
				assert.NotEmpty(t, decision.Reason)
			}
		})
	}
}

func TestReflectionGate_AdjustmentDoesNotCompound(t *testing.T) {
	cfg := DefaultConfig()
	gate := NewReflectionGate(cfg)

	// The reduction applies once per evaluation, never stacking across
	// repeated stuck evaluations.
	first := gate.EffectiveThreshold(true)
	second := gate.EffectiveThreshold(true)
	assert.InDelta(t, 0.64, first, 1e-9)
	assert.Equal(t, first, second)

	// Recovery restores the base immediately.
	assert.InDelta(t, 0.8, gate.EffectiveThreshold(false), 1e-9)
	assert.InDelta(t, 0.16, gate.Adjustment(true), 1e-9)
	assert.Zero(t, gate.Adjustment(false))
}
