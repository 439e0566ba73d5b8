package goalloop

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sigFor(capability string, params map[string]any) Signature {
	return NewCapabilityAction(CapabilityCall{
		SubtaskID:  "ignored",
		Capability: capability,
		Params:     params,
	}).Signature()
}

func TestStuckDetector_IsStuck(t *testing.T) {
	type observation struct {
		capability string
		params     map[string]any
		productive bool
	}

	type input struct {
		window       int
		similarity   float64
		observations []observation
	}

	tests := []struct {
		name     string
		input    input
		expected bool
	}{
		{
			name: "window not yet full",
			input: input{
				window:     3,
				similarity: 1.0,
				observations: []observation{
					{capability: "search", productive: false},
					{capability: "search", productive: false},
				},
			},
			expected: false,
		},
		{
			name: "full window of identical unproductive actions",
			input: input{
				window:     3,
				similarity: 1.0,
				observations: []observation{
					{capability: "search", productive: false},
					{capability: "search", productive: false},
					{capability: "search", productive: false},
				},
			},
			expected: true,
		},
		{
			name: "one productive observation breaks the episode",
			input: input{
				window:     3,
				similarity: 1.0,
				observations: []observation{
					{capability: "search", productive: false},
					{capability: "search", productive: true},
					{capability: "search", productive: false},
				},
			},
			expected: false,
		},
		{
			name: "distinct action in window breaks the episode",
			input: input{
				window:     3,
				similarity: 1.0,
				observations: []observation{
					{capability: "search", productive: false},
					{capability: "fetch", productive: false},
					{capability: "search", productive: false},
				},
			},
			expected: false,
		},
		{
			name: "window slides past old distinct action",
			input: input{
				window:     3,
				similarity: 1.0,
				observations: []observation{
					{capability: "fetch", productive: false},
					{capability: "search", productive: false},
					{capability: "search", productive: false},
					{capability: "search", productive: false},
				},
			},
			expected: true,
		},
		{
			name: "near-duplicate params count at relaxed similarity",
			input: input{
				window:     3,
				similarity: 0.6,
				observations: []observation{
					{capability: "search", params: map[string]any{"q": "go loops", "page": 1}},
					{capability: "search", params: map[string]any{"q": "go loops", "page": 2}},
					{capability: "search", params: map[string]any{"q": "go loops", "page": 3}},
				},
			},
			expected: true,
		},
		{
			name: "different params are not duplicates at strict similarity",
			input: input{
				window:     3,
				similarity: 1.0,
				observations: []observation{
					{capability: "search", params: map[string]any{"q": "go loops", "page": 1}},
					{capability: "search", params: map[string]any{"q": "go loops", "page": 2}},
					{capability: "search", params: map[string]any{"q": "go loops", "page": 3}},
				},
			},
			expected: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			detector := NewStuckDetector(tc.input.window, tc.input.similarity)
			for _, obs := range tc.input.observations {
				detector.Observe(sigFor(obs.capability, obs.params), obs.productive)
			}
			assert.Equal(t, tc.expected, detector.IsStuck())
		})
	}
}

func TestStuckDetector_Reset(t *testing.T) {
	detector := NewStuckDetector(3, 1.0)
	for i := 0; i < 3; i++ {
		detector.Observe(sigFor("search", nil), false)
	}
	assert.True(t, detector.IsStuck())

	detector.Reset()
	assert.False(t, detector.IsStuck())
}

func TestStuckDetector_InvalidArgsFallBackToDefaults(t *testing.T) {
	detector := NewStuckDetector(0, 2.5)
	// Defaults: window 3, similarity 1.0.
	for i := 0; i < 2; i++ {
		detector.Observe(sigFor("search", nil), false)
	}
	assert.False(t, detector.IsStuck())
	detector.Observe(sigFor("search", nil), false)
	assert.True(t, detector.IsStuck())
}

func TestSignature_ExcludesSubtaskID(t *testing.T) {
	a := NewCapabilityAction(CapabilityCall{
		SubtaskID: "s1", Capability: "search", Params: map[string]any{"q": "x"},
	}).Signature()
	b := NewCapabilityAction(CapabilityCall{
		SubtaskID: "s9", Capability: "search", Params: map[string]any{"q": "x"},
	}).Signature()
	assert.Equal(t, a, b)
}

func TestSignature_ParamOrderIndependent(t *testing.T) {
	// Map iteration order varies; the canonical form must not.
	for i := 0; i < 10; i++ {
		params := map[string]any{}
		for j := 0; j < 5; j++ {
			params[fmt.Sprintf("k%d", j)] = j
		}
		sig := NewCapabilityAction(CapabilityCall{Capability: "op", Params: params}).Signature()
		want := NewCapabilityAction(CapabilityCall{
			Capability: "op",
			Params:     map[string]any{"k0": 0, "k1": 1, "k2": 2, "k3": 3, "k4": 4},
		}).Signature()
		assert.Equal(t, want, sig)
	}
}
