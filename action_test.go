package goalloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_Variants(t *testing.T) {
	call := NewCapabilityAction(CapabilityCall{
		SubtaskID:  "s1",
		Capability: "search",
		Params:     map[string]any{"q": "x"},
	})
	assert.Equal(t, ActionCapability, call.Kind)
	require.NotNil(t, call.Call)
	assert.Nil(t, call.Claim)

	claim := NewCompletionAction(CompletionSignal{Summary: "done", Confidence: 0.9})
	assert.Equal(t, ActionCompletion, claim.Kind)
	require.NotNil(t, claim.Claim)
	assert.Nil(t, claim.Call)
}

func TestAction_SignatureKinds(t *testing.T) {
	type input struct {
		a Action
		b Action
	}

	tests := []struct {
		name      string
		input     input
		wantEqual bool
	}{
		{
			name: "same capability and params match",
			input: input{
				a: NewCapabilityAction(CapabilityCall{Capability: "op", Params: map[string]any{"k": "v"}}),
				b: NewCapabilityAction(CapabilityCall{Capability: "op", Params: map[string]any{"k": "v"}}),
			},
			wantEqual: true,
		},
		{
			name: "different capability differs",
			input: input{
				a: NewCapabilityAction(CapabilityCall{Capability: "op"}),
				b: NewCapabilityAction(CapabilityCall{Capability: "other"}),
			},
			wantEqual: false,
		},
		{
			name: "different params differ",
			input: input{
				a: NewCapabilityAction(CapabilityCall{Capability: "op", Params: map[string]any{"k": "v"}}),
				b: NewCapabilityAction(CapabilityCall{Capability: "op", Params: map[string]any{"k": "w"}}),
			},
			wantEqual: false,
		},
		{
			name: "capability and completion never collide",
			input: input{
				a: NewCapabilityAction(CapabilityCall{Capability: "done"}),
				b: NewCompletionAction(CompletionSignal{Summary: "done"}),
			},
			wantEqual: false,
		},
		{
			name: "completion claims match on summary",
			input: input{
				a: NewCompletionAction(CompletionSignal{Summary: "done", Confidence: 0.5}),
				b: NewCompletionAction(CompletionSignal{Summary: "done", Confidence: 0.9}),
			},
			wantEqual: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sigA := tc.input.a.Signature()
			sigB := tc.input.b.Signature()
			if tc.wantEqual {
				assert.Equal(t, sigA, sigB)
			} else {
				assert.NotEqual(t, sigA.Sum, sigB.Sum)
			}
		})
	}
}
