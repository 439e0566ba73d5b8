package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/driftlabs/goalloop"
)

// fakeModel implements llms.Model with queued responses.
type fakeModel struct {
	responses []string
	errs      []error
	calls     int

	// CapturedPrompts holds the text of each prompt received.
	CapturedPrompts []string
}

func (m *fakeModel) GenerateContent(
	_ context.Context,
	messages []llms.MessageContent,
	_ ...llms.CallOption,
) (*llms.ContentResponse, error) {
	idx := m.calls
	m.calls++
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				m.CapturedPrompts = append(m.CapturedPrompts, text.Text)
			}
		}
	}
	if idx < len(m.errs) && m.errs[idx] != nil {
		return nil, m.errs[idx]
	}
	content := ""
	if idx < len(m.responses) {
		content = m.responses[idx]
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content}},
	}, nil
}

func (m *fakeModel) Call(
	ctx context.Context, prompt string, options ...llms.CallOption,
) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func TestLangChain_Decompose(t *testing.T) {
	type input struct {
		response string
		err      error
	}

	type expected struct {
		plan        goalloop.Plan
		errSentinel error
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name: "valid plan",
			input: input{
				response: `{"subtasks": [
					{"id": "s1", "description": "search the docs", "capability": "search", "params": {"q": "x"}},
					{"id": "s2", "description": "summarize findings"}
				]}`,
			},
			expected: expected{
				plan: goalloop.Plan{
					{ID: "s1", Description: "search the docs", Capability: "search", Params: map[string]any{"q": "x"}},
					{ID: "s2", Description: "summarize findings"},
				},
			},
		},
		{
			name: "plan wrapped in code fence",
			input: input{
				response: "```json\n{\"subtasks\": [{\"id\": \"s1\", \"description\": \"only step\"}]}\n```",
			},
			expected: expected{
				plan: goalloop.Plan{{ID: "s1", Description: "only step"}},
			},
		},
		{
			name: "plan with surrounding prose",
			input: input{
				response: "Here is the plan:\n{\"subtasks\": [{\"id\": \"s1\", \"description\": \"only step\"}]}\nGood luck!",
			},
			expected: expected{
				plan: goalloop.Plan{{ID: "s1", Description: "only step"}},
			},
		},
		{
			name:     "transport error wraps sentinel",
			input:    input{err: errors.New("rate limited")},
			expected: expected{errSentinel: goalloop.ErrPlannerUnavailable},
		},
		{
			name:     "non-JSON response wraps sentinel",
			input:    input{response: "I cannot help with that."},
			expected: expected{errSentinel: goalloop.ErrPlannerUnavailable},
		},
		{
			name:     "schema violation wraps sentinel",
			input:    input{response: `{"subtasks": []}`},
			expected: expected{errSentinel: goalloop.ErrPlannerUnavailable},
		},
		{
			name:     "missing required field wraps sentinel",
			input:    input{response: `{"subtasks": [{"id": "s1"}]}`},
			expected: expected{errSentinel: goalloop.ErrPlannerUnavailable},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			model := &fakeModel{
				responses: []string{tc.input.response},
				errs:      []error{tc.input.err},
			}
			provider, err := Wrap(model)
			require.NoError(t, err)

			plan, err := provider.Decompose(
				context.Background(),
				goalloop.Goal{Objective: "test"},
				nil,
			)
			if tc.expected.errSentinel != nil {
				assert.ErrorIs(t, err, tc.expected.errSentinel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected.plan, plan)
		})
	}
}

func TestLangChain_Reflect(t *testing.T) {
	type input struct {
		response string
		err      error
	}

	type expected struct {
		result      goalloop.ReflectionResult
		errSentinel error
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name: "valid reflection",
			input: input{
				response: `{"progress": "near_complete", "confidence": 0.75,
					"insights": ["found the root cause"], "challenges": ["tests missing"]}`,
			},
			expected: expected{
				result: goalloop.ReflectionResult{
					Progress:   goalloop.ProgressNearComplete,
					Confidence: 0.75,
					Insights:   []string{"found the root cause"},
					Challenges: []string{"tests missing"},
				},
			},
		},
		{
			name: "out-of-range confidence is clamped",
			input: input{
				response: `{"progress": "complete", "confidence": 1.7}`,
			},
			expected: expected{
				result: goalloop.ReflectionResult{
					Progress:   goalloop.ProgressComplete,
					Confidence: 1.0,
				},
			},
		},
		{
			name:     "transport error wraps sentinel",
			input:    input{err: errors.New("timeout")},
			expected: expected{errSentinel: goalloop.ErrReflectorUnavailable},
		},
		{
			name:     "unknown progress level rejected by schema",
			input:    input{response: `{"progress": "almost", "confidence": 0.5}`},
			expected: expected{errSentinel: goalloop.ErrReflectorUnavailable},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			model := &fakeModel{
				responses: []string{tc.input.response},
				errs:      []error{tc.input.err},
			}
			provider, err := Wrap(model)
			require.NoError(t, err)

			result, err := provider.Reflect(context.Background(), nil)
			if tc.expected.errSentinel != nil {
				assert.ErrorIs(t, err, tc.expected.errSentinel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected.result, result)
		})
	}
}

func TestLangChain_PromptsCarryHistory(t *testing.T) {
	model := &fakeModel{
		responses: []string{`{"subtasks": [{"id": "s1", "description": "step"}]}`},
	}
	provider, err := Wrap(model)
	require.NoError(t, err)

	history := []goalloop.IterationRecord{
		{
			Index: 1,
			Action: goalloop.NewCapabilityAction(goalloop.CapabilityCall{
				Capability: "search",
			}),
			Observation: goalloop.Observation{Success: false, Content: "no results"},
			Reflection: &goalloop.ReflectionResult{
				Progress:   goalloop.ProgressInProgress,
				Confidence: 0.4,
				Challenges: []string{"completion rejected: confidence too low"},
			},
		},
		{
			Index: 2,
			Action: goalloop.NewCompletionAction(goalloop.CompletionSignal{
				Summary: "answer found",
			}),
			Observation: goalloop.Observation{Success: true, Content: "42"},
		},
	}

	_, err = provider.Decompose(
		context.Background(),
		goalloop.Goal{Objective: "find the answer"},
		history,
	)
	require.NoError(t, err)

	require.NotEmpty(t, model.CapturedPrompts)
	prompt := model.CapturedPrompts[0]
	assert.Contains(t, prompt, "find the answer")
	assert.Contains(t, prompt, "no results")
	// Rejected completion claims must be visible to the replanner.
	assert.Contains(t, prompt, "completion rejected")
	// Completion actions render as claims, not capability calls.
	assert.Contains(t, prompt, "completion claim: answer found")
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "mystery", Model: "m"})
	assert.Error(t, err)
}

func TestNew_AnthropicHonorsServerURL(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	// Construction must accept a gateway endpoint; no request is made here.
	provider, err := New(Config{
		Provider:  ProviderAnthropic,
		Model:     "claude-test",
		ServerURL: "http://localhost:9999/v1",
	})
	require.NoError(t, err)
	require.NotNil(t, provider)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"fenced object", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fence without language", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose around object", "sure!\n{\"a\": 1}\nthanks", `{"a": 1}`},
		{"no object", "nothing here", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, extractJSON(tc.input))
		})
	}
}
