// Package providers implements the Planner and Reflector collaborator
// interfaces on top of langchaingo model providers. The model is prompted for
// strict JSON and every payload is validated against a JSON Schema before it
// enters the loop; any transport or parse failure surfaces as the matching
// unavailability sentinel.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/driftlabs/goalloop"
)

// Supported provider names for Config.Provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Config selects and configures the model provider.
type Config struct {
	// Provider is one of "openai", "anthropic", or "ollama".
	Provider string `yaml:"provider" json:"provider"`

	// Model is the provider-specific model name.
	Model string `yaml:"model" json:"model"`

	// ServerURL overrides the provider endpoint. Mostly useful for ollama
	// and OpenAI-compatible gateways.
	ServerURL string `yaml:"server_url,omitempty" json:"server_url,omitempty"`
}

// LangChain implements goalloop.Planner and goalloop.Reflector using a
// langchaingo llms.Model.
type LangChain struct {
	model llms.Model

	planValidator       *jsonschema.Schema
	reflectionValidator *jsonschema.Schema
}

// New creates a LangChain provider from the configuration. API keys are read
// from the provider's usual environment variables (OPENAI_API_KEY,
// ANTHROPIC_API_KEY).
func New(cfg Config) (*LangChain, error) {
	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case ProviderOpenAI:
		opts := []openai.Option{openai.WithModel(cfg.Model)}
		if cfg.ServerURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.ServerURL))
		}
		model, err = openai.New(opts...)
	case ProviderAnthropic:
		opts := []anthropic.Option{anthropic.WithModel(cfg.Model)}
		if cfg.ServerURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.ServerURL))
		}
		model, err = anthropic.New(opts...)
	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.ServerURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.ServerURL))
		}
		model, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model: %w", cfg.Provider, err)
	}
	return Wrap(model)
}

// Wrap builds a LangChain provider around an existing llms.Model. Useful for
// testing and for models New does not know how to construct.
func Wrap(model llms.Model) (*LangChain, error) {
	planCompiled, err := compileSchema(planSchema)
	if err != nil {
		return nil, err
	}
	reflCompiled, err := compileSchema(reflectionSchema)
	if err != nil {
		return nil, err
	}
	return &LangChain{
		model:               model,
		planValidator:       planCompiled,
		reflectionValidator: reflCompiled,
	}, nil
}

// Decompose implements goalloop.Planner.
func (p *LangChain) Decompose(
	ctx context.Context,
	goal goalloop.Goal,
	history []goalloop.IterationRecord,
) (goalloop.Plan, error) {
	prompt := buildPlanPrompt(goal, history)
	raw, err := llms.GenerateFromSinglePrompt(ctx, p.model, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", goalloop.ErrPlannerUnavailable, err)
	}

	payload, err := p.parseJSON(raw, p.planValidator)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", goalloop.ErrPlannerUnavailable, err)
	}

	var decoded struct {
		Subtasks []struct {
			ID          string         `json:"id"`
			Description string         `json:"description"`
			Capability  string         `json:"capability"`
			Params      map[string]any `json:"params"`
		} `json:"subtasks"`
	}
	if err := remarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", goalloop.ErrPlannerUnavailable, err)
	}

	plan := make(goalloop.Plan, 0, len(decoded.Subtasks))
	for _, sub := range decoded.Subtasks {
		plan = append(plan, goalloop.SubtaskSpec{
			ID:          sub.ID,
			Description: sub.Description,
			Capability:  sub.Capability,
			Params:      sub.Params,
		})
	}
	return plan, nil
}

// Reflect implements goalloop.Reflector.
func (p *LangChain) Reflect(
	ctx context.Context,
	history []goalloop.IterationRecord,
) (goalloop.ReflectionResult, error) {
	prompt := buildReflectionPrompt(history)
	raw, err := llms.GenerateFromSinglePrompt(ctx, p.model, prompt)
	if err != nil {
		return goalloop.ReflectionResult{}, fmt.Errorf("%w: %v", goalloop.ErrReflectorUnavailable, err)
	}

	payload, err := p.parseJSON(raw, p.reflectionValidator)
	if err != nil {
		return goalloop.ReflectionResult{}, fmt.Errorf("%w: %v", goalloop.ErrReflectorUnavailable, err)
	}

	var result goalloop.ReflectionResult
	if err := remarshal(payload, &result); err != nil {
		return goalloop.ReflectionResult{}, fmt.Errorf("%w: %v", goalloop.ErrReflectorUnavailable, err)
	}
	// Out-of-range confidence from the model is clamped rather than rejected.
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	return result, nil
}

// parseJSON extracts the JSON object from a model response and validates it.
func (p *LangChain) parseJSON(raw string, validator *jsonschema.Schema) (map[string]any, error) {
	text := extractJSON(raw)
	if text == "" {
		return nil, errors.New("no JSON object found in model response")
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON in model response: %w", err)
	}
	if err := validator.Validate(payload); err != nil {
		return nil, fmt.Errorf("model response failed schema validation: %w", err)
	}
	return payload, nil
}

// extractJSON returns the first top-level JSON object in the text, tolerating
// markdown code fences around it.
func extractJSON(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}

// remarshal converts a validated generic payload into a typed structure.
func remarshal(payload map[string]any, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

var (
	_ goalloop.Planner   = (*LangChain)(nil)
	_ goalloop.Reflector = (*LangChain)(nil)
)
