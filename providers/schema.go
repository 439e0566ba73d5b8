package providers

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// planSchema validates the decomposition payload returned by the model.
const planSchema = `{
	"type": "object",
	"required": ["subtasks"],
	"properties": {
		"subtasks": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["id", "description"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"description": {"type": "string", "minLength": 1},
					"capability": {"type": "string"},
					"params": {"type": "object"}
				}
			}
		}
	}
}`

// reflectionSchema validates the self-assessment payload returned by the
// model.
const reflectionSchema = `{
	"type": "object",
	"required": ["progress", "confidence"],
	"properties": {
		"progress": {
			"type": "string",
			"enum": ["not_started", "in_progress", "near_complete", "complete"]
		},
		"confidence": {"type": "number"},
		"insights": {"type": "array", "items": {"type": "string"}},
		"challenges": {"type": "array", "items": {"type": "string"}}
	}
}`

// compileSchema compiles a JSON Schema source string into a validator.
func compileSchema(source string) (*jsonschema.Schema, error) {
	data, err := jsonschema.UnmarshalJSON(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", data); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	compiled, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return compiled, nil
}
