package google

import (
	"encoding/json"

	"google.golang.org/genai"
)

// convertSchema converts a JSON Schema document into the subset genai
// understands. Tools without parameters get an empty object schema.
func convertSchema(schemaJSON json.RawMessage) *genai.Schema {
	var schema map[string]any
	if len(schemaJSON) > 0 {
		_ = json.Unmarshal(schemaJSON, &schema)
	}
	if schema == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}
	return convertSchemaObject(schema)
}

func convertSchemaObject(schema map[string]any) *genai.Schema {
	result := &genai.Schema{}

	switch schema["type"] {
	case "string":
		result.Type = genai.TypeString
	case "number":
		result.Type = genai.TypeNumber
	case "integer":
		result.Type = genai.TypeInteger
	case "boolean":
		result.Type = genai.TypeBoolean
	case "array":
		result.Type = genai.TypeArray
	case "object":
		result.Type = genai.TypeObject
	}

	if desc, ok := schema["description"].(string); ok {
		result.Description = desc
	}

	if enumVal, ok := schema["enum"].([]any); ok {
		for _, e := range enumVal {
			if s, ok := e.(string); ok {
				result.Enum = append(result.Enum, s)
			}
		}
	}

	if props, ok := schema["properties"].(map[string]any); ok {
		result.Properties = make(map[string]*genai.Schema, len(props))
		for name, propSchema := range props {
			if propMap, ok := propSchema.(map[string]any); ok {
				result.Properties[name] = convertSchemaObject(propMap)
			}
		}
	}

	if required, ok := schema["required"].([]any); ok {
		for _, r := range required {
			if s, ok := r.(string); ok {
				result.Required = append(result.Required, s)
			}
		}
	}

	if items, ok := schema["items"].(map[string]any); ok {
		result.Items = convertSchemaObject(items)
	}

	return result
}
