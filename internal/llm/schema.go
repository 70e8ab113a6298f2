package llm

import (
	"github.com/sashabaranov/go-openai/jsonschema"
)

// JSON types accepted in SchemaField.Type.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

// Schema declares the object a structured extraction must produce.
type Schema struct {
	// Name identifies the schema to the model (tool or response format name).
	Name        string
	Description string
	// Prompt is the prompt ID rendered with the raw content as json_data.
	Prompt string
	Fields []SchemaField
}

// SchemaField is one property of a Schema.
type SchemaField struct {
	Name        string
	Type        string
	Description string
	Enum        []string
	Required    bool
}

// Properties returns the fields as JSON schema property objects.
func (s Schema) Properties() map[string]any {
	props := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		p := map[string]any{
			"type":        f.Type,
			"description": f.Description,
		}
		if len(f.Enum) > 0 {
			p["enum"] = f.Enum
		}
		props[f.Name] = p
	}
	return props
}

// RequiredFields lists the required field names in declaration order.
func (s Schema) RequiredFields() []string {
	var req []string
	for _, f := range s.Fields {
		if f.Required {
			req = append(req, f.Name)
		}
	}
	return req
}

// JSONSchema returns the schema as a JSON schema object.
func (s Schema) JSONSchema() map[string]any {
	out := map[string]any{
		"type":       "object",
		"properties": s.Properties(),
	}
	if req := s.RequiredFields(); len(req) > 0 {
		out["required"] = req
	}
	return out
}

// Definition returns the schema in go-openai's jsonschema form.
func (s Schema) Definition() jsonschema.Definition {
	props := make(map[string]jsonschema.Definition, len(s.Fields))
	for _, f := range s.Fields {
		props[f.Name] = jsonschema.Definition{
			Type:        jsonschema.DataType(f.Type),
			Description: f.Description,
			Enum:        f.Enum,
		}
	}
	return jsonschema.Definition{
		Type:                 jsonschema.Object,
		Description:          s.Description,
		Properties:           props,
		Required:             s.RequiredFields(),
		AdditionalProperties: false,
	}
}
