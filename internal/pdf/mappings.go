package pdf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/a3tai/mcp-pdf-forms/internal/pdf/extraction"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/fill"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/normalize"
)

const mappingSchemaURL = "mappings.json"

// mappingSchema describes the mapping payload: an ordered list of
// {field_id, label?, value} entries with scalar or null values.
const mappingSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["field_id", "value"],
    "properties": {
      "field_id": {"type": "string", "minLength": 1},
      "label": {"type": "string"},
      "value": {"type": ["string", "number", "boolean", "null"]}
    }
  }
}`

// MappingDecoder validates and decodes mapping payloads.
type MappingDecoder struct {
	schema *jsonschema.Schema
}

// NewMappingDecoder compiles the mapping payload schema.
func NewMappingDecoder() (*MappingDecoder, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(mappingSchemaURL, strings.NewReader(mappingSchema)); err != nil {
		return nil, fmt.Errorf("add mapping schema: %w", err)
	}
	schema, err := compiler.Compile(mappingSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile mapping schema: %w", err)
	}
	return &MappingDecoder{schema: schema}, nil
}

// Decode validates data against the mapping schema and decodes it.
func (d *MappingDecoder) Decode(data []byte) ([]fill.Mapping, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("mappings are not valid JSON: %w", err)
	}
	if err := d.schema.Validate(v); err != nil {
		return nil, fmt.Errorf("mappings do not match schema: %w", err)
	}

	var mappings []fill.Mapping
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&mappings); err != nil {
		return nil, fmt.Errorf("failed to decode mappings: %w", err)
	}
	return mappings, nil
}

// NormalizeMappings normalizes each mapping value by the type its field
// declares in schema. Values of unknown fields are only coerced to strings.
// Booleans for checkbox fields are kept so the fill engine can toggle them.
// Missing labels are taken from the schema.
func NormalizeMappings(n *normalize.Normalizer, schema *extraction.Schema, mappings []fill.Mapping) []fill.Mapping {
	out := make([]fill.Mapping, 0, len(mappings))
	for _, m := range mappings {
		field, known := extraction.Field{}, false
		if schema != nil {
			field, known = schema.Field(m.FieldID)
		}

		switch {
		case m.Value == nil:
		case !known:
			m.Value = normalize.Stringify(m.Value)
		case field.Type == normalize.TypeCheckbox && isBool(m.Value):
		default:
			if v := n.NormalizeValue(m.Value, field.Type); v != nil {
				m.Value = *v
			} else {
				m.Value = nil
			}
		}

		if m.Label == "" && known && field.Label != field.ID {
			m.Label = field.Label
		}
		out = append(out, m)
	}
	return out
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}
