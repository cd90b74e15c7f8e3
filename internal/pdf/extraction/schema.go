package extraction

import (
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/normalize"
)

// Heuristic confidences per pattern family.
const (
	ConfidenceLabel    = 0.6
	ConfidenceCheckbox = 0.7
)

// Field is one fillable slot in a document.
type Field struct {
	ID       string              `json:"id"`
	Label    string              `json:"label"`
	Type     normalize.FieldType `json:"type"`
	Required bool                `json:"required"`
	Value    *string             `json:"value,omitempty"`
	// Confidence is nil for native fields.
	Confidence *float64 `json:"confidence,omitempty"`
	Page       int      `json:"page,omitempty"`
	Options    []string `json:"options,omitempty"`
}

// Source describes the document a schema was extracted from.
type Source struct {
	File        string `json:"file"`
	Path        string `json:"path"`
	HasAcroForm bool   `json:"has_acroform"`
}

// Stats summarises an extraction.
type Stats struct {
	TextLength       int    `json:"text_length"`
	FieldCount       int    `json:"field_count"`
	ExtractionMethod string `json:"extraction_method"`
}

// Schema is the structured description of a document's fields. It is not
// modified after Extract returns it.
type Schema struct {
	FormID string  `json:"form_id"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
	Source Source  `json:"source"`
	Stats  Stats   `json:"stats"`
}

// Field returns the field with the given id.
func (s *Schema) Field(id string) (Field, bool) {
	for _, f := range s.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// FieldTypes maps every field id to its declared type.
func (s *Schema) FieldTypes() map[string]normalize.FieldType {
	types := make(map[string]normalize.FieldType, len(s.Fields))
	for _, f := range s.Fields {
		types[f.ID] = f.Type
	}
	return types
}

func confidence(v float64) *float64 {
	return &v
}
