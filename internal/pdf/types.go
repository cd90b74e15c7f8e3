package pdf

import (
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/extraction"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/fill"
)

// FileInfo represents information about a PDF file
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// Request Types

// ExtractRequest represents a request to derive a form schema from a PDF file
type ExtractRequest struct {
	Path   string `json:"path"`
	FormID string `json:"form_id,omitempty"`
	// OCR overrides the configured OCR setting when set
	OCR *bool `json:"ocr,omitempty"`
}

// FillRequest represents a request to fill a PDF file
type FillRequest struct {
	Path string `json:"path"`
	// Schema, when present, drives per-field value normalization
	Schema   *extraction.Schema `json:"-"`
	FormID   string             `json:"form_id,omitempty"`
	Mappings []fill.Mapping     `json:"mappings"`
	Output   string             `json:"output,omitempty"`
	Title    string             `json:"title,omitempty"`
	Flatten  *bool              `json:"flatten,omitempty"`
}

// ExtractAndFillRequest combines schema extraction and filling in one call
type ExtractAndFillRequest struct {
	Path     string         `json:"path"`
	Mappings []fill.Mapping `json:"mappings"`
	Output   string         `json:"output,omitempty"`
	Title    string         `json:"title,omitempty"`
	OCR      *bool          `json:"ocr,omitempty"`
	Flatten  *bool          `json:"flatten,omitempty"`
}

// NormalizeRequest represents a request to normalize a single value
type NormalizeRequest struct {
	Value     any    `json:"value"`
	FieldType string `json:"field_type"`
}

// Response Types

// ValidateFileResult represents the result of a PDF validation operation
type ValidateFileResult struct {
	Valid   bool   `json:"valid"`
	Path    string `json:"path"`
	Pages   int    `json:"pages,omitempty"`
	Message string `json:"message,omitempty"`
}

// ExtractAndFillResult holds the schema used for filling and the fill outcome
type ExtractAndFillResult struct {
	Schema *extraction.Schema `json:"schema"`
	Fill   *fill.Result       `json:"fill"`
}

// NormalizeResult represents the outcome of normalizing a single value
type NormalizeResult struct {
	Original   string  `json:"original"`
	Normalized *string `json:"normalized"`
	FieldType  string  `json:"field_type"`
	Outcome    string  `json:"outcome"`
	Reason     string  `json:"reason,omitempty"`
	IsValid    bool    `json:"is_valid"`
}

// ServerInfoResult describes the running server
type ServerInfoResult struct {
	ServerName        string     `json:"server_name"`
	Version           string     `json:"version"`
	DefaultDirectory  string     `json:"default_directory"`
	OutputDirectory   string     `json:"output_directory"`
	MaxFileSize       int64      `json:"max_file_size"`
	TextMethods       []string   `json:"text_methods"`
	FieldTypes        []string   `json:"field_types"`
	DateFormat        string     `json:"date_format"`
	CachedSchemas     int        `json:"cached_schemas"`
	AvailableTools    []ToolInfo `json:"available_tools"`
	DirectoryContents []FileInfo `json:"directory_contents"`
}

// ToolInfo represents information about an available tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
