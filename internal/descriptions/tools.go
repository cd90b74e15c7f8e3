package descriptions

import (
	"sort"
	"strings"
)

// Tool descriptions with practical examples and use cases

const (
	PDFFormExtractDescription = `Derive a fillable schema from a PDF form.

**When to use:** First step for any form. Reads the document's interactive fields, or infers fields from text patterns such as "Name: ______" and "☐ Option" when the document has none.

**What you get:** A schema with form_id, title, and fields (id, label, type, required, value, confidence, page). Types are one of string, date, iban, plz, tel, email, number, checkbox, select, signature. Inferred fields carry a confidence score; native fields do not.

**Examples:**
• "Extract the fields of antrag_wohngeld.pdf"
• "Extract kindergeld.pdf with form_id kg-2024 and OCR enabled"

**Best practices:** Keep the returned form_id; pdf_form_fill, pdf_form_schema and pdf_form_delete refer to it.`

	PDFFormSchemaDescription = `Return a previously extracted schema by form_id.

**When to use:** To look at the fields and types again before building mappings, without re-reading the document.`

	PDFFormFillDescription = `Fill a previously extracted form.

**When to use:** After pdf_form_extract, with values for the schema's field ids.

**Mappings:** A JSON array of {"field_id": "...", "label": "...", "value": ...}. value may be a string, number, boolean or null; null entries are skipped. Each value is normalized by its field's type first (dates to DD.MM.YYYY, IBANs grouped in fours, postal codes to five digits, phone numbers to +49, numbers to decimal point notation).

**Result:** method "acroform" when values were written into the document's own fields, "simple" when a summary document with label/value blocks was rendered instead. filled_count and output_path tell what was written.

**Examples:**
• mappings: [{"field_id": "geburtsdatum", "value": "1990-05-06"}, {"field_id": "agree", "value": true}]`

	PDFFormExtractAndFillDescription = `Extract a form's schema and fill it in one call.

**When to use:** When the field ids are already known, for example from an earlier run on the same form.

**Best practices:** Use pdf_form_extract first when the field ids are not known.`

	PDFFormDeleteDescription = `Forget an extracted schema and delete its filled output.

**When to use:** Cleaning up after a form has been filled. The original document is never deleted.`

	PDFFormNormalizeDescription = `Normalize and validate a single value for a field type.

**When to use:** Checking how a value will be written before filling, e.g. "2023-01-31" as date becomes "31.01.2023".

**Result:** original, normalized (null when blank), outcome (normalized, passed_through, absent) and is_valid.`

	PDFValidateFileDescription = `Verify PDF file integrity and readability before processing.

**When to use:** Before extracting, especially for uploaded or unknown files.

**Best practices:** Reports page count for valid files and a reason for invalid ones.`

	PDFServerInfoDescription = `Get server configuration, available tools, and the PDF files in the configured directory.

**When to use:** Starting work with the server, or checking which text extraction methods (layout, plain, ocr) are active.`
)

// ToolDescriptions maps tool names to their comprehensive descriptions
var ToolDescriptions = map[string]string{
	"pdf_form_extract":          PDFFormExtractDescription,
	"pdf_form_schema":           PDFFormSchemaDescription,
	"pdf_form_fill":             PDFFormFillDescription,
	"pdf_form_extract_and_fill": PDFFormExtractAndFillDescription,
	"pdf_form_delete":           PDFFormDeleteDescription,
	"pdf_form_normalize":        PDFFormNormalizeDescription,
	"pdf_validate_file":         PDFValidateFileDescription,
	"pdf_server_info":           PDFServerInfoDescription,
}

// GetToolDescription returns the comprehensive description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetToolSummary returns the first line of a tool's description
func GetToolSummary(toolName string) string {
	desc := GetToolDescription(toolName)
	if i := strings.IndexByte(desc, '\n'); i >= 0 {
		return desc[:i]
	}
	return desc
}

// GetAllToolNames returns all tool names in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
