package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/extraction"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/testpdf"
)

func execute(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := execute(t, "")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "USAGE:")

	code, _, stderr = execute(t, "", "explode")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "explode"`)

	code, stdout, _ := execute(t, "", "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "pdf_extract_forms fill")
}

func TestRun_Extract(t *testing.T) {
	dir := t.TempDir()
	path := testpdf.Write(t, dir, "wohngeld.pdf", testpdf.Page{
		Lines: []string{"Antrag auf Wohngeld", "Name: ________", "E-Mail: ________"},
	})

	code, stdout, stderr := execute(t, "", "extract", "--form-id", "wg", path)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Antrag auf Wohngeld (wg)")
	assert.Contains(t, stdout, "Type: email")

	code, stdout, stderr = execute(t, "", "extract", "--format", "json", path)
	require.Equal(t, 0, code, stderr)

	var schema extraction.Schema
	require.NoError(t, json.Unmarshal([]byte(stdout), &schema))
	assert.Len(t, schema.Fields, 2)
	assert.False(t, schema.Source.HasAcroForm)
}

func TestRun_ExtractErrors(t *testing.T) {
	code, _, stderr := execute(t, "", "extract")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "exactly one PDF file path required")

	code, _, stderr = execute(t, "", "extract", filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "file not found")

	code, _, _ = execute(t, "", "extract", "--format", "xml", "x.pdf")
	assert.Equal(t, 1, code)

	code, _, _ = execute(t, "", "extract", "--bogus")
	assert.Equal(t, 1, code)
}

func TestRun_Fill(t *testing.T) {
	dir := t.TempDir()
	path := testpdf.Write(t, dir, "kindergeld.pdf", testpdf.Page{
		Lines:  []string{"Antrag auf Kindergeld"},
		Fields: []testpdf.Field{{Name: "name", Type: "Tx"}},
	})
	output := filepath.Join(dir, "out", "kg.pdf")

	code, stdout, stderr := execute(t, `[{"field_id":"name","value":"Erika Mustermann"}]`,
		"fill", "--mappings", "-", "--output", output, "--format", "json", path)
	require.Equal(t, 0, code, stderr)

	var res pdf.ExtractAndFillResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	require.NotNil(t, res.Fill)
	assert.Equal(t, 1, res.Fill.FilledCount)
	assert.Equal(t, output, res.Fill.OutputPath)
	assert.FileExists(t, output)
}

func TestRun_FillFromFileWithSummary(t *testing.T) {
	dir := t.TempDir()
	path := testpdf.Write(t, dir, "scan.pdf", testpdf.Page{Lines: []string{"Name: ________"}})
	mappings := filepath.Join(dir, "values.json")
	require.NoError(t, os.WriteFile(mappings, []byte(`[{"field_id":"name","label":"Name","value":"Max"}]`), 0o600))

	code, stdout, stderr := execute(t, "", "fill", "-m", mappings, "--title", "Zusammenfassung", path)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Filled 1 field(s) using simple method")
}

func TestRun_FillErrors(t *testing.T) {
	dir := t.TempDir()
	path := testpdf.Write(t, dir, "form.pdf", testpdf.Page{Lines: []string{"Name: ________"}})

	code, _, stderr := execute(t, "", "fill", path)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "--mappings is required")

	code, _, _ = execute(t, `[{"value":"x"}]`, "fill", "-m", "-", path)
	assert.Equal(t, 1, code)

	code, _, stderr = execute(t, "", "fill", "-m", filepath.Join(dir, "none.json"), path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "failed to read mappings")
}

func TestRun_Normalize(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--type", "iban", "de89370400440532013000"}, "DE89 3704 0044 0532 0130 00\n"},
		{[]string{"-t", "date", "2023-01-31"}, "31.01.2023\n"},
		{[]string{"-t", "date", "--date-format", "YYYY-MM-DD", "31.01.2023"}, "2023-01-31\n"},
		{[]string{"-t", "plz", "  "}, "(empty)\n"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			code, stdout, stderr := execute(t, "", append([]string{"normalize"}, tt.args...)...)
			require.Equal(t, 0, code, stderr)
			assert.Equal(t, tt.want, stdout)
		})
	}
}

func TestRun_NormalizeJSON(t *testing.T) {
	code, stdout, stderr := execute(t, "", "normalize", "--format", "json", "-t", "date", "31.02.2023")
	require.Equal(t, 0, code, stderr)

	var res pdf.NormalizeResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, "passed_through", res.Outcome)
	assert.NotEmpty(t, res.Reason)

	code, _, _ = execute(t, "", "normalize")
	assert.Equal(t, 2, code)
}
