package pdf

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdferrors "github.com/a3tai/mcp-pdf-forms/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/fill"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/normalize"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/pdfdoc"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/testpdf"
)

func newTestService(t *testing.T) (*Service, string, string) {
	t.Helper()
	dir := t.TempDir()
	out := filepath.Join(dir, "out")

	s, err := NewService(Options{
		MaxFileSize:     10 * 1024 * 1024,
		Directory:       dir,
		OutputDirectory: out,
	})
	require.NoError(t, err)
	return s, dir, out
}

func wohngeldPage() testpdf.Page {
	return testpdf.Page{
		Lines: []string{
			"Antrag auf Wohngeld",
			"Name: ________",
			"Geburtsdatum: ________",
			"IBAN: ________",
		},
	}
}

func TestNewService(t *testing.T) {
	_, err := NewService(Options{})
	assert.Error(t, err)

	s, err := NewService(Options{Directory: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, s.inputs.Root(), s.outputs.Root(), "output directory defaults to input directory")
}

func TestService_ExtractSchema(t *testing.T) {
	s, dir, _ := newTestService(t)
	path := testpdf.Write(t, dir, "wohngeld.pdf", wohngeldPage())

	schema, err := s.ExtractSchema(context.Background(), ExtractRequest{Path: "wohngeld.pdf", FormID: "wg"})
	require.NoError(t, err)

	assert.Equal(t, "wg", schema.FormID)
	assert.Equal(t, "Antrag auf Wohngeld", schema.Title)
	assert.Equal(t, path, schema.Source.Path)
	require.Len(t, schema.Fields, 3)
	assert.Equal(t, normalize.TypeDate, schema.Fields[1].Type)
	assert.Equal(t, normalize.TypeIBAN, schema.Fields[2].Type)
}

func TestService_ExtractSchemaErrors(t *testing.T) {
	s, dir, _ := newTestService(t)

	_, err := s.ExtractSchema(context.Background(), ExtractRequest{Path: "missing.pdf"})
	require.Error(t, err)
	assert.True(t, pdferrors.IsNotFound(err))

	_, err = s.ExtractSchema(context.Background(), ExtractRequest{Path: "/etc/passwd"})
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("text"), 0o600))
	_, err = s.ExtractSchema(context.Background(), ExtractRequest{Path: "notes.txt"})
	assert.Error(t, err)
}

func TestService_FillAcroForm(t *testing.T) {
	s, dir, out := newTestService(t)
	testpdf.Write(t, dir, "kindergeld.pdf", testpdf.Page{
		Lines: []string{"Antrag auf Kindergeld"},
		Fields: []testpdf.Field{
			{Name: "name", Type: "Tx"},
			{Name: "agree", Type: "Btn"},
		},
	})

	schema, err := s.ExtractSchema(context.Background(), ExtractRequest{Path: "kindergeld.pdf", FormID: "kg/2024"})
	require.NoError(t, err)
	require.True(t, schema.Source.HasAcroForm)

	res, err := s.Fill(context.Background(), FillRequest{
		Path:   "kindergeld.pdf",
		Schema: schema,
		Mappings: []fill.Mapping{
			{FieldID: "name", Value: "  Max Mustermann "},
			{FieldID: "agree", Value: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, fill.MethodAcroForm, res.Method)
	assert.Equal(t, 2, res.FilledCount)
	assert.Equal(t, filepath.Join(out, "filled_kg_2024.pdf"), res.OutputPath)

	pctx, err := pdfdoc.Open(res.OutputPath)
	require.NoError(t, err)
	widgets := pdfdoc.Widgets(pctx, nil)
	require.Len(t, widgets, 2)
	assert.Equal(t, "Max Mustermann", pdfdoc.StringEntry(pctx, widgets[0].Dict, "V"))
}

func TestService_FillFallback(t *testing.T) {
	s, dir, out := newTestService(t)
	testpdf.Write(t, dir, "wohngeld.pdf", wohngeldPage())

	res, err := s.Fill(context.Background(), FillRequest{
		Path: "wohngeld.pdf",
		Mappings: []fill.Mapping{
			{FieldID: "name", Label: "Name", Value: "Max"},
			{FieldID: "iban", Value: "de89370400440532013000"},
		},
		Output: "summary.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, fill.MethodSimple, res.Method)
	assert.Equal(t, 2, res.FilledCount)
	assert.Equal(t, filepath.Join(out, "summary.pdf"), res.OutputPath)
	assert.FileExists(t, res.OutputPath)
}

func TestService_FillRejectsOutputOutsideDirectory(t *testing.T) {
	s, dir, _ := newTestService(t)
	require.NoError(t, os.MkdirAll(s.outputs.Root(), 0o755))
	testpdf.Write(t, dir, "wohngeld.pdf", wohngeldPage())

	_, err := s.Fill(context.Background(), FillRequest{
		Path:     "wohngeld.pdf",
		Mappings: []fill.Mapping{{FieldID: "name", Value: "Max"}},
		Output:   "../../escape.pdf",
	})
	assert.Error(t, err)
}

func TestService_ExtractAndFill(t *testing.T) {
	s, dir, out := newTestService(t)
	testpdf.Write(t, dir, "wohngeld.pdf", wohngeldPage())

	res, err := s.ExtractAndFill(context.Background(), ExtractAndFillRequest{
		Path: "wohngeld.pdf",
		Mappings: []fill.Mapping{
			{FieldID: "geburtsdatum", Value: "1990-05-06"},
			{FieldID: "iban", Value: "de89370400440532013000"},
		},
		Title: "Wohngeld",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Schema)
	assert.Len(t, res.Schema.Fields, 3)
	assert.Equal(t, fill.MethodSimple, res.Fill.Method)
	assert.Equal(t, 2, res.Fill.FilledCount)
	assert.Equal(t, out, filepath.Dir(res.Fill.OutputPath))
}

func TestService_Normalize(t *testing.T) {
	s, _, _ := newTestService(t)

	res := s.Normalize(NormalizeRequest{Value: "2023-01-31", FieldType: "date"})
	require.NotNil(t, res.Normalized)
	assert.Equal(t, "31.01.2023", *res.Normalized)
	assert.Equal(t, "normalized", res.Outcome)
	assert.True(t, res.IsValid)

	res = s.Normalize(NormalizeRequest{Value: "31.02.2023", FieldType: "date"})
	assert.Equal(t, "passed_through", res.Outcome)
	assert.NotEmpty(t, res.Reason)

	res = s.Normalize(NormalizeRequest{Value: "  ", FieldType: "email"})
	assert.Nil(t, res.Normalized)
	assert.Equal(t, "absent", res.Outcome)
	assert.False(t, res.IsValid)

	res = s.Normalize(NormalizeRequest{Value: 1234.0, FieldType: "plz"})
	require.NotNil(t, res.Normalized)
	assert.Equal(t, "01234", *res.Normalized)

	res = s.Normalize(NormalizeRequest{Value: "x", FieldType: "unknown"})
	assert.Equal(t, "string", res.FieldType)
}

func TestService_ISODateFormat(t *testing.T) {
	s, err := NewService(Options{Directory: t.TempDir(), DateFormat: normalize.DateFormatISO})
	require.NoError(t, err)

	res := s.Normalize(NormalizeRequest{Value: "31.01.2023", FieldType: "date"})
	require.NotNil(t, res.Normalized)
	assert.Equal(t, "2023-01-31", *res.Normalized)
}

func TestService_RemoveOutput(t *testing.T) {
	s, _, out := newTestService(t)
	require.NoError(t, os.MkdirAll(out, 0o755))

	path := filepath.Join(out, "filled_x.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o600))

	removed, err := s.RemoveOutput(path)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoFileExists(t, path)

	removed, err = s.RemoveOutput(path)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = s.RemoveOutput("")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = s.RemoveOutput("/etc/passwd")
	assert.Error(t, err)
}

func TestService_OutputPath(t *testing.T) {
	s, _, out := newTestService(t)
	assert.Equal(t, filepath.Join(out, "filled_auto_abc.pdf"), s.OutputPath("auto/abc"))
}

func TestService_ValidateFile(t *testing.T) {
	s, dir, _ := newTestService(t)
	testpdf.Write(t, dir, "two.pdf", testpdf.Page{}, testpdf.Page{})

	res, err := s.ValidateFile("two.pdf")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, 2, res.Pages)

	res, err = s.ValidateFile("missing.pdf")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Message, "does not exist")

	_, err = s.ValidateFile("../elsewhere.pdf")
	assert.Error(t, err)
}

func TestService_ServerInfo(t *testing.T) {
	s, dir, out := newTestService(t)
	testpdf.Write(t, dir, "a.pdf", testpdf.Page{})

	info := s.ServerInfo("mcp-pdf-forms", "1.2.3", 4, []ToolInfo{{Name: "pdf_form_extract"}})
	assert.Equal(t, "mcp-pdf-forms", info.ServerName)
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, dir, info.DefaultDirectory)
	assert.Equal(t, out, info.OutputDirectory)
	assert.Equal(t, 4, info.CachedSchemas)
	assert.Equal(t, []string{"layout", "plain"}, info.TextMethods)
	assert.Contains(t, info.FieldTypes, "iban")
	assert.Equal(t, "DD.MM.YYYY", info.DateFormat)
	require.Len(t, info.DirectoryContents, 1)
	assert.Equal(t, "a.pdf", info.DirectoryContents[0].Name)
}
