package pdf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-forms/internal/pdf/testpdf"
)

func TestValidator_ValidateFile(t *testing.T) {
	dir := t.TempDir()
	valid := testpdf.Write(t, dir, "valid.pdf", testpdf.Page{Lines: []string{"Hallo"}})

	empty := filepath.Join(dir, "empty.pdf")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))

	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("hello"), 0o600))

	garbage := filepath.Join(dir, "garbage.pdf")
	require.NoError(t, os.WriteFile(garbage, []byte("this is not a pdf"), 0o600))

	large := filepath.Join(dir, "large.pdf")
	require.NoError(t, os.WriteFile(large, []byte(strings.Repeat("x", 100*1024)), 0o600))

	v := NewValidator(64 * 1024)

	tests := []struct {
		name    string
		path    string
		valid   bool
		message string
	}{
		{"valid", valid, true, ""},
		{"empty path", "", false, "path cannot be empty"},
		{"missing", filepath.Join(dir, "missing.pdf"), false, "does not exist"},
		{"directory", dir, false, "is a directory"},
		{"wrong extension", text, false, "not a PDF"},
		{"empty file", empty, false, "file is empty"},
		{"too large", large, false, "file too large"},
		{"garbage", garbage, false, "invalid PDF file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.ValidateFile(tt.path)
			assert.Equal(t, tt.path, res.Path)
			assert.Equal(t, tt.valid, res.Valid)
			if tt.valid {
				assert.Equal(t, 1, res.Pages)
				assert.Empty(t, res.Message)
			} else {
				assert.Contains(t, res.Message, tt.message)
			}
		})
	}
}

func TestValidator_NoSizeLimit(t *testing.T) {
	path := testpdf.Write(t, t.TempDir(), "doc.pdf", testpdf.Page{})
	assert.True(t, NewValidator(0).ValidateFile(path).Valid)
}
