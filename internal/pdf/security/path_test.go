package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPathValidator(t *testing.T) {
	_, err := NewPathValidator("")
	assert.Error(t, err)

	v, err := NewPathValidator("/non/existent/path")
	require.NoError(t, err)
	assert.Equal(t, "/non/existent/path", v.Root())
}

func TestPathValidator_ValidatePath(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "subdir")
	require.NoError(t, os.Mkdir(sub, 0o755))

	v, err := NewPathValidator(root)
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"empty path", "", true},
		{"file in root", filepath.Join(root, "form.pdf"), false},
		{"file in subdirectory", filepath.Join(sub, "form.pdf"), false},
		{"root itself", root, false},
		{"outside", "/etc/passwd", true},
		{"traversal", filepath.Join(root, "..", "escape.pdf"), true},
		{"sibling with common prefix", root + "-other/form.pdf", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidatePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPathValidator_MissingRootAllowsAll(t *testing.T) {
	v, err := NewPathValidator(filepath.Join(t.TempDir(), "later"))
	require.NoError(t, err)

	ok, err := v.IsPathWithinDirectory("/etc/passwd")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPathValidator_Symlink(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "secret.pdf")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o600))

	link := filepath.Join(root, "link.pdf")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	v, err := NewPathValidator(root)
	require.NoError(t, err)
	assert.Error(t, v.ValidatePath(link))
}

func TestPathValidator_Resolve(t *testing.T) {
	root := t.TempDir()
	v, err := NewPathValidator(root)
	require.NoError(t, err)

	got, err := v.Resolve("form.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "form.pdf"), got)

	got, err = v.Resolve("fo\x00rm.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "form.pdf"), got)

	_, err = v.Resolve("../outside.pdf")
	assert.Error(t, err)

	_, err = v.Resolve("\x00")
	assert.Error(t, err)
}

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"auto/1234-abcd":     "auto_1234-abcd",
		"Antrag Wohngeld":    "Antrag_Wohngeld",
		"../../etc/passwd":   "etc_passwd",
		"":                   "form",
		"///":                "form",
		"kindergeld_2024.v2": "kindergeld_2024.v2",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFileName(in), in)
	}
}
