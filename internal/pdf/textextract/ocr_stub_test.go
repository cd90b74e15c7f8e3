//go:build !ocr

package textextract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdferrors "github.com/a3tai/mcp-pdf-forms/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/testpdf"
)

func TestOCRBackend_Unavailable(t *testing.T) {
	b := NewOCRBackend("")
	err := b.Probe()
	require.Error(t, err)
	assert.True(t, pdferrors.IsUnavailable(err))
}

func TestExtractor_OCRSkippedWhenUnavailable(t *testing.T) {
	path := testpdf.Write(t, t.TempDir(), "blank.pdf", testpdf.Page{})

	res, err := New(WithOCR(true, "deu")).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, MethodFallback, res.Method)
	assert.Empty(t, res.Warnings)
}
