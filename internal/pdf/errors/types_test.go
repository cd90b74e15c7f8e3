package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFError_Error(t *testing.T) {
	err := New(KindParse, "layout", errors.New("bad xref")).WithFile("/tmp/a.pdf")
	assert.Equal(t, "[PARSE] layout /tmp/a.pdf: bad xref", err.Error())

	bare := New(KindFatal, "render", nil)
	assert.Equal(t, "[FATAL] render", bare.Error())
}

func TestKindClassification(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		unavailable bool
		fatal       bool
	}{
		{"nil", nil, false, false},
		{"sentinel", ErrUnavailable, true, false},
		{"wrapped sentinel", fmt.Errorf("ocr: %w", ErrUnavailable), true, false},
		{"unavailable helper", Unavailable("ocr", "built without tesseract"), true, false},
		{"parse", New(KindParse, "plain", errors.New("eof")), false, false},
		{"fatal", New(KindFatal, "render", errors.New("disk full")), false, true},
		{"plain error", errors.New("boom"), false, true},
		{"wrapped parse", fmt.Errorf("extract: %w", New(KindParse, "layout", nil)), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unavailable, IsUnavailable(tt.err))
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
		})
	}
}

func TestUnwrap(t *testing.T) {
	inner := fmt.Errorf("open: %w", ErrNotFound)
	err := New(KindFatal, "extract", inner)

	require.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, KindFatal, KindOf(err))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "UNAVAILABLE", KindUnavailable.String())
	assert.Equal(t, "PARSE", KindParse.String())
	assert.Equal(t, "FATAL", KindFatal.String())
	assert.Equal(t, "UNKNOWN", Kind(42).String())
}
