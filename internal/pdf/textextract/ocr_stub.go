//go:build !ocr

package textextract

import (
	pdferrors "github.com/a3tai/mcp-pdf-forms/internal/pdf/errors"
)

// newTesseract is the stub used when the "ocr" build tag is not set. Rebuild
// with -tags ocr (Tesseract must be installed) to enable recognition.
func newTesseract(string) (recognizer, error) {
	return nil, pdferrors.Unavailable("ocr", "OCR support not enabled; rebuild with -tags ocr")
}
