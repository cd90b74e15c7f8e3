//go:build ocr

package textextract

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	pdferrors "github.com/a3tai/mcp-pdf-forms/internal/pdf/errors"
)

type tesseract struct {
	client *gosseract.Client
}

func newTesseract(lang string) (recognizer, error) {
	if gosseract.Version() == "" {
		return nil, pdferrors.Unavailable("ocr", "tesseract library not found")
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, pdferrors.Unavailable("ocr", fmt.Sprintf("language %q: %v", lang, err))
	}
	return &tesseract{client: client}, nil
}

func (t *tesseract) Recognize(image []byte) (string, error) {
	if err := t.client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (t *tesseract) Close() error {
	return t.client.Close()
}
