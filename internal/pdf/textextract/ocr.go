package textextract

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"

	pdferrors "github.com/a3tai/mcp-pdf-forms/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/pdfdoc"
)

// recognizer turns one image into text.
type recognizer interface {
	Recognize(image []byte) (string, error)
	Close() error
}

// OCRBackend recognises text in the images embedded on each page. It is
// only functional in binaries built with the "ocr" tag.
type OCRBackend struct {
	lang          string
	newRecognizer func(lang string) (recognizer, error)
}

// NewOCRBackend creates an OCR backend for the given Tesseract language.
func NewOCRBackend(lang string) *OCRBackend {
	if lang == "" {
		lang = DefaultOCRLanguage
	}
	return &OCRBackend{lang: lang, newRecognizer: newTesseract}
}

func (*OCRBackend) Name() string { return "ocr" }

// Probe checks that a recognizer can be created.
func (o *OCRBackend) Probe() error {
	rec, err := o.newRecognizer(o.lang)
	if err != nil {
		return err
	}
	return rec.Close()
}

func (o *OCRBackend) Extract(ctx context.Context, path string) (*Output, error) {
	rec, err := o.newRecognizer(o.lang)
	if err != nil {
		return nil, err
	}
	defer rec.Close()

	pctx, err := pdfdoc.Open(path)
	if err != nil {
		return nil, pdferrors.New(pdferrors.KindParse, o.Name(), err).WithFile(path)
	}

	out := &Output{Pages: pctx.PageCount}
	var pages []string
	for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		images, err := pdfcpu.ExtractPageImages(pctx, pageNr, false)
		if err != nil {
			return nil, pdferrors.New(pdferrors.KindParse, o.Name(), fmt.Errorf("page %d images: %w", pageNr, err)).WithFile(path)
		}

		objNrs := make([]int, 0, len(images))
		for nr := range images {
			objNrs = append(objNrs, nr)
		}
		sort.Ints(objNrs)

		var texts []string
		for _, nr := range objNrs {
			data, err := io.ReadAll(images[nr])
			if err != nil || len(data) == 0 {
				continue
			}
			text, err := rec.Recognize(data)
			if err != nil {
				return nil, pdferrors.New(pdferrors.KindParse, o.Name(), fmt.Errorf("page %d image %d: %w", pageNr, nr, err)).WithFile(path)
			}
			if text = strings.TrimSpace(text); text != "" {
				texts = append(texts, text)
			}
		}
		if len(texts) > 0 {
			pages = append(pages, strings.Join(texts, "\n"))
		}
	}

	out.Text = strings.Join(pages, "\n\n")
	return out, nil
}
