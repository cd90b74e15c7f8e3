package textextract

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"

	pdferrors "github.com/a3tai/mcp-pdf-forms/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/pdfdoc"
)

// PlainBackend scans each page's decoded content stream for text showing
// operators.
type PlainBackend struct{}

// NewPlainBackend creates the content stream backend.
func NewPlainBackend() *PlainBackend {
	return &PlainBackend{}
}

func (*PlainBackend) Name() string { return "plain" }

func (*PlainBackend) Probe() error { return nil }

func (p *PlainBackend) Extract(ctx context.Context, path string) (*Output, error) {
	pctx, err := pdfdoc.Open(path)
	if err != nil {
		return nil, pdferrors.New(pdferrors.KindParse, p.Name(), err).WithFile(path)
	}

	out := &Output{Pages: pctx.PageCount}
	var pages []string
	for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r, err := pdfcpu.ExtractPageContent(pctx, pageNr)
		if err != nil {
			return nil, pdferrors.New(pdferrors.KindParse, p.Name(), fmt.Errorf("page %d: %w", pageNr, err)).WithFile(path)
		}
		if r == nil {
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, pdferrors.New(pdferrors.KindParse, p.Name(), fmt.Errorf("page %d: %w", pageNr, err)).WithFile(path)
		}

		if text := contentText(data); text != "" {
			pages = append(pages, text)
		}
	}

	out.Text = strings.Join(pages, "\n\n")
	return out, nil
}
