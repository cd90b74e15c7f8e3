// Package textextract turns a PDF document into plain text by trying a chain
// of extraction backends in order.
package textextract

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	pdferrors "github.com/a3tai/mcp-pdf-forms/internal/pdf/errors"
)

// MethodFallback is reported when no backend produced text.
const MethodFallback = "fallback"

// Backend is one way of getting text out of a document.
type Backend interface {
	Name() string
	// Probe reports whether the backend can run at all. It is called at most
	// once per Extractor; an error wrapping ErrUnavailable disables the
	// backend for the Extractor's lifetime.
	Probe() error
	Extract(ctx context.Context, path string) (*Output, error)
}

// Output is what a single backend produced.
type Output struct {
	Text   string
	Pages  int
	Tables []Table
}

// Table is a block of consecutive rows that split into two or more cells.
type Table struct {
	Page int        `json:"page"`
	Rows [][]string `json:"rows"`
}

// Result is the outcome of an extraction.
type Result struct {
	Text     string
	Method   string
	Pages    int
	Tables   []Table
	Warnings []string
}

// availability caches the outcome of a backend probe.
type availability struct {
	once sync.Once
	ok   bool
	err  error
}

func (a *availability) check(b Backend) (bool, error) {
	a.once.Do(func() {
		a.err = b.Probe()
		a.ok = a.err == nil
	})
	return a.ok, a.err
}

// Extractor runs backends in order until one yields non-empty text.
type Extractor struct {
	backends []Backend
	cells    []*availability
	logger   *zap.Logger
}

// Option configures an Extractor.
type Option func(*extractorOptions)

type extractorOptions struct {
	logger   *zap.Logger
	ocr      bool
	ocrLang  string
	backends []Backend
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *extractorOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithOCR appends the OCR backend, recognising text in lang.
func WithOCR(enabled bool, lang string) Option {
	return func(o *extractorOptions) {
		o.ocr = enabled
		if lang != "" {
			o.ocrLang = lang
		}
	}
}

// WithBackends replaces the default backend chain.
func WithBackends(backends ...Backend) Option {
	return func(o *extractorOptions) {
		o.backends = backends
	}
}

// DefaultOCRLanguage is the Tesseract language used when none is configured.
const DefaultOCRLanguage = "deu"

// New creates an Extractor. Without WithBackends the chain is layout, plain
// and, when enabled, ocr.
func New(opts ...Option) *Extractor {
	o := &extractorOptions{
		logger:  zap.NewNop(),
		ocrLang: DefaultOCRLanguage,
	}
	for _, opt := range opts {
		opt(o)
	}

	backends := o.backends
	if backends == nil {
		backends = []Backend{NewLayoutBackend(), NewPlainBackend()}
		if o.ocr {
			backends = append(backends, NewOCRBackend(o.ocrLang))
		}
	}

	cells := make([]*availability, len(backends))
	for i := range cells {
		cells[i] = &availability{}
	}

	return &Extractor{
		backends: backends,
		cells:    cells,
		logger:   o.logger,
	}
}

// Methods lists the backend names in the order they are tried.
func (e *Extractor) Methods() []string {
	names := make([]string, len(e.backends))
	for i, b := range e.backends {
		names[i] = b.Name()
	}
	return names
}

// Extract returns the text of the document at path. A missing or unreadable
// file is the only error besides cancellation; backend failures are logged
// and recorded as warnings.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	if err := checkReadable(path); err != nil {
		return Result{}, err
	}

	var warnings []string
	for i, b := range e.backends {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		if ok, err := e.cells[i].check(b); !ok {
			e.logger.Debug("text backend unavailable",
				zap.String("backend", b.Name()),
				zap.Error(err))
			continue
		}

		out, err := e.run(ctx, b, path)
		if err != nil {
			if pdferrors.IsUnavailable(err) {
				e.logger.Debug("text backend unavailable",
					zap.String("backend", b.Name()),
					zap.Error(err))
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			e.logger.Warn("text backend failed",
				zap.String("backend", b.Name()),
				zap.String("path", path),
				zap.Error(err))
			warnings = append(warnings, fmt.Sprintf("%s: %v", b.Name(), err))
			continue
		}

		text := strings.TrimSpace(norm.NFC.String(out.Text))
		if text == "" {
			e.logger.Debug("text backend produced no text", zap.String("backend", b.Name()))
			continue
		}

		e.logger.Debug("text extracted",
			zap.String("backend", b.Name()),
			zap.Int("length", len(text)),
			zap.Int("pages", out.Pages))

		return Result{
			Text:     text,
			Method:   b.Name(),
			Pages:    out.Pages,
			Tables:   out.Tables,
			Warnings: warnings,
		}, nil
	}

	return Result{Method: MethodFallback, Warnings: warnings}, nil
}

func (e *Extractor) run(ctx context.Context, b Backend, path string) (out *Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = pdferrors.New(pdferrors.KindParse, b.Name(), fmt.Errorf("panic: %v", r)).WithFile(path)
		}
	}()

	out, err = b.Extract(ctx, path)
	if err == nil && out == nil {
		out = &Output{}
	}
	return out, err
}

func checkReadable(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return pdferrors.New(pdferrors.KindFatal, "extract text", fmt.Errorf("%w: %s", pdferrors.ErrNotFound, path)).WithFile(path)
	}
	if err != nil {
		return pdferrors.New(pdferrors.KindFatal, "extract text", err).WithFile(path)
	}
	if info.IsDir() {
		return pdferrors.New(pdferrors.KindFatal, "extract text", fmt.Errorf("path is a directory")).WithFile(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return pdferrors.New(pdferrors.KindFatal, "extract text", err).WithFile(path)
	}
	return f.Close()
}
