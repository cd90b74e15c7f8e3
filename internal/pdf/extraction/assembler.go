package extraction

import (
	"context"
	"fmt"
	"path/filepath"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-pdf-forms/internal/pdf/textextract"
)

// AutoFormIDPrefix prefixes generated form ids.
const AutoFormIDPrefix = "auto/"

// TextExtractor yields the text of a document.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (textextract.Result, error)
}

// FieldDiscoverer reads the native form fields of a document.
type FieldDiscoverer interface {
	Discover(ctx context.Context, path string) ([]Field, error)
}

// Assembler builds a Schema from a document.
type Assembler struct {
	text   TextExtractor
	native FieldDiscoverer
	logger *zap.Logger
	newID  func() string
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithAssemblerLogger sets the logger.
func WithAssemblerLogger(logger *zap.Logger) AssemblerOption {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithFieldDiscoverer replaces the pdfcpu based native discoverer.
func WithFieldDiscoverer(d FieldDiscoverer) AssemblerOption {
	return func(a *Assembler) {
		a.native = d
	}
}

// NewAssembler creates an Assembler that reads text through text.
func NewAssembler(text TextExtractor, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		text:   text,
		logger: zap.NewNop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.native == nil {
		a.native = NewNativeDiscoverer(a.logger)
	}
	return a
}

// Extract builds the schema of the document at path. Native form fields win;
// text heuristics are used only when the document has none. An empty formID
// is replaced by a generated one. Only a missing or unreadable document is
// an error.
func (a *Assembler) Extract(ctx context.Context, path, formID string) (*Schema, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	text, err := a.text.Extract(ctx, abs)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	native, err := a.native.Discover(ctx, abs)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		a.logger.Warn("native field discovery failed",
			zap.String("path", abs),
			zap.Error(err))
		native = nil
	}

	fields := native
	if len(fields) == 0 {
		fields = DiscoverHeuristic(text.Text)
	}
	if fields == nil {
		fields = []Field{}
	}

	if formID == "" {
		formID = AutoFormIDPrefix + a.newID()
	}

	schema := &Schema{
		FormID: formID,
		Title:  DeriveTitle(text.Text, abs),
		Fields: fields,
		Source: Source{
			File:        filepath.Base(abs),
			Path:        abs,
			HasAcroForm: len(native) > 0,
		},
		Stats: Stats{
			TextLength:       utf8.RuneCountInString(text.Text),
			FieldCount:       len(fields),
			ExtractionMethod: text.Method,
		},
	}

	a.logger.Info("form schema extracted",
		zap.String("form_id", schema.FormID),
		zap.String("file", schema.Source.File),
		zap.Bool("acroform", schema.Source.HasAcroForm),
		zap.Int("fields", schema.Stats.FieldCount),
		zap.String("method", schema.Stats.ExtractionMethod))

	return schema, nil
}
