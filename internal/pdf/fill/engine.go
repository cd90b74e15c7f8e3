// Package fill writes mapped values into a document: into its AcroForm when
// it has one, otherwise into a newly rendered summary document.
package fill

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	pdferrors "github.com/a3tai/mcp-pdf-forms/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/extraction"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/normalize"
)

// Method records how a document was filled.
type Method string

const (
	MethodAcroForm Method = "acroform"
	MethodSimple   Method = "simple"
)

// EmptyValue is printed for blocks whose value renders as an empty string.
const EmptyValue = "—"

// Mapping assigns a value to a field. Value is a decoded JSON value; nil
// means the field is left alone.
type Mapping struct {
	FieldID string `json:"field_id"`
	Label   string `json:"label,omitempty"`
	Value   any    `json:"value"`
}

// Request describes one fill operation.
type Request struct {
	Source   string
	Output   string
	Mappings []Mapping
	// Title heads the fallback document. Empty derives it from Source.
	Title string
	// Flatten marks filled fields read-only.
	Flatten bool
}

// Result reports what was written.
type Result struct {
	Method      Method `json:"method"`
	FilledCount int    `json:"filled_count"`
	OutputPath  string `json:"output_path"`
}

// Block is one label/value pair of the fallback document.
type Block struct {
	Label string
	Value string
}

// Document is the content of the fallback document.
type Document struct {
	Title  string
	Blocks []Block
	Footer string
}

// Renderer writes a fallback document to output.
type Renderer interface {
	Render(doc Document, output string) error
}

// Engine fills documents.
type Engine struct {
	logger   *zap.Logger
	renderer Renderer
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRenderer replaces the pdfcpu renderer used for fallback documents.
func WithRenderer(r Renderer) Option {
	return func(e *Engine) {
		if r != nil {
			e.renderer = r
		}
	}
}

// WithClock sets the time source for the fallback footer.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:   zap.NewNop(),
		renderer: NewPDFRenderer(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fill writes req.Mappings into req.Output. The AcroForm of req.Source is
// used when at least one mapping matches one of its fields; in every other
// case a summary document is rendered instead. Only a missing source and a
// failing renderer are reported as errors.
func (e *Engine) Fill(ctx context.Context, req Request) (*Result, error) {
	if req.Output == "" {
		return nil, pdferrors.New(pdferrors.KindFatal, "fill", fmt.Errorf("output path is required"))
	}
	if _, err := os.Stat(req.Source); err != nil {
		if os.IsNotExist(err) {
			err = fmt.Errorf("%w: %s", pdferrors.ErrNotFound, req.Source)
		}
		return nil, pdferrors.New(pdferrors.KindFatal, "fill", err).WithFile(req.Source)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
		return nil, pdferrors.New(pdferrors.KindFatal, "fill", fmt.Errorf("failed to create output directory: %w", err))
	}

	filled, err := e.fillAcroForm(req)
	switch {
	case err != nil:
		e.logger.Warn("acroform fill failed, rendering summary document",
			zap.String("source", req.Source),
			zap.Error(err))
	case filled == 0:
		e.logger.Info("no form fields matched, rendering summary document",
			zap.String("source", req.Source))
	default:
		e.logger.Info("acroform filled",
			zap.String("output", req.Output),
			zap.Int("filled", filled))
		return &Result{Method: MethodAcroForm, FilledCount: filled, OutputPath: req.Output}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.fillSimple(req)
}

func (e *Engine) fillSimple(req Request) (*Result, error) {
	doc := Document{
		Title:  req.Title,
		Blocks: Blocks(req.Mappings),
		Footer: fmt.Sprintf("Erstellt am %s", e.now().Format("02.01.2006")),
	}
	if doc.Title == "" {
		doc.Title = extraction.TitleFromFilename(req.Source)
	}

	if err := e.renderer.Render(doc, req.Output); err != nil {
		return nil, pdferrors.New(pdferrors.KindFatal, "render summary", err).WithFile(req.Output)
	}

	e.logger.Info("summary document rendered",
		zap.String("output", req.Output),
		zap.Int("blocks", len(doc.Blocks)))
	return &Result{Method: MethodSimple, FilledCount: len(doc.Blocks), OutputPath: req.Output}, nil
}

// Blocks turns mappings into label/value pairs. Mappings without a value are
// skipped. A repeated label keeps its first position and its last value.
func Blocks(mappings []Mapping) []Block {
	var blocks []Block
	index := make(map[string]int)
	for _, m := range mappings {
		if m.Value == nil {
			continue
		}
		label := m.Label
		if label == "" {
			label = m.FieldID
		}
		value := normalize.Stringify(m.Value)
		if value == "" {
			value = EmptyValue
		}

		if i, ok := index[label]; ok {
			blocks[i].Value = value
			continue
		}
		index[label] = len(blocks)
		blocks = append(blocks, Block{Label: label, Value: value})
	}
	return blocks
}
