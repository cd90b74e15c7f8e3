// Package errors defines the error taxonomy shared by the form pipeline.
package errors

import (
	"errors"
	"fmt"
)

// Kind categorises a pipeline error by how callers should react to it.
type Kind int

const (
	// KindUnavailable means an optional capability (OCR, a parser backend)
	// is not present. Callers skip it and try the next option.
	KindUnavailable Kind = iota
	// KindParse means a document could not be parsed by one backend.
	// Callers log it and degrade.
	KindParse
	// KindFatal means the operation cannot produce a result.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "UNAVAILABLE"
	case KindParse:
		return "PARSE"
	case KindFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

var (
	// ErrUnavailable is reported by backends whose optional dependency is
	// missing.
	ErrUnavailable = errors.New("capability unavailable")
	// ErrNotFound is returned when a source document or cached schema does
	// not exist.
	ErrNotFound = errors.New("not found")
)

// PDFError carries the kind of failure plus the operation and document it
// happened in.
type PDFError struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *PDFError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Op)
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PDFError) Unwrap() error {
	return e.Err
}

// New creates a PDFError for op wrapping err.
func New(kind Kind, op string, err error) *PDFError {
	return &PDFError{Kind: kind, Op: op, Err: err}
}

// Unavailable wraps ErrUnavailable with a reason.
func Unavailable(op, reason string) *PDFError {
	return New(KindUnavailable, op, fmt.Errorf("%w: %s", ErrUnavailable, reason))
}

// WithFile attaches the document path.
func (e *PDFError) WithFile(path string) *PDFError {
	e.Path = path
	return e
}

// KindOf returns the kind of the first PDFError in err's chain. Errors that
// wrap ErrUnavailable without a PDFError are KindUnavailable; anything else
// is KindFatal.
func KindOf(err error) Kind {
	var pe *PDFError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, ErrUnavailable) {
		return KindUnavailable
	}
	return KindFatal
}

// IsUnavailable reports whether err signals a missing optional capability.
func IsUnavailable(err error) bool {
	return err != nil && (errors.Is(err, ErrUnavailable) || KindOf(err) == KindUnavailable)
}

// IsFatal reports whether err should abort the operation.
func IsFatal(err error) bool {
	return err != nil && KindOf(err) == KindFatal
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
