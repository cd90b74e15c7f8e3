package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	pdferrors "github.com/a3tai/mcp-pdf-forms/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/extraction"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/fill"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/normalize"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/security"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/textextract"
)

// serverInfoFileLimit bounds the directory listing in server info
const serverInfoFileLimit = 100

// Options configures a Service
type Options struct {
	MaxFileSize     int64
	Directory       string
	OutputDirectory string
	OCR             bool
	OCRLanguage     string
	Flatten         bool
	DateFormat      normalize.DateFormat
	Logger          *zap.Logger
}

// Service handles PDF form operations by orchestrating the pipeline components
type Service struct {
	opts       Options
	logger     *zap.Logger
	validator  *Validator
	inputs     *security.PathValidator
	outputs    *security.PathValidator
	normalizer *normalize.Normalizer
	decoder    *MappingDecoder
	filler     *fill.Engine

	plainText *textextract.Extractor
	ocrText   *textextract.Extractor
	assembler *extraction.Assembler
	ocrSchema *extraction.Assembler
}

// NewService creates a new PDF service with all components
func NewService(opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.OutputDirectory == "" {
		opts.OutputDirectory = opts.Directory
	}

	inputs, err := security.NewPathValidator(opts.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}
	outputs, err := security.NewPathValidator(opts.OutputDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create output path validator: %w", err)
	}
	// Confinement only applies to existing directories.
	if err := os.MkdirAll(opts.OutputDirectory, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	decoder, err := NewMappingDecoder()
	if err != nil {
		return nil, err
	}

	plainText := textextract.New(textextract.WithLogger(logger.Named("text")))
	ocrText := textextract.New(
		textextract.WithLogger(logger.Named("text")),
		textextract.WithOCR(true, opts.OCRLanguage),
	)
	native := extraction.NewNativeDiscoverer(logger.Named("fields"))

	return &Service{
		opts:       opts,
		logger:     logger,
		validator:  NewValidator(opts.MaxFileSize),
		inputs:     inputs,
		outputs:    outputs,
		normalizer: normalize.New(normalize.WithLogger(logger.Named("normalize")), normalize.WithDateFormat(opts.DateFormat)),
		decoder:    decoder,
		filler:     fill.New(fill.WithLogger(logger.Named("fill"))),
		plainText:  plainText,
		ocrText:    ocrText,
		assembler: extraction.NewAssembler(plainText,
			extraction.WithAssemblerLogger(logger.Named("schema")),
			extraction.WithFieldDiscoverer(native)),
		ocrSchema: extraction.NewAssembler(ocrText,
			extraction.WithAssemblerLogger(logger.Named("schema")),
			extraction.WithFieldDiscoverer(native)),
	}, nil
}

// ValidateFile checks that a file is a readable PDF inside the configured directory
func (s *Service) ValidateFile(path string) (*ValidateFileResult, error) {
	resolved, err := s.inputs.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	return s.validator.ValidateFile(resolved), nil
}

// ExtractSchema derives the form schema of a PDF file
func (s *Service) ExtractSchema(ctx context.Context, req ExtractRequest) (*extraction.Schema, error) {
	path, err := s.source(req.Path)
	if err != nil {
		return nil, err
	}

	assembler := s.assembler
	if s.useOCR(req.OCR) {
		assembler = s.ocrSchema
	}
	return assembler.Extract(ctx, path, req.FormID)
}

// Fill writes mapped values into a PDF file. Mapping values are normalized
// against req.Schema when it is given.
func (s *Service) Fill(ctx context.Context, req FillRequest) (*fill.Result, error) {
	path, err := s.source(req.Path)
	if err != nil {
		return nil, err
	}

	formID := req.FormID
	if formID == "" && req.Schema != nil {
		formID = req.Schema.FormID
	}
	output, err := s.output(req.Output, formID, path)
	if err != nil {
		return nil, err
	}

	flatten := s.opts.Flatten
	if req.Flatten != nil {
		flatten = *req.Flatten
	}

	return s.filler.Fill(ctx, fill.Request{
		Source:   path,
		Output:   output,
		Mappings: NormalizeMappings(s.normalizer, req.Schema, req.Mappings),
		Title:    req.Title,
		Flatten:  flatten,
	})
}

// ExtractAndFill derives the schema of a PDF file and fills it in one step
func (s *Service) ExtractAndFill(ctx context.Context, req ExtractAndFillRequest) (*ExtractAndFillResult, error) {
	schema, err := s.ExtractSchema(ctx, ExtractRequest{Path: req.Path, OCR: req.OCR})
	if err != nil {
		return nil, err
	}

	res, err := s.Fill(ctx, FillRequest{
		Path:     req.Path,
		Schema:   schema,
		Mappings: req.Mappings,
		Output:   req.Output,
		Title:    req.Title,
		Flatten:  req.Flatten,
	})
	if err != nil {
		return nil, err
	}
	return &ExtractAndFillResult{Schema: schema, Fill: res}, nil
}

// DecodeMappings validates and decodes a JSON mapping payload
func (s *Service) DecodeMappings(data []byte) ([]fill.Mapping, error) {
	return s.decoder.Decode(data)
}

// Normalize normalizes and validates a single value
func (s *Service) Normalize(req NormalizeRequest) *NormalizeResult {
	ft := normalize.ParseFieldType(req.FieldType)
	original := normalize.Stringify(req.Value)
	res := s.normalizer.Normalize(original, ft)

	result := &NormalizeResult{
		Original:   original,
		Normalized: res.Ptr(),
		FieldType:  ft.String(),
		Outcome:    res.Outcome.String(),
		Reason:     res.Reason,
	}
	if res.Outcome != normalize.Absent {
		result.IsValid = normalize.Validate(res.Value, ft)
	}
	return result
}

// OutputPath returns the default output location for a form id
func (s *Service) OutputPath(formID string) string {
	return filepath.Join(s.outputs.Root(), "filled_"+security.SanitizeFileName(formID)+".pdf")
}

// RemoveOutput deletes a generated document. Paths outside the output
// directory are rejected; a missing file is not an error.
func (s *Service) RemoveOutput(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	resolved, err := s.outputs.Resolve(path)
	if err != nil {
		return false, fmt.Errorf("security validation failed: %w", err)
	}

	if err := os.Remove(resolved); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to remove output: %w", err)
	}
	s.logger.Info("output removed", zap.String("path", resolved))
	return true, nil
}

// ServerInfo describes the server configuration and the PDF files available
func (s *Service) ServerInfo(serverName, version string, cachedSchemas int, tools []ToolInfo) *ServerInfoResult {
	files, err := FindPDFs(s.inputs.Root(), serverInfoFileLimit)
	if err != nil {
		s.logger.Debug("directory listing failed", zap.Error(err))
		files = []FileInfo{}
	}

	methods := s.plainText.Methods()
	if s.opts.OCR {
		methods = s.ocrText.Methods()
	}

	fieldTypes := make([]string, 0, len(normalize.FieldTypes()))
	for _, ft := range normalize.FieldTypes() {
		fieldTypes = append(fieldTypes, ft.String())
	}

	dateFormat := s.opts.DateFormat
	if dateFormat == "" {
		dateFormat = normalize.DateFormatGerman
	}

	return &ServerInfoResult{
		ServerName:        serverName,
		Version:           version,
		DefaultDirectory:  s.inputs.Root(),
		OutputDirectory:   s.outputs.Root(),
		MaxFileSize:       s.opts.MaxFileSize,
		TextMethods:       methods,
		FieldTypes:        fieldTypes,
		DateFormat:        string(dateFormat),
		CachedSchemas:     cachedSchemas,
		AvailableTools:    tools,
		DirectoryContents: files,
	}
}

// source resolves and validates an input document
func (s *Service) source(path string) (string, error) {
	resolved, err := s.inputs.Resolve(path)
	if err != nil {
		return "", pdferrors.New(pdferrors.KindFatal, "resolve source", fmt.Errorf("security validation failed: %w", err))
	}

	info, err := os.Stat(resolved)
	if os.IsNotExist(err) {
		return "", pdferrors.New(pdferrors.KindFatal, "resolve source", fmt.Errorf("%w: %s", pdferrors.ErrNotFound, resolved)).WithFile(resolved)
	}
	if err != nil {
		return "", pdferrors.New(pdferrors.KindFatal, "resolve source", err).WithFile(resolved)
	}
	if err := s.validator.ValidateFileInfo(resolved, info); err != nil {
		return "", pdferrors.New(pdferrors.KindFatal, "resolve source", err).WithFile(resolved)
	}
	return resolved, nil
}

// output resolves the output document, defaulting to a name derived from
// the form id or, without one, from the source file
func (s *Service) output(path, formID, source string) (string, error) {
	if path == "" {
		if formID == "" {
			base := filepath.Base(source)
			formID = base[:len(base)-len(filepath.Ext(base))]
		}
		path = s.OutputPath(formID)
	}

	resolved, err := s.outputs.Resolve(path)
	if err != nil {
		return "", pdferrors.New(pdferrors.KindFatal, "resolve output", fmt.Errorf("security validation failed: %w", err))
	}
	return resolved, nil
}

func (s *Service) useOCR(override *bool) bool {
	if override != nil {
		return *override
	}
	return s.opts.OCR
}
