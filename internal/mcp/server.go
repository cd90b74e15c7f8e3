package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-pdf-forms/internal/config"
	"github.com/a3tai/mcp-pdf-forms/internal/descriptions"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/fill"
)

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	mcpServer  *server.MCPServer
	cache      *schemaCache
	logger     *zap.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service, logger *zap.Logger) (*Server, error) {
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
		server.WithRecovery(),
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		mcpServer:  mcpServer,
		cache:      newSchemaCache(),
		logger:     logger,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_form_extract",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_form_extract")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF form, absolute or relative to the configured directory"),
		),
		mcp.WithString("form_id",
			mcp.Description("Id for the extracted schema (generated when empty)"),
		),
		mcp.WithBoolean("ocr",
			mcp.Description("Use OCR when no other text extraction yields text (overrides server default)"),
		),
	), s.handleFormExtract)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_form_schema",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_form_schema")),
		mcp.WithString("form_id",
			mcp.Required(),
			mcp.Description("Id returned by pdf_form_extract"),
		),
	), s.handleFormSchema)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_form_fill",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_form_fill")),
		mcp.WithString("form_id",
			mcp.Required(),
			mcp.Description("Id returned by pdf_form_extract"),
		),
		mcp.WithString("mappings",
			mcp.Required(),
			mcp.Description(`JSON array of {"field_id", "label"?, "value"} entries`),
		),
		mcp.WithString("output",
			mcp.Description("Output path inside the output directory (default filled_<form_id>.pdf)"),
		),
		mcp.WithString("title",
			mcp.Description("Title for the summary document when the form has no fillable fields"),
		),
		mcp.WithBoolean("flatten",
			mcp.Description("Mark filled fields read-only (overrides server default)"),
		),
	), s.handleFormFill)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_form_extract_and_fill",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_form_extract_and_fill")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF form, absolute or relative to the configured directory"),
		),
		mcp.WithString("mappings",
			mcp.Required(),
			mcp.Description(`JSON array of {"field_id", "label"?, "value"} entries`),
		),
		mcp.WithString("output",
			mcp.Description("Output path inside the output directory"),
		),
		mcp.WithString("title",
			mcp.Description("Title for the summary document when the form has no fillable fields"),
		),
		mcp.WithBoolean("ocr",
			mcp.Description("Use OCR when no other text extraction yields text"),
		),
		mcp.WithBoolean("flatten",
			mcp.Description("Mark filled fields read-only"),
		),
	), s.handleFormExtractAndFill)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_form_delete",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_form_delete")),
		mcp.WithString("form_id",
			mcp.Required(),
			mcp.Description("Id returned by pdf_form_extract"),
		),
	), s.handleFormDelete)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_form_normalize",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_form_normalize")),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("Raw value"),
		),
		mcp.WithString("field_type",
			mcp.Required(),
			mcp.Description("One of string, date, iban, plz, tel, email, number, checkbox, select, signature"),
		),
	), s.handleFormNormalize)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_validate_file",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_validate_file")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file"),
		),
	), s.handlePDFValidateFile)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_server_info",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_server_info")),
	), s.handlePDFServerInfo)
}

// Handler functions

func (s *Server) handleFormExtract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	schema, err := s.pdfService.ExtractSchema(ctx, pdf.ExtractRequest{
		Path:   path,
		FormID: request.GetString("form_id", ""),
		OCR:    optionalBool(request, "ocr"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.cache.Put(schema)
	return jsonResult(schema)
}

func (s *Server) handleFormSchema(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	formID, err := request.RequireString("form_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entry, ok := s.cache.Get(formID)
	if !ok {
		return mcp.NewToolResultError(unknownForm(formID)), nil
	}
	return jsonResult(entry.Schema)
}

func (s *Server) handleFormFill(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	formID, err := request.RequireString("form_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mappings, err := s.mappings(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entry, ok := s.cache.Get(formID)
	if !ok {
		return mcp.NewToolResultError(unknownForm(formID)), nil
	}

	result, err := s.pdfService.Fill(ctx, pdf.FillRequest{
		Path:     entry.Source,
		Schema:   entry.Schema,
		FormID:   formID,
		Mappings: mappings,
		Output:   request.GetString("output", ""),
		Title:    request.GetString("title", ""),
		Flatten:  optionalBool(request, "flatten"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.cache.SetOutput(formID, result.OutputPath)
	return jsonResult(result)
}

func (s *Server) handleFormExtractAndFill(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mappings, err := s.mappings(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.ExtractAndFill(ctx, pdf.ExtractAndFillRequest{
		Path:     path,
		Mappings: mappings,
		Output:   request.GetString("output", ""),
		Title:    request.GetString("title", ""),
		OCR:      optionalBool(request, "ocr"),
		Flatten:  optionalBool(request, "flatten"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.cache.Put(result.Schema)
	s.cache.SetOutput(result.Schema.FormID, result.Fill.OutputPath)
	return jsonResult(result)
}

func (s *Server) handleFormDelete(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	formID, err := request.RequireString("form_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entry, ok := s.cache.Delete(formID)
	if !ok {
		return mcp.NewToolResultError(unknownForm(formID)), nil
	}

	removed, err := s.pdfService.RemoveOutput(entry.Output)
	if err != nil {
		s.logger.Warn("failed to remove output", zap.String("form_id", formID), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("form %s forgotten, but its output could not be removed: %v", formID, err)), nil
	}

	text := fmt.Sprintf("Form %s deleted", formID)
	if removed {
		text += fmt.Sprintf("\nRemoved output: %s", entry.Output)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleFormNormalize(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	value, ok := request.GetArguments()["value"]
	if !ok {
		return mcp.NewToolResultError(`required argument "value" not found`), nil
	}
	fieldType, err := request.RequireString("field_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(s.pdfService.Normalize(pdf.NormalizeRequest{Value: value, FieldType: fieldType}))
}

func (s *Server) handlePDFValidateFile(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.ValidateFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("PDF file %s is valid and readable (%d pages)", result.Path, result.Pages)
	} else {
		responseText = fmt.Sprintf("PDF validation failed for %s: %s", result.Path, result.Message)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handlePDFServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names := descriptions.GetAllToolNames()
	tools := make([]pdf.ToolInfo, 0, len(names))
	for _, name := range names {
		tools = append(tools, pdf.ToolInfo{Name: name, Description: descriptions.GetToolSummary(name)})
	}

	return jsonResult(s.pdfService.ServerInfo(s.config.ServerName, s.config.Version, s.cache.Len(), tools))
}

// mappings reads the mappings argument, given either as a JSON string or as
// an already decoded array
func (s *Server) mappings(request mcp.CallToolRequest) ([]fill.Mapping, error) {
	raw, ok := request.GetArguments()["mappings"]
	if !ok {
		return nil, errors.New(`required argument "mappings" not found`)
	}

	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("invalid mappings: %w", err)
		}
		data = b
	}
	return s.pdfService.DecodeMappings(data)
}

// optionalBool distinguishes an absent boolean argument from false
func optionalBool(request mcp.CallToolRequest, key string) *bool {
	if _, ok := request.GetArguments()[key]; !ok {
		return nil
	}
	v := request.GetBool(key, false)
	return &v
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func unknownForm(formID string) string {
	return fmt.Sprintf("unknown form_id %q; run pdf_form_extract first", formID)
}

// Run starts the MCP server
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	s.logger.Debug("starting PDF forms MCP server in stdio mode",
		zap.String("dir", s.config.PDFDirectory))

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over SSE until ctx is cancelled
func (s *Server) runServerMode(ctx context.Context) error {
	sse := server.NewSSEServer(s.mcpServer)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting PDF forms MCP server", zap.String("address", s.config.Address()))
		errCh <- sse.Start(s.config.Address())
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve sse: %w", err)
		}
		return nil
	case <-ctx.Done():
		if err := sse.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("failed to shut down sse server: %w", err)
		}
		return nil
	}
}
