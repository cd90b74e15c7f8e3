package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultOCRLanguage = "deu"
	DefaultDateFormat  = "DD.MM.YYYY"
	DefaultServerName  = "mcp-pdf-forms"

	// EnvPrefix prefixes all environment variables, e.g. MCP_PDF_FORMS_OUTPUT_DIR
	EnvPrefix = "MCP_PDF_FORMS"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// ErrVersionRequested is returned when --version is among the arguments
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the PDF forms MCP server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// PDF configuration
	PDFDirectory    string
	OutputDirectory string
	MaxFileSize     int64 // Maximum PDF file size in bytes

	// Pipeline configuration
	OCR         bool
	OCRLanguage string
	Flatten     bool
	DateFormat  string

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:         ModeStdio, // Default to stdio mode for MCP compatibility
		Host:         DefaultHost,
		Port:         DefaultPort,
		PDFDirectory: currentDir,
		MaxFileSize:  DefaultMaxFileSize,
		OCRLanguage:  DefaultOCRLanguage,
		DateFormat:   DefaultDateFormat,
		Version:      "1.0.0",
		ServerName:   DefaultServerName,
		LogLevel:     DefaultLogLevel,
	}
}

// Load parses args and the environment into a validated configuration.
// Flags take precedence over environment variables.
func Load(args []string, usageOut io.Writer) (*Config, error) {
	if versionRequested(args) {
		return nil, ErrVersionRequested
	}

	cfg := DefaultConfig()
	v := viper.New()
	fs := pflag.NewFlagSet(DefaultServerName, pflag.ContinueOnError)
	fs.SetOutput(usageOut)

	setupViperEnvironment(v, cfg)
	defineCommandLineFlags(fs, cfg)
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	fs.Usage = usage(fs, usageOut)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	populateConfigFromViper(v, cfg)

	if cfg.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = expandedPath
		}
	}
	if cfg.OutputDirectory == "" {
		cfg.OutputDirectory = filepath.Join(cfg.PDFDirectory, "filled")
	} else if expandedPath, err := filepath.Abs(cfg.OutputDirectory); err == nil {
		cfg.OutputDirectory = expandedPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", cfg.Mode)
	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("dir", cfg.PDFDirectory)
	v.SetDefault("output-dir", cfg.OutputDirectory)
	v.SetDefault("log-level", cfg.LogLevel)
	v.SetDefault("max-file-size", cfg.MaxFileSize)
	v.SetDefault("ocr", cfg.OCR)
	v.SetDefault("ocr-lang", cfg.OCRLanguage)
	v.SetDefault("flatten", cfg.Flatten)
	v.SetDefault("date-format", cfg.DateFormat)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP (SSE)")
	fs.String("host", cfg.Host, "Server host address (server mode only)")
	fs.Int("port", cfg.Port, "Server port (server mode only)")
	fs.String("dir", cfg.PDFDirectory, "Directory containing PDF forms")
	fs.String("output-dir", cfg.OutputDirectory, "Directory for filled documents (default <dir>/filled)")
	fs.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.Int64("max-file-size", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	fs.Bool("ocr", cfg.OCR, "Enable the OCR text backend (requires a build with -tags ocr)")
	fs.String("ocr-lang", cfg.OCRLanguage, "Tesseract language for OCR")
	fs.Bool("flatten", cfg.Flatten, "Mark filled form fields read-only by default")
	fs.String("date-format", cfg.DateFormat, "Output format for dates: DD.MM.YYYY or YYYY-MM-DD")
}

// usage returns the custom usage message
func usage(fs *pflag.FlagSet, w io.Writer) func() {
	return func() {
		fmt.Fprintf(w, "Usage of %s:\n", DefaultServerName)
		fmt.Fprintf(w, "\nMCP PDF Forms - A Model Context Protocol server for extracting and filling PDF forms\n\n")
		fmt.Fprintf(w, "Options:\n")
		fs.SetOutput(w)
		fs.PrintDefaults()
		fmt.Fprintf(w, "\nExamples:\n")
		fmt.Fprintf(w, "  %s --dir=/path/to/forms                 # stdio mode\n", DefaultServerName)
		fmt.Fprintf(w, "  %s --dir=/path/to/forms --ocr           # with OCR fallback\n", DefaultServerName)
		fmt.Fprintf(w, "  %s --mode=server --port=8081            # SSE server\n", DefaultServerName)
		fmt.Fprintf(w, "\nEnvironment Variables:\n")
		fs.VisitAll(func(f *pflag.Flag) {
			fmt.Fprintf(w, "  %s_%s\n", EnvPrefix, strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")))
		})
	}
}

// versionRequested checks if version flag was requested
func versionRequested(args []string) bool {
	for _, arg := range args {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return true
		}
	}
	return false
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *Config) {
	cfg.Mode = v.GetString("mode")
	cfg.Host = v.GetString("host")
	cfg.Port = v.GetInt("port")
	cfg.PDFDirectory = v.GetString("dir")
	cfg.OutputDirectory = v.GetString("output-dir")
	cfg.LogLevel = v.GetString("log-level")
	cfg.MaxFileSize = v.GetInt64("max-file-size")
	cfg.OCR = v.GetBool("ocr")
	cfg.OCRLanguage = v.GetString("ocr-lang")
	cfg.Flatten = v.GetBool("flatten")
	cfg.DateFormat = v.GetString("date-format")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Port only matters in server mode
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}

	// Check if PDF directory exists, create if it doesn't
	if _, err := os.Stat(c.PDFDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.PDFDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create PDF directory %s: %w", c.PDFDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access PDF directory %s: %w", c.PDFDirectory, err)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if c.OCR && c.OCRLanguage == "" {
		return errors.New("OCR language cannot be empty when OCR is enabled")
	}

	switch strings.ToUpper(c.DateFormat) {
	case "DD.MM.YYYY", "YYYY-MM-DD":
	default:
		return fmt.Errorf("invalid date format: %s (must be DD.MM.YYYY or YYYY-MM-DD)", c.DateFormat)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, OutputDirectory: %s, "+
		"LogLevel: %s, MaxFileSize: %d, OCR: %t, OCRLanguage: %s, Flatten: %t, DateFormat: %s}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.OutputDirectory,
		c.LogLevel, c.MaxFileSize, c.OCR, c.OCRLanguage, c.Flatten, c.DateFormat)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
