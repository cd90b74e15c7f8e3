package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-pdf-forms/internal/logging"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/extraction"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/normalize"
)

const (
	formatText = "text"
	formatJSON = "json"
)

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "extract":
		err = runExtract(args[1:], stdout, stderr)
	case "fill":
		err = runFill(args[1:], stdin, stdout, stderr)
	case "normalize":
		err = runNormalize(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", args[0])
		printUsage(stderr)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, pflag.ErrHelp):
		return 2
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "PDF Extract Forms - discover, fill and normalize PDF form fields")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  pdf_extract_forms extract [OPTIONS] <pdf_file>")
	fmt.Fprintln(w, "  pdf_extract_forms fill --mappings <file|-> [OPTIONS] <pdf_file>")
	fmt.Fprintln(w, "  pdf_extract_forms normalize --type <field_type> <value>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "EXAMPLES:")
	fmt.Fprintln(w, "  pdf_extract_forms extract antrag.pdf")
	fmt.Fprintln(w, "  pdf_extract_forms extract --ocr --format json scan.pdf")
	fmt.Fprintln(w, "  pdf_extract_forms fill --mappings values.json --output out/antrag.pdf antrag.pdf")
	fmt.Fprintln(w, "  pdf_extract_forms normalize --type iban DE89370400440532013000")
}

// commonFlags are shared by every subcommand
type commonFlags struct {
	format     string
	verbose    bool
	dateFormat string
}

func newFlagSet(name string, stderr io.Writer, c *commonFlags) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&c.format, "format", formatText, "Output format: text, json")
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "Log pipeline decisions to stderr")
	fs.StringVar(&c.dateFormat, "date-format", "DD.MM.YYYY", "Date output format: DD.MM.YYYY or YYYY-MM-DD")
	return fs
}

func (c *commonFlags) validate() error {
	if c.format != formatText && c.format != formatJSON {
		return fmt.Errorf("unsupported output format: %s", c.format)
	}
	return nil
}

func (c *commonFlags) logger() (*zap.Logger, error) {
	level := "error"
	if c.verbose {
		level = "debug"
	}
	return logging.New(level)
}

// newService builds a service rooted at the directory of the input file so
// that any readable PDF can be processed.
func newService(c *commonFlags, input, output string, ocr, flatten bool, logger *zap.Logger) (*pdf.Service, error) {
	inputDir := filepath.Dir(input)
	outputDir := inputDir
	if output != "" {
		outputDir = filepath.Dir(output)
	}

	return pdf.NewService(pdf.Options{
		MaxFileSize:     1 << 30,
		Directory:       inputDir,
		OutputDirectory: outputDir,
		OCR:             ocr,
		OCRLanguage:     "deu",
		Flatten:         flatten,
		DateFormat:      normalize.ParseDateFormat(c.dateFormat),
		Logger:          logger,
	})
}

func inputPath(fs *pflag.FlagSet, stderr io.Writer) (string, error) {
	if fs.NArg() != 1 {
		fmt.Fprintf(stderr, "Error: exactly one PDF file path required\n\n")
		fs.Usage()
		return "", errUsage
	}
	path, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("file not found: %s", fs.Arg(0))
	}
	return path, nil
}

func runExtract(args []string, stdout, stderr io.Writer) error {
	var c commonFlags
	fs := newFlagSet("extract", stderr, &c)
	formID := fs.String("form-id", "", "Form id (generated when empty)")
	ocr := fs.Bool("ocr", false, "Fall back to OCR when the document has no text layer")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}
	path, err := inputPath(fs, stderr)
	if err != nil {
		return err
	}

	logger, err := c.logger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	svc, err := newService(&c, path, "", *ocr, false, logger)
	if err != nil {
		return err
	}

	schema, err := svc.ExtractSchema(context.Background(), pdf.ExtractRequest{Path: path, FormID: *formID})
	if err != nil {
		return err
	}

	if c.format == formatJSON {
		return outputJSON(stdout, schema)
	}
	outputSchema(stdout, schema)
	return nil
}

func runFill(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var c commonFlags
	fs := newFlagSet("fill", stderr, &c)
	mappingsPath := fs.StringP("mappings", "m", "", "JSON file with field mappings, - for stdin")
	output := fs.StringP("output", "o", "", "Output file (default filled_<form_id>.pdf next to the input)")
	title := fs.String("title", "", "Title of the summary document for forms without fields")
	ocr := fs.Bool("ocr", false, "Fall back to OCR when the document has no text layer")
	flatten := fs.Bool("flatten", false, "Mark filled fields read-only")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}
	if *mappingsPath == "" {
		fmt.Fprintf(stderr, "Error: --mappings is required\n\n")
		fs.Usage()
		return errUsage
	}
	path, err := inputPath(fs, stderr)
	if err != nil {
		return err
	}

	var outPath string
	if *output != "" {
		if outPath, err = filepath.Abs(*output); err != nil {
			return fmt.Errorf("failed to get absolute output path: %w", err)
		}
	}

	data, err := readMappings(*mappingsPath, stdin)
	if err != nil {
		return err
	}

	logger, err := c.logger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	svc, err := newService(&c, path, outPath, *ocr, *flatten, logger)
	if err != nil {
		return err
	}
	mappings, err := svc.DecodeMappings(data)
	if err != nil {
		return err
	}

	result, err := svc.ExtractAndFill(context.Background(), pdf.ExtractAndFillRequest{
		Path:     path,
		Mappings: mappings,
		Output:   outPath,
		Title:    *title,
	})
	if err != nil {
		return err
	}

	if c.format == formatJSON {
		return outputJSON(stdout, result)
	}
	fmt.Fprintf(stdout, "Filled %d field(s) using %s method\n", result.Fill.FilledCount, result.Fill.Method)
	fmt.Fprintf(stdout, "Output: %s\n", result.Fill.OutputPath)
	return nil
}

func runNormalize(args []string, stdout, stderr io.Writer) error {
	var c commonFlags
	fs := newFlagSet("normalize", stderr, &c)
	fieldType := fs.StringP("type", "t", "string", "Field type")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(stderr, "Error: exactly one value required\n\n")
		fs.Usage()
		return errUsage
	}

	n := normalize.New(normalize.WithDateFormat(normalize.ParseDateFormat(c.dateFormat)))
	ft := normalize.ParseFieldType(*fieldType)
	res := n.Normalize(fs.Arg(0), ft)

	result := pdf.NormalizeResult{
		Original:   fs.Arg(0),
		Normalized: res.Ptr(),
		FieldType:  ft.String(),
		Outcome:    res.Outcome.String(),
		Reason:     res.Reason,
		IsValid:    res.Outcome != normalize.Absent && normalize.Validate(res.Value, ft),
	}

	if c.format == formatJSON {
		return outputJSON(stdout, result)
	}
	if result.Normalized == nil {
		fmt.Fprintln(stdout, "(empty)")
		return nil
	}
	fmt.Fprintln(stdout, *result.Normalized)
	if res.Outcome == normalize.PassedThrough {
		fmt.Fprintf(stderr, "Warning: passed through unchanged: %s\n", res.Reason)
	}
	return nil
}

func readMappings(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read mappings from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mappings: %w", err)
	}
	return data, nil
}

func outputJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func outputSchema(w io.Writer, schema *extraction.Schema) {
	if len(schema.Fields) == 0 {
		fmt.Fprintln(w, "No form fields detected in the PDF")
		return
	}

	fmt.Fprintf(w, "%s (%s)\n", schema.Title, schema.FormID)
	fmt.Fprintf(w, "Extracted %d form fields via %s, AcroForm: %t\n\n",
		len(schema.Fields), schema.Stats.ExtractionMethod, schema.Source.HasAcroForm)

	for i, field := range schema.Fields {
		fmt.Fprintf(w, "[%d] %s\n", i+1, field.ID)
		fmt.Fprintf(w, "    Label: %s\n", field.Label)
		fmt.Fprintf(w, "    Type: %s\n", field.Type)

		if field.Value != nil {
			fmt.Fprintf(w, "    Value: %s\n", *field.Value)
		}
		if field.Page > 0 {
			fmt.Fprintf(w, "    Page: %d\n", field.Page)
		}
		if field.Required {
			fmt.Fprintln(w, "    Properties: [Required]")
		}
		if len(field.Options) > 0 {
			fmt.Fprintf(w, "    Options: %v\n", field.Options)
		}
		if field.Confidence != nil {
			fmt.Fprintf(w, "    Confidence: %.2f\n", *field.Confidence)
		}

		fmt.Fprintln(w)
	}
}
