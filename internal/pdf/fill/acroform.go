package fill

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"go.uber.org/zap"
	xunicode "golang.org/x/text/encoding/unicode"

	"github.com/a3tai/mcp-pdf-forms/internal/pdf/normalize"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/pdfdoc"
)

const (
	// flagReadOnly is bit 1 of /Ff, PDF 32000-1 table 221.
	flagReadOnly    = 1
	defaultOnState  = "Yes"
	offState        = "Off"
	buttonFieldKind = "Btn"
)

var truthyValues = map[string]bool{
	"true":    true,
	"yes":     true,
	"ja":      true,
	"on":      true,
	"x":       true,
	"1":       true,
	"checked": true,
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`, "\r", `\r`, "\n", `\n`)

// fillAcroForm sets the values of all matching fields and writes the
// document. It returns the number of mappings applied; nothing is written
// when that number is zero.
func (e *Engine) fillAcroForm(req Request) (filled int, err error) {
	defer func() {
		if r := recover(); r != nil {
			filled, err = 0, fmt.Errorf("acroform fill panicked: %v", r)
		}
	}()

	pctx, err := pdfdoc.Open(req.Source)
	if err != nil {
		return 0, err
	}

	byID := make(map[string][]pdfdoc.Widget)
	for _, w := range pdfdoc.Widgets(pctx, func(page int, err error) {
		e.logger.Debug("skipping page annotations", zap.Int("page", page), zap.Error(err))
	}) {
		byID[w.Name] = append(byID[w.Name], w)
	}
	if len(byID) == 0 {
		return 0, nil
	}

	for _, m := range req.Mappings {
		if m.Value == nil {
			continue
		}
		widgets, ok := byID[m.FieldID]
		if !ok {
			e.logger.Debug("no form field for mapping", zap.String("field_id", m.FieldID))
			continue
		}
		for _, w := range widgets {
			if err := setValue(pctx, w.Dict, m.Value); err != nil {
				return 0, fmt.Errorf("field %q: %w", m.FieldID, err)
			}
			if req.Flatten {
				w.Dict["Ff"] = types.Integer(pdfdoc.Flags(pctx, w.Dict) | flagReadOnly)
			}
		}
		filled++
	}
	if filled == 0 {
		return 0, nil
	}

	if err := needAppearances(pctx); err != nil {
		return 0, err
	}
	if err := writeContext(pctx, req.Output); err != nil {
		return 0, err
	}
	return filled, nil
}

func setValue(pctx *model.Context, dict types.Dict, value any) error {
	b, isBool := value.(bool)
	if isBool || pdfdoc.FieldKind(pctx, dict) == buttonFieldKind {
		on := onState(pctx, dict)
		if !isBool {
			b = truthy(normalize.Stringify(value), on)
		}
		state := types.Name(offState)
		if b {
			state = types.Name(on)
		}
		dict["V"] = state
		dict["AS"] = state
		return nil
	}

	v, err := textValue(normalize.Stringify(value))
	if err != nil {
		return err
	}
	dict["V"] = v
	delete(dict, "AP")
	return nil
}

// onState returns the first appearance state of /AP /N other than Off.
func onState(pctx *model.Context, dict types.Dict) string {
	apObj, found := dict.Find("AP")
	if !found {
		return defaultOnState
	}
	ap, err := pctx.DereferenceDict(apObj)
	if err != nil || ap == nil {
		return defaultOnState
	}
	nObj, found := ap.Find("N")
	if !found {
		return defaultOnState
	}
	normal, err := pctx.DereferenceDict(nObj)
	if err != nil || normal == nil {
		return defaultOnState
	}

	states := make([]string, 0, len(normal))
	for k := range normal {
		if k != offState {
			states = append(states, k)
		}
	}
	if len(states) == 0 {
		return defaultOnState
	}
	sort.Strings(states)
	return states[0]
}

func truthy(s, on string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return truthyValues[s] || s == strings.ToLower(on)
}

// textValue encodes s as a PDF text string: a literal for ASCII, UTF-16BE
// with byte order mark otherwise.
func textValue(s string) (types.Object, error) {
	if isASCII(s) {
		return types.StringLiteral(literalEscaper.Replace(s)), nil
	}
	enc := xunicode.UTF16(xunicode.BigEndian, xunicode.UseBOM).NewEncoder()
	b, err := enc.Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("failed to encode field value: %w", err)
	}
	return types.NewHexLiteral(b), nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func needAppearances(pctx *model.Context) error {
	obj, found := pctx.RootDict.Find("AcroForm")
	if !found {
		return nil
	}
	acro, err := pctx.DereferenceDict(obj)
	if err != nil {
		return fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	if acro != nil {
		acro["NeedAppearances"] = types.Boolean(true)
	}
	return nil
}

// writeContext writes pctx next to output and renames it into place.
func writeContext(pctx *model.Context, output string) error {
	tmp, err := os.CreateTemp(filepath.Dir(output), ".fill-*.pdf")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := api.WriteContext(pctx, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(tmp.Name(), output); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}
