package extraction

import (
	"context"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-pdf-forms/internal/pdf/normalize"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/pdfdoc"
)

// flagRequired is bit 2 of /Ff, PDF 32000-1 table 221.
const flagRequired = 1 << 1

// NativeDiscoverer reads fields from the widget annotations of a document's
// interactive form.
type NativeDiscoverer struct {
	logger *zap.Logger
}

// NewNativeDiscoverer creates a discoverer backed by pdfcpu.
func NewNativeDiscoverer(logger *zap.Logger) *NativeDiscoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NativeDiscoverer{logger: logger}
}

// Discover returns one field per page annotation that carries a /T entry, in
// page and annotation order.
func (d *NativeDiscoverer) Discover(ctx context.Context, path string) ([]Field, error) {
	pctx, err := pdfdoc.Open(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	widgets := pdfdoc.Widgets(pctx, func(page int, err error) {
		d.logger.Warn("skipping page annotations",
			zap.Int("page", page),
			zap.Error(err))
	})

	fields := make([]Field, 0, len(widgets))
	for _, w := range widgets {
		fields = append(fields, fieldFromWidget(pctx, w))
	}

	d.logger.Debug("native fields discovered", zap.Int("count", len(fields)))
	return fields, nil
}

func fieldFromWidget(pctx *model.Context, w pdfdoc.Widget) Field {
	field := Field{
		ID:       w.Name,
		Label:    w.Name,
		Type:     fieldTypeFor(pdfdoc.FieldKind(pctx, w.Dict)),
		Required: pdfdoc.Flags(pctx, w.Dict)&flagRequired != 0,
		Page:     w.Page,
	}
	if tu := pdfdoc.StringEntry(pctx, w.Dict, "TU"); tu != "" {
		field.Label = tu
	}

	if obj, ok := pdfdoc.Inherited(pctx, w.Dict, "V"); ok {
		if v, ok := fieldValue(pctx, obj); ok {
			field.Value = &v
		}
	}

	if field.Type == normalize.TypeSelect {
		field.Options = fieldOptions(pctx, w.Dict)
	}
	return field
}

// fieldTypeFor maps an /FT name onto the closed type set.
func fieldTypeFor(ft string) normalize.FieldType {
	switch ft {
	case "Tx":
		return normalize.TypeString
	case "Btn":
		return normalize.TypeCheckbox
	case "Ch":
		return normalize.TypeSelect
	case "Sig":
		return normalize.TypeSignature
	default:
		return normalize.TypeString
	}
}

// fieldValue decodes /V: names for buttons, strings for text and choice
// fields, and comma separated entries for multi-select arrays.
func fieldValue(pctx *model.Context, obj types.Object) (string, bool) {
	obj, err := pctx.Dereference(obj)
	if err != nil || obj == nil {
		return "", false
	}

	switch v := obj.(type) {
	case types.Name:
		return string(v), true
	case types.StringLiteral, types.HexLiteral:
		s, err := pctx.DereferenceStringOrHexLiteral(v, model.V10, nil)
		if err != nil {
			return "", false
		}
		return s, true
	case types.Array:
		var values []string
		for _, item := range v {
			if s, ok := fieldValue(pctx, item); ok {
				values = append(values, s)
			}
		}
		if len(values) == 0 {
			return "", false
		}
		return strings.Join(values, ", "), true
	default:
		return "", false
	}
}

// fieldOptions lists the display values of a choice field's /Opt entry.
func fieldOptions(pctx *model.Context, dict types.Dict) []string {
	obj, ok := pdfdoc.Inherited(pctx, dict, "Opt")
	if !ok {
		return nil
	}
	arr, err := pctx.DereferenceArray(obj)
	if err != nil {
		return nil
	}

	var options []string
	for _, opt := range arr {
		if s, err := pctx.DereferenceStringOrHexLiteral(opt, model.V10, nil); err == nil {
			options = append(options, s)
		} else if pair, err := pctx.DereferenceArray(opt); err == nil && len(pair) >= 2 {
			if display, err := pctx.DereferenceStringOrHexLiteral(pair[1], model.V10, nil); err == nil {
				options = append(options, display)
			}
		}
	}
	return options
}
