// Package pdfdoc holds the pdfcpu plumbing shared by field discovery and
// form filling: opening documents and walking widget annotations.
package pdfdoc

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// maxParentDepth bounds /Parent chains in malformed documents.
const maxParentDepth = 32

// Open parses the document at path in relaxed validation mode.
func Open(path string) (*model.Context, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses a document from rs in relaxed validation mode.
func Read(rs io.ReadSeeker) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(rs, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}
	return ctx, nil
}

// Widget is a page annotation carrying a field name.
type Widget struct {
	Name string
	Page int
	// Dict is the annotation dictionary as stored in the document; changes
	// to it are written back with the context.
	Dict types.Dict
}

// Widgets returns every annotation with a /T entry, in page and annotation
// order. Pages whose annotations cannot be read are reported through skip
// and ignored.
func Widgets(ctx *model.Context, skip func(page int, err error)) []Widget {
	var widgets []Widget
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		annots, err := pageAnnotations(ctx, pageNr)
		if err != nil {
			if skip != nil {
				skip(pageNr, err)
			}
			continue
		}
		for _, annot := range annots {
			name := StringEntry(ctx, annot, "T")
			if name == "" {
				continue
			}
			widgets = append(widgets, Widget{Name: name, Page: pageNr, Dict: annot})
		}
	}
	return widgets
}

func pageAnnotations(ctx *model.Context, pageNr int) ([]types.Dict, error) {
	pageDict, _, _, err := ctx.PageDict(pageNr, false)
	if err != nil {
		return nil, err
	}
	if pageDict == nil {
		return nil, nil
	}

	annotsObj, found := pageDict.Find("Annots")
	if !found {
		return nil, nil
	}
	arr, err := ctx.DereferenceArray(annotsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference Annots: %w", err)
	}

	dicts := make([]types.Dict, 0, len(arr))
	for _, obj := range arr {
		dict, err := ctx.DereferenceDict(obj)
		if err != nil || dict == nil {
			continue
		}
		dicts = append(dicts, dict)
	}
	return dicts, nil
}

// Inherited looks key up on dict and then along its /Parent chain.
func Inherited(ctx *model.Context, dict types.Dict, key string) (types.Object, bool) {
	for depth := 0; dict != nil && depth < maxParentDepth; depth++ {
		if obj, found := dict.Find(key); found && obj != nil {
			return obj, true
		}
		parentObj, found := dict.Find("Parent")
		if !found {
			break
		}
		parent, err := ctx.DereferenceDict(parentObj)
		if err != nil {
			break
		}
		dict = parent
	}
	return nil, false
}

// FieldKind returns the inherited /FT name, or "" when there is none.
func FieldKind(ctx *model.Context, dict types.Dict) string {
	obj, ok := Inherited(ctx, dict, "FT")
	if !ok {
		return ""
	}
	name, err := ctx.DereferenceName(obj, model.V10, nil)
	if err != nil {
		return ""
	}
	return string(name)
}

// Flags returns the inherited /Ff value.
func Flags(ctx *model.Context, dict types.Dict) int {
	obj, ok := Inherited(ctx, dict, "Ff")
	if !ok {
		return 0
	}
	flags, err := ctx.DereferenceInteger(obj)
	if err != nil || flags == nil {
		return 0
	}
	return int(*flags)
}

// StringEntry decodes a text string entry, trimmed.
func StringEntry(ctx *model.Context, dict types.Dict, key string) string {
	obj, found := dict.Find(key)
	if !found {
		return ""
	}
	s, err := ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
