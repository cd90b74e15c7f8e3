package pdfdoc

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-forms/internal/pdf/testpdf"
)

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open PDF file")
}

func TestRead_NotAPDF(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("plain text, no header")))
	require.Error(t, err)
}

func TestWidgets(t *testing.T) {
	data := testpdf.Build(
		testpdf.Page{
			Lines: []string{"Antrag"},
			Fields: []testpdf.Field{
				{Name: "name", Label: "  Voller Name ", Type: "Tx", Required: true},
				{Name: "ok", Type: "Btn"},
			},
		},
		testpdf.Page{},
		testpdf.Page{
			Fields: []testpdf.Field{{Name: "ort", Type: "Ch", Inherit: true}},
		},
	)

	ctx, err := Read(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 3, ctx.PageCount)

	var skipped []int
	widgets := Widgets(ctx, func(page int, err error) { skipped = append(skipped, page) })
	assert.Empty(t, skipped)
	require.Len(t, widgets, 3)

	assert.Equal(t, "name", widgets[0].Name)
	assert.Equal(t, 1, widgets[0].Page)
	assert.Equal(t, "Tx", FieldKind(ctx, widgets[0].Dict))
	assert.Equal(t, 2, Flags(ctx, widgets[0].Dict))
	assert.Equal(t, "Voller Name", StringEntry(ctx, widgets[0].Dict, "TU"))

	assert.Equal(t, "ok", widgets[1].Name)
	assert.Equal(t, "Btn", FieldKind(ctx, widgets[1].Dict))
	assert.Equal(t, 0, Flags(ctx, widgets[1].Dict))

	ort := widgets[2]
	assert.Equal(t, 3, ort.Page)
	assert.Equal(t, "Ch", FieldKind(ctx, ort.Dict))
	_, found := ort.Dict.Find("FT")
	assert.False(t, found, "type should only be reachable through the parent")
}

func TestInherited_Missing(t *testing.T) {
	ctx, err := Read(bytes.NewReader(testpdf.Build(testpdf.Page{
		Fields: []testpdf.Field{{Name: "a"}},
	})))
	require.NoError(t, err)

	widgets := Widgets(ctx, nil)
	require.Len(t, widgets, 1)

	_, ok := Inherited(ctx, widgets[0].Dict, "Opt")
	assert.False(t, ok)
	assert.Empty(t, StringEntry(ctx, widgets[0].Dict, "TU"))
}

func TestWidgets_NoForm(t *testing.T) {
	ctx, err := Read(bytes.NewReader(testpdf.Build(testpdf.Page{Lines: []string{"Nur Text"}})))
	require.NoError(t, err)
	assert.Empty(t, Widgets(ctx, nil))
}
