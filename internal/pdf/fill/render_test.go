package fill

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-forms/internal/pdf/pdfdoc"
)

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{""}, wrap("", 10))
	assert.Equal(t, []string{"kurz"}, wrap("kurz", 10))
	assert.Equal(t, []string{"eins zwei", "drei"}, wrap("eins zwei drei", 10))
	assert.Equal(t, []string{"abcde", "fghij", "k"}, wrap("abcdefghijk", 5))
	assert.Equal(t, []string{"zeile eins", "zeile zwei"}, wrap("zeile eins\nzeile zwei", 20))
	assert.Equal(t, []string{"äöü", "ß"}, wrap("äöüß", 3))
}

func TestLayout_SinglePage(t *testing.T) {
	desc := Layout(Document{
		Title:  "Antrag",
		Blocks: []Block{{"Name", "Max"}, {"Ort", "Berlin"}},
		Footer: "Erstellt am 01.01.2024",
	})

	assert.Equal(t, "A4P", desc.Paper)
	require.Len(t, desc.Pages, 1)

	boxes := desc.Pages["1"].Content.Text
	require.Len(t, boxes, 6)
	assert.Equal(t, "Antrag", boxes[0].Value)
	assert.Equal(t, fontBold, boxes[0].Font.Name)
	assert.Equal(t, "Name", boxes[1].Value)
	assert.Equal(t, "Max", boxes[2].Value)
	assert.Equal(t, fontRegular, boxes[2].Font.Name)
	assert.Greater(t, boxes[1].Pos[1], boxes[2].Pos[1])
	assert.Equal(t, "Erstellt am 01.01.2024 | Seite 1 von 1", boxes[5].Value)
}

func TestLayout_Paginates(t *testing.T) {
	var blocks []Block
	for i := 0; i < 60; i++ {
		blocks = append(blocks, Block{Label: fmt.Sprintf("Feld %d", i), Value: strings.Repeat("wert ", 10)})
	}

	desc := Layout(Document{Title: "Lang", Blocks: blocks})
	require.Greater(t, len(desc.Pages), 1)

	for i := 1; i <= len(desc.Pages); i++ {
		boxes := desc.Pages[fmt.Sprint(i)].Content.Text
		require.NotEmpty(t, boxes)
		footer := boxes[len(boxes)-1]
		assert.Equal(t, fmt.Sprintf("Seite %d von %d", i, len(desc.Pages)), footer.Value)
		for _, b := range boxes[:len(boxes)-1] {
			assert.GreaterOrEqual(t, b.Pos[1], bodyBottom-lineHeight, "page %d: %q", i, b.Value)
		}
	}
}

func TestPDFRenderer_Render(t *testing.T) {
	output := filepath.Join(t.TempDir(), "summary.pdf")

	err := NewPDFRenderer().Render(Document{
		Title:  "Antrag Kindergeld",
		Blocks: []Block{{"Name", "Max Mustermann"}, {"Ort", EmptyValue}},
		Footer: "Erstellt am 01.01.2024",
	}, output)
	require.NoError(t, err)

	pctx, err := pdfdoc.Open(output)
	require.NoError(t, err)
	assert.Equal(t, 1, pctx.PageCount)
}
