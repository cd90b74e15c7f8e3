package fill

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// A4 portrait in points, lower left origin.
const (
	pageWidth    = 595.0
	pageHeight   = 842.0
	marginLeft   = 50.0
	marginTop    = 60.0
	bodyBottom   = 70.0
	footerY      = 30.0
	titleSize    = 18
	bodySize     = 11
	footerSize   = 8
	lineHeight   = 14.0
	blockSpacing = 8.0
	titleSpacing = 30.0
	// wrapColumns approximates the characters of Helvetica 11pt that fit
	// between the margins.
	wrapColumns = 85

	fontRegular = "Helvetica"
	fontBold    = "Helvetica-Bold"
)

// PDFRenderer renders summary documents with pdfcpu's JSON page description.
type PDFRenderer struct {
	conf *model.Configuration
}

// NewPDFRenderer creates a renderer with pdfcpu's default configuration.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{conf: model.NewDefaultConfiguration()}
}

// Render lays doc out on A4 pages and writes it to output.
func (r *PDFRenderer) Render(doc Document, output string) error {
	desc, err := json.Marshal(Layout(doc))
	if err != nil {
		return fmt.Errorf("failed to encode page description: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(output), ".render-*.pdf")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := api.Create(nil, bytes.NewReader(desc), tmp, r.conf); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to create PDF: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(tmp.Name(), output); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// PageDescription is the subset of pdfcpu's create JSON used here.
type PageDescription struct {
	Paper string                 `json:"paper"`
	Pages map[string]PageContent `json:"pages"`
}

// PageContent holds the text boxes of one page.
type PageContent struct {
	Content struct {
		Text []TextBox `json:"text"`
	} `json:"content"`
}

// TextBox is a single line of text.
type TextBox struct {
	Value string     `json:"value"`
	Pos   [2]float64 `json:"pos"`
	Font  Font       `json:"font"`
}

// Font selects a core font.
type Font struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// Layout places the title, the blocks and a numbered footer on as many pages
// as needed. A block's label and the first line of its value are kept on
// the same page.
func Layout(doc Document) PageDescription {
	var pages [][]TextBox
	var current []TextBox
	y := pageHeight - marginTop

	newPage := func() {
		pages = append(pages, current)
		current = nil
		y = pageHeight - marginTop
	}
	line := func(s, font string, size int) {
		current = append(current, TextBox{
			Value: s,
			Pos:   [2]float64{marginLeft, y},
			Font:  Font{Name: font, Size: size},
		})
		y -= lineHeight
	}

	for _, l := range wrap(doc.Title, wrapColumns*bodySize/titleSize) {
		line(l, fontBold, titleSize)
		y -= titleSize - lineHeight
	}
	y -= titleSpacing - lineHeight

	for _, b := range doc.Blocks {
		labelLines := wrap(b.Label, wrapColumns)
		valueLines := wrap(b.Value, wrapColumns)
		if y-float64(len(labelLines))*lineHeight-lineHeight < bodyBottom {
			newPage()
		}
		for _, l := range labelLines {
			line(l, fontBold, bodySize)
		}
		for _, l := range valueLines {
			if y < bodyBottom {
				newPage()
			}
			line(l, fontRegular, bodySize)
		}
		y -= blockSpacing
	}
	pages = append(pages, current)

	desc := PageDescription{Paper: "A4P", Pages: make(map[string]PageContent, len(pages))}
	for i, boxes := range pages {
		footer := fmt.Sprintf("Seite %d von %d", i+1, len(pages))
		if doc.Footer != "" {
			footer = doc.Footer + " | " + footer
		}
		boxes = append(boxes, TextBox{
			Value: footer,
			Pos:   [2]float64{marginLeft, footerY},
			Font:  Font{Name: fontRegular, Size: footerSize},
		})

		var page PageContent
		page.Content.Text = boxes
		desc.Pages[strconv.Itoa(i+1)] = page
	}
	return desc
}

// wrap breaks s into lines of at most width runes, splitting at spaces
// where possible. It always returns at least one line.
func wrap(s string, width int) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		var cur strings.Builder
		for _, word := range strings.Fields(para) {
			for utf8.RuneCountInString(word) > width {
				if cur.Len() > 0 {
					lines = append(lines, cur.String())
					cur.Reset()
				}
				r := []rune(word)
				lines = append(lines, string(r[:width]))
				word = string(r[width:])
			}
			if cur.Len() > 0 && utf8.RuneCountInString(cur.String())+1+utf8.RuneCountInString(word) > width {
				lines = append(lines, cur.String())
				cur.Reset()
			}
			if cur.Len() > 0 {
				cur.WriteByte(' ')
			}
			cur.WriteString(word)
		}
		if cur.Len() > 0 {
			lines = append(lines, cur.String())
		}
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
