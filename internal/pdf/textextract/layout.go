package textextract

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	pdferrors "github.com/a3tai/mcp-pdf-forms/internal/pdf/errors"
)

const (
	// A gap wider than spaceFactor * font size separates words.
	spaceFactor = 0.2
	// A gap wider than cellFactor * font size separates table cells.
	cellFactor = 2.0
	// Font size assumed when the document reports none.
	defaultFontSize = 12.0
	minTableRows    = 2
)

// LayoutBackend rebuilds lines from positioned glyph runs.
type LayoutBackend struct{}

// NewLayoutBackend creates the row based backend.
func NewLayoutBackend() *LayoutBackend {
	return &LayoutBackend{}
}

func (*LayoutBackend) Name() string { return "layout" }

func (*LayoutBackend) Probe() error { return nil }

func (l *LayoutBackend) Extract(ctx context.Context, path string) (*Output, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, pdferrors.New(pdferrors.KindParse, l.Name(), err).WithFile(path)
	}
	defer f.Close()

	out := &Output{Pages: r.NumPage()}
	var pages []string
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		rows, err := pageRows(page)
		if err != nil {
			return nil, pdferrors.New(pdferrors.KindParse, l.Name(), fmt.Errorf("page %d: %w", pageNum, err)).WithFile(path)
		}

		lines, tables := layoutRows(rows)
		for _, t := range tables {
			out.Tables = append(out.Tables, Table{Page: pageNum, Rows: t})
		}
		if len(lines) > 0 {
			pages = append(pages, strings.Join(lines, "\n"))
		}
	}

	out.Text = strings.Join(pages, "\n\n")
	return out, nil
}

type glyph struct {
	x, w, size float64
	s          string
}

type textRow struct {
	y      float64
	glyphs []glyph
}

// pageRows converts the parser's rows. The parser panics on some malformed
// content streams.
func pageRows(p pdf.Page) (rows []textRow, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("row extraction panic: %v", r)
		}
	}()

	raw, err := p.GetTextByRow()
	if err != nil {
		return nil, err
	}

	for _, r := range raw {
		if r == nil || len(r.Content) == 0 {
			continue
		}
		row := textRow{y: float64(r.Position)}
		for _, t := range r.Content {
			row.glyphs = append(row.glyphs, glyph{x: t.X, w: t.W, size: t.FontSize, s: t.S})
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// layoutRows orders rows top to bottom and glyphs left to right, joining
// them into lines. Runs of rows that split into two or more cells are also
// returned as tables.
func layoutRows(rows []textRow) (lines []string, tables [][][]string) {
	sorted := make([]textRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].y > sorted[j].y
	})

	var current [][]string
	flush := func() {
		if len(current) >= minTableRows {
			tables = append(tables, current)
		}
		current = nil
	}

	for _, row := range sorted {
		cells := rowCells(row.glyphs)
		if len(cells) == 0 {
			flush()
			continue
		}

		lines = append(lines, strings.Join(cells, " "))
		if len(cells) >= 2 {
			current = append(current, cells)
		} else {
			flush()
		}
	}
	flush()

	return lines, tables
}

func rowCells(glyphs []glyph) []string {
	sorted := make([]glyph, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].x < sorted[j].x
	})

	var cells []string
	var cell strings.Builder
	end := 0.0
	for i, g := range sorted {
		size := g.size
		if size <= 0 {
			size = defaultFontSize
		}

		if i > 0 {
			gap := g.x - end
			switch {
			case gap > cellFactor*size:
				if s := strings.TrimSpace(cell.String()); s != "" {
					cells = append(cells, s)
				}
				cell.Reset()
			case gap > spaceFactor*size && !strings.HasSuffix(cell.String(), " ") && !strings.HasPrefix(g.s, " "):
				cell.WriteByte(' ')
			}
		}

		cell.WriteString(g.s)
		if e := g.x + g.w; e > end || i == 0 {
			end = e
		}
	}
	if s := strings.TrimSpace(cell.String()); s != "" {
		cells = append(cells, s)
	}
	return cells
}
