// Package testpdf writes small, valid PDF documents for tests: text lines
// set in Courier and optional AcroForm widgets.
package testpdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Field is a merged field/widget annotation placed on a page.
type Field struct {
	Name     string
	Label    string // /TU
	Type     string // Tx, Btn, Ch, Sig
	Value    string // /V; a name for Btn fields
	OnState  string // Btn appearance on-state, default "Yes"
	Required bool
	Options  []string // /Opt for Ch fields
	// Inherit places /FT and /Ff on a separate parent field.
	Inherit bool
}

// Text is a string drawn at an absolute position.
type Text struct {
	X, Y float64
	S    string
}

// Page describes one page. Lines are stacked from the top margin; Texts are
// positioned explicitly.
type Page struct {
	Lines  []string
	Texts  []Text
	Fields []Field
}

const (
	pageHeight = 842.0
	fontSize   = 11.0
	leading    = 16.0
	courierW   = 600
)

type builder struct {
	objs [][]byte
}

func (b *builder) reserve() int {
	b.objs = append(b.objs, nil)
	return len(b.objs)
}

func (b *builder) set(n int, body string) {
	b.objs[n-1] = []byte(body)
}

func (b *builder) add(body string) int {
	n := b.reserve()
	b.set(n, body)
	return n
}

func (b *builder) stream(dict, data string) int {
	return b.add(fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data))
}

// Build renders pages into a complete PDF file.
func Build(pages ...Page) []byte {
	if len(pages) == 0 {
		pages = []Page{{}}
	}

	b := &builder{}
	catalog := b.reserve()
	pagesObj := b.reserve()

	widths := strings.TrimSpace(strings.Repeat(fmt.Sprintf("%d ", courierW), 224))
	font := b.add("<< /Type /Font /Subtype /Type1 /BaseFont /Courier /Encoding /WinAnsiEncoding " +
		"/FirstChar 32 /LastChar 255 /Widths [" + widths + "] >>")

	var kids, fields []string
	for _, p := range pages {
		pageObj := b.reserve()
		content := b.stream("", contentStream(p))

		var annots []string
		for _, f := range p.Fields {
			widget, top := b.field(f, pageObj)
			annots = append(annots, ref(widget))
			fields = append(fields, ref(top))
		}

		dict := fmt.Sprintf("<< /Type /Page /Parent %s /MediaBox [0 0 595 %.0f] "+
			"/Resources << /Font << /F1 %s >> >> /Contents %s",
			ref(pagesObj), pageHeight, ref(font), ref(content))
		if len(annots) > 0 {
			dict += " /Annots [" + strings.Join(annots, " ") + "]"
		}
		b.set(pageObj, dict+" >>")
		kids = append(kids, ref(pageObj))
	}

	b.set(pagesObj, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids)))

	cat := fmt.Sprintf("<< /Type /Catalog /Pages %s", ref(pagesObj))
	if len(fields) > 0 {
		acro := b.add(fmt.Sprintf("<< /Fields [%s] /DA (/Helv 0 Tf 0 g) >>", strings.Join(fields, " ")))
		cat += " /AcroForm " + ref(acro)
	}
	b.set(catalog, cat+" >>")

	return b.serialize(catalog)
}

// field adds the widget (and its parent when inheriting) and returns the
// widget object and the object listed in /Fields.
func (b *builder) field(f Field, pageObj int) (widget, top int) {
	ft := f.Type
	if ft == "" {
		ft = "Tx"
	}
	flags := 0
	if f.Required {
		flags |= 2
	}

	typeEntries := fmt.Sprintf("/FT /%s /Ff %d", ft, flags)
	var parent int
	if f.Inherit {
		parent = b.add(fmt.Sprintf("<< %s /T (group) >>", typeEntries))
		typeEntries = "/Parent " + ref(parent)
	}

	dict := fmt.Sprintf("<< /Type /Annot /Subtype /Widget /Rect [50 50 250 70] /P %s %s /T %s",
		ref(pageObj), typeEntries, literal(f.Name))
	if f.Label != "" {
		dict += " /TU " + literal(f.Label)
	}

	switch ft {
	case "Btn":
		on := f.OnState
		if on == "" {
			on = "Yes"
		}
		onAP := b.stream("/Type /XObject /Subtype /Form /BBox [0 0 20 20]", "0 0 20 20 re f")
		offAP := b.stream("/Type /XObject /Subtype /Form /BBox [0 0 20 20]", "")
		dict += fmt.Sprintf(" /AP << /N << /%s %s /Off %s >> >>", on, ref(onAP), ref(offAP))
		state := "Off"
		if f.Value != "" {
			state = f.Value
		}
		dict += fmt.Sprintf(" /V /%s /AS /%s", state, state)
	case "Ch":
		if len(f.Options) > 0 {
			opts := make([]string, len(f.Options))
			for i, o := range f.Options {
				opts[i] = literal(o)
			}
			dict += " /Opt [" + strings.Join(opts, " ") + "]"
		}
		if f.Value != "" {
			dict += " /V " + literal(f.Value)
		}
	default:
		if f.Value != "" {
			dict += " /V " + literal(f.Value)
		}
	}

	widget = b.add(dict + " >>")
	if parent != 0 {
		return widget, parent
	}
	return widget, widget
}

func (b *builder) serialize(root int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(b.objs))
	for i, body := range b.objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(b.objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %s >>\nstartxref\n%d\n%%%%EOF\n", len(b.objs)+1, ref(root), xref)
	return buf.Bytes()
}

func contentStream(p Page) string {
	var sb strings.Builder
	sb.WriteString("BT\n")
	fmt.Fprintf(&sb, "/F1 %.0f Tf\n", fontSize)
	y := pageHeight - 60
	for _, line := range p.Lines {
		fmt.Fprintf(&sb, "1 0 0 1 50 %.0f Tm\n%s Tj\n", y, literal(line))
		y -= leading
	}
	for _, t := range p.Texts {
		fmt.Fprintf(&sb, "1 0 0 1 %.0f %.0f Tm\n%s Tj\n", t.X, t.Y, literal(t.S))
	}
	sb.WriteString("ET")
	return sb.String()
}

func ref(n int) string {
	return fmt.Sprintf("%d 0 R", n)
}

// literal encodes s as a PDF string in WinAnsi, escaping delimiters.
// Characters outside Latin-1 are replaced with '?'.
func literal(s string) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, r := range s {
		switch {
		case r == '(' || r == ')' || r == '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r < 0x80:
			sb.WriteRune(r)
		case r <= 0xFF:
			fmt.Fprintf(&sb, "\\%03o", r)
		default:
			sb.WriteByte('?')
		}
	}
	sb.WriteByte(')')
	return sb.String()
}

// Write builds the document and stores it as name inside dir.
func Write(t testing.TB, dir, name string, pages ...Page) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(pages...), 0o600); err != nil {
		t.Fatalf("write test pdf: %v", err)
	}
	return path
}
