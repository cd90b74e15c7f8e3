package textextract

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
)

// A TJ adjustment below this (in thousandths of an em) reads as a word gap.
const tjSpaceThreshold = -200

type operand struct {
	str   *string
	num   *float64
	array []operand
}

// contentText returns the text shown by a decoded page content stream.
// Positioning operators that move to a new line start a new line; glyph
// positions are otherwise ignored.
func contentText(data []byte) string {
	s := &streamScanner{data: data}
	var text strings.Builder
	var stack []operand
	var array []operand
	inArray := false
	lastY := 0.0
	haveY := false

	newline := func() {
		if text.Len() > 0 && !strings.HasSuffix(text.String(), "\n") {
			text.WriteByte('\n')
		}
	}
	space := func() {
		str := text.String()
		if len(str) > 0 && !strings.HasSuffix(str, " ") && !strings.HasSuffix(str, "\n") {
			text.WriteByte(' ')
		}
	}
	push := func(op operand) {
		if inArray {
			array = append(array, op)
		} else {
			stack = append(stack, op)
		}
	}

	for {
		tok, kind := s.next()
		if kind == tokEOF {
			break
		}

		switch kind {
		case tokString:
			v := tok
			push(operand{str: &v})
		case tokNumber:
			f, _ := strconv.ParseFloat(tok, 64)
			push(operand{num: &f})
		case tokArrayStart:
			inArray, array = true, nil
		case tokArrayEnd:
			inArray = false
			stack = append(stack, operand{array: array})
		case tokName:
			push(operand{})
		case tokOperator:
			switch tok {
			case "Tj":
				writeStrings(&text, stack)
			case "'":
				newline()
				writeStrings(&text, stack)
			case "\"":
				newline()
				if len(stack) > 0 {
					writeStrings(&text, stack[len(stack)-1:])
				}
			case "TJ":
				if len(stack) > 0 {
					for _, el := range stack[len(stack)-1].array {
						switch {
						case el.str != nil:
							text.WriteString(*el.str)
						case el.num != nil && *el.num < tjSpaceThreshold:
							space()
						}
					}
				}
			case "Td", "TD":
				if len(stack) >= 2 && stack[len(stack)-1].num != nil && *stack[len(stack)-1].num != 0 {
					newline()
				} else {
					space()
				}
			case "Tm":
				if len(stack) >= 6 && stack[5].num != nil {
					y := *stack[5].num
					if haveY && y == lastY {
						space()
					} else {
						newline()
					}
					lastY, haveY = y, true
				} else {
					newline()
				}
			case "T*", "ET":
				newline()
			case "ID":
				s.skipInlineImage()
			}
			stack = stack[:0]
		}
	}

	return tidyLines(text.String())
}

func writeStrings(text *strings.Builder, ops []operand) {
	for _, op := range ops {
		if op.str != nil {
			text.WriteString(*op.str)
		}
	}
}

func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokString
	tokNumber
	tokName
	tokArrayStart
	tokArrayEnd
	tokOperator
)

type streamScanner struct {
	data []byte
	pos  int
}

func isWhite(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func (s *streamScanner) next() (string, tokenKind) {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case isWhite(c):
			s.pos++
		case c == '%':
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
		case c == '(':
			s.pos++
			return decodeString(s.literal()), tokString
		case c == '<':
			if s.pos+1 < len(s.data) && s.data[s.pos+1] == '<' {
				s.pos += 2
				continue
			}
			s.pos++
			return decodeString(s.hexString()), tokString
		case c == '>':
			s.pos++
		case c == '[':
			s.pos++
			return "[", tokArrayStart
		case c == ']':
			s.pos++
			return "]", tokArrayEnd
		case c == '{' || c == '}' || c == ')':
			s.pos++
		case c == '/':
			s.pos++
			return s.regular(), tokName
		default:
			tok := s.regular()
			if tok == "" {
				s.pos++
				continue
			}
			if _, err := strconv.ParseFloat(tok, 64); err == nil {
				return tok, tokNumber
			}
			return tok, tokOperator
		}
	}
	return "", tokEOF
}

func (s *streamScanner) regular() string {
	start := s.pos
	for s.pos < len(s.data) && !isWhite(s.data[s.pos]) && !isDelim(s.data[s.pos]) {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

// literal reads a parenthesised string; the opening paren is consumed.
func (s *streamScanner) literal() []byte {
	var out []byte
	depth := 1
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '\\':
			if s.pos >= len(s.data) {
				return out
			}
			e := s.data[s.pos]
			s.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if s.pos < len(s.data) && s.data[s.pos] == '\n' {
					s.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && s.pos < len(s.data) && s.data[s.pos] >= '0' && s.data[s.pos] <= '7'; k++ {
						v = v*8 + int(s.data[s.pos]-'0')
						s.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

// hexString reads a <...> string; the opening bracket is consumed.
func (s *streamScanner) hexString() []byte {
	var digits []byte
	for s.pos < len(s.data) && s.data[s.pos] != '>' {
		if c := s.data[s.pos]; !isWhite(c) {
			digits = append(digits, c)
		}
		s.pos++
	}
	s.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out, err := hex.DecodeString(string(digits))
	if err != nil {
		return nil
	}
	return out
}

// skipInlineImage moves past binary inline image data up to EI.
func (s *streamScanner) skipInlineImage() {
	idx := bytes.Index(s.data[s.pos:], []byte("EI"))
	for idx >= 0 {
		end := s.pos + idx
		before := end == 0 || isWhite(s.data[end-1])
		after := end+2 >= len(s.data) || isWhite(s.data[end+2])
		if before && after {
			s.pos = end + 2
			return
		}
		next := bytes.Index(s.data[end+2:], []byte("EI"))
		if next < 0 {
			break
		}
		idx += 2 + next
	}
	s.pos = len(s.data)
}

var (
	utf16Decoder = xunicode.UTF16(xunicode.BigEndian, xunicode.ExpectBOM)
	winAnsi      = charmap.Windows1252
)

// decodeString interprets string bytes as UTF-16BE when they carry a byte
// order mark and as WinAnsi otherwise.
func decodeString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		if out, err := utf16Decoder.NewDecoder().Bytes(b); err == nil {
			return string(out)
		}
	}
	out, err := winAnsi.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}
