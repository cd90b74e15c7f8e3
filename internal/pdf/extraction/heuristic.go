package extraction

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/a3tai/mcp-pdf-forms/internal/pdf/normalize"
)

const labelChars = `[\p{L}\d \t/()\-.]`

var (
	// "Label: ___" or "Label [xxx]"
	labelPattern = regexp.MustCompile(
		`(` + labelChars + `+):[ \t]*_{3,}|(` + labelChars + `+)[ \t]*\[[^\]\n]{3,}\]`)
	// "☐ Label", "□ Label" or "[ ] Label"
	checkboxPattern = regexp.MustCompile(`(?:☐|□|\[ ?\])[ \t]+(` + labelChars + `{3,50})`)

	idJunk = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
)

const (
	minLabelLen = 2
	maxLabelLen = 100
	// Keywords up to this length must match a whole word.
	shortKeywordLen = 3
)

type typeRule struct {
	typ      normalize.FieldType
	keywords []string
}

// typeRules are tried in order; the first rule with a matching keyword wins.
var typeRules = []typeRule{
	{normalize.TypeDate, []string{"datum", "geburt", "date", "birth", "von", "bis", "from", "to"}},
	{normalize.TypeTel, []string{"telefon", "tel.", "mobil", "handy", "phone", "tel"}},
	{normalize.TypeEmail, []string{"mail"}},
	{normalize.TypeIBAN, []string{"iban", "kontoverbindung", "account"}},
	{normalize.TypePLZ, []string{"plz", "postleitzahl", "postal code", "zip"}},
	{normalize.TypeNumber, []string{"anzahl", "betrag", "summe", "höhe", "zahl", "nummer",
		"count", "amount", "sum", "height", "number"}},
}

// DiscoverHeuristic infers fields from text patterns. Label fields come
// first, then checkbox fields, each in order of appearance. Later fields
// whose id is already taken get a numeric suffix.
func DiscoverHeuristic(text string) []Field {
	var fields []Field
	ids := newIDSet()

	for _, m := range labelPattern.FindAllStringSubmatch(text, -1) {
		label := m[1]
		if label == "" {
			label = m[2]
		}
		label = strings.TrimSpace(label)
		if n := utf8.RuneCountInString(label); n < minLabelLen || n > maxLabelLen {
			continue
		}
		id := NormalizeFieldID(label)
		if id == "" {
			continue
		}
		fields = append(fields, Field{
			ID:         ids.claim(id),
			Label:      label,
			Type:       InferFieldType(label),
			Confidence: confidence(ConfidenceLabel),
		})
	}

	for _, m := range checkboxPattern.FindAllStringSubmatch(text, -1) {
		label := strings.TrimSpace(m[1])
		id := NormalizeFieldID(label)
		if id == "" {
			continue
		}
		fields = append(fields, Field{
			ID:         ids.claim(id),
			Label:      label,
			Type:       normalize.TypeCheckbox,
			Confidence: confidence(ConfidenceCheckbox),
		})
	}

	return fields
}

// NormalizeFieldID derives a field id from a label: punctuation removed,
// lower case, whitespace replaced by underscores.
func NormalizeFieldID(label string) string {
	id := idJunk.ReplaceAllString(label, "")
	id = strings.TrimSpace(strings.ToLower(id))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, id)
}

// InferFieldType guesses a field's type from keywords in its label.
func InferFieldType(label string) normalize.FieldType {
	lower := strings.ToLower(label)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, rule := range typeRules {
		for _, kw := range rule.keywords {
			if matchesKeyword(lower, words, kw) {
				return rule.typ
			}
		}
	}
	return normalize.TypeString
}

func matchesKeyword(lower string, words []string, kw string) bool {
	if utf8.RuneCountInString(kw) > shortKeywordLen {
		return strings.Contains(lower, kw)
	}
	for _, w := range words {
		if w == kw {
			return true
		}
	}
	return false
}

type idSet map[string]bool

func newIDSet() idSet {
	return idSet{}
}

// claim returns id, or id_N with the smallest N >= 2 not yet taken.
func (s idSet) claim(id string) string {
	candidate := id
	for n := 2; s[candidate]; n++ {
		candidate = id + "_" + strconv.Itoa(n)
	}
	s[candidate] = true
	return candidate
}
