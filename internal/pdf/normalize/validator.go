package normalize

import (
	"regexp"
	"strings"
)

var (
	emailPattern   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	ibanPattern    = regexp.MustCompile(`^[A-Z]{2}\d{2}[\s\d]{10,}$`)
	plzPattern     = regexp.MustCompile(`^\d{5}$`)
	telPattern     = regexp.MustCompile(`^[+\d\s\-()]+$`)
	dateDMYPattern = regexp.MustCompile(`^\d{1,2}[./\-]\d{1,2}[./\-]\d{2,4}$`)
	dateISOPattern = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`)
)

const minPhoneDigits = 6

// Validate checks value against the canonical format of t. Blank values are
// never valid; types without a format rule always are.
func Validate(value string, t FieldType) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return false
	}

	switch t {
	case TypeEmail:
		return emailPattern.MatchString(v)
	case TypeIBAN:
		return ibanPattern.MatchString(v)
	case TypePLZ:
		return plzPattern.MatchString(strings.ReplaceAll(v, " ", ""))
	case TypeTel:
		return telPattern.MatchString(v) && len(nonDigit.ReplaceAllString(v, "")) >= minPhoneDigits
	case TypeDate:
		return dateDMYPattern.MatchString(v) || dateISOPattern.MatchString(v)
	case TypeString, TypeNumber, TypeCheckbox, TypeSelect, TypeSignature:
		return true
	default:
		return true
	}
}
