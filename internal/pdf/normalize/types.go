package normalize

import "strings"

// FieldType is the semantic type of a form field. The set is closed: it is the
// contract between field discovery and value normalization.
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeDate      FieldType = "date"
	TypeIBAN      FieldType = "iban"
	TypePLZ       FieldType = "plz"
	TypeTel       FieldType = "tel"
	TypeEmail     FieldType = "email"
	TypeNumber    FieldType = "number"
	TypeCheckbox  FieldType = "checkbox"
	TypeSelect    FieldType = "select"
	TypeSignature FieldType = "signature"
)

var fieldTypes = []FieldType{
	TypeString,
	TypeDate,
	TypeIBAN,
	TypePLZ,
	TypeTel,
	TypeEmail,
	TypeNumber,
	TypeCheckbox,
	TypeSelect,
	TypeSignature,
}

// FieldTypes returns every known field type in declaration order.
func FieldTypes() []FieldType {
	out := make([]FieldType, len(fieldTypes))
	copy(out, fieldTypes)
	return out
}

// ParseFieldType maps a wire value onto the closed type set. Unknown or empty
// values become TypeString.
func ParseFieldType(s string) FieldType {
	t := FieldType(strings.ToLower(strings.TrimSpace(s)))
	if t.Known() {
		return t
	}
	return TypeString
}

// Known reports whether t is a member of the closed type set.
func (t FieldType) Known() bool {
	switch t {
	case TypeString, TypeDate, TypeIBAN, TypePLZ, TypeTel, TypeEmail,
		TypeNumber, TypeCheckbox, TypeSelect, TypeSignature:
		return true
	default:
		return false
	}
}

func (t FieldType) String() string {
	return string(t)
}

// DateFormat selects the rendering of normalized dates.
type DateFormat string

const (
	DateFormatGerman DateFormat = "DD.MM.YYYY"
	DateFormatISO    DateFormat = "YYYY-MM-DD"
)

// ParseDateFormat returns DateFormatGerman for anything it does not recognise.
func ParseDateFormat(s string) DateFormat {
	if strings.EqualFold(strings.TrimSpace(s), string(DateFormatISO)) {
		return DateFormatISO
	}
	return DateFormatGerman
}

// Outcome tells the caller what happened to a value.
type Outcome int

const (
	// Absent means the input was nil or blank; there is no value.
	Absent Outcome = iota
	// Normalized means the value was rewritten into its canonical form.
	Normalized
	// PassedThrough means the value could not be normalized and the trimmed
	// original is returned unchanged.
	PassedThrough
)

func (o Outcome) String() string {
	switch o {
	case Absent:
		return "absent"
	case Normalized:
		return "normalized"
	case PassedThrough:
		return "passed_through"
	default:
		return "unknown"
	}
}

// Result is the outcome of normalizing one value.
type Result struct {
	Value   string
	Outcome Outcome
	// Reason is set for PassedThrough results.
	Reason string
}

// Ptr returns nil for absent values and a pointer to Value otherwise.
func (r Result) Ptr() *string {
	if r.Outcome == Absent {
		return nil
	}
	v := r.Value
	return &v
}

func normalized(v string) Result {
	return Result{Value: v, Outcome: Normalized}
}

func passedThrough(v, reason string) Result {
	return Result{Value: v, Outcome: PassedThrough, Reason: reason}
}
