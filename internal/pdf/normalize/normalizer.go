// Package normalize maps raw field values onto canonical per-type
// representations and validates them.
package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
)

var (
	dateJunk      = regexp.MustCompile(`[^\d\-./]`)
	digitRun      = regexp.MustCompile(`\d+`)
	nonDigit      = regexp.MustCompile(`\D`)
	telJunk       = regexp.MustCompile(`[^\d+\s]`)
	whitespaceRun = regexp.MustCompile(`\s+`)
	plainDecimal  = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)
)

const (
	germanIBANPrefix = "DE"
	germanIBANLength = 22
	postalCodeLength = 5
)

// Normalizer rewrites raw values according to their field type. It never
// returns an error: values it cannot handle come back trimmed with
// Outcome PassedThrough.
type Normalizer struct {
	logger     *zap.Logger
	dateFormat DateFormat
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the logger used for normalization warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(n *Normalizer) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithDateFormat sets the output format for dates.
func WithDateFormat(f DateFormat) Option {
	return func(n *Normalizer) {
		n.dateFormat = f
	}
}

// New creates a Normalizer. Dates default to DD.MM.YYYY.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		logger:     zap.NewNop(),
		dateFormat: DateFormatGerman,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize normalizes raw according to t. Blank input yields Absent.
func (n *Normalizer) Normalize(raw string, t FieldType) (res Result) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Result{Outcome: Absent}
	}

	defer func() {
		if r := recover(); r != nil {
			n.logger.Warn("normalization panicked",
				zap.String("type", t.String()),
				zap.Any("panic", r))
			res = passedThrough(value, fmt.Sprintf("normalizer panic: %v", r))
		}
	}()

	switch t {
	case TypeDate:
		return n.date(value)
	case TypeIBAN:
		return n.iban(value)
	case TypePLZ:
		return n.plz(value)
	case TypeTel:
		return tel(value)
	case TypeEmail:
		return normalized(strings.ToLower(value))
	case TypeNumber:
		return n.number(value)
	case TypeString, TypeCheckbox, TypeSelect, TypeSignature:
		return normalized(value)
	default:
		return normalized(value)
	}
}

// NormalizeValue normalizes an arbitrary mapping value. nil and blank values
// return nil; booleans and numbers are rendered in their Go string form first.
func (n *Normalizer) NormalizeValue(v any, t FieldType) *string {
	if v == nil {
		return nil
	}
	return n.Normalize(Stringify(v), t).Ptr()
}

// Stringify renders a decoded JSON value as a plain string.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func (n *Normalizer) date(value string) Result {
	cleaned := dateJunk.ReplaceAllString(value, "")
	parts := digitRun.FindAllString(cleaned, -1)
	if len(parts) < 3 {
		return passedThrough(value, "fewer than three numeric date parts")
	}

	var dayS, monthS, yearS string
	if len(parts[0]) == 4 {
		yearS, monthS, dayS = parts[0], parts[1], parts[2]
	} else {
		dayS, monthS, yearS = parts[0], parts[1], parts[2]
	}

	day, _ := strconv.Atoi(dayS)
	month, _ := strconv.Atoi(monthS)
	year, err := strconv.Atoi(yearS)
	if err != nil || !validCalendarDate(year, month, day) {
		n.logger.Warn("invalid date values",
			zap.String("day", dayS),
			zap.String("month", monthS),
			zap.String("year", yearS))
		return passedThrough(value, "not a calendar date")
	}

	switch n.dateFormat {
	case DateFormatISO:
		return normalized(fmt.Sprintf("%s-%02d-%02d", yearS, month, day))
	default:
		return normalized(fmt.Sprintf("%02d.%02d.%s", day, month, yearS))
	}
}

func validCalendarDate(year, month, day int) bool {
	if year < 1 || year > 9999 || month < 1 || month > 12 || day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

func (n *Normalizer) iban(value string) Result {
	compact := strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, value))

	if strings.HasPrefix(compact, germanIBANPrefix) && len(compact) != germanIBANLength {
		n.logger.Warn("unexpected DE IBAN length", zap.Int("length", len(compact)))
	}

	var b strings.Builder
	for i := 0; i < len(compact); i += 4 {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := i + 4
		if end > len(compact) {
			end = len(compact)
		}
		b.WriteString(compact[i:end])
	}
	return normalized(b.String())
}

func (n *Normalizer) plz(value string) Result {
	digits := nonDigit.ReplaceAllString(value, "")
	if digits == "" {
		return passedThrough(value, "no digits in postal code")
	}
	if len(digits) > postalCodeLength {
		n.logger.Warn("postal code too long, truncating", zap.String("digits", digits))
		digits = digits[:postalCodeLength]
	}
	return normalized(strings.Repeat("0", postalCodeLength-len(digits)) + digits)
}

func tel(value string) Result {
	cleaned := telJunk.ReplaceAllString(value, "")
	cleaned = strings.TrimSpace(whitespaceRun.ReplaceAllString(cleaned, " "))

	switch {
	case strings.HasPrefix(cleaned, "0049"):
		cleaned = "+49 " + strings.TrimSpace(cleaned[4:])
	case strings.HasPrefix(cleaned, "49"):
		cleaned = "+49 " + strings.TrimSpace(cleaned[2:])
	}
	return normalized(strings.TrimSpace(cleaned))
}

// number accepts German ("1.234,56") and canonical ("1234.56") notation.
// When a comma is present dots are thousands separators; otherwise a single
// dot is the decimal point and several dots are thousands separators.
func (n *Normalizer) number(value string) Result {
	compact := strings.ReplaceAll(value, " ", "")
	switch {
	case strings.Contains(compact, ","):
		compact = strings.ReplaceAll(compact, ".", "")
		compact = strings.ReplaceAll(compact, ",", ".")
	case strings.Count(compact, ".") > 1:
		compact = strings.ReplaceAll(compact, ".", "")
	}

	if !plainDecimal.MatchString(compact) {
		n.logger.Warn("could not parse number", zap.String("value", value))
		return passedThrough(value, "not a decimal number")
	}
	f, err := strconv.ParseFloat(compact, 64)
	if err != nil {
		n.logger.Warn("could not parse number", zap.String("value", value), zap.Error(err))
		return passedThrough(value, "not a decimal number")
	}

	if math.Trunc(f) == f {
		return normalized(strconv.FormatFloat(f, 'f', 0, 64))
	}
	return normalized(strconv.FormatFloat(f, 'f', -1, 64))
}
