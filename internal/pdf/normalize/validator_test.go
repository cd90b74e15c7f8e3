package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		value string
		typ   FieldType
		want  bool
	}{
		{"test@example.com", TypeEmail, true},
		{" test@example.com ", TypeEmail, true},
		{"invalid-email", TypeEmail, false},
		{"a@b", TypeEmail, false},

		{"DE89 3704 0044 0532 0130 00", TypeIBAN, true},
		{"DE89370400440532013000", TypeIBAN, true},
		{"DE89", TypeIBAN, false},
		{"de89370400440532013000", TypeIBAN, false},

		{"12345", TypePLZ, true},
		{"123 45", TypePLZ, true},
		{"1234", TypePLZ, false},
		{"ABCDE", TypePLZ, false},

		{"+49 30 123456", TypeTel, true},
		{"(030) 123-456", TypeTel, true},
		{"12345", TypeTel, false},
		{"call me", TypeTel, false},

		{"31.01.2023", TypeDate, true},
		{"1/2/24", TypeDate, true},
		{"2023-01-31", TypeDate, true},
		{"31 Jan 2023", TypeDate, false},

		{"anything", TypeString, true},
		{"abc", TypeNumber, true},
		{"x", TypeCheckbox, true},
		{"x", TypeSelect, true},
		{"x", TypeSignature, true},
		{"x", FieldType("custom"), true},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ)+"/"+tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.value, tt.typ))
		})
	}
}

func TestValidate_BlankNeverValid(t *testing.T) {
	for _, ft := range FieldTypes() {
		assert.False(t, Validate("", ft), ft.String())
		assert.False(t, Validate("   ", ft), ft.String())
	}
}

func TestValidate_NormalizedValuesPass(t *testing.T) {
	n := New()
	cases := map[FieldType]string{
		TypeIBAN:  "de89370400440532013000",
		TypePLZ:   "1234",
		TypeTel:   "0049 30 123456",
		TypeDate:  "2023-01-31",
		TypeEmail: "Someone@Example.COM",
	}
	for ft, raw := range cases {
		res := n.Normalize(raw, ft)
		assert.True(t, Validate(res.Value, ft), "%s: %q", ft, res.Value)
	}
}
