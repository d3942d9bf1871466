package mapping

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/policy-intake/internal/checks"
	"github.com/joseph-ayodele/policy-intake/internal/policy"
)

// Transform turns a raw extracted string into a typed value. Transforms are total: input they
// cannot interpret becomes the empty value of their kind.
type Transform func(raw string) policy.Value

// TextValue trims and collapses whitespace.
func TextValue(raw string) policy.Value {
	return policy.Text(strings.Join(strings.Fields(raw), " "))
}

// UpperValue is TextValue upper-cased.
func UpperValue(raw string) policy.Value {
	return policy.Text(strings.ToUpper(strings.Join(strings.Fields(raw), " ")))
}

// DigitsValue keeps digits only (ID numbers written with dots and dashes).
func DigitsValue(raw string) policy.Value {
	return policy.Text(checks.Digits(raw))
}

// PlateValue normalizes a plate.
func PlateValue(raw string) policy.Value {
	return policy.Text(checks.NormalizePlate(strings.TrimSpace(raw)))
}

// EmailValue trims and lower-cases an address.
func EmailValue(raw string) policy.Value {
	return policy.Text(strings.ToLower(strings.TrimSpace(raw)))
}

// PhoneValue keeps the national digits.
func PhoneValue(raw string) policy.Value {
	return policy.Text(checks.NationalPhone(raw))
}

var dateLayouts = []string{
	policy.DateLayout,
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"02/01/06",
	"2/1/06",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// DateValue accepts ISO and day-first dates and emits the canonical ISO form.
func DateValue(raw string) policy.Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return policy.Text("")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return policy.Text(policy.FormatDate(t))
		}
	}
	return policy.Text("")
}

var dateTokenRe = regexp.MustCompile(`\d{1,4}[/.\-]\d{1,2}[/.\-]\d{1,4}`)

// RangeDate returns a transform picking the n-th date of a range such as
// "01/03/2024 - 01/03/2025" or "del 01/03/2024 al 01/03/2025".
func RangeDate(n int) Transform {
	return func(raw string) policy.Value {
		tokens := dateTokenRe.FindAllString(raw, -1)
		if n < 0 || n >= len(tokens) {
			return policy.Text("")
		}
		return DateValue(tokens[n])
	}
}

var numberRe = regexp.MustCompile(`-?\d[\d.,]*`)

// MoneyValue parses amounts written with either separator convention. When both '.' and ','
// appear the later one is the decimal mark; a lone separator followed by exactly three digits
// is a thousands separator.
func MoneyValue(raw string) policy.Value {
	d, ok := ParseAmount(raw)
	if !ok {
		return policy.Number(decimal.Zero)
	}
	return policy.Number(d)
}

// ParseAmount extracts the first amount in raw.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	m := numberRe.FindString(strings.ReplaceAll(raw, " ", ""))
	if m == "" {
		return decimal.Zero, false
	}
	neg := strings.HasPrefix(m, "-")
	m = strings.Trim(strings.TrimPrefix(m, "-"), ".,")
	if m == "" {
		return decimal.Zero, false
	}

	lastDot := strings.LastIndex(m, ".")
	lastComma := strings.LastIndex(m, ",")
	var intPart, fracPart string
	switch {
	case lastDot >= 0 && lastComma >= 0:
		sep := lastDot
		if lastComma > lastDot {
			sep = lastComma
		}
		intPart, fracPart = m[:sep], m[sep+1:]
	case lastDot >= 0 || lastComma >= 0:
		sep := lastDot
		mark := "."
		if lastComma >= 0 {
			sep, mark = lastComma, ","
		}
		tail := m[sep+1:]
		if strings.Count(m, mark) > 1 || len(tail) == 3 {
			intPart = m
		} else {
			intPart, fracPart = m[:sep], tail
		}
	default:
		intPart = m
	}
	intPart = checks.Digits(intPart)
	if intPart == "" {
		intPart = "0"
	}
	s := intPart
	if fracPart != "" {
		s += "." + fracPart
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if neg {
		d = d.Neg()
	}
	return d, true
}

var intRe = regexp.MustCompile(`\d+`)

// IntValue takes the first run of digits ("12 cuotas" is 12).
func IntValue(raw string) policy.Value {
	m := intRe.FindString(raw)
	if m == "" {
		return policy.Number(decimal.Zero)
	}
	d, err := decimal.NewFromString(m)
	if err != nil {
		return policy.Number(decimal.Zero)
	}
	return policy.Number(d)
}
