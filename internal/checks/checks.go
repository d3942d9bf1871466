// Package checks holds the format primitives shared by the mapping validators and the
// validation engine: national ID check digits, plates, e-mail and phone numbers.
package checks

import (
	"regexp"
	"strings"
)

// DocumentKind classifies a national ID number by its digit count.
type DocumentKind string

const (
	DocumentUnknown DocumentKind = ""
	DocumentCI      DocumentKind = "CI"
	DocumentRUT     DocumentKind = "RUT"
)

var ciWeights = [7]int{2, 9, 8, 7, 6, 3, 4}

var rutWeights = [11]int{4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}

// Digits keeps only the ASCII digits of s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// ClassifyDocument reports which ID format the digits of s have.
func ClassifyDocument(s string) DocumentKind {
	switch len(Digits(s)) {
	case 7, 8:
		return DocumentCI
	case 12:
		return DocumentRUT
	}
	return DocumentUnknown
}

// ValidCI checks a personal ID (cédula): 6 or 7 base digits plus a mod-10 check digit over
// weights 2987634, the base left-padded to seven digits.
func ValidCI(s string) bool {
	d := Digits(s)
	if len(d) != 7 && len(d) != 8 {
		return false
	}
	base := strings.Repeat("0", 8-len(d)) + d[:len(d)-1]
	sum := 0
	for i, w := range ciWeights {
		sum += int(base[i]-'0') * w
	}
	check := (10 - sum%10) % 10
	return int(d[len(d)-1]-'0') == check
}

// ValidRUT checks a 12-digit business ID: mod-11 over weights 43298765432. A remainder that
// yields 11 maps to 0; one that yields 10 has no valid check digit.
func ValidRUT(s string) bool {
	d := Digits(s)
	if len(d) != 12 {
		return false
	}
	sum := 0
	for i, w := range rutWeights {
		sum += int(d[i]-'0') * w
	}
	check := 11 - sum%11
	switch check {
	case 11:
		check = 0
	case 10:
		return false
	}
	return int(d[11]-'0') == check
}

// ValidDocument accepts a valid CI or RUT.
func ValidDocument(s string) bool {
	switch ClassifyDocument(s) {
	case DocumentCI:
		return ValidCI(s)
	case DocumentRUT:
		return ValidRUT(s)
	}
	return false
}

var plateRe = regexp.MustCompile(`^[A-Z]{3}\d{4}$|^[A-Z]{2}\d{4}$|^\d{4}[A-Z]{2}$`)

// NormalizePlate upper-cases a plate and drops spaces, dots and hyphens.
func NormalizePlate(s string) string {
	s = strings.ToUpper(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '\t':
			return -1
		}
		return r
	}, s)
}

// ValidPlate accepts LLL####, LL#### or ####LL.
func ValidPlate(s string) bool {
	return plateRe.MatchString(NormalizePlate(s))
}

var emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

func ValidEmail(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

// Phone numbering plan.
const (
	CountryCode  = "598"
	MobilePrefix = "09"
)

// NationalPhone strips formatting and the country code, restoring the trunk zero of mobiles.
func NationalPhone(s string) string {
	d := Digits(s)
	if strings.HasPrefix(d, CountryCode) && len(d) > 9 {
		d = d[len(CountryCode):]
		if len(d) == 8 && d[0] == '9' {
			d = "0" + d
		}
	}
	return d
}

// ValidPhone accepts an 8-digit fixed line or a 9-digit mobile starting with 09.
func ValidPhone(s string) bool {
	d := NationalPhone(s)
	switch len(d) {
	case 8:
		return d[0] != '0'
	case 9:
		return strings.HasPrefix(d, MobilePrefix)
	}
	return false
}
