// Package money parses and formats Rupiah amounts the way they appear in
// the shop spreadsheet (id-ID grouping, "Rp" prefix).
package money

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.Indonesian)

// ParseFormatted reads a number written as "Rp1.500.000" or "1.000.000,5".
// Anything unparseable yields 0.
func ParseFormatted(raw string) float64 {
	s := strings.ReplaceAll(raw, "Rp", "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// Format renders v with id-ID grouping and at most two fraction digits.
func Format(v float64) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

func Rupiah(v float64) string {
	return "Rp" + Format(v)
}
