package gst

import (
	"strings"

	"github.com/shopspring/decimal"
)

var half = decimal.New(5, -1)

// Round2 rounds half-up to two decimals. It is meant for presentation only;
// further arithmetic must use the unrounded value.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Shift(2).Add(half).Floor().Shift(-2)
}

// FormatAmount renders d rounded to two decimals with Indian digit grouping,
// e.g. 123456.5 becomes "1,23,456.50".
func FormatAmount(d decimal.Decimal) string {
	fixed := Round2(d).StringFixed(2)
	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, frac, _ := strings.Cut(fixed, ".")
	grouped := groupIndian(intPart)
	if negative {
		grouped = "-" + grouped
	}
	return grouped + "." + frac
}

// FormatRate renders a percentage without trailing zeros ("18", "2.5").
func FormatRate(d decimal.Decimal) string {
	return d.String()
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head := digits[:len(digits)-3]
	tail := digits[len(digits)-3:]
	parts := make([]string, 0, len(head)/2+1)
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}
