package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Format renders an amount the way it appears in notifications:
// INR without decimals and with Indian digit grouping, everything else
// with two decimals and western grouping.
func Format(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(code)

	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	switch code {
	case "INR":
		return sign + "₹" + groupIndian(amount.Round(0).StringFixed(0))
	case "USD":
		return sign + "$" + formatTwoDecimals(amount)
	case "":
		return sign + formatTwoDecimals(amount)
	default:
		return sign + code + " " + formatTwoDecimals(amount)
	}
}

func formatTwoDecimals(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")
	return groupWestern(intPart) + "." + frac
}

// groupWestern inserts a comma every three digits: 1234567 -> 1,234,567.
func groupWestern(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// groupIndian groups the last three digits, then every two:
// 12345678 -> 1,23,45,678.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	rest, last3 := digits[:len(digits)-3], digits[len(digits)-3:]

	var groups []string
	for len(rest) > 2 {
		groups = append([]string{rest[len(rest)-2:]}, groups...)
		rest = rest[:len(rest)-2]
	}
	if rest != "" {
		groups = append([]string{rest}, groups...)
	}
	return strings.Join(append(groups, last3), ",")
}
