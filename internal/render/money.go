package render

import (
	"strings"

	"github.com/shopspring/decimal"
)

const currencyPrefix = "US$ "

// Money formats v as whole US dollars with es-AR grouping, e.g. "US$ 1.320".
func Money(v float64) string {
	return format(decimal.NewFromFloat(v), 0)
}

// MoneyPrecise formats v with two decimals, e.g. "US$ 0,12".
func MoneyPrecise(v float64) string {
	return format(decimal.NewFromFloat(v), 2)
}

func format(d decimal.Decimal, places int32) string {
	d = d.Round(places)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	raw := d.StringFixed(places)
	whole, frac, _ := strings.Cut(raw, ".")

	var b strings.Builder
	b.WriteString(sign)
	b.WriteString(currencyPrefix)
	b.WriteString(group(whole))
	if frac != "" {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	return b.String()
}

// group inserts "." thousands separators into a string of digits.
func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Hours formats an hour count without decimals, e.g. "30 h".
func Hours(v float64) string {
	return decimal.NewFromFloat(v).Round(0).String() + " h"
}
