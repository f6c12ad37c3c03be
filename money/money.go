// Package money renders amounts for display. Amounts are kept unrounded in
// decimal form everywhere else; Format is the only place they are rounded.
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter turns a catalog amount into a display string. Scale converts the
// catalog unit into the currency's smallest unit (catalog prices are in
// thousands of Rupiah).
type Formatter struct {
	Prefix string
	Scale  decimal.Decimal
	Tag    language.Tag
}

func Default() Formatter {
	return Formatter{
		Prefix: "Rp",
		Scale:  decimal.NewFromInt(1000),
		Tag:    language.Indonesian,
	}
}

// Minor returns amount in the smallest currency unit, rounded half away from zero.
func (f Formatter) Minor(amount decimal.Decimal) int64 {
	scale := f.Scale
	if scale.IsZero() {
		scale = decimal.NewFromInt(1)
	}
	return amount.Mul(scale).Round(0).IntPart()
}

// Format renders amount with the prefix and locale digit grouping, e.g. Rp50.000.
func (f Formatter) Format(amount decimal.Decimal) string {
	n := f.Minor(amount)
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	return sign + f.Prefix + message.NewPrinter(f.Tag).Sprintf("%d", n)
}
