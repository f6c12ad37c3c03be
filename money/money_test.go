package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestFormat(t *testing.T) {
	f := Default()

	tests := []struct {
		amount string
		want   string
	}{
		{"0", "Rp0"},
		{"0.5", "Rp500"},
		{"50", "Rp50.000"},
		{"110", "Rp110.000"},
		{"152.9", "Rp152.900"},
		{"1234.5678", "Rp1.234.568"},
		{"-13.9", "-Rp13.900"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Format(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestMinor_RoundsAtDisplayTime(t *testing.T) {
	f := Default()

	assert.Equal(t, int64(1), f.Minor(decimal.RequireFromString("0.0005")))
	assert.Equal(t, int64(0), f.Minor(decimal.RequireFromString("0.0004")))
}

func TestFormat_ZeroScaleMeansUnscaled(t *testing.T) {
	f := Formatter{Prefix: "$", Tag: language.English}

	assert.Equal(t, "$1,235", f.Format(decimal.RequireFromString("1234.5")))
}
