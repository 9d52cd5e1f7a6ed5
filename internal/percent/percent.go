// Package percent implements the numeric grammar shared by every workbook
// sheet. Cells hold either plain fractions ("0.0007") or percentage text in
// the Brazilian layout ("0,07%", "1.234,5%"). A dash or a blank cell means the
// value is missing.
package percent

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Parse converts a cell into a fraction. ok is false for missing cells.
func Parse(s string) (value float64, ok bool, err error) {
	d, ok, err := ParseDecimal(s)
	if err != nil || !ok {
		return 0, ok, err
	}
	f, _ := d.Float64()
	return f, true, nil
}

// ParseDecimal is Parse without the float conversion.
func ParseDecimal(s string) (decimal.Decimal, bool, error) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, " ", "")
	if raw == "" || raw == "-" {
		return decimal.Zero, false, nil
	}

	isPercent := strings.HasSuffix(raw, "%")
	raw = strings.TrimSpace(strings.TrimSuffix(raw, "%"))
	raw = strings.ReplaceAll(raw, " ", "")
	raw = normalizeSeparators(raw)

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid numeric cell %q: %w", s, err)
	}
	if isPercent {
		d = d.Div(hundred)
	}
	return d, true, nil
}

// normalizeSeparators turns "1.234,56" and "0,07" into "1234.56" and "0.07".
// When only dots are present they are taken as decimal points.
func normalizeSeparators(s string) string {
	if !strings.Contains(s, ",") {
		return s
	}
	s = strings.ReplaceAll(s, ".", "")
	return strings.ReplaceAll(s, ",", ".")
}

// Round rounds half away from zero to the given number of places.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// Format renders a fraction as percentage text with two decimals ("0.07%").
func Format(v float64) string {
	return decimal.NewFromFloat(v).Mul(hundred).StringFixed(2) + "%"
}
