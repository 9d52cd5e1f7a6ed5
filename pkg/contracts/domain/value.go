package domain

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/shopspring/decimal"
)

// Value is a nullable measurement. The zero value is Null, which is how
// "not available" is carried through every computation and serialized as
// JSON null. A missing value is never the same thing as 0.
type Value struct {
	Float float64
	Valid bool
}

// Null is the "not available" sentinel.
var Null = Value{}

// Some wraps f. NaN and infinities collapse to Null.
func Some(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null
	}
	return Value{Float: f, Valid: true}
}

// IsNull reports whether the value is missing.
func (v Value) IsNull() bool {
	return !v.Valid
}

// Scale multiplies a present value by factor.
func (v Value) Scale(factor float64) Value {
	if !v.Valid {
		return v
	}
	return Some(v.Float * factor)
}

// Rounded rounds half away from zero to the given number of decimal places.
func (v Value) Rounded(places int32) Value {
	if !v.Valid {
		return v
	}
	f, _ := decimal.NewFromFloat(v.Float).Round(places).Float64()
	return Some(f)
}

// Percent converts a fraction into percentage points rounded to two places.
func (v Value) Percent() Value {
	return v.Scale(100).Rounded(2)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Float)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Null
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}
