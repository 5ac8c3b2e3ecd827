// Package analytics holds the dashboard aggregations: session conversion,
// sales, product and customer breakdowns over filtered order and event slices.
package analytics

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// Ratio is the result of a division that may be undefined. The zero value is
// undefined and serializes to JSON null.
type Ratio struct {
	value   float64
	defined bool
}

// Undefined returns a Ratio with no value.
func Undefined() Ratio { return Ratio{} }

// Defined wraps v.
func Defined(v float64) Ratio { return Ratio{value: v, defined: true} }

// Divide returns num/den, undefined when den is zero.
func Divide(num, den float64) Ratio {
	if den == 0 {
		return Ratio{}
	}
	return Ratio{value: num / den, defined: true}
}

// Percent returns part/whole*100 rounded to two decimals, undefined when whole is zero.
func Percent(part, whole int) Ratio {
	if whole == 0 {
		return Ratio{}
	}
	return Defined(float64(part) / float64(whole) * 100).Round(2)
}

// Value reports the ratio and whether it is defined.
func (r Ratio) Value() (float64, bool) { return r.value, r.defined }

// IsDefined reports whether the ratio has a value.
func (r Ratio) IsDefined() bool { return r.defined }

// Round rounds half to even at the given number of decimal places.
func (r Ratio) Round(places int32) Ratio {
	if !r.defined {
		return r
	}
	return Defined(Round(r.value, places))
}

func (r Ratio) String() string {
	if !r.defined {
		return "undefined"
	}
	return strconv.FormatFloat(r.value, 'f', -1, 64)
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.defined {
		return []byte("null"), nil
	}
	return json.Marshal(r.value)
}

func (r *Ratio) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = Ratio{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = Defined(v)
	return nil
}

// Round rounds v half to even at the given number of decimal places.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).RoundBank(places).InexactFloat64()
}
