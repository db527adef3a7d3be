package item

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a lenient numeric field. It accepts JSON numbers and numeric
// strings; null, booleans, objects and unparsable strings decode as 0
// instead of failing the whole item.
//
// NOTE: this silently turns malformed upstream prices into 0. Tests assert
// the behavior so it is never mistaken for an accident.
type Number float64

// Float64 returns the value, or 0 when it is not finite.
func (n Number) Float64() float64 {
	return Coerce(float64(n))
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*n = 0
		return nil
	}
	*n = Number(Coerce(raw))
	return nil
}

// Coerce converts v to a finite float64, defaulting to 0.
func Coerce(v any) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case Number:
		f = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
