package conv

import (
	"encoding/json"
	"math"
	"strconv"
)

// AsInt coerces v to int, returns 0 when not numeric
func AsInt(v interface{}) int {
	i, _ := AsInt64(v)
	return int(i)
}

// AsInt64 coerces a decoded JSON value to int64; ok is false for non numeric values
func AsInt64(v interface{}) (int64, bool) {
	switch actual := v.(type) {
	case int:
		return int64(actual), true
	case int64:
		return actual, true
	case int32:
		return int64(actual), true
	case uint32:
		return int64(actual), true
	case float64:
		if math.IsNaN(actual) || math.IsInf(actual, 0) {
			return 0, false
		}
		return int64(actual), true
	case float32:
		return AsInt64(float64(actual))
	case json.Number:
		if i, err := actual.Int64(); err == nil {
			return i, true
		}
		if f, err := actual.Float64(); err == nil {
			return AsInt64(f)
		}
	case string:
		if i, err := strconv.ParseInt(actual, 10, 64); err == nil {
			return i, true
		}
	case *int:
		if actual != nil {
			return int64(*actual), true
		}
	}
	return 0, false
}

// AsString renders a scalar as string; nil, maps and slices become empty
func AsString(v interface{}) string {
	switch actual := v.(type) {
	case string:
		return actual
	case json.Number:
		return actual.String()
	case float64:
		return strconv.FormatFloat(actual, 'f', -1, 64)
	case int:
		return strconv.Itoa(actual)
	case int64:
		return strconv.FormatInt(actual, 10)
	case bool:
		return strconv.FormatBool(actual)
	}
	return ""
}
