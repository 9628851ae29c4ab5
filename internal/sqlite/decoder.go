// This file converts raw driver values back to declared kinds.
package sqlite

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// Decode converts a raw driver value to a Value of the declared kind. It
// never fails: NULL yields a null value, and a stored value with no lossless
// conversion yields a mismatched value. Both read as the kind's zero value.
func Decode(raw any, kind types.Kind) types.Value {
	if raw == nil {
		return types.NullValue(kind)
	}
	var (
		v  any
		ok bool
	)
	switch kind {
	case types.KindText:
		v, ok = toText(raw)
	case types.KindInteger:
		v, ok = toInteger(raw)
	case types.KindReal:
		v, ok = toReal(raw)
	case types.KindNumeric:
		v, ok = toNumeric(raw)
	case types.KindBlob:
		v, ok = toBlob(raw)
	case types.KindBool:
		v, ok = toBool(raw)
	default:
		v, ok = toAny(raw)
	}
	if !ok {
		return types.MismatchValue(kind)
	}
	return types.NewValue(kind, v)
}

// DecodeRow decodes raw column values against kinds. Columns beyond kinds
// decode as KindAny.
func DecodeRow(raw []any, kinds []types.Kind) types.Row {
	row := make(types.Row, len(raw))
	for i, r := range raw {
		k := types.KindAny
		if i < len(kinds) {
			k = kinds[i]
		}
		row[i] = Decode(r, k)
	}
	return row
}

func toText(raw any) (any, bool) {
	switch x := raw.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	case time.Time:
		return x.UTC().Format(TimeLayout), true
	}
	return nil, false
}

func toInteger(raw any) (any, bool) {
	switch x := raw.(type) {
	case int64:
		return x, true
	case float64:
		return integralFloat(x)
	case bool:
		if x {
			return int64(1), true
		}
		return int64(0), true
	case string:
		return parseInteger(x)
	case []byte:
		return parseInteger(string(x))
	}
	return nil, false
}

func integralFloat(f float64) (any, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, false
	}
	return int64(f), true
}

func parseInteger(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return integralFloat(f)
	}
	return nil, false
}

func toReal(raw any) (any, bool) {
	switch x := raw.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		return f, err == nil
	}
	return nil, false
}

func toNumeric(raw any) (any, bool) {
	switch x := raw.(type) {
	case int64, float64:
		return x, true
	case string:
		return parseNumeric(x)
	case []byte:
		return parseNumeric(string(x))
	}
	return nil, false
}

func parseNumeric(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	return nil, false
}

func toBlob(raw any) (any, bool) {
	switch x := raw.(type) {
	case []byte:
		return append([]byte{}, x...), true
	case string:
		return []byte(x), true
	}
	return nil, false
}

func toBool(raw any) (any, bool) {
	switch x := raw.(type) {
	case bool:
		return x, true
	case int64:
		return x != 0, true
	case float64:
		return x != 0, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return b, err == nil
	}
	return nil, false
}

func toAny(raw any) (any, bool) {
	switch x := raw.(type) {
	case string, int64, float64, bool:
		return x, true
	case []byte:
		return append([]byte{}, x...), true
	case time.Time:
		return x.UTC().Format(TimeLayout), true
	}
	return nil, false
}
