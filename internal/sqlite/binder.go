// This file converts host parameters to the forms the driver stores.
package sqlite

import (
	"database/sql/driver"
	"fmt"
	"math"
	"time"

	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// TimeLayout is the text form times are bound as. It sorts lexically and
// is understood by the engine's date and time functions.
const TimeLayout = time.RFC3339Nano

// Bind converts params in place order to driver values: integers to int64,
// floats to float64, bools to 0 or 1, times to UTC text. A driver.Valuer is
// resolved first. The input slice is not modified.
func Bind(params []any) ([]any, error) {
	out := make([]any, len(params))
	for i, p := range params {
		v, err := BindValue(p)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

// BindValue converts one parameter.
func BindValue(p any) (any, error) {
	if v, ok := p.(driver.Valuer); ok {
		dv, err := v.Value()
		if err != nil {
			return nil, fmt.Errorf("%w: %T: %v", types.ErrUnsupportedValue, p, err)
		}
		if _, again := dv.(driver.Valuer); again {
			return nil, fmt.Errorf("%w: %T returns a Valuer", types.ErrUnsupportedValue, p)
		}
		return BindValue(dv)
	}

	switch x := p.(type) {
	case nil:
		return nil, nil
	case string:
		return x, nil
	case []byte:
		if x == nil {
			return []byte{}, nil
		}
		return x, nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return bindUint(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return bindUint(x)
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case time.Time:
		return x.UTC().Format(TimeLayout), nil
	}
	return nil, fmt.Errorf("%w: %T", types.ErrUnsupportedValue, p)
}

func bindUint(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("%w: %d overflows int64", types.ErrUnsupportedValue, u)
	}
	return int64(u), nil
}
