package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Statement is a compiled statement: SQL text with positional placeholders,
// the parameters that fill them in order, and for queries the declared kind
// of every result column.
type Statement struct {
	SQL    string
	Params []any
	Kinds  []Kind
}

// Result reports the outcome of a statement that returns no rows.
type Result struct {
	RowsAffected int64
	LastInsertID int64
}

// Value is one decoded result column.
//
// A value whose stored form was SQL NULL reports IsNull. A value whose stored
// form could not be converted to the declared kind reports Mismatch. In both
// cases the accessors return the zero value of the declared kind.
type Value struct {
	kind     Kind
	v        any
	null     bool
	mismatch bool
}

// NewValue wraps an already-converted value. v must be the Go form of kind:
// string for text, int64 for integer, float64 for real, []byte for blob,
// bool for bool, and int64 or float64 for numeric.
func NewValue(kind Kind, v any) Value {
	return Value{kind: kind, v: v}
}

// NullValue returns the value decoded from SQL NULL.
func NullValue(kind Kind) Value {
	return Value{kind: kind, null: true}
}

// MismatchValue returns the value decoded from a stored value that does not
// convert to kind.
func MismatchValue(kind Kind) Value {
	return Value{kind: kind, mismatch: true}
}

// Kind returns the declared kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the stored value was SQL NULL.
func (v Value) IsNull() bool { return v.null }

// Mismatch reports whether the stored value could not be converted.
func (v Value) Mismatch() bool { return v.mismatch }

// Valid reports whether the value holds a converted, non-NULL result.
func (v Value) Valid() bool { return !v.null && !v.mismatch }

// Any returns the converted Go value, or nil when the value is not valid.
func (v Value) Any() any {
	if !v.Valid() {
		return nil
	}
	return v.v
}

// Text returns the value as a string; "" when not text.
func (v Value) Text() string {
	s, _ := v.v.(string)
	return s
}

// Int returns the value as an int64. Bools map to 0 and 1; reals are not
// truncated and return 0.
func (v Value) Int() int64 {
	switch x := v.v.(type) {
	case int64:
		return x
	case bool:
		if x {
			return 1
		}
	}
	return 0
}

// Real returns the value as a float64, widening integers.
func (v Value) Real() float64 {
	switch x := v.v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case bool:
		if x {
			return 1
		}
	}
	return 0
}

// Blob returns the value as bytes; nil when not a blob.
func (v Value) Blob() []byte {
	b, _ := v.v.([]byte)
	return b
}

// Bool returns the value as a bool. Integers are true when non-zero.
func (v Value) Bool() bool {
	switch x := v.v.(type) {
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	}
	return false
}

// String formats the value for display. NULL and mismatched values print
// as NULL.
func (v Value) String() string {
	if !v.Valid() {
		return "NULL"
	}
	switch x := v.v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case []byte:
		return fmt.Sprintf("x'%X'", x)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v.v)
}

// MarshalJSON encodes the converted value, or null when not valid.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// Row is one decoded result row, ordered like the projection.
type Row []Value

// Values returns the converted Go values of the row.
func (r Row) Values() []any {
	out := make([]any, len(r))
	for i, v := range r {
		out[i] = v.Any()
	}
	return out
}
