package types

import "fmt"

// Scalar lists the Go types a decoded value can be extracted into.
type Scalar interface {
	string | int64 | int | float64 | []byte | bool
}

// Get extracts v into T. NULL and mismatched values yield the zero value of T
// without error. An error wrapping ErrKindMismatch is returned when T cannot
// hold the declared kind at all (for example a text column read into int64).
func Get[T Scalar](v Value) (T, error) {
	var out T
	ok := true
	switch p := any(&out).(type) {
	case *string:
		ok = v.kind == KindText || v.kind == KindAny
		*p = v.Text()
	case *int64:
		ok = holdsInteger(v)
		*p = v.Int()
	case *int:
		ok = holdsInteger(v)
		*p = int(v.Int())
	case *float64:
		ok = v.kind.Numeric() || v.kind == KindAny
		*p = v.Real()
	case *[]byte:
		ok = v.kind == KindBlob || v.kind == KindAny
		*p = v.Blob()
	case *bool:
		ok = v.kind == KindBool || v.kind == KindInteger || v.kind == KindAny
		*p = v.Bool()
	}
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: cannot read %s value into %T", ErrKindMismatch, v.kind, zero)
	}
	return out, nil
}

func holdsInteger(v Value) bool {
	switch v.kind {
	case KindInteger, KindBool, KindAny:
		return true
	case KindNumeric:
		_, isReal := v.v.(float64)
		return !isReal
	}
	return false
}

// Tuple1 is a decoded single-column row.
type Tuple1[A Scalar] struct {
	V1 A
}

// Tuple2 is a decoded two-column row.
type Tuple2[A, B Scalar] struct {
	V1 A
	V2 B
}

// Tuple3 is a decoded three-column row.
type Tuple3[A, B, C Scalar] struct {
	V1 A
	V2 B
	V3 C
}

// Scan1 converts a one-column row.
func Scan1[A Scalar](r Row) (Tuple1[A], error) {
	var t Tuple1[A]
	if err := checkWidth(r, 1); err != nil {
		return t, err
	}
	var err error
	t.V1, err = Get[A](r[0])
	return t, err
}

// Scan2 converts a two-column row.
func Scan2[A, B Scalar](r Row) (Tuple2[A, B], error) {
	var t Tuple2[A, B]
	if err := checkWidth(r, 2); err != nil {
		return t, err
	}
	var err error
	if t.V1, err = Get[A](r[0]); err != nil {
		return t, fmt.Errorf("column 1: %w", err)
	}
	if t.V2, err = Get[B](r[1]); err != nil {
		return t, fmt.Errorf("column 2: %w", err)
	}
	return t, nil
}

// Scan3 converts a three-column row.
func Scan3[A, B, C Scalar](r Row) (Tuple3[A, B, C], error) {
	var t Tuple3[A, B, C]
	if err := checkWidth(r, 3); err != nil {
		return t, err
	}
	var err error
	if t.V1, err = Get[A](r[0]); err != nil {
		return t, fmt.Errorf("column 1: %w", err)
	}
	if t.V2, err = Get[B](r[1]); err != nil {
		return t, fmt.Errorf("column 2: %w", err)
	}
	if t.V3, err = Get[C](r[2]); err != nil {
		return t, fmt.Errorf("column 3: %w", err)
	}
	return t, nil
}

func checkWidth(r Row, n int) error {
	if len(r) != n {
		return fmt.Errorf("%w: row has %d columns, want %d", ErrColumnCount, len(r), n)
	}
	return nil
}
