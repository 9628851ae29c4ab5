package sqlite

import (
	"database/sql"
	"fmt"
	"iter"

	"github.com/mesh-intelligence/typedsql/internal/sqlite"
	"github.com/mesh-intelligence/typedsql/pkg/types"
)

type iteration int

const (
	notStarted iteration = iota
	stepping
	ranging
)

// Rows is a single-pass cursor over decoded result rows. Use either
// Next/Row or All, once; any second pass yields ErrRowsConsumed. Rows owns
// its prepared statement and closes it with the cursor.
type Rows struct {
	sql    string
	kinds  []types.Kind
	stmt   *sql.Stmt
	rows   *sql.Rows
	raw    []any
	dest   []any
	row    types.Row
	err    error
	mode   iteration
	closed bool
}

func newRows(st types.Statement, stmt *sql.Stmt, rows *sql.Rows) *Rows {
	r := &Rows{sql: st.SQL, kinds: st.Kinds, stmt: stmt, rows: rows}
	if cols, err := rows.Columns(); err == nil {
		r.raw = make([]any, len(cols))
		r.dest = make([]any, len(cols))
		for i := range r.raw {
			r.dest[i] = &r.raw[i]
		}
	} else {
		r.err = sqlite.Classify("query", st.SQL, err)
	}
	return r
}

// Kinds returns the declared kind of each result column.
func (r *Rows) Kinds() []types.Kind {
	return append([]types.Kind(nil), r.kinds...)
}

// Next advances to the next row. It returns false at the end of the result,
// on error, or when the rows were already ranged over with All.
func (r *Rows) Next() bool {
	if r.mode == ranging {
		r.err = types.ErrRowsConsumed
		return false
	}
	r.mode = stepping
	return r.step()
}

func (r *Rows) step() bool {
	r.row = nil
	if r.closed || r.err != nil {
		return false
	}
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			r.err = sqlite.Classify("query", r.sql, err)
		}
		r.Close()
		return false
	}
	if err := r.rows.Scan(r.dest...); err != nil {
		r.err = sqlite.Classify("query", r.sql, err)
		r.Close()
		return false
	}
	r.row = sqlite.DecodeRow(r.raw, r.kinds)
	return true
}

// Row returns the current row.
func (r *Rows) Row() types.Row { return r.row }

// Err returns the error, if any, that ended iteration.
func (r *Rows) Err() error { return r.err }

// Close releases the cursor and its statement. It is idempotent.
func (r *Rows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.rows.Close()
	if serr := r.stmt.Close(); err == nil {
		err = serr
	}
	if err != nil {
		return sqlite.Classify("query", r.sql, err)
	}
	return nil
}

// All returns an iterator over the remaining rows. The rows are closed when
// the loop ends, including on break. Ranging twice, or after Next, yields a
// single ErrRowsConsumed.
func (r *Rows) All() iter.Seq2[types.Row, error] {
	return func(yield func(types.Row, error) bool) {
		if r.mode != notStarted {
			yield(nil, types.ErrRowsConsumed)
			return
		}
		r.mode = ranging
		defer r.Close()

		for r.step() {
			if !yield(r.row, nil) {
				return
			}
		}
		if r.err != nil {
			yield(nil, r.err)
		}
	}
}

// Collect reads every row and closes the cursor.
func (r *Rows) Collect() ([]types.Row, error) {
	var out []types.Row
	for row, err := range r.All() {
		if err != nil {
			return out, err
		}
		out = append(out, row)
	}
	return out, nil
}

// Collect1 reads every row of a one-column result into tuples.
func Collect1[A types.Scalar](rows *Rows) ([]types.Tuple1[A], error) {
	return collect(rows, types.Scan1[A])
}

// Collect2 reads every row of a two-column result into tuples.
func Collect2[A, B types.Scalar](rows *Rows) ([]types.Tuple2[A, B], error) {
	return collect(rows, types.Scan2[A, B])
}

// Collect3 reads every row of a three-column result into tuples.
func Collect3[A, B, C types.Scalar](rows *Rows) ([]types.Tuple3[A, B, C], error) {
	return collect(rows, types.Scan3[A, B, C])
}

func collect[T any](rows *Rows, scan func(types.Row) (T, error)) ([]T, error) {
	var out []T
	i := 0
	for row, err := range rows.All() {
		if err != nil {
			return out, err
		}
		i++
		t, err := scan(row)
		if err != nil {
			return out, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}
