// This file runs compiled statements: every statement is prepared, bound,
// executed and closed, and a batch reuses one prepared INSERT.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// Preparer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Exec prepares, runs and closes a statement that returns no rows.
func Exec(ctx context.Context, p Preparer, st types.Statement) (types.Result, error) {
	args, err := Bind(st.Params)
	if err != nil {
		return types.Result{}, err
	}
	stmt, err := p.PrepareContext(ctx, st.SQL)
	if err != nil {
		return types.Result{}, Classify("prepare", st.SQL, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return types.Result{}, Classify("exec", st.SQL, err)
	}
	return result(res), nil
}

// Query prepares and runs a statement that returns rows. The caller closes
// the rows and then the statement.
func Query(ctx context.Context, p Preparer, st types.Statement) (*sql.Stmt, *sql.Rows, error) {
	args, err := Bind(st.Params)
	if err != nil {
		return nil, nil, err
	}
	stmt, err := p.PrepareContext(ctx, st.SQL)
	if err != nil {
		return nil, nil, Classify("prepare", st.SQL, err)
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		stmt.Close()
		return nil, nil, Classify("query", st.SQL, err)
	}
	return stmt, rows, nil
}

// ExecBatch prepares query once and executes it for every parameter row in
// order. It stops at the first failing row, reporting its position; the
// caller owns the surrounding transaction.
func ExecBatch(ctx context.Context, p Preparer, query string, rows [][]any) (int64, error) {
	stmt, err := p.PrepareContext(ctx, query)
	if err != nil {
		return 0, Classify("prepare", query, err)
	}
	defer stmt.Close()

	var n int64
	for i, params := range rows {
		args, err := Bind(params)
		if err != nil {
			return n, fmt.Errorf("row %d: %w", i+1, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return n, fmt.Errorf("row %d: %w", i+1, Classify("exec", query, err))
		}
		n++
	}
	return n, nil
}

func result(res sql.Result) types.Result {
	var out types.Result
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	return out
}
