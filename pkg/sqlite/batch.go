package sqlite

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/typedsql/internal/sqlite"
	"github.com/mesh-intelligence/typedsql/pkg/query"
	"github.com/mesh-intelligence/typedsql/pkg/schema"
	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// InsertMany inserts rows into t in one transaction with one prepared
// INSERT. cols defaults to every column of t. Each row is checked like a
// single-row Insert before anything runs; a failing row rolls back the
// whole batch. It returns the number of rows inserted.
func (r *Registry) InsertMany(ctx context.Context, t *schema.Table, cols []*schema.Column, rows [][]any) (int64, error) {
	if _, err := r.conn(); err != nil {
		return 0, err
	}
	sqlText, params, err := compileBatch(r.declared, t, cols, rows)
	if err != nil || len(params) == 0 {
		return 0, err
	}

	var n int64
	err = r.InTx(ctx, func(tx *Tx) error {
		var err error
		n, err = sqlite.ExecBatch(ctx, tx.tx, sqlText, params)
		return err
	})
	if err != nil {
		return 0, err
	}
	r.logger.Debug("batch inserted", "table", t.Name(), "rows", n)
	return n, nil
}

// InsertMany inserts rows inside a savepoint of t, so a failing row undoes
// the batch without aborting the surrounding transaction.
func (t *Tx) InsertMany(ctx context.Context, table *schema.Table, cols []*schema.Column, rows [][]any) (int64, error) {
	sqlText, params, err := compileBatch(t.declared, table, cols, rows)
	if err != nil || len(params) == 0 {
		return 0, err
	}

	var n int64
	err = t.InTx(ctx, func(tx *Tx) error {
		var err error
		n, err = sqlite.ExecBatch(ctx, tx.tx, sqlText, params)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// compileBatch builds one INSERT per row and checks that they share SQL
// text, so the statement can be prepared once. The table must be declared.
func compileBatch(decl declaredSet, t *schema.Table, cols []*schema.Column, rows [][]any) (string, [][]any, error) {
	if t == nil {
		return "", nil, fmt.Errorf("INSERT: %w", types.ErrMissingSource)
	}
	ins := query.Insert(t).Columns(cols...)
	if err := decl.check(ins); err != nil {
		return "", nil, err
	}
	var (
		sqlText string
		params  = make([][]any, 0, len(rows))
	)
	for i, row := range rows {
		st, err := ins.Values(row...).Build()
		if err != nil {
			return "", nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if i == 0 {
			sqlText = st.SQL
		} else if st.SQL != sqlText {
			return "", nil, fmt.Errorf("row %d: %w: batch values must be host values", i+1, types.ErrUnsupportedValue)
		}
		params = append(params, st.Params)
	}
	return sqlText, params, nil
}
