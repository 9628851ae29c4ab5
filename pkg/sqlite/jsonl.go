package sqlite

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/mesh-intelligence/typedsql/internal/sqlite"
	"github.com/mesh-intelligence/typedsql/pkg/query"
	"github.com/mesh-intelligence/typedsql/pkg/schema"
)

// ExportJSONL runs sel and writes each row to w as one JSON object keyed by
// projection label, in projection order. Blobs are written as base64. It
// returns the number of rows written.
func (r *Registry) ExportJSONL(ctx context.Context, w io.Writer, sel query.SelectStmt) (int64, error) {
	rows, err := r.Query(ctx, sel)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	labels := sel.Labels()
	keys := make([][]byte, len(labels))
	for i, l := range labels {
		keys[i], _ = json.Marshal(l)
	}

	bw := bufio.NewWriter(w)
	var n int64
	for row, err := range rows.All() {
		if err != nil {
			return n, err
		}
		if err := writeObject(bw, keys, row.Values()); err != nil {
			return n, fmt.Errorf("writing row %d: %w", n+1, err)
		}
		n++
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("flushing jsonl: %w", err)
	}
	return n, nil
}

func writeObject(w *bufio.Writer, keys [][]byte, values []any) error {
	w.WriteByte('{')
	for i, v := range values {
		if i > 0 {
			w.WriteByte(',')
		}
		val, err := json.Marshal(v)
		if err != nil {
			return err
		}
		w.Write(keys[i])
		w.WriteByte(':')
		w.Write(val)
	}
	w.WriteByte('}')
	return w.WriteByte('\n')
}

// ExportJSONLFile writes the export of sel to path atomically: the file is
// replaced only after every row was written and synced.
func (r *Registry) ExportJSONLFile(ctx context.Context, path string, sel query.SelectStmt) (int64, error) {
	var n int64
	err := sqlite.WriteJSONLFile(path, func(w io.Writer) error {
		var err error
		n, err = r.ExportJSONL(ctx, w, sel)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ImportJSONL reads one JSON object per line from in and inserts them into
// t in one transaction. Blank and malformed lines are skipped; keys that name
// no column of t are ignored, and a record naming no column is skipped. A
// column missing from a record takes its declared default, while an explicit
// null inserts NULL. Consecutive records naming the same columns share one
// prepared INSERT.
func (r *Registry) ImportJSONL(ctx context.Context, t *schema.Table, in io.Reader) (int64, error) {
	if _, err := r.conn(); err != nil {
		return 0, err
	}
	records, err := sqlite.ReadJSONL(in)
	if err != nil {
		return 0, err
	}

	type run struct {
		cols []*schema.Column
		rows [][]any
	}
	var runs []run
	for _, rec := range records {
		// Keys are matched to columns case-insensitively.
		present := make(map[*schema.Column]any, len(rec.Fields))
		for k, v := range rec.Fields {
			if c, ok := t.Column(k); ok {
				present[c] = v
			}
		}
		if len(present) == 0 {
			continue
		}

		cols := make([]*schema.Column, 0, len(present))
		row := make([]any, 0, len(present))
		for _, c := range t.Columns() {
			raw, ok := present[c]
			if !ok {
				continue
			}
			v, err := sqlite.FromJSON(raw, c.Kind())
			if err != nil {
				return 0, fmt.Errorf("line %d: column %s: %w", rec.Line, c.Name(), err)
			}
			cols = append(cols, c)
			row = append(row, v)
		}
		if n := len(runs); n > 0 && slices.Equal(runs[n-1].cols, cols) {
			runs[n-1].rows = append(runs[n-1].rows, row)
		} else {
			runs = append(runs, run{cols: cols, rows: [][]any{row}})
		}
	}
	if len(runs) == 0 {
		return 0, nil
	}

	var total int64
	err = r.InTx(ctx, func(tx *Tx) error {
		for _, b := range runs {
			n, err := tx.InsertMany(ctx, t, b.cols, b.rows)
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	r.logger.Debug("imported jsonl", "table", t.Name(), "rows", total, "statements", len(runs))
	return total, nil
}
