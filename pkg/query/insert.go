package query

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/typedsql/pkg/expr"
	"github.com/mesh-intelligence/typedsql/pkg/schema"
	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// InsertStmt builds a single-row INSERT.
type InsertStmt struct {
	table   *schema.Table
	columns []*schema.Column
	values  []expr.Expr
	policy  types.ConflictPolicy
}

// Insert starts an INSERT into t. Without Columns, values bind to the
// table's declared columns in order.
func Insert(t *schema.Table) InsertStmt {
	return InsertStmt{table: t}
}

// Columns sets the inserted columns.
func (s InsertStmt) Columns(cols ...*schema.Column) InsertStmt {
	s.columns = append([]*schema.Column(nil), cols...)
	return s
}

// Values sets the inserted values, one per column.
func (s InsertStmt) Values(vs ...any) InsertStmt {
	s.values = make([]expr.Expr, len(vs))
	for i, v := range vs {
		s.values[i] = expr.Of(v)
	}
	return s
}

// Or sets the conflict policy, rendered INSERT OR <policy>.
func (s InsertStmt) Or(p types.ConflictPolicy) InsertStmt {
	s.policy = p
	return s
}

// Table returns the target table.
func (s InsertStmt) Table() *schema.Table { return s.table }

// Tables returns the target table and the tables of subqueries in VALUES.
func (s InsertStmt) Tables() []*schema.Table {
	return exprTables(nil, s.table, s.values...)
}

// TargetColumns returns the inserted columns, defaulting to all columns.
func (s InsertStmt) TargetColumns() []*schema.Column {
	if len(s.columns) == 0 && s.table != nil {
		return s.table.Columns()
	}
	return append([]*schema.Column(nil), s.columns...)
}

// Build validates and renders INSERT [OR p] INTO t (cols) VALUES (vals).
func (s InsertStmt) Build() (types.Statement, error) {
	var b strings.Builder
	params, err := s.render(&b)
	if err != nil {
		return types.Statement{}, err
	}
	return types.Statement{SQL: b.String(), Params: params}, nil
}

func (s InsertStmt) render(b *strings.Builder) ([]any, error) {
	if s.table == nil {
		return nil, fmt.Errorf("INSERT: %w", types.ErrMissingSource)
	}
	cols := s.TargetColumns()
	if err := checkTargets("INSERT", s.table, cols); err != nil {
		return nil, err
	}
	if len(s.values) != len(cols) {
		return nil, fmt.Errorf("INSERT INTO %s: %w: %d columns, %d values",
			s.table.Name(), types.ErrColumnCount, len(cols), len(s.values))
	}
	for i, v := range s.values {
		if err := checkValue("INSERT INTO "+s.table.Name(), cols[i], v); err != nil {
			return nil, err
		}
		if len(v.Columns()) > 0 {
			return nil, fmt.Errorf("%w: %s in VALUES", types.ErrUnknownColumn, v.Columns()[0].QualifiedName())
		}
	}

	var params []any
	b.WriteString("INSERT ")
	if kw := s.policy.Keyword(); kw != "" {
		b.WriteString("OR ")
		b.WriteString(kw)
		b.WriteString(" ")
	}
	b.WriteString("INTO ")
	b.WriteString(s.table.Base().Name())
	b.WriteString(" (")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name())
	}
	b.WriteString(") VALUES (")
	for i, v := range s.values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.SQL())
		params = append(params, v.Params()...)
	}
	b.WriteString(")")
	return params, nil
}

// checkTargets verifies cols are distinct columns of t.
func checkTargets(op string, t *schema.Table, cols []*schema.Column) error {
	seen := make(map[*schema.Column]bool, len(cols))
	for _, c := range cols {
		if c == nil || c.Base().Table() != t.Base() {
			name := "<nil>"
			if c != nil {
				name = c.QualifiedName()
			}
			return fmt.Errorf("%s %s: %w: %s", op, t.Name(), types.ErrUnknownColumn, name)
		}
		if seen[c.Base()] {
			return fmt.Errorf("%s %s: %w: %s", op, t.Name(), types.ErrDuplicateColumn, c.Name())
		}
		seen[c.Base()] = true
	}
	return nil
}

// checkValue verifies v is a valid, non-aggregate value assignable to c.
func checkValue(op string, c *schema.Column, v expr.Expr) error {
	if err := v.Err(); err != nil {
		return fmt.Errorf("%s value for %s: %w", op, c.Name(), err)
	}
	if v.IsAggregate() || v.IsWindowed() || v.NeedsOver() {
		return fmt.Errorf("%w: %s as value for %s", types.ErrMisplacedAggregate, v.SQL(), c.Name())
	}
	if !types.Assignable(c.Kind(), v.Kind()) {
		return fmt.Errorf("%s: %w: %s value for %s column %s", op, types.ErrKindMismatch, v.Kind(), c.Kind(), c.Name())
	}
	return nil
}

// UpsertStmt builds an INSERT that updates the existing row when the primary
// key conflicts.
type UpsertStmt struct {
	insert    InsertStmt
	update    []*schema.Column
	hasUpdate bool
}

// Upsert starts an upsert into t. t must have a primary key.
func Upsert(t *schema.Table) UpsertStmt {
	return UpsertStmt{insert: Insert(t)}
}

// Tables returns the tables of the underlying INSERT.
func (s UpsertStmt) Tables() []*schema.Table { return s.insert.Tables() }

// Columns sets the inserted columns.
func (s UpsertStmt) Columns(cols ...*schema.Column) UpsertStmt {
	s.insert = s.insert.Columns(cols...)
	return s
}

// Values sets the inserted values.
func (s UpsertStmt) Values(vs ...any) UpsertStmt {
	s.insert = s.insert.Values(vs...)
	return s
}

// UpdateColumns restricts the columns overwritten on conflict. By default
// every inserted non-key column is overwritten.
func (s UpsertStmt) UpdateColumns(cols ...*schema.Column) UpsertStmt {
	s.update = append([]*schema.Column(nil), cols...)
	s.hasUpdate = true
	return s
}

// Build renders INSERT ... ON CONFLICT (pk) DO UPDATE SET c = excluded.c, or
// DO NOTHING when there is nothing to update.
func (s UpsertStmt) Build() (types.Statement, error) {
	t := s.insert.table
	if t == nil {
		return types.Statement{}, fmt.Errorf("UPSERT: %w", types.ErrMissingSource)
	}
	pk := t.PrimaryKey()
	if len(pk) == 0 {
		return types.Statement{}, fmt.Errorf("UPSERT %s: %w", t.Name(), types.ErrNoPrimaryKey)
	}

	var b strings.Builder
	params, err := s.insert.render(&b)
	if err != nil {
		return types.Statement{}, err
	}

	isKey := make(map[*schema.Column]bool, len(pk))
	for _, c := range pk {
		isKey[c.Base()] = true
	}
	update := s.update
	if s.hasUpdate {
		if err := checkTargets("UPSERT", t, update); err != nil {
			return types.Statement{}, err
		}
	} else {
		update = nil
		for _, c := range s.insert.TargetColumns() {
			if !isKey[c.Base()] {
				update = append(update, c)
			}
		}
	}

	b.WriteString(" ON CONFLICT (")
	for i, c := range pk {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name())
	}
	b.WriteString(")")
	if len(update) == 0 {
		b.WriteString(" DO NOTHING")
	} else {
		b.WriteString(" DO UPDATE SET ")
		for i, c := range update {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(c.Name())
			b.WriteString(" = excluded.")
			b.WriteString(c.Name())
		}
	}
	return types.Statement{SQL: b.String(), Params: params}, nil
}
