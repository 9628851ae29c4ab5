package query

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/typedsql/pkg/expr"
	"github.com/mesh-intelligence/typedsql/pkg/schema"
	"github.com/mesh-intelligence/typedsql/pkg/types"
)

type assignment struct {
	column *schema.Column
	value  expr.Expr
}

// UpdateStmt builds an UPDATE. Without Where it affects every row.
type UpdateStmt struct {
	table    *schema.Table
	sets     []assignment
	where    expr.Cond
	hasWhere bool
	policy   types.ConflictPolicy
}

// Update starts an UPDATE of t.
func Update(t *schema.Table) UpdateStmt {
	return UpdateStmt{table: t}
}

// Set appends an assignment. v may reference columns of the table.
func (s UpdateStmt) Set(c *schema.Column, v any) UpdateStmt {
	sets := make([]assignment, 0, len(s.sets)+1)
	sets = append(sets, s.sets...)
	s.sets = append(sets, assignment{column: c, value: expr.Of(v)})
	return s
}

// Where adds a WHERE condition. Repeated calls are combined with AND.
func (s UpdateStmt) Where(c expr.Cond) UpdateStmt {
	s.where = andCond(s.where, s.hasWhere, c)
	s.hasWhere = true
	return s
}

// Tables returns the target table, then the tables of subqueries in SET and
// WHERE.
func (s UpdateStmt) Tables() []*schema.Table {
	out := exprTables(nil, s.table)
	for _, a := range s.sets {
		out = exprTables(out, nil, a.value)
	}
	return exprTables(out, nil, s.where.Expr)
}

// Or sets the conflict policy, rendered UPDATE OR <policy>.
func (s UpdateStmt) Or(p types.ConflictPolicy) UpdateStmt {
	s.policy = p
	return s
}

// Build validates and renders UPDATE [OR p] t SET c = v, ... [WHERE ...].
// Params are the SET values in order, then WHERE.
func (s UpdateStmt) Build() (types.Statement, error) {
	t := s.table
	if t == nil {
		return types.Statement{}, fmt.Errorf("UPDATE: %w", types.ErrMissingSource)
	}
	if len(s.sets) == 0 {
		return types.Statement{}, fmt.Errorf("UPDATE %s: %w", t.Name(), types.ErrEmptySet)
	}
	cols := make([]*schema.Column, len(s.sets))
	for i, a := range s.sets {
		cols[i] = a.column
	}
	if err := checkTargets("UPDATE", t, cols); err != nil {
		return types.Statement{}, err
	}

	sc := scope{t}
	for _, a := range s.sets {
		if err := checkValue("UPDATE "+t.Name(), a.column, a.value); err != nil {
			return types.Statement{}, err
		}
		if err := sc.check("SET", a.value); err != nil {
			return types.Statement{}, err
		}
	}
	if s.hasWhere {
		err := validate(sc, []clause{{name: "WHERE", e: s.where.Expr, noAggregate: true, noWindow: true}})
		if err != nil {
			return types.Statement{}, err
		}
	}

	var b strings.Builder
	var params []any
	b.WriteString("UPDATE ")
	if kw := s.policy.Keyword(); kw != "" {
		b.WriteString("OR ")
		b.WriteString(kw)
		b.WriteString(" ")
	}
	b.WriteString(t.SourceSQL())
	b.WriteString(" SET ")
	for i, a := range s.sets {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.column.Name())
		b.WriteString(" = ")
		b.WriteString(a.value.SQL())
		params = append(params, a.value.Params()...)
	}
	if s.hasWhere {
		b.WriteString(" WHERE ")
		b.WriteString(s.where.SQL())
		params = append(params, s.where.Params()...)
	}
	return types.Statement{SQL: b.String(), Params: params}, nil
}

// DeleteStmt builds a DELETE. Without Where it removes every row.
type DeleteStmt struct {
	table    *schema.Table
	where    expr.Cond
	hasWhere bool
}

// Delete starts a DELETE from t.
func Delete(t *schema.Table) DeleteStmt {
	return DeleteStmt{table: t}
}

// Where adds a WHERE condition. Repeated calls are combined with AND.
func (s DeleteStmt) Where(c expr.Cond) DeleteStmt {
	s.where = andCond(s.where, s.hasWhere, c)
	s.hasWhere = true
	return s
}

// Tables returns the target table and the tables of subqueries in WHERE.
func (s DeleteStmt) Tables() []*schema.Table {
	return exprTables(nil, s.table, s.where.Expr)
}

// Build validates and renders DELETE FROM t [WHERE ...].
func (s DeleteStmt) Build() (types.Statement, error) {
	if s.table == nil {
		return types.Statement{}, fmt.Errorf("DELETE: %w", types.ErrMissingSource)
	}
	sql := "DELETE FROM " + s.table.SourceSQL()
	if !s.hasWhere {
		return types.Statement{SQL: sql}, nil
	}
	err := validate(scope{s.table}, []clause{{name: "WHERE", e: s.where.Expr, noAggregate: true, noWindow: true}})
	if err != nil {
		return types.Statement{}, err
	}
	return types.Statement{SQL: sql + " WHERE " + s.where.SQL(), Params: s.where.Params()}, nil
}
