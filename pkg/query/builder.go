package query

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/typedsql/pkg/expr"
	"github.com/mesh-intelligence/typedsql/pkg/schema"
	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// Builder is any statement that compiles to SQL and parameters.
type Builder interface {
	Build() (types.Statement, error)
}

// Query is a Builder that returns rows of known kinds.
type Query interface {
	Builder
	ResultKinds() []types.Kind
}

// TableReferencer is implemented by statements that read or write tables.
// Tables lists the base tables in the order the statement names them,
// including those read by nested subqueries.
type TableReferencer interface {
	Tables() []*schema.Table
}

// exprTables appends t's base table and the tables of es to out.
func exprTables(out []*schema.Table, t *schema.Table, es ...expr.Expr) []*schema.Table {
	if t != nil {
		out = append(out, t.Base())
	}
	for _, e := range es {
		out = append(out, e.Tables()...)
	}
	return out
}

// scope is the set of tables whose columns a clause may reference.
type scope []*schema.Table

func (s scope) has(c *schema.Column) bool {
	for _, t := range s {
		if t.Has(c) {
			return true
		}
	}
	return false
}

// check returns the first column of e that is not in scope.
func (s scope) check(clause string, e expr.Expr) error {
	for _, c := range e.Columns() {
		if !s.has(c) {
			return fmt.Errorf("%w: %s in %s", types.ErrUnknownColumn, c.QualifiedName(), clause)
		}
	}
	return nil
}

// clause is one validated piece of a statement.
type clause struct {
	name        string
	e           expr.Expr
	noAggregate bool
	noWindow    bool
}

// validate checks clauses in order: composition errors first, then
// placement rules, then column scope.
func validate(sc scope, clauses []clause) error {
	for _, c := range clauses {
		if err := c.e.Err(); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
		if c.e.SQL() == "" {
			return fmt.Errorf("%w: empty expression in %s", types.ErrArity, c.name)
		}
	}
	for _, c := range clauses {
		if c.e.NeedsOver() {
			return fmt.Errorf("%s: %w: %s", c.name, types.ErrMissingOver, c.e.SQL())
		}
		if (c.noAggregate && c.e.IsAggregate()) || (c.noWindow && c.e.IsWindowed()) {
			return fmt.Errorf("%w: %s in %s", types.ErrMisplacedAggregate, c.e.SQL(), c.name)
		}
	}
	for _, c := range clauses {
		if err := sc.check(c.name, c.e); err != nil {
			return err
		}
	}
	return nil
}

// andCond appends c to an existing condition. An empty operand yields an
// empty condition so that validate rejects the clause.
func andCond(prev expr.Cond, has bool, c expr.Cond) expr.Cond {
	if !has {
		return c
	}
	if prev.SQL() == "" || c.SQL() == "" {
		return expr.Cond{}
	}
	return prev.And(c)
}

func isScopeErr(err error) bool {
	return errors.Is(err, types.ErrUnknownColumn)
}
