package expr

import (
	"fmt"

	"github.com/mesh-intelligence/typedsql/pkg/schema"
	"github.com/mesh-intelligence/typedsql/pkg/types"
)

type flags uint8

const (
	// flagCompound marks operator results; they are parenthesized when used
	// as an operand of another operator.
	flagCompound flags = 1 << iota
	// flagAggregate marks an expression containing an aggregate call that is
	// not windowed.
	flagAggregate
	// flagWindowable marks a bare aggregate or window function call, the only
	// expressions Over accepts.
	flagWindowable
	// flagNeedsOver marks an expression containing a window function that was
	// never given an OVER clause.
	flagNeedsOver
	// flagWindow marks an expression containing an OVER clause.
	flagWindow
)

// Expr is a typed SQL fragment. It carries its result kind, the columns it
// references, and the parameters bound to its placeholders in order.
//
// An Expr is immutable. Every combinator returns a new value with freshly
// allocated column and parameter slices, so a sub-expression can be shared
// between any number of statements.
//
// Composition never panics. The first invalid composition is recorded in Err
// and carried through every expression and statement built from it.
type Expr struct {
	sql     string
	kind    types.Kind
	label   string
	alias   string
	columns []*schema.Column
	tables  []*schema.Table
	params  []any
	flags   flags
	err     error
}

// SQL returns the rendered fragment with ? placeholders.
func (e Expr) SQL() string { return e.sql }

// Kind returns the result kind.
func (e Expr) Kind() types.Kind { return e.kind }

// Label returns the projection label: the name given with As, the column
// name for a bare column reference, or "".
func (e Expr) Label() string {
	if e.alias != "" {
		return e.alias
	}
	return e.label
}

// Alias returns the name given with As, or "".
func (e Expr) Alias() string { return e.alias }

// Columns returns the referenced columns in left-to-right order.
func (e Expr) Columns() []*schema.Column {
	return append([]*schema.Column(nil), e.columns...)
}

// Tables returns the tables read by subqueries nested in the expression.
func (e Expr) Tables() []*schema.Table {
	return append([]*schema.Table(nil), e.tables...)
}

// Params returns the bound parameters in placeholder order.
func (e Expr) Params() []any {
	return append([]any(nil), e.params...)
}

// Err returns the first composition error, if any.
func (e Expr) Err() error { return e.err }

// IsAggregate reports whether the expression contains an aggregate call
// outside an OVER clause.
func (e Expr) IsAggregate() bool { return e.flags&flagAggregate != 0 }

// IsWindowed reports whether the expression contains an OVER clause.
func (e Expr) IsWindowed() bool { return e.flags&flagWindow != 0 }

// NeedsOver reports whether the expression contains a window function that
// was not given an OVER clause.
func (e Expr) NeedsOver() bool { return e.flags&flagNeedsOver != 0 }

// String returns the SQL fragment.
func (e Expr) String() string { return e.sql }

// As labels the expression for use in a projection, rendered as
// "expr AS label".
func (e Expr) As(label string) Expr {
	if !schema.ValidName(label) {
		return e.fail(fmt.Errorf("%w: label %q", types.ErrInvalidName, label))
	}
	e.alias = label
	return e
}

func (e Expr) fail(err error) Expr {
	if e.err == nil {
		e.err = err
	}
	return e
}

// operand renders e for use inside an operator, parenthesizing compound
// fragments.
func (e Expr) operand() string {
	if e.flags&flagCompound != 0 {
		return "(" + e.sql + ")"
	}
	return e.sql
}

// node builds an expression over operands whose fragments appear in sql in
// the order given. Columns and params are concatenated into fresh slices and
// the first operand error wins.
func node(sql string, kind types.Kind, operands ...Expr) Expr {
	out := Expr{sql: sql, kind: kind}
	var nc, np int
	for _, o := range operands {
		nc += len(o.columns)
		np += len(o.params)
	}
	if nc > 0 {
		out.columns = make([]*schema.Column, 0, nc)
	}
	if np > 0 {
		out.params = make([]any, 0, np)
	}
	for _, o := range operands {
		out.columns = append(out.columns, o.columns...)
		out.tables = append(out.tables, o.tables...)
		out.params = append(out.params, o.params...)
		out.flags |= o.flags &^ (flagCompound | flagWindowable)
		if out.err == nil {
			out.err = o.err
		}
	}
	return out
}

// compound is node for operator results.
func compound(sql string, kind types.Kind, operands ...Expr) Expr {
	out := node(sql, kind, operands...)
	out.flags |= flagCompound
	return out
}

// Lit wraps a host value as a single ? parameter. The kind is inferred from
// the Go type; an unsupported type records ErrUnsupportedValue.
func Lit(v any) Expr {
	kind, err := types.KindOf(v)
	e := Expr{sql: "?", kind: kind, params: []any{v}}
	if err != nil {
		e.kind = types.KindInvalid
		e.err = err
	}
	return e
}

// Null returns the NULL literal. It is compatible with every kind.
func Null() Expr {
	return Expr{sql: "NULL", kind: types.KindNull}
}

// Col references a column, qualified by its table name or alias.
func Col(c *schema.Column) Expr {
	if c == nil {
		return Expr{kind: types.KindInvalid, err: fmt.Errorf("%w: nil column", types.ErrUnknownColumn)}
	}
	e := Expr{sql: c.QualifiedName(), kind: c.Kind(), label: c.Name(), columns: []*schema.Column{c}}
	if c.Table() == nil {
		e.err = fmt.Errorf("%w: column %s is not part of a table", types.ErrUnknownColumn, c.Name())
	}
	return e
}

// Name references a column by its bare name, as needed in SET lists and
// conflict targets.
func Name(c *schema.Column) Expr {
	e := Col(c)
	if c != nil {
		e.sql = c.Name()
	}
	return e
}

// Raw wraps a trusted SQL fragment. params must match its placeholders.
// Raw fragments are opaque: their columns are not scope-checked.
func Raw(sql string, kind types.Kind, params ...any) Expr {
	return Expr{sql: sql, kind: kind, params: append([]any(nil), params...), flags: flagCompound}
}

// Of coerces an operand: an Expr or Cond is used as is, a *schema.Column
// becomes Col, and anything else becomes Lit.
func Of(v any) Expr {
	switch x := v.(type) {
	case Expr:
		return x
	case Cond:
		return x.Expr
	case *schema.Column:
		return Col(x)
	}
	return Lit(v)
}

func ofAll(vs []any) []Expr {
	out := make([]Expr, len(vs))
	for i, v := range vs {
		out[i] = Of(v)
	}
	return out
}

func mismatch(op string, kinds ...types.Kind) error {
	return fmt.Errorf("%w: %s on %v", types.ErrKindMismatch, op, kinds)
}
