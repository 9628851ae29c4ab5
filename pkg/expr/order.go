package expr

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// Order is an ORDER BY term.
type Order struct {
	Expr  Expr
	Dir   types.SortOrder
	Nulls NullsOrder
}

// NullsOrder places NULLs before or after other values.
type NullsOrder int

// Null placements. NullsDefault leaves the engine default.
const (
	NullsDefault NullsOrder = iota
	NullsFirst
	NullsLast
)

// By orders by v in the default direction.
func By(v any) Order { return Order{Expr: Of(v)} }

// Asc orders by v ascending.
func Asc(v any) Order { return Order{Expr: Of(v), Dir: types.SortAsc} }

// Desc orders by v descending.
func Desc(v any) Order { return Order{Expr: Of(v), Dir: types.SortDesc} }

// Asc orders by e ascending.
func (e Expr) Asc() Order { return Order{Expr: e, Dir: types.SortAsc} }

// Desc orders by e descending.
func (e Expr) Desc() Order { return Order{Expr: e, Dir: types.SortDesc} }

// NullsFirst returns the term with NULLS FIRST.
func (o Order) NullsFirst() Order {
	o.Nulls = NullsFirst
	return o
}

// NullsLast returns the term with NULLS LAST.
func (o Order) NullsLast() Order {
	o.Nulls = NullsLast
	return o
}

// SQL renders the term.
func (o Order) SQL() string {
	s := o.Expr.sql
	if kw := o.Dir.Keyword(); kw != "" {
		s += " " + kw
	}
	switch o.Nulls {
	case NullsFirst:
		s += " NULLS FIRST"
	case NullsLast:
		s += " NULLS LAST"
	}
	return s
}

// OrderList renders terms as a comma-separated list and merges their
// columns, params and errors into one expression of kind KindAny.
func OrderList(terms []Order) Expr {
	parts := make([]string, len(terms))
	exprs := make([]Expr, len(terms))
	for i, t := range terms {
		parts[i] = t.SQL()
		exprs[i] = t.Expr
	}
	return node(strings.Join(parts, ", "), types.KindAny, exprs...)
}

// List renders expressions comma-separated and merges them the same way.
func List(es []Expr) Expr {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.sql
	}
	return node(strings.Join(parts, ", "), types.KindAny, es...)
}

// WindowSpec is the body of an OVER clause.
type WindowSpec struct {
	partition []Expr
	order     []Order
}

// Window returns an empty window, rendered OVER ().
func Window() WindowSpec { return WindowSpec{} }

// PartitionBy returns the window with partition expressions appended.
func (w WindowSpec) PartitionBy(vs ...any) WindowSpec {
	p := make([]Expr, 0, len(w.partition)+len(vs))
	p = append(p, w.partition...)
	p = append(p, ofAll(vs)...)
	w.partition = p
	return w
}

// OrderBy returns the window with ordering terms appended.
func (w WindowSpec) OrderBy(terms ...Order) WindowSpec {
	o := make([]Order, 0, len(w.order)+len(terms))
	o = append(o, w.order...)
	o = append(o, terms...)
	w.order = o
	return w
}

// Over applies a window to an aggregate or window function call:
// f(args) OVER (PARTITION BY ... ORDER BY ...). Params follow the call's,
// then the partition's, then the ordering's.
func (e Expr) Over(w WindowSpec) Expr {
	var clauses []string
	operands := []Expr{e}
	if len(w.partition) > 0 {
		p := List(w.partition)
		clauses = append(clauses, "PARTITION BY "+p.sql)
		operands = append(operands, p)
	}
	if len(w.order) > 0 {
		o := OrderList(w.order)
		clauses = append(clauses, "ORDER BY "+o.sql)
		operands = append(operands, o)
	}

	out := node(e.sql+" OVER ("+strings.Join(clauses, " ")+")", e.kind, operands...)
	out.flags &^= flagNeedsOver | flagAggregate
	out.flags |= flagWindow
	for _, p := range operands[1:] {
		out.flags |= p.flags & (flagAggregate | flagNeedsOver)
	}
	if e.flags&flagWindowable == 0 {
		out = out.fail(fmt.Errorf("%w: %s", types.ErrNotWindowable, e.sql))
	}
	return out
}
