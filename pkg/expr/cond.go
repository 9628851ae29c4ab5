package expr

import (
	"fmt"

	"github.com/mesh-intelligence/typedsql/pkg/schema"
	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// Cond is a boolean expression usable in WHERE, HAVING, ON and CASE WHEN.
type Cond struct {
	Expr
}

// True returns the always-true condition 1.
func True() Cond {
	return Cond{Expr{sql: "1", kind: types.KindBool}}
}

// AsCond treats a numeric expression as a condition using the engine's
// truthiness rules.
func AsCond(v any) Cond {
	e := Of(v)
	if e.kind == types.KindBool {
		return Cond{e}
	}
	out := node(e.sql, types.KindBool, e)
	out.flags |= e.flags & flagCompound
	if !numericOperand(e.kind) {
		out = out.fail(mismatch("condition", e.kind))
	}
	return Cond{out}
}

// And renders (c) AND (o).
func (c Cond) And(o Cond) Cond {
	return Cond{compound("("+c.sql+") AND ("+o.sql+")", types.KindBool, c.Expr, o.Expr)}
}

// Or renders (c) OR (o).
func (c Cond) Or(o Cond) Cond {
	return Cond{compound("("+c.sql+") OR ("+o.sql+")", types.KindBool, c.Expr, o.Expr)}
}

// Not renders NOT (c).
func Not(c Cond) Cond {
	return Cond{compound("NOT ("+c.sql+")", types.KindBool, c.Expr)}
}

// AndAll folds conditions left to right with And. A single condition is
// returned unchanged; an empty list records ErrArity.
func AndAll(cs ...Cond) Cond {
	return fold("AND", cs, Cond.And)
}

// OrAll folds conditions left to right with Or.
func OrAll(cs ...Cond) Cond {
	return fold("OR", cs, Cond.Or)
}

func fold(op string, cs []Cond, f func(Cond, Cond) Cond) Cond {
	if len(cs) == 0 {
		return Cond{Expr{kind: types.KindBool, err: fmt.Errorf("%w: %s of no conditions", types.ErrArity, op)}}
	}
	out := cs[0]
	for _, c := range cs[1:] {
		out = f(out, c)
	}
	return out
}

// Subquery is a statement that can be embedded in an expression. Select
// statements from the query package implement it.
type Subquery interface {
	Build() (types.Statement, error)
	ResultKinds() []types.Kind
}

func subquery(q Subquery) (Expr, []types.Kind) {
	if q == nil {
		return Expr{err: fmt.Errorf("%w: nil subquery", types.ErrMissingSource)}, nil
	}
	st, err := q.Build()
	if err != nil {
		return Expr{err: fmt.Errorf("subquery: %w", err)}, nil
	}
	sub := Expr{sql: "(" + st.SQL + ")", params: st.Params}
	if refs, ok := q.(interface{ Tables() []*schema.Table }); ok {
		sub.tables = refs.Tables()
	}
	return sub, st.Kinds
}

func singleColumn(op string, q Subquery) (Expr, types.Kind) {
	sub, kinds := subquery(q)
	if sub.err != nil {
		return sub, types.KindInvalid
	}
	if len(kinds) != 1 {
		return sub.fail(fmt.Errorf("%w: %s subquery returns %d columns", types.ErrColumnCount, op, len(kinds))),
			types.KindInvalid
	}
	sub.kind = kinds[0]
	return sub, kinds[0]
}

// Exists renders EXISTS (subquery).
func Exists(q Subquery) Cond {
	sub, _ := subquery(q)
	return Cond{node("EXISTS "+sub.sql, types.KindBool, sub)}
}

// InQuery renders e IN (subquery). The subquery must return one column
// comparable to e.
func (e Expr) InQuery(q Subquery) Cond {
	sub, kind := singleColumn("IN", q)
	out := compound(e.operand()+" IN "+sub.sql, types.KindBool, e, sub)
	if sub.err == nil && !types.Comparable(e.kind, kind) {
		out = out.fail(mismatch("IN", e.kind, kind))
	}
	return Cond{out}
}

// Scalar embeds a one-column subquery as a value.
func Scalar(q Subquery) Expr {
	sub, kind := singleColumn("scalar", q)
	return node(sub.sql, kind, sub)
}
