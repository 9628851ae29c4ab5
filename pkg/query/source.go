package query

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/typedsql/pkg/expr"
	"github.com/mesh-intelligence/typedsql/pkg/schema"
	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// JoinKind selects the join operator.
type JoinKind int

// Join kinds.
const (
	InnerJoin JoinKind = iota
	LeftJoin
	RightJoin
	FullJoin
	CrossJoin
)

var joinKeywords = map[JoinKind]string{
	InnerJoin: "JOIN",
	LeftJoin:  "LEFT JOIN",
	RightJoin: "RIGHT JOIN",
	FullJoin:  "FULL JOIN",
	CrossJoin: "CROSS JOIN",
}

// String returns the SQL keyword of the join.
func (k JoinKind) String() string { return joinKeywords[k] }

type join struct {
	kind  JoinKind
	table *schema.Table
	on    expr.Cond
}

// Source is a FROM clause: a base table and joins in order.
type Source struct {
	base  *schema.Table
	joins []join
	err   error
}

// From starts a source at table t.
func From(t *schema.Table) Source {
	if t == nil {
		return Source{err: fmt.Errorf("%w: nil table", types.ErrMissingSource)}
	}
	return Source{base: t}
}

// Join adds an inner join.
func (s Source) Join(t *schema.Table, on expr.Cond) Source { return s.add(InnerJoin, t, on) }

// LeftJoin adds a left outer join.
func (s Source) LeftJoin(t *schema.Table, on expr.Cond) Source { return s.add(LeftJoin, t, on) }

// RightJoin adds a right outer join.
func (s Source) RightJoin(t *schema.Table, on expr.Cond) Source { return s.add(RightJoin, t, on) }

// FullJoin adds a full outer join.
func (s Source) FullJoin(t *schema.Table, on expr.Cond) Source { return s.add(FullJoin, t, on) }

// CrossJoin adds a cross join, which has no ON condition.
func (s Source) CrossJoin(t *schema.Table) Source { return s.add(CrossJoin, t, expr.Cond{}) }

func (s Source) add(kind JoinKind, t *schema.Table, on expr.Cond) Source {
	if s.err != nil {
		return s
	}
	if s.base == nil {
		s.err = fmt.Errorf("%w: join before FROM", types.ErrMissingSource)
		return s
	}
	if t == nil {
		s.err = fmt.Errorf("%w: nil table in %s", types.ErrMissingSource, kind)
		return s
	}
	for _, have := range s.Tables() {
		if strings.EqualFold(have.Ref(), t.Ref()) {
			s.err = fmt.Errorf("%w: %s joined twice; use Table.As", types.ErrDuplicateTable, t.Ref())
			return s
		}
	}
	if kind != CrossJoin {
		if err := on.Err(); err != nil {
			s.err = fmt.Errorf("%s %s ON: %w", kind, t.Ref(), err)
			return s
		}
		if on.IsAggregate() || on.IsWindowed() || on.NeedsOver() {
			s.err = fmt.Errorf("%w: %s in %s ON", types.ErrMisplacedAggregate, on.SQL(), kind)
			return s
		}
		if on.SQL() == "" {
			s.err = fmt.Errorf("%w: %s %s needs an ON condition", types.ErrArity, kind, t.Ref())
			return s
		}
		sc := append(scope(s.Tables()), t)
		if err := sc.check(kind.String()+" "+t.Ref()+" ON", on.Expr); err != nil {
			s.err = err
			return s
		}
	}
	joins := make([]join, 0, len(s.joins)+1)
	joins = append(joins, s.joins...)
	s.joins = append(joins, join{kind: kind, table: t, on: on})
	return s
}

// Tables returns the base table followed by joined tables.
func (s Source) Tables() []*schema.Table {
	if s.base == nil {
		return nil
	}
	out := make([]*schema.Table, 0, len(s.joins)+1)
	out = append(out, s.base)
	for _, j := range s.joins {
		out = append(out, j.table)
	}
	return out
}

// Err returns the first error recorded while composing the source.
func (s Source) Err() error { return s.err }

// render returns the FROM body with the ON conditions' params in join order.
func (s Source) render() (string, []any) {
	var b strings.Builder
	var params []any
	b.WriteString(s.base.SourceSQL())
	for _, j := range s.joins {
		b.WriteString(" ")
		b.WriteString(j.kind.String())
		b.WriteString(" ")
		b.WriteString(j.table.SourceSQL())
		if j.kind != CrossJoin {
			b.WriteString(" ON ")
			b.WriteString(j.on.SQL())
			params = append(params, j.on.Params()...)
		}
	}
	return b.String(), params
}
