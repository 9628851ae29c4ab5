package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/typedsql/pkg/expr"
	"github.com/mesh-intelligence/typedsql/pkg/schema"
	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// SelectStmt builds a SELECT statement.
type SelectStmt struct {
	proj      []expr.Expr
	distinct  bool
	src       Source
	hasSrc    bool
	where     expr.Cond
	hasWhere  bool
	groupBy   []expr.Expr
	having    expr.Cond
	hasHaving bool
	orderBy   []expr.Order
	limit     int64
	hasLimit  bool
	offset    int64
	hasOffset bool
	err       error
}

// Select starts a SELECT over the projection. Items may be expressions,
// conditions, columns or host values.
func Select(proj ...any) SelectStmt {
	s := SelectStmt{proj: make([]expr.Expr, len(proj))}
	for i, p := range proj {
		s.proj[i] = expr.Of(p)
	}
	return s
}

// SelectDistinct starts a SELECT DISTINCT.
func SelectDistinct(proj ...any) SelectStmt {
	return Select(proj...).Distinct()
}

func (s SelectStmt) fail(err error) SelectStmt {
	if s.err == nil {
		s.err = err
	}
	return s
}

// Distinct returns the statement with DISTINCT.
func (s SelectStmt) Distinct() SelectStmt {
	s.distinct = true
	return s
}

// From sets the source to table t.
func (s SelectStmt) From(t *schema.Table) SelectStmt {
	return s.FromSource(From(t))
}

// FromSource sets the source.
func (s SelectStmt) FromSource(src Source) SelectStmt {
	s.src = src
	s.hasSrc = true
	return s
}

// Join adds an inner join to the source.
func (s SelectStmt) Join(t *schema.Table, on expr.Cond) SelectStmt {
	return s.joined(func(src Source) Source { return src.Join(t, on) })
}

// LeftJoin adds a left outer join to the source.
func (s SelectStmt) LeftJoin(t *schema.Table, on expr.Cond) SelectStmt {
	return s.joined(func(src Source) Source { return src.LeftJoin(t, on) })
}

// RightJoin adds a right outer join to the source.
func (s SelectStmt) RightJoin(t *schema.Table, on expr.Cond) SelectStmt {
	return s.joined(func(src Source) Source { return src.RightJoin(t, on) })
}

// FullJoin adds a full outer join to the source.
func (s SelectStmt) FullJoin(t *schema.Table, on expr.Cond) SelectStmt {
	return s.joined(func(src Source) Source { return src.FullJoin(t, on) })
}

// CrossJoin adds a cross join to the source.
func (s SelectStmt) CrossJoin(t *schema.Table) SelectStmt {
	return s.joined(func(src Source) Source { return src.CrossJoin(t) })
}

func (s SelectStmt) joined(f func(Source) Source) SelectStmt {
	if !s.hasSrc {
		return s.fail(fmt.Errorf("%w: join before FROM", types.ErrMissingSource))
	}
	s.src = f(s.src)
	return s
}

// Where adds a WHERE condition. Repeated calls are combined with AND.
func (s SelectStmt) Where(c expr.Cond) SelectStmt {
	s.where = andCond(s.where, s.hasWhere, c)
	s.hasWhere = true
	return s
}

// GroupBy appends grouping expressions.
func (s SelectStmt) GroupBy(vs ...any) SelectStmt {
	g := make([]expr.Expr, 0, len(s.groupBy)+len(vs))
	g = append(g, s.groupBy...)
	for _, v := range vs {
		g = append(g, expr.Of(v))
	}
	s.groupBy = g
	return s
}

// Having adds a HAVING condition. Repeated calls are combined with AND.
func (s SelectStmt) Having(c expr.Cond) SelectStmt {
	s.having = andCond(s.having, s.hasHaving, c)
	s.hasHaving = true
	return s
}

// OrderBy appends ordering terms.
func (s SelectStmt) OrderBy(terms ...expr.Order) SelectStmt {
	o := make([]expr.Order, 0, len(s.orderBy)+len(terms))
	o = append(o, s.orderBy...)
	o = append(o, terms...)
	s.orderBy = o
	return s
}

// Limit caps the number of rows returned.
func (s SelectStmt) Limit(n int64) SelectStmt {
	if n < 0 {
		return s.fail(fmt.Errorf("%w: LIMIT %d", types.ErrInvalidLimit, n))
	}
	s.limit = n
	s.hasLimit = true
	return s
}

// Offset skips the first n rows.
func (s SelectStmt) Offset(n int64) SelectStmt {
	if n < 0 {
		return s.fail(fmt.Errorf("%w: OFFSET %d", types.ErrInvalidLimit, n))
	}
	s.offset = n
	s.hasOffset = true
	return s
}

// LimitOffset sets both LIMIT and OFFSET.
func (s SelectStmt) LimitOffset(limit, offset int64) SelectStmt {
	return s.Limit(limit).Offset(offset)
}

// Projection returns the projection expressions.
func (s SelectStmt) Projection() []expr.Expr {
	return append([]expr.Expr(nil), s.proj...)
}

// Tables returns the source tables, then the tables of subqueries in the
// projection, WHERE, GROUP BY, HAVING and ORDER BY, in that order.
func (s SelectStmt) Tables() []*schema.Table {
	var out []*schema.Table
	for _, t := range s.src.Tables() {
		out = exprTables(out, t)
	}
	for _, j := range s.src.joins {
		out = exprTables(out, nil, j.on.Expr)
	}
	out = exprTables(out, nil, s.proj...)
	out = exprTables(out, nil, s.where.Expr)
	out = exprTables(out, nil, s.groupBy...)
	out = exprTables(out, nil, s.having.Expr)
	for _, o := range s.orderBy {
		out = exprTables(out, nil, o.Expr)
	}
	return out
}

// ResultKinds returns the kind of each projection element in order.
func (s SelectStmt) ResultKinds() []types.Kind {
	out := make([]types.Kind, len(s.proj))
	for i, p := range s.proj {
		out[i] = p.Kind()
	}
	return out
}

// Labels returns a unique name for each projection element: its alias, its
// column name, or colN. Repeated names get a numeric suffix.
func (s SelectStmt) Labels() []string {
	out := make([]string, len(s.proj))
	seen := make(map[string]int, len(s.proj))
	for i, p := range s.proj {
		l := p.Label()
		if l == "" {
			l = "col" + strconv.Itoa(i+1)
		}
		if n := seen[l]; n > 0 {
			seen[l] = n + 1
			l = l + "_" + strconv.Itoa(n+1)
		} else {
			seen[l] = 1
		}
		out[i] = l
	}
	return out
}

// Build validates the statement and renders
// SELECT [DISTINCT] proj [FROM src] [WHERE] [GROUP BY] [HAVING] [ORDER BY] [LIMIT [OFFSET]].
func (s SelectStmt) Build() (types.Statement, error) {
	if s.err != nil {
		return types.Statement{}, s.err
	}
	if len(s.proj) == 0 {
		return types.Statement{}, types.ErrEmptyProjection
	}
	if s.hasSrc && s.src.Err() != nil {
		return types.Statement{}, fmt.Errorf("FROM: %w", s.src.Err())
	}

	clauses := make([]clause, 0, len(s.proj)+len(s.groupBy)+len(s.orderBy)+2)
	for _, p := range s.proj {
		clauses = append(clauses, clause{name: "projection", e: p})
	}
	if s.hasWhere {
		clauses = append(clauses, clause{name: "WHERE", e: s.where.Expr, noAggregate: true, noWindow: true})
	}
	for _, g := range s.groupBy {
		clauses = append(clauses, clause{name: "GROUP BY", e: g, noAggregate: true, noWindow: true})
	}
	if s.hasHaving {
		clauses = append(clauses, clause{name: "HAVING", e: s.having.Expr, noWindow: true})
	}
	for _, o := range s.orderBy {
		clauses = append(clauses, clause{name: "ORDER BY", e: o.Expr})
	}

	var sc scope
	if s.hasSrc {
		sc = s.src.Tables()
	}
	if err := validate(sc, clauses); err != nil {
		if !s.hasSrc && isScopeErr(err) {
			return types.Statement{}, fmt.Errorf("%w: %v", types.ErrMissingSource, err)
		}
		return types.Statement{}, err
	}

	var b strings.Builder
	var params []any

	b.WriteString("SELECT ")
	if s.distinct {
		b.WriteString("DISTINCT ")
	}
	for i, p := range s.proj {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.SQL())
		if a := p.Alias(); a != "" {
			b.WriteString(" AS ")
			b.WriteString(a)
		}
		params = append(params, p.Params()...)
	}

	if s.hasSrc {
		from, fp := s.src.render()
		b.WriteString(" FROM ")
		b.WriteString(from)
		params = append(params, fp...)
	}
	if s.hasWhere {
		b.WriteString(" WHERE ")
		b.WriteString(s.where.SQL())
		params = append(params, s.where.Params()...)
	}
	if len(s.groupBy) > 0 {
		g := expr.List(s.groupBy)
		b.WriteString(" GROUP BY ")
		b.WriteString(g.SQL())
		params = append(params, g.Params()...)
	}
	if s.hasHaving {
		b.WriteString(" HAVING ")
		b.WriteString(s.having.SQL())
		params = append(params, s.having.Params()...)
	}
	if len(s.orderBy) > 0 {
		o := expr.OrderList(s.orderBy)
		b.WriteString(" ORDER BY ")
		b.WriteString(o.SQL())
		params = append(params, o.Params()...)
	}
	switch {
	case s.hasLimit:
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.FormatInt(s.limit, 10))
	case s.hasOffset:
		b.WriteString(" LIMIT -1")
	}
	if s.hasOffset {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.FormatInt(s.offset, 10))
	}

	return types.Statement{SQL: b.String(), Params: params, Kinds: s.ResultKinds()}, nil
}
