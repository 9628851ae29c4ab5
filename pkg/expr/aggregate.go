package expr

import (
	"fmt"

	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// aggregate builds an aggregate call. Arguments may not themselves contain
// aggregates or window function calls.
func aggregate(name string, kind types.Kind, distinct bool, args ...Expr) Expr {
	var out Expr
	if distinct && len(args) > 0 {
		first := args[0]
		first.sql = "DISTINCT " + first.sql
		out = call(name, kind, append([]Expr{first}, args[1:]...)...)
	} else {
		out = call(name, kind, args...)
	}
	for _, a := range args {
		if a.flags&(flagAggregate|flagWindow|flagNeedsOver) != 0 {
			out = out.fail(fmt.Errorf("%w: %s", types.ErrNestedAggregate, out.sql))
			break
		}
	}
	out.flags |= flagAggregate | flagWindowable
	return out
}

func sumKind(k types.Kind) types.Kind {
	if integral(k) && !k.Wildcard() {
		return types.KindInteger
	}
	if k == types.KindNumeric || k.Wildcard() {
		return types.KindNumeric
	}
	return types.KindReal
}

// Count renders COUNT(x), the number of non-NULL values.
func Count(x any) Expr {
	return aggregate("COUNT", types.KindInteger, false, Of(x))
}

// CountAll renders COUNT(*).
func CountAll() Expr {
	return Expr{
		sql:   "COUNT(*)",
		kind:  types.KindInteger,
		flags: flagAggregate | flagWindowable,
	}
}

// CountDistinct renders COUNT(DISTINCT x).
func CountDistinct(x any) Expr {
	return aggregate("COUNT", types.KindInteger, true, Of(x))
}

// Sum renders SUM(x). Integer input sums to an integer.
func Sum(x any) Expr {
	e := Of(x)
	return checked(aggregate("SUM", sumKind(e.kind), false, e), "SUM", []Expr{e}, numericOperand)
}

// SumDistinct renders SUM(DISTINCT x).
func SumDistinct(x any) Expr {
	e := Of(x)
	return checked(aggregate("SUM", sumKind(e.kind), true, e), "SUM", []Expr{e}, numericOperand)
}

// Avg renders AVG(x).
func Avg(x any) Expr {
	e := Of(x)
	return checked(aggregate("AVG", types.KindReal, false, e), "AVG", []Expr{e}, numericOperand)
}

// AvgDistinct renders AVG(DISTINCT x).
func AvgDistinct(x any) Expr {
	e := Of(x)
	return checked(aggregate("AVG", types.KindReal, true, e), "AVG", []Expr{e}, numericOperand)
}

// Total renders TOTAL(x), a SUM that is 0.0 over no rows.
func Total(x any) Expr {
	e := Of(x)
	return checked(aggregate("TOTAL", types.KindReal, false, e), "TOTAL", []Expr{e}, numericOperand)
}

// Min renders the aggregate MIN(x).
func Min(x any) Expr {
	e := Of(x)
	return aggregate("MIN", e.kind, false, e)
}

// Max renders the aggregate MAX(x).
func Max(x any) Expr {
	e := Of(x)
	return aggregate("MAX", e.kind, false, e)
}

// GroupConcat renders GROUP_CONCAT(x) or GROUP_CONCAT(x, sep).
func GroupConcat(x any, sep ...any) Expr {
	args := ofAll(append([]any{x}, sep...))
	out := aggregate("GROUP_CONCAT", types.KindText, false, args...)
	out = checked(out, "GROUP_CONCAT", args[1:], textOperand)
	return arity(out, "GROUP_CONCAT", len(args), 1, 2)
}

// Median renders MEDIAN(x). The engine must be built with the percentile
// extension.
func Median(x any) Expr {
	e := Of(x)
	return checked(aggregate("MEDIAN", types.KindReal, false, e), "MEDIAN", []Expr{e}, numericOperand)
}

// Percentile renders PERCENTILE(x, p) with p in [0, 100].
func Percentile(x, p any) Expr {
	args := ofAll([]any{x, p})
	out := aggregate("PERCENTILE", types.KindReal, false, args...)
	return checked(out, "PERCENTILE", args, numericOperand)
}

// Window functions. Each must be given an OVER clause with Over before it
// can be used in a statement.

func window(name string, kind types.Kind, args ...Expr) Expr {
	out := call(name, kind, args...)
	out.flags |= flagNeedsOver | flagWindowable
	return out
}

// RowNumber renders ROW_NUMBER().
func RowNumber() Expr { return window("ROW_NUMBER", types.KindInteger) }

// Rank renders RANK().
func Rank() Expr { return window("RANK", types.KindInteger) }

// DenseRank renders DENSE_RANK().
func DenseRank() Expr { return window("DENSE_RANK", types.KindInteger) }

// PercentRank renders PERCENT_RANK().
func PercentRank() Expr { return window("PERCENT_RANK", types.KindReal) }

// CumeDist renders CUME_DIST().
func CumeDist() Expr { return window("CUME_DIST", types.KindReal) }

// Ntile renders NTILE(n).
func Ntile(n any) Expr {
	e := Of(n)
	return checked(window("NTILE", types.KindInteger, e), "NTILE", []Expr{e}, integral)
}

func offsetFunc(name string, x any, rest []any) Expr {
	e := Of(x)
	args := append([]Expr{e}, ofAll(rest)...)
	out := window(name, e.kind, args...)
	if len(args) > 1 {
		out = checked(out, name, args[1:2], integral)
	}
	if len(args) > 2 && !types.Comparable(e.kind, args[2].kind) {
		out = out.fail(mismatch(name, e.kind, args[2].kind))
	}
	return arity(out, name, len(args), 1, 3)
}

// Lag renders LAG(x [, offset [, default]]).
func Lag(x any, offsetAndDefault ...any) Expr { return offsetFunc("LAG", x, offsetAndDefault) }

// Lead renders LEAD(x [, offset [, default]]).
func Lead(x any, offsetAndDefault ...any) Expr { return offsetFunc("LEAD", x, offsetAndDefault) }

// FirstValue renders FIRST_VALUE(x).
func FirstValue(x any) Expr {
	e := Of(x)
	return window("FIRST_VALUE", e.kind, e)
}

// LastValue renders LAST_VALUE(x).
func LastValue(x any) Expr {
	e := Of(x)
	return window("LAST_VALUE", e.kind, e)
}

// NthValue renders NTH_VALUE(x, n).
func NthValue(x, n any) Expr {
	e, ne := Of(x), Of(n)
	return checked(window("NTH_VALUE", e.kind, e, ne), "NTH_VALUE", []Expr{ne}, integral)
}
