package expr

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/typedsql/pkg/types"
)

func (e Expr) compare(op string, v any) Cond {
	r := Of(v)
	out := compound(e.operand()+" "+op+" "+r.operand(), types.KindBool, e, r)
	if !types.Comparable(e.kind, r.kind) {
		out = out.fail(mismatch(op, e.kind, r.kind))
	}
	return Cond{out}
}

// Eq renders e = v.
func (e Expr) Eq(v any) Cond { return e.compare("=", v) }

// Ne renders e <> v.
func (e Expr) Ne(v any) Cond { return e.compare("<>", v) }

// Lt renders e < v.
func (e Expr) Lt(v any) Cond { return e.compare("<", v) }

// Le renders e <= v.
func (e Expr) Le(v any) Cond { return e.compare("<=", v) }

// Gt renders e > v.
func (e Expr) Gt(v any) Cond { return e.compare(">", v) }

// Ge renders e >= v.
func (e Expr) Ge(v any) Cond { return e.compare(">=", v) }

// Is renders e IS v, a NULL-safe equality.
func (e Expr) Is(v any) Cond { return e.compare("IS", v) }

// IsNot renders e IS NOT v.
func (e Expr) IsNot(v any) Cond { return e.compare("IS NOT", v) }

func numericOperand(k types.Kind) bool {
	return k.Numeric() || k.Wildcard()
}

func (e Expr) arith(op string, v any) Expr {
	r := Of(v)
	out := compound(e.operand()+" "+op+" "+r.operand(), types.Arithmetic(e.kind, r.kind), e, r)
	if !numericOperand(e.kind) || !numericOperand(r.kind) {
		out = out.fail(mismatch(op, e.kind, r.kind))
	}
	return out
}

// Add renders e + v.
func (e Expr) Add(v any) Expr { return e.arith("+", v) }

// Sub renders e - v.
func (e Expr) Sub(v any) Expr { return e.arith("-", v) }

// Mul renders e * v.
func (e Expr) Mul(v any) Expr { return e.arith("*", v) }

// Div renders e / v. Division of two integers is integer division.
func (e Expr) Div(v any) Expr { return e.arith("/", v) }

// Mod renders e % v. The engine casts both operands to INTEGER.
func (e Expr) Mod(v any) Expr {
	out := e.arith("%", v)
	out.kind = types.KindInteger
	return out
}

// Concat renders e || v. Blobs are rejected.
func (e Expr) Concat(v any) Expr {
	r := Of(v)
	out := compound(e.operand()+" || "+r.operand(), types.KindText, e, r)
	if e.kind == types.KindBlob || r.kind == types.KindBlob {
		out = out.fail(mismatch("||", e.kind, r.kind))
	}
	return out
}

func textOperand(k types.Kind) bool {
	return k == types.KindText || k.Wildcard()
}

func (e Expr) match(op string, pattern any) Cond {
	r := Of(pattern)
	out := compound(e.operand()+" "+op+" "+r.operand(), types.KindBool, e, r)
	if !textOperand(e.kind) || !textOperand(r.kind) {
		out = out.fail(mismatch(op, e.kind, r.kind))
	}
	return Cond{out}
}

// Like renders e LIKE pattern.
func (e Expr) Like(pattern any) Cond { return e.match("LIKE", pattern) }

// NotLike renders e NOT LIKE pattern.
func (e Expr) NotLike(pattern any) Cond { return e.match("NOT LIKE", pattern) }

// Glob renders e GLOB pattern.
func (e Expr) Glob(pattern any) Cond { return e.match("GLOB", pattern) }

func (e Expr) in(op string, vs []any) Cond {
	items := ofAll(vs)
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.operand()
	}
	out := compound(e.operand()+" "+op+" ("+strings.Join(parts, ", ")+")",
		types.KindBool, append([]Expr{e}, items...)...)
	for _, it := range items {
		if !types.Comparable(e.kind, it.kind) {
			out = out.fail(mismatch(op, e.kind, it.kind))
			break
		}
	}
	return Cond{out}
}

// In renders e IN (v1, v2, ...).
func (e Expr) In(vs ...any) Cond { return e.in("IN", vs) }

// NotIn renders e NOT IN (v1, v2, ...).
func (e Expr) NotIn(vs ...any) Cond { return e.in("NOT IN", vs) }

// Between renders e BETWEEN lo AND hi.
func (e Expr) Between(lo, hi any) Cond {
	l, h := Of(lo), Of(hi)
	out := compound(e.operand()+" BETWEEN "+l.operand()+" AND "+h.operand(), types.KindBool, e, l, h)
	if !types.Comparable(e.kind, l.kind) || !types.Comparable(e.kind, h.kind) {
		out = out.fail(mismatch("BETWEEN", e.kind, l.kind, h.kind))
	}
	return Cond{out}
}

// IsNull renders e IS NULL.
func (e Expr) IsNull() Cond {
	return Cond{compound(e.operand()+" IS NULL", types.KindBool, e)}
}

// IsNotNull renders e IS NOT NULL.
func (e Expr) IsNotNull() Cond {
	return Cond{compound(e.operand()+" IS NOT NULL", types.KindBool, e)}
}

// Neg renders -(e).
func (e Expr) Neg() Expr {
	out := compound("-("+e.sql+")", e.kind, e)
	if e.kind == types.KindBool {
		out.kind = types.KindInteger
	}
	if !numericOperand(e.kind) {
		out = out.fail(mismatch("-", e.kind))
	}
	return out
}

// Cast renders CAST(e AS KIND). kind must be a declarable column kind.
func (e Expr) Cast(kind types.Kind) Expr {
	out := node("CAST("+e.sql+" AS "+kind.Keyword()+")", kind, e)
	if !kind.Declarable() {
		out = out.fail(fmt.Errorf("%w: CAST to %s", types.ErrInvalidKind, kind))
	}
	return out
}
