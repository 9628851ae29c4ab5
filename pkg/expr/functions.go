package expr

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// call renders NAME(a, b, ...) over already-coerced arguments.
func call(name string, kind types.Kind, args ...Expr) Expr {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.sql
	}
	return node(name+"("+strings.Join(parts, ", ")+")", kind, args...)
}

// checked records a kind mismatch on out unless every argument satisfies ok.
func checked(out Expr, name string, args []Expr, ok func(types.Kind) bool) Expr {
	for _, a := range args {
		if !ok(a.kind) {
			kinds := make([]types.Kind, len(args))
			for i, x := range args {
				kinds[i] = x.kind
			}
			return out.fail(mismatch(name, kinds...))
		}
	}
	return out
}

// arity records ErrArity unless lo <= n <= hi. A negative hi is unbounded.
func arity(out Expr, name string, n, lo, hi int) Expr {
	if n < lo || (hi >= 0 && n > hi) {
		return out.fail(fmt.Errorf("%w: %s takes %s arguments, got %d", types.ErrArity, name, arityRange(lo, hi), n))
	}
	return out
}

func arityRange(lo, hi int) string {
	switch {
	case hi < 0:
		return fmt.Sprintf("at least %d", lo)
	case lo == hi:
		return fmt.Sprint(lo)
	}
	return fmt.Sprintf("%d to %d", lo, hi)
}

func notBlob(k types.Kind) bool { return k != types.KindBlob }

func textOrBlob(k types.Kind) bool { return textOperand(k) || k == types.KindBlob }

func integral(k types.Kind) bool {
	return k == types.KindInteger || k == types.KindBool || k.Wildcard()
}

// text calls a function whose arguments are all text and whose result is text.
func text(name string, vs ...any) Expr {
	args := ofAll(vs)
	return checked(call(name, types.KindText, args...), name, args, textOperand)
}

// realFunc calls a numeric function returning REAL.
func realFunc(name string, vs ...any) Expr {
	args := ofAll(vs)
	return checked(call(name, types.KindReal, args...), name, args, numericOperand)
}

// String functions.

// Upper renders UPPER(x).
func Upper(x any) Expr { return text("UPPER", x) }

// Lower renders LOWER(x).
func Lower(x any) Expr { return text("LOWER", x) }

// Trim renders TRIM(x) or TRIM(x, chars).
func Trim(x any, chars ...any) Expr {
	return arity(text("TRIM", append([]any{x}, chars...)...), "TRIM", 1+len(chars), 1, 2)
}

// LTrim renders LTRIM(x) or LTRIM(x, chars).
func LTrim(x any, chars ...any) Expr {
	return arity(text("LTRIM", append([]any{x}, chars...)...), "LTRIM", 1+len(chars), 1, 2)
}

// RTrim renders RTRIM(x) or RTRIM(x, chars).
func RTrim(x any, chars ...any) Expr {
	return arity(text("RTRIM", append([]any{x}, chars...)...), "RTRIM", 1+len(chars), 1, 2)
}

// Substr renders SUBSTR(x, start) or SUBSTR(x, start, length). Positions
// are 1-based. The result has the kind of x.
func Substr(x, start any, length ...any) Expr {
	s := Of(x)
	rest := ofAll(append([]any{start}, length...))
	out := call("SUBSTR", s.kind, append([]Expr{s}, rest...)...)
	out = checked(out, "SUBSTR", []Expr{s}, textOrBlob)
	out = checked(out, "SUBSTR", rest, integral)
	return arity(out, "SUBSTR", 2+len(length), 2, 3)
}

// Replace renders REPLACE(x, from, to).
func Replace(x, from, to any) Expr { return text("REPLACE", x, from, to) }

// Instr renders INSTR(x, sub), the 1-based position of sub in x or 0.
func Instr(x, sub any) Expr {
	args := ofAll([]any{x, sub})
	out := call("INSTR", types.KindInteger, args...)
	return checked(out, "INSTR", args, textOrBlob)
}

// Length renders LENGTH(x): characters for text, bytes for blobs.
func Length(x any) Expr {
	return call("LENGTH", types.KindInteger, Of(x))
}

// Concat renders CONCAT(a, b, ...). NULL arguments are skipped.
func Concat(vs ...any) Expr {
	args := ofAll(vs)
	out := checked(call("CONCAT", types.KindText, args...), "CONCAT", args, notBlob)
	return arity(out, "CONCAT", len(args), 1, -1)
}

// ConcatWS renders CONCAT_WS(sep, a, b, ...).
func ConcatWS(sep any, vs ...any) Expr {
	s := Of(sep)
	args := ofAll(vs)
	out := call("CONCAT_WS", types.KindText, append([]Expr{s}, args...)...)
	out = checked(out, "CONCAT_WS", []Expr{s}, textOperand)
	out = checked(out, "CONCAT_WS", args, notBlob)
	return arity(out, "CONCAT_WS", len(args), 1, -1)
}

// Hex renders HEX(x).
func Hex(x any) Expr { return call("HEX", types.KindText, Of(x)) }

// Unicode renders UNICODE(x), the code point of the first character.
func Unicode(x any) Expr {
	args := []Expr{Of(x)}
	return checked(call("UNICODE", types.KindInteger, args...), "UNICODE", args, textOperand)
}

// Quote renders QUOTE(x), the SQL literal form of x.
func Quote(x any) Expr { return call("QUOTE", types.KindText, Of(x)) }

// Printf renders PRINTF(format, args...).
func Printf(format any, vs ...any) Expr {
	f := Of(format)
	out := call("PRINTF", types.KindText, append([]Expr{f}, ofAll(vs)...)...)
	return checked(out, "PRINTF", []Expr{f}, textOperand)
}

// Numeric functions.

// Abs renders ABS(x). The result keeps the kind of x.
func Abs(x any) Expr {
	args := []Expr{Of(x)}
	return checked(call("ABS", args[0].kind, args...), "ABS", args, numericOperand)
}

// Round renders ROUND(x) or ROUND(x, digits).
func Round(x any, digits ...any) Expr {
	return arity(realFunc("ROUND", append([]any{x}, digits...)...), "ROUND", 1+len(digits), 1, 2)
}

func rounding(name string, x any) Expr {
	args := []Expr{Of(x)}
	kind := types.KindReal
	if integral(args[0].kind) && !args[0].kind.Wildcard() {
		kind = types.KindInteger
	}
	return checked(call(name, kind, args...), name, args, numericOperand)
}

// Ceil renders CEIL(x). Integer arguments yield integers.
func Ceil(x any) Expr { return rounding("CEIL", x) }

// Floor renders FLOOR(x). Integer arguments yield integers.
func Floor(x any) Expr { return rounding("FLOOR", x) }

// Sign renders SIGN(x): -1, 0 or 1.
func Sign(x any) Expr {
	args := []Expr{Of(x)}
	return checked(call("SIGN", types.KindInteger, args...), "SIGN", args, numericOperand)
}

// Sqrt renders SQRT(x).
func Sqrt(x any) Expr { return realFunc("SQRT", x) }

// Exp renders EXP(x).
func Exp(x any) Expr { return realFunc("EXP", x) }

// Ln renders LN(x).
func Ln(x any) Expr { return realFunc("LN", x) }

// Log renders LOG(x), the base-10 logarithm, or LOG(base, x).
func Log(x any, base ...any) Expr {
	if len(base) > 0 {
		return arity(realFunc("LOG", append(append([]any(nil), base...), x)...), "LOG", 1+len(base), 1, 2)
	}
	return realFunc("LOG", x)
}

// Log10 renders LOG10(x).
func Log10(x any) Expr { return realFunc("LOG10", x) }

// Log2 renders LOG2(x).
func Log2(x any) Expr { return realFunc("LOG2", x) }

// Pow renders POW(x, y).
func Pow(x, y any) Expr { return realFunc("POW", x, y) }

// Sin renders SIN(x).
func Sin(x any) Expr { return realFunc("SIN", x) }

// Cos renders COS(x).
func Cos(x any) Expr { return realFunc("COS", x) }

// Tan renders TAN(x).
func Tan(x any) Expr { return realFunc("TAN", x) }

// Asin renders ASIN(x).
func Asin(x any) Expr { return realFunc("ASIN", x) }

// Acos renders ACOS(x).
func Acos(x any) Expr { return realFunc("ACOS", x) }

// Atan renders ATAN(x).
func Atan(x any) Expr { return realFunc("ATAN", x) }

// Atan2 renders ATAN2(y, x).
func Atan2(y, x any) Expr { return realFunc("ATAN2", y, x) }

// Pi renders PI().
func Pi() Expr { return call("PI", types.KindReal) }

// ModOf renders MOD(x, y), the floating point remainder.
func ModOf(x, y any) Expr { return realFunc("MOD", x, y) }

// Random renders RANDOM(), a pseudo-random 64-bit integer.
func Random() Expr { return call("RANDOM", types.KindInteger) }

// MinOf renders the scalar MIN(a, b, ...) over two or more values.
func MinOf(vs ...any) Expr { return extremum("MIN", vs) }

// MaxOf renders the scalar MAX(a, b, ...) over two or more values.
func MaxOf(vs ...any) Expr { return extremum("MAX", vs) }

func extremum(name string, vs []any) Expr {
	args := ofAll(vs)
	kinds := make([]types.Kind, len(args))
	for i, a := range args {
		kinds[i] = a.kind
	}
	out := call(name, types.Unify(kinds...), args...)
	for _, a := range args[min(1, len(args)):] {
		if !types.Comparable(args[0].kind, a.kind) {
			out = out.fail(mismatch(name, kinds...))
			break
		}
	}
	return arity(out, name, len(args), 2, -1)
}

// Date and time functions. Time values are text, julian day numbers or
// unix times; modifiers are text such as "+1 day" or "start of month".

func timeFunc(name string, kind types.Kind, pre []Expr, value any, modifiers []any) Expr {
	v := Of(value)
	mods := ofAll(modifiers)
	args := append(append(append([]Expr(nil), pre...), v), mods...)
	out := call(name, kind, args...)
	out = checked(out, name, pre, textOperand)
	out = checked(out, name, []Expr{v}, notBlob)
	return checked(out, name, mods, textOperand)
}

// Date renders DATE(value, modifiers...) as YYYY-MM-DD.
func Date(value any, modifiers ...any) Expr {
	return timeFunc("DATE", types.KindText, nil, value, modifiers)
}

// Time renders TIME(value, modifiers...) as HH:MM:SS.
func Time(value any, modifiers ...any) Expr {
	return timeFunc("TIME", types.KindText, nil, value, modifiers)
}

// DateTime renders DATETIME(value, modifiers...) as YYYY-MM-DD HH:MM:SS.
func DateTime(value any, modifiers ...any) Expr {
	return timeFunc("DATETIME", types.KindText, nil, value, modifiers)
}

// JulianDay renders JULIANDAY(value, modifiers...).
func JulianDay(value any, modifiers ...any) Expr {
	return timeFunc("JULIANDAY", types.KindReal, nil, value, modifiers)
}

// UnixEpoch renders UNIXEPOCH(value, modifiers...).
func UnixEpoch(value any, modifiers ...any) Expr {
	return timeFunc("UNIXEPOCH", types.KindInteger, nil, value, modifiers)
}

// Strftime renders STRFTIME(format, value, modifiers...).
func Strftime(format, value any, modifiers ...any) Expr {
	return timeFunc("STRFTIME", types.KindText, []Expr{Of(format)}, value, modifiers)
}

// Conditional functions.

func alternatives(name string, args []Expr) Expr {
	kinds := make([]types.Kind, len(args))
	for i, a := range args {
		kinds[i] = a.kind
	}
	out := call(name, types.Unify(kinds...), args...)
	for _, a := range args[min(1, len(args)):] {
		if !types.Comparable(args[0].kind, a.kind) {
			return out.fail(mismatch(name, kinds...))
		}
	}
	return out
}

// Coalesce renders COALESCE(a, b, ...), the first non-NULL argument.
func Coalesce(vs ...any) Expr {
	return arity(alternatives("COALESCE", ofAll(vs)), "COALESCE", len(vs), 2, -1)
}

// IfNull renders IFNULL(x, fallback).
func IfNull(x, fallback any) Expr {
	return alternatives("IFNULL", ofAll([]any{x, fallback}))
}

// NullIf renders NULLIF(a, b): NULL when a = b, else a.
func NullIf(a, b any) Expr {
	x, y := Of(a), Of(b)
	out := call("NULLIF", x.kind, x, y)
	if !types.Comparable(x.kind, y.kind) {
		out = out.fail(mismatch("NULLIF", x.kind, y.kind))
	}
	return out
}

// IIf renders IIF(cond, then, otherwise).
func IIf(cond Cond, then, otherwise any) Expr {
	branches := alternatives("IIF", ofAll([]any{then, otherwise}))
	out := call("IIF", branches.kind, cond.Expr, Of(then), Of(otherwise))
	if branches.err != nil {
		out = out.fail(branches.err)
	}
	return out
}

// If is IIf. It renders IIF, which every supported engine version accepts.
func If(cond Cond, then, otherwise any) Expr { return IIf(cond, then, otherwise) }

// CaseBuilder assembles CASE [operand] WHEN ... THEN ... [ELSE ...] END.
type CaseBuilder struct {
	operand *Expr
	whens   []Expr
	thens   []Expr
	els     *Expr
}

// Case starts a searched CASE whose WHEN arms are conditions.
func Case() CaseBuilder { return CaseBuilder{} }

// CaseOf starts a simple CASE comparing operand against each WHEN value.
func CaseOf(operand any) CaseBuilder {
	op := Of(operand)
	return CaseBuilder{operand: &op}
}

// When returns the builder with an arm appended.
func (b CaseBuilder) When(when, then any) CaseBuilder {
	b.whens = append(append([]Expr(nil), b.whens...), Of(when))
	b.thens = append(append([]Expr(nil), b.thens...), Of(then))
	return b
}

// Else returns the builder with an ELSE arm.
func (b CaseBuilder) Else(v any) CaseBuilder {
	e := Of(v)
	b.els = &e
	return b
}

// End renders the CASE expression. Params follow the operand, each WHEN and
// THEN in arm order, then ELSE.
func (b CaseBuilder) End() Expr {
	var sb strings.Builder
	var operands []Expr
	sb.WriteString("CASE")
	if b.operand != nil {
		sb.WriteString(" " + b.operand.sql)
		operands = append(operands, *b.operand)
	}
	results := make([]types.Kind, 0, len(b.thens)+1)
	for i := range b.whens {
		sb.WriteString(" WHEN " + b.whens[i].sql + " THEN " + b.thens[i].sql)
		operands = append(operands, b.whens[i], b.thens[i])
		results = append(results, b.thens[i].kind)
	}
	if b.els != nil {
		sb.WriteString(" ELSE " + b.els.sql)
		operands = append(operands, *b.els)
		results = append(results, b.els.kind)
	}
	sb.WriteString(" END")

	out := node(sb.String(), types.Unify(results...), operands...)
	if len(b.whens) == 0 {
		return out.fail(fmt.Errorf("%w: CASE without WHEN", types.ErrArity))
	}
	for i, w := range b.whens {
		if b.operand != nil && !types.Comparable(b.operand.kind, w.kind) {
			return out.fail(mismatch("CASE WHEN", b.operand.kind, w.kind))
		}
		if b.operand == nil && !numericOperand(w.kind) {
			return out.fail(mismatch("CASE WHEN", w.kind))
		}
		if !types.Comparable(results[0], b.thens[i].kind) {
			return out.fail(mismatch("CASE THEN", results...))
		}
	}
	if b.els != nil && !types.Comparable(results[0], b.els.kind) {
		return out.fail(mismatch("CASE ELSE", results...))
	}
	return out
}
