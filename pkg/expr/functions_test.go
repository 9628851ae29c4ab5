package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/typedsql/pkg/types"
)

func TestScalarFunctions(t *testing.T) {
	f := newFixture()
	name, age, score := Col(f.name), Col(f.age), Col(f.score)

	tests := []struct {
		name   string
		e      Expr
		sql    string
		kind   types.Kind
		params []any
	}{
		{"upper", Upper(name), "UPPER(users.name)", types.KindText, nil},
		{"trim chars", Trim(name, "x"), "TRIM(users.name, ?)", types.KindText, []any{"x"}},
		{"substr", Substr(name, 1, 3), "SUBSTR(users.name, ?, ?)", types.KindText, []any{1, 3}},
		{"replace", Replace(name, "a", "b"), "REPLACE(users.name, ?, ?)", types.KindText, []any{"a", "b"}},
		{"instr", Instr(name, "li"), "INSTR(users.name, ?)", types.KindInteger, []any{"li"}},
		{"length", Length(name), "LENGTH(users.name)", types.KindInteger, nil},
		{"concat", Concat(name, ":", age), "CONCAT(users.name, ?, users.age)", types.KindText, []any{":"}},
		{"concat_ws", ConcatWS("-", name, age), "CONCAT_WS(?, users.name, users.age)", types.KindText, []any{"-"}},
		{"printf", Printf("%s is %d", name, age), "PRINTF(?, users.name, users.age)", types.KindText, []any{"%s is %d"}},
		{"abs", Abs(age.Neg()), "ABS(-(users.age))", types.KindInteger, nil},
		{"round", Round(score, 1), "ROUND(users.score, ?)", types.KindReal, []any{1}},
		{"ceil integer", Ceil(age), "CEIL(users.age)", types.KindInteger, nil},
		{"floor real", Floor(score), "FLOOR(users.score)", types.KindReal, nil},
		{"log base", Log(score, 2), "LOG(?, users.score)", types.KindReal, []any{2}},
		{"pow", Pow(age, 2), "POW(users.age, ?)", types.KindReal, []any{2}},
		{"atan2", Atan2(score, age), "ATAN2(users.score, users.age)", types.KindReal, nil},
		{"pi", Pi(), "PI()", types.KindReal, nil},
		{"max of", MaxOf(age, 18), "MAX(users.age, ?)", types.KindInteger, []any{18}},
		{"date", Date("now", "start of month"), "DATE(?, ?)", types.KindText, []any{"now", "start of month"}},
		{"strftime", Strftime("%Y", "now"), "STRFTIME(?, ?)", types.KindText, []any{"%Y", "now"}},
		{"julianday", JulianDay("2024-01-01"), "JULIANDAY(?)", types.KindReal, []any{"2024-01-01"}},
		{"unixepoch", UnixEpoch("now"), "UNIXEPOCH(?)", types.KindInteger, []any{"now"}},
		{"coalesce", Coalesce(name, "anon"), "COALESCE(users.name, ?)", types.KindText, []any{"anon"}},
		{"coalesce numeric", Coalesce(age, score, 0), "COALESCE(users.age, users.score, ?)", types.KindReal, []any{0}},
		{"ifnull", IfNull(score, 0.0), "IFNULL(users.score, ?)", types.KindReal, []any{0.0}},
		{"nullif", NullIf(age, 0), "NULLIF(users.age, ?)", types.KindInteger, []any{0}},
		{"iif", IIf(age.Ge(30), "senior", "junior"), "IIF(users.age >= ?, ?, ?)", types.KindText, []any{30, "senior", "junior"}},
		{"if renders iif", If(age.Ge(30), 1, 0), "IIF(users.age >= ?, ?, ?)", types.KindInteger, []any{30, 1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.e.Err())
			assert.Equal(t, tt.sql, tt.e.SQL())
			assert.Equal(t, tt.kind, tt.e.Kind())
			assert.Equal(t, tt.params, tt.e.Params())
		})
	}
}

func TestFunctionArity(t *testing.T) {
	f := newFixture()
	assert.ErrorIs(t, Coalesce(Col(f.age)).Err(), types.ErrArity)
	assert.ErrorIs(t, Trim(Col(f.name), "a", "b").Err(), types.ErrArity)
	assert.ErrorIs(t, Substr(Col(f.name), 1, 2, 3).Err(), types.ErrArity)
	assert.ErrorIs(t, MinOf(Col(f.age)).Err(), types.ErrArity)
	assert.ErrorIs(t, Lag(Col(f.age), 1, 0, 5).Err(), types.ErrArity)
	assert.ErrorIs(t, Case().End().Err(), types.ErrArity)
}

func TestCase(t *testing.T) {
	f := newFixture()
	age := Col(f.age)

	searched := Case().
		When(age.Lt(18), "minor").
		When(age.Lt(65), "adult").
		Else("senior").
		End()
	require.NoError(t, searched.Err())
	assert.Equal(t, "CASE WHEN users.age < ? THEN ? WHEN users.age < ? THEN ? ELSE ? END", searched.SQL())
	assert.Equal(t, []any{18, "minor", 65, "adult", "senior"}, searched.Params())
	assert.Equal(t, types.KindText, searched.Kind())

	simple := CaseOf(age).When(25, 1.5).When(30, 2).End()
	require.NoError(t, simple.Err())
	assert.Equal(t, "CASE users.age WHEN ? THEN ? WHEN ? THEN ? END", simple.SQL())
	assert.Equal(t, []any{25, 1.5, 30, 2}, simple.Params())
	assert.Equal(t, types.KindReal, simple.Kind())

	base := Case().When(age.Gt(1), 1)
	a := base.When(age.Gt(2), 2).End()
	b := base.Else(0).End()
	assert.Equal(t, "CASE WHEN users.age > ? THEN ? WHEN users.age > ? THEN ? END", a.SQL())
	assert.Equal(t, "CASE WHEN users.age > ? THEN ? ELSE ? END", b.SQL())
}

func TestAggregates(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name string
		e    Expr
		sql  string
		kind types.Kind
	}{
		{"count", Count(f.name), "COUNT(users.name)", types.KindInteger},
		{"count distinct", CountDistinct(f.age), "COUNT(DISTINCT users.age)", types.KindInteger},
		{"sum integer", Sum(f.age), "SUM(users.age)", types.KindInteger},
		{"sum real", Sum(f.score), "SUM(users.score)", types.KindReal},
		{"avg", Avg(f.score), "AVG(users.score)", types.KindReal},
		{"avg distinct", AvgDistinct(f.score), "AVG(DISTINCT users.score)", types.KindReal},
		{"total", Total(f.age), "TOTAL(users.age)", types.KindReal},
		{"min", Min(f.name), "MIN(users.name)", types.KindText},
		{"max", Max(f.score), "MAX(users.score)", types.KindReal},
		{"group concat", GroupConcat(f.name, ", "), "GROUP_CONCAT(users.name, ?)", types.KindText},
		{"median", Median(f.score), "MEDIAN(users.score)", types.KindReal},
		{"percentile", Percentile(f.score, 90), "PERCENTILE(users.score, ?)", types.KindReal},
		{"aggregate arithmetic", Sum(f.age).Div(CountAll()), "SUM(users.age) / COUNT(*)", types.KindInteger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.e.Err())
			assert.Equal(t, tt.sql, tt.e.SQL())
			assert.Equal(t, tt.kind, tt.e.Kind())
			assert.True(t, tt.e.IsAggregate())
		})
	}

	assert.ErrorIs(t, Sum(Max(f.age)).Err(), types.ErrNestedAggregate)
	assert.ErrorIs(t, Avg(Col(f.age).Add(Count(f.age))).Err(), types.ErrNestedAggregate)
	assert.ErrorIs(t, Sum(RowNumber().Over(Window())).Err(), types.ErrNestedAggregate)
	assert.ErrorIs(t, Max(Lag(f.age).Over(Window().OrderBy(Asc(f.age)))).Err(), types.ErrNestedAggregate)
	assert.ErrorIs(t, Count(Rank()).Err(), types.ErrNestedAggregate)
	assert.False(t, Upper(f.name).IsAggregate())
}

func TestWindows(t *testing.T) {
	f := newFixture()
	age, score, name := Col(f.age), Col(f.score), Col(f.name)

	w := Window().PartitionBy(age).OrderBy(score.Desc())

	tests := []struct {
		name   string
		e      Expr
		sql    string
		kind   types.Kind
		params []any
	}{
		{"row number empty window", RowNumber().Over(Window()), "ROW_NUMBER() OVER ()", types.KindInteger, nil},
		{"rank", Rank().Over(w), "RANK() OVER (PARTITION BY users.age ORDER BY users.score DESC)", types.KindInteger, nil},
		{"dense rank order only", DenseRank().Over(Window().OrderBy(Asc(name))), "DENSE_RANK() OVER (ORDER BY users.name ASC)", types.KindInteger, nil},
		{"percent rank", PercentRank().Over(w), "PERCENT_RANK() OVER (PARTITION BY users.age ORDER BY users.score DESC)", types.KindReal, nil},
		{"cume dist", CumeDist().Over(w), "CUME_DIST() OVER (PARTITION BY users.age ORDER BY users.score DESC)", types.KindReal, nil},
		{"ntile", Ntile(4).Over(w), "NTILE(?) OVER (PARTITION BY users.age ORDER BY users.score DESC)", types.KindInteger, []any{4}},
		{"lag", Lag(score, 1, 0.0).Over(w), "LAG(users.score, ?, ?) OVER (PARTITION BY users.age ORDER BY users.score DESC)", types.KindReal, []any{1, 0.0}},
		{"lead", Lead(name).Over(Window().OrderBy(By(age))), "LEAD(users.name) OVER (ORDER BY users.age)", types.KindText, nil},
		{"first value", FirstValue(name).Over(w), "FIRST_VALUE(users.name) OVER (PARTITION BY users.age ORDER BY users.score DESC)", types.KindText, nil},
		{"last value", LastValue(score).Over(w), "LAST_VALUE(users.score) OVER (PARTITION BY users.age ORDER BY users.score DESC)", types.KindReal, nil},
		{"nth value", NthValue(name, 2).Over(w), "NTH_VALUE(users.name, ?) OVER (PARTITION BY users.age ORDER BY users.score DESC)", types.KindText, []any{2}},
		{"windowed aggregate", Sum(score).Over(Window().PartitionBy(age)), "SUM(users.score) OVER (PARTITION BY users.age)", types.KindReal, nil},
		{
			"param order function partition order",
			NthValue(name, 2).Over(Window().PartitionBy(age.Add(10)).OrderBy(score.Mul(3).Desc())),
			"NTH_VALUE(users.name, ?) OVER (PARTITION BY users.age + ? ORDER BY users.score * ? DESC)",
			types.KindText,
			[]any{2, 10, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.e.Err())
			assert.Equal(t, tt.sql, tt.e.SQL())
			assert.Equal(t, tt.kind, tt.e.Kind())
			assert.Equal(t, tt.params, tt.e.Params())
			assert.True(t, tt.e.IsWindowed())
			assert.False(t, tt.e.NeedsOver())
			assert.False(t, tt.e.IsAggregate())
		})
	}

	assert.True(t, RowNumber().NeedsOver())
	assert.True(t, RowNumber().Add(1).NeedsOver())
	assert.ErrorIs(t, Upper(name).Over(w).Err(), types.ErrNotWindowable)
	assert.ErrorIs(t, RowNumber().Add(1).Over(w).Err(), types.ErrNotWindowable)
}

func TestWindowSpecImmutable(t *testing.T) {
	f := newFixture()
	base := Window().PartitionBy(f.age)
	a := base.OrderBy(Asc(f.name))
	b := base.OrderBy(Desc(f.score))

	assert.Equal(t, "RANK() OVER (PARTITION BY users.age ORDER BY users.name ASC)", Rank().Over(a).SQL())
	assert.Equal(t, "RANK() OVER (PARTITION BY users.age ORDER BY users.score DESC)", Rank().Over(b).SQL())
	assert.Equal(t, "RANK() OVER (PARTITION BY users.age)", Rank().Over(base).SQL())
}

func TestOrderTerms(t *testing.T) {
	f := newFixture()
	assert.Equal(t, "users.age", By(f.age).SQL())
	assert.Equal(t, "users.age DESC NULLS LAST", Desc(f.age).NullsLast().SQL())
	assert.Equal(t, "users.name ASC NULLS FIRST", Col(f.name).Asc().NullsFirst().SQL())

	list := OrderList([]Order{Asc(f.age), Desc(Col(f.score).Add(1))})
	assert.Equal(t, "users.age ASC, users.score + ? DESC", list.SQL())
	assert.Equal(t, []any{1}, list.Params())
}
