package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/typedsql/pkg/expr"
	"github.com/mesh-intelligence/typedsql/pkg/types"
)

func TestUpdateBuild(t *testing.T) {
	f := newFixture()
	age, name, score := expr.Col(f.age), expr.Col(f.name), expr.Col(f.score)

	tests := []struct {
		name   string
		stmt   Builder
		sql    string
		params []any
	}{
		{
			name:   "set all rows",
			stmt:   Update(f.users).Set(f.score, 0.0),
			sql:    "UPDATE users SET score = ?",
			params: []any{0.0},
		},
		{
			name:   "set where",
			stmt:   Update(f.users).Set(f.age, 31).Set(f.score, score.Add(1.5)).Where(name.Eq("Bob")),
			sql:    "UPDATE users SET age = ?, score = users.score + ? WHERE users.name = ?",
			params: []any{31, 1.5, "Bob"},
		},
		{
			name:   "or replace",
			stmt:   Update(f.items).Set(f.itemLabel, "x").Or(types.ConflictReplace).Where(expr.Col(f.itemID).Eq(1)),
			sql:    "UPDATE OR REPLACE items SET label = ? WHERE items.id = ?",
			params: []any{"x", 1},
		},
		{
			name:   "delete all",
			stmt:   Delete(f.users),
			sql:    "DELETE FROM users",
			params: nil,
		},
		{
			name:   "delete where",
			stmt:   Delete(f.users).Where(age.Lt(30)).Where(name.NotLike("A%")),
			sql:    "DELETE FROM users WHERE (users.age < ?) AND (users.name NOT LIKE ?)",
			params: []any{30, "A%"},
		},
		{
			name: "create table",
			stmt: CreateTable(f.items),
			sql:  "CREATE TABLE IF NOT EXISTS items (id INTEGER PRIMARY KEY, label TEXT NOT NULL, qty INTEGER DEFAULT 0)",
		},
		{
			name: "drop table",
			stmt: DropTable(f.items),
			sql:  "DROP TABLE IF EXISTS items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := tt.stmt.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.sql, st.SQL)
			assert.Equal(t, tt.params, st.Params)
		})
	}
}

func TestUpdateErrors(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name    string
		stmt    Builder
		wantErr error
	}{
		{"no set", Update(f.users).Where(expr.Col(f.age).Eq(1)), types.ErrEmptySet},
		{"foreign set column", Update(f.users).Set(f.dept, "x"), types.ErrUnknownColumn},
		{"duplicate set column", Update(f.users).Set(f.age, 1).Set(f.age, 2), types.ErrDuplicateColumn},
		{"kind mismatch", Update(f.users).Set(f.age, "x"), types.ErrKindMismatch},
		{"foreign value column", Update(f.users).Set(f.name, f.dname), types.ErrUnknownColumn},
		{"foreign where column", Update(f.users).Set(f.age, 1).Where(expr.Col(f.dept).Eq("x")), types.ErrUnknownColumn},
		{"aggregate in where", Delete(f.users).Where(expr.Count(f.name).Gt(1)), types.ErrMisplacedAggregate},
		{"delete foreign where", Delete(f.users).Where(expr.Col(f.dept).Eq("x")), types.ErrUnknownColumn},
		{"empty update where", Update(f.users).Set(f.age, 1).Where(expr.Cond{}), types.ErrArity},
		{"empty delete where", Delete(f.users).Where(expr.Cond{}), types.ErrArity},
		{"empty delete where after condition", Delete(f.users).Where(expr.Col(f.age).Lt(3)).Where(expr.Cond{}), types.ErrArity},
		{"nil table", Delete(nil), types.ErrMissingSource},
		{"nil ddl", CreateTable(nil), types.ErrMissingSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.stmt.Build()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
