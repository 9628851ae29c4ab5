package schemafile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/typedsql/pkg/types"
)

const shop = `
tables:
  - name: accounts
    columns:
      - {name: id, kind: integer, primary_key: true, autoincrement: true}
      - {name: owner, kind: text, not_null: true, unique: true, on_conflict: ignore}
      - {name: balance, kind: real, default: 0.5}
      - {name: created, kind: text, default_expr: CURRENT_TIMESTAMP}
  - name: orders
    columns:
      - {name: account, kind: integer}
      - {name: line, kind: int}
      - {name: note, kind: string, default: "n/a"}
    primary_key: [account, line desc]
    on_conflict: replace
    unique:
      - [note, account]
    without_rowid: true
    strict: true
indexes:
  - {name: accounts_by_balance, table: accounts, columns: [balance desc]}
  - {name: orders_by_note, table: ORDERS, columns: [note], unique: true}
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(shop))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"CREATE TABLE IF NOT EXISTS accounts (" +
			"id INTEGER PRIMARY KEY AUTOINCREMENT, " +
			"owner TEXT NOT NULL ON CONFLICT IGNORE UNIQUE ON CONFLICT IGNORE, " +
			"balance REAL DEFAULT 0.5, " +
			"created TEXT DEFAULT (CURRENT_TIMESTAMP))",
		"CREATE TABLE IF NOT EXISTS orders (" +
			"account INTEGER, line INTEGER, note TEXT DEFAULT 'n/a', " +
			"PRIMARY KEY (account, line DESC) ON CONFLICT REPLACE, " +
			"UNIQUE (note, account)) WITHOUT ROWID, STRICT",
		"CREATE INDEX IF NOT EXISTS accounts_by_balance ON accounts (balance DESC)",
		"CREATE UNIQUE INDEX IF NOT EXISTS orders_by_note ON orders (note)",
	}, s.DDL())

	orders, ok := s.Table("orders")
	require.True(t, ok)
	assert.False(t, orders.HasRowID())
	assert.Len(t, orders.PrimaryKey(), 2)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"empty", "", ErrEmpty},
		{"no tables", "indexes: []", ErrEmpty},
		{"bad kind", "tables: [{name: t, columns: [{name: c, kind: decimal}]}]", types.ErrInvalidKind},
		{"bad policy", "tables: [{name: t, columns: [{name: c, kind: text, not_null: true, on_conflict: shrug}]}]", types.ErrConflictPolicyUnknown},
		{"bad name", "tables: [{name: select, columns: [{name: c, kind: text}]}]", types.ErrInvalidName},
		{"no columns", "tables: [{name: t}]", types.ErrNoColumns},
		{"duplicate table", "tables: [{name: t, columns: [{name: c, kind: text}]}, {name: T, columns: [{name: c, kind: text}]}]", types.ErrDuplicateTable},
		{"default kind", "tables: [{name: t, columns: [{name: c, kind: integer, default: abc}]}]", types.ErrKindMismatch},
		{"two defaults", "tables: [{name: t, columns: [{name: c, kind: text, default: a, default_expr: b}]}]", types.ErrDuplicateConstraint},
		{"orphan order", "tables: [{name: t, columns: [{name: c, kind: integer, order: desc}]}]", types.ErrConflictingConstraint},
		{"autoincrement desc", "tables: [{name: t, columns: [{name: c, kind: integer, primary_key: true, order: desc, autoincrement: true}]}]", types.ErrConflictingConstraint},
		{"unknown key column", "tables: [{name: t, columns: [{name: c, kind: text}], primary_key: [d]}]", types.ErrUnknownColumn},
		{"unknown index table", "tables: [{name: t, columns: [{name: c, kind: text}]}]\nindexes: [{name: i, table: u, columns: [c]}]", types.ErrTableNotFound},
		{"unknown index column", "tables: [{name: t, columns: [{name: c, kind: text}]}]\nindexes: [{name: i, table: t, columns: [d]}]", types.ErrUnknownColumn},
		{"index named like table", "tables: [{name: t, columns: [{name: c, kind: text}]}]\nindexes: [{name: t, table: t, columns: [c]}]", types.ErrDuplicateIndex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("tables: [{name: t, colums: [{name: c, kind: text}]}]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colums")

	_, err = Parse([]byte("tables: [{name: t, columns: [{name: c, kind: text}]}]\nindexes: [{name: i, table: t, columns: [c sideways]}]"))
	assert.ErrorContains(t, err, "invalid column spec")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(shop), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, s.Tables, 2)
	assert.Len(t, s.Indexes, 2)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("tables: [{name: t}]"), 0o644))
	_, err = Load(bad)
	assert.ErrorIs(t, err, types.ErrNoColumns)
	assert.Contains(t, err.Error(), bad)
}
