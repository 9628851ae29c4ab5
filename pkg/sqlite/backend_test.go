package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/typedsql/pkg/expr"
	"github.com/mesh-intelligence/typedsql/pkg/query"
	"github.com/mesh-intelligence/typedsql/pkg/schema"
	"github.com/mesh-intelligence/typedsql/pkg/types"
)

func TestNewRegistryValidatesSchema(t *testing.T) {
	f, _ := newSchema()
	_, err := NewRegistry(schema.Schema{Tables: []*schema.Table{f.users, f.users}})
	assert.ErrorIs(t, err, types.ErrDuplicateTable)
}

func TestAttachCreatesSchema(t *testing.T) {
	f := newFixture(t)

	_, err := os.Stat(filepath.Join(f.dataDir, types.DefaultFileName))
	require.NoError(t, err)
	assert.Equal(t, int64(3), masterCount(t, f.reg, "table"))
	assert.Equal(t, int64(1), masterCount(t, f.reg, "index"))
	assert.True(t, f.reg.Attached())
	assert.Equal(t, f.dataDir, f.reg.Config().DataDir)
}

func TestAttachTwice(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.reg.Attach(f.config()), types.ErrAlreadyAttached)
}

func TestAttachInvalidConfig(t *testing.T) {
	_, s := newSchema()
	reg, err := NewRegistry(s)
	require.NoError(t, err)

	tests := []struct {
		name string
		cfg  types.Config
		want error
	}{
		{"empty backend", types.Config{}, types.ErrBackendEmpty},
		{"unknown backend", types.Config{Backend: "mysql"}, types.ErrBackendUnknown},
		{"bad journal mode", types.Config{Backend: types.BackendSQLite, JournalMode: "fast"}, types.ErrJournalModeUnknown},
		{"negative timeout", types.Config{Backend: types.BackendSQLite, BusyTimeout: -1}, types.ErrBusyTimeoutInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, reg.Attach(tt.cfg), tt.want)
			assert.False(t, reg.Attached())
		})
	}
}

func TestReattachKeepsDataAndSchema(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUsers(t)
	require.NoError(t, f.reg.Detach())

	_, s := newSchema()
	reg, err := NewRegistry(s)
	require.NoError(t, err)
	require.NoError(t, reg.Attach(f.config()))
	t.Cleanup(func() { reg.Detach() })

	assert.Equal(t, int64(3), masterCount(t, reg, "table"))
	assert.Equal(t, int64(1), masterCount(t, reg, "index"))

	users, err := reg.Table("users")
	require.NoError(t, err)
	row, err := reg.QueryRow(ctx, query.Select(expr.CountAll()).From(users))
	require.NoError(t, err)
	assert.Equal(t, int64(4), row[0].Int())
}

func TestCreateTableTwice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for i := 0; i < 2; i++ {
		_, err := f.reg.Exec(ctx, query.CreateTable(f.users))
		require.NoError(t, err)
		_, err = f.reg.Exec(ctx, query.CreateIndex(f.byAge))
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), masterCount(t, f.reg, "table"))
	assert.Equal(t, int64(1), masterCount(t, f.reg, "index"))
}

func TestDetach(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.reg.Detach())
	require.NoError(t, f.reg.Detach())
	assert.False(t, f.reg.Attached())

	_, err := f.reg.Exec(ctx, query.Delete(f.users))
	assert.ErrorIs(t, err, types.ErrRegistryDetached)
	_, err = f.reg.Query(ctx, query.Select(f.name).From(f.users))
	assert.ErrorIs(t, err, types.ErrRegistryDetached)
	_, err = f.reg.Begin(ctx)
	assert.ErrorIs(t, err, types.ErrRegistryDetached)
	_, err = f.reg.InsertMany(ctx, f.users, nil, [][]any{{"a", 1, 1.0}})
	assert.ErrorIs(t, err, types.ErrRegistryDetached)

	_, err = os.Stat(filepath.Join(f.dataDir, types.DefaultFileName))
	assert.NoError(t, err, "detach must keep the store file")
}

func TestTableLookup(t *testing.T) {
	f := newFixture(t)

	got, err := f.reg.Table("USERS")
	require.NoError(t, err)
	assert.Same(t, f.users, got)

	_, err = f.reg.Table("missing")
	assert.ErrorIs(t, err, types.ErrTableNotFound)

	names := make([]string, 0, 3)
	for _, tbl := range f.reg.Tables() {
		names = append(names, tbl.Name())
	}
	assert.Equal(t, []string{"users", "depts", "accounts"}, names)
}

func TestUndeclaredTableRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	stray := schema.MustTable("stray", []*schema.Column{schema.MustColumn("v", types.KindInteger)})
	v := stray.MustColumn("v")

	// DDL is not restricted to declared tables.
	_, err := f.reg.Exec(ctx, query.CreateTable(stray))
	require.NoError(t, err)

	_, err = f.reg.Exec(ctx, query.Insert(stray).Values(1))
	assert.ErrorIs(t, err, types.ErrTableNotFound)
	assert.Contains(t, err.Error(), "stray")

	_, err = f.reg.Query(ctx, query.Select(v).From(stray))
	assert.ErrorIs(t, err, types.ErrTableNotFound)

	_, err = f.reg.Exec(ctx, query.Delete(f.users).Where(expr.Exists(query.Select(v).From(stray))))
	assert.ErrorIs(t, err, types.ErrTableNotFound)

	_, err = f.reg.InsertMany(ctx, stray, nil, [][]any{{1}})
	assert.ErrorIs(t, err, types.ErrTableNotFound)

	err = f.reg.InTx(ctx, func(tx *Tx) error {
		_, err := tx.QueryRow(ctx, query.Select(expr.CountAll()).From(stray))
		return err
	})
	assert.ErrorIs(t, err, types.ErrTableNotFound)

	// A table of the same name built outside the schema is not the declared one.
	twin := schema.MustTable("users", []*schema.Column{schema.MustColumn("name", types.KindText)})
	_, err = f.reg.Query(ctx, query.Select(twin.MustColumn("name")).From(twin))
	assert.ErrorIs(t, err, types.ErrTableNotFound)

	boss := f.users.MustAs("boss")
	rows, err := f.reg.Query(ctx, query.Select(boss.MustColumn("name")).From(boss))
	require.NoError(t, err, "an alias of a declared table is declared")
	require.NoError(t, rows.Close())
}

func TestInMemoryRegistry(t *testing.T) {
	ctx := context.Background()
	f, s := newSchema()
	reg, err := NewRegistry(s)
	require.NoError(t, err)
	require.NoError(t, reg.Attach(types.Config{Backend: types.BackendSQLite, InMemory: true}))
	t.Cleanup(func() { reg.Detach() })

	_, err = reg.Exec(ctx, query.Insert(f.users).Values("Ann", 40, 1.0))
	require.NoError(t, err)
	row, err := reg.QueryRow(ctx, query.Select(f.name).From(f.users))
	require.NoError(t, err)
	assert.Equal(t, "Ann", row[0].Text())
}

func TestRegistryLogs(t *testing.T) {
	f := newFixture(t)

	logs := f.logs.String()
	assert.Contains(t, logs, "component=registry")
	assert.Contains(t, logs, "msg=attached")
	assert.Contains(t, logs, "CREATE TABLE IF NOT EXISTS users")
}

func TestExecReportsResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.reg.Exec(ctx, query.Insert(f.accounts).Columns(f.accOwner).Values("ann"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)
	assert.Equal(t, int64(1), res.LastInsertID)

	res, err = f.reg.Exec(ctx, query.Insert(f.accounts).Columns(f.accOwner).Values("bob"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.LastInsertID)

	res, err = f.reg.Exec(ctx, query.Update(f.accounts).Set(f.accBalance, 5.0))
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.RowsAffected)
}

func TestExecBuildErrorRunsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.reg.Exec(ctx, query.Insert(f.users).Values("x", "not a number", 1.0))
	assert.ErrorIs(t, err, types.ErrKindMismatch)
	assert.Equal(t, int64(0), f.count(t, f.users))
}

func TestConstraintViolation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	insert := query.Insert(f.accounts).Columns(f.accID, f.accOwner).Values(1, "ann")
	_, err := f.reg.Exec(ctx, insert)
	require.NoError(t, err)

	_, err = f.reg.Exec(ctx, insert)
	require.ErrorIs(t, err, types.ErrConstraint)
	var se *types.SQLError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "exec", se.Op)
	assert.Contains(t, se.SQL, "INSERT INTO accounts")

	_, err = f.reg.Exec(ctx, query.Insert(f.accounts).Columns(f.accID, f.accOwner).Values(2, nil))
	assert.ErrorIs(t, err, types.ErrConstraint)

	_, err = f.reg.Exec(ctx, insert.Or(types.ConflictIgnore))
	assert.NoError(t, err)
	assert.Equal(t, int64(1), f.count(t, f.accounts))
}
