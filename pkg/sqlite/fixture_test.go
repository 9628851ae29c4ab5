package sqlite

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/typedsql/pkg/expr"
	"github.com/mesh-intelligence/typedsql/pkg/query"
	"github.com/mesh-intelligence/typedsql/pkg/schema"
	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// syncBuffer collects log output from concurrent handlers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fixture struct {
	reg     *Registry
	dataDir string
	logs    *syncBuffer

	users, depts, accounts *schema.Table
	name, age, score       *schema.Column
	dept, dname            *schema.Column
	accID, accOwner        *schema.Column
	accBalance, accPhoto   *schema.Column
	byAge                  *schema.Index
}

func newSchema() (fixture, schema.Schema) {
	f := fixture{
		name:       schema.MustColumn("name", types.KindText),
		age:        schema.MustColumn("age", types.KindInteger),
		score:      schema.MustColumn("score", types.KindReal),
		dept:       schema.MustColumn("dept", types.KindText),
		dname:      schema.MustColumn("name", types.KindText),
		accID:      schema.MustColumn("id", types.KindInteger, schema.PrimaryKey()),
		accOwner:   schema.MustColumn("owner", types.KindText, schema.NotNull(), schema.Unique()),
		accBalance: schema.MustColumn("balance", types.KindReal, schema.Default(0)),
		accPhoto:   schema.MustColumn("photo", types.KindBlob),
	}
	f.users = schema.MustTable("users", []*schema.Column{f.name, f.age, f.score})
	f.depts = schema.MustTable("depts", []*schema.Column{f.dept, f.dname})
	f.accounts = schema.MustTable("accounts", []*schema.Column{f.accID, f.accOwner, f.accBalance, f.accPhoto})
	f.byAge = schema.MustIndex("users_by_age", f.users, schema.On(f.age))
	return f, schema.Schema{
		Tables:  []*schema.Table{f.users, f.depts, f.accounts},
		Indexes: []*schema.Index{f.byAge},
	}
}

// newFixture returns a registry attached to a fresh file store.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f, s := newSchema()
	f.dataDir = t.TempDir()
	f.logs = &syncBuffer{}
	logger := slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	reg, err := NewRegistry(s, WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, reg.Attach(f.config()))
	t.Cleanup(func() { reg.Detach() })
	f.reg = reg
	return &f
}

func (f *fixture) config() types.Config {
	return types.Config{Backend: types.BackendSQLite, DataDir: f.dataDir, BusyTimeout: 1000}
}

// seedUsers inserts the four users of the aggregate scenario.
func (f *fixture) seedUsers(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, u := range []struct {
		name  string
		age   int
		score float64
	}{
		{"Alice", 25, 85.5},
		{"Bob", 30, 92.0},
		{"Charlie", 25, 78.5},
		{"David", 35, 88.0},
	} {
		_, err := f.reg.Exec(ctx, query.Insert(f.users).Values(u.name, u.age, u.score))
		require.NoError(t, err)
	}
}

func (f *fixture) count(t *testing.T, tbl *schema.Table) int64 {
	t.Helper()
	row, err := f.reg.QueryRow(context.Background(), query.Select(expr.CountAll()).From(tbl))
	require.NoError(t, err)
	return row[0].Int()
}

// masterCount counts objects of the given type in the store catalog.
func masterCount(t *testing.T, reg *Registry, typ string) int64 {
	t.Helper()
	q := query.Select(expr.Raw("(SELECT COUNT(*) FROM sqlite_master WHERE type = ? AND name NOT LIKE 'sqlite_%')", types.KindInteger, typ))
	row, err := reg.QueryRow(context.Background(), q)
	require.NoError(t, err)
	return row[0].Int()
}
