// Package sqlite runs typed statements against a SQLite store.
//
// A Registry owns a declared schema and, once attached, the connection pool
// of one store. Statements built with package query execute through the
// Registry or through a Tx; results come back as Rows of decoded values.
//
// Example:
//
//	reg, err := sqlite.NewRegistry(schema.Schema{Tables: []*schema.Table{users}})
//	if err != nil {
//	    return err
//	}
//	err = reg.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".typedsql-db",
//	})
//	defer reg.Detach()
//
//	rows, err := reg.Query(ctx, query.Select(name, age).From(users).Where(expr.Col(age).Gt(30)))
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mesh-intelligence/typedsql/internal/sqlite"
	"github.com/mesh-intelligence/typedsql/pkg/query"
	"github.com/mesh-intelligence/typedsql/pkg/schema"
	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// Registry holds a validated schema and the store it is attached to.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	schema   schema.Schema
	logger   *slog.Logger
	declared declaredSet
	attached bool
	config   types.Config
	db       *sql.DB
}

// declaredSet holds the tables of a registry's schema by identity.
type declaredSet map[*schema.Table]bool

// check rejects a statement that names a table outside the set. Statements
// that do not report their tables, such as DDL, pass.
func (d declaredSet) check(b any) error {
	refs, ok := b.(query.TableReferencer)
	if !ok {
		return nil
	}
	for _, t := range refs.Tables() {
		if t != nil && !d[t.Base()] {
			return fmt.Errorf("%w: %s is not declared in the registry schema", types.ErrTableNotFound, t.Name())
		}
	}
	return nil
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry validates s and returns a detached Registry.
func NewRegistry(s schema.Schema, opts ...Option) (*Registry, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validating schema: %w", err)
	}
	r := &Registry{
		schema: schema.Schema{
			Tables:  append([]*schema.Table(nil), s.Tables...),
			Indexes: append([]*schema.Index(nil), s.Indexes...),
		},
		declared: make(declaredSet, len(s.Tables)),
		logger:   slog.Default(),
	}
	for _, t := range s.Tables {
		r.declared[t] = true
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "registry")
	return r, nil
}

// Attach opens the store described by cfg and issues the DDL of every
// table, then every index, inside one transaction. Existing stores are
// opened as they are; declared objects that already exist are left alone.
func (r *Registry) Attach(cfg types.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.attached {
		return types.ErrAlreadyAttached
	}

	db, err := sqlite.Open(cfg)
	if err != nil {
		return err
	}
	if err := r.createSchema(context.Background(), db); err != nil {
		db.Close()
		return err
	}

	r.db = db
	r.config = cfg
	r.attached = true
	if cfg.InMemory {
		r.logger.Info("attached", "store", "memory", "tables", len(r.schema.Tables))
	} else {
		r.logger.Info("attached", "store", sqlite.StorePath(cfg), "tables", len(r.schema.Tables))
	}
	return nil
}

func (r *Registry) createSchema(ctx context.Context, db *sql.DB) error {
	var builders []query.Builder
	for _, t := range r.schema.Tables {
		builders = append(builders, query.CreateTable(t))
	}
	for _, ix := range r.schema.Indexes {
		builders = append(builders, query.CreateIndex(ix))
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return sqlite.Classify("begin", "", err)
	}
	defer tx.Rollback()

	for _, b := range builders {
		st, err := b.Build()
		if err != nil {
			return err
		}
		r.logger.Debug("issuing ddl", "sql", st.SQL)
		if _, err := sqlite.Exec(ctx, tx, st); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return sqlite.Classify("commit", "", err)
	}
	return nil
}

// Detach closes the store. It is idempotent; the store's data is kept.
func (r *Registry) Detach() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.attached {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	r.attached = false
	r.logger.Info("detached")
	if err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	return nil
}

// Attached reports whether the registry has an open store.
func (r *Registry) Attached() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.attached
}

// Config returns the configuration of the current or last attach.
func (r *Registry) Config() types.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config
}

// Schema returns the declared schema.
func (r *Registry) Schema() schema.Schema {
	return schema.Schema{
		Tables:  append([]*schema.Table(nil), r.schema.Tables...),
		Indexes: append([]*schema.Index(nil), r.schema.Indexes...),
	}
}

// Table looks up a declared table by name.
func (r *Registry) Table(name string) (*schema.Table, error) {
	if t, ok := r.schema.Table(name); ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s", types.ErrTableNotFound, name)
}

// Tables returns the declared tables in declaration order.
func (r *Registry) Tables() []*schema.Table {
	return append([]*schema.Table(nil), r.schema.Tables...)
}

// conn returns the pool, or ErrRegistryDetached.
func (r *Registry) conn() (*sql.DB, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.attached {
		return nil, types.ErrRegistryDetached
	}
	return r.db, nil
}

// Exec builds and runs a statement that returns no rows.
func (r *Registry) Exec(ctx context.Context, b query.Builder) (types.Result, error) {
	db, err := r.conn()
	if err != nil {
		return types.Result{}, err
	}
	return execOn(ctx, db, r.declared, b)
}

// Query builds and runs q. The caller must close the returned Rows.
func (r *Registry) Query(ctx context.Context, q query.Query) (*Rows, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	return queryOn(ctx, db, r.declared, q)
}

// QueryRow runs q and returns its first row, or ErrNoRows.
func (r *Registry) QueryRow(ctx context.Context, q query.Query) (types.Row, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	return queryRowOn(ctx, db, r.declared, q)
}

func execOn(ctx context.Context, p sqlite.Preparer, decl declaredSet, b query.Builder) (types.Result, error) {
	st, err := b.Build()
	if err != nil {
		return types.Result{}, err
	}
	if err := decl.check(b); err != nil {
		return types.Result{}, err
	}
	return sqlite.Exec(ctx, p, st)
}

func queryOn(ctx context.Context, p sqlite.Preparer, decl declaredSet, q query.Query) (*Rows, error) {
	st, err := q.Build()
	if err != nil {
		return nil, err
	}
	if err := decl.check(q); err != nil {
		return nil, err
	}
	if st.Kinds == nil {
		st.Kinds = q.ResultKinds()
	}
	stmt, rows, err := sqlite.Query(ctx, p, st)
	if err != nil {
		return nil, err
	}
	return newRows(st, stmt, rows), nil
}

func queryRowOn(ctx context.Context, p sqlite.Preparer, decl declaredSet, q query.Query) (types.Row, error) {
	rows, err := queryOn(ctx, p, decl, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, types.ErrNoRows
	}
	return rows.Row(), nil
}
