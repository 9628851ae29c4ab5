package sqlite

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/typedsql/internal/sqlite"
	"github.com/mesh-intelligence/typedsql/pkg/query"
	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// Tx is a transaction on an attached store. It must be resolved with
// exactly one Commit or Rollback.
type Tx struct {
	mu       sync.Mutex
	tx       *sql.Tx
	logger   *slog.Logger
	declared declaredSet
	resolved bool
}

// Begin starts a transaction.
func (r *Registry) Begin(ctx context.Context) (*Tx, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, sqlite.Classify("begin", "", err)
	}
	return &Tx{tx: tx, logger: r.logger, declared: r.declared}, nil
}

// Commit commits the transaction. A second resolve returns ErrTxResolved.
func (t *Tx) Commit() error {
	if err := t.resolve(); err != nil {
		return err
	}
	if err := t.tx.Commit(); err != nil {
		return sqlite.Classify("commit", "", err)
	}
	return nil
}

// Rollback aborts the transaction. A second resolve returns ErrTxResolved.
func (t *Tx) Rollback() error {
	if err := t.resolve(); err != nil {
		return err
	}
	if err := t.tx.Rollback(); err != nil {
		return sqlite.Classify("rollback", "", err)
	}
	return nil
}

func (t *Tx) resolve() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.resolved {
		return types.ErrTxResolved
	}
	t.resolved = true
	return nil
}

func (t *Tx) live() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.resolved {
		return types.ErrTxResolved
	}
	return nil
}

// Exec builds and runs a statement that returns no rows.
func (t *Tx) Exec(ctx context.Context, b query.Builder) (types.Result, error) {
	if err := t.live(); err != nil {
		return types.Result{}, err
	}
	return execOn(ctx, t.tx, t.declared, b)
}

// Query builds and runs q. The rows must be closed before the transaction
// is resolved.
func (t *Tx) Query(ctx context.Context, q query.Query) (*Rows, error) {
	if err := t.live(); err != nil {
		return nil, err
	}
	return queryOn(ctx, t.tx, t.declared, q)
}

// QueryRow runs q and returns its first row, or ErrNoRows.
func (t *Tx) QueryRow(ctx context.Context, q query.Query) (types.Row, error) {
	if err := t.live(); err != nil {
		return nil, err
	}
	return queryRowOn(ctx, t.tx, t.declared, q)
}

// InTx runs fn in a transaction. It commits when fn returns nil and rolls
// back when fn returns an error or panics; a panic is re-raised after the
// rollback. A failed rollback is logged and never replaces fn's error.
func (r *Registry) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			if rerr := tx.Rollback(); rerr != nil {
				r.logger.Error("rollback after panic failed", "error", rerr)
			}
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			r.logger.Error("rollback failed", "error", rerr, "cause", err)
		}
		return err
	}
	return tx.Commit()
}

// InTx runs fn inside a savepoint of t. When fn fails or panics, only the
// work since the savepoint is undone and t stays usable.
func (t *Tx) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	if err := t.live(); err != nil {
		return err
	}
	name := "sp_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return sqlite.Classify("exec", "SAVEPOINT "+name, err)
	}

	undo := func() error {
		stmt := "ROLLBACK TO " + name + "; RELEASE " + name
		if _, err := t.tx.ExecContext(ctx, "ROLLBACK TO "+name); err != nil {
			return sqlite.Classify("rollback", stmt, err)
		}
		if _, err := t.tx.ExecContext(ctx, "RELEASE "+name); err != nil {
			return sqlite.Classify("rollback", stmt, err)
		}
		return nil
	}
	defer func() {
		if p := recover(); p != nil {
			if rerr := undo(); rerr != nil {
				t.logger.Error("savepoint rollback after panic failed", "savepoint", name, "error", rerr)
			}
			panic(p)
		}
	}()

	if err := fn(t); err != nil {
		if rerr := undo(); rerr != nil {
			t.logger.Error("savepoint rollback failed", "savepoint", name, "error", rerr, "cause", err)
		}
		return err
	}
	if _, err := t.tx.ExecContext(ctx, "RELEASE "+name); err != nil {
		return sqlite.Classify("exec", "RELEASE "+name, err)
	}
	return nil
}
