// Package sqlite adapts the modernc SQLite driver to typed statements: it
// opens stores, binds parameters, decodes result columns and classifies
// engine errors.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// DSN returns the data source name for cfg. File stores live at
// DataDir/FileName. In-memory stores get a private shared-cache name so
// every connection of one pool sees the same database.
func DSN(cfg types.Config) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	if cfg.BusyTimeout > 0 {
		q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout))
	}
	if cfg.JournalMode != "" && !cfg.InMemory {
		q.Add("_pragma", fmt.Sprintf("journal_mode(%s)", strings.ToUpper(cfg.JournalMode)))
	}

	if cfg.InMemory {
		q.Set("mode", "memory")
		q.Set("cache", "shared")
		return "file:" + uuid.NewString() + "?" + q.Encode()
	}
	return StorePath(cfg) + "?" + q.Encode()
}

// StorePath returns the database file path for cfg.
func StorePath(cfg types.Config) string {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	return filepath.Join(dataDir, cfg.StoreFile())
}

// Open validates cfg and opens the store. The data directory is created
// when missing; an existing database file is opened as is.
func Open(cfg types.Config) (*sql.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.InMemory {
		dataDir := cfg.DataDir
		if dataDir == "" {
			dataDir = "."
		}
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
	}

	db, err := sql.Open(DriverName, DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if cfg.InMemory {
		// The shared-cache database lives as long as one connection does.
		db.SetMaxOpenConns(1)
		db.SetConnMaxIdleTime(0)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, Classify("open", "", err)
	}
	return db, nil
}

// constraintError marks an engine constraint violation so that it matches
// types.ErrConstraint while keeping the engine message.
type constraintError struct {
	err error
}

func (e constraintError) Error() string { return e.err.Error() }

func (e constraintError) Unwrap() []error { return []error{types.ErrConstraint, e.err} }

// Classify wraps an engine error in a *types.SQLError carrying the
// statement text. Constraint violations also match types.ErrConstraint.
func Classify(op, query string, err error) error {
	if err == nil {
		return nil
	}
	var se *types.SQLError
	if errors.As(err, &se) {
		return err
	}
	if IsConstraint(err) {
		err = constraintError{err: err}
	}
	return &types.SQLError{Op: op, SQL: query, Err: err}
}

// IsConstraint reports whether err is an engine constraint violation,
// including extended codes such as SQLITE_CONSTRAINT_PRIMARYKEY.
func IsConstraint(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}
