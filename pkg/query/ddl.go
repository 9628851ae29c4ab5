package query

import (
	"fmt"

	"github.com/mesh-intelligence/typedsql/pkg/schema"
	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// DDLStmt is a schema statement with no parameters.
type DDLStmt struct {
	sql string
	err error
}

// CreateTable renders CREATE TABLE IF NOT EXISTS for t.
func CreateTable(t *schema.Table) DDLStmt {
	if t == nil {
		return DDLStmt{err: fmt.Errorf("CREATE TABLE: %w", types.ErrMissingSource)}
	}
	return DDLStmt{sql: t.CreateSQL()}
}

// DropTable renders DROP TABLE IF EXISTS for t.
func DropTable(t *schema.Table) DDLStmt {
	if t == nil {
		return DDLStmt{err: fmt.Errorf("DROP TABLE: %w", types.ErrMissingSource)}
	}
	return DDLStmt{sql: t.DropSQL()}
}

// CreateIndex renders CREATE INDEX IF NOT EXISTS for ix.
func CreateIndex(ix *schema.Index) DDLStmt {
	if ix == nil {
		return DDLStmt{err: fmt.Errorf("CREATE INDEX: %w", types.ErrMissingSource)}
	}
	return DDLStmt{sql: ix.CreateSQL()}
}

// DropIndex renders DROP INDEX IF EXISTS for ix.
func DropIndex(ix *schema.Index) DDLStmt {
	if ix == nil {
		return DDLStmt{err: fmt.Errorf("DROP INDEX: %w", types.ErrMissingSource)}
	}
	return DDLStmt{sql: ix.DropSQL()}
}

// Build returns the statement.
func (s DDLStmt) Build() (types.Statement, error) {
	if s.err != nil {
		return types.Statement{}, s.err
	}
	return types.Statement{SQL: s.sql}, nil
}
