package types

import (
	"errors"
	"fmt"
)

// Declaration errors, returned while building columns, tables and indexes.
var (
	ErrInvalidName           = errors.New("invalid identifier")
	ErrInvalidKind           = errors.New("invalid kind")
	ErrDuplicateConstraint   = errors.New("duplicate constraint")
	ErrConflictingConstraint = errors.New("conflicting constraints")
	ErrDuplicateColumn       = errors.New("duplicate column")
	ErrNoColumns             = errors.New("no columns declared")
	ErrColumnOwned           = errors.New("column already belongs to a table")
	ErrNoPrimaryKey          = errors.New("table has no primary key")
	ErrDuplicateTable        = errors.New("duplicate table")
	ErrDuplicateIndex        = errors.New("duplicate index")
	ErrConflictPolicyUnknown = errors.New("unknown conflict policy")
)

// Composition errors, recorded on expressions and returned by Build.
var (
	ErrKindMismatch       = errors.New("kind mismatch")
	ErrUnsupportedValue   = errors.New("unsupported value type")
	ErrUnknownColumn      = errors.New("column not in scope")
	ErrNestedAggregate    = errors.New("aggregate nested in aggregate")
	ErrMisplacedAggregate = errors.New("aggregate not allowed here")
	ErrMissingOver        = errors.New("window function requires OVER")
	ErrNotWindowable      = errors.New("expression cannot take OVER")
	ErrArity              = errors.New("wrong number of arguments")
	ErrEmptyProjection    = errors.New("empty projection")
	ErrMissingSource      = errors.New("statement has no source table")
	ErrColumnCount        = errors.New("column and value counts differ")
	ErrEmptySet           = errors.New("update sets no columns")
	ErrInvalidLimit       = errors.New("limit and offset must not be negative")
)

// Execution errors.
var (
	ErrConstraint       = errors.New("constraint violation")
	ErrNoRows           = errors.New("no rows in result")
	ErrRowsConsumed     = errors.New("rows already iterated")
	ErrTxResolved       = errors.New("transaction already resolved")
	ErrRegistryDetached = errors.New("registry is detached")
	ErrAlreadyAttached  = errors.New("registry is already attached")
	ErrTableNotFound    = errors.New("table not found")
)

// SQLError reports an engine failure together with the SQL that caused it.
// Op is "prepare", "exec", "query", "begin", "commit" or "rollback".
type SQLError struct {
	Op  string
	SQL string
	Err error
}

// Error implements the error interface.
func (e *SQLError) Error() string {
	if e.SQL == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.SQL, e.Err)
}

// Unwrap returns the engine error for errors.Is / errors.As.
func (e *SQLError) Unwrap() error {
	return e.Err
}
