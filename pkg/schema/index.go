package schema

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// Index describes a unique or non-unique index over columns of one table.
type Index struct {
	name    string
	table   *Table
	columns []IndexedColumn
	unique  bool
}

// NewIndex declares a non-unique index.
func NewIndex(name string, table *Table, columns ...IndexedColumn) (*Index, error) {
	return newIndex(name, table, false, columns)
}

// NewUniqueIndex declares a unique index.
func NewUniqueIndex(name string, table *Table, columns ...IndexedColumn) (*Index, error) {
	return newIndex(name, table, true, columns)
}

// MustIndex is like NewIndex but panics on a declaration error.
func MustIndex(name string, table *Table, columns ...IndexedColumn) *Index {
	ix, err := NewIndex(name, table, columns...)
	if err != nil {
		panic(err)
	}
	return ix
}

func newIndex(name string, table *Table, unique bool, columns []IndexedColumn) (*Index, error) {
	if err := checkName("index", name); err != nil {
		return nil, err
	}
	if table == nil {
		return nil, fmt.Errorf("index %q: %w", name, types.ErrMissingSource)
	}
	table = table.Base()
	if len(columns) == 0 {
		return nil, fmt.Errorf("index %q: %w", name, types.ErrNoColumns)
	}
	seen := make(map[*Column]bool, len(columns))
	for _, ic := range columns {
		if ic.Column == nil || ic.Column.Base().table != table {
			return nil, fmt.Errorf("index %q: %w: %s not in %s",
				name, types.ErrUnknownColumn, describe(ic.Column), table.name)
		}
		if seen[ic.Column.Base()] {
			return nil, fmt.Errorf("index %q: %w: %s", name, types.ErrDuplicateColumn, ic.Column.name)
		}
		seen[ic.Column.Base()] = true
	}
	return &Index{
		name:    name,
		table:   table,
		columns: append([]IndexedColumn(nil), columns...),
		unique:  unique,
	}, nil
}

// Name returns the index name.
func (ix *Index) Name() string { return ix.name }

// Table returns the indexed table.
func (ix *Index) Table() *Table { return ix.table }

// Columns returns the indexed columns in key order.
func (ix *Index) Columns() []IndexedColumn {
	return append([]IndexedColumn(nil), ix.columns...)
}

// IsUnique reports whether the index is unique.
func (ix *Index) IsUnique() bool { return ix.unique }

// CreateSQL renders the idempotent CREATE INDEX statement.
func (ix *Index) CreateSQL() string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if ix.unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX IF NOT EXISTS ")
	b.WriteString(ix.name)
	b.WriteString(" ON ")
	b.WriteString(ix.table.name)
	b.WriteString(" (")
	for i, ic := range ix.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ic.sql())
	}
	b.WriteString(")")
	return b.String()
}

// DropSQL renders DROP INDEX IF EXISTS.
func (ix *Index) DropSQL() string {
	return "DROP INDEX IF EXISTS " + ix.name
}
