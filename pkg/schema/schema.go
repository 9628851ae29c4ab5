package schema

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// Schema is the set of tables and indexes a registry creates on attach.
// Tables are created in order, then indexes.
type Schema struct {
	Tables  []*Table
	Indexes []*Index
}

// Validate checks that table and index names are unique (case-insensitive)
// and that every index targets a table of the schema.
func (s Schema) Validate() error {
	tables := make(map[string]*Table, len(s.Tables))
	for _, t := range s.Tables {
		if t == nil {
			return fmt.Errorf("schema: %w: nil table", types.ErrMissingSource)
		}
		if t.alias != "" {
			return fmt.Errorf("schema: table %s: aliased view declared as table: %w", t.alias, types.ErrInvalidName)
		}
		key := strings.ToLower(t.name)
		if _, dup := tables[key]; dup {
			return fmt.Errorf("schema: %w: %s", types.ErrDuplicateTable, t.name)
		}
		tables[key] = t
	}

	indexes := make(map[string]bool, len(s.Indexes))
	for _, ix := range s.Indexes {
		if ix == nil {
			return fmt.Errorf("schema: %w: nil index", types.ErrMissingSource)
		}
		key := strings.ToLower(ix.name)
		if indexes[key] {
			return fmt.Errorf("schema: %w: %s", types.ErrDuplicateIndex, ix.name)
		}
		if _, clash := tables[key]; clash {
			return fmt.Errorf("schema: %w: index %s shares a table name", types.ErrDuplicateIndex, ix.name)
		}
		indexes[key] = true
		if tables[strings.ToLower(ix.table.name)] != ix.table {
			return fmt.Errorf("schema: index %s: %w: %s", ix.name, types.ErrTableNotFound, ix.table.name)
		}
	}
	return nil
}

// Table looks up a table by name, case-insensitively.
func (s Schema) Table(name string) (*Table, bool) {
	for _, t := range s.Tables {
		if strings.EqualFold(t.name, name) {
			return t, true
		}
	}
	return nil, false
}

// DDL returns every CREATE statement in the order a registry issues them.
func (s Schema) DDL() []string {
	out := make([]string, 0, len(s.Tables)+len(s.Indexes))
	for _, t := range s.Tables {
		out = append(out, t.CreateSQL())
	}
	for _, ix := range s.Indexes {
		out = append(out, ix.CreateSQL())
	}
	return out
}
