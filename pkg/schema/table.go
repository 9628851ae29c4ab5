package schema

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// IndexedColumn is a column reference with an optional sort order, used by
// table-level constraints and indexes.
type IndexedColumn struct {
	Column *Column
	Order  types.SortOrder
}

// On returns c with the default order.
func On(c *Column) IndexedColumn { return IndexedColumn{Column: c} }

// Asc returns c in ascending order.
func Asc(c *Column) IndexedColumn { return IndexedColumn{Column: c, Order: types.SortAsc} }

// Desc returns c in descending order.
func Desc(c *Column) IndexedColumn { return IndexedColumn{Column: c, Order: types.SortDesc} }

func (ic IndexedColumn) sql() string {
	if kw := ic.Order.Keyword(); kw != "" {
		return ic.Column.name + " " + kw
	}
	return ic.Column.name
}

// TableConstraint is a composite PRIMARY KEY or UNIQUE constraint.
type TableConstraint struct {
	primary bool
	columns []IndexedColumn
	policy  types.ConflictPolicy
}

// PrimaryKeyOf returns a composite PRIMARY KEY over cols.
func PrimaryKeyOf(cols ...IndexedColumn) TableConstraint {
	return TableConstraint{primary: true, columns: append([]IndexedColumn(nil), cols...)}
}

// UniqueOf returns a composite UNIQUE constraint over cols.
func UniqueOf(cols ...IndexedColumn) TableConstraint {
	return TableConstraint{columns: append([]IndexedColumn(nil), cols...)}
}

// OnConflict returns the constraint with the given conflict policy.
func (tc TableConstraint) OnConflict(p types.ConflictPolicy) TableConstraint {
	tc.policy = p
	return tc
}

// IsPrimaryKey reports whether the constraint is a PRIMARY KEY.
func (tc TableConstraint) IsPrimaryKey() bool { return tc.primary }

// Columns returns the constrained columns.
func (tc TableConstraint) Columns() []IndexedColumn {
	return append([]IndexedColumn(nil), tc.columns...)
}

// Policy returns the conflict policy.
func (tc TableConstraint) Policy() types.ConflictPolicy { return tc.policy }

func (tc TableConstraint) sql() string {
	var b strings.Builder
	if tc.primary {
		b.WriteString("PRIMARY KEY (")
	} else {
		b.WriteString("UNIQUE (")
	}
	for i, ic := range tc.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ic.sql())
	}
	b.WriteString(")")
	writeConflict(&b, tc.policy)
	return b.String()
}

// TableOption configures a table in NewTable.
type TableOption func(*Table)

// WithPrimaryKey adds a composite PRIMARY KEY.
func WithPrimaryKey(cols ...IndexedColumn) TableOption {
	return WithConstraints(PrimaryKeyOf(cols...))
}

// WithUnique adds a composite UNIQUE constraint.
func WithUnique(cols ...IndexedColumn) TableOption {
	return WithConstraints(UniqueOf(cols...))
}

// WithConstraints adds table-level constraints in order.
func WithConstraints(tcs ...TableConstraint) TableOption {
	return func(t *Table) { t.constraints = append(t.constraints, tcs...) }
}

// WithoutRowID suppresses the implicit rowid. The table must have a primary key.
func WithoutRowID() TableOption {
	return func(t *Table) { t.withoutRowID = true }
}

// Strict enables strict column typing. NUMERIC columns are not allowed.
func Strict() TableOption {
	return func(t *Table) { t.strict = true }
}

// Table describes a table: ordered columns, table-level constraints and
// options. A table produced by As shares its declaration with the base table
// and differs only in the name used to qualify its columns.
type Table struct {
	name         string
	alias        string
	base         *Table
	columns      []*Column
	byName       map[string]*Column
	constraints  []TableConstraint
	withoutRowID bool
	strict       bool
}

// NewTable declares a table over columns in DDL order. Each column is bound
// to the table and may not be used in another.
func NewTable(name string, columns []*Column, opts ...TableOption) (*Table, error) {
	if err := checkName("table", name); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %q: %w", name, types.ErrNoColumns)
	}

	t := &Table{name: name, byName: make(map[string]*Column, len(columns))}
	for _, opt := range opts {
		opt(t)
	}

	columnPKs := 0
	for _, c := range columns {
		if c == nil {
			return nil, fmt.Errorf("table %q: %w: nil column", name, types.ErrNoColumns)
		}
		if c.table != nil {
			return nil, fmt.Errorf("table %q: %w: %s", name, types.ErrColumnOwned, c.QualifiedName())
		}
		key := strings.ToLower(c.name)
		if _, dup := t.byName[key]; dup {
			return nil, fmt.Errorf("table %q: %w: %s", name, types.ErrDuplicateColumn, c.name)
		}
		t.byName[key] = c
		if c.IsPrimaryKey() {
			columnPKs++
		}
		if t.strict && c.kind == types.KindNumeric {
			return nil, fmt.Errorf("table %q: %w: NUMERIC column %s in STRICT table",
				name, types.ErrInvalidKind, c.name)
		}
		if t.withoutRowID && c.autoIncrement() {
			return nil, fmt.Errorf("table %q: %w: AUTOINCREMENT in WITHOUT ROWID table",
				name, types.ErrConflictingConstraint)
		}
	}
	if columnPKs > 1 {
		return nil, fmt.Errorf("table %q: %w: %d column-level primary keys; use WithPrimaryKey",
			name, types.ErrDuplicateConstraint, columnPKs)
	}

	tablePKs := 0
	for _, tc := range t.constraints {
		if tc.primary {
			tablePKs++
		}
		if len(tc.columns) == 0 {
			return nil, fmt.Errorf("table %q: %w in table constraint", name, types.ErrNoColumns)
		}
		seen := make(map[*Column]bool, len(tc.columns))
		for _, ic := range tc.columns {
			if ic.Column == nil || t.byName[strings.ToLower(ic.Column.name)] != ic.Column {
				return nil, fmt.Errorf("table %q: %w: constraint column %s",
					name, types.ErrUnknownColumn, describe(ic.Column))
			}
			if seen[ic.Column] {
				return nil, fmt.Errorf("table %q: %w: %s repeated in constraint",
					name, types.ErrDuplicateColumn, ic.Column.name)
			}
			seen[ic.Column] = true
		}
	}
	switch {
	case tablePKs > 1:
		return nil, fmt.Errorf("table %q: %w: %d table primary keys", name, types.ErrDuplicateConstraint, tablePKs)
	case tablePKs == 1 && columnPKs == 1:
		return nil, fmt.Errorf("table %q: %w: column and table primary keys", name, types.ErrConflictingConstraint)
	case t.withoutRowID && tablePKs+columnPKs == 0:
		return nil, fmt.Errorf("table %q: %w: WITHOUT ROWID", name, types.ErrNoPrimaryKey)
	}

	t.columns = append([]*Column(nil), columns...)
	for _, c := range t.columns {
		c.table = t
	}
	return t, nil
}

// MustTable is like NewTable but panics on a declaration error.
func MustTable(name string, columns []*Column, opts ...TableOption) *Table {
	t, err := NewTable(name, columns, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

func describe(c *Column) string {
	if c == nil {
		return "<nil>"
	}
	return c.QualifiedName()
}

// As returns a view of the table under alias, for self joins and correlated
// subqueries. The view has its own column handles; each reports the base
// table's column through Base.
func (t *Table) As(alias string) (*Table, error) {
	if err := checkName("alias", alias); err != nil {
		return nil, err
	}
	base := t.Base()
	v := &Table{
		name:         base.name,
		alias:        alias,
		base:         base,
		byName:       make(map[string]*Column, len(base.columns)),
		constraints:  base.constraints,
		withoutRowID: base.withoutRowID,
		strict:       base.strict,
	}
	for _, c := range base.columns {
		cc := &Column{name: c.name, kind: c.kind, constraints: c.constraints, table: v, base: c}
		v.columns = append(v.columns, cc)
		v.byName[strings.ToLower(c.name)] = cc
	}
	return v, nil
}

// MustAs is like As but panics on an invalid alias.
func (t *Table) MustAs(alias string) *Table {
	v, err := t.As(alias)
	if err != nil {
		panic(err)
	}
	return v
}

// Name returns the declared table name.
func (t *Table) Name() string { return t.name }

// Alias returns the alias, or "" for a base table.
func (t *Table) Alias() string { return t.alias }

// Base returns the declared table behind an alias, or t itself.
func (t *Table) Base() *Table {
	if t.base != nil {
		return t.base
	}
	return t
}

// Ref returns the name that qualifies the table's columns.
func (t *Table) Ref() string {
	if t.alias != "" {
		return t.alias
	}
	return t.name
}

// SourceSQL renders the table for a FROM or JOIN clause.
func (t *Table) SourceSQL() string {
	if t.alias != "" {
		return t.name + " AS " + t.alias
	}
	return t.name
}

// Columns returns the columns in declared order.
func (t *Table) Columns() []*Column {
	return append([]*Column(nil), t.columns...)
}

// Column looks up a column by name, case-insensitively like SQLite.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.byName[strings.ToLower(name)]
	return c, ok
}

// MustColumn looks up a column by name and panics when it is missing.
func (t *Table) MustColumn(name string) *Column {
	c, ok := t.Column(name)
	if !ok {
		panic(fmt.Sprintf("table %s has no column %s", t.name, name))
	}
	return c
}

// Has reports whether c is one of this table's column handles.
func (t *Table) Has(c *Column) bool {
	return c != nil && c.table == t
}

// Constraints returns the table-level constraints.
func (t *Table) Constraints() []TableConstraint {
	return append([]TableConstraint(nil), t.constraints...)
}

// PrimaryKey returns the primary key columns in key order: the column-level
// key, or the columns of the table-level PRIMARY KEY. It is empty for rowid
// tables without a declared key.
func (t *Table) PrimaryKey() []*Column {
	for _, c := range t.columns {
		if c.IsPrimaryKey() {
			return []*Column{c}
		}
	}
	for _, tc := range t.constraints {
		if !tc.primary {
			continue
		}
		out := make([]*Column, len(tc.columns))
		for i, ic := range tc.columns {
			out[i] = ic.Column
			if t.base != nil {
				out[i] = t.byName[strings.ToLower(ic.Column.name)]
			}
		}
		return out
	}
	return nil
}

// HasRowID reports whether the table keeps the implicit rowid.
func (t *Table) HasRowID() bool { return !t.withoutRowID }

// IsStrict reports whether the table uses strict typing.
func (t *Table) IsStrict() bool { return t.strict }

// CreateSQL renders the idempotent CREATE TABLE statement.
func (t *Table) CreateSQL() string {
	base := t.Base()
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(base.name)
	b.WriteString(" (")
	for i, c := range base.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.definition())
	}
	for _, tc := range base.constraints {
		b.WriteString(", ")
		b.WriteString(tc.sql())
	}
	b.WriteString(")")

	var opts []string
	if base.withoutRowID {
		opts = append(opts, "WITHOUT ROWID")
	}
	if base.strict {
		opts = append(opts, "STRICT")
	}
	if len(opts) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(opts, ", "))
	}
	return b.String()
}

// DropSQL renders DROP TABLE IF EXISTS.
func (t *Table) DropSQL() string {
	return "DROP TABLE IF EXISTS " + t.Base().name
}
