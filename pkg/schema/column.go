package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// constraintType orders column constraints in their rendered DDL position.
type constraintType int

const (
	ctPrimaryKey constraintType = iota
	ctNotNull
	ctUnique
	ctDefault
)

var constraintNames = map[constraintType]string{
	ctPrimaryKey: "PRIMARY KEY",
	ctNotNull:    "NOT NULL",
	ctUnique:     "UNIQUE",
	ctDefault:    "DEFAULT",
}

// Constraint is a column-level constraint. Values are built with PrimaryKey,
// NotNull, Unique, Default and DefaultExpr.
type Constraint interface {
	constraintType() constraintType
	sql() string
}

// PrimaryKeyConstraint marks a single column as the table's primary key.
type PrimaryKeyConstraint struct {
	order         types.SortOrder
	policy        types.ConflictPolicy
	autoIncrement bool
}

// PrimaryKey returns a column PRIMARY KEY constraint.
func PrimaryKey() PrimaryKeyConstraint { return PrimaryKeyConstraint{} }

// Asc returns the constraint with ascending key order.
func (c PrimaryKeyConstraint) Asc() PrimaryKeyConstraint {
	c.order = types.SortAsc
	return c
}

// Desc returns the constraint with descending key order.
func (c PrimaryKeyConstraint) Desc() PrimaryKeyConstraint {
	c.order = types.SortDesc
	return c
}

// OnConflict returns the constraint with the given conflict policy.
func (c PrimaryKeyConstraint) OnConflict(p types.ConflictPolicy) PrimaryKeyConstraint {
	c.policy = p
	return c
}

// AutoIncrement returns the constraint with AUTOINCREMENT. Only valid on
// INTEGER columns in ascending or default order.
func (c PrimaryKeyConstraint) AutoIncrement() PrimaryKeyConstraint {
	c.autoIncrement = true
	return c
}

// Policy returns the conflict policy.
func (c PrimaryKeyConstraint) Policy() types.ConflictPolicy { return c.policy }

func (PrimaryKeyConstraint) constraintType() constraintType { return ctPrimaryKey }

func (c PrimaryKeyConstraint) sql() string {
	var b strings.Builder
	b.WriteString("PRIMARY KEY")
	if kw := c.order.Keyword(); kw != "" {
		b.WriteString(" " + kw)
	}
	writeConflict(&b, c.policy)
	if c.autoIncrement {
		b.WriteString(" AUTOINCREMENT")
	}
	return b.String()
}

// NotNullConstraint forbids NULL in a column.
type NotNullConstraint struct {
	policy types.ConflictPolicy
}

// NotNull returns a NOT NULL constraint.
func NotNull() NotNullConstraint { return NotNullConstraint{} }

// OnConflict returns the constraint with the given conflict policy.
func (c NotNullConstraint) OnConflict(p types.ConflictPolicy) NotNullConstraint {
	c.policy = p
	return c
}

// Policy returns the conflict policy.
func (c NotNullConstraint) Policy() types.ConflictPolicy { return c.policy }

func (NotNullConstraint) constraintType() constraintType { return ctNotNull }

func (c NotNullConstraint) sql() string {
	var b strings.Builder
	b.WriteString("NOT NULL")
	writeConflict(&b, c.policy)
	return b.String()
}

// UniqueConstraint forbids duplicate values in a column.
type UniqueConstraint struct {
	policy types.ConflictPolicy
}

// Unique returns a UNIQUE constraint.
func Unique() UniqueConstraint { return UniqueConstraint{} }

// OnConflict returns the constraint with the given conflict policy.
func (c UniqueConstraint) OnConflict(p types.ConflictPolicy) UniqueConstraint {
	c.policy = p
	return c
}

// Policy returns the conflict policy.
func (c UniqueConstraint) Policy() types.ConflictPolicy { return c.policy }

func (UniqueConstraint) constraintType() constraintType { return ctUnique }

func (c UniqueConstraint) sql() string {
	var b strings.Builder
	b.WriteString("UNIQUE")
	writeConflict(&b, c.policy)
	return b.String()
}

// DefaultConstraint supplies a column value when an insert omits it.
type DefaultConstraint struct {
	text string
	kind types.Kind
	err  error
}

// Default returns a DEFAULT constraint with an inline literal. Supported
// values are nil, strings, integers, floats, bools, []byte and time.Time.
func Default(v any) DefaultConstraint {
	text, kind, err := literal(v)
	return DefaultConstraint{text: text, kind: kind, err: err}
}

// DefaultExpr returns a DEFAULT constraint over a constant expression such as
// CURRENT_TIMESTAMP. The expression is parenthesized and not kind-checked.
func DefaultExpr(sql string) DefaultConstraint {
	return DefaultConstraint{text: "(" + sql + ")", kind: types.KindAny}
}

// Kind returns the kind of the default value.
func (c DefaultConstraint) Kind() types.Kind { return c.kind }

func (DefaultConstraint) constraintType() constraintType { return ctDefault }

func (c DefaultConstraint) sql() string { return "DEFAULT " + c.text }

func writeConflict(b *strings.Builder, p types.ConflictPolicy) {
	if kw := p.Keyword(); kw != "" {
		b.WriteString(" ON CONFLICT " + kw)
	}
}

// Column describes one table column. Columns are immutable once their table
// is built; expressions refer to them by pointer identity.
type Column struct {
	name        string
	kind        types.Kind
	constraints []Constraint
	table       *Table
	base        *Column
}

// NewColumn declares a column. Constraints render in the fixed order
// PRIMARY KEY, NOT NULL, UNIQUE, DEFAULT regardless of argument order.
func NewColumn(name string, kind types.Kind, constraints ...Constraint) (*Column, error) {
	if err := checkName("column", name); err != nil {
		return nil, err
	}
	if !kind.Declarable() {
		return nil, fmt.Errorf("column %q: %w: %s", name, types.ErrInvalidKind, kind)
	}

	seen := make(map[constraintType]bool, len(constraints))
	for _, c := range constraints {
		ct := c.constraintType()
		if seen[ct] {
			return nil, fmt.Errorf("column %q: %w: %s", name, types.ErrDuplicateConstraint, constraintNames[ct])
		}
		seen[ct] = true

		switch c := c.(type) {
		case PrimaryKeyConstraint:
			if c.autoIncrement && (kind != types.KindInteger || c.order == types.SortDesc) {
				return nil, fmt.Errorf("column %q: %w: AUTOINCREMENT needs an ascending INTEGER key",
					name, types.ErrConflictingConstraint)
			}
		case DefaultConstraint:
			if c.err != nil {
				return nil, fmt.Errorf("column %q default: %w", name, c.err)
			}
			if !types.Assignable(kind, c.kind) {
				return nil, fmt.Errorf("column %q: %w: %s default for %s column",
					name, types.ErrKindMismatch, c.kind, kind)
			}
		}
	}

	sorted := make([]Constraint, len(constraints))
	copy(sorted, constraints)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].constraintType() < sorted[j].constraintType()
	})

	return &Column{name: name, kind: kind, constraints: sorted}, nil
}

// MustColumn is like NewColumn but panics on a declaration error. It is meant
// for package-level schema declarations.
func MustColumn(name string, kind types.Kind, constraints ...Constraint) *Column {
	c, err := NewColumn(name, kind, constraints...)
	if err != nil {
		panic(err)
	}
	return c
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Kind returns the declared kind.
func (c *Column) Kind() types.Kind { return c.kind }

// Table returns the owning table, or nil before the column is added to one.
func (c *Column) Table() *Table { return c.table }

// Base returns the column this one was derived from through Table.As, or the
// column itself.
func (c *Column) Base() *Column {
	if c.base != nil {
		return c.base
	}
	return c
}

// QualifiedName returns "table.column", using the table alias when set.
func (c *Column) QualifiedName() string {
	if c.table == nil {
		return c.name
	}
	return c.table.Ref() + "." + c.name
}

// Constraints returns the column constraints in render order.
func (c *Column) Constraints() []Constraint {
	out := make([]Constraint, len(c.constraints))
	copy(out, c.constraints)
	return out
}

// IsPrimaryKey reports whether the column carries a column-level PRIMARY KEY.
func (c *Column) IsPrimaryKey() bool { return c.has(ctPrimaryKey) }

// IsNotNull reports whether the column carries NOT NULL.
func (c *Column) IsNotNull() bool { return c.has(ctNotNull) }

// IsUnique reports whether the column carries UNIQUE.
func (c *Column) IsUnique() bool { return c.has(ctUnique) }

// HasDefault reports whether the column carries DEFAULT.
func (c *Column) HasDefault() bool { return c.has(ctDefault) }

func (c *Column) has(ct constraintType) bool {
	for _, k := range c.constraints {
		if k.constraintType() == ct {
			return true
		}
	}
	return false
}

func (c *Column) autoIncrement() bool {
	for _, k := range c.constraints {
		if pk, ok := k.(PrimaryKeyConstraint); ok {
			return pk.autoIncrement
		}
	}
	return false
}

// definition renders the column for CREATE TABLE.
func (c *Column) definition() string {
	parts := []string{c.name, c.kind.Keyword()}
	for _, k := range c.constraints {
		parts = append(parts, k.sql())
	}
	return strings.Join(parts, " ")
}
