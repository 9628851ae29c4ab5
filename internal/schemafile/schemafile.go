// Package schemafile loads table and index declarations from a YAML file.
//
//	tables:
//	  - name: users
//	    columns:
//	      - {name: id, kind: integer, primary_key: true, autoincrement: true}
//	      - {name: email, kind: text, not_null: true, unique: true}
//	      - {name: score, kind: real, default: 0}
//	indexes:
//	  - {name: users_by_score, table: users, columns: [score desc]}
package schemafile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/typedsql/pkg/schema"
	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// ErrEmpty is returned for a file that declares no tables.
var ErrEmpty = errors.New("schema file declares no tables")

// File is the YAML document.
type File struct {
	Tables  []TableSpec `yaml:"tables"`
	Indexes []IndexSpec `yaml:"indexes"`
}

// TableSpec declares one table. PrimaryKey and Unique entries name columns,
// optionally followed by asc or desc.
type TableSpec struct {
	Name         string       `yaml:"name"`
	Columns      []ColumnSpec `yaml:"columns"`
	PrimaryKey   []string     `yaml:"primary_key"`
	OnConflict   string       `yaml:"on_conflict"`
	Unique       [][]string   `yaml:"unique"`
	WithoutRowID bool         `yaml:"without_rowid"`
	Strict       bool         `yaml:"strict"`
}

// ColumnSpec declares one column. OnConflict applies to each of the
// column's PRIMARY KEY, NOT NULL and UNIQUE constraints.
type ColumnSpec struct {
	Name          string     `yaml:"name"`
	Kind          string     `yaml:"kind"`
	PrimaryKey    bool       `yaml:"primary_key"`
	Order         string     `yaml:"order"`
	AutoIncrement bool       `yaml:"autoincrement"`
	NotNull       bool       `yaml:"not_null"`
	Unique        bool       `yaml:"unique"`
	Default       *yaml.Node `yaml:"default"`
	DefaultExpr   string     `yaml:"default_expr"`
	OnConflict    string     `yaml:"on_conflict"`
}

// IndexSpec declares one index.
type IndexSpec struct {
	Name    string   `yaml:"name"`
	Table   string   `yaml:"table"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique"`
}

// Load reads and builds the schema file at path.
func Load(path string) (schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Schema{}, fmt.Errorf("reading schema file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return schema.Schema{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a YAML document and builds its schema. Unknown keys are
// rejected.
func Parse(data []byte) (schema.Schema, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return schema.Schema{}, fmt.Errorf("decoding schema file: %w", err)
	}
	return f.Build()
}

// Build declares the tables and indexes of f and validates the result.
func (f File) Build() (schema.Schema, error) {
	if len(f.Tables) == 0 {
		return schema.Schema{}, ErrEmpty
	}

	var s schema.Schema
	for _, ts := range f.Tables {
		t, err := ts.build()
		if err != nil {
			return schema.Schema{}, err
		}
		s.Tables = append(s.Tables, t)
	}
	for _, is := range f.Indexes {
		t, ok := s.Table(is.Table)
		if !ok {
			return schema.Schema{}, fmt.Errorf("index %q: %w: %s", is.Name, types.ErrTableNotFound, is.Table)
		}
		cols, err := indexedColumns(t, is.Columns)
		if err != nil {
			return schema.Schema{}, fmt.Errorf("index %q: %w", is.Name, err)
		}
		var ix *schema.Index
		if is.Unique {
			ix, err = schema.NewUniqueIndex(is.Name, t, cols...)
		} else {
			ix, err = schema.NewIndex(is.Name, t, cols...)
		}
		if err != nil {
			return schema.Schema{}, err
		}
		s.Indexes = append(s.Indexes, ix)
	}
	if err := s.Validate(); err != nil {
		return schema.Schema{}, err
	}
	return s, nil
}

func (ts TableSpec) build() (*schema.Table, error) {
	columns := make([]*schema.Column, 0, len(ts.Columns))
	byName := make(map[string]*schema.Column, len(ts.Columns))
	for _, cs := range ts.Columns {
		c, err := cs.build()
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", ts.Name, err)
		}
		columns = append(columns, c)
		byName[strings.ToLower(cs.Name)] = c
	}

	lookup := func(spec string) (schema.IndexedColumn, error) {
		name, order, err := splitOrder(spec)
		if err != nil {
			return schema.IndexedColumn{}, err
		}
		c, ok := byName[strings.ToLower(name)]
		if !ok {
			return schema.IndexedColumn{}, fmt.Errorf("%w: %s", types.ErrUnknownColumn, name)
		}
		return schema.IndexedColumn{Column: c, Order: order}, nil
	}

	var constraints []schema.TableConstraint
	if len(ts.PrimaryKey) > 0 {
		policy, err := types.ParseConflictPolicy(ts.OnConflict)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", ts.Name, err)
		}
		var key []schema.IndexedColumn
		for _, spec := range ts.PrimaryKey {
			ic, err := lookup(spec)
			if err != nil {
				return nil, fmt.Errorf("table %q primary key: %w", ts.Name, err)
			}
			key = append(key, ic)
		}
		constraints = append(constraints, schema.PrimaryKeyOf(key...).OnConflict(policy))
	}
	for _, group := range ts.Unique {
		var cols []schema.IndexedColumn
		for _, spec := range group {
			ic, err := lookup(spec)
			if err != nil {
				return nil, fmt.Errorf("table %q unique: %w", ts.Name, err)
			}
			cols = append(cols, ic)
		}
		constraints = append(constraints, schema.UniqueOf(cols...))
	}

	opts := []schema.TableOption{schema.WithConstraints(constraints...)}
	if ts.WithoutRowID {
		opts = append(opts, schema.WithoutRowID())
	}
	if ts.Strict {
		opts = append(opts, schema.Strict())
	}
	return schema.NewTable(ts.Name, columns, opts...)
}

func (cs ColumnSpec) build() (*schema.Column, error) {
	kind, err := types.ParseKind(cs.Kind)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", cs.Name, err)
	}
	policy, err := types.ParseConflictPolicy(cs.OnConflict)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", cs.Name, err)
	}

	var constraints []schema.Constraint
	if cs.PrimaryKey {
		pk := schema.PrimaryKey().OnConflict(policy)
		switch strings.ToLower(cs.Order) {
		case "":
		case "asc":
			pk = pk.Asc()
		case "desc":
			pk = pk.Desc()
		default:
			return nil, fmt.Errorf("column %q: unknown order %q", cs.Name, cs.Order)
		}
		if cs.AutoIncrement {
			pk = pk.AutoIncrement()
		}
		constraints = append(constraints, pk)
	} else if cs.Order != "" || cs.AutoIncrement {
		return nil, fmt.Errorf("column %q: %w: order and autoincrement need primary_key",
			cs.Name, types.ErrConflictingConstraint)
	}
	if cs.NotNull {
		constraints = append(constraints, schema.NotNull().OnConflict(policy))
	}
	if cs.Unique {
		constraints = append(constraints, schema.Unique().OnConflict(policy))
	}
	switch {
	case cs.Default != nil && cs.DefaultExpr != "":
		return nil, fmt.Errorf("column %q: %w: default and default_expr", cs.Name, types.ErrDuplicateConstraint)
	case cs.Default != nil:
		var v any
		if err := cs.Default.Decode(&v); err != nil {
			return nil, fmt.Errorf("column %q default: %w", cs.Name, err)
		}
		constraints = append(constraints, schema.Default(v))
	case cs.DefaultExpr != "":
		constraints = append(constraints, schema.DefaultExpr(cs.DefaultExpr))
	}
	return schema.NewColumn(cs.Name, kind, constraints...)
}

func indexedColumns(t *schema.Table, specs []string) ([]schema.IndexedColumn, error) {
	out := make([]schema.IndexedColumn, 0, len(specs))
	for _, spec := range specs {
		name, order, err := splitOrder(spec)
		if err != nil {
			return nil, err
		}
		c, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", types.ErrUnknownColumn, t.Name(), name)
		}
		out = append(out, schema.IndexedColumn{Column: c, Order: order})
	}
	return out, nil
}

// splitOrder parses "name", "name asc" or "name desc".
func splitOrder(spec string) (string, types.SortOrder, error) {
	fields := strings.Fields(spec)
	switch {
	case len(fields) == 1:
		return fields[0], types.SortDefault, nil
	case len(fields) == 2 && strings.EqualFold(fields[1], "asc"):
		return fields[0], types.SortAsc, nil
	case len(fields) == 2 && strings.EqualFold(fields[1], "desc"):
		return fields[0], types.SortDesc, nil
	}
	return "", types.SortDefault, fmt.Errorf("invalid column spec %q", spec)
}
