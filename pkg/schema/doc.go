// Package schema declares tables, columns, constraints and indexes, and
// renders their DDL.
//
// A column belongs to exactly one table. Expressions refer to columns by
// pointer, so a *Column doubles as a typed handle for query building.
// Names are validated as plain identifiers and never quoted.
package schema
