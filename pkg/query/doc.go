// Package query assembles statements from expressions.
//
// Builders are values. Every clause method returns an updated copy that
// shares no mutable state with its receiver, so a partially built statement
// can be reused as a template. Build validates the whole statement and
// returns the SQL text with its parameters in placeholder order:
// projection, joins, WHERE, GROUP BY, HAVING, ORDER BY.
package query
