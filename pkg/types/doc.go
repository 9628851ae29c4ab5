// Package types defines the shared vocabulary of typedsql: result kinds,
// sort orders, conflict policies, compiled statements, decoded values,
// store configuration, and the standard errors every other package returns.
//
// The package is a leaf: schema, expr, query and sqlite all import it and it
// imports none of them.
package types
