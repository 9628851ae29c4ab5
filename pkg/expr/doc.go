// Package expr builds typed SQL expressions and conditions.
//
// Every value renders to a fragment with ? placeholders and carries the
// parameters for those placeholders in left-to-right order. Operands are
// kind-checked as they are combined; a mismatch is recorded on the result
// and surfaces when the enclosing statement is built.
//
//	age := expr.Col(users.MustColumn("age"))
//	cond := age.Ge(18).And(age.Lt(65))
//	// cond.SQL():    (users.age >= ?) AND (users.age < ?)
//	// cond.Params(): [18 65]
package expr
