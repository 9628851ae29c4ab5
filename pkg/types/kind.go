package types

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Kind is the result kind of a column or expression.
//
// The first five kinds are storage classes a column may declare. KindBool,
// KindNull and KindAny only ever describe expressions: conditions, the NULL
// literal, and function calls whose result follows their arguments at run time.
type Kind int

// Result kinds.
const (
	KindInvalid Kind = iota
	KindText
	KindNumeric
	KindInteger
	KindReal
	KindBlob
	KindBool
	KindNull
	KindAny
)

var kindNames = map[Kind]string{
	KindInvalid: "invalid",
	KindText:    "text",
	KindNumeric: "numeric",
	KindInteger: "integer",
	KindReal:    "real",
	KindBlob:    "blob",
	KindBool:    "bool",
	KindNull:    "null",
	KindAny:     "any",
}

// declarable kinds map to their DDL keyword.
var kindKeywords = map[Kind]string{
	KindText:    "TEXT",
	KindNumeric: "NUMERIC",
	KindInteger: "INTEGER",
	KindReal:    "REAL",
	KindBlob:    "BLOB",
}

// String returns the lower-case kind name.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Keyword returns the DDL type keyword, or "" for kinds a column cannot declare.
func (k Kind) Keyword() string {
	return kindKeywords[k]
}

// Declarable reports whether a column may be declared with this kind.
func (k Kind) Declarable() bool {
	_, ok := kindKeywords[k]
	return ok
}

// ParseKind maps a kind name or DDL keyword (case-insensitive) to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if k == KindInvalid {
			continue
		}
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	switch {
	case strings.EqualFold(s, "int"):
		return KindInteger, nil
	case strings.EqualFold(s, "float"), strings.EqualFold(s, "double"):
		return KindReal, nil
	case strings.EqualFold(s, "string"):
		return KindText, nil
	}
	return KindInvalid, fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Numeric reports whether k belongs to the numeric family. Bool is numeric
// because conditions evaluate to 0 or 1.
func (k Kind) Numeric() bool {
	switch k {
	case KindInteger, KindReal, KindNumeric, KindBool:
		return true
	}
	return false
}

// Wildcard reports whether k is compatible with every other kind.
func (k Kind) Wildcard() bool {
	return k == KindNull || k == KindAny
}

// Comparable reports whether values of kinds a and b may be compared.
func Comparable(a, b Kind) bool {
	if a.Wildcard() || b.Wildcard() {
		return true
	}
	if a.Numeric() && b.Numeric() {
		return true
	}
	return a == b
}

// Assignable reports whether a value of kind v may be stored in a column
// declared with kind col.
func Assignable(col, v Kind) bool {
	if v.Wildcard() {
		return true
	}
	switch col {
	case KindText:
		return v == KindText
	case KindInteger:
		return v == KindInteger || v == KindBool
	case KindReal, KindNumeric:
		return v.Numeric()
	case KindBlob:
		return v == KindBlob
	case KindAny:
		return true
	}
	return false
}

// Arithmetic returns the result kind of a binary arithmetic operator over a
// and b. Both kinds must be numeric or wildcard.
func Arithmetic(a, b Kind) Kind {
	switch {
	case a == KindReal || b == KindReal:
		return KindReal
	case a.Wildcard() || b.Wildcard():
		return KindNumeric
	case isIntegral(a) && isIntegral(b):
		return KindInteger
	}
	return KindNumeric
}

// Unify returns the kind shared by a set of alternatives (COALESCE, CASE,
// IIF branches). Wildcards defer to the other kinds; mixed numeric kinds
// widen; anything else is KindAny.
func Unify(kinds ...Kind) Kind {
	out := KindNull
	for _, k := range kinds {
		switch {
		case k == KindNull:
		case out == KindNull:
			out = k
		case out == k:
		case out.Numeric() && k.Numeric():
			out = Arithmetic(out, k)
		default:
			return KindAny
		}
	}
	return out
}

func isIntegral(k Kind) bool {
	return k == KindInteger || k == KindBool
}

// SortOrder is an ordering direction for indexed columns, ORDER BY terms and
// window orderings. SortDefault renders nothing.
type SortOrder int

// Sort orders.
const (
	SortDefault SortOrder = iota
	SortAsc
	SortDesc
)

// Keyword returns "ASC", "DESC" or "".
func (o SortOrder) Keyword() string {
	switch o {
	case SortAsc:
		return "ASC"
	case SortDesc:
		return "DESC"
	}
	return ""
}

// ConflictPolicy is the engine action taken on a constraint violation.
// ConflictDefault renders no clause and leaves the engine default (ABORT).
type ConflictPolicy int

// Conflict policies.
const (
	ConflictDefault ConflictPolicy = iota
	ConflictRollback
	ConflictAbort
	ConflictFail
	ConflictIgnore
	ConflictReplace
)

var conflictKeywords = map[ConflictPolicy]string{
	ConflictRollback: "ROLLBACK",
	ConflictAbort:    "ABORT",
	ConflictFail:     "FAIL",
	ConflictIgnore:   "IGNORE",
	ConflictReplace:  "REPLACE",
}

// Keyword returns the SQL keyword of the policy, or "" for ConflictDefault.
func (p ConflictPolicy) Keyword() string {
	return conflictKeywords[p]
}

// ParseConflictPolicy maps a policy keyword (case-insensitive) to a policy.
// The empty string is ConflictDefault.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	if s == "" {
		return ConflictDefault, nil
	}
	for p, kw := range conflictKeywords {
		if strings.EqualFold(s, kw) {
			return p, nil
		}
	}
	return ConflictDefault, fmt.Errorf("%w: %q", ErrConflictPolicyUnknown, s)
}

// KindOf infers the kind of a host value bound as a parameter. Values
// implementing driver.Valuer report KindAny since their stored form is only
// known after conversion.
func KindOf(v any) (Kind, error) {
	switch v.(type) {
	case nil:
		return KindNull, nil
	case string, time.Time:
		return KindText, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInteger, nil
	case float32, float64:
		return KindReal, nil
	case []byte:
		return KindBlob, nil
	case bool:
		return KindBool, nil
	case driver.Valuer:
		return KindAny, nil
	}
	return KindInvalid, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}
