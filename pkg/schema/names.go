package schema

import (
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/typedsql/pkg/types"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reserved holds SQL keywords that cannot appear unquoted as identifiers.
// Names are never quoted in generated SQL, so these are rejected up front.
var reserved = map[string]bool{
	"ABORT": true, "ADD": true, "ALL": true, "ALTER": true, "AND": true, "AS": true,
	"ASC": true, "BETWEEN": true, "BY": true, "CASE": true, "CHECK": true,
	"COLLATE": true, "COLUMN": true, "CONFLICT": true, "CONSTRAINT": true,
	"CREATE": true, "CROSS": true, "DEFAULT": true, "DELETE": true, "DESC": true,
	"DISTINCT": true, "DROP": true, "ELSE": true, "END": true, "ESCAPE": true,
	"EXCEPT": true, "EXISTS": true, "FOREIGN": true, "FROM": true, "FULL": true,
	"GLOB": true, "GROUP": true, "HAVING": true, "IF": true, "IN": true,
	"INDEX": true, "INNER": true, "INSERT": true, "INTERSECT": true, "INTO": true,
	"IS": true, "ISNULL": true, "JOIN": true, "KEY": true, "LEFT": true,
	"LIKE": true, "LIMIT": true, "NOT": true, "NOTNULL": true, "NULL": true,
	"OFFSET": true, "ON": true, "OR": true, "ORDER": true, "OUTER": true,
	"OVER": true, "PARTITION": true, "PRIMARY": true, "REFERENCES": true,
	"REPLACE": true, "RIGHT": true, "SELECT": true, "SET": true, "TABLE": true,
	"THEN": true, "TO": true, "TRANSACTION": true, "UNION": true, "UNIQUE": true,
	"UPDATE": true, "USING": true, "VALUES": true, "WHEN": true, "WHERE": true,
	"WINDOW": true, "WITH": true, "WITHOUT": true,
}

// ValidName reports whether name can be used unquoted as a table, column or
// index name.
func ValidName(name string) bool {
	return identRe.MatchString(name) && !reserved[strings.ToUpper(name)]
}

func checkName(what, name string) error {
	if !ValidName(name) {
		return fmt.Errorf("%w: %s name %q", types.ErrInvalidName, what, name)
	}
	return nil
}

// QuoteText renders s as a single-quoted SQL string literal.
func QuoteText(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// literal renders a host value as inline SQL for DEFAULT clauses, returning
// the kind the literal carries.
func literal(v any) (string, types.Kind, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", types.KindNull, nil
	case string:
		return QuoteText(x), types.KindText, nil
	case []byte:
		return "X'" + strings.ToUpper(hex.EncodeToString(x)) + "'", types.KindBlob, nil
	case bool:
		if x {
			return "1", types.KindBool, nil
		}
		return "0", types.KindBool, nil
	case int:
		return strconv.FormatInt(int64(x), 10), types.KindInteger, nil
	case int8:
		return strconv.FormatInt(int64(x), 10), types.KindInteger, nil
	case int16:
		return strconv.FormatInt(int64(x), 10), types.KindInteger, nil
	case int32:
		return strconv.FormatInt(int64(x), 10), types.KindInteger, nil
	case int64:
		return strconv.FormatInt(x, 10), types.KindInteger, nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), types.KindInteger, nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), types.KindInteger, nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), types.KindInteger, nil
	case uint:
		return uintLiteral(uint64(x))
	case uint64:
		return uintLiteral(x)
	case float32:
		return formatReal(float64(x)), types.KindReal, nil
	case float64:
		return formatReal(x), types.KindReal, nil
	case time.Time:
		return QuoteText(x.UTC().Format(time.RFC3339Nano)), types.KindText, nil
	}
	return "", types.KindInvalid, fmt.Errorf("%w: %T", types.ErrUnsupportedValue, v)
}

func uintLiteral(u uint64) (string, types.Kind, error) {
	if u > math.MaxInt64 {
		return "", types.KindInvalid, fmt.Errorf("%w: %d overflows int64", types.ErrUnsupportedValue, u)
	}
	return strconv.FormatUint(u, 10), types.KindInteger, nil
}

// formatReal keeps a decimal point so the literal reads back as REAL.
func formatReal(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
