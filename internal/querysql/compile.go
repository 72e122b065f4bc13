// Package querysql compiles queryir searches to parameterized SQL over the
// nodes table.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/outliner/internal/ir"
	"github.com/roach88/outliner/internal/queryir"
)

// Compile converts a search to SQL selecting columns from nodes, with "?"
// placeholders in argument order. Values are never interpolated. Results are
// ordered by position, then id.
func Compile(q queryir.Select, columns string) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, fmt.Errorf("invalid query: %w", err)
	}

	var b strings.Builder
	params := []any{q.Document}
	fmt.Fprintf(&b, "SELECT %s FROM nodes WHERE document_id = ?", columns)

	if q.Filter != nil {
		where, filterParams, err := compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" AND ")
		b.WriteString(where)
		params = append(params, filterParams...)
	}

	b.WriteString(" ORDER BY position ASC, id ASC")
	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}
	return b.String(), params, nil
}

// compilePredicate compiles one predicate to a parenthesized fragment.
func compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return compileEquals(pred)
	case queryir.Contains:
		return fmt.Sprintf(`(LOWER(%s) LIKE ? ESCAPE '\')`, pred.Field), []any{likePattern(pred.Text)}, nil
	case queryir.And:
		parts := make([]string, 0, len(pred.Predicates))
		var params []any
		for _, sub := range pred.Predicates {
			sql, subParams, err := compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sql)
			params = append(params, subParams...)
		}
		return "(" + strings.Join(parts, " AND ") + ")", params, nil
	case queryir.Not:
		sql, params, err := compilePredicate(pred.Predicate)
		if err != nil {
			return "", nil, err
		}
		return "(NOT " + sql + ")", params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals compiles an Equals predicate to "(field = ?)".
func compileEquals(eq queryir.Equals) (string, []any, error) {
	param, err := irValueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("convert value: %w", err)
	}
	return fmt.Sprintf("(%s = ?)", eq.Field), []any{param}, nil
}

// irValueToParam converts a literal to a driver value. Booleans are stored
// as 0 or 1.
func irValueToParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRBool:
		if val {
			return 1, nil
		}
		return 0, nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

// likePattern lowercases ASCII letters, escapes LIKE wildcards and wraps
// text for a substring match.
func likePattern(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 2)
	b.WriteByte('%')
	for _, r := range text {
		switch {
		case r == '%' || r == '_' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case 'A' <= r && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('%')
	return b.String()
}
