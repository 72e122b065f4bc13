package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/outliner/internal/ir"
)

// ParseFilter parses the filter syntax described in the package doc. An
// empty string yields a nil predicate.
func ParseFilter(s string) (Predicate, error) {
	var preds []Predicate
	for _, term := range strings.Fields(s) {
		p, err := parseTerm(term)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	switch len(preds) {
	case 0:
		return nil, nil
	case 1:
		return preds[0], nil
	default:
		return And{Predicates: preds}, nil
	}
}

func parseTerm(term string) (Predicate, error) {
	if rest, ok := strings.CutPrefix(term, "-"); ok {
		if rest == "" {
			return nil, fmt.Errorf("empty negation")
		}
		p, err := parseTerm(rest)
		if err != nil {
			return nil, err
		}
		return Not{Predicate: p}, nil
	}

	key, value, ok := strings.Cut(term, ":")
	if !ok {
		return Contains{Field: FieldName, Text: term}, nil
	}
	if value == "" {
		return nil, fmt.Errorf("term %q: missing value", term)
	}
	switch key {
	case "is":
		if value != "starred" {
			return nil, fmt.Errorf("term %q: unknown flag %q", term, value)
		}
		return Equals{Field: FieldStarred, Value: ir.IRBool(true)}, nil
	case "template":
		return Equals{Field: FieldTemplate, Value: ir.IRString(value)}, nil
	case "id":
		return Equals{Field: FieldID, Value: ir.IRString(value)}, nil
	case "name":
		return Contains{Field: FieldName, Text: value}, nil
	default:
		return nil, fmt.Errorf("term %q: unknown key %q", term, key)
	}
}
