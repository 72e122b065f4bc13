package queryir

import (
	"sort"
	"strings"

	"github.com/roach88/outliner/internal/ir"
)

// Match reports whether n satisfies p. A nil predicate matches.
func Match(p Predicate, n *ir.Node) bool {
	switch p := p.(type) {
	case nil:
		return true
	case Equals:
		if p.Field == FieldStarred {
			b, ok := p.Value.(ir.IRBool)
			return ok && bool(b) == n.IsStarred
		}
		s, ok := p.Value.(ir.IRString)
		return ok && fieldText(p.Field, n) == string(s)
	case Contains:
		return strings.Contains(asciiLower(fieldText(p.Field, n)), asciiLower(p.Text))
	case And:
		for _, sub := range p.Predicates {
			if !Match(sub, n) {
				return false
			}
		}
		return true
	case Not:
		return !Match(p.Predicate, n)
	default:
		return false
	}
}

// Apply filters nodes with q, ordered by position then id, and applies the
// limit. q.Document is not checked; callers pass one document's nodes.
func Apply(q Select, nodes []ir.Node) []ir.Node {
	out := []ir.Node{}
	for i := range nodes {
		if Match(q.Filter, &nodes[i]) {
			out = append(out, nodes[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func fieldText(f Field, n *ir.Node) string {
	switch f {
	case FieldID:
		return string(n.ID)
	case FieldName:
		return n.Name
	case FieldTemplate:
		return n.TemplateID
	}
	return ""
}

// asciiLower folds only A-Z, matching SQLite's LOWER.
func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}
