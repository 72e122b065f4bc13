package ir

import (
	"regexp"
	"strings"
)

// RefScheme prefixes in-payload references to other nodes: "node://<id>".
const RefScheme = "node://"

var refPattern = regexp.MustCompile(`node://([A-Za-z0-9_\-.:]+)`)

// NodeRef renders a reference to id.
func NodeRef(id NodeID) string {
	return RefScheme + string(id)
}

// ExtractRefs returns every node id referenced from strings in v, in
// encounter order (object keys visited in canonical order).
func ExtractRefs(v IRValue) []NodeID {
	var out []NodeID
	visitStrings(v, func(s string) {
		for _, m := range refPattern.FindAllStringSubmatch(s, -1) {
			out = append(out, NodeID(m[1]))
		}
	})
	return out
}

func visitStrings(v IRValue, fn func(string)) {
	switch val := v.(type) {
	case IRString:
		fn(string(val))
	case IRArray:
		for _, e := range val {
			visitStrings(e, fn)
		}
	case IRObject:
		for _, k := range val.SortedKeys() {
			visitStrings(val[k], fn)
		}
	}
}

// RewriteRefs returns a copy of v with every node://<old> reference whose id
// appears in remap replaced by node://<new>. References to ids outside the
// remap table are left untouched.
func RewriteRefs(v IRValue, remap map[NodeID]NodeID) IRValue {
	if len(remap) == 0 {
		return CloneValue(v)
	}
	return walkStrings(CloneValue(v), func(s string) string {
		if !strings.Contains(s, RefScheme) {
			return s
		}
		return refPattern.ReplaceAllStringFunc(s, func(m string) string {
			if to, ok := remap[NodeID(strings.TrimPrefix(m, RefScheme))]; ok {
				return NodeRef(to)
			}
			return m
		})
	})
}

// walkStrings applies fn to every string in v, rewriting containers in place.
// Only call it on a private copy.
func walkStrings(v IRValue, fn func(string) string) IRValue {
	switch val := v.(type) {
	case IRString:
		return IRString(fn(string(val)))
	case IRArray:
		for i, e := range val {
			val[i] = walkStrings(e, fn)
		}
		return val
	case IRObject:
		for _, k := range val.SortedKeys() {
			val[k] = walkStrings(val[k], fn)
		}
		return val
	default:
		return v
	}
}
