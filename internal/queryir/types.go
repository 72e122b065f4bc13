package queryir

import (
	"github.com/roach88/outliner/internal/ir"
)

// Field names a searchable node column.
type Field string

const (
	FieldID       Field = "id"
	FieldName     Field = "name"
	FieldTemplate Field = "template_id"
	FieldStarred  Field = "is_starred"
)

// textual reports whether the field holds a string.
func (f Field) textual() bool {
	switch f {
	case FieldID, FieldName, FieldTemplate:
		return true
	}
	return false
}

// Predicate is a filter condition. It is sealed: only types in this
// package implement it.
type Predicate interface {
	predicateNode()
}

// Equals matches when Field equals Value. Value is an ir.IRString for
// textual fields and an ir.IRBool for FieldStarred.
type Equals struct {
	Field Field
	Value ir.IRValue
}

func (Equals) predicateNode() {}

// Contains matches when a textual field contains Text, ignoring ASCII case.
type Contains struct {
	Field Field
	Text  string
}

func (Contains) predicateNode() {}

// And matches when every predicate matches.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Not inverts a predicate.
type Not struct {
	Predicate Predicate
}

func (Not) predicateNode() {}

// Select searches one document's nodes.
type Select struct {
	Document string
	Filter   Predicate // nil matches every node
	Limit    int       // 0 means no limit
}
