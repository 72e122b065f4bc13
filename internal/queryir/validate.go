package queryir

import (
	"errors"
	"fmt"

	"github.com/roach88/outliner/internal/ir"
)

// ValidationError describes one problem with a query.
type ValidationError struct {
	Path    string // location in the predicate tree, e.g. "filter.and[1]"
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate checks that q can be evaluated by every backend. All problems
// are reported together.
func Validate(q Select) error {
	v := &validator{}
	if q.Document == "" {
		v.add("document", "required")
	}
	if q.Limit < 0 {
		v.add("limit", fmt.Sprintf("must not be negative, got %d", q.Limit))
	}
	if q.Filter != nil {
		v.predicate("filter", q.Filter)
	}
	return errors.Join(v.errs...)
}

type validator struct {
	errs []error
}

func (v *validator) add(path, msg string) {
	v.errs = append(v.errs, &ValidationError{Path: path, Message: msg})
}

func (v *validator) predicate(path string, p Predicate) {
	switch p := p.(type) {
	case Equals:
		switch {
		case p.Field == FieldStarred:
			if _, ok := p.Value.(ir.IRBool); !ok {
				v.add(path, fmt.Sprintf("%s takes a bool, got %T", p.Field, p.Value))
			}
		case p.Field.textual():
			if _, ok := p.Value.(ir.IRString); !ok {
				v.add(path, fmt.Sprintf("%s takes a string, got %T", p.Field, p.Value))
			}
		default:
			v.add(path, fmt.Sprintf("unknown field %q", p.Field))
		}
	case Contains:
		if !p.Field.textual() {
			v.add(path, fmt.Sprintf("contains needs a text field, got %q", p.Field))
		}
		if p.Text == "" {
			v.add(path, "contains needs non-empty text")
		}
	case And:
		if len(p.Predicates) == 0 {
			v.add(path, "and needs at least one predicate")
		}
		for i, sub := range p.Predicates {
			v.predicate(fmt.Sprintf("%s.and[%d]", path, i), sub)
		}
	case Not:
		if p.Predicate == nil {
			v.add(path, "not needs a predicate")
			return
		}
		v.predicate(path+".not", p.Predicate)
	case nil:
		v.add(path, "nil predicate")
	default:
		v.add(path, fmt.Sprintf("unsupported predicate %T", p))
	}
}
