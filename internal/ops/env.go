package ops

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/outliner/internal/ir"
)

// IDGenerator produces globally unique ids for new and duplicated nodes.
// Implemented by engine.UUIDv7Generator and, in tests, testutil.SequenceIDs.
type IDGenerator interface {
	Generate() string
}

// TemplateResolver looks up template descriptors. Templates are read-only
// to operations.
type TemplateResolver interface {
	TemplateByID(id string) (ir.Template, bool)
}

// Env carries the collaborators an operation needs.
type Env struct {
	// Now stamps created and updated nodes. Defaults to time.Now.
	Now func() time.Time

	// IDs generates ids for created nodes.
	IDs IDGenerator

	// Templates resolves template ids. A nil resolver skips template checks
	// and title-field derivation.
	Templates TemplateResolver

	// DocumentID is stamped on created nodes.
	DocumentID string
}

func (e Env) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e Env) template(id string) (ir.Template, bool) {
	if e.Templates == nil || id == "" {
		return ir.Template{}, false
	}
	return e.Templates.TemplateByID(id)
}

// NormalizeName returns the display form of a name: NFC normalized, with
// line breaks folded to spaces and surrounding space trimmed.
func NormalizeName(s string) string {
	s = norm.NFC.String(s)
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	return strings.TrimSpace(s)
}

// titleOf derives a node name from its template's title field.
func titleOf(t ir.Template, data ir.IRObject) (string, bool) {
	field := t.TitleFieldID()
	if field == "" {
		return "", false
	}
	s, ok := data[field].(ir.IRString)
	if !ok {
		return "", false
	}
	return NormalizeName(string(s)), true
}
