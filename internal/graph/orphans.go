package graph

import (
	"github.com/roach88/outliner/internal/ir"
)

// TemplateLookup resolves template ids. ops.TemplateResolver satisfies it.
type TemplateLookup interface {
	TemplateByID(id string) (ir.Template, bool)
}

// OrphanKind says which reference of a node is dangling.
type OrphanKind string

const (
	// OrphanParent marks a parent id that names no node.
	OrphanParent OrphanKind = "parent"
	// OrphanTemplate marks a template id the resolver does not know.
	OrphanTemplate OrphanKind = "template"
)

// Orphan is a recoverable broken reference. The node stays in the graph and
// remains editable; callers offer repair (re-parent, change template) or
// deletion.
type Orphan struct {
	Node ir.NodeID  `json:"node"`
	Kind OrphanKind `json:"kind"`
	Ref  string     `json:"ref"`
}

// Orphans reports every dangling parent or template reference, in document
// order. Template checks are skipped when templates is nil.
func (g *Graph) Orphans(templates TemplateLookup) []Orphan {
	var out []Orphan
	for _, n := range g.Nodes() {
		for _, p := range n.ParentIDs {
			if _, ok := g.nodes[p]; !ok {
				out = append(out, Orphan{Node: n.ID, Kind: OrphanParent, Ref: string(p)})
			}
		}
		if templates != nil && n.TemplateID != "" {
			if _, ok := templates.TemplateByID(n.TemplateID); !ok {
				out = append(out, Orphan{Node: n.ID, Kind: OrphanTemplate, Ref: n.TemplateID})
			}
		}
	}
	return out
}
