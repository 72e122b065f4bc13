package ir

import (
	"slices"
	"time"
)

// NodeID is the globally unique, immutable identifier of a node.
type NodeID string

// Node is one record of the document graph.
//
// ParentIDs and Order are parallel: Order[i] is the node's sort key among the
// children of ParentIDs[i]. A node without parents is a root of the forest.
// A node with more than one parent is a clone.
//
// Position is the node's document position: roots are listed by it, and it
// breaks ties between siblings that share an order value.
type Node struct {
	ID         NodeID    `json:"id"`
	DocumentID string    `json:"document_id"`
	Name       string    `json:"name"`
	TemplateID string    `json:"template_id"`
	Data       IRObject  `json:"data"`
	ParentIDs  []NodeID  `json:"parent_ids"`
	Order      []int64   `json:"order"`
	Position   int64     `json:"position"`
	IsStarred  bool      `json:"is_starred"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the node. Payload values are copied too, so the
// copy can be mutated without affecting snapshots that share the original.
func (n Node) Clone() Node {
	out := n
	out.ParentIDs = slices.Clone(n.ParentIDs)
	out.Order = slices.Clone(n.Order)
	if n.Data != nil {
		out.Data = CloneValue(n.Data).(IRObject)
	}
	return out
}

// IsRoot reports whether the node has no parent edge.
func (n *Node) IsRoot() bool {
	return len(n.ParentIDs) == 0
}

// IsClone reports whether the node is reachable through more than one parent.
func (n *Node) IsClone() bool {
	return len(n.ParentIDs) > 1
}

// ParentIndex returns the index of parent in ParentIDs, or -1.
func (n *Node) ParentIndex(parent NodeID) int {
	return slices.Index(n.ParentIDs, parent)
}

// OrderAt returns the node's sort key under parent.
func (n *Node) OrderAt(parent NodeID) (int64, bool) {
	i := n.ParentIndex(parent)
	if i < 0 || i >= len(n.Order) {
		return 0, false
	}
	return n.Order[i], true
}

// AddEdge appends a parent edge. Callers check for duplicates first.
func (n *Node) AddEdge(parent NodeID, order int64) {
	n.ParentIDs = append(n.ParentIDs, parent)
	n.Order = append(n.Order, order)
}

// RemoveEdge drops the edge to parent and reports whether it existed.
func (n *Node) RemoveEdge(parent NodeID) bool {
	i := n.ParentIndex(parent)
	if i < 0 {
		return false
	}
	n.ParentIDs = slices.Delete(n.ParentIDs, i, i+1)
	n.Order = slices.Delete(n.Order, i, i+1)
	return true
}

// SetOrderAt replaces the sort key under parent.
func (n *Node) SetOrderAt(parent NodeID, order int64) bool {
	i := n.ParentIndex(parent)
	if i < 0 {
		return false
	}
	n.Order[i] = order
	return true
}

// Instances lists every occurrence of the node, one per parent edge.
func (n *Node) Instances() []Instance {
	if n.IsRoot() {
		return []Instance{{Node: n.ID}}
	}
	out := make([]Instance, len(n.ParentIDs))
	for i, p := range n.ParentIDs {
		out[i] = Instance{Node: n.ID, Parent: p}
	}
	return out
}

// Document is the metadata record of one document graph.
type Document struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Title     string     `json:"title"`
	Expanded  []Instance `json:"expanded"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Clone returns a copy that does not share the Expanded slice.
func (d Document) Clone() Document {
	d.Expanded = slices.Clone(d.Expanded)
	return d
}

// Template describes the fields a node's Data is keyed by.
// Templates are external descriptors; the engine never mutates them.
type Template struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	TitleField string  `json:"title_field,omitempty"` // field id the node name derives from
	Fields     []Field `json:"fields"`
}

// Field is one named slot of a template.
type Field struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"` // "string", "int", "bool", "list", "object", "ref"
}

// FieldByName returns the field with the given display name.
func (t Template) FieldByName(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldByID returns the field with the given id.
func (t Template) FieldByID(id string) (Field, bool) {
	for _, f := range t.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// TitleFieldID returns the field the node name is derived from: the explicit
// TitleField, else the first string field.
func (t Template) TitleFieldID() string {
	if t.TitleField != "" {
		return t.TitleField
	}
	for _, f := range t.Fields {
		if f.Type == "string" || f.Type == "" {
			return f.ID
		}
	}
	return ""
}
