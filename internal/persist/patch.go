package persist

import (
	"slices"
	"strings"
	"time"

	"github.com/roach88/outliner/internal/ir"
)

// Field is a bit set naming the node columns a patch writes.
type Field uint8

const (
	FieldName Field = 1 << iota
	FieldTemplate
	FieldData
	FieldParents // ParentIDs and Order together; they are parallel
	FieldStarred
	FieldPosition
)

var fieldNames = []struct {
	f    Field
	name string
}{
	{FieldName, "name"},
	{FieldTemplate, "template"},
	{FieldData, "data"},
	{FieldParents, "parents"},
	{FieldStarred, "starred"},
	{FieldPosition, "position"},
}

// Has reports whether every field in other is set.
func (f Field) Has(other Field) bool {
	return f&other == other
}

// String lists the set fields, e.g. "name|parents".
func (f Field) String() string {
	var parts []string
	for _, fn := range fieldNames {
		if f.Has(fn.f) {
			parts = append(parts, fn.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// NodePatch is a partial node update. Only the columns named by Fields are
// written; UpdatedAt is always written.
type NodePatch struct {
	ID         ir.NodeID
	Fields     Field
	Name       string
	TemplateID string
	Data       ir.IRObject
	ParentIDs  []ir.NodeID
	Order      []int64
	IsStarred  bool
	Position   int64
	UpdatedAt  time.Time
}

// DiffNode builds the patch that turns before into after.
func DiffNode(before, after ir.Node) NodePatch {
	p := NodePatch{ID: after.ID, UpdatedAt: after.UpdatedAt}
	if before.Name != after.Name {
		p.Fields |= FieldName
		p.Name = after.Name
	}
	if before.TemplateID != after.TemplateID {
		p.Fields |= FieldTemplate
		p.TemplateID = after.TemplateID
	}
	if !ir.EqualValues(before.Data, after.Data) {
		p.Fields |= FieldData
		p.Data = ir.CloneValue(orEmpty(after.Data)).(ir.IRObject)
	}
	if !slices.Equal(before.ParentIDs, after.ParentIDs) || !slices.Equal(before.Order, after.Order) {
		p.Fields |= FieldParents
		p.ParentIDs = slices.Clone(after.ParentIDs)
		p.Order = slices.Clone(after.Order)
	}
	if before.IsStarred != after.IsStarred {
		p.Fields |= FieldStarred
		p.IsStarred = after.IsStarred
	}
	if before.Position != after.Position {
		p.Fields |= FieldPosition
		p.Position = after.Position
	}
	return p
}

// Apply writes the patched columns into n.
func (p NodePatch) Apply(n *ir.Node) {
	if p.Fields.Has(FieldName) {
		n.Name = p.Name
	}
	if p.Fields.Has(FieldTemplate) {
		n.TemplateID = p.TemplateID
	}
	if p.Fields.Has(FieldData) {
		n.Data = ir.CloneValue(orEmpty(p.Data)).(ir.IRObject)
	}
	if p.Fields.Has(FieldParents) {
		n.ParentIDs = slices.Clone(p.ParentIDs)
		n.Order = slices.Clone(p.Order)
	}
	if p.Fields.Has(FieldStarred) {
		n.IsStarred = p.IsStarred
	}
	if p.Fields.Has(FieldPosition) {
		n.Position = p.Position
	}
	n.UpdatedAt = p.UpdatedAt
}

func orEmpty(o ir.IRObject) ir.IRObject {
	if o == nil {
		return ir.IRObject{}
	}
	return o
}
