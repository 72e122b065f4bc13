package ops

import (
	"slices"

	"github.com/roach88/outliner/internal/graph"
	"github.com/roach88/outliner/internal/ir"
)

// Paste deep-copies the subtrees rooted at nodes and places the copies at
// the target. Every copied node gets a fresh id and every node:// reference
// to a copied node inside payloads is rewritten to the copy. Clones internal
// to a copied subtree stay cloned among the copies; edges to parents outside
// the copied set are not carried over.
//
// A node listed in nodes that is also inside another listed subtree is
// copied once, as part of that subtree.
func Paste(g *graph.Graph, env Env, target ir.Instance, pos Position, nodes []ir.NodeID) (Result, error) {
	if len(nodes) == 0 {
		return Result{}, errEmptySelection("paste")
	}
	for _, id := range nodes {
		if _, ok := g.Node(id); !ok {
			return Result{}, errNodeNotFound(id)
		}
	}

	var roots []ir.NodeID
	for _, id := range nodes {
		nested := slices.Contains(roots, id)
		for _, other := range nodes {
			if other != id && g.IsDescendant(other, id) {
				nested = true
				break
			}
		}
		if !nested {
			roots = append(roots, id)
		}
	}

	members := make(map[ir.NodeID]bool)
	for _, r := range roots {
		members[r] = true
		for _, d := range g.Descendants(r) {
			members[d] = true
		}
	}
	var source []ir.Node
	for _, n := range g.Nodes() {
		if members[n.ID] {
			source = append(source, n.Clone())
		}
	}

	e := newEditor(g, env)
	p, err := e.resolvePlacement(target, pos)
	if err != nil {
		return Result{}, err
	}
	first, err := e.graft(source, roots, p)
	if err != nil {
		return Result{}, err
	}
	return commit(e.b, first), nil
}

// Import attaches an external forest with fresh ids. nodes reference each
// other through ParentIDs; a node none of whose parents is in the set is an
// import root and is placed at target. With a zero target the roots become
// top-level nodes after every existing root.
//
// Imported ids must be unique and the imported parent graph acyclic.
func Import(g *graph.Graph, env Env, target ir.Instance, pos Position, nodes []ir.Node) (Result, error) {
	if len(nodes) == 0 {
		return Result{}, errEmptySelection("import")
	}
	seen := make(map[ir.NodeID]bool, len(nodes))
	for _, n := range nodes {
		if seen[n.ID] {
			return Result{}, &ValidationError{Code: ErrCodeDuplicateID, Message: "duplicate id in import", Node: n.ID}
		}
		seen[n.ID] = true
	}
	if err := graph.VerifyAcyclic(graph.New(nodes)); err != nil {
		return Result{}, &ValidationError{Code: ErrCodeCycleDetected, Message: err.Error()}
	}

	var roots []ir.NodeID
	for _, n := range nodes {
		internal := false
		for _, parent := range n.ParentIDs {
			if seen[parent] {
				internal = true
				break
			}
		}
		if !internal {
			roots = append(roots, n.ID)
		}
	}

	e := newEditor(g, env)
	p := placement{}
	if target.Node != "" {
		var err error
		if p, err = e.resolvePlacement(target, pos); err != nil {
			return Result{}, err
		}
	}
	if env.Templates != nil {
		for _, n := range nodes {
			if n.TemplateID == "" {
				continue
			}
			if _, ok := env.template(n.TemplateID); !ok {
				return Result{}, errTemplateNotFound(n.ID, n.TemplateID)
			}
		}
	}
	first, err := e.graft(nodes, roots, p)
	if err != nil {
		return Result{}, err
	}
	return commit(e.b, first), nil
}

// graft inserts copies of source with fresh ids. Edges between source nodes
// are kept (remapped); roots lose their outside edges and are attached at p
// in order. Insertion follows source order, so relative document positions
// survive the copy.
func (e *editor) graft(source []ir.Node, roots []ir.NodeID, p placement) (*ir.Instance, error) {
	remap := make(map[ir.NodeID]ir.NodeID, len(source))
	for _, n := range source {
		fresh := ir.NodeID(e.env.IDs.Generate())
		if _, exists := e.node(fresh); exists {
			return nil, &ValidationError{Code: ErrCodeDuplicateID, Message: "generated id already in use", Node: fresh}
		}
		remap[n.ID] = fresh
	}
	isRoot := make(map[ir.NodeID]bool, len(roots))
	for _, r := range roots {
		isRoot[r] = true
	}

	for _, n := range source {
		cp := ir.Node{
			ID:         remap[n.ID],
			DocumentID: e.env.DocumentID,
			Name:       n.Name,
			TemplateID: n.TemplateID,
			IsStarred:  n.IsStarred,
			CreatedAt:  e.now,
			UpdatedAt:  e.now,
		}
		data := n.Data
		if data == nil {
			data = ir.IRObject{}
		}
		cp.Data = ir.RewriteRefs(data, remap).(ir.IRObject)
		if !isRoot[n.ID] {
			for i, parent := range n.ParentIDs {
				to, ok := remap[parent]
				if !ok {
					continue
				}
				var order int64
				if i < len(n.Order) {
					order = n.Order[i]
				}
				cp.AddEdge(to, order)
			}
		}
		if _, err := e.b.Insert(cp); err != nil {
			return nil, err
		}
	}

	var first *ir.Instance
	for _, r := range roots {
		inst := e.attach(remap[r], p)
		if first == nil {
			first = &inst
		}
		p = p.chain(remap[r])
	}
	return first, nil
}
