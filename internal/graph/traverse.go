package graph

import (
	"slices"

	"github.com/roach88/outliner/internal/ir"
)

// FindNodeAndParent returns the first occurrence of id met by a depth-first
// walk of the document in display order, with the parent it was met under.
//
// For a clone this picks one parent context out of several. Operations take
// an explicit Instance instead; this accessor exists for read-only callers
// such as search results and provenance tooltips.
//
// A node unreachable from any top-level node (for example one caught in a
// corrupted parent cycle) is reported under its first parent.
func (g *Graph) FindNodeAndParent(id ir.NodeID) (*ir.Node, ir.NodeID, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, "", false
	}
	if n.IsRoot() {
		return n, rootKey, true
	}

	visited := make(map[ir.NodeID]bool, len(g.nodes))
	var walk func(cur ir.NodeID) (ir.NodeID, bool)
	walk = func(cur ir.NodeID) (ir.NodeID, bool) {
		if visited[cur] {
			return "", false
		}
		visited[cur] = true
		for _, child := range g.children[cur] {
			if child == id {
				return cur, true
			}
			if p, found := walk(child); found {
				return p, true
			}
		}
		return "", false
	}
	for _, top := range g.topLevel() {
		if top == id {
			return n, g.topInstance(id).Parent, true
		}
		if p, found := walk(top); found {
			return n, p, true
		}
	}
	return n, n.ParentIDs[0], true
}

// IsDescendant reports whether id can be reached from ancestor by following
// child edges. A node is not its own descendant.
func (g *Graph) IsDescendant(ancestor, id ir.NodeID) bool {
	if ancestor == id {
		return false
	}
	// Walk upward from id: parent lists are short and the walk stays small.
	seen := map[ir.NodeID]bool{id: true}
	queue := []ir.NodeID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		n, ok := g.nodes[cur]
		if !ok {
			continue
		}
		for _, p := range n.ParentIDs {
			if p == ancestor {
				return true
			}
			if !seen[p] {
				seen[p] = true
				queue = append(queue, p)
			}
		}
	}
	return false
}

// Descendants returns every node reachable below id, each once, in
// depth-first display order. id itself is not included.
func (g *Graph) Descendants(id ir.NodeID) []ir.NodeID {
	var out []ir.NodeID
	seen := map[ir.NodeID]bool{id: true}
	var walk func(cur ir.NodeID)
	walk = func(cur ir.NodeID) {
		for _, child := range g.children[cur] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			walk(child)
		}
	}
	walk(id)
	return out
}

// InstancePaths lists every path from a top-level node down to id, each path
// starting at the top and ending at id. A clone has one path per route; the
// UI shows them as provenance. A path that climbs into a missing parent
// starts at that dangling id.
func (g *Graph) InstancePaths(id ir.NodeID) [][]ir.NodeID {
	if _, ok := g.nodes[id]; !ok {
		return nil
	}
	var out [][]ir.NodeID
	var climb func(cur ir.NodeID, suffix []ir.NodeID)
	climb = func(cur ir.NodeID, suffix []ir.NodeID) {
		path := append([]ir.NodeID{cur}, suffix...)
		n, ok := g.nodes[cur]
		if !ok || n.IsRoot() {
			out = append(out, path)
			return
		}
		for _, p := range n.ParentIDs {
			if slices.Contains(path, p) {
				continue
			}
			climb(p, path)
		}
	}
	climb(id, nil)
	return out
}

// Row is one line of the flattened outline.
type Row struct {
	Instance    ir.Instance
	Node        *ir.Node
	Depth       int
	HasChildren bool
	// Orphan marks a node listed at top level because every parent it names
	// is missing.
	Orphan bool
}

// Flatten walks the outline in display order and returns one Row per visible
// instance. A row's children are visited only when expanded reports true for
// its instance; a nil expanded shows everything.
//
// A node already on the current path is not descended into again, so a
// corrupted parent cycle cannot loop forever.
func (g *Graph) Flatten(expanded func(ir.Instance) bool) []Row {
	var rows []Row
	onPath := make(map[ir.NodeID]bool)
	var visit func(inst ir.Instance, depth int, orphan bool)
	visit = func(inst ir.Instance, depth int, orphan bool) {
		n := g.nodes[inst.Node]
		kids := g.children[inst.Node]
		rows = append(rows, Row{
			Instance:    inst,
			Node:        n,
			Depth:       depth,
			HasChildren: len(kids) > 0,
			Orphan:      orphan,
		})
		if len(kids) == 0 || (expanded != nil && !expanded(inst)) || onPath[inst.Node] {
			return
		}
		onPath[inst.Node] = true
		for _, child := range kids {
			visit(ir.Instance{Node: child, Parent: inst.Node}, depth+1, false)
		}
		delete(onPath, inst.Node)
	}
	for _, id := range g.topLevel() {
		visit(g.topInstance(id), 0, !g.nodes[id].IsRoot())
	}
	return rows
}

// Instances returns every existing instance of the graph, sorted.
func (g *Graph) Instances() []ir.Instance {
	var out []ir.Instance
	for _, n := range g.nodes {
		out = append(out, n.Instances()...)
	}
	ir.SortInstances(out)
	return out
}
