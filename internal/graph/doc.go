// Package graph holds the in-memory document graph.
//
// A Graph is an immutable snapshot of every node of one document together
// with a derived parent→children index. ParentIDs on each node are the single
// source of truth; the index is rebuilt incrementally for the nodes a Builder
// touched and is never persisted.
//
// Mutation goes through Builder (Graph.Edit), which copies a node on its first
// write and produces a new snapshot plus a Changeset describing the
// difference. Applying a changeset's inverse to the new snapshot yields the
// old one, which is what the command engine uses for undo.
//
// Sibling order: children of a parent are sorted by their order value at that
// parent, ties broken by document position. Names and ids never take part in
// ordering.
package graph
