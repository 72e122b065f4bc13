// Package ops implements the structural operations on a document graph.
//
// Every operation is a pure function of an input snapshot: it validates the
// request, applies its edits through a graph.Builder and returns a Result
// holding the new snapshot and the changeset. On a validation failure the
// input snapshot is left as it was and a *ValidationError is returned.
//
// Operations address nodes by ir.Instance, so the contextual parent of a
// clone is always explicit.
package ops
