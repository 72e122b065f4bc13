// Package queryir is the node search representation shared by every
// backend.
//
// A search is a Select over one document's nodes with an optional filter
// Predicate. The same Select is evaluated two ways: querysql compiles it to
// parameterized SQL for stored documents, and Match evaluates it against
// in-memory nodes for open sessions. Both must agree on every query.
//
//	[filter text] → ParseFilter → [Select] → querysql.Compile → SQL
//	                                      → Apply             → []ir.Node
//
// SEALED INTERFACES:
//
// Predicate is sealed with a marker method, so backends can switch over
// every predicate type exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case Contains:
//	case And:
//	case Not:
//	}
//
// FILTER SYNTAX:
//
// ParseFilter reads space-separated terms; all terms must match:
//
//	milk            name contains "milk" (ASCII case-insensitive)
//	is:starred      starred nodes
//	template:task   nodes using template "task"
//	id:n42          the node with id n42
//	-term           negates any of the above
//
// Results are ordered by node position, then id.
package queryir
