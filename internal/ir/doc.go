// Package ir provides the core data types for the outliner document graph.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Children are never stored; a node only records its ParentIDs and the
//     parallel Order slice. Child lists are derived by the graph package.
//   - An Instance is a value-typed (node, contextual parent) pair, never a
//     concatenated string.
//   - Node payloads are IRValue trees: no floats, canonical JSON on the wire.
//   - All JSON tags use snake_case.
package ir
