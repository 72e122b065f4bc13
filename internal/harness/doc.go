// Package harness runs outline scenarios as executable contract tests.
//
// A scenario seeds a document, drives a real engine.Session through a flow
// of operations and then asserts on the resulting outline, history and
// trace. Every run uses a step clock and sequential ids, so the same
// scenario always produces the same trace and tree for golden comparison.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: clone_then_delete
//	description: "Deleting one clone instance keeps the other"
//	templates:
//	  - templates.cue
//	nodes:
//	  - { id: R, name: Root }
//	  - { id: A, name: Alpha, parents: [R] }
//	expanded: [R]
//	flow:
//	  - op: clone
//	    nodes: [A]
//	    target: R
//	    position: child-bottom
//	    expect: { error: DUPLICATE_EDGE }
//	  - op: undo
//	    expect: { error: NOTHING_TO_UNDO }
//	assertions:
//	  - type: tree
//	    lines:
//	      - Root
//	      - "  Alpha"
//
// Instances are written "node@parent"; a bare id is a root occurrence.
// Template paths are relative to the scenario file.
//
// # Assertion Types
//
//   - tree: the full outline, ignoring expansion, one indented line per instance
//   - visible: the rows a client would draw given the current expansion
//   - parents: a node's parent ids in edge order
//   - history: can_undo, can_redo and the next undo description
//   - selected: the selected instances, in any order
//   - nodes: the node count
//   - orphans: the number of dangling parent or template references
//   - data: a subset match on a node's payload
//   - trace_count: how many steps ran an op with a given outcome
//   - trace_order: ops that were applied, in order (gaps allowed)
//
// # Golden Files
//
// RunWithGolden compares the trace and final tree, as canonical JSON,
// against testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
