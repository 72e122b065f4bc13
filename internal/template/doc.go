// Package template resolves node templates.
//
// Templates are written in CUE, one struct per template under the top-level
// "template" field:
//
//	template: task: {
//		name:  "Task"
//		title: "t-title" // optional; defaults to the first string field
//		fields: [
//			{id: "t-title", name: "Title", type: "string"},
//			{id: "t-done", name: "Done", type: "bool"},
//		]
//	}
//
// CompileDir builds every template of a directory, a Registry serves them to
// operations by id, and Watch recompiles the directory when its .cue files
// change. A directory that fails to compile leaves the registry as it was.
package template
