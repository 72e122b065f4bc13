// Package engine implements the command engine that every structural edit of
// an outline document goes through.
//
// ARCHITECTURE:
//
// Session per document:
// A Session owns one open document: its graph snapshot, metadata, undo/redo
// History, selection and expansion state, clipboard and persistence
// pipeline. Sessions never share history, so several documents can be open
// in one Workspace with independent undo stacks.
//
// Single writer:
// Every mutating Session method takes the session mutex, runs a pure
// operation from internal/ops against the current snapshot, swaps in the
// new snapshot and records a Command. Readers see either the old or the new
// snapshot, never a partial edit.
//
// Command Lifecycle:
//  1. The operation validates and returns a Result (graph + changeset).
//  2. The Result is wrapped in a Command (Pending), which becomes Executed.
//  3. The Command is pushed onto History; the redo stack is cleared.
//  4. Selection and expansion are pruned of removed instances.
//  5. Effects for the changeset are submitted to the persistence Dispatcher.
//
// Undo applies the inverted changeset; redo applies the changeset again.
// Both submit effects the same way.
//
// Optimistic writes:
// Persistence runs on the Dispatcher's worker goroutine. A failed write is
// never rolled back locally; it becomes a Notice, and after repeated
// failures the notice recommends reloading the document.
//
// External changes (Reload) replace the snapshot and clear both stacks:
// recorded changesets no longer describe the current state.
package engine
