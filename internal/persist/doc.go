// Package persist defines the storage contract the engine writes through and
// the machinery that keeps those writes off the editing path.
//
// Every structural edit yields a graph.Changeset; EffectsFor turns it into
// Effects (create, partial update and delete batches plus a document touch).
// A Dispatcher applies effects in FIFO order on a single worker goroutine
// with bounded retries. Failures never roll back in-memory state; they are
// reported through a callback so the session can warn the user.
//
// Document metadata writes (title, expansion state) go through a Debouncer
// that coalesces bursts into one write.
package persist
