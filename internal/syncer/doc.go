// Package syncer detects edits made to a stored document by another writer
// while a session has it open.
//
// A Poller compares the stored document's modification time with the
// session's. A newer stored copy whose content hash matches the session's
// graph is timestamp drift and is adopted silently. Anything else becomes a
// Conflict that stays pending until the user picks a side:
//
//	KeepLocal   overwrite the stored copy with the session's state
//	TakeRemote  reload the session from the stored copy (history is cleared)
//
// Conflicts are never merged.
package syncer
