package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDs generates ids "<prefix>1", "<prefix>2", ...
//
// Implements ops.IDGenerator. The same scenario with a fresh SequenceIDs
// produces byte-identical trees.
//
// Thread-safety: safe for concurrent use.
type SequenceIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDs creates a generator. An empty prefix means "n".
func NewSequenceIDs(prefix string) *SequenceIDs {
	if prefix == "" {
		prefix = "n"
	}
	return &SequenceIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequenceIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s%d", g.prefix, g.n)
}

// Reset restarts the sequence at 1.
func (g *SequenceIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
