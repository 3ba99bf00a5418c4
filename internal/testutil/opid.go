package testutil

import (
	"fmt"
	"sync"
)

// SequenceOpIDs generates predictable operation ids: op-0001, op-0002, ...
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequenceOpIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceOpIDs creates a generator. An empty prefix defaults to "op".
func NewSequenceOpIDs(prefix string) *SequenceOpIDs {
	if prefix == "" {
		prefix = "op"
	}
	return &SequenceOpIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequenceOpIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
