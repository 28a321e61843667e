package testutil

import (
	"fmt"
	"sync"
)

// SequentialRunIDs generates predictable run IDs for tests.
//
// IDs are prefix-1, prefix-2, ... so journal contents and golden output are
// identical across runs.
//
// Thread-safety: SequentialRunIDs is safe for concurrent use via internal mutex.
type SequentialRunIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialRunIDs creates a generator. An empty prefix becomes "test-run".
func NewSequentialRunIDs(prefix string) *SequentialRunIDs {
	if prefix == "" {
		prefix = "test-run"
	}
	return &SequentialRunIDs{prefix: prefix}
}

// Generate returns the next ID. Implements runner.RunIDGenerator.
func (g *SequentialRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
