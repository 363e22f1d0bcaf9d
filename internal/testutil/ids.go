package testutil

import (
	"sync"

	"github.com/google/uuid"
)

// SequentialIDs hands out predictable UUIDs: ...0001, ...0002 and so on.
//
// Use it in place of uuid.NewV7 so change ids in assertions and golden
// output are stable between runs.
type SequentialIDs struct {
	mu sync.Mutex
	n  uint64
}

// Next returns the next id in the sequence.
func (g *SequentialIDs) Next() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++

	var id uuid.UUID
	for i := 0; i < 8; i++ {
		id[15-i] = byte(g.n >> (8 * i))
	}
	return id
}
