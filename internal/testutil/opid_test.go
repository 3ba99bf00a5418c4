package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceOpIDs_Sequence(t *testing.T) {
	gen := NewSequenceOpIDs("sale")

	assert.Equal(t, "sale-0001", gen.Generate())
	assert.Equal(t, "sale-0002", gen.Generate())
	assert.Equal(t, "sale-0003", gen.Generate())
}

func TestSequenceOpIDs_EmptyPrefixDefault(t *testing.T) {
	gen := NewSequenceOpIDs("")
	assert.Equal(t, "op-0001", gen.Generate())
}

func TestSequenceOpIDs_ThreadSafe(t *testing.T) {
	gen := NewSequenceOpIDs("")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool)
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000)
}
