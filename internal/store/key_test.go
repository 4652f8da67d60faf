package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocator_IssuesUniqueNonZeroKeys(t *testing.T) {
	var a allocator
	seen := make(map[Key]bool)
	for range 100 {
		k := a.allocate()
		require.False(t, k.IsZero())
		require.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
}

func TestAllocator_ReusedSlotGetsHigherGeneration(t *testing.T) {
	var a allocator
	k1 := a.allocate()
	require.True(t, a.release(k1))

	k2 := a.allocate()
	assert.Equal(t, k1.idx, k2.idx)
	assert.Greater(t, k2.gen, k1.gen)
	assert.False(t, a.isLive(k1))
	assert.True(t, a.isLive(k2))

	assert.False(t, a.release(k1), "releasing a stale key is a no-op")
	assert.True(t, a.isLive(k2))
}

func TestAllocator_RestoreNeverLowersGenerations(t *testing.T) {
	var a allocator
	old := a.allocate()
	a.release(old)
	newer := a.allocate() // same slot, gen 2

	a.restore([]Key{old})
	assert.True(t, a.isLive(old))
	assert.False(t, a.isLive(newer))

	a.release(old)
	next := a.allocate()
	assert.Equal(t, old.idx, next.idx)
	assert.Greater(t, next.gen, newer.gen)
}

func TestAllocator_RestoreGrowsForForeignKeys(t *testing.T) {
	var a allocator
	a.restore([]Key{{idx: 4, gen: 3}})
	assert.True(t, a.isLive(Key{idx: 4, gen: 3}))

	k := a.allocate()
	assert.Equal(t, uint32(0), k.idx, "lowest free slot first")
	assert.NotEqual(t, Key{idx: 4, gen: 3}, k)
}

func TestKey_CompareAndString(t *testing.T) {
	a := Key{idx: 1, gen: 2}
	b := Key{idx: 1, gen: 3}
	c := Key{idx: 2, gen: 1}
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, -1, b.Compare(c))
	assert.Equal(t, 0, a.Compare(a))
	assert.Equal(t, "k1v2", a.String())
	assert.True(t, Key{}.IsZero())
}
