package store

import (
	"cmp"
	"fmt"
)

// Key is a generational handle to a stroke. The zero Key is never issued.
//
// A slot index is reused after its key is freed, but always with a strictly
// higher generation, so a stale Key never resolves to a different stroke.
type Key struct {
	idx uint32
	gen uint32
}

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool { return k.gen == 0 }

// Compare orders keys by slot, then generation.
func (k Key) Compare(o Key) int {
	if c := cmp.Compare(k.idx, o.idx); c != 0 {
		return c
	}
	return cmp.Compare(k.gen, o.gen)
}

func (k Key) String() string { return fmt.Sprintf("k%dv%d", k.idx, k.gen) }

// allocator issues keys. issued[i] is the highest generation ever handed out
// for slot i and never decreases; live[i] is the generation currently
// occupying the slot, or 0.
type allocator struct {
	issued []uint32
	live   []uint32
	free   []uint32
}

func (a *allocator) allocate() Key {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.issued))
		a.issued = append(a.issued, 0)
		a.live = append(a.live, 0)
	}
	a.issued[idx]++
	a.live[idx] = a.issued[idx]
	return Key{idx: idx, gen: a.issued[idx]}
}

// isLive reports whether k is the key currently occupying its slot.
func (a *allocator) isLive(k Key) bool {
	return !k.IsZero() && int(k.idx) < len(a.live) && a.live[k.idx] == k.gen
}

// release frees k's slot. Releasing a stale key is a no-op and returns false.
func (a *allocator) release(k Key) bool {
	if !a.isLive(k) {
		return false
	}
	a.live[k.idx] = 0
	a.free = append(a.free, k.idx)
	return true
}

// restore makes exactly liveKeys live, as after installing a history
// snapshot. Issued generations are only ever raised.
func (a *allocator) restore(liveKeys []Key) {
	for i := range a.live {
		a.live[i] = 0
	}
	for _, k := range liveKeys {
		for int(k.idx) >= len(a.issued) {
			a.issued = append(a.issued, 0)
			a.live = append(a.live, 0)
		}
		a.live[k.idx] = k.gen
		a.issued[k.idx] = max(a.issued[k.idx], k.gen)
	}
	a.free = a.free[:0]
	// Descending, so allocate pops the lowest free slot first.
	for i := len(a.live) - 1; i >= 0; i-- {
		if a.live[i] == 0 {
			a.free = append(a.free, uint32(i))
		}
	}
}

// releaseAll frees every slot.
func (a *allocator) releaseAll() { a.restore(nil) }
