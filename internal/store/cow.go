package store

import (
	"maps"
	"slices"
)

// table is a copy-on-write component table.
//
// The backing map may be shared with snapshots. A shared map is never
// written: the first write after share clones it. When clone is set, values
// are also cloned on their first mut after a share, and fresh tracks which
// values the live side already owns. A nil fresh set means nothing has been
// shared since the table was created.
type table[V any] struct {
	m     map[Key]V
	owned bool
	fresh map[Key]struct{}
	clone func(V) V
}

func newTable[V any](clone func(V) V) table[V] {
	return table[V]{m: make(map[Key]V), owned: true, clone: clone}
}

func (t *table[V]) get(k Key) (V, bool) {
	v, ok := t.m[k]
	return v, ok
}

func (t *table[V]) has(k Key) bool {
	_, ok := t.m[k]
	return ok
}

func (t *table[V]) len() int { return len(t.m) }

// keys returns the table's keys in Key order.
func (t *table[V]) keys() []Key {
	keys := slices.Collect(maps.Keys(t.m))
	slices.SortFunc(keys, Key.Compare)
	return keys
}

func (t *table[V]) own() {
	if t.owned {
		return
	}
	t.m = maps.Clone(t.m)
	if t.m == nil {
		t.m = make(map[Key]V)
	}
	t.owned = true
}

func (t *table[V]) set(k Key, v V) {
	t.own()
	t.m[k] = v
	if t.fresh != nil {
		t.fresh[k] = struct{}{}
	}
}

// mut returns k's value for in-place mutation, cloning it first if it is
// still shared with a snapshot.
func (t *table[V]) mut(k Key) (V, bool) {
	v, ok := t.m[k]
	if !ok || t.clone == nil || t.fresh == nil {
		return v, ok
	}
	if _, ok := t.fresh[k]; ok {
		return v, true
	}
	v = t.clone(v)
	t.set(k, v)
	return v, true
}

func (t *table[V]) del(k Key) {
	if !t.has(k) {
		return
	}
	t.own()
	delete(t.m, k)
	if t.fresh != nil {
		delete(t.fresh, k)
	}
}

// share returns a read-only view of the current contents and marks the
// live table as shared.
func (t *table[V]) share() table[V] {
	t.owned = false
	t.fresh = make(map[Key]struct{})
	return table[V]{m: t.m, clone: t.clone}
}

// adopt installs a shared view as the live contents.
func (t *table[V]) adopt(view table[V]) {
	t.m = view.m
	t.owned = false
	t.fresh = make(map[Key]struct{})
}

func (t *table[V]) reset() {
	t.m = make(map[Key]V)
	t.owned = true
	t.fresh = nil
}
