package store

import (
	"github.com/tidwall/rtree"

	"github.com/roach88/inkwell/internal/geom"
)

// spatialIndex maps keys to bounds in an R-tree. The bounds table records
// exactly what was inserted into the tree, which Delete needs. Keys with
// invalid bounds are tracked in the table but not indexed.
type spatialIndex struct {
	tree   *rtree.RTreeG[Key]
	bounds table[geom.AABB]
}

func newSpatialIndex() spatialIndex {
	return spatialIndex{tree: &rtree.RTreeG[Key]{}, bounds: newTable[geom.AABB](nil)}
}

func rect(b geom.AABB) (min, max [2]float64) {
	return [2]float64{b.Mins.X, b.Mins.Y}, [2]float64{b.Maxs.X, b.Maxs.Y}
}

func (si *spatialIndex) insert(k Key, b geom.AABB) {
	si.remove(k)
	si.bounds.set(k, b)
	if b.IsValid() {
		lo, hi := rect(b)
		si.tree.Insert(lo, hi, k)
	}
}

// update is remove followed by insert.
func (si *spatialIndex) update(k Key, b geom.AABB) {
	if old, ok := si.bounds.get(k); ok && old == b {
		return
	}
	si.insert(k, b)
}

func (si *spatialIndex) remove(k Key) {
	old, ok := si.bounds.get(k)
	if !ok {
		return
	}
	if old.IsValid() {
		lo, hi := rect(old)
		si.tree.Delete(lo, hi, k)
	}
	si.bounds.del(k)
}

func (si *spatialIndex) get(k Key) (geom.AABB, bool) { return si.bounds.get(k) }

// queryIntersecting returns the keys whose bounds intersect b, unordered.
// Touching edges count as intersecting.
func (si *spatialIndex) queryIntersecting(b geom.AABB) []Key {
	if !b.IsValid() {
		return nil
	}
	var hits []Key
	lo, hi := rect(b)
	si.tree.Search(lo, hi, func(_, _ [2]float64, k Key) bool {
		hits = append(hits, k)
		return true
	})
	return hits
}

func (si *spatialIndex) share() spatialIndex {
	return spatialIndex{tree: si.tree.Copy(), bounds: si.bounds.share()}
}

func (si *spatialIndex) adopt(view spatialIndex) {
	si.tree = view.tree.Copy()
	si.bounds.adopt(view.bounds)
}

func (si *spatialIndex) reset() {
	si.tree = &rtree.RTreeG[Key]{}
	si.bounds.reset()
}
