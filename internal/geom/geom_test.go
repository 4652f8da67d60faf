package geom

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAABB_Intersects(t *testing.T) {
	a := Rect(0, 0, 10, 10)

	assert.True(t, a.Intersects(Rect(5, 5, 10, 10)))
	assert.True(t, a.Intersects(Rect(10, 10, 1, 1)), "touching edges intersect")
	assert.False(t, a.Intersects(Rect(11, 0, 1, 1)))
	assert.False(t, a.Intersects(Invalid()))
	assert.False(t, Invalid().Intersects(Invalid()))
}

func TestAABB_MergedIgnoresInvalid(t *testing.T) {
	a := Rect(0, 0, 1, 1)
	b := Rect(4, -2, 1, 1)

	assert.Equal(t, NewAABB(V(0, -2), V(5, 1)), a.Merged(b))
	assert.Equal(t, a, a.Merged(Invalid()))
	assert.Equal(t, a, Invalid().Merged(a))
	assert.False(t, Invalid().Merged(Invalid()).IsValid())
}

func TestAABB_FromPoints(t *testing.T) {
	b := FromPoints(V(3, 1), V(-1, 4), V(2, 2))
	assert.Equal(t, NewAABB(V(-1, 1), V(3, 4)), b)
	assert.False(t, FromPoints().IsValid())
}

func TestAABB_Intersection(t *testing.T) {
	got := Rect(0, 0, 10, 10).Intersection(Rect(5, 2, 10, 3))
	assert.Equal(t, NewAABB(V(5, 2), V(10, 5)), got)
	assert.False(t, Rect(0, 0, 1, 1).Intersection(Rect(5, 5, 1, 1)).IsValid())
}

func TestAABB_TranslatedAndLoosened(t *testing.T) {
	b := Rect(1, 1, 2, 2)
	assert.Equal(t, Rect(3, 0, 2, 2), b.Translated(V(2, -1)))
	assert.Equal(t, Rect(0, 0, 4, 4), b.Loosened(1))
	assert.False(t, Invalid().Translated(V(1, 1)).IsValid())
}

func TestAABB_SplitOriginAligned(t *testing.T) {
	cells := Rect(0, 0, 150, 90).SplitOriginAligned(V(100, 100))
	assert.Equal(t, []AABB{Rect(0, 0, 100, 100), Rect(100, 0, 100, 100)}, cells)

	assert.Len(t, Rect(-10, -10, 20, 20).SplitOriginAligned(V(100, 100)), 4)
	assert.Nil(t, Invalid().SplitOriginAligned(V(10, 10)))
}

func TestAABB_CoverOriginAligned(t *testing.T) {
	cell := V(100, 100)
	assert.Equal(t, NewAABB(V(-100, -100), V(100, 100)), Rect(-10, -10, 20, 20).CoverOriginAligned(cell))
	assert.Equal(t, Rect(0, 0, 200, 100), Rect(0, 0, 150, 90).CoverOriginAligned(cell))
	assert.Equal(t, Rect(100, 100, 100, 100), Rect(100, 100, 0, 0).CoverOriginAligned(cell), "degenerate box gets one cell")

	far := Rect(1e9, 1e9, 1, 1).CoverOriginAligned(cell)
	assert.Equal(t, Rect(1e9, 1e9, 100, 100), far)

	assert.False(t, Invalid().CoverOriginAligned(cell).IsValid())
	assert.False(t, Rect(0, 0, 10, 10).CoverOriginAligned(V(0, 10)).IsValid())
}

func TestAABB_JSON(t *testing.T) {
	data, err := json.Marshal(Rect(1, 2, 3, 4))
	require.NoError(t, err)
	assert.JSONEq(t, `{"mins":{"x":1,"y":2},"maxs":{"x":4,"y":6}}`, string(data))

	var back AABB
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Rect(1, 2, 3, 4), back)

	data, err = json.Marshal(struct {
		Bounds AABB `json:"bounds"`
	}{Invalid()})
	require.NoError(t, err, "invalid bounds must not leak infinities")
	assert.JSONEq(t, `{"bounds":null}`, string(data))

	back = Rect(0, 0, 1, 1)
	require.NoError(t, json.Unmarshal([]byte("null"), &back))
	assert.False(t, back.IsValid())
}
