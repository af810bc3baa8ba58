package geom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAABB_GrowPointAndArea(t *testing.T) {
	b := Empty()
	require.False(t, b.Valid())

	b = b.GrowPoint(V3(0, 0, 0))
	b = b.GrowPoint(V3(2, 3, 4))
	require.True(t, b.Valid())
	require.Equal(t, V3(0, 0, 0), b.Min)
	require.Equal(t, V3(2, 3, 4), b.Max)

	// surface-area formula, spec.md §4.4: (dx*dy + dy*dz + dz*dx) * 2
	want := float32((2*3 + 3*4 + 4*2) * 2)
	require.InDelta(t, want, b.Area(), 1e-4)
}

func TestAABB_Intersect(t *testing.T) {
	a := AABB{Min: V3(0, 0, 0), Max: V3(2, 2, 2)}
	b := AABB{Min: V3(1, 1, 1), Max: V3(3, 3, 3)}
	overlap := a.Intersect(b)
	require.True(t, overlap.Valid())
	require.Equal(t, V3(1, 1, 1), overlap.Min)
	require.Equal(t, V3(2, 2, 2), overlap.Max)

	c := AABB{Min: V3(10, 10, 10), Max: V3(12, 12, 12)}
	disjoint := a.Intersect(c)
	require.False(t, disjoint.Valid())
}

func TestAABB_LargestAxis(t *testing.T) {
	b := AABB{Min: V3(0, 0, 0), Max: V3(1, 5, 2)}
	require.Equal(t, 1, b.LargestAxis())
}
