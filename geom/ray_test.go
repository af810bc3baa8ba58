package geom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRay_IntersectAABB(t *testing.T) {
	box := AABB{Min: V3(-1, -1, -1), Max: V3(1, 1, 1)}
	r := NewRay(V3(0, 0, -5), V3(0, 0, 1))
	tmin, tmax, hit := r.IntersectAABB(box)
	require.True(t, hit)
	require.InDelta(t, 4, tmin, 1e-4)
	require.InDelta(t, 6, tmax, 1e-4)

	miss := NewRay(V3(5, 5, -5), V3(0, 0, 1))
	_, _, hit2 := miss.IntersectAABB(box)
	require.False(t, hit2)
}

// TestRay_IntersectTriangle_RoundTrip is the ray/triangle round-trip
// property from spec.md §8: the reconstructed hit point from T/Dir must
// land within 1e-4 of the analytically-known intersection.
func TestRay_IntersectTriangle_RoundTrip(t *testing.T) {
	tri := Triangle{V0: V3(-1, -1, 0), V1: V3(1, -1, 0), V2: V3(0, 1, 0)}
	r := NewRay(V3(0, -0.2, 5), V3(0, 0, -1))

	hit, ok := r.IntersectTriangle(tri)
	require.True(t, ok)
	require.InDelta(t, 0, hit.Point.Z, 1e-4)

	reconstructed := r.Origin.Add(r.Dir.Scale(hit.T))
	require.InDelta(t, hit.Point.X, reconstructed.X, 1e-4)
	require.InDelta(t, hit.Point.Y, reconstructed.Y, 1e-4)
	require.InDelta(t, hit.Point.Z, reconstructed.Z, 1e-4)
}

func TestRay_IntersectTriangle_BackfaceCulled(t *testing.T) {
	tri := Triangle{V0: V3(-1, -1, 0), V1: V3(1, -1, 0), V2: V3(0, 1, 0)}
	r := NewRay(V3(0, -0.2, -5), V3(0, 0, 1))
	_, ok := r.IntersectTriangle(tri)
	require.False(t, ok, "ray hitting the triangle from behind should be culled")
}

func TestRay_IntersectTriangle_Miss(t *testing.T) {
	tri := Triangle{V0: V3(-1, -1, 0), V1: V3(1, -1, 0), V2: V3(0, 1, 0)}
	r := NewRay(V3(5, 5, -5), V3(0, 0, 1))
	_, ok := r.IntersectTriangle(tri)
	require.False(t, ok)
}
