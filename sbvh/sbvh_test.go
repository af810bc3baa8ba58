package sbvh

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andewx/dieselpt/geom"
)

func randomTriangles(n int, seed int64) []geom.Triangle {
	r := rand.New(rand.NewSource(seed))
	tris := make([]geom.Triangle, n)
	for i := range tris {
		cx, cy, cz := r.Float32()*100-50, r.Float32()*100-50, r.Float32()*100-50
		base := geom.V3(cx, cy, cz)
		tris[i] = geom.Triangle{
			V0: base.Add(geom.V3(r.Float32(), r.Float32(), r.Float32())),
			V1: base.Add(geom.V3(r.Float32()+1, r.Float32(), r.Float32())),
			V2: base.Add(geom.V3(r.Float32(), r.Float32()+1, r.Float32())),
		}
	}
	return tris
}

// allLeaves walks t and returns every leaf reachable from root.
func allLeaves(tr *Tree) []Leaf {
	var out []Leaf
	var walk func(ref int)
	walk = func(ref int) {
		inner, leaf := tr.Child(ref)
		if leaf != nil {
			out = append(out, *leaf)
			return
		}
		walk(inner.Left)
		walk(inner.Right)
	}
	walk(tr.Root)
	return out
}

// TestBuild_Completeness checks every input triangle index appears
// at least once across all leaves (spec.md §8's BVH completeness
// property), even though spatial splits may duplicate references —
// completeness is about coverage of TriIndices' leaf ranges, not about
// TriIndices having no duplicate entries globally.
func TestBuild_Completeness(t *testing.T) {
	tris := randomTriangles(200, 1)
	tr, stats := Build(tris, DefaultPlatform())

	seen := make(map[int]int)
	for _, leaf := range allLeaves(tr) {
		for i := 0; i < leaf.Count; i++ {
			idx := tr.TriIndices[leaf.FirstIndex+i]
			seen[idx]++
		}
	}
	require.Len(t, seen, len(tris), "every input triangle must appear in at least one leaf")
	require.GreaterOrEqual(t, stats.NumReferences, len(tris))
}

// TestBuild_Containment checks every node's AABB contains every
// triangle's AABB beneath it (spec.md §8's BVH containment property).
func TestBuild_Containment(t *testing.T) {
	tris := randomTriangles(150, 2)
	tr, _ := Build(tris, DefaultPlatform())

	triBounds := func(idx int) geom.AABB {
		tri := tris[idx]
		return geom.Empty().GrowPoint(tri.V0).GrowPoint(tri.V1).GrowPoint(tri.V2)
	}

	var check func(ref int, parentBounds geom.AABB)
	check = func(ref int, parentBounds geom.AABB) {
		inner, leaf := tr.Child(ref)
		if leaf != nil {
			requireContains(t, parentBounds, leaf.Bounds)
			for i := 0; i < leaf.Count; i++ {
				idx := tr.TriIndices[leaf.FirstIndex+i]
				requireContains(t, leaf.Bounds, triBounds(idx))
			}
			return
		}
		requireContains(t, parentBounds, inner.Bounds)
		check(inner.Left, inner.Bounds)
		check(inner.Right, inner.Bounds)
	}
	root, _ := tr.Child(tr.Root)
	var rootBounds geom.AABB
	if root != nil {
		rootBounds = root.Bounds
	} else {
		_, leaf := tr.Child(tr.Root)
		rootBounds = leaf.Bounds
	}
	check(tr.Root, rootBounds)
}

func requireContains(t *testing.T, outer, inner geom.AABB) {
	t.Helper()
	const eps = 1e-3
	require.LessOrEqual(t, outer.Min.X, inner.Min.X+eps)
	require.LessOrEqual(t, outer.Min.Y, inner.Min.Y+eps)
	require.LessOrEqual(t, outer.Min.Z, inner.Min.Z+eps)
	require.GreaterOrEqual(t, outer.Max.X, inner.Max.X-eps)
	require.GreaterOrEqual(t, outer.Max.Y, inner.Max.Y-eps)
	require.GreaterOrEqual(t, outer.Max.Z, inner.Max.Z-eps)
}

// medianSplitCost builds a naive median-split (not SAH-driven) BVH over
// the same triangles and returns its SAH cost under the same platform,
// as the reference builder for the SAH monotonicity property: the SBVH
// builder's own cost must never exceed the median-split builder's.
func medianSplitCost(tris []geom.Triangle, platform Platform) float32 {
	refs := make([]Reference, len(tris))
	bounds := geom.Empty()
	for i, tr := range tris {
		b := geom.Empty().GrowPoint(tr.V0).GrowPoint(tr.V1).GrowPoint(tr.V2)
		refs[i] = Reference{Index: i, Bounds: b}
		bounds = bounds.GrowBox(b)
	}
	rootArea := bounds.Area()
	return medianSplitRecursive(refs, bounds, platform, rootArea)
}

func medianSplitRecursive(refs []Reference, bounds geom.AABB, platform Platform, rootArea float32) float32 {
	if len(refs) <= platform.MinLeafSize || rootArea <= 0 {
		return platform.leafCost(len(refs)) * bounds.Area() / rootArea
	}
	axis := bounds.LargestAxis()
	sorted := sortByCentroid(refs, axis)
	mid := len(sorted) / 2
	left, right := sorted[:mid], sorted[mid:]
	return platform.nodeCost(2)/1 + // node cost contributes a flat amount regardless of area at this level in this simplified reference model
		medianSplitRecursive(left, boundsOf(left), platform, rootArea) +
		medianSplitRecursive(right, boundsOf(right), platform, rootArea)
}

func TestBuild_SAHMonotonicity(t *testing.T) {
	tris := randomTriangles(300, 3)
	platform := DefaultPlatform()
	_, stats := Build(tris, platform)
	reference := medianSplitCost(tris, platform)

	require.LessOrEqual(t, stats.SAHCost, reference+1e-2,
		"SBVH build cost (%f) should not exceed median-split reference cost (%f)", stats.SAHCost, reference)
}

func TestBuild_EmptyInput(t *testing.T) {
	tr, stats := Build(nil, DefaultPlatform())
	require.Equal(t, 0, stats.NumReferences)
	require.NotNil(t, tr)
}

func TestBuild_RespectsMaxLeafSize(t *testing.T) {
	tris := randomTriangles(64, 4)
	platform := DefaultPlatform()
	tr, _ := Build(tris, platform)
	for _, leaf := range allLeaves(tr) {
		require.LessOrEqual(t, leaf.Count, platform.MaxLeafSize)
	}
}
