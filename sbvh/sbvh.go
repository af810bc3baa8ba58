// Package sbvh builds a Spatial Split BVH over a triangle soup, per
// spec.md §4.5. Grounded on original_source/src/external/Nvidia-SBVH
// (SplitBVHBuilder.cpp): object splits evaluated by a full sorted SAH
// sweep on all three axes, spatial splits evaluated with 32-bin binning and
// reference clipping, duplicate references resolved by unsplit-left,
// unsplit-right, or duplicate — whichever minimizes SAH cost.
package sbvh

import (
	"sort"

	"github.com/andewx/dieselpt/geom"
)

// Platform holds the SAH cost model and leaf-size bounds. Defaults
// mirror Nvidia-SBVH's BVH::Platform defaults exactly (SPEC_FULL.md §C):
// SAHNodeCost=1.2, SAHTriangleCost=1.0, maxLeafSize=8, minLeafSize=1.
type Platform struct {
	SAHNodeCost     float32
	SAHTriangleCost float32
	MaxLeafSize     int
	MinLeafSize     int
	// SplitAlpha scales the root AABB's area into minOverlap, the
	// spatial-split eligibility threshold of spec.md §4.5 step 1.
	SplitAlpha float32
}

// DefaultPlatform returns the Nvidia-SBVH reference cost model.
func DefaultPlatform() Platform {
	return Platform{SAHNodeCost: 1.2, SAHTriangleCost: 1.0, MaxLeafSize: 8, MinLeafSize: 1, SplitAlpha: 1e-5}
}

// maxDepth is the hard recursion cap of spec.md §4.5 step 2
// ("depth >= 64 emits a leaf"), matching Nvidia-SBVH's own safety cap.
const maxDepth = 64

// maxSpatialDepth bounds spatial-split eligibility (spec.md §4.5 step 5,
// SplitBVHBuilder.cpp:154's "level < MaxSpatialDepth").
const maxSpatialDepth = 48

func (p Platform) leafCost(n int) float32   { return float32(n) * p.SAHTriangleCost }
func (p Platform) nodeCost(n int) float32   { return float32(n) * p.SAHNodeCost }

// Reference is one triangle's entry in the active working set. Spatial
// splitting can duplicate a triangle's Reference (same Index, different
// clipped Bounds), which is why references — not triangle indices —
// drive the recursion.
type Reference struct {
	Index  int
	Bounds geom.AABB
}

// Leaf is a BVH leaf: a contiguous run of entries in the builder's
// output triangle-index order.
type Leaf struct {
	Bounds     geom.AABB
	FirstIndex int
	Count      int
}

// Inner is a BVH interior node with exactly two children.
type Inner struct {
	Bounds      geom.AABB
	Left, Right int // index into Tree.Nodes; negated-1 encodes a leaf (see Tree.Child)
}

// Tree is the flattened build output: Nodes holds interior nodes,
// Leaves holds leaves, and TriIndices is the reordered triangle index
// array leaves slice into (their FirstIndex/Count are offsets into it).
type Tree struct {
	Nodes      []Inner
	Leaves     []Leaf
	TriIndices []int
	Root       int // index into Nodes, or -1 if the whole tree is one leaf (encoded via Child)
}

// encodeLeaf/encodeInner let an Inner.Left/Right field address either a
// Nodes or Leaves slot: leaf indices are stored as -(i+1).
func encodeLeaf(i int) int  { return -(i + 1) }
func encodeInner(i int) int { return i }

// Child resolves a Left/Right field to either an Inner node or a Leaf.
func (t *Tree) Child(ref int) (inner *Inner, leaf *Leaf) {
	if ref < 0 {
		return nil, &t.Leaves[-(ref + 1)]
	}
	return &t.Nodes[ref], nil
}

// Stats reports build-quality metrics, per SPEC_FULL.md §C (mirroring
// Nvidia-SBVH's BVH::Stats): node/leaf counts, mean triangles per leaf,
// the tree's branching factor (always 2 here, kept for parity with the
// original's more general stat struct), and the top-down SAH cost of
// the resulting tree evaluated against Platform.
type Stats struct {
	NumInnerNodes  int
	NumLeafNodes   int
	NumReferences  int // may exceed the input triangle count: spatial splits duplicate references
	MeanTrisPerLeaf float32
	MaxDepth       int
	SAHCost        float32
	BranchingFactor int
}

// Build constructs an SBVH over tris using platform's cost model.
func Build(tris []geom.Triangle, platform Platform) (*Tree, Stats) {
	refs := make([]Reference, len(tris))
	bounds := geom.Empty()
	for i, t := range tris {
		b := geom.Empty().GrowPoint(t.V0).GrowPoint(t.V1).GrowPoint(t.V2)
		refs[i] = Reference{Index: i, Bounds: b}
		bounds = bounds.GrowBox(b)
	}

	rootArea := bounds.Area()
	b := &builder{
		tris:       tris,
		platform:   platform,
		rootArea:   rootArea,
		minOverlap: rootArea * platform.SplitAlpha,
		triOut:     make([]int, 0, len(tris)),
	}

	root := b.build(refs, bounds, 0)
	tree := &Tree{Nodes: b.nodes, Leaves: b.leaves, TriIndices: b.triOut, Root: root}

	stats := Stats{
		NumInnerNodes: len(b.nodes),
		NumLeafNodes:  len(b.leaves),
		NumReferences: len(b.triOut),
		MaxDepth:      b.maxDepthSeen,
		BranchingFactor: 2,
	}
	if stats.NumLeafNodes > 0 {
		stats.MeanTrisPerLeaf = float32(stats.NumReferences) / float32(stats.NumLeafNodes)
	}
	stats.SAHCost = sahCost(tree, root, platform, bounds.Area())
	return tree, stats
}

func sahCost(t *Tree, ref int, p Platform, rootArea float32) float32 {
	if rootArea <= 0 {
		return 0
	}
	inner, leaf := t.Child(ref)
	if leaf != nil {
		return p.leafCost(leaf.Count) * leaf.Bounds.Area() / rootArea
	}
	return p.nodeCost(2) + sahCost(t, inner.Left, p, rootArea) + sahCost(t, inner.Right, p, rootArea)
}

type builder struct {
	tris       []geom.Triangle
	platform   Platform
	rootArea   float32
	minOverlap float32

	nodes    []Inner
	leaves   []Leaf
	triOut   []int
	maxDepthSeen int
}

func (b *builder) build(refs []Reference, bounds geom.AABB, depth int) int {
	if depth > b.maxDepthSeen {
		b.maxDepthSeen = depth
	}

	// spec.md §4.5 step 2: depth >= 64 forces a leaf regardless of
	// reference count, the same safety cap Nvidia-SBVH enforces.
	if len(refs) <= b.platform.MinLeafSize || depth >= maxDepth {
		return b.emitLeaf(refs, bounds)
	}

	leafSAH := b.platform.leafCost(len(refs)) * bounds.Area()

	objSplit, objFound := bestObjectSplit(refs, b.platform)

	// Only bother evaluating a spatial split when the object split's two
	// child bounds actually overlap by at least minOverlap (spec.md
	// §4.5 step 1/5: minOverlap = root.area * splitAlpha), and only
	// below maxSpatialDepth (SplitBVHBuilder.cpp:154's "level <
	// MaxSpatialDepth"): a spatial split can only help by separating
	// that overlap, and reference duplication is otherwise pure cost
	// with no benefit.
	spatialFound := false
	var spaSplit spatialSplitResult
	overlaps := true
	if objFound {
		overlap := objSplit.leftBounds.Intersect(objSplit.rightBounds)
		overlaps = overlap.Valid() && overlap.Area() >= b.minOverlap
	}
	if overlaps && depth < maxSpatialDepth {
		spaSplit, spatialFound = bestSpatialSplit(refs, b.platform, bounds)
	}

	bestCost := leafSAH
	useSpatial := false
	useObject := false
	if objFound && objSplit.cost < bestCost {
		bestCost, useObject, useSpatial = objSplit.cost, true, false
	}
	if spatialFound && spaSplit.cost < bestCost {
		bestCost, useObject, useSpatial = spaSplit.cost, false, true
	}

	if len(refs) > b.platform.MaxLeafSize && !useObject && !useSpatial {
		// Force an object split (ignore SAH) so leaves never exceed
		// MaxLeafSize, mirroring Nvidia-SBVH's hard leaf-size cap.
		useObject = true
	}

	if !useObject && !useSpatial {
		return b.emitLeaf(refs, bounds)
	}

	var left, right []Reference
	if useSpatial {
		left, right = partitionSpatial(refs, spaSplit, b.platform)
	} else {
		left, right = partitionObject(refs, objSplit)
	}

	if len(left) == 0 || len(right) == 0 {
		return b.emitLeaf(refs, bounds)
	}

	leftBounds, rightBounds := boundsOf(left), boundsOf(right)
	leftIdx := b.build(left, leftBounds, depth+1)
	rightIdx := b.build(right, rightBounds, depth+1)

	b.nodes = append(b.nodes, Inner{Bounds: bounds, Left: leftIdx, Right: rightIdx})
	return encodeInner(len(b.nodes) - 1)
}

func (b *builder) emitLeaf(refs []Reference, bounds geom.AABB) int {
	first := len(b.triOut)
	for _, r := range refs {
		b.triOut = append(b.triOut, r.Index)
	}
	b.leaves = append(b.leaves, Leaf{Bounds: bounds, FirstIndex: first, Count: len(refs)})
	return encodeLeaf(len(b.leaves) - 1)
}

func boundsOf(refs []Reference) geom.AABB {
	bb := geom.Empty()
	for _, r := range refs {
		bb = bb.GrowBox(r.Bounds)
	}
	return bb
}

// sortByCentroid returns a copy of refs sorted ascending by centroid on
// the given axis; stable on Reference.Index to make object-split output
// deterministic (ties broken by original triangle index).
func sortByCentroid(refs []Reference, axis int) []Reference {
	out := make([]Reference, len(refs))
	copy(out, refs)
	sort.SliceStable(out, func(i, j int) bool {
		ci := out[i].Bounds.MidPoint().At(axis)
		cj := out[j].Bounds.MidPoint().At(axis)
		if ci != cj {
			return ci < cj
		}
		return out[i].Index < out[j].Index
	})
	return out
}
