package sbvh

import (
	"golang.org/x/sync/errgroup"

	"github.com/andewx/dieselpt/geom"
)

// objectSplitResult is the best object-split candidate found across all
// three axes: a partition index into the axis-sorted reference order
// and the SAH cost of splitting there.
type objectSplitResult struct {
	axis        int
	splitIndex  int // refs[:splitIndex] go left, refs[splitIndex:] go right, in sortByCentroid(axis) order
	cost        float32
	leftBounds  geom.AABB
	rightBounds geom.AABB
	sorted      []Reference // the axis-sorted order the split was found in
}

// bestObjectSplit sweeps all three axes, evaluating every partition of
// the centroid-sorted order via running-prefix/suffix bounds, per
// spec.md §4.5 ("object split sweep across 3 axes with stable tiebreak
// on triangle index"). Each axis sorts and sweeps independently of the
// other two, so the three sweeps run concurrently via errgroup and the
// per-axis winners are reduced to the overall best afterward.
func bestObjectSplit(refs []Reference, platform Platform) (objectSplitResult, bool) {
	if len(refs) < 2 {
		return objectSplitResult{}, false
	}

	candidates := make([]objectSplitResult, 3)
	found := make([]bool, 3)

	var g errgroup.Group
	for axis := 0; axis < 3; axis++ {
		axis := axis
		g.Go(func() error {
			candidates[axis], found[axis] = sweepAxis(refs, axis, platform)
			return nil
		})
	}
	g.Wait()

	var best objectSplitResult
	bestCost := float32(-1)
	ok := false
	for axis := 0; axis < 3; axis++ {
		if !found[axis] {
			continue
		}
		// Ties broken by axis order, matching the original sequential
		// sweep's first-seen-wins behavior.
		if !ok || candidates[axis].cost < bestCost {
			ok = true
			bestCost = candidates[axis].cost
			best = candidates[axis]
		}
	}
	return best, ok
}

// sweepAxis evaluates every partition of refs sorted by centroid on axis
// via running-prefix/suffix bounds, returning that axis's best split.
func sweepAxis(refs []Reference, axis int, platform Platform) (objectSplitResult, bool) {
	sorted := sortByCentroid(refs, axis)
	n := len(sorted)

	rightBounds := make([]geom.AABB, n+1)
	rightBounds[n] = geom.Empty()
	for i := n - 1; i >= 0; i-- {
		rightBounds[i] = rightBounds[i+1].GrowBox(sorted[i].Bounds)
	}

	var best objectSplitResult
	bestCost := float32(-1)
	found := false

	leftBounds := geom.Empty()
	for i := 1; i < n; i++ {
		leftBounds = leftBounds.GrowBox(sorted[i-1].Bounds)
		lCount, rCount := i, n-i
		cost := platform.nodeCost(2) +
			platform.leafCost(lCount)*leftBounds.Area() +
			platform.leafCost(rCount)*rightBounds[i].Area()
		if !found || cost < bestCost {
			found = true
			bestCost = cost
			best = objectSplitResult{
				axis:        axis,
				splitIndex:  i,
				cost:        cost,
				leftBounds:  leftBounds,
				rightBounds: rightBounds[i],
				sorted:      sorted,
			}
		}
	}

	return best, found
}

func partitionObject(refs []Reference, s objectSplitResult) (left, right []Reference) {
	left = append([]Reference(nil), s.sorted[:s.splitIndex]...)
	right = append([]Reference(nil), s.sorted[s.splitIndex:]...)
	return left, right
}
