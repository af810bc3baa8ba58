package sbvh

import "github.com/andewx/dieselpt/geom"

const numSpatialBins = 32

type spatialSplitResult struct {
	axis       int
	planePos   float32
	cost       float32
	leftBounds geom.AABB
	rightBounds geom.AABB
}

type spatialBin struct {
	bounds geom.AABB
	enter  int
	exit   int
}

// bestSpatialSplit bins refs' clipped AABBs into numSpatialBins buckets
// per axis and sweeps bucket boundaries for the lowest-SAH-cost plane,
// per spec.md §4.5 and Nvidia-SBVH's SplitBVHBuilder::findSpatialSplit.
func bestSpatialSplit(refs []Reference, platform Platform, bounds geom.AABB) (spatialSplitResult, bool) {
	var best spatialSplitResult
	found := false
	bestCost := float32(-1)

	for axis := 0; axis < 3; axis++ {
		lo, hi := bounds.Min.At(axis), bounds.Max.At(axis)
		extent := hi - lo
		if extent <= 1e-9 {
			continue
		}
		binWidth := extent / numSpatialBins
		invBinWidth := 1 / binWidth

		bins := make([]spatialBin, numSpatialBins)
		for i := range bins {
			bins[i].bounds = geom.Empty()
		}

		for _, ref := range refs {
			firstBin := clampBin(int((ref.Bounds.Min.At(axis)-lo)*invBinWidth), numSpatialBins)
			lastBin := clampBin(int((ref.Bounds.Max.At(axis)-lo)*invBinWidth), numSpatialBins)
			bins[firstBin].enter++
			bins[lastBin].exit++

			for b := firstBin; b <= lastBin; b++ {
				planeLo := lo + float32(b)*binWidth
				planeHi := lo + float32(b+1)*binWidth
				clipped := clipAABB(ref.Bounds, axis, planeLo, planeHi)
				if clipped.Valid() {
					bins[b].bounds = bins[b].bounds.GrowBox(clipped)
				}
			}
		}

		rightBounds := make([]geom.AABB, numSpatialBins+1)
		rightCount := make([]int, numSpatialBins+1)
		rightBounds[numSpatialBins] = geom.Empty()
		for i := numSpatialBins - 1; i >= 0; i-- {
			rightBounds[i] = rightBounds[i+1].GrowBox(bins[i].bounds)
			rightCount[i] = rightCount[i+1] + bins[i].exit
		}

		leftBounds := geom.Empty()
		leftCount := 0
		for i := 0; i < numSpatialBins-1; i++ {
			leftBounds = leftBounds.GrowBox(bins[i].bounds)
			leftCount += bins[i].enter
			rCount := rightCount[i+1]
			if leftCount == 0 || rCount == 0 {
				continue
			}
			cost := platform.nodeCost(2) +
				platform.leafCost(leftCount)*leftBounds.Area() +
				platform.leafCost(rCount)*rightBounds[i+1].Area()
			if !found || cost < bestCost {
				found = true
				bestCost = cost
				best = spatialSplitResult{
					axis:        axis,
					planePos:    lo + float32(i+1)*binWidth,
					cost:        cost,
					leftBounds:  leftBounds,
					rightBounds: rightBounds[i+1],
				}
			}
		}
	}

	return best, found
}

func clampBin(b, n int) int {
	if b < 0 {
		return 0
	}
	if b >= n {
		return n - 1
	}
	return b
}

// clipAABB clips b to the axis-aligned slab [planeLo, planeHi] on the
// given axis. This is an AABB-level clip (not a full polygon clip
// against the source triangle), which slightly over-estimates bin
// tightness versus Nvidia-SBVH's exact Sutherland-Hodgman triangle
// clip, but preserves the same binning and sweep structure.
func clipAABB(b geom.AABB, axis int, planeLo, planeHi float32) geom.AABB {
	min, max := b.Min, b.Max
	lo := axisValue(min, axis)
	hi := axisValue(max, axis)
	if hi < planeLo || lo > planeHi {
		return geom.Empty()
	}
	if lo < planeLo {
		min = setAxis(min, axis, planeLo)
	}
	if hi > planeHi {
		max = setAxis(max, axis, planeHi)
	}
	return geom.AABB{Min: min, Max: max}
}

func axisValue(v geom.Vec3, axis int) float32 { return v.At(axis) }

func setAxis(v geom.Vec3, axis int, val float32) geom.Vec3 {
	switch axis {
	case 0:
		v.X = val
	case 1:
		v.Y = val
	default:
		v.Z = val
	}
	return v
}

// partitionSpatial resolves each reference against the chosen split
// plane: references entirely left or right of the plane go to that
// side outright. References straddling it are re-evaluated locally by
// SAH per spec.md §4.5 step 6 as one of three options — unsplit-left
// (the whole reference stays left, growing the left bounds instead of
// shrinking the right side's count), unsplit-right (symmetric), or
// duplicate (clipped copies on both sides) — whichever yields the
// lowest running two-child SAH cost, per Nvidia-SBVH's
// SplitBVHBuilder::performSpatialSplit.
func partitionSpatial(refs []Reference, s spatialSplitResult, platform Platform) (left, right []Reference) {
	var straddling []Reference
	leftBounds := geom.Empty()
	rightBounds := geom.Empty()
	leftNum, rightNum := 0, 0

	for _, ref := range refs {
		lo := ref.Bounds.Min.At(s.axis)
		hi := ref.Bounds.Max.At(s.axis)
		switch {
		case hi <= s.planePos:
			left = append(left, ref)
			leftBounds = leftBounds.GrowBox(ref.Bounds)
			leftNum++
		case lo >= s.planePos:
			right = append(right, ref)
			rightBounds = rightBounds.GrowBox(ref.Bounds)
			rightNum++
		default:
			straddling = append(straddling, ref)
		}
	}

	for _, ref := range straddling {
		lo := ref.Bounds.Min.At(s.axis)
		hi := ref.Bounds.Max.At(s.axis)
		leftClip := clipAABB(ref.Bounds, s.axis, lo, s.planePos)
		rightClip := clipAABB(ref.Bounds, s.axis, s.planePos, hi)

		unsplitLeftBounds := leftBounds.GrowBox(ref.Bounds)
		unsplitRightBounds := rightBounds.GrowBox(ref.Bounds)
		dupLeftBounds := leftBounds.GrowBox(leftClip)
		dupRightBounds := rightBounds.GrowBox(rightClip)

		costUnsplitLeft := platform.leafCost(leftNum+1)*unsplitLeftBounds.Area() + platform.leafCost(rightNum)*rightBounds.Area()
		costUnsplitRight := platform.leafCost(leftNum)*leftBounds.Area() + platform.leafCost(rightNum+1)*unsplitRightBounds.Area()
		costDuplicate := platform.leafCost(leftNum+1)*dupLeftBounds.Area() + platform.leafCost(rightNum+1)*dupRightBounds.Area()

		switch {
		case costUnsplitLeft <= costUnsplitRight && costUnsplitLeft <= costDuplicate:
			left = append(left, ref)
			leftBounds = unsplitLeftBounds
			leftNum++
		case costUnsplitRight <= costDuplicate:
			right = append(right, ref)
			rightBounds = unsplitRightBounds
			rightNum++
		default:
			if leftClip.Valid() {
				left = append(left, Reference{Index: ref.Index, Bounds: leftClip})
				leftBounds = dupLeftBounds
				leftNum++
			}
			if rightClip.Valid() {
				right = append(right, Reference{Index: ref.Index, Bounds: rightClip})
				rightBounds = dupRightBounds
				rightNum++
			}
		}
	}

	return left, right
}
