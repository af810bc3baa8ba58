package geom

import "github.com/chewxy/math32"

// TriangleEpsilon is the Möller-Trumbore back-face culling threshold
// from spec.md §4.4.
const TriangleEpsilon = 1e-8

// Ray is a bounded ray: valid parametrizations satisfy TMin <= t <= TMax.
type Ray struct {
	Origin, Dir Vec3
	TMin, TMax  float32
}

// NewRay builds a ray with the conventional [epsilon, +inf) bounds.
func NewRay(origin, dir Vec3) Ray {
	return Ray{Origin: origin, Dir: dir, TMin: 1e-4, TMax: math32.MaxFloat32}
}

// IntersectAABB performs the branchless slab test from spec.md §4.4.
// Hit iff tmin <= tmax && tmax >= ray.TMin && tmin <= ray.TMax.
func (r Ray) IntersectAABB(b AABB) (tmin, tmax float32, hit bool) {
	invDir := Vec3{1 / r.Dir.X, 1 / r.Dir.Y, 1 / r.Dir.Z}

	t0 := (b.Min.X - r.Origin.X) * invDir.X
	t1 := (b.Max.X - r.Origin.X) * invDir.X
	tmin = math32.Min(t0, t1)
	tmax = math32.Max(t0, t1)

	t0 = (b.Min.Y - r.Origin.Y) * invDir.Y
	t1 = (b.Max.Y - r.Origin.Y) * invDir.Y
	tmin = math32.Max(tmin, math32.Min(t0, t1))
	tmax = math32.Min(tmax, math32.Max(t0, t1))

	t0 = (b.Min.Z - r.Origin.Z) * invDir.Z
	t1 = (b.Max.Z - r.Origin.Z) * invDir.Z
	tmin = math32.Max(tmin, math32.Min(t0, t1))
	tmax = math32.Min(tmax, math32.Max(t0, t1))

	hit = tmin <= tmax && tmax >= r.TMin && tmin <= r.TMax
	return tmin, tmax, hit
}

// Triangle is a position-only triangle for intersection testing; normals
// and the rest of the mesh vertex attributes live in the resource/scene
// layer and are interpolated from the hit barycentrics by the caller.
type Triangle struct {
	V0, V1, V2 Vec3
}

// Hit is a ray/triangle intersection result.
type Hit struct {
	T          float32
	U, V       float32 // barycentric coordinates of V1, V2 (V0 weight is 1-U-V)
	Point      Vec3
}

// IntersectTriangle implements Möller-Trumbore with back-face culling
// (reject det < TriangleEpsilon), per spec.md §4.4.
func (r Ray) IntersectTriangle(tri Triangle) (Hit, bool) {
	edge1 := tri.V1.Sub(tri.V0)
	edge2 := tri.V2.Sub(tri.V0)
	pvec := r.Dir.Cross(edge2)
	det := edge1.Dot(pvec)

	if det < TriangleEpsilon {
		return Hit{}, false
	}

	tvec := r.Origin.Sub(tri.V0)
	u := tvec.Dot(pvec)
	if u < 0 || u > det {
		return Hit{}, false
	}

	qvec := tvec.Cross(edge1)
	v := r.Dir.Dot(qvec)
	if v < 0 || u+v > det {
		return Hit{}, false
	}

	invDet := 1 / det
	t := edge2.Dot(qvec) * invDet
	if t < r.TMin || t > r.TMax {
		return Hit{}, false
	}

	h := Hit{
		T: t,
		U: u * invDet,
		V: v * invDet,
	}
	h.Point = r.Origin.Add(r.Dir.Scale(t))
	return h, true
}
