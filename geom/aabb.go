// Package geom implements spec.md §4.4: AABB, ray/box and ray/triangle
// intersection, and camera primary-ray generation. Grounded on
// original_source/src/geometry.h and src/intersect.h (Nvidia-SBVH's
// AABB type, Möller-Trumbore ray/triangle), reimplemented float32-first
// with github.com/chewxy/math32 in place of stdlib math (the teacher's
// repo has no geometry package of its own — this is ambient domain math
// with no Vulkan surface, so it leans on the pack's math32 dependency
// rather than hand-rolled float64 casts).
package geom

import "github.com/chewxy/math32"

// Vec3 mirrors xform.Vec3 so geom has no import-cycle dependency on the
// transform package; both are plain {X,Y,Z} float32 triples.
type Vec3 struct{ X, Y, Z float32 }

func V3(x, y, z float32) Vec3 { return Vec3{x, y, z} }

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float32) Vec3 {
	return Vec3{a.X * s, a.Y * s, a.Z * s}
}
func (a Vec3) Mul(b Vec3) Vec3 { return Vec3{a.X * b.X, a.Y * b.Y, a.Z * b.Z} }
func (a Vec3) Dot(b Vec3) float32 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}
func (a Vec3) Length() float32 { return math32.Sqrt(a.Dot(a)) }
func (a Vec3) Normalize() Vec3 {
	l := a.Length()
	if l == 0 {
		return a
	}
	return a.Scale(1 / l)
}

func (a Vec3) At(dim int) float32 {
	switch dim {
	case 0:
		return a.X
	case 1:
		return a.Y
	default:
		return a.Z
	}
}

func vecMin(a, b Vec3) Vec3 {
	return Vec3{math32.Min(a.X, b.X), math32.Min(a.Y, b.Y), math32.Min(a.Z, b.Z)}
}

func vecMax(a, b Vec3) Vec3 {
	return Vec3{math32.Max(a.X, b.X), math32.Max(a.Y, b.Y), math32.Max(a.Z, b.Z)}
}

// AABB is an axis-aligned bounding box, empty (invalid) when Min > Max
// on construction via Empty().
type AABB struct {
	Min, Max Vec3
}

// Empty returns an AABB with no extent — Min set beyond Max so the first
// Grow call establishes real bounds.
func Empty() AABB {
	inf := math32.MaxFloat32
	return AABB{Min: V3(inf, inf, inf), Max: V3(-inf, -inf, -inf)}
}

// Valid reports whether Min <= Max on every axis; a zero-extent box
// (e.g. a single grown point) is valid.
func (b AABB) Valid() bool {
	return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y && b.Min.Z <= b.Max.Z
}

// GrowPoint extends b to contain p.
func (b AABB) GrowPoint(p Vec3) AABB {
	return AABB{Min: vecMin(b.Min, p), Max: vecMax(b.Max, p)}
}

// GrowBox extends b to contain o.
func (b AABB) GrowBox(o AABB) AABB {
	return AABB{Min: vecMin(b.Min, o.Min), Max: vecMax(b.Max, o.Max)}
}

// Intersect returns the overlap of b and o; the result may be invalid
// (Valid() == false) if the boxes do not overlap.
func (b AABB) Intersect(o AABB) AABB {
	return AABB{Min: vecMax(b.Min, o.Min), Max: vecMin(b.Max, o.Max)}
}

// Area returns the full surface area used by the SAH cost model
// (spec.md §4.4): (dx*dy + dy*dz + dz*dx) * 2.
func (b AABB) Area() float32 {
	if !b.Valid() {
		return 0
	}
	d := b.Max.Sub(b.Min)
	return (d.X*d.Y + d.Y*d.Z + d.Z*d.X) * 2
}

// Volume returns the box's volume, zero for an invalid box.
func (b AABB) Volume() float32 {
	if !b.Valid() {
		return 0
	}
	d := b.Max.Sub(b.Min)
	return d.X * d.Y * d.Z
}

// MidPoint returns the box's centroid.
func (b AABB) MidPoint() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Extent returns Max-Min on each axis.
func (b AABB) Extent() Vec3 { return b.Max.Sub(b.Min) }

// LargestAxis returns the axis (0=x, 1=y, 2=z) with the largest extent.
func (b AABB) LargestAxis() int {
	e := b.Extent()
	axis := 0
	best := e.X
	if e.Y > best {
		axis, best = 1, e.Y
	}
	if e.Z > best {
		axis = 2
	}
	return axis
}
