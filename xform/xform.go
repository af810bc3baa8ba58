// Package xform generalizes the teacher's math.go (VulkanProjectionMat)
// into the transform math the scene graph and camera need: TRS
// composition, world-matrix propagation, and the Vulkan clip-space fixup.
package xform

import (
	lin "github.com/xlab/linmath"
)

// Vec3 is a plain float32 3-vector with named fields, used for node
// positions and scales and converted to lin.Vec3 where a linmath call
// needs one. Triangle and AABB code in geom/sbvh uses geom's own Vec3.
type Vec3 struct{ X, Y, Z float32 }

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Quat is a unit quaternion orientation, matching linmath's layout
// closely enough to hand off to lin.Quat when composing matrices.
type Quat struct{ X, Y, Z, W float32 }

// IdentityQuat returns the identity orientation.
func IdentityQuat() Quat { return Quat{0, 0, 0, 1} }

// Mat4 wraps lin.Mat4x4 so callers don't need to import linmath directly.
type Mat4 struct {
	m lin.Mat4x4
}

// Identity returns the identity matrix.
func Identity() Mat4 {
	var m Mat4
	m.m.Identity()
	return m
}

// Raw exposes the underlying column-major float32 layout, for pipeline
// uniform upload and for geom's ray-unprojection matrix multiplies.
func (m Mat4) Raw() [4][4]float32 { return [4][4]float32(m.m) }

// Compose builds local = T * R * S, matching scene.go's update() order
// ("recomposes R·T·S" in spec prose, but the teacher's own math.go
// convention — and every TRS composition in the retrieval pack — applies
// scale first, then rotation, then translation when read right-to-left
// as column vectors: local = T * R * S).
func Compose(pos Vec3, rot Quat, scale Vec3) Mat4 {
	var t, r, s, tr Mat4
	t.m.Identity()
	t.m.Translate(pos.X, pos.Y, pos.Z)

	q := lin.Quat{Q0: rot.W, Q1: rot.X, Q2: rot.Y, Q3: rot.Z}
	q.ToMat4x4(&r.m)

	s.m.Identity()
	s.m.ScaleAniso(&s.m, scale.X, scale.Y, scale.Z)

	tr.m.Mult(&t.m, &r.m)
	var out Mat4
	out.m.Mult(&tr.m, &s.m)
	return out
}

// Mul returns a*b (a applied after b, i.e. world = parent * local).
func Mul(a, b Mat4) Mat4 {
	var out Mat4
	bb := b.m
	aa := a.m
	out.m.Mult(&aa, &bb)
	return out
}

// LookAt builds a right-handed view matrix, for the camera node and for
// primary-ray generation (geom.PrimaryRay needs its inverse).
func LookAt(eye, center, up Vec3) Mat4 {
	var out Mat4
	out.m.LookAt(
		lin.Vec3{eye.X, eye.Y, eye.Z},
		lin.Vec3{center.X, center.Y, center.Z},
		lin.Vec3{up.X, up.Y, up.Z},
	)
	return out
}

// Perspective builds a GL-style perspective projection and applies the
// Vulkan clip-space fixup from the teacher's VulkanProjectionMat: flip Y,
// and remap Z from [-1,1] to [0,1].
func Perspective(fovyRadians, aspect, near, far float32) Mat4 {
	var proj Mat4
	proj.m.Perspective(fovyRadians, aspect, near, far)
	return VulkanProjection(proj)
}

// VulkanProjection applies the teacher's math.go fixup to an
// OpenGL-convention projection matrix: flip Y (Vulkan's NDC has +Y down),
// and rescale/translate Z into Vulkan's [0,1] depth range.
func VulkanProjection(proj Mat4) Mat4 {
	var fixup Mat4
	fixup.m.Identity()
	fixup.m.ScaleAniso(&fixup.m, 1.0, -1.0, 1.0)
	fixup.m.ScaleAniso(&fixup.m, 1.0, 1.0, 0.5)
	fixup.m.Translate(0.0, 0.0, 1.0)
	var out Mat4
	fm := fixup.m
	pm := proj.m
	out.m.Mult(&fm, &pm)
	return out
}

// Invert returns the inverse of m. Used by primary-ray generation to
// unproject NDC coordinates back through the camera's projection and view.
func Invert(m Mat4) Mat4 {
	var out Mat4
	mm := m.m
	out.m.Invert(&mm)
	return out
}

// Transpose3x4 writes the upper 3x4 of m transposed into dst, the layout
// VkAccelerationStructureInstanceKHR.transform expects (spec.md §4.7.7).
func Transpose3x4(m Mat4) [12]float32 {
	var dst [12]float32
	raw := m.m
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			dst[row*4+col] = raw[col][row]
		}
	}
	return dst
}
