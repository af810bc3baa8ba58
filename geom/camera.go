package geom

import "github.com/andewx/dieselpt/xform"

// PrimaryRay generates a camera ray for pixel (x,y) in [0,W)x[0,H), per
// spec.md §4.4: map to NDC, unproject via the inverse projection, rotate
// via the inverse view, normalize.
func PrimaryRay(x, y int, width, height int, invProj, invView xform.Mat4) Ray {
	ndcX := (2*(float32(x)+0.5)/float32(width) - 1)
	ndcY := (2*(float32(y)+0.5)/float32(height) - 1)

	pr := invProj.Raw()
	target := mulPoint(pr, Vec3{ndcX, ndcY, 1})
	target = target.Normalize()

	vr := invView.Raw()
	dir := mulDirection(vr, target).Normalize()
	origin := mulPoint(vr, Vec3{0, 0, 0})

	return NewRay(origin, dir)
}

// mulPoint and mulDirection apply a 4x4 column-major matrix (as returned
// by xform.Mat4.Raw) to a point (w=1) or a direction (w=0), dropping the
// homogeneous divide for directions.
func mulPoint(m [4][4]float32, p Vec3) Vec3 {
	x := m[0][0]*p.X + m[1][0]*p.Y + m[2][0]*p.Z + m[3][0]
	y := m[0][1]*p.X + m[1][1]*p.Y + m[2][1]*p.Z + m[3][1]
	z := m[0][2]*p.X + m[1][2]*p.Y + m[2][2]*p.Z + m[3][2]
	w := m[0][3]*p.X + m[1][3]*p.Y + m[2][3]*p.Z + m[3][3]
	if w != 0 {
		return Vec3{x / w, y / w, z / w}
	}
	return Vec3{x, y, z}
}

func mulDirection(m [4][4]float32, d Vec3) Vec3 {
	x := m[0][0]*d.X + m[1][0]*d.Y + m[2][0]*d.Z
	y := m[0][1]*d.X + m[1][1]*d.Y + m[2][1]*d.Z
	z := m[0][2]*d.X + m[1][2]*d.Y + m[2][2]*d.Z
	return Vec3{x, y, z}
}
