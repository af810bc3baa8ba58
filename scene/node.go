// Package scene implements spec.md §4.6-§4.7: the node tree (tagged
// variant Root/Mesh/Camera/DirectionalLight/SpotLight/PointLight/IBL),
// dirty-flag transform propagation, and the per-frame flattener that
// dedups meshes/materials into the CPU-side instance, light and
// material tables the path tracer and its acceleration structures
// consume. Grounded on the
// teacher's managers.go (resource bookkeeping by name/id) for the tree
// shape, since the teacher has no scene graph of its own.
package scene

import (
	"github.com/andewx/dieselpt/geom"
	"github.com/andewx/dieselpt/xform"
)

// Kind tags a Node's variant payload.
type Kind int

const (
	KindRoot Kind = iota
	KindMesh
	KindCamera
	KindDirectionalLight
	KindSpotLight
	KindPointLight
	KindIBL
)

// Submesh is one contiguous draw range within a mesh's shared vertex/
// index buffers, per spec.md §3: a mesh's index sequence is "partitioned
// into one or more submeshes (base_vertex, base_index, index_count,
// material_index, AABB)." Emissive points at whether the submesh's
// material is emissive, per spec.md §3's "Emissive materials mark their
// mesh's submeshes as area lights" — the flattener reads it to decide
// whether this submesh contributes a LightData record (spec.md §4.7
// item 3).
type Submesh struct {
	BaseVertex    int
	BaseIndex     int // multiple of 3, per spec.md §3's invariant
	IndexCount    int
	MaterialIndex int
	Bounds        geom.AABB
	Emissive      bool
}

// VertexCount reports the submesh's draw vertex count from its index
// range, the value spec.md §4.7 item 3's LightData needs alongside
// BaseIndex/IndexCount — for an indexed, non-instanced draw this is
// just IndexCount (each index names one vertex to shade).
func (s Submesh) VertexCount() int { return s.IndexCount }

// MeshRef names a mesh by handle into the asset tables the
// resource/upload layers populate, plus its ordered submesh list
// (spec.md §3); the scene package never owns GPU resources directly.
type MeshRef struct {
	MeshID   int
	Submeshes []Submesh
}

// CameraData holds the camera's local parameters; world position/
// orientation comes from the owning Node's transform.
type CameraData struct {
	FovYRadians float32
	Near, Far   float32
}

// DirectionalLightData, SpotLightData, PointLightData mirror the
// analytic light parameters spec.md §4.7's light packing needs.
type DirectionalLightData struct {
	Color     xform.Vec3
	Intensity float32
}

type SpotLightData struct {
	Color        xform.Vec3
	Intensity    float32
	InnerConeCos float32
	OuterConeCos float32
	Range        float32
}

type PointLightData struct {
	Color     xform.Vec3
	Intensity float32
	Range     float32
}

// IBLData references the environment map asset used as a prepended
// analytic-light-table entry (spec.md §4.7's "env-map light prepending").
type IBLData struct {
	TextureID int
	Intensity float32
}

// Node is one entry in the scene tree. Position/Rotation/Scale are
// local (parent-relative); World is recomputed by Update when Dirty is
// set, matching the teacher's general style of cheap bool flags over
// generation counters.
type Node struct {
	Kind Kind
	Name string

	Position xform.Vec3
	Rotation xform.Quat
	Scale    xform.Vec3
	World    xform.Mat4
	Dirty    bool

	Mesh      MeshRef
	Camera    CameraData
	DirLight  DirectionalLightData
	SpotLight SpotLightData
	PointLight PointLightData
	IBL       IBLData

	parent   *Node
	children []*Node
}

// NewNode constructs a node at the identity transform, dirty so the
// first Update call computes its world matrix.
func NewNode(kind Kind, name string) *Node {
	return &Node{
		Kind:     kind,
		Name:     name,
		Rotation: xform.IdentityQuat(),
		Scale:    xform.Vec3{X: 1, Y: 1, Z: 1},
		World:    xform.Identity(),
		Dirty:    true,
	}
}

// NewRoot builds an empty root node.
func NewRoot() *Node { return NewNode(KindRoot, "root") }

// Children returns n's children in insertion order.
func (n *Node) Children() []*Node { return n.children }

// Parent returns n's parent, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// MarkDirty flags n and every descendant as needing a world-matrix
// recompute on the next Update, per spec.md §4.6's dirty-flag
// propagation (a parent move invalidates every descendant's cached
// world matrix, even though each node's local transform is unchanged).
func (n *Node) MarkDirty() {
	n.Dirty = true
	for _, c := range n.children {
		c.MarkDirty()
	}
}

// SetLocal sets n's local TRS and marks it (and descendants) dirty.
func (n *Node) SetLocal(pos xform.Vec3, rot xform.Quat, scale xform.Vec3) {
	n.Position, n.Rotation, n.Scale = pos, rot, scale
	n.MarkDirty()
}
