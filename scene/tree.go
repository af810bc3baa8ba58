package scene

import "github.com/andewx/dieselpt/xform"

// DeletionQueue is implemented by device.Device; the scene package
// depends on it only through this interface to avoid importing device
// (which has no reason to know about scene graphs).
type DeletionQueue interface {
	QueueDeletion(fn func())
}

// AddChild appends child under parent and marks it dirty.
func AddChild(parent, child *Node) {
	child.parent = parent
	child.Dirty = true
	parent.children = append(parent.children, child)
}

// RemoveChild detaches child from parent. Nodes hold no GPU handles of
// their own, so RemoveChild releases nothing itself: if a deletion queue
// is given it queues a single no-op entry on it, and any GPU resource
// retired along with the subtree is queued on dq by the caller.
func RemoveChild(parent, child *Node, dq DeletionQueue) bool {
	for i, c := range parent.children {
		if c == child {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			child.parent = nil
			if dq != nil {
				// The node itself carries no direct GPU handles (those
				// live in the resource tables keyed by Mesh.MeshID/
				// MaterialID), so there is nothing to free here beyond
				// detaching the subtree from traversal; callers that
				// also retire a unique GPU resource for this node
				// should queue that release through dq themselves.
				dq.QueueDeletion(func() {})
			}
			return true
		}
	}
	return false
}

// FindChild searches parent's direct children by name.
func FindChild(parent *Node, name string) *Node {
	for _, c := range parent.children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Update recomposes World for every dirty node in the tree rooted at
// root, in parent-before-child order, per spec.md §4.6: local =
// Compose(Position, Rotation, Scale); world = parent.World * local for
// non-root nodes, local alone for the root.
func Update(root *Node) {
	updateRecursive(root, false)
}

func updateRecursive(n *Node, parentDirty bool) {
	dirty := n.Dirty || parentDirty
	if dirty {
		local := xform.Compose(n.Position, n.Rotation, n.Scale)
		if n.parent != nil {
			n.World = xform.Mul(n.parent.World, local)
		} else {
			n.World = local
		}
		n.Dirty = false
	}
	for _, c := range n.children {
		updateRecursive(c, dirty)
	}
}

// RenderState is the per-frame gather spec.md §4.6 describes: the
// flattener and path tracer read this rather than walking the tree
// themselves each pass.
type RenderState struct {
	Meshes            []MeshInstance
	Camera            *Node // nil if no KindCamera node exists
	DirectionalLights []*Node
	SpotLights        []*Node
	PointLights       []*Node
	IBL               *Node
}

// MeshInstance pairs a mesh node with its resolved world transform at
// gather time.
type MeshInstance struct {
	Node  *Node
	World xform.Mat4
}

// Gather walks the tree (which must already be Update'd this frame) and
// buckets nodes by kind into a RenderState, per spec.md §4.6.
func Gather(root *Node) RenderState {
	var rs RenderState
	gatherRecursive(root, &rs)
	return rs
}

func gatherRecursive(n *Node, rs *RenderState) {
	switch n.Kind {
	case KindMesh:
		rs.Meshes = append(rs.Meshes, MeshInstance{Node: n, World: n.World})
	case KindCamera:
		rs.Camera = n
	case KindDirectionalLight:
		rs.DirectionalLights = append(rs.DirectionalLights, n)
	case KindSpotLight:
		rs.SpotLights = append(rs.SpotLights, n)
	case KindPointLight:
		rs.PointLights = append(rs.PointLights, n)
	case KindIBL:
		rs.IBL = n
	}
	for _, c := range n.children {
		gatherRecursive(c, rs)
	}
}
