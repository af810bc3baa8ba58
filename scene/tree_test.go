package scene

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andewx/dieselpt/xform"
)

// TestUpdate_DirtyPropagation is the spec.md §4.6 dirty-flag propagation
// property: moving a parent recomputes every descendant's World even
// though the descendants' own local transforms never changed.
func TestUpdate_DirtyPropagation(t *testing.T) {
	root := NewRoot()
	parent := NewNode(KindMesh, "parent")
	child := NewNode(KindMesh, "child")
	grandchild := NewNode(KindMesh, "grandchild")

	AddChild(root, parent)
	AddChild(parent, child)
	AddChild(child, grandchild)

	child.SetLocal(xform.Vec3{X: 1, Y: 0, Z: 0}, xform.IdentityQuat(), xform.Vec3{X: 1, Y: 1, Z: 1})
	Update(root)

	firstWorld := grandchild.World.Raw()

	require.False(t, root.Dirty)
	require.False(t, parent.Dirty)
	require.False(t, child.Dirty)
	require.False(t, grandchild.Dirty)

	parent.SetLocal(xform.Vec3{X: 5, Y: 0, Z: 0}, xform.IdentityQuat(), xform.Vec3{X: 1, Y: 1, Z: 1})
	require.True(t, parent.Dirty)
	require.True(t, child.Dirty, "MarkDirty must cascade to children")
	require.True(t, grandchild.Dirty, "MarkDirty must cascade to all descendants")

	Update(root)
	secondWorld := grandchild.World.Raw()

	require.NotEqual(t, firstWorld[3][0], secondWorld[3][0],
		"grandchild world translation must change after an ancestor moves")
	require.False(t, grandchild.Dirty)
}

func TestUpdate_UnmodifiedSubtreeUnaffected(t *testing.T) {
	root := NewRoot()
	a := NewNode(KindMesh, "a")
	b := NewNode(KindMesh, "b")
	AddChild(root, a)
	AddChild(root, b)

	Update(root)
	bWorldBefore := b.World.Raw()

	a.SetLocal(xform.Vec3{X: 9, Y: 9, Z: 9}, xform.IdentityQuat(), xform.Vec3{X: 1, Y: 1, Z: 1})
	Update(root)

	require.Equal(t, bWorldBefore, b.World.Raw(), "moving a sibling must not dirty b")
}

func TestTree_AddRemoveFindChild(t *testing.T) {
	root := NewRoot()
	a := NewNode(KindMesh, "a")
	b := NewNode(KindMesh, "b")
	AddChild(root, a)
	AddChild(root, b)

	require.Equal(t, a, FindChild(root, "a"))
	require.Len(t, root.Children(), 2)

	removed := RemoveChild(root, a, nil)
	require.True(t, removed)
	require.Len(t, root.Children(), 1)
	require.Nil(t, FindChild(root, "a"))
	require.Nil(t, a.Parent())
}

type fakeDeletionQueue struct{ calls int }

func (f *fakeDeletionQueue) QueueDeletion(fn func()) {
	f.calls++
	fn()
}

func TestTree_RemoveChildQueuesDeletion(t *testing.T) {
	root := NewRoot()
	a := NewNode(KindMesh, "a")
	AddChild(root, a)

	dq := &fakeDeletionQueue{}
	require.True(t, RemoveChild(root, a, dq))
	require.Equal(t, 1, dq.calls)
}

func TestGather_BucketsByKind(t *testing.T) {
	root := NewRoot()
	mesh := NewNode(KindMesh, "mesh")
	cam := NewNode(KindCamera, "cam")
	sun := NewNode(KindDirectionalLight, "sun")
	spot := NewNode(KindSpotLight, "spot")
	point := NewNode(KindPointLight, "point")
	ibl := NewNode(KindIBL, "ibl")

	for _, n := range []*Node{mesh, cam, sun, spot, point, ibl} {
		AddChild(root, n)
	}
	Update(root)

	rs := Gather(root)
	require.Len(t, rs.Meshes, 1)
	require.Equal(t, mesh, rs.Meshes[0].Node)
	require.Equal(t, cam, rs.Camera)
	require.Equal(t, []*Node{sun}, rs.DirectionalLights)
	require.Equal(t, []*Node{spot}, rs.SpotLights)
	require.Equal(t, []*Node{point}, rs.PointLights)
	require.Equal(t, ibl, rs.IBL)
}
