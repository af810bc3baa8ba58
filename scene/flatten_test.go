package scene

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andewx/dieselpt/geom"
	"github.com/andewx/dieselpt/xform"
)

func buildSampleScene() *Node {
	root := NewRoot()

	mesh1 := NewNode(KindMesh, "mesh1")
	mesh1.Mesh = MeshRef{MeshID: 1, Submeshes: []Submesh{
		{BaseVertex: 0, BaseIndex: 0, IndexCount: 3, MaterialIndex: 10, Bounds: geom.Empty()},
	}}
	mesh2 := NewNode(KindMesh, "mesh2")
	mesh2.Mesh = MeshRef{MeshID: 2, Submeshes: []Submesh{
		{BaseVertex: 0, BaseIndex: 0, IndexCount: 3, MaterialIndex: 10, Bounds: geom.Empty()}, // shares material with mesh1
	}}
	mesh3 := NewNode(KindMesh, "mesh3")
	mesh3.Mesh = MeshRef{MeshID: 3, Submeshes: []Submesh{
		{BaseVertex: 0, BaseIndex: 0, IndexCount: 3, MaterialIndex: 20, Bounds: geom.Empty(), Emissive: true},
	}}

	sun := NewNode(KindDirectionalLight, "sun")
	sun.DirLight = DirectionalLightData{Color: xform.Vec3{X: 1, Y: 1, Z: 1}, Intensity: 3}
	spot := NewNode(KindSpotLight, "spot")
	spot.SpotLight = SpotLightData{Intensity: 1, InnerConeCos: 0.9, OuterConeCos: 0.8, Range: 10}
	point := NewNode(KindPointLight, "point")
	point.PointLight = PointLightData{Intensity: 2, Range: 5}
	ibl := NewNode(KindIBL, "ibl")
	ibl.IBL = IBLData{TextureID: 7, Intensity: 1.5}

	for _, n := range []*Node{mesh1, mesh2, mesh3, sun, spot, point, ibl} {
		AddChild(root, n)
	}
	Update(root)
	return root
}

// TestFlatten_Idempotence is the spec.md §8 flatten idempotence property:
// two Flatten calls against an unmodified RenderState must produce
// byte-identical Instances/Materials/Lights slices.
func TestFlatten_Idempotence(t *testing.T) {
	root := buildSampleScene()
	rs := Gather(root)

	first, err := Flatten(rs)
	require.NoError(t, err)
	second, err := Flatten(rs)
	require.NoError(t, err)

	require.Equal(t, first.Instances, second.Instances)
	require.Equal(t, first.Materials, second.Materials)
	require.Equal(t, first.Lights, second.Lights)
	require.Equal(t, first.SubmeshMaterialIndex, second.SubmeshMaterialIndex)
}

func TestFlatten_DedupsMaterials(t *testing.T) {
	root := buildSampleScene()
	rs := Gather(root)

	out, err := Flatten(rs)
	require.NoError(t, err)

	require.Len(t, out.Materials, 2, "mesh1 and mesh2 share MaterialIndex 10, must collapse to one slot")
	require.Len(t, out.Instances, 3)

	require.Equal(t, out.SubmeshMaterialIndex[1][0].MaterialIndex, out.SubmeshMaterialIndex[2][0].MaterialIndex,
		"mesh1 and mesh2 submeshes must resolve to the same deduped material slot")
}

func TestFlatten_EmissiveMeshEmitsLight(t *testing.T) {
	root := buildSampleScene()
	out, err := Flatten(Gather(root))
	require.NoError(t, err)

	var foundEmissive bool
	for _, l := range out.Lights {
		if l.Kind == LightEmissiveTriangle {
			foundEmissive = true
		}
	}
	require.True(t, foundEmissive, "emissive mesh3 must contribute a LightEmissiveTriangle entry")
}

func TestFlatten_IBLPrependedFirst(t *testing.T) {
	root := buildSampleScene()
	out, err := Flatten(Gather(root))
	require.NoError(t, err)

	require.NotEmpty(t, out.Lights)
	require.Equal(t, LightIBL, out.Lights[0].Kind, "IBL light must be prepended first")
}

func TestFlatten_ExceedsMeshInstanceCapacity(t *testing.T) {
	rs := RenderState{}
	for i := 0; i < MaxSceneMeshInstanceCount+1; i++ {
		n := NewNode(KindMesh, "m")
		n.Mesh = MeshRef{MeshID: i}
		rs.Meshes = append(rs.Meshes, MeshInstance{Node: n, World: xform.Identity()})
	}
	_, err := Flatten(rs)
	require.Error(t, err)
}

func TestFlatten_ExceedsLightCapacity(t *testing.T) {
	rs := RenderState{}
	for i := 0; i < MaxSceneLightCount+1; i++ {
		n := NewNode(KindDirectionalLight, "l")
		rs.DirectionalLights = append(rs.DirectionalLights, n)
	}
	_, err := Flatten(rs)
	require.Error(t, err)
}
