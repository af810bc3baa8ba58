package scene

import (
	"fmt"

	"github.com/andewx/dieselpt/xform"
)

// MaxSceneMeshInstanceCount bounds the flattener's instance table, per
// spec.md §4.7's capacity-bound fatal check.
const MaxSceneMeshInstanceCount = 4096

// MaxSceneLightCount bounds the packed analytic + emissive light table.
const MaxSceneLightCount = 1024

// InstanceData is one TLAS instance record's CPU-side mirror: the
// transform goes through xform.Transpose3x4 for the actual
// VkAccelerationStructureInstanceKHR write; MeshID indexes the
// flattener's deduped mesh table. It carries no separate normal matrix. Per-submesh material lookup lives in
// Flattened.SubmeshMaterialIndex instead of a single field here, since
// a mesh instance can own more than one material (spec.md §3's submesh
// partitioning).
type InstanceData struct {
	Transform     [12]float32
	MeshID        uint32
	InstanceIndex uint32 // gl_InstanceCustomIndexEXT value: index into this InstanceData table
}

// LightData is one packed analytic or emissive-triangle light, in the
// order env-map (if any), emissive submeshes, directional, spot, point
// — matching spec.md §4.7's "env-map light prepending" then "analytic
// light packing".
type LightData struct {
	Kind      LightKind
	Color     xform.Vec3
	Intensity float32
	// Extra is kind-specific: cone angles/range/texture id for analytic
	// lights; for LightEmissiveTriangle, {mesh_node_idx, material_idx,
	// base_index, index_count, vertex_count} per spec.md §4.7 item 3.
	Extra [5]float32
}

type LightKind int

const (
	LightIBL LightKind = iota
	LightDirectional
	LightSpot
	LightPoint
	LightEmissiveTriangle
)

// MaterialSlot is a deduped material's texture-slot assignment, written
// once per unique submesh MaterialIndex seen across all mesh instances.
type MaterialSlot struct {
	MaterialID    int
	AlbedoTexture int
	NormalTexture int
	MRTexture     int // metallic-roughness
	EmissiveTexture int
}

// SubmeshMaterialRecord is one (base_index/3, global_material_idx) pair,
// per spec.md §4.7 item 8: "for each submesh of each MeshNode, write
// (base_index/3, global_material_idx) into that instance's small
// material-indices buffer."
type SubmeshMaterialRecord struct {
	BaseIndexDiv3 int
	MaterialIndex int // index into Flattened.Materials
}

// Flattened is the flattener's full per-frame output: every table the
// path tracer's descriptor set binds, plus the per-submesh
// material-index buffer spec.md §4.7 item 8 calls for (so a
// multi-material mesh's closest-hit shader can look up the right
// material per triangle without per-instance duplication of
// single-material meshes).
type Flattened struct {
	Instances            []InstanceData
	Materials            []MaterialSlot
	Lights               []LightData
	SubmeshMaterialIndex map[int][]SubmeshMaterialRecord // MeshID -> per-submesh material records
}

// Flatten dedups meshes/materials referenced by rs.Meshes and packs the
// light and instance tables, per spec.md §4.7. It is deterministic: two
// calls against the same (unmodified) RenderState produce byte-for-byte
// identical Instances/Materials/Lights slices (the idempotence property
// spec.md §8 calls out), since iteration order follows rs.Meshes'
// append order and materialIndex's first-seen order rather than any
// unordered map range.
func Flatten(rs RenderState) (Flattened, error) {
	if len(rs.Meshes) > MaxSceneMeshInstanceCount {
		return Flattened{}, fmt.Errorf("scene: %d mesh instances exceeds MaxSceneMeshInstanceCount (%d)",
			len(rs.Meshes), MaxSceneMeshInstanceCount)
	}

	out := Flattened{SubmeshMaterialIndex: make(map[int][]SubmeshMaterialRecord)}

	materialIndex := make(map[int]int)
	seenMesh := make(map[int]bool)

	for i, mi := range rs.Meshes {
		meshID := mi.Node.Mesh.MeshID

		// Per-mesh dedup (spec.md §4.7 item 1): the first occurrence of a
		// mesh id registers its submeshes' materials and writes the
		// per-submesh material-index records; later instances of the
		// same mesh reuse both.
		if !seenMesh[meshID] {
			seenMesh[meshID] = true
			records := make([]SubmeshMaterialRecord, 0, len(mi.Node.Mesh.Submeshes))
			for _, sm := range mi.Node.Mesh.Submeshes {
				slot, ok := materialIndex[sm.MaterialIndex]
				if !ok {
					slot = len(out.Materials)
					materialIndex[sm.MaterialIndex] = slot
					out.Materials = append(out.Materials, MaterialSlot{MaterialID: sm.MaterialIndex})
				}
				records = append(records, SubmeshMaterialRecord{BaseIndexDiv3: sm.BaseIndex / 3, MaterialIndex: slot})
			}
			out.SubmeshMaterialIndex[meshID] = records
		}

		out.Instances = append(out.Instances, InstanceData{
			Transform:     xform.Transpose3x4(mi.World),
			MeshID:        uint32(meshID),
			InstanceIndex: uint32(i),
		})

		// Emissive submeshes (spec.md §4.7 item 3): one LightData per
		// emissive submesh under this MeshNode instance, carrying the
		// base_index/index_count/vertex_count spec.md §3/§4.7 name.
		for _, sm := range mi.Node.Mesh.Submeshes {
			if !sm.Emissive {
				continue
			}
			slot := materialIndex[sm.MaterialIndex]
			out.Lights = append(out.Lights, LightData{
				Kind:      LightEmissiveTriangle,
				Color:     xform.Vec3{X: 1, Y: 1, Z: 1},
				Intensity: 1,
				Extra: [5]float32{float32(i), float32(slot), float32(sm.BaseIndex), float32(sm.IndexCount), float32(sm.VertexCount())},
			})
		}
	}

	if rs.IBL != nil {
		out.Lights = append([]LightData{{
			Kind:      LightIBL,
			Intensity: rs.IBL.IBL.Intensity,
			Extra:     [5]float32{float32(rs.IBL.IBL.TextureID), 0, 0, 0, 0},
		}}, out.Lights...)
	}

	for _, n := range rs.DirectionalLights {
		out.Lights = append(out.Lights, LightData{Kind: LightDirectional, Color: n.DirLight.Color, Intensity: n.DirLight.Intensity})
	}
	for _, n := range rs.SpotLights {
		out.Lights = append(out.Lights, LightData{
			Kind: LightSpot, Color: n.SpotLight.Color, Intensity: n.SpotLight.Intensity,
			Extra: [5]float32{n.SpotLight.InnerConeCos, n.SpotLight.OuterConeCos, n.SpotLight.Range, 0, 0},
		})
	}
	for _, n := range rs.PointLights {
		out.Lights = append(out.Lights, LightData{
			Kind: LightPoint, Color: n.PointLight.Color, Intensity: n.PointLight.Intensity,
			Extra: [5]float32{n.PointLight.Range, 0, 0, 0, 0},
		})
	}

	if len(out.Lights) > MaxSceneLightCount {
		return Flattened{}, fmt.Errorf("scene: %d lights exceeds MaxSceneLightCount (%d)", len(out.Lights), MaxSceneLightCount)
	}

	return out, nil
}
