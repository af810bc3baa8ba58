// Package pathtrace implements spec.md §4.8: the per-frame path-trace
// pipeline — ping-pong accumulation, tone mapping, debug visualization,
// and the save-to-disk state machine. Grounded on the teacher's
// renderpass.go/pipeline.go for pipeline/attachment idiom and on
// original_source/src/core/renderer.cpp for the per-frame step
// ordering, since the teacher has no path-tracing pass of its own.
package pathtrace

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/dieselpt/config"
	"github.com/andewx/dieselpt/resource"
)

// Images holds the path tracer's own image set, distinct from the
// swapchain: a ping-pong pair of high-precision accumulation targets,
// the tone-mapped display image, and a linear copy used only when a
// save-to-disk request is pending (spec.md §4.8/§9).
type Images struct {
	Accum     [2]*resource.Image // R32G32B32A32_SFLOAT, ping-pong
	ToneMapped *resource.Image   // R8G8B8A8_UNORM
	SaveCopy  *resource.Image    // linear readback target; never allocated in this package (SaveToDisk reads back through a buffer), freed by Destroy if set
	current   int                // index into Accum currently being written this frame
}

func NewImages(dev vk.Device, alloc resource.MemoryAllocator, width, height uint32) (*Images, error) {
	imgs := &Images{}
	for i := range imgs.Accum {
		img, err := resource.NewImage(dev, alloc, resource.ImageDesc{
			Width: width, Height: height,
			Format: vk.FormatR32g32b32a32Sfloat,
			Usage:  vk.ImageUsageFlags(vk.ImageUsageStorageBit) | vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit) | vk.ImageUsageFlags(vk.ImageUsageTransferDstBit),
		})
		if err != nil {
			return nil, err
		}
		imgs.Accum[i] = img
	}

	tm, err := resource.NewImage(dev, alloc, resource.ImageDesc{
		Width: width, Height: height,
		Format: vk.FormatR8g8b8a8Unorm,
		Usage:  vk.ImageUsageFlags(vk.ImageUsageStorageBit) | vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit) | vk.ImageUsageFlags(vk.ImageUsageSampledBit),
	})
	if err != nil {
		return nil, err
	}
	imgs.ToneMapped = tm
	return imgs, nil
}

func (imgs *Images) Destroy() {
	for _, img := range imgs.Accum {
		if img != nil {
			img.Destroy()
		}
	}
	if imgs.ToneMapped != nil {
		imgs.ToneMapped.Destroy()
	}
	if imgs.SaveCopy != nil {
		imgs.SaveCopy.Destroy()
	}
}

// Write returns the accumulation image this frame writes into; Read
// returns the other (the previous frame's result, fed back in for
// progressive accumulation). Swap flips which is which, per spec.md
// §4.8 step 7's "ping-pong swap".
func (imgs *Images) Write() *resource.Image { return imgs.Accum[imgs.current] }
func (imgs *Images) Read() *resource.Image  { return imgs.Accum[1-imgs.current] }
func (imgs *Images) Swap()                  { imgs.current = 1 - imgs.current }

// ToneMapPushConstants is the push-constant layout for the tone-map
// pass, per SPEC_FULL.md §C: {exposure float, operator int}.
type ToneMapPushConstants struct {
	Exposure float32
	Operator int32
}

// Pipelines holds every pipeline spec.md §4.8 lists: ray trace, debug
// ray build, tone map, copy to swapchain, debug visualization, depth
// prepass, and ray-debug line draw. Construction is left to the
// composing application (cmd/dieselpt), which owns shader module
// loading; this struct just names the slots so Render has somewhere to
// bind them from.
type Pipelines struct {
	RayTrace         *resource.RayTracingPipeline
	DebugRayBuild    *resource.ComputePipeline
	ToneMap          *resource.ComputePipeline
	CopyToSwapchain  *resource.ComputePipeline
	DebugVisualize   *resource.ComputePipeline
	DepthPrepass     *resource.RayTracingPipeline // reuses the RT pipeline shape for a depth-only pass
	RayDebugLineDraw *resource.ComputePipeline
}

// State is the path tracer's per-frame accumulation/visualization
// state, independent of which frame-in-flight slot is executing.
type State struct {
	NumAccumulatedFrames uint32
	CurrentOutputBuffer  config.OutputBuffer
	DebugRaysEnabled     bool
}

// ResetAccumulation restarts progressive accumulation from frame 1, per
// spec.md §8's accumulation-reset property: any setting change or scene
// edit that invalidates the running average must call this, never
// silently keep accumulating over stale samples.
func (s *State) ResetAccumulation() { s.NumAccumulatedFrames = 0 }

// Advance increments the accumulated-frame count, capping it at cfg's
// MaxSamples. Render does not consult the count: it traces rays every
// frame whether or not the ceiling has been reached.
func (s *State) Advance(cfg config.Config) {
	if s.NumAccumulatedFrames < cfg.MaxSamples {
		s.NumAccumulatedFrames++
	}
}


// Render records one frame of path-trace passes into cmd:
//  1. transition the write accumulation image for compute/ray-tracing access
//  2. dispatch rays with the SBT regions bound
//  3. run the tone-map pass with push constants {exposure, operator}, then
//     either blit the tone-mapped result to the swapchain or bind the
//     debug-visualization pass instead, per cfg.CurrentOutputBuffer
//  4. if debug rays are enabled, run the debug ray-gen kernel that fills
//     the VBO/indirect-draw buffer, a depth prepass, then the line-list
//     draw over it
//  5. advance the accumulated-frame count and swap the ping-pong
//     accumulation images
//
// Render neither builds nor refits a TLAS and takes no TLAS handle, and
// it never resets accumulation; callers reset it through
// State.ResetAccumulation.
func Render(cmd vk.CommandBuffer, imgs *Images, pipes *Pipelines, state *State, cfg config.Config,
	width, height uint32, rayGen, miss, hit vk.StridedDeviceAddressRegionKHR) error {

	groupsX, groupsY := (width+7)/8, (height+7)/8

	transitionForCompute(cmd, imgs.Write())

	if pipes.RayTrace != nil {
		vk.CmdBindPipeline(cmd, vk.PipelineBindPointRayTracingKhr, pipes.RayTrace.Handle)
		var callable vk.StridedDeviceAddressRegionKHR
		vk.CmdTraceRaysKHR(cmd, &rayGen, &miss, &hit, &callable, width, height, 1)
	}

	if pipes.ToneMap != nil {
		push := ToneMapPushConstants{Exposure: cfg.Exposure, Operator: int32(cfg.ToneMapOperator)}
		vk.CmdBindPipeline(cmd, vk.PipelineBindPointCompute, pipes.ToneMap.Handle)
		vk.CmdPushConstants(cmd, pipes.ToneMap.Layout, vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			0, uint32(unsafe.Sizeof(push)), unsafe.Pointer(&push))
		vk.CmdDispatch(cmd, groupsX, groupsY, 1)
	}

	// spec.md §4.8 step 5: a non-final output buffer selects the debug
	// visualization pass instead of the plain swapchain copy.
	if cfg.CurrentOutputBuffer != config.OutputFinal && pipes.DebugVisualize != nil {
		vk.CmdBindPipeline(cmd, vk.PipelineBindPointCompute, pipes.DebugVisualize.Handle)
		push := int32(cfg.CurrentOutputBuffer)
		vk.CmdPushConstants(cmd, pipes.DebugVisualize.Layout, vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			0, uint32(unsafe.Sizeof(push)), unsafe.Pointer(&push))
		vk.CmdDispatch(cmd, groupsX, groupsY, 1)
	} else if pipes.CopyToSwapchain != nil {
		vk.CmdBindPipeline(cmd, vk.PipelineBindPointCompute, pipes.CopyToSwapchain.Handle)
		vk.CmdDispatch(cmd, groupsX, groupsY, 1)
	}

	// spec.md §4.8 step 6: the debug ray-gen kernel fills the VBO/
	// indirect-draw buffer, a depth prepass establishes occlusion, then
	// the line-list pipeline draws the rays over it.
	if state.DebugRaysEnabled {
		if pipes.DebugRayBuild != nil {
			vk.CmdBindPipeline(cmd, vk.PipelineBindPointCompute, pipes.DebugRayBuild.Handle)
			vk.CmdDispatch(cmd, groupsX, groupsY, 1)
		}
		if pipes.DepthPrepass != nil {
			vk.CmdBindPipeline(cmd, vk.PipelineBindPointRayTracingKhr, pipes.DepthPrepass.Handle)
			var callable vk.StridedDeviceAddressRegionKHR
			vk.CmdTraceRaysKHR(cmd, &rayGen, &miss, &hit, &callable, width, height, 1)
		}
		if pipes.RayDebugLineDraw != nil {
			vk.CmdBindPipeline(cmd, vk.PipelineBindPointCompute, pipes.RayDebugLineDraw.Handle)
			vk.CmdDispatch(cmd, groupsX, groupsY, 1)
		}
	}

	state.Advance(cfg)
	imgs.Swap()
	return nil
}

func transitionForCompute(cmd vk.CommandBuffer, img *resource.Image) {
	barrier := img.TransitionBarrier(vk.ImageLayoutGeneral,
		vk.AccessFlags(0), vk.AccessFlags(vk.AccessShaderWriteBit),
		vk.ImageAspectFlags(vk.ImageAspectColorBit))
	vk.CmdPipelineBarrier(cmd,
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		vk.PipelineStageFlags(vk.PipelineStageRayTracingShaderBitKhr),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}
