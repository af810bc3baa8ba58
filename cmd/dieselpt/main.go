// Command dieselpt is the demo application wiring every package
// together: it opens a window via GLFW, brings up the Vulkan device,
// loads a config, and runs the path-trace frame loop. Grounded on the
// teacher's test/render_test.go integration-test shape (BaseVulkanApp
// plus a GLFW-backed Application.VulkanSurface), generalized from a
// test harness into a real entry point.
package main

import (
	"flag"
	"os"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/dieselpt/config"
	"github.com/andewx/dieselpt/device"
	"github.com/andewx/dieselpt/internal/vkerr"
	"github.com/andewx/dieselpt/internal/vklog"
	"github.com/andewx/dieselpt/pathtrace"
	"github.com/andewx/dieselpt/scene"
	"github.com/andewx/dieselpt/upload"
)

// glfwSurface adapts a *glfw.Window to device.Surface, the one seam
// spec.md §1 calls out as an external collaborator rather than part of
// the renderer core.
type glfwSurface struct {
	win *glfw.Window
}

func (s *glfwSurface) VulkanSurface(instance vk.Instance) (vk.Surface, error) {
	surfPtr, err := s.win.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, err
	}
	return vk.SurfaceFromPointer(surfPtr), nil
}

func (s *glfwSurface) FramebufferSize() (uint32, uint32) {
	w, h := s.win.GetFramebufferSize()
	return uint32(w), uint32(h)
}

func main() {
	configPath := flag.String("config", "", "path to a TOML config file; defaults to config.Default()")
	debug := flag.Bool("debug", false, "enable the Vulkan validation layer")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			os.Stderr.WriteString("dieselpt: " + err.Error() + "\n")
			os.Exit(1)
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		os.Stderr.WriteString("dieselpt: invalid config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := vklog.Open("dieselpt.info.log", "dieselpt.warn.log", "dieselpt.error.log")
	if err != nil {
		log = vklog.Default()
	}

	if err := glfw.Init(); err != nil {
		vkerr.Fatal(log, err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	win, err := glfw.CreateWindow(1280, 720, "dieselpt", nil, nil)
	vkerr.Fatal(log, err)
	defer win.Destroy()

	surf := &glfwSurface{win: win}
	dev := device.Open(cfg, surf, log, "dieselpt", *debug)

	width, height := surf.FramebufferSize()
	imgs, err := pathtrace.NewImages(dev.Logical(), dev.Allocator(), width, height)
	vkerr.Fatal(log, err)
	defer imgs.Destroy()

	threadSlot, err := dev.AcquireThreadSlot()
	vkerr.Fatal(log, err)

	// pipes' pipeline fields stay nil until the composing application
	// loads shader modules and builds them via resource.NewComputePipeline/
	// NewRayTracingPipeline; Render treats a nil pipeline as "skip this
	// pass" so the frame loop below is real end-to-end wiring even before
	// shaders are bound.
	pipes := &pathtrace.Pipelines{}
	state := &pathtrace.State{CurrentOutputBuffer: cfg.CurrentOutputBuffer}

	root := scene.NewRoot()
	cam := scene.NewNode(scene.KindCamera, "main-camera")
	cam.Camera = scene.CameraData{FovYRadians: 0.9, Near: 0.05, Far: 1000}
	scene.AddChild(root, cam)

	for !win.ShouldClose() {
		glfw.PollEvents()
		scene.Update(root)
		rs := scene.Gather(root)
		flattened, err := scene.Flatten(rs)
		if err != nil {
			log.Error("dieselpt: flatten failed: %v", err)
			continue
		}

		if _, err := runFrame(dev, flattened, imgs, pipes, state, cfg, threadSlot, width, height); err != nil {
			if device.IsOutOfDate(err) {
				w, h := surf.FramebufferSize()
				if err := dev.Recreate(w, h); err != nil {
					log.Error("dieselpt: swapchain recreate failed: %v", err)
				}
				width, height = w, h
				continue
			}
			log.Error("dieselpt: frame failed: %v", err)
		}
	}
}

// runFrame records and submits one frame per spec.md §4.8: flush any
// pending mesh/BLAS uploads the scene's flattened instance table
// requires, then record the path-trace/tone-map/debug passes into this
// frame's command buffer and present. With no asset pipeline wired in
// yet, flattened carries no upload.Target/BlasRequest entries, so Flush
// submits an empty command buffer and waits on its fence — the seam is
// real, there's just nothing to feed it without a mesh loader.
func runFrame(dev *device.Device, flattened scene.Flattened, imgs *pathtrace.Images, pipes *pathtrace.Pipelines,
	state *pathtrace.State, cfg config.Config, threadSlot int, width, height uint32) (device.FrameContext, error) {

	fc, err := dev.BeginFrame()
	if err != nil {
		return fc, err
	}

	batch := upload.NewBatch(dev.Logical(), dev.Allocator(), dev.TransferCommandPool(threadSlot, fc.Index), dev.Transfer.Handle)
	_ = flattened // populated by the asset pipeline once mesh loading exists
	if err := batch.Flush(); err != nil {
		return fc, err
	}

	cmd, err := allocateCommandBuffer(dev.Logical(), dev.GraphicsCommandPool(threadSlot, fc.Index))
	if err != nil {
		return fc, err
	}
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if ret := vk.BeginCommandBuffer(cmd, &beginInfo); ret != vk.Success {
		return fc, vkerr.Result(ret)
	}

	var rayGen, miss, hit vk.StridedDeviceAddressRegionKHR
	if err := pathtrace.Render(cmd, imgs, pipes, state, cfg, width, height, rayGen, miss, hit); err != nil {
		return fc, err
	}

	if ret := vk.EndCommandBuffer(cmd); ret != vk.Success {
		return fc, vkerr.Result(ret)
	}
	if err := dev.Submit(fc, cmd, vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)); err != nil {
		return fc, err
	}
	return fc, dev.Present(fc)
}

func allocateCommandBuffer(dev vk.Device, pool vk.CommandPool) (vk.CommandBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	bufs := make([]vk.CommandBuffer, 1)
	if ret := vk.AllocateCommandBuffers(dev, &info, bufs); ret != vk.Success {
		return nil, vkerr.Result(ret)
	}
	return bufs[0], nil
}
