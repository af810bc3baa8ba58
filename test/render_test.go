// Package test holds the one end-to-end integration test spec.md §1
// expects alongside the core: a real window, a real Vulkan device, and
// a handful of frames driven through the actual submit/present path.
// Kept in the teacher's original test/render_test.go shape (GLFW window
// setup, no mocking of the GPU) but rewritten against this module's own
// device/config/scene packages instead of the teacher's deleted
// dieselvk/Usage API (SPEC_FULL.md §A, DESIGN.md).
package test

import (
	"runtime"
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/dieselpt/config"
	"github.com/andewx/dieselpt/device"
	"github.com/andewx/dieselpt/internal/vklog"
	"github.com/andewx/dieselpt/scene"
)

const (
	width  = 500
	height = 500
	frames = 8 // enough to cycle every frame-in-flight slot at least twice
)

// glfwSurface adapts a *glfw.Window to device.Surface, matching
// cmd/dieselpt's adapter; duplicated here rather than exported from
// cmd/dieselpt since a test binary cannot import a main package.
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

func TestRender(t *testing.T) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		t.Skipf("test: no windowing system available: %v", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())

	if err := vk.Init(); err != nil {
		t.Skipf("test: unable to load Vulkan loader: %v", err)
	}

	win, err := glfw.CreateWindow(width, height, "dieselpt-render-test", nil, nil)
	if err != nil {
		t.Fatalf("test: CreateWindow failed: %v", err)
	}
	defer win.Destroy()

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test: default config failed validation: %v", err)
	}

	log := vklog.Default()
	surf := &glfwSurface{win: win}
	dev := device.Open(cfg, surf, log, "dieselpt-render-test", false)

	root := scene.NewRoot()
	cam := scene.NewNode(scene.KindCamera, "main-camera")
	cam.Camera = scene.CameraData{FovYRadians: 0.9, Near: 0.05, Far: 1000}
	scene.AddChild(root, cam)

	threadSlot, err := dev.AcquireThreadSlot()
	if err != nil {
		t.Fatalf("test: AcquireThreadSlot failed: %v", err)
	}

	for i := 0; i < frames && !win.ShouldClose(); i++ {
		glfw.PollEvents()
		scene.Update(root)
		_ = scene.Gather(root)

		fc, err := dev.BeginFrame()
		if err != nil {
			if device.IsOutOfDate(err) {
				w, h := surf.FramebufferSize()
				if err := dev.Recreate(w, h); err != nil {
					t.Fatalf("test: frame %d: swapchain recreate failed: %v", i, err)
				}
				continue
			}
			t.Fatalf("test: frame %d: BeginFrame failed: %v", i, err)
		}
		bufs := make([]vk.CommandBuffer, 1)
		allocInfo := vk.CommandBufferAllocateInfo{SType: vk.StructureTypeCommandBufferAllocateInfo,
			CommandPool: dev.GraphicsCommandPool(threadSlot, fc.Index), Level: vk.CommandBufferLevelPrimary, CommandBufferCount: 1}
		if ret := vk.AllocateCommandBuffers(dev.Logical(), &allocInfo, bufs); ret != vk.Success {
			t.Fatalf("test: frame %d: AllocateCommandBuffers failed: %v", i, ret)
		}
		vk.BeginCommandBuffer(bufs[0], &vk.CommandBufferBeginInfo{SType: vk.StructureTypeCommandBufferBeginInfo})
		vk.EndCommandBuffer(bufs[0])
		if err := dev.Submit(fc, bufs[0], vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)); err != nil {
			t.Fatalf("test: frame %d: Submit failed: %v", i, err)
		}
		if err := dev.Present(fc); err != nil && !device.IsOutOfDate(err) {
			t.Fatalf("test: frame %d: Present failed: %v", i, err)
		}
	}
}
