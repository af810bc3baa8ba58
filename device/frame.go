package device

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/dieselpt/config"
	"github.com/andewx/dieselpt/internal/vkerr"
)

func (d *Device) createFrameSync() {
	for i := range d.frames {
		fenceInfo := vk.FenceCreateInfo{
			SType: vk.StructureTypeFenceCreateInfo,
			Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
		}
		vkerr.Fatal(d.log, vkerr.Result(vk.CreateFence(d.Handle, &fenceInfo, nil, &d.frames[i].fence)))

		semInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
		vkerr.Fatal(d.log, vkerr.Result(vk.CreateSemaphore(d.Handle, &semInfo, nil, &d.frames[i].imageAvailable)))
		vkerr.Fatal(d.log, vkerr.Result(vk.CreateSemaphore(d.Handle, &semInfo, nil, &d.frames[i].renderFinished)))
	}
}

// FrameContext is handed to the caller for the duration of one frame's
// recording, per spec.md §4.1 steps 1-7: acquire, wait, record, submit,
// present.
type FrameContext struct {
	Index       int
	ImageIndex  uint32
	Fence       vk.Fence
	Acquired    vk.Semaphore
	RenderDone  vk.Semaphore
}

// BeginFrame waits on this slot's fence (bounding how far ahead of the
// GPU the CPU can run to kMaxFramesInFlight), runs the deletion queue
// entries due this slot, and acquires the next swapchain image. A
// vk.ErrorOutOfDate result is surfaced to the caller so it can trigger
// Recreate rather than being treated as a fatal error — this is the one
// per-frame path spec.md §7 calls out as recoverable, not fatal.
func (d *Device) BeginFrame() (FrameContext, error) {
	slot := d.currentFrame
	sync := &d.frames[slot]

	vk.WaitForFences(d.Handle, 1, []vk.Fence{sync.fence}, vk.True, ^uint64(0))
	d.processDeletionQueue()

	var imageIndex uint32
	ret := vk.AcquireNextImage(d.Handle, d.Swapchain.Handle, ^uint64(0), sync.imageAvailable, vk.NullFence, &imageIndex)
	if ret == vk.ErrorOutOfDate {
		return FrameContext{}, errSwapchainOutOfDate
	}
	if ret != vk.Success && ret != vk.Suboptimal {
		return FrameContext{}, vkerr.Result(ret)
	}

	vk.ResetFences(d.Handle, 1, []vk.Fence{sync.fence})
	return FrameContext{Index: slot, ImageIndex: imageIndex, Fence: sync.fence, Acquired: sync.imageAvailable, RenderDone: sync.renderFinished}, nil
}

// Submit submits cmd to the graphics queue, waiting on the frame's
// acquire semaphore and signaling its render-done semaphore and fence.
func (d *Device) Submit(fc FrameContext, cmd vk.CommandBuffer, waitStage vk.PipelineStageFlags) error {
	waitSemaphores := []vk.Semaphore{fc.Acquired}
	waitStages := []vk.PipelineStageFlags{waitStage}
	signalSemaphores := []vk.Semaphore{fc.RenderDone}
	cmds := []vk.CommandBuffer{cmd}

	info := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waitSemaphores)),
		PWaitSemaphores:      waitSemaphores,
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   uint32(len(cmds)),
		PCommandBuffers:      cmds,
		SignalSemaphoreCount: uint32(len(signalSemaphores)),
		PSignalSemaphores:    signalSemaphores,
	}
	ret := vk.QueueSubmit(d.Graphics.Handle, 1, []vk.SubmitInfo{info}, fc.Fence)
	if ret != vk.Success {
		return vkerr.Result(ret)
	}
	return nil
}

// Present presents fc's acquired image and advances to the next frame
// slot modulo kMaxFramesInFlight. A vk.ErrorOutOfDate or Suboptimal
// result is surfaced the same way AcquireNextImage's is.
func (d *Device) Present(fc FrameContext) error {
	swapchains := []vk.Swapchain{d.Swapchain.Handle}
	images := []uint32{fc.ImageIndex}
	waitSemaphores := []vk.Semaphore{fc.RenderDone}

	ret := vk.QueuePresent(d.Graphics.Handle, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(waitSemaphores)),
		PWaitSemaphores:    waitSemaphores,
		SwapchainCount:     uint32(len(swapchains)),
		PSwapchains:        swapchains,
		PImageIndices:      images,
	})
	d.currentFrame = (d.currentFrame + 1) % config.MaxFramesInFlight
	if ret == vk.ErrorOutOfDate || ret == vk.Suboptimal {
		return errSwapchainOutOfDate
	}
	if ret != vk.Success {
		return vkerr.Result(ret)
	}
	return nil
}

var errSwapchainOutOfDate = vkSwapchainOutOfDateError{}

type vkSwapchainOutOfDateError struct{}

func (vkSwapchainOutOfDateError) Error() string { return "device: swapchain out of date" }

// IsOutOfDate reports whether err is the recoverable out-of-date/resize
// condition BeginFrame/Present surface, as opposed to a fatal error.
func IsOutOfDate(err error) bool {
	_, ok := err.(vkSwapchainOutOfDateError)
	return ok
}
