package pathtrace

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"unsafe"

	"github.com/anthonynsimon/bild/clone"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/image/draw"

	"github.com/andewx/dieselpt/internal/vklog"
	"github.com/andewx/dieselpt/resource"
)

// SavePhase is the save-to-disk state machine's current phase, per
// spec.md §9's design note: Idle -> RequestedCopy -> WaitForFence ->
// WritePNG -> Idle. A request made while not Idle is ignored rather
// than queued, matching the single-in-flight-save semantics the note
// describes.
type SavePhase int

const (
	SaveIdle SavePhase = iota
	SaveRequestedCopy
	SaveWaitForFence
	SaveWritePNG
)

// SaveToDisk drives the state machine across frames. Copy is recorded
// in the frame where a request is accepted; Poll is called once per
// frame afterward until Phase reports SaveIdle again.
type SaveToDisk struct {
	phase  SavePhase
	path   string
	fence  vk.Fence
	dev    vk.Device
	buffer *resource.Buffer
	width, height uint32
	// OutputWidth/OutputHeight rescale the captured frame on save when
	// non-zero and different from the capture resolution — the save
	// path and the live display resolution are allowed to diverge
	// (spec.md §9), e.g. saving a render at a fixed export size while
	// the window itself was resized mid-session.
	OutputWidth, OutputHeight uint32
	log                       *vklog.Logger
}

func NewSaveToDisk(dev vk.Device, log *vklog.Logger) *SaveToDisk {
	return &SaveToDisk{dev: dev, log: log, phase: SaveIdle}
}

// Request asks the state machine to capture the next completed
// tone-mapped frame to path. Returns false if a save is already pending
// (Idle is the only phase that accepts a new request).
func (s *SaveToDisk) Request(path string) bool {
	if s.phase != SaveIdle {
		return false
	}
	s.path = path
	s.phase = SaveRequestedCopy
	return true
}

// RecordCopy, called once when phase == SaveRequestedCopy, copies img
// into a host-visible linear readback buffer and advances to
// WaitForFence. fence must be a fence that signals once the copy (and
// everything before it in the same submission) has completed.
func (s *SaveToDisk) RecordCopy(cmd vk.CommandBuffer, alloc resource.MemoryAllocator, img *resource.Image, fence vk.Fence) error {
	if s.phase != SaveRequestedCopy {
		return nil
	}

	size := vk.DeviceSize(img.Extent.Width) * vk.DeviceSize(img.Extent.Height) * 4
	buf, err := resource.NewBuffer(s.dev, alloc, size,
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return err
	}

	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: img.Extent,
	}
	vk.CmdCopyImageToBuffer(cmd, img.Handle, vk.ImageLayoutTransferSrcOptimal, buf.Handle, 1, []vk.BufferImageCopy{region})

	s.buffer = buf
	s.width, s.height = img.Extent.Width, img.Extent.Height
	s.fence = fence
	s.phase = SaveWaitForFence
	return nil
}

// Poll advances WaitForFence -> WritePNG -> Idle. It is safe to call
// every frame regardless of phase; it is a no-op when Idle.
func (s *SaveToDisk) Poll() error {
	switch s.phase {
	case SaveWaitForFence:
		status := vk.GetFenceStatus(s.dev, s.fence)
		if status != vk.Success {
			return nil
		}
		s.phase = SaveWritePNG
		return s.writePNG()
	}
	return nil
}

func (s *SaveToDisk) writePNG() error {
	defer func() {
		if s.buffer != nil {
			s.buffer.Destroy()
			s.buffer = nil
		}
		s.phase = SaveIdle
	}()

	data, err := s.buffer.Map()
	if err != nil {
		return err
	}
	defer s.buffer.Unmap()

	pixels := unsafe.Slice((*byte)(data), int(s.width)*int(s.height)*4)
	img := &image.RGBA{
		Pix:    pixels,
		Stride: int(s.width) * 4,
		Rect:   image.Rect(0, 0, int(s.width), int(s.height)),
	}
	// clone.Clone takes a private copy before the backing staging
	// buffer is unmapped/destroyed by the deferred cleanup above.
	snapshot := clone.Clone(img)

	var out image.Image = snapshot
	if s.OutputWidth != 0 && s.OutputHeight != 0 && (s.OutputWidth != s.width || s.OutputHeight != s.height) {
		resized := image.NewRGBA(image.Rect(0, 0, int(s.OutputWidth), int(s.OutputHeight)))
		draw.CatmullRom.Scale(resized, resized.Bounds(), snapshot, snapshot.Bounds(), draw.Over, nil)
		out = resized
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("pathtrace: create %s: %w", s.path, err)
	}
	defer f.Close()

	if err := png.Encode(f, out); err != nil {
		return fmt.Errorf("pathtrace: encode %s: %w", s.path, err)
	}
	s.log.Info("pathtrace: saved frame to %s", s.path)
	return nil
}

// Phase reports the state machine's current phase, for tests and UI.
func (s *SaveToDisk) Phase() SavePhase { return s.phase }
