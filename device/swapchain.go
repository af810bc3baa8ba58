package device

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/dieselpt/internal/vkerr"
)

// Swapchain wraps the presentable image chain and its views. Grounded
// on the teacher's swapchain.go (CoreSwapchain), extended with the
// ImageLayout bookkeeping the pathtrace package needs to transition
// swapchain images for the tone-map/copy pass (spec.md §4.8).
type Swapchain struct {
	Handle      vk.Swapchain
	Format      vk.Format
	ColorSpace  vk.ColorSpace
	Extent      vk.Extent2D
	Images      []vk.Image
	Views       []vk.ImageView
	Layouts     []vk.ImageLayout
	surface     vk.Surface
	presentMode vk.PresentMode
}

// newSwapchain creates (or recreates, if old != nil) the swapchain for
// the given framebuffer size. Recreation passes the retiring swapchain
// as oldSwapchain per the Vulkan spec so the implementation can reuse
// internal resources; the caller is responsible for queuing the old
// handle's views/swapchain for deferred destruction once in-flight
// frames referencing it have retired (spec.md §4.1 deletion queue).
func newSwapchain(d *Device, width, height uint32, old *Swapchain) (*Swapchain, error) {
	var caps vk.SurfaceCapabilities
	if ret := vk.GetPhysicalDeviceSurfaceCapabilities(d.Physical, d.surfaceKH, &caps); ret != vk.Success {
		return nil, vkerr.Result(ret)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()

	extent := vk.Extent2D{Width: width, Height: height}
	if caps.CurrentExtent.Width != 0xFFFFFFFF {
		extent = caps.CurrentExtent
	}

	format, colorSpace := pickSurfaceFormat(d.Physical, d.surfaceKH)
	presentMode := pickPresentMode(d.Physical, d.surfaceKH)

	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          d.surfaceKH,
		MinImageCount:    imageCount,
		ImageFormat:      format,
		ImageColorSpace:  colorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit) | vk.ImageUsageFlags(vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
	}
	if old != nil {
		info.OldSwapchain = old.Handle
	}

	sc := &Swapchain{Format: format, ColorSpace: colorSpace, Extent: extent, surface: d.surfaceKH, presentMode: presentMode}
	if ret := vk.CreateSwapchain(d.Handle, &info, nil, &sc.Handle); ret != vk.Success {
		return nil, vkerr.Result(ret)
	}

	var count uint32
	vk.GetSwapchainImages(d.Handle, sc.Handle, &count, nil)
	sc.Images = make([]vk.Image, count)
	vk.GetSwapchainImages(d.Handle, sc.Handle, &count, sc.Images)
	sc.Layouts = make([]vk.ImageLayout, count)
	for i := range sc.Layouts {
		sc.Layouts[i] = vk.ImageLayoutUndefined
	}

	sc.Views = make([]vk.ImageView, count)
	for i, img := range sc.Images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		if ret := vk.CreateImageView(d.Handle, &viewInfo, nil, &sc.Views[i]); ret != vk.Success {
			return nil, vkerr.Result(ret)
		}
	}
	return sc, nil
}

func pickSurfaceFormat(pd vk.PhysicalDevice, surf vk.Surface) (vk.Format, vk.ColorSpace) {
	var count uint32
	vk.GetPhysicalDeviceSurfaceFormats(pd, surf, &count, nil)
	formats := make([]vk.SurfaceFormat, count)
	vk.GetPhysicalDeviceSurfaceFormats(pd, surf, &count, formats)
	for i := range formats {
		formats[i].Deref()
		if formats[i].Format == vk.FormatB8g8r8a8Unorm {
			return formats[i].Format, formats[i].ColorSpace
		}
	}
	if len(formats) > 0 {
		return formats[0].Format, formats[0].ColorSpace
	}
	return vk.FormatB8g8r8a8Unorm, vk.ColorspaceSrgbNonlinear
}

func pickPresentMode(pd vk.PhysicalDevice, surf vk.Surface) vk.PresentMode {
	var count uint32
	vk.GetPhysicalDeviceSurfacePresentModes(pd, surf, &count, nil)
	modes := make([]vk.PresentMode, count)
	vk.GetPhysicalDeviceSurfacePresentModes(pd, surf, &count, modes)
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

// Recreate rebuilds the swapchain in place (window resize, or a
// vk.ErrorOutOfDate/SuboptimalKhr result from AcquireNextImage or
// QueuePresent). The retiring handle and views are queued for deferred
// destruction rather than destroyed immediately, since in-flight frames
// may still reference them (spec.md §4.1's deletion-queue discipline).
func (d *Device) Recreate(width, height uint32) error {
	old := d.Swapchain
	next, err := newSwapchain(d, width, height, old)
	if err != nil {
		return err
	}
	d.Swapchain = next
	d.queueSwapchainDeletion(old)
	return nil
}

func (d *Device) queueSwapchainDeletion(old *Swapchain) {
	if old == nil {
		return
	}
	views := old.Views
	handle := old.Handle
	dev := d.Handle
	d.QueueDeletion(func() {
		for _, v := range views {
			vk.DestroyImageView(dev, v, nil)
		}
		vk.DestroySwapchain(dev, handle, nil)
	})
}
