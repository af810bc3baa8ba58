package resource

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/dieselpt/internal/vkerr"
)

// Image is a device image, its memory, and a default full-range view.
// Grounded on the teacher's image.go, generalized to cover the
// pathtrace package's storage images (R32G32B32A32_SFLOAT accumulation,
// R8G8B8A8_UNORM tone-mapped output) in addition to the teacher's
// sampled/color-attachment uses.
type Image struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Format vk.Format
	Extent vk.Extent3D
	Layout vk.ImageLayout
	dev    vk.Device
}

// ImageDesc describes an image to create.
type ImageDesc struct {
	Width, Height uint32
	Format        vk.Format
	Usage         vk.ImageUsageFlags
	Aspect        vk.ImageAspectFlags
}

// NewImage creates a 2D, single-mip, single-layer image with device-local
// memory and a matching image view.
func NewImage(dev vk.Device, alloc MemoryAllocator, desc ImageDesc) (*Image, error) {
	extent := vk.Extent3D{Width: desc.Width, Height: desc.Height, Depth: 1}
	info := vk.ImageCreateInfo{
		SType:       vk.StructureTypeImageCreateInfo,
		ImageType:   vk.ImageType2d,
		Format:      desc.Format,
		Extent:      extent,
		MipLevels:   1,
		ArrayLayers: 1,
		Samples:     vk.SampleCount1Bit,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       desc.Usage,
		SharingMode: vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var handle vk.Image
	if ret := vk.CreateImage(dev, &info, nil, &handle); ret != vk.Success {
		return nil, vkerr.Result(ret)
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(dev, handle, &req)
	req.Deref()

	typeIndex, err := alloc.FindMemoryType(req.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyImage(dev, handle, nil)
		return nil, err
	}

	var mem vk.DeviceMemory
	if ret := vk.AllocateMemory(dev, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIndex,
	}, nil, &mem); ret != vk.Success {
		vk.DestroyImage(dev, handle, nil)
		return nil, vkerr.Result(ret)
	}
	if ret := vk.BindImageMemory(dev, handle, mem, 0); ret != vk.Success {
		vk.FreeMemory(dev, mem, nil)
		vk.DestroyImage(dev, handle, nil)
		return nil, vkerr.Result(ret)
	}

	aspect := desc.Aspect
	if aspect == 0 {
		aspect = vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}

	var view vk.ImageView
	if ret := vk.CreateImageView(dev, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    handle,
		ViewType: vk.ImageViewType2d,
		Format:   desc.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}, nil, &view); ret != vk.Success {
		vk.FreeMemory(dev, mem, nil)
		vk.DestroyImage(dev, handle, nil)
		return nil, vkerr.Result(ret)
	}

	return &Image{Handle: handle, Memory: mem, View: view, Format: desc.Format, Extent: extent, Layout: vk.ImageLayoutUndefined, dev: dev}, nil
}

// Destroy frees the image's view, memory, and handle.
func (img *Image) Destroy() {
	if img.View != vk.NullImageView {
		vk.DestroyImageView(img.dev, img.View, nil)
	}
	if img.Handle != vk.NullImage {
		vk.DestroyImage(img.dev, img.Handle, nil)
	}
	if img.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(img.dev, img.Memory, nil)
	}
}

// TransitionBarrier returns a full-subresource image memory barrier
// moving img from its tracked Layout to newLayout, and updates Layout.
// Callers insert the barrier into a vkCmdPipelineBarrier call; this
// method does not record commands itself, matching the teacher's
// preference for thin wrappers around create/destroy rather than
// command-recording helpers baked into the resource type.
func (img *Image) TransitionBarrier(newLayout vk.ImageLayout, srcAccess, dstAccess vk.AccessFlags, aspect vk.ImageAspectFlags) vk.ImageMemoryBarrier {
	b := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           img.Layout,
		NewLayout:           newLayout,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	img.Layout = newLayout
	return b
}

// Sampler wraps a basic trilinear/anisotropic sampler, grounded on the
// teacher's image.go sampler-creation block (the teacher never split
// Sampler out of Image; this does, since the scene package's texture
// table needs samplers independent of any one image).
type Sampler struct {
	Handle vk.Sampler
	dev    vk.Device
}

func NewSampler(dev vk.Device, anisotropy float32) (*Sampler, error) {
	info := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        boolToVk(anisotropy > 1),
		MaxAnisotropy:           anisotropy,
		MaxLod:                  vk.LodClampNone,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
	}
	var s vk.Sampler
	if ret := vk.CreateSampler(dev, &info, nil, &s); ret != vk.Success {
		return nil, vkerr.Result(ret)
	}
	return &Sampler{Handle: s, dev: dev}, nil
}

func (s *Sampler) Destroy() {
	if s.Handle != vk.NullSampler {
		vk.DestroySampler(s.dev, s.Handle, nil)
	}
}

func boolToVk(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}
