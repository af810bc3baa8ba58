// Package resource implements spec.md §4.2: GPU-side objects — buffers,
// images, samplers, pipelines, descriptor sets, acceleration structures,
// and the ray-tracing shader binding table. Grounded on the teacher's
// buffers.go (CoreBuffer) and image.go, generalized from the teacher's
// fixed-purpose uniform buffer into a general-purpose Buffer usable for
// vertex/index/staging/scratch/AS-storage/SBT roles.
package resource

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/dieselpt/internal/vkerr"
)

// MemoryAllocator is the subset of device.Device's allocator the
// resource package needs, kept as an interface so resource doesn't
// import device (device already imports nothing from resource, so this
// also avoids a potential cycle if that ever changes).
type MemoryAllocator interface {
	FindMemoryType(typeFilter uint32, properties vk.MemoryPropertyFlags) (uint32, error)
}

// Buffer is a device buffer plus its backing memory. Grounded on
// buffers.go's CoreBuffer, generalized to a single (not per-frame-array)
// buffer — callers needing N frames' worth allocate N Buffers, matching
// how the teacher's swapchain-count-sized slices are used elsewhere.
type Buffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	Usage  vk.BufferUsageFlags
	dev    vk.Device
	mapped unsafe.Pointer
}

// NewBuffer allocates a buffer of size bytes with the given usage and
// memory property flags (host-visible+coherent for staging/uniform,
// device-local for everything the GPU alone touches).
func NewBuffer(dev vk.Device, alloc MemoryAllocator, size vk.DeviceSize, usage vk.BufferUsageFlags, props vk.MemoryPropertyFlags) (*Buffer, error) {
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if ret := vk.CreateBuffer(dev, &info, nil, &handle); ret != vk.Success {
		return nil, vkerr.Result(ret)
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(dev, handle, &req)
	req.Deref()

	typeIndex, err := alloc.FindMemoryType(req.MemoryTypeBits, props)
	if err != nil {
		vk.DestroyBuffer(dev, handle, nil)
		return nil, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIndex,
	}
	var addressFlags vk.MemoryAllocateFlagsInfo
	if usage&vk.BufferUsageFlags(vk.BufferUsageShaderDeviceAddressBit) != 0 {
		addressFlags = vk.MemoryAllocateFlagsInfo{
			SType: vk.StructureTypeMemoryAllocateFlagsInfo,
			Flags: vk.MemoryAllocateFlags(vk.MemoryAllocateDeviceAddressBit),
		}
		allocInfo.PNext = unsafe.Pointer(&addressFlags)
	}

	var mem vk.DeviceMemory
	if ret := vk.AllocateMemory(dev, &allocInfo, nil, &mem); ret != vk.Success {
		vk.DestroyBuffer(dev, handle, nil)
		return nil, vkerr.Result(ret)
	}
	if ret := vk.BindBufferMemory(dev, handle, mem, 0); ret != vk.Success {
		vk.FreeMemory(dev, mem, nil)
		vk.DestroyBuffer(dev, handle, nil)
		return nil, vkerr.Result(ret)
	}

	return &Buffer{Handle: handle, Memory: mem, Size: size, Usage: usage, dev: dev}, nil
}

// Destroy frees the buffer's memory and handle. Callers in the
// device-frame path should route this through Device.QueueDeletion
// instead of calling it directly, per spec.md §4.1.
func (b *Buffer) Destroy() {
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(b.dev, b.Handle, nil)
	}
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(b.dev, b.Memory, nil)
	}
}

// Map maps the buffer's full extent for CPU writes (host-visible
// buffers only — staging, upload ring, readback). Grounded on
// buffers.go's MapMemory, generalized to return the pointer rather than
// writing through an out-param.
func (b *Buffer) Map() (unsafe.Pointer, error) {
	var data unsafe.Pointer
	ret := vk.MapMemory(b.dev, b.Memory, 0, b.Size, 0, &data)
	if ret != vk.Success {
		return nil, vkerr.Result(ret)
	}
	b.mapped = data
	return data, nil
}

// Unmap releases a prior Map.
func (b *Buffer) Unmap() {
	if b.mapped != nil {
		vk.UnmapMemory(b.dev, b.Memory)
		b.mapped = nil
	}
}

// DeviceAddress queries the buffer's GPU-visible address, needed for
// acceleration-structure geometry data and the shader binding table's
// strided address regions (spec.md §4.2).
func (b *Buffer) DeviceAddress(dev vk.Device) vk.DeviceAddress {
	info := vk.BufferDeviceAddressInfo{
		SType:  vk.StructureTypeBufferDeviceAddressInfo,
		Buffer: b.Handle,
	}
	return vk.GetBufferDeviceAddress(dev, &info)
}
