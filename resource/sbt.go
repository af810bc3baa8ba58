package resource

import (
	vk "github.com/vulkan-go/vulkan"
)

// ShaderBindingTable lays out ray-gen/miss/hit-group shader handles in
// one buffer with the alignment the device reports, per spec.md §4.2:
// each region is padded to groupBaseAlignment and each entry within a
// region to groupHandleAlignment.
type ShaderBindingTable struct {
	Buffer *Buffer

	RayGen   vk.StridedDeviceAddressRegionKHR
	Miss     vk.StridedDeviceAddressRegionKHR
	HitGroup vk.StridedDeviceAddressRegionKHR
	Callable vk.StridedDeviceAddressRegionKHR
}

// RayTracingProperties is the subset of
// VkPhysicalDeviceRayTracingPipelinePropertiesKHR the SBT layout needs.
type RayTracingProperties struct {
	ShaderGroupHandleSize      uint32
	ShaderGroupBaseAlignment   uint32
	ShaderGroupHandleAlignment uint32
}

func alignUp(v, a uint32) uint32 {
	return (v + a - 1) / a * a
}

// BuildShaderBindingTable packs group handles (queried by the caller
// via vkGetRayTracingShaderGroupHandlesKHR, in pipeline group-index
// order: [raygen][misses...][hitgroups...][callables...]) into a single
// buffer with four regions. nMiss/nHit/nCallable say how many
// consecutive groups after the single ray-gen group belong to each region.
func BuildShaderBindingTable(dev vk.Device, alloc MemoryAllocator, props RayTracingProperties, handles []byte, nMiss, nHit, nCallable int) (*ShaderBindingTable, error) {
	handleSize := props.ShaderGroupHandleSize
	baseAlign := props.ShaderGroupBaseAlignment
	handleAlign := props.ShaderGroupHandleAlignment
	alignedHandleSize := alignUp(handleSize, handleAlign)

	rayGenStride := alignUp(alignedHandleSize, baseAlign)
	missStride := alignedHandleSize
	hitStride := alignedHandleSize
	callableStride := alignedHandleSize

	rayGenSize := alignUp(rayGenStride, baseAlign)
	missSize := alignUp(missStride*uint32(max(nMiss, 1)), baseAlign)
	hitSize := alignUp(hitStride*uint32(max(nHit, 1)), baseAlign)
	callableSize := uint32(0)
	if nCallable > 0 {
		callableSize = alignUp(callableStride*uint32(nCallable), baseAlign)
	}

	totalSize := vk.DeviceSize(rayGenSize + missSize + hitSize + callableSize)

	usage := vk.BufferUsageFlags(vk.BufferUsageShaderBindingTableBitKhr) | vk.BufferUsageFlags(vk.BufferUsageShaderDeviceAddressBit)
	buf, err := NewBuffer(dev, alloc, totalSize, usage,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}

	data, err := buf.Map()
	if err != nil {
		buf.Destroy()
		return nil, err
	}
	defer buf.Unmap()

	dst := ptrToBytes(data, int(totalSize))
	groupIndex := 0
	copyHandle := func(offset uint32) {
		copy(dst[offset:offset+handleSize], handles[groupIndex*int(handleSize):(groupIndex+1)*int(handleSize)])
		groupIndex++
	}

	copyHandle(0) // ray-gen, single group

	off := rayGenSize
	for i := 0; i < nMiss; i++ {
		copyHandle(off + uint32(i)*missStride)
	}
	off += missSize
	for i := 0; i < nHit; i++ {
		copyHandle(off + uint32(i)*hitStride)
	}
	off += hitSize
	for i := 0; i < nCallable; i++ {
		copyHandle(off + uint32(i)*callableStride)
	}

	base := buf.DeviceAddress(dev)
	sbt := &ShaderBindingTable{
		Buffer: buf,
		RayGen: vk.StridedDeviceAddressRegionKHR{
			DeviceAddress: base,
			Stride:        vk.DeviceSize(rayGenStride),
			Size:          vk.DeviceSize(rayGenSize),
		},
		Miss: vk.StridedDeviceAddressRegionKHR{
			DeviceAddress: base + vk.DeviceAddress(rayGenSize),
			Stride:        vk.DeviceSize(missStride),
			Size:          vk.DeviceSize(missSize),
		},
		HitGroup: vk.StridedDeviceAddressRegionKHR{
			DeviceAddress: base + vk.DeviceAddress(rayGenSize+missSize),
			Stride:        vk.DeviceSize(hitStride),
			Size:          vk.DeviceSize(hitSize),
		},
	}
	if nCallable > 0 {
		sbt.Callable = vk.StridedDeviceAddressRegionKHR{
			DeviceAddress: base + vk.DeviceAddress(rayGenSize+missSize+hitSize),
			Stride:        vk.DeviceSize(callableStride),
			Size:          vk.DeviceSize(callableSize),
		}
	}
	return sbt, nil
}

func (s *ShaderBindingTable) Destroy() {
	if s.Buffer != nil {
		s.Buffer.Destroy()
	}
}
