package resource

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/dieselpt/internal/vkerr"
)

// AccelerationStructure wraps a BLAS or TLAS, its backing buffer, and
// the device address callers need to reference it (TLAS instance
// records reference BLAS addresses; the ray-tracing descriptor set
// references the TLAS itself). Grounded on spec.md §4.2/§4.7; the
// teacher's repo has no raytracing surface at all, so this has no
// direct teacher ancestor beyond the Buffer-allocation pattern it reuses.
type AccelerationStructure struct {
	Handle vk.AccelerationStructureKHR
	Buffer *Buffer
	dev    vk.Device
}

// AccelDesc describes the geometry to build, standardized on the newer
// vk.AccelerationStructureGeometryKHR/MaxPrimitiveCounts shape per
// SPEC_FULL.md's Open Question decision (rather than also supporting
// the older flat-array Desc shape Vulkan-raytracing code bases carried
// during the extension's provisional period).
type AccelDesc struct {
	Type               vk.AccelerationStructureTypeKHR
	Geometries         []vk.AccelerationStructureGeometryKHR
	MaxPrimitiveCounts []uint32
	Flags              vk.BuildAccelerationStructureFlagsKHR
}

// SizeInfo reports the buffer/scratch sizes a build with desc will
// need, from vkGetAccelerationStructureBuildSizesKHR.
type SizeInfo struct {
	AccelerationStructureSize vk.DeviceSize
	BuildScratchSize          vk.DeviceSize
	UpdateScratchSize         vk.DeviceSize
}

// QuerySize asks the implementation how large the AS and scratch
// buffers for desc need to be, before any buffer is allocated.
func QuerySize(dev vk.Device, desc AccelDesc) SizeInfo {
	buildInfo := vk.AccelerationStructureBuildGeometryInfoKHR{
		SType:         vk.StructureTypeAccelerationStructureBuildGeometryInfoKhr,
		Type:          desc.Type,
		Flags:         desc.Flags,
		Mode:          vk.BuildAccelerationStructureModeBuildKhr,
		GeometryCount: uint32(len(desc.Geometries)),
		PGeometries:   desc.Geometries,
	}
	var sizeInfo vk.AccelerationStructureBuildSizesInfoKHR
	sizeInfo.SType = vk.StructureTypeAccelerationStructureBuildSizesInfoKhr
	vk.GetAccelerationStructureBuildSizesKHR(dev, vk.AccelerationStructureBuildTypeDeviceKhr,
		&buildInfo, desc.MaxPrimitiveCounts, &sizeInfo)
	sizeInfo.Deref()
	return SizeInfo{
		AccelerationStructureSize: sizeInfo.AccelerationStructureSize,
		BuildScratchSize:          sizeInfo.BuildScratchSize,
		UpdateScratchSize:         sizeInfo.UpdateScratchSize,
	}
}

// NewAccelerationStructure allocates the AS backing buffer (sized per
// QuerySize) and creates the handle; the caller is responsible for
// recording vkCmdBuildAccelerationStructuresKHR with a scratch buffer
// of at least sizes.BuildScratchSize (the upload package shares one
// scratch buffer across a batch of builds, per spec.md §4.3).
func NewAccelerationStructure(dev vk.Device, alloc MemoryAllocator, desc AccelDesc, sizes SizeInfo) (*AccelerationStructure, error) {
	buf, err := NewBuffer(dev, alloc, sizes.AccelerationStructureSize,
		vk.BufferUsageFlags(vk.BufferUsageAccelerationStructureStorageBitKhr)|vk.BufferUsageFlags(vk.BufferUsageShaderDeviceAddressBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}

	createInfo := vk.AccelerationStructureCreateInfoKHR{
		SType:  vk.StructureTypeAccelerationStructureCreateInfoKhr,
		Buffer: buf.Handle,
		Size:   sizes.AccelerationStructureSize,
		Type:   desc.Type,
	}
	var handle vk.AccelerationStructureKHR
	if ret := vk.CreateAccelerationStructure(dev, &createInfo, nil, &handle); ret != vk.Success {
		buf.Destroy()
		return nil, vkerr.Result(ret)
	}
	return &AccelerationStructure{Handle: handle, Buffer: buf, dev: dev}, nil
}

func (a *AccelerationStructure) Destroy() {
	if a.Handle != vk.NullAccelerationStructureKHR {
		vk.DestroyAccelerationStructure(a.dev, a.Handle, nil)
	}
	if a.Buffer != nil {
		a.Buffer.Destroy()
	}
}

// DeviceAddress returns the AS's GPU address, used by TLAS instance
// records to reference their BLAS.
func (a *AccelerationStructure) DeviceAddress() vk.DeviceAddress {
	info := vk.AccelerationStructureDeviceAddressInfoKHR{
		SType:                 vk.StructureTypeAccelerationStructureDeviceAddressInfoKhr,
		AccelerationStructure: a.Handle,
	}
	return vk.GetAccelerationStructureDeviceAddress(a.dev, &info)
}

// BuildGeometryInfo assembles the build-geometry-info struct a caller
// passes to vkCmdBuildAccelerationStructuresKHR, pointing Dst at this
// AS and ScratchData at the given scratch buffer address.
func (a *AccelerationStructure) BuildGeometryInfo(desc AccelDesc, scratchAddr vk.DeviceAddress) vk.AccelerationStructureBuildGeometryInfoKHR {
	return vk.AccelerationStructureBuildGeometryInfoKHR{
		SType:         vk.StructureTypeAccelerationStructureBuildGeometryInfoKhr,
		Type:          desc.Type,
		Flags:         desc.Flags,
		Mode:          vk.BuildAccelerationStructureModeBuildKhr,
		DstAccelerationStructure: a.Handle,
		GeometryCount: uint32(len(desc.Geometries)),
		PGeometries:   desc.Geometries,
		ScratchData:   vk.DeviceOrHostAddressKHR{DeviceAddress: scratchAddr},
	}
}
