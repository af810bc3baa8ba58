package device

import vk "github.com/vulkan-go/vulkan"

// Allocator finds a memory type index satisfying a type filter and
// property mask, per the teacher's util.go memory-type search loop.
// The resource package's Buffer/Image/AccelerationStructure
// constructors go through this rather than duplicating the search.
type Allocator interface {
	FindMemoryType(typeFilter uint32, properties vk.MemoryPropertyFlags) (uint32, error)
}

type naiveAllocator struct {
	dev   vk.Device
	props vk.PhysicalDeviceMemoryProperties
}

func newNaiveAllocator(dev vk.Device, props vk.PhysicalDeviceMemoryProperties) Allocator {
	return &naiveAllocator{dev: dev, props: props}
}

func (a *naiveAllocator) FindMemoryType(typeFilter uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < a.props.MemoryTypeCount; i++ {
		mt := a.props.MemoryTypes[i]
		mt.Deref()
		if typeFilter&(1<<i) != 0 && mt.PropertyFlags&properties == properties {
			return i, nil
		}
	}
	return 0, errNoMemoryType
}

// Allocator exposes the device's allocator to other packages (resource,
// upload) that need to size and bind memory for buffers/images/AS
// without reaching into Device's unexported fields.
func (d *Device) Allocator() Allocator { return d.allocator }

// Handle accessors used by resource/upload/scene/pathtrace, which all
// operate one layer above raw vk.Device calls.
func (d *Device) Logical() vk.Device        { return d.Handle }
func (d *Device) PhysicalHandle() vk.PhysicalDevice { return d.Physical }
