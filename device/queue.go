package device

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/dieselpt/internal/vkerr"
)

// queueFamilyFlags is the subset of vk.QueueFamilyProperties pickQueueFamilies
// needs, extracted so the selection logic can be unit tested without a
// real vk.PhysicalDevice.
type queueFamilyFlags struct {
	Graphics, Compute, Transfer bool
}

func queryQueueFamilies(pd vk.PhysicalDevice) []queueFamilyFlags {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, props)
	out := make([]queueFamilyFlags, count)
	for i := range props {
		props[i].Deref()
		flags := vk.QueueFlags(props[i].QueueFlags)
		out[i] = queueFamilyFlags{
			Graphics: flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0,
			Compute:  flags&vk.QueueFlags(vk.QueueComputeBit) != 0,
			Transfer: flags&vk.QueueFlags(vk.QueueTransferBit) != 0,
		}
	}
	return out
}

// pickQueueFamilies implements the spec.md §4.1 OPEN QUESTION decision:
// prefer a dedicated transfer family (graphics|compute bits clear) over
// aliasing the graphics family, and only alias graphics-for-transfer as
// a last resort when the device exposes no queue family dedicated to
// transfer. Compute prefers a dedicated async-compute family over
// reusing graphics, same rule. Pure function of props so it is directly
// unit-testable; at runtime queryQueueFamilies supplies props from the
// vk.PhysicalDevice.
func pickQueueFamilies(props []queueFamilyFlags, hasPresent func(family uint32) bool) (graphics, compute, transfer uint32, err error) {
	count := uint32(len(props))
	graphicsFound, computeFound, transferFound := false, false, false

	for i := uint32(0); i < count; i++ {
		if !graphicsFound && props[i].Graphics && hasPresent(i) {
			graphics, graphicsFound = i, true
		}
	}
	if !graphicsFound {
		return 0, 0, 0, errNoQueueFamily
	}

	// Dedicated compute: has compute, lacks graphics.
	for i := uint32(0); i < count; i++ {
		if props[i].Compute && !props[i].Graphics {
			compute, computeFound = i, true
			break
		}
	}
	if !computeFound {
		compute = graphics
	}

	// Dedicated transfer: has transfer, lacks both graphics and compute.
	// Only fall back to aliasing the graphics family if nothing qualifies.
	for i := uint32(0); i < count; i++ {
		if props[i].Transfer && !props[i].Graphics && !props[i].Compute {
			transfer, transferFound = i, true
			break
		}
	}
	if !transferFound {
		transfer = graphics
	}

	return graphics, compute, transfer, nil
}

func (d *Device) createLogicalDeviceAndQueues() {
	hasPresent := func(family uint32) bool {
		var supported vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(d.Physical, family, d.surfaceKH, &supported)
		return supported.B()
	}

	gFam, cFam, tFam, err := pickQueueFamilies(queryQueueFamilies(d.Physical), hasPresent)
	vkerr.Fatal(d.log, err)

	unique := map[uint32]bool{gFam: true, cFam: true, tFam: true}
	priority := float32(1.0)
	var queueInfos []vk.DeviceQueueCreateInfo
	for fam := range unique {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: fam,
			QueueCount:       1,
			PQueuePriorities: []float32{priority},
		})
	}

	extensions := safeStrings(RequiredExtensions)

	// Ray tracing and acceleration structure feature chains, per
	// spec.md §4.1/§4.2 — these are the device-level "must be enabled"
	// features the teacher's context.go never needed because it had no
	// raytracing surface at all.
	bufferAddr := vk.PhysicalDeviceBufferDeviceAddressFeatures{
		SType:               vk.StructureTypePhysicalDeviceBufferDeviceAddressFeatures,
		BufferDeviceAddress: vk.True,
	}
	accelFeatures := vk.PhysicalDeviceAccelerationStructureFeaturesKHR{
		SType:                 vk.StructureTypePhysicalDeviceAccelerationStructureFeaturesKhr,
		AccelerationStructure: vk.True,
		PNext:                 unsafePointer(unsafe.Pointer(&bufferAddr)),
	}
	rtPipelineFeatures := vk.PhysicalDeviceRayTracingPipelineFeaturesKHR{
		SType:              vk.StructureTypePhysicalDeviceRayTracingPipelineFeaturesKhr,
		RayTracingPipeline: vk.True,
		PNext:              unsafePointer(unsafe.Pointer(&accelFeatures)),
	}

	var enabled vk.PhysicalDeviceFeatures
	ret := vk.CreateDevice(d.Physical, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		PEnabledFeatures:        &enabled,
		PNext:                   unsafePointer(unsafe.Pointer(&rtPipelineFeatures)),
	}, nil, &d.Handle)
	vkerr.Fatal(d.log, vkerr.Result(ret))
	vk.InitDevice(d.Handle)

	d.Graphics = takeQueue(d.Handle, gFam)
	d.Compute = takeQueue(d.Handle, cFam)
	d.Transfer = takeQueue(d.Handle, tFam)
}

func takeQueue(dev vk.Device, family uint32) Queue {
	var q vk.Queue
	vk.GetDeviceQueue(dev, family, 0, &q)
	return Queue{Handle: q, Family: family, Valid: true}
}
