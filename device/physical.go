package device

import (
	"strings"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/dieselpt/internal/vkerr"
)

// selectPhysicalDevice scores every enumerated physical device and picks
// the best candidate, rejecting any device missing a RequiredExtensions
// entry. Grounded on the teacher's platform.go NewPlatform device-pick
// loop, generalized from "first discrete GPU wins" to a score by device
// type only: discrete beats integrated, integrated beats virtual, and
// anything else scores lowest (all candidates reaching the score step
// already passed the extension gate, so ray-tracing support is not
// scored separately).
func (d *Device) selectPhysicalDevice() {
	var count uint32
	vkerr.Fatal(d.log, vkerr.Result(vk.EnumeratePhysicalDevices(d.Instance, &count, nil)))
	if count == 0 {
		vkerr.Fatal(d.log, errNoDevices)
	}
	devices := make([]vk.PhysicalDevice, count)
	vkerr.Fatal(d.log, vkerr.Result(vk.EnumeratePhysicalDevices(d.Instance, &count, devices)))

	best := -1
	bestScore := -1
	for i, pd := range devices {
		if !hasRequiredExtensions(pd) {
			continue
		}
		score := scorePhysicalDevice(pd)
		if score > bestScore {
			bestScore, best = score, i
		}
	}
	if best < 0 {
		vkerr.Fatal(d.log, errNoSuitableDevice)
	}

	d.Physical = devices[best]
	vk.GetPhysicalDeviceProperties(d.Physical, &d.PhysicalProps)
	d.PhysicalProps.Deref()
	vk.GetPhysicalDeviceMemoryProperties(d.Physical, &d.MemoryProps)
	d.MemoryProps.Deref()
}

func hasRequiredExtensions(pd vk.PhysicalDevice) bool {
	var count uint32
	vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil)
	props := make([]vk.ExtensionProperties, count)
	vk.EnumerateDeviceExtensionProperties(pd, "", &count, props)

	have := make(map[string]bool, count)
	for i := range props {
		props[i].Deref()
		name := vk.ToString(props[i].ExtensionName[:])
		have[strings.TrimRight(name, "\x00")] = true
	}
	for _, req := range RequiredExtensions {
		if !have[req] {
			return false
		}
	}
	return true
}

// scorePhysicalDevice ranks discrete GPUs above integrated above
// everything else, matching the teacher's NewPlatform preference, which
// spec.md §4.1 keeps unchanged.
func scorePhysicalDevice(pd vk.PhysicalDevice) int {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &props)
	props.Deref()
	switch props.DeviceType {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 100
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 50
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 25
	default:
		return 1
	}
}
