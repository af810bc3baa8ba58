// Package device implements spec.md §4.1: instance/physical-device
// selection, logical device and queues, swapchain lifecycle, per-thread
// command pools, and the deferred-deletion queue. Grounded on the
// teacher's core.go/instance.go (CoreRenderInstance, CoreDevice) and
// platform.go (NewPlatform's physical-device and queue-family scoring),
// rewired onto the raytracing-capable extension set spec.md §4.1 requires.
package device

import (
	"fmt"
	"sync/atomic"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/dieselpt/config"
	"github.com/andewx/dieselpt/internal/vkerr"
	"github.com/andewx/dieselpt/internal/vklog"
)

// RequiredExtensions is the device extension set spec.md §4.1 says any
// candidate physical device must report, or be rejected outright.
var RequiredExtensions = []string{
	"VK_KHR_swapchain",
	"VK_KHR_ray_tracing_pipeline",
	"VK_KHR_acceleration_structure",
	"VK_KHR_deferred_host_operations",
	"VK_KHR_buffer_device_address",
	"VK_EXT_descriptor_indexing",
	"VK_KHR_spirv_1_4",
}

// Surface is implemented by the external window/WSI collaborator
// (spec.md §1's "out of scope: window/input plumbing"). The device
// package only needs a vk.Surface handle and a resize notification.
type Surface interface {
	VulkanSurface(instance vk.Instance) (vk.Surface, error)
	FramebufferSize() (width, height uint32)
}

// Device owns the instance, physical device, logical device, the three
// logical queues, surface, swapchain, the bounded in-flight-fence set,
// an allocator handle, and the per-thread command pool trios. It holds
// no depth image and no swapchain render pass.
type Device struct {
	log *vklog.Logger
	cfg config.Config

	Instance       vk.Instance
	Physical       vk.PhysicalDevice
	PhysicalProps  vk.PhysicalDeviceProperties
	MemoryProps    vk.PhysicalDeviceMemoryProperties
	Handle         vk.Device

	Graphics Queue
	Compute  Queue
	Transfer Queue

	surface   Surface
	surfaceKH vk.Surface

	Swapchain *Swapchain

	allocator Allocator

	frames       [config.MaxFramesInFlight]frameSync
	threadPools  [config.MaxCommandThreads][config.MaxFramesInFlight]commandPoolTrio
	threadSlots  int32 // atomically bumped by AcquireThreadSlot
	currentFrame int

	deletion deletionQueue
}

// Queue pairs a vk.Queue with the family index it was taken from and
// whether it was obtained.
type Queue struct {
	Handle vk.Queue
	Family uint32
	Valid  bool
}

// frameSync is the per-slot fence/semaphore set spec.md §4.1's frame
// lifecycle waits on and signals.
type frameSync struct {
	fence           vk.Fence
	imageAvailable  vk.Semaphore
	renderFinished  vk.Semaphore
}

// Open creates the instance, selects a physical device, creates the
// logical device and queues, and brings up the swapchain. Creation
// failures here are the §7 "fatal construction" kind: this function
// calls vkerr.Fatal rather than returning an error for instance/device
// creation, matching the teacher's core.go (which os.Exit(1)s on the
// same failures). Recoverable kinds (surface loss, swapchain
// out-of-date) are handled later, per-frame, not here.
func Open(cfg config.Config, surf Surface, log *vklog.Logger, appName string, debug bool) *Device {
	d := &Device{log: log, cfg: cfg, surface: surf}

	d.createInstance(appName, debug)
	d.selectPhysicalDevice()

	var err error
	d.surfaceKH, err = surf.VulkanSurface(d.Instance)
	vkerr.Fatal(log, err)

	d.createLogicalDeviceAndQueues()
	d.allocator = newNaiveAllocator(d.Handle, d.MemoryProps)

	w, h := surf.FramebufferSize()
	d.Swapchain, err = newSwapchain(d, w, h, nil)
	vkerr.Fatal(log, err)

	d.createFrameSync()
	d.createThreadPools()

	log.Info("device: opened %q (discrete=%v)", vk.ToString(d.PhysicalProps.DeviceName[:]),
		d.PhysicalProps.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu)
	return d
}

func (d *Device) createInstance(appName string, debug bool) {
	extensions := []string{"VK_KHR_surface"}
	var layers []string
	if debug {
		layers = append(layers, "VK_LAYER_KHRONOS_validation")
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 3, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   safeString(appName),
		PEngineName:        safeString("dieselpt"),
	}

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}, nil, &instance)
	vkerr.Fatal(d.log, vkerr.Result(ret))
	d.Instance = instance
	vk.InitInstance(instance)
}

// AcquireThreadSlot assigns the calling worker goroutine a unique slot
// in [0, MaxCommandThreads) on first use, per spec.md §5. A slot is a
// one-way ticket: there is no release, matching the spec's "worker
// threads query their slot once at first allocation, then reuse it for
// the life of the worker." Callers are expected to call this once and
// cache the result alongside their goroutine.
func (d *Device) AcquireThreadSlot() (int, error) {
	slot := atomic.AddInt32(&d.threadSlots, 1) - 1
	if int(slot) >= config.MaxCommandThreads {
		return 0, fmt.Errorf("device: exceeded MAX_COMMAND_THREADS (%d)", config.MaxCommandThreads)
	}
	return int(slot), nil
}

func safeString(s string) string {
	return s + "\x00"
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}
