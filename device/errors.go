package device

import "errors"

var (
	errNoDevices        = errors.New("device: no Vulkan physical devices enumerated")
	errNoSuitableDevice = errors.New("device: no physical device exposes the required raytracing extension set")
	errNoQueueFamily    = errors.New("device: no queue family satisfies the requested capability mask")
	errNoMemoryType     = errors.New("device: no memory type satisfies the requested filter and properties")
)
