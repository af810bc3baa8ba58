package device

import "unsafe"

// unsafePointer adapts a typed feature-chain struct pointer to the
// PNext field's unsafe.Pointer type. Every vk structure chained this way
// is kept alive by its caller's stack frame for the duration of the
// Vulkan call that consumes it, so there is no GC-pinning concern.
func unsafePointer(p unsafe.Pointer) unsafe.Pointer { return p }
