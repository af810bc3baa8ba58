package resource

import "unsafe"

// ptrOf adapts a typed feature/extension struct to the unsafe.Pointer
// type Vulkan's PNext chains expect.
func ptrOf[T any](v *T) unsafe.Pointer { return unsafe.Pointer(v) }

// ptrToBytes views a mapped memory region as a byte slice for CPU-side
// staging writes (SBT packing, vertex/index upload).
func ptrToBytes(p unsafe.Pointer, length int) []byte {
	return unsafe.Slice((*byte)(p), length)
}
