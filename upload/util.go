package upload

import "unsafe"

func unsafeBytes(p unsafe.Pointer, length int) []byte {
	return unsafe.Slice((*byte)(p), length)
}
