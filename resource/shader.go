package resource

import (
	"os"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/dieselpt/internal/vkerr"
)

// LoadShaderModule reads a SPIR-V binary from path and creates a shader
// module. Grounded on the teacher's shader.go LoadShaderModule, which
// reads raw bytes and reinterprets them as a uint32 slice for
// vk.ShaderModuleCreateInfo.PCode — kept here (sliceUint32 below).
func LoadShaderModule(dev vk.Device, path string) (vk.ShaderModule, error) {
	buffer, err := os.ReadFile(path)
	if err != nil {
		return vk.NullShaderModule, err
	}

	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(buffer)),
		PCode:    sliceUint32(buffer),
	}

	var module vk.ShaderModule
	if ret := vk.CreateShaderModule(dev, &info, nil, &module); ret != vk.Success {
		return vk.NullShaderModule, vkerr.Result(ret)
	}
	return module, nil
}

// sliceUint32 reinterprets a SPIR-V byte buffer as its required []uint32
// form. The teacher's shader.go calls an identically-named but never
// defined helper — this is the working version, little-endian only
// (SPIR-V's binary format is defined little-endian regardless of host).
func sliceUint32(b []byte) []uint32 {
	if len(b)%4 != 0 {
		panic("resource: SPIR-V buffer length not a multiple of 4")
	}
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = *(*uint32)(unsafe.Pointer(&b[i*4]))
	}
	return out
}
