package device

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/dieselpt/config"
	"github.com/andewx/dieselpt/internal/vkerr"
)

// commandPoolTrio holds one pool per queue family a worker thread might
// record into this frame, per spec.md §5 ("each worker thread owns one
// command pool per queue family per frame-in-flight slot, never shared
// across threads"). Grounded on the teacher's pools.go CoreCommandPool,
// replicated per-thread-per-frame instead of the teacher's single
// global pool.
type commandPoolTrio struct {
	graphics vk.CommandPool
	compute  vk.CommandPool
	transfer vk.CommandPool
}

func (d *Device) createThreadPools() {
	families := [3]struct {
		fam uint32
	}{{d.Graphics.Family}, {d.Compute.Family}, {d.Transfer.Family}}

	for t := 0; t < config.MaxCommandThreads; t++ {
		for f := 0; f < config.MaxFramesInFlight; f++ {
			trio := &d.threadPools[t][f]
			for qi, target := range []*vk.CommandPool{&trio.graphics, &trio.compute, &trio.transfer} {
				info := vk.CommandPoolCreateInfo{
					SType:            vk.StructureTypeCommandPoolCreateInfo,
					Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
					QueueFamilyIndex: families[qi].fam,
				}
				vkerr.Fatal(d.log, vkerr.Result(vk.CreateCommandPool(d.Handle, &info, nil, target)))
			}
		}
	}
}

// GraphicsCommandPool returns the graphics command pool reserved for
// the given (thread slot, frame slot) pair. slot must come from a prior
// AcquireThreadSlot call.
func (d *Device) GraphicsCommandPool(slot, frame int) vk.CommandPool {
	return d.threadPools[slot][frame].graphics
}

// TransferCommandPool mirrors GraphicsCommandPool for the transfer
// family, used by the upload package's staging/BLAS-build command
// buffers (spec.md §4.3).
func (d *Device) TransferCommandPool(slot, frame int) vk.CommandPool {
	return d.threadPools[slot][frame].transfer
}

// ComputeCommandPool mirrors GraphicsCommandPool for the compute
// family. Nothing in this module calls it: cmd/dieselpt records the
// pathtrace passes into command buffers from GraphicsCommandPool.
func (d *Device) ComputeCommandPool(slot, frame int) vk.CommandPool {
	return d.threadPools[slot][frame].compute
}
