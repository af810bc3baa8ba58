// Package upload implements spec.md §4.3: the batch uploader that
// stages mesh/texture data to the GPU and builds bottom-level
// acceleration structures in a single submission, sharing one scratch
// buffer sized to the batch's largest requirement. Grounded on the
// teacher's pools.go (CoreCommandPool one-shot command buffer pattern)
// and managers.go (batched resource setup), generalized to cover
// staging uploads plus BLAS builds, which the teacher never has.
package upload

import (
	"golang.org/x/sync/errgroup"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/dieselpt/internal/vkerr"
	"github.com/andewx/dieselpt/resource"
)

// Target is one thing to upload: CPU bytes to copy into a device-local
// destination buffer via a staging buffer.
type Target struct {
	Data   []byte
	Dst    *resource.Buffer
	Offset vk.DeviceSize
}

// BlasRequest asks the batch to build a BLAS from already-uploaded
// vertex/index buffers.
type BlasRequest struct {
	Desc resource.AccelDesc
	Out  **resource.AccelerationStructure // filled in on Flush
}

// Batch accumulates staging uploads and BLAS build requests, then
// flushes them in one command buffer with a single fence wait, per
// spec.md §4.3: "a staging-buffer LIFO stack sized per request, deferred
// BLAS builds sharing one scratch buffer sized to the batch's largest
// requirement, AS-to-AS memory barriers between builds, one-shot fence
// flush."
type Batch struct {
	dev   vk.Device
	alloc resource.MemoryAllocator
	pool  vk.CommandPool
	queue vk.Queue

	targets []Target
	blas    []BlasRequest

	stagingStack []*resource.Buffer // LIFO: popped (destroyed) in reverse push order after the fence signals
}

// NewBatch begins a batch against the given transfer command pool and
// queue.
func NewBatch(dev vk.Device, alloc resource.MemoryAllocator, pool vk.CommandPool, queue vk.Queue) *Batch {
	return &Batch{dev: dev, alloc: alloc, pool: pool, queue: queue}
}

// Upload queues a CPU→GPU copy.
func (b *Batch) Upload(t Target) { b.targets = append(b.targets, t) }

// BuildBlas queues a BLAS build; *req.Out is set once Flush completes.
func (b *Batch) BuildBlas(req BlasRequest) { b.blas = append(b.blas, req) }

// Flush records and submits every queued upload and BLAS build in one
// command buffer, waits on a one-shot fence, then releases every
// staging buffer it allocated (LIFO, matching the order they were
// pushed — spec.md §4.3's "staging-buffer LIFO stack").
func (b *Batch) Flush() error {
	cmd, err := allocateOneShot(b.dev, b.pool)
	if err != nil {
		return err
	}

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if ret := vk.BeginCommandBuffer(cmd, &beginInfo); ret != vk.Success {
		return vkerr.Result(ret)
	}

	if err := b.recordUploads(cmd); err != nil {
		return err
	}

	scratch, err := b.recordBlasBuilds(cmd)
	if err != nil {
		return err
	}

	if ret := vk.EndCommandBuffer(cmd); ret != vk.Success {
		return vkerr.Result(ret)
	}

	fenceInfo := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	var fence vk.Fence
	if ret := vk.CreateFence(b.dev, &fenceInfo, nil, &fence); ret != vk.Success {
		return vkerr.Result(ret)
	}
	defer vk.DestroyFence(b.dev, fence, nil)

	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd},
	}
	if ret := vk.QueueSubmit(b.queue, 1, []vk.SubmitInfo{submit}, fence); ret != vk.Success {
		return vkerr.Result(ret)
	}
	vk.WaitForFences(b.dev, 1, []vk.Fence{fence}, vk.True, ^uint64(0))

	vk.FreeCommandBuffers(b.dev, b.pool, 1, []vk.CommandBuffer{cmd})
	if scratch != nil {
		scratch.Destroy()
	}

	for i := len(b.stagingStack) - 1; i >= 0; i-- {
		b.stagingStack[i].Destroy()
	}
	b.stagingStack = nil
	b.targets = nil
	b.blas = nil
	return nil
}

// recordUploads fills one staging buffer per target and records the
// staging-to-destination copy into cmd. The staging buffer allocation
// and memcpy for each target is independent of every other target, so
// that part runs across worker goroutines via errgroup; recording into
// cmd itself happens afterward, sequentially, since a single
// vk.CommandBuffer cannot be recorded from multiple threads at once.
func (b *Batch) recordUploads(cmd vk.CommandBuffer) error {
	staged := make([]*resource.Buffer, len(b.targets))

	var g errgroup.Group
	for i, t := range b.targets {
		i, t := i, t
		g.Go(func() error {
			staging, err := resource.NewBuffer(b.dev, b.alloc, vk.DeviceSize(len(t.Data)),
				vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
				vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
			if err != nil {
				return err
			}

			mapped, err := staging.Map()
			if err != nil {
				return err
			}
			copy(unsafeBytes(mapped, len(t.Data)), t.Data)
			staging.Unmap()

			staged[i] = staging
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, t := range b.targets {
		staging := staged[i]
		b.stagingStack = append(b.stagingStack, staging)
		region := vk.BufferCopy{Size: vk.DeviceSize(len(t.Data)), DstOffset: t.Offset}
		vk.CmdCopyBuffer(cmd, staging.Handle, t.Dst.Handle, 1, []vk.BufferCopy{region})
	}
	return nil
}

// recordBlasBuilds sizes one scratch buffer to the batch's largest
// requirement and records every build against it, with a memory barrier
// between consecutive builds (spec.md §4.3's "AS-to-AS memory barriers
// between builds" — required because the implementation may reuse the
// same scratch memory for each build and otherwise has no ordering
// guarantee between them).
func (b *Batch) recordBlasBuilds(cmd vk.CommandBuffer) (*resource.Buffer, error) {
	if len(b.blas) == 0 {
		return nil, nil
	}

	var maxScratch vk.DeviceSize
	sizes := make([]resource.SizeInfo, len(b.blas))
	for i, req := range b.blas {
		sizes[i] = resource.QuerySize(b.dev, req.Desc)
		if sizes[i].BuildScratchSize > maxScratch {
			maxScratch = sizes[i].BuildScratchSize
		}
	}

	scratch, err := resource.NewBuffer(b.dev, b.alloc, maxScratch,
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)|vk.BufferUsageFlags(vk.BufferUsageShaderDeviceAddressBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}
	scratchAddr := scratch.DeviceAddress(b.dev)

	for i, req := range b.blas {
		as, err := resource.NewAccelerationStructure(b.dev, b.alloc, req.Desc, sizes[i])
		if err != nil {
			scratch.Destroy()
			return nil, err
		}
		*req.Out = as

		buildInfo := as.BuildGeometryInfo(req.Desc, scratchAddr)
		rangeInfos := make([]vk.AccelerationStructureBuildRangeInfoKHR, len(req.Desc.Geometries))
		for g, count := range req.Desc.MaxPrimitiveCounts {
			rangeInfos[g] = vk.AccelerationStructureBuildRangeInfoKHR{PrimitiveCount: count}
		}
		vk.CmdBuildAccelerationStructures(cmd, 1,
			[]vk.AccelerationStructureBuildGeometryInfoKHR{buildInfo},
			[][]vk.AccelerationStructureBuildRangeInfoKHR{rangeInfos})

		if i < len(b.blas)-1 {
			barrier := vk.MemoryBarrier{
				SType:         vk.StructureTypeMemoryBarrier,
				SrcAccessMask: vk.AccessFlags(vk.AccessAccelerationStructureWriteBitKhr),
				DstAccessMask: vk.AccessFlags(vk.AccessAccelerationStructureWriteBitKhr) | vk.AccessFlags(vk.AccessAccelerationStructureReadBitKhr),
			}
			vk.CmdPipelineBarrier(cmd,
				vk.PipelineStageFlags(vk.PipelineStageAccelerationStructureBuildBitKhr),
				vk.PipelineStageFlags(vk.PipelineStageAccelerationStructureBuildBitKhr),
				0, 1, []vk.MemoryBarrier{barrier}, 0, nil, 0, nil)
		}
	}

	return scratch, nil
}

func allocateOneShot(dev vk.Device, pool vk.CommandPool) (vk.CommandBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cmds := make([]vk.CommandBuffer, 1)
	if ret := vk.AllocateCommandBuffers(dev, &info, cmds); ret != vk.Success {
		return nil, vkerr.Result(ret)
	}
	return cmds[0], nil
}
