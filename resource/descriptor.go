package resource

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/dieselpt/internal/vkerr"
)

// DescriptorSetLayout wraps a layout handle plus the bindings it was
// built from, so pipeline creation and descriptor writes both have the
// binding metadata without re-deriving it. Grounded on buffers.go's
// inline DescriptorSetLayoutCreateInfo construction, pulled out into its
// own reusable type since spec.md §4.2's descriptor set spans many more
// binding kinds (TLAS, storage images, material/instance buffers,
// bindless texture array) than the teacher's single uniform binding.
type DescriptorSetLayout struct {
	Handle   vk.DescriptorSetLayout
	Bindings []vk.DescriptorSetLayoutBinding
	dev      vk.Device
}

// Binding describes one descriptor slot.
type Binding struct {
	Index       uint32
	Type        vk.DescriptorType
	Count       uint32
	Stages      vk.ShaderStageFlags
	PartialBind bool // EXT_descriptor_indexing: allows a slot to go unwritten (bindless texture array)
}

// NewDescriptorSetLayout builds a layout from a binding list. When any
// binding requests PartialBind, a DescriptorSetLayoutBindingFlagsCreateInfo
// chain is attached, per spec.md §4.2's bindless material texture table.
func NewDescriptorSetLayout(dev vk.Device, bindings []Binding) (*DescriptorSetLayout, error) {
	vkBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	flags := make([]vk.DescriptorBindingFlags, len(bindings))
	anyPartial := false
	for i, b := range bindings {
		vkBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Index,
			DescriptorType:  b.Type,
			DescriptorCount: b.Count,
			StageFlags:      b.Stages,
		}
		if b.PartialBind {
			flags[i] = vk.DescriptorBindingFlags(vk.DescriptorBindingPartiallyBoundBit)
			anyPartial = true
		}
	}

	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(vkBindings)),
		PBindings:    vkBindings,
	}

	var bindingFlagsInfo vk.DescriptorSetLayoutBindingFlagsCreateInfo
	if anyPartial {
		bindingFlagsInfo = vk.DescriptorSetLayoutBindingFlagsCreateInfo{
			SType:         vk.StructureTypeDescriptorSetLayoutBindingFlagsCreateInfo,
			BindingCount:  uint32(len(flags)),
			PBindingFlags: flags,
		}
		info.PNext = ptrOf(&bindingFlagsInfo)
	}

	var handle vk.DescriptorSetLayout
	if ret := vk.CreateDescriptorSetLayout(dev, &info, nil, &handle); ret != vk.Success {
		return nil, vkerr.Result(ret)
	}
	return &DescriptorSetLayout{Handle: handle, Bindings: vkBindings, dev: dev}, nil
}

func (l *DescriptorSetLayout) Destroy() {
	if l.Handle != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(l.dev, l.Handle, nil)
	}
}

// DescriptorPool wraps a pool sized for a fixed set of descriptor-type
// counts across MaxSets allocations, matching the teacher's comment in
// buffers.go ("TODO create managing descriptor pools in instance") —
// this is that pool, generalized to arbitrary type/count pairs.
type DescriptorPool struct {
	Handle vk.DescriptorPool
	dev    vk.Device
}

func NewDescriptorPool(dev vk.Device, maxSets uint32, sizes map[vk.DescriptorType]uint32) (*DescriptorPool, error) {
	poolSizes := make([]vk.DescriptorPoolSize, 0, len(sizes))
	for t, n := range sizes {
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{Type: t, DescriptorCount: n})
	}
	info := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var handle vk.DescriptorPool
	if ret := vk.CreateDescriptorPool(dev, &info, nil, &handle); ret != vk.Success {
		return nil, vkerr.Result(ret)
	}
	return &DescriptorPool{Handle: handle, dev: dev}, nil
}

func (p *DescriptorPool) Destroy() {
	if p.Handle != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(p.dev, p.Handle, nil)
	}
}

// Allocate allocates one descriptor set per layout given.
func (p *DescriptorPool) Allocate(layouts []vk.DescriptorSetLayout) ([]vk.DescriptorSet, error) {
	sets := make([]vk.DescriptorSet, len(layouts))
	info := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.Handle,
		DescriptorSetCount: uint32(len(layouts)),
		PSetLayouts:        layouts,
	}
	if ret := vk.AllocateDescriptorSets(p.dev, &info, sets); ret != vk.Success {
		return nil, vkerr.Result(ret)
	}
	return sets, nil
}
