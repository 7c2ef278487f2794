package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/immediate/engine/core"
	"github.com/spaghettifunk/immediate/engine/renderer/immediate"
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

func descriptorType(t metadata.DescriptorType) vk.DescriptorType {
	switch t {
	case metadata.DescriptorTypeCombinedImageSampler:
		return vk.DescriptorTypeCombinedImageSampler
	default:
		return vk.DescriptorTypeUniformBufferDynamic
	}
}

func (vc *VulkanContext) CreateDescriptorSetLayout(layout *metadata.DescriptorSetLayout) (metadata.DescriptorSetLayoutHandle, error) {
	bindings := make([]vk.DescriptorSetLayoutBinding, len(layout.Bindings))
	for i, b := range layout.Bindings {
		bindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  descriptorType(b.Type),
			DescriptorCount: max(b.Count, 1),
			StageFlags:      vk.ShaderStageFlags(b.Stages),
		}
		bindings[i].Deref()
	}
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	createInfo.Deref()

	var handle vk.DescriptorSetLayout
	if err := resultError("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(vc.Device.LogicalDevice, &createInfo, vc.Allocator, &handle)); err != nil {
		return 0, err
	}
	return metadata.DescriptorSetLayoutHandle(vc.setLayouts.Acquire(handle)), nil
}

func (vc *VulkanContext) DestroyDescriptorSetLayout(h metadata.DescriptorSetLayoutHandle) {
	if l, ok := vc.setLayouts.Get(uint64(h)); ok {
		vk.DestroyDescriptorSetLayout(vc.Device.LogicalDevice, l, vc.Allocator)
		vc.setLayouts.Release(uint64(h))
	}
}

func (vc *VulkanContext) CreateDescriptorPool(maxSets uint32, sizes []immediate.DescriptorPoolSize) (metadata.DescriptorPoolHandle, error) {
	poolSizes := make([]vk.DescriptorPoolSize, len(sizes))
	for i, s := range sizes {
		poolSizes[i] = vk.DescriptorPoolSize{
			Type:            descriptorType(s.Type),
			DescriptorCount: s.Count,
		}
		poolSizes[i].Deref()
	}
	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	createInfo.Deref()

	var pool vk.DescriptorPool
	if err := resultError("vkCreateDescriptorPool", vk.CreateDescriptorPool(vc.Device.LogicalDevice, &createInfo, vc.Allocator, &pool)); err != nil {
		return 0, err
	}
	return metadata.DescriptorPoolHandle(vc.pools.Acquire(pool)), nil
}

/** @brief Frees every set of the pool at once. Their handles become invalid. */
func (vc *VulkanContext) ResetDescriptorPool(h metadata.DescriptorPoolHandle) error {
	pool, ok := vc.pools.Get(uint64(h))
	if !ok {
		return fmt.Errorf("unknown descriptor pool %d", h)
	}
	if err := resultError("vkResetDescriptorPool", vk.ResetDescriptorPool(vc.Device.LogicalDevice, pool, 0)); err != nil {
		return err
	}
	vc.releasePoolSets(h)
	return nil
}

func (vc *VulkanContext) DestroyDescriptorPool(h metadata.DescriptorPoolHandle) {
	if pool, ok := vc.pools.Get(uint64(h)); ok {
		vk.DestroyDescriptorPool(vc.Device.LogicalDevice, pool, vc.Allocator)
		vc.releasePoolSets(h)
		delete(vc.poolSets, h)
		vc.pools.Release(uint64(h))
	}
}

func (vc *VulkanContext) releasePoolSets(h metadata.DescriptorPoolHandle) {
	for _, id := range vc.poolSets[h] {
		vc.sets.Release(id)
	}
	vc.poolSets[h] = vc.poolSets[h][:0]
}

func (vc *VulkanContext) AllocateDescriptorSet(poolHandle metadata.DescriptorPoolHandle, layoutHandle metadata.DescriptorSetLayoutHandle) (metadata.DescriptorSetHandle, error) {
	pool, ok := vc.pools.Get(uint64(poolHandle))
	if !ok {
		return 0, fmt.Errorf("unknown descriptor pool %d", poolHandle)
	}
	layout, ok := vc.setLayouts.Get(uint64(layoutHandle))
	if !ok {
		return 0, fmt.Errorf("unknown descriptor set layout %d", layoutHandle)
	}
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	allocateInfo.Deref()

	var set vk.DescriptorSet
	if err := resultError("vkAllocateDescriptorSets", vk.AllocateDescriptorSets(vc.Device.LogicalDevice, &allocateInfo, &set)); err != nil {
		return 0, err
	}
	id := vc.sets.Acquire(set)
	vc.poolSets[poolHandle] = append(vc.poolSets[poolHandle], id)
	return metadata.DescriptorSetHandle(id), nil
}

/** @brief Submits all writes with a single vkUpdateDescriptorSets call. */
func (vc *VulkanContext) UpdateDescriptorSets(writes []immediate.DescriptorWrite) {
	vkWrites := make([]vk.WriteDescriptorSet, 0, len(writes))
	for _, w := range writes {
		set, ok := vc.sets.Get(uint64(w.Set))
		if !ok {
			core.LogError("descriptor write to unknown set %d skipped", w.Set)
			continue
		}
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      w.Binding,
			DstArrayElement: w.ArrayElement,
			DescriptorCount: 1,
			DescriptorType:  descriptorType(w.Type),
		}
		switch w.Type {
		case metadata.DescriptorTypeUniformBufferDynamic:
			bufferInfo := vk.DescriptorBufferInfo{
				Buffer: vc.buffer(w.Buffer),
				Offset: vk.DeviceSize(w.Offset),
				Range:  vk.DeviceSize(w.Range),
			}
			write.PBufferInfo = []vk.DescriptorBufferInfo{bufferInfo}
		case metadata.DescriptorTypeCombinedImageSampler:
			sampler, _ := vc.samplers.Get(uint64(w.Sampler))
			view, _ := vc.imageViews.Get(uint64(w.View))
			imageInfo := vk.DescriptorImageInfo{
				Sampler:     sampler,
				ImageView:   view,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}
			write.PImageInfo = []vk.DescriptorImageInfo{imageInfo}
		}
		write.Deref()
		vkWrites = append(vkWrites, write)
	}
	if len(vkWrites) == 0 {
		return
	}
	vk.UpdateDescriptorSets(vc.Device.LogicalDevice, uint32(len(vkWrites)), vkWrites, 0, nil)
}
