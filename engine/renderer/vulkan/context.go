package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/immediate/engine/core"
	"github.com/spaghettifunk/immediate/engine/renderer/immediate"
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

type hostBuffer struct {
	buffer vk.Buffer
	memory vk.DeviceMemory
	size   uint64
}

/**
 * @brief Implements immediate.Device on top of a Vulkan logical device. Native
 * objects are kept in registries and cross the API boundary as small integer handles.
 */
type VulkanContext struct {
	Allocator *vk.AllocationCallbacks
	Device    *VulkanDevice

	buffers         *core.Registry[hostBuffer]
	setLayouts      *core.Registry[vk.DescriptorSetLayout]
	pipelineLayouts *core.Registry[vk.PipelineLayout]
	pools           *core.Registry[vk.DescriptorPool]
	sets            *core.Registry[vk.DescriptorSet]
	pipelines       *core.Registry[vk.Pipeline]
	pipelineCaches  *core.Registry[vk.PipelineCache]
	renderPasses    *core.Registry[vk.RenderPass]
	shaderModules   *core.Registry[vk.ShaderModule]
	samplers        *core.Registry[vk.Sampler]
	imageViews      *core.Registry[vk.ImageView]

	// sets allocated per pool, released when the pool is reset
	poolSets map[metadata.DescriptorPoolHandle][]uint64
}

var _ immediate.Device = (*VulkanContext)(nil)

func NewVulkanContext(device *VulkanDevice) *VulkanContext {
	return &VulkanContext{
		Device:          device,
		buffers:         core.NewRegistry[hostBuffer](),
		setLayouts:      core.NewRegistry[vk.DescriptorSetLayout](),
		pipelineLayouts: core.NewRegistry[vk.PipelineLayout](),
		pools:           core.NewRegistry[vk.DescriptorPool](),
		sets:            core.NewRegistry[vk.DescriptorSet](),
		pipelines:       core.NewRegistry[vk.Pipeline](),
		pipelineCaches:  core.NewRegistry[vk.PipelineCache](),
		renderPasses:    core.NewRegistry[vk.RenderPass](),
		shaderModules:   core.NewRegistry[vk.ShaderModule](),
		samplers:        core.NewRegistry[vk.Sampler](),
		imageViews:      core.NewRegistry[vk.ImageView](),
		poolSets:        make(map[metadata.DescriptorPoolHandle][]uint64),
	}
}

/**
 * @brief Destroys every native object still owned by the context, in dependency
 * order. Render passes, samplers and image views belong to the application and
 * are only forgotten.
 */
func (vc *VulkanContext) Destroy() {
	leaked := 0
	vc.pipelines.Each(func(id uint64, _ vk.Pipeline) {
		vc.DestroyPipeline(metadata.PipelineHandle(id))
		leaked++
	})
	vc.pipelineCaches.Each(func(id uint64, _ vk.PipelineCache) {
		vc.DestroyPipelineCache(metadata.PipelineCacheHandle(id))
		leaked++
	})
	vc.pipelineLayouts.Each(func(id uint64, _ vk.PipelineLayout) {
		vc.DestroyPipelineLayout(metadata.PipelineLayoutHandle(id))
		leaked++
	})
	vc.pools.Each(func(id uint64, _ vk.DescriptorPool) {
		vc.DestroyDescriptorPool(metadata.DescriptorPoolHandle(id))
		leaked++
	})
	vc.setLayouts.Each(func(id uint64, _ vk.DescriptorSetLayout) {
		vc.DestroyDescriptorSetLayout(metadata.DescriptorSetLayoutHandle(id))
		leaked++
	})
	vc.shaderModules.Each(func(id uint64, _ vk.ShaderModule) {
		vc.DestroyShaderModule(metadata.ShaderModuleHandle(id))
		leaked++
	})
	vc.buffers.Each(func(id uint64, _ hostBuffer) {
		vc.DestroyBuffer(metadata.BufferHandle(id))
		leaked++
	})
	vc.renderPasses.Each(func(id uint64, _ vk.RenderPass) { vc.renderPasses.Release(id) })
	vc.samplers.Each(func(id uint64, _ vk.Sampler) { vc.samplers.Release(id) })
	vc.imageViews.Each(func(id uint64, _ vk.ImageView) { vc.imageViews.Release(id) })
	if leaked > 0 {
		core.LogWarn("vulkan context destroyed %d objects that were still alive", leaked)
	}
}

func (vc *VulkanContext) Limits() immediate.DeviceLimits {
	return immediate.DeviceLimits{
		MinUniformBufferOffsetAlignment: uint64(vc.Device.Limits.MinUniformBufferOffsetAlignment),
		VertexAlignment:                 4,
	}
}

func (vc *VulkanContext) Identity() immediate.DeviceIdentity {
	id := immediate.DeviceIdentity{
		VendorID: vc.Device.Properties.VendorID,
		DeviceID: vc.Device.Properties.DeviceID,
	}
	copy(id.PipelineCacheUUID[:], vc.Device.Properties.PipelineCacheUUID[:])
	return id
}

/** @brief Makes an application owned render pass usable as pipeline state. */
func (vc *VulkanContext) RegisterRenderPass(renderPass vk.RenderPass) metadata.RenderPassHandle {
	return metadata.RenderPassHandle(vc.renderPasses.Acquire(renderPass))
}

/** @brief Wraps an application owned sampler and image view into a texture. */
func (vc *VulkanContext) RegisterTexture(name string, sampler vk.Sampler, view vk.ImageView) *metadata.Texture {
	return &metadata.Texture{
		Name:    name,
		Sampler: metadata.SamplerHandle(vc.samplers.Acquire(sampler)),
		View:    metadata.ImageViewHandle(vc.imageViews.Acquire(view)),
	}
}

/** @brief Forgets a texture registered with RegisterTexture. The Vulkan objects are not destroyed. */
func (vc *VulkanContext) ReleaseTexture(texture *metadata.Texture) {
	if texture == nil {
		return
	}
	vc.samplers.Release(uint64(texture.Sampler))
	vc.imageViews.Release(uint64(texture.View))
}

func (vc *VulkanContext) buffer(h metadata.BufferHandle) vk.Buffer {
	b, ok := vc.buffers.Get(uint64(h))
	if !ok {
		core.LogError("unknown buffer handle %d", h)
		return nil
	}
	return b.buffer
}

/** @brief Native buffer behind a handle, for code that records its own commands. */
func (vc *VulkanContext) NativeBuffer(h metadata.BufferHandle) vk.Buffer {
	return vc.buffer(h)
}
