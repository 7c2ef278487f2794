package immediate

import (
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

/** @brief Device limits the context needs for sub-allocation. */
type DeviceLimits struct {
	/** @brief Required alignment of dynamic uniform buffer offsets, a power of two. */
	MinUniformBufferOffsetAlignment uint64
	/** @brief Alignment used for vertex and index ranges. Defaults to 4 when zero. */
	VertexAlignment uint64
}

/** @brief Identifies the physical device a pipeline cache blob was produced on. */
type DeviceIdentity struct {
	VendorID          uint32
	DeviceID          uint32
	PipelineCacheUUID [16]byte
}

/** @brief A buffer that stays mapped for the lifetime of the context. */
type HostBuffer struct {
	Handle metadata.BufferHandle
	Memory []byte
}

type DescriptorPoolSize struct {
	Type  metadata.DescriptorType
	Count uint32
}

/**
 * @brief A single descriptor update. Buffer fields are used for uniform bindings,
 * Sampler and View for image bindings.
 */
type DescriptorWrite struct {
	Set          metadata.DescriptorSetHandle
	Binding      uint32
	ArrayElement uint32
	Type         metadata.DescriptorType

	Buffer metadata.BufferHandle
	Offset uint64
	Range  uint64

	Sampler metadata.SamplerHandle
	View    metadata.ImageViewHandle
}

/** @brief Everything a driver needs to compile a graphics pipeline. */
type PipelineDesc struct {
	Key    PipelineStateKey
	Shader *metadata.Shader
	Layout metadata.PipelineLayoutHandle
}

/**
 * @brief The native operations the context issues. Implementations are not
 * expected to be safe for concurrent use.
 */
type Device interface {
	Limits() DeviceLimits
	Identity() DeviceIdentity

	CreateHostBuffer(size uint64) (HostBuffer, error)
	DestroyBuffer(buffer metadata.BufferHandle)

	CreateDescriptorSetLayout(layout *metadata.DescriptorSetLayout) (metadata.DescriptorSetLayoutHandle, error)
	DestroyDescriptorSetLayout(layout metadata.DescriptorSetLayoutHandle)
	CreatePipelineLayout(setLayouts []metadata.DescriptorSetLayoutHandle) (metadata.PipelineLayoutHandle, error)
	DestroyPipelineLayout(layout metadata.PipelineLayoutHandle)

	CreateDescriptorPool(maxSets uint32, sizes []DescriptorPoolSize) (metadata.DescriptorPoolHandle, error)
	ResetDescriptorPool(pool metadata.DescriptorPoolHandle) error
	DestroyDescriptorPool(pool metadata.DescriptorPoolHandle)
	// AllocateDescriptorSet returns an error wrapping core.ErrDescriptorPoolExhausted when the pool is full.
	AllocateDescriptorSet(pool metadata.DescriptorPoolHandle, layout metadata.DescriptorSetLayoutHandle) (metadata.DescriptorSetHandle, error)
	UpdateDescriptorSets(writes []DescriptorWrite)

	CreatePipelineCache(initialData []byte) (metadata.PipelineCacheHandle, error)
	PipelineCacheData(cache metadata.PipelineCacheHandle) ([]byte, error)
	DestroyPipelineCache(cache metadata.PipelineCacheHandle)
	CreateGraphicsPipeline(cache metadata.PipelineCacheHandle, desc *PipelineDesc) (metadata.PipelineHandle, error)
	DestroyPipeline(pipeline metadata.PipelineHandle)
}

/** @brief Records draw commands into a command buffer owned by the caller. */
type CommandRecorder interface {
	BindPipeline(pipeline metadata.PipelineHandle)
	BindDescriptorSets(layout metadata.PipelineLayoutHandle, firstSet uint32, sets []metadata.DescriptorSetHandle, dynamicOffsets []uint32)
	BindVertexBuffers(firstBinding uint32, buffers []metadata.BufferHandle, offsets []uint64)
	BindIndexBuffer(buffer metadata.BufferHandle, offset uint64)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
}
