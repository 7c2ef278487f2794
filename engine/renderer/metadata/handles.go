package metadata

// Opaque identifiers for native graphics objects. The zero value of each is
// "no object". The driver decides what the number means.
type (
	BufferHandle              uint64
	PipelineHandle            uint64
	PipelineLayoutHandle      uint64
	PipelineCacheHandle       uint64
	DescriptorSetHandle       uint64
	DescriptorSetLayoutHandle uint64
	DescriptorPoolHandle      uint64
	RenderPassHandle          uint64
	ShaderModuleHandle        uint64
	SamplerHandle             uint64
	ImageViewHandle           uint64
	CommandBufferHandle       uint64
)
