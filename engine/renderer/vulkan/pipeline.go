package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/immediate/engine/core"
	"github.com/spaghettifunk/immediate/engine/renderer/immediate"
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

func primitiveTopology(t metadata.PrimitiveTopology) vk.PrimitiveTopology {
	switch t {
	case metadata.PrimitiveTopologyTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	case metadata.PrimitiveTopologyTriangleFan:
		return vk.PrimitiveTopologyTriangleFan
	case metadata.PrimitiveTopologyLineList:
		return vk.PrimitiveTopologyLineList
	case metadata.PrimitiveTopologyLineStrip:
		return vk.PrimitiveTopologyLineStrip
	case metadata.PrimitiveTopologyPointList:
		return vk.PrimitiveTopologyPointList
	default:
		return vk.PrimitiveTopologyTriangleList
	}
}

func polygonMode(m metadata.PolygonMode) vk.PolygonMode {
	switch m {
	case metadata.PolygonModeLine:
		return vk.PolygonModeLine
	case metadata.PolygonModePoint:
		return vk.PolygonModePoint
	default:
		return vk.PolygonModeFill
	}
}

func cullMode(m metadata.FaceCullMode) vk.CullModeFlags {
	switch m {
	case metadata.FaceCullModeNone:
		return vk.CullModeFlags(vk.CullModeNone)
	case metadata.FaceCullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case metadata.FaceCullModeFrontAndBack:
		return vk.CullModeFlags(vk.CullModeFrontAndBack)
	default:
		fallthrough
	case metadata.FaceCullModeBack:
		return vk.CullModeFlags(vk.CullModeBackBit)
	}
}

func frontFace(f metadata.FrontFace) vk.FrontFace {
	if f == metadata.FrontFaceClockwise {
		return vk.FrontFaceClockwise
	}
	return vk.FrontFaceCounterClockwise
}

func attributeFormat(a metadata.VertexAttribute) vk.Format {
	switch a {
	case metadata.VertexAttributeColor:
		return vk.FormatR32g32b32a32Sfloat
	case metadata.VertexAttributeTexCoord:
		return vk.FormatR32g32Sfloat
	default:
		return vk.FormatR32g32b32Sfloat
	}
}

func boolean(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

/**
 * @brief One binding per attribute the shader reads. The attribute value is used as
 * both binding and location, matching how the context binds vertex buffers.
 */
func vertexInput(attributes metadata.VertexAttributeMask) ([]vk.VertexInputBindingDescription, []vk.VertexInputAttributeDescription) {
	if attributes == 0 {
		attributes = metadata.VertexAttributeMaskAll
	}
	var bindings []vk.VertexInputBindingDescription
	var descs []vk.VertexInputAttributeDescription
	for a := metadata.VertexAttributePosition; a < metadata.VertexAttributeCount; a++ {
		if !attributes.Has(a) {
			continue
		}
		binding := vk.VertexInputBindingDescription{
			Binding:   uint32(a),
			Stride:    a.Stride(),
			InputRate: vk.VertexInputRateVertex,
		}
		binding.Deref()
		bindings = append(bindings, binding)

		desc := vk.VertexInputAttributeDescription{
			Location: uint32(a),
			Binding:  uint32(a),
			Format:   attributeFormat(a),
			Offset:   0,
		}
		desc.Deref()
		descs = append(descs, desc)
	}
	return bindings, descs
}

func (vc *VulkanContext) CreatePipelineLayout(setLayouts []metadata.DescriptorSetLayoutHandle) (metadata.PipelineLayoutHandle, error) {
	layouts := make([]vk.DescriptorSetLayout, len(setLayouts))
	for i, h := range setLayouts {
		l, ok := vc.setLayouts.Get(uint64(h))
		if !ok {
			return 0, fmt.Errorf("unknown descriptor set layout %d at set %d", h, i)
		}
		layouts[i] = l
	}
	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(layouts)),
		PSetLayouts:            layouts,
		PushConstantRangeCount: 0,
		PPushConstantRanges:    nil,
	}
	pipelineLayoutCreateInfo.Deref()

	var pPipelineLayout vk.PipelineLayout
	result := vk.CreatePipelineLayout(vc.Device.LogicalDevice, &pipelineLayoutCreateInfo, vc.Allocator, &pPipelineLayout)
	if err := resultError("vkCreatePipelineLayout", result); err != nil {
		return 0, err
	}
	return metadata.PipelineLayoutHandle(vc.pipelineLayouts.Acquire(pPipelineLayout)), nil
}

func (vc *VulkanContext) DestroyPipelineLayout(h metadata.PipelineLayoutHandle) {
	if l, ok := vc.pipelineLayouts.Get(uint64(h)); ok {
		vk.DestroyPipelineLayout(vc.Device.LogicalDevice, l, vc.Allocator)
		vc.pipelineLayouts.Release(uint64(h))
	}
}

/**
 * @brief Compiles a graphics pipeline for the given state. Viewport and scissor are
 * dynamic and must be set by the application on the command buffer.
 */
func (vc *VulkanContext) CreateGraphicsPipeline(cacheHandle metadata.PipelineCacheHandle, desc *immediate.PipelineDesc) (metadata.PipelineHandle, error) {
	key := desc.Key
	shader := desc.Shader

	layout, ok := vc.pipelineLayouts.Get(uint64(desc.Layout))
	if !ok {
		return 0, fmt.Errorf("unknown pipeline layout %d", desc.Layout)
	}
	renderPass, ok := vc.renderPasses.Get(uint64(key.RenderPass))
	if !ok {
		return 0, fmt.Errorf("unknown render pass %d", key.RenderPass)
	}
	cache := vk.NullPipelineCache
	if c, ok := vc.pipelineCaches.Get(uint64(cacheHandle)); ok {
		cache = c
	}

	stages := make([]vk.PipelineShaderStageCreateInfo, len(shader.Stages))
	for i, s := range shader.Stages {
		module, ok := vc.shaderModules.Get(uint64(s.Module))
		if !ok {
			return 0, fmt.Errorf("shader %s: unknown module %d for stage %d", shader.Name, s.Module, i)
		}
		stages[i] = vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFlagBits(s.Stage),
			Module: module,
			PName:  VulkanSafeString(shader.EntryPoint(i)),
		}
		stages[i].Deref()
	}

	// Viewport state, the actual values are dynamic
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	viewportState.Deref()

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             polygonMode(key.PolygonMode),
		LineWidth:               1.0,
		CullMode:                cullMode(key.CullMode),
		FrontFace:               frontFace(key.FrontFace),
		DepthBiasEnable:         vk.False,
		DepthBiasConstantFactor: 0.0,
		DepthBiasClamp:          0.0,
		DepthBiasSlopeFactor:    0.0,
	}
	rasterizerCreateInfo.Deref()

	// Multisampling.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		PSampleMask:           nil,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}
	multisamplingCreateInfo.Deref()

	// Depth and stencil testing.
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       boolean(key.DepthTest),
		DepthWriteEnable:      boolean(key.DepthWrite),
		DepthCompareOp:        vk.CompareOpLessOrEqual,
		DepthBoundsTestEnable: vk.False,
		StencilTestEnable:     vk.False,
	}
	depthStencil.Deref()

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         boolean(key.Blend),
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	colorBlendAttachmentState.Deref()

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}
	colorBlendStateCreateInfo.Deref()

	// Dynamic state
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}
	dynamicStateCreateInfo.Deref()

	// Vertex input
	bindings, attributes := vertexInput(shader.Attributes)
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      bindings,
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}
	vertexInputInfo.Deref()

	// Input assembly
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               primitiveTopology(key.Topology),
		PrimitiveRestartEnable: vk.False,
	}
	inputAssembly.Deref()

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		PTessellationState:  nil,
		Layout:              layout,
		RenderPass:          renderPass,
		Subpass:             key.Subpass,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}
	pipelineCreateInfo.Deref()

	pPipelines := make([]vk.Pipeline, 1)
	result := vk.CreateGraphicsPipelines(
		vc.Device.LogicalDevice,
		cache,
		1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
		vc.Allocator,
		pPipelines)
	if err := resultError("vkCreateGraphicsPipelines", result); err != nil {
		return 0, err
	}
	if pPipelines[0] == vk.NullPipeline {
		return 0, fmt.Errorf("vulkan pipeline handle is nil")
	}

	core.LogDebug("graphics pipeline created for shader %s", shader.Name)
	return metadata.PipelineHandle(vc.pipelines.Acquire(pPipelines[0])), nil
}

func (vc *VulkanContext) DestroyPipeline(h metadata.PipelineHandle) {
	if p, ok := vc.pipelines.Get(uint64(h)); ok {
		vk.DestroyPipeline(vc.Device.LogicalDevice, p, vc.Allocator)
		vc.pipelines.Release(uint64(h))
	}
}
