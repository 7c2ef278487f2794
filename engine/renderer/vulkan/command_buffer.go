package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/immediate/engine/core"
	"github.com/spaghettifunk/immediate/engine/renderer/immediate"
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

/**
 * @brief A command buffer the immediate context records draws into. The render
 * pass, viewport and scissor are the caller's business.
 */
type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState

	context *VulkanContext
}

var _ immediate.CommandRecorder = (*VulkanCommandBuffer)(nil)

/** @brief Wraps a command buffer allocated elsewhere, typically one per swapchain image. */
func WrapCommandBuffer(context *VulkanContext, handle vk.CommandBuffer) *VulkanCommandBuffer {
	return &VulkanCommandBuffer{
		Handle:  handle,
		State:   COMMAND_BUFFER_STATE_READY,
		context: context,
	}
}

func NewVulkanCommandBuffer(context *VulkanContext, pool vk.CommandPool, isPrimary bool) (*VulkanCommandBuffer, error) {
	level := vk.CommandBufferLevelSecondary
	if isPrimary {
		level = vk.CommandBufferLevelPrimary
	}
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              level,
	}

	handles := make([]vk.CommandBuffer, 1)
	if err := resultError("vkAllocateCommandBuffers", vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles)); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return WrapCommandBuffer(context, handles[0]), nil
}

func (v *VulkanCommandBuffer) Free(pool vk.CommandPool) {
	vk.FreeCommandBuffers(v.context.Device.LogicalDevice, pool, 1, []vk.CommandBuffer{v.Handle})
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	vBeginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}
	if isSingleUse {
		vBeginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		vBeginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		vBeginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if err := resultError("vkBeginCommandBuffer", vk.BeginCommandBuffer(v.Handle, vBeginInfo)); err != nil {
		core.LogError(err.Error())
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if err := resultError("vkEndCommandBuffer", vk.EndCommandBuffer(v.Handle)); err != nil {
		core.LogError(err.Error())
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) Reset() {
	v.State = COMMAND_BUFFER_STATE_READY
}

func (v *VulkanCommandBuffer) BindPipeline(pipeline metadata.PipelineHandle) {
	p, ok := v.context.pipelines.Get(uint64(pipeline))
	if !ok {
		core.LogError("bind of unknown pipeline %d", pipeline)
		return
	}
	vk.CmdBindPipeline(v.Handle, vk.PipelineBindPointGraphics, p)
}

func (v *VulkanCommandBuffer) BindDescriptorSets(layout metadata.PipelineLayoutHandle, firstSet uint32, sets []metadata.DescriptorSetHandle, dynamicOffsets []uint32) {
	l, ok := v.context.pipelineLayouts.Get(uint64(layout))
	if !ok {
		core.LogError("bind with unknown pipeline layout %d", layout)
		return
	}
	native := make([]vk.DescriptorSet, len(sets))
	for i, h := range sets {
		native[i], _ = v.context.sets.Get(uint64(h))
	}
	vk.CmdBindDescriptorSets(v.Handle, vk.PipelineBindPointGraphics, l, firstSet,
		uint32(len(native)), native, uint32(len(dynamicOffsets)), dynamicOffsets)
}

func (v *VulkanCommandBuffer) BindVertexBuffers(firstBinding uint32, buffers []metadata.BufferHandle, offsets []uint64) {
	native := make([]vk.Buffer, len(buffers))
	deviceOffsets := make([]vk.DeviceSize, len(offsets))
	for i, h := range buffers {
		native[i] = v.context.buffer(h)
	}
	for i, o := range offsets {
		deviceOffsets[i] = vk.DeviceSize(o)
	}
	vk.CmdBindVertexBuffers(v.Handle, firstBinding, uint32(len(native)), native, deviceOffsets)
}

func (v *VulkanCommandBuffer) BindIndexBuffer(buffer metadata.BufferHandle, offset uint64) {
	vk.CmdBindIndexBuffer(v.Handle, v.context.buffer(buffer), vk.DeviceSize(offset), vk.IndexTypeUint32)
}

func (v *VulkanCommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(v.Handle, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (v *VulkanCommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(v.Handle, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}
