package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/immediate/engine/core"
	"github.com/spaghettifunk/immediate/engine/renderer/immediate"
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

/**
 * @brief Creates a host visible, coherent buffer usable for vertices, indices and
 * uniforms and keeps it mapped until DestroyBuffer.
 */
func (vc *VulkanContext) CreateHostBuffer(size uint64) (immediate.HostBuffer, error) {
	dev := vc.Device.LogicalDevice
	bufferInfo := vk.BufferCreateInfo{
		SType: vk.StructureTypeBufferCreateInfo,
		Size:  vk.DeviceSize(size),
		Usage: vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit) |
			vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit) |
			vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if err := resultError("vkCreateBuffer", vk.CreateBuffer(dev, &bufferInfo, vc.Allocator, &buffer)); err != nil {
		return immediate.HostBuffer{}, err
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(dev, buffer, &requirements)
	requirements.Deref()

	flags := uint32(vk.MemoryPropertyHostVisibleBit) | uint32(vk.MemoryPropertyHostCoherentBit)
	index := vc.Device.FindMemoryIndex(requirements.MemoryTypeBits, flags)
	if index == -1 {
		vk.DestroyBuffer(dev, buffer, vc.Allocator)
		return immediate.HostBuffer{}, fmt.Errorf("unable to create frame buffer: no host visible memory type")
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(index),
	}
	var memory vk.DeviceMemory
	if err := resultError("vkAllocateMemory", vk.AllocateMemory(dev, &allocateInfo, vc.Allocator, &memory)); err != nil {
		vk.DestroyBuffer(dev, buffer, vc.Allocator)
		return immediate.HostBuffer{}, err
	}
	if err := resultError("vkBindBufferMemory", vk.BindBufferMemory(dev, buffer, memory, 0)); err != nil {
		vk.FreeMemory(dev, memory, vc.Allocator)
		vk.DestroyBuffer(dev, buffer, vc.Allocator)
		return immediate.HostBuffer{}, err
	}

	var data unsafe.Pointer
	if err := resultError("vkMapMemory", vk.MapMemory(dev, memory, 0, vk.DeviceSize(size), 0, &data)); err != nil {
		vk.FreeMemory(dev, memory, vc.Allocator)
		vk.DestroyBuffer(dev, buffer, vc.Allocator)
		return immediate.HostBuffer{}, err
	}

	h := vc.buffers.Acquire(hostBuffer{buffer: buffer, memory: memory, size: size})
	core.LogDebug("host buffer of %d bytes created", size)
	return immediate.HostBuffer{
		Handle: metadata.BufferHandle(h),
		Memory: unsafe.Slice((*byte)(data), size),
	}, nil
}

func (vc *VulkanContext) DestroyBuffer(h metadata.BufferHandle) {
	b, ok := vc.buffers.Get(uint64(h))
	if !ok {
		return
	}
	dev := vc.Device.LogicalDevice
	vk.UnmapMemory(dev, b.memory)
	vk.DestroyBuffer(dev, b.buffer, vc.Allocator)
	vk.FreeMemory(dev, b.memory, vc.Allocator)
	vc.buffers.Release(uint64(h))
}
