package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/immediate/engine/core"
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

/**
 * @brief Creates a native pipeline cache seeded with initialData. A blob the driver
 * refuses is dropped and an empty cache is created instead.
 */
func (vc *VulkanContext) CreatePipelineCache(initialData []byte) (metadata.PipelineCacheHandle, error) {
	dev := vc.Device.LogicalDevice
	var cache vk.PipelineCache

	if len(initialData) > 0 {
		pipelineCacheInfo := vk.PipelineCacheCreateInfo{
			SType:           vk.StructureTypePipelineCacheCreateInfo,
			InitialDataSize: uint64(len(initialData)),
			PInitialData:    unsafe.Pointer(&initialData[0]),
		}
		err := resultError("vkCreatePipelineCache", vk.CreatePipelineCache(dev, &pipelineCacheInfo, vc.Allocator, &cache))
		if err == nil {
			return metadata.PipelineCacheHandle(vc.pipelineCaches.Acquire(cache)), nil
		}
		core.LogWarn("pipeline cache data rejected by the driver: %s", err)
	}

	pipelineCacheInfo := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}
	if err := resultError("vkCreatePipelineCache", vk.CreatePipelineCache(dev, &pipelineCacheInfo, vc.Allocator, &cache)); err != nil {
		return 0, err
	}
	return metadata.PipelineCacheHandle(vc.pipelineCaches.Acquire(cache)), nil
}

/** @brief Serialized contents of the cache, as produced by vkGetPipelineCacheData. */
func (vc *VulkanContext) PipelineCacheData(h metadata.PipelineCacheHandle) ([]byte, error) {
	cache, ok := vc.pipelineCaches.Get(uint64(h))
	if !ok {
		return nil, fmt.Errorf("unknown pipeline cache %d", h)
	}
	dev := vc.Device.LogicalDevice

	var size uint64
	if err := resultError("vkGetPipelineCacheData", vk.GetPipelineCacheData(dev, cache, &size, nil)); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	data := make([]byte, size)
	if err := resultError("vkGetPipelineCacheData", vk.GetPipelineCacheData(dev, cache, &size, unsafe.Pointer(&data[0]))); err != nil {
		return nil, err
	}
	return data[:size], nil
}

func (vc *VulkanContext) DestroyPipelineCache(h metadata.PipelineCacheHandle) {
	if cache, ok := vc.pipelineCaches.Get(uint64(h)); ok {
		vk.DestroyPipelineCache(vc.Device.LogicalDevice, cache, vc.Allocator)
		vc.pipelineCaches.Release(uint64(h))
	}
}
