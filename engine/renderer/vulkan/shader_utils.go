package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

/**
 * @brief Creates a shader module from SPIR-V words. The stage is only used for
 * error reporting; it is bound to the module when the pipeline is built.
 */
func (vc *VulkanContext) CreateShaderModule(stage metadata.ShaderStage, code []uint32) (metadata.ShaderModuleHandle, error) {
	if len(code) == 0 {
		return 0, fmt.Errorf("empty SPIR-V code for stage %#x", uint32(stage))
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}

	var handle vk.ShaderModule
	if err := resultError("vkCreateShaderModule", vk.CreateShaderModule(vc.Device.LogicalDevice, &createInfo, vc.Allocator, &handle)); err != nil {
		return 0, fmt.Errorf("stage %#x: %w", uint32(stage), err)
	}
	return metadata.ShaderModuleHandle(vc.shaderModules.Acquire(handle)), nil
}

func (vc *VulkanContext) DestroyShaderModule(h metadata.ShaderModuleHandle) {
	if m, ok := vc.shaderModules.Get(uint64(h)); ok {
		vk.DestroyShaderModule(vc.Device.LogicalDevice, m, vc.Allocator)
		vc.shaderModules.Release(uint64(h))
	}
}
