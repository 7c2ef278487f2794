package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/immediate/engine/core"
)

/**
 * @brief The physical and logical device the renderer runs on. Instance and device
 * creation belong to the application; the renderer only reads properties.
 */
type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device

	Properties vk.PhysicalDeviceProperties
	Limits     vk.PhysicalDeviceLimits
	Memory     vk.PhysicalDeviceMemoryProperties
}

func NewVulkanDevice(physicalDevice vk.PhysicalDevice, logicalDevice vk.Device) (*VulkanDevice, error) {
	if physicalDevice == nil || logicalDevice == nil {
		return nil, fmt.Errorf("vulkan device needs both a physical and a logical device")
	}
	d := &VulkanDevice{
		PhysicalDevice: physicalDevice,
		LogicalDevice:  logicalDevice,
	}
	vk.GetPhysicalDeviceProperties(physicalDevice, &d.Properties)
	d.Properties.Deref()
	d.Limits = d.Properties.Limits
	d.Limits.Deref()

	vk.GetPhysicalDeviceMemoryProperties(physicalDevice, &d.Memory)
	d.Memory.Deref()

	name := vk.ToString(d.Properties.DeviceName[:])
	core.LogInfo("Selected device: '%s' (vendor %04x, device %04x)", name, d.Properties.VendorID, d.Properties.DeviceID)
	return d, nil
}

func (d *VulkanDevice) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	for i := uint32(0); i < d.Memory.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		d.Memory.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (uint32(d.Memory.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}
