package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/immediate/engine/core"
)

/**
 * @brief Converts the result of a Vulkan call into an error naming the call, nil
 * on success. Pool exhaustion wraps core.ErrDescriptorPoolExhausted so that the
 * descriptor cache can move on to a fresh pool.
 */
func resultError(call string, result vk.Result) error {
	switch result {
	case vk.Success:
		return nil
	case vk.ErrorOutOfPoolMemory, vk.ErrorFragmentedPool:
		return fmt.Errorf("%s: %w (%v)", call, core.ErrDescriptorPoolExhausted, vk.Error(result))
	}
	return fmt.Errorf("%s: %w", call, vk.Error(result))
}

// entry point names go to the driver as C strings
func VulkanSafeString(s string) string {
	if len(s) == 0 || s[len(s)-1] != 0 {
		return s + "\x00"
	}
	return s
}
