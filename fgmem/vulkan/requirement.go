package vulkan

import (
	"github.com/Lint111/framealloc/fgmem"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// Requirement converts Vulkan memory requirements into the handle-based form
// the aliasing subsystem consumes.
func Requirement(requirements *core1_0.MemoryRequirements) fgmem.MemoryRequirement {
	return fgmem.MemoryRequirement{
		SizeBytes:          requirements.Size,
		Alignment:          uint(requirements.Alignment),
		CompatibleTypeMask: requirements.MemoryTypeBits,
	}
}
