package immediate

import (
	"fmt"
	"math"

	"github.com/spaghettifunk/immediate/engine/core"
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

/** @brief Construction parameters of a Context. */
type Settings struct {
	/** @brief Number of frames that may be in flight, one allocator slot and pool bank each. */
	VirtualFrames int
	/** @brief Bytes of the shared buffer reserved per virtual frame. */
	FrameSize uint64
	/** @brief Where the pipeline cache blob is read at setup and written at teardown. Empty disables persistence. */
	PipelineCachePath string
	/** @brief Upper bound of descriptor pools a single frame may grow to. */
	MaxDescriptorPoolsPerFrame int
	/** @brief How many sets of each distinct layout one pool holds. */
	DescriptorSetsPerPool uint32

	DefaultRenderPass metadata.RenderPassHandle
	/** @brief Bound to image bindings that have no texture assigned. May be nil. */
	DefaultTexture *metadata.Texture
}

func DefaultSettings() Settings {
	return Settings{
		VirtualFrames:              core.DefaultVirtualFrames,
		FrameSize:                  core.DefaultFrameSize,
		PipelineCachePath:          core.DefaultPipelineCachePath,
		MaxDescriptorPoolsPerFrame: core.DefaultMaxDescriptorPools,
		DescriptorSetsPerPool:      64,
	}
}

func SettingsFromConfig(cfg *core.Config) Settings {
	s := DefaultSettings()
	s.VirtualFrames = cfg.Context.VirtualFrames
	s.FrameSize = cfg.Context.FrameSize
	s.PipelineCachePath = cfg.Context.PipelineCachePath
	s.MaxDescriptorPoolsPerFrame = cfg.Context.MaxDescriptorPools
	return s
}

func (s *Settings) validate() error {
	if s.VirtualFrames < 1 {
		return fmt.Errorf("virtual frames must be at least 1, got %d", s.VirtualFrames)
	}
	if s.FrameSize == 0 {
		return fmt.Errorf("frame size must be greater than 0")
	}
	// dynamic offsets are 32 bit
	if uint64(s.VirtualFrames)*s.FrameSize > math.MaxUint32 {
		return fmt.Errorf("shared buffer of %d x %d bytes exceeds the 4GiB dynamic offset range", s.VirtualFrames, s.FrameSize)
	}
	if s.MaxDescriptorPoolsPerFrame < 1 {
		s.MaxDescriptorPoolsPerFrame = 1
	}
	if s.DescriptorSetsPerPool == 0 {
		s.DescriptorSetsPerPool = 1
	}
	return nil
}
