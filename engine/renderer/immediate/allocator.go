package immediate

import (
	"fmt"

	"github.com/spaghettifunk/immediate/engine/core"
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

type BufferUsage int

const (
	UsageVertex BufferUsage = iota
	UsageIndex
	UsageUniform
	usageCount
)

func (u BufferUsage) String() string {
	switch u {
	case UsageVertex:
		return "vertex"
	case UsageIndex:
		return "index"
	case UsageUniform:
		return "uniform"
	}
	return "unknown"
}

/**
 * @brief A ring of bump arenas, one per virtual frame, carved out of a single
 * mapped buffer. Slot K owns the byte range [K*frameSize, (K+1)*frameSize).
 * Allocation never frees; Reset reclaims a whole slot at once.
 */
type FrameAllocator struct {
	buffer    HostBuffer
	frameSize uint64
	// cursor per slot, relative to the slot base
	cursors   []uint64
	alignment [usageCount]uint64
}

func NewFrameAllocator(buffer HostBuffer, frames int, frameSize uint64, limits DeviceLimits) (*FrameAllocator, error) {
	if frames < 1 {
		return nil, fmt.Errorf("frame allocator needs at least one frame, got %d", frames)
	}
	if uint64(len(buffer.Memory)) < uint64(frames)*frameSize {
		return nil, fmt.Errorf("frame allocator buffer too small: %d bytes for %d frames of %d", len(buffer.Memory), frames, frameSize)
	}
	vertexAlign := limits.VertexAlignment
	if vertexAlign == 0 {
		vertexAlign = 4
	}
	uniformAlign := limits.MinUniformBufferOffsetAlignment
	if uniformAlign == 0 {
		uniformAlign = 256
	}
	if !metadata.IsPowerOfTwo(vertexAlign) || !metadata.IsPowerOfTwo(uniformAlign) {
		return nil, fmt.Errorf("alignments must be powers of two (vertex=%d uniform=%d)", vertexAlign, uniformAlign)
	}
	return &FrameAllocator{
		buffer:    buffer,
		frameSize: frameSize,
		cursors:   make([]uint64, frames),
		alignment: [usageCount]uint64{
			UsageVertex:  vertexAlign,
			UsageIndex:   vertexAlign,
			UsageUniform: uniformAlign,
		},
	}, nil
}

/**
 * @brief Hands out size bytes from the slot of frameIndex. The returned offset is
 * absolute within the shared buffer and aligned for usage. On failure nothing is
 * consumed and earlier allocations are untouched.
 */
func (a *FrameAllocator) Allocate(size uint64, usage BufferUsage, frameIndex int) ([]byte, uint64, error) {
	if frameIndex < 0 || frameIndex >= len(a.cursors) {
		return nil, 0, fmt.Errorf("%w: %d (frames=%d)", core.ErrInvalidFrameIndex, frameIndex, len(a.cursors))
	}
	if size == 0 {
		return nil, 0, core.ErrZeroSizeAllocation
	}
	base := uint64(frameIndex) * a.frameSize
	offset := metadata.GetAligned(base+a.cursors[frameIndex], a.alignment[usage])
	end := offset + size
	if end > base+a.frameSize || end < offset {
		return nil, 0, fmt.Errorf("%w: requested %d %s bytes, %d of %d used in frame %d",
			core.ErrOutOfBufferSpace, size, usage, a.cursors[frameIndex], a.frameSize, frameIndex)
	}
	a.cursors[frameIndex] = end - base
	return a.buffer.Memory[offset:end:end], offset, nil
}

// Reset makes the whole slot available again.
func (a *FrameAllocator) Reset(frameIndex int) error {
	if frameIndex < 0 || frameIndex >= len(a.cursors) {
		return fmt.Errorf("%w: %d (frames=%d)", core.ErrInvalidFrameIndex, frameIndex, len(a.cursors))
	}
	a.cursors[frameIndex] = 0
	return nil
}

func (a *FrameAllocator) Used(frameIndex int) uint64 {
	return a.cursors[frameIndex]
}

func (a *FrameAllocator) FrameSize() uint64 {
	return a.frameSize
}

func (a *FrameAllocator) Frames() int {
	return len(a.cursors)
}

func (a *FrameAllocator) Buffer() metadata.BufferHandle {
	return a.buffer.Handle
}
