package metadata

import (
	"slices"
)

/** @brief The kinds of descriptor bindings reflection can produce. */
type DescriptorType int

const (
	/** @brief A uniform block, bound with a per-draw dynamic offset into the frame buffer. */
	DescriptorTypeUniformBufferDynamic DescriptorType = iota
	/** @brief A sampled image together with its sampler. */
	DescriptorTypeCombinedImageSampler
)

func (t DescriptorType) String() string {
	switch t {
	case DescriptorTypeUniformBufferDynamic:
		return "uniform_buffer_dynamic"
	case DescriptorTypeCombinedImageSampler:
		return "combined_image_sampler"
	}
	return "unknown"
}

/** @brief Identity of a reflected descriptor set layout. Equal keys mean interchangeable layouts. */
type DescriptorSetLayoutKey uint64

/**
 * @brief A single member of a uniform block.
 */
type UniformMember struct {
	/** @brief The member name without the block prefix. */
	Name string
	/** @brief Offset in bytes from the start of the block. */
	Offset uint32
	/** @brief Size in bytes the member occupies. */
	Range uint32
}

/**
 * @brief One binding slot of a descriptor set layout.
 */
type DescriptorBinding struct {
	Binding uint32
	Type    DescriptorType
	/** @brief Array element count, at least 1. */
	Count uint32
	/** @brief Uniform block name for buffers, image name for samplers. */
	Name string
	/** @brief Size in bytes of the uniform block, 0 for samplers. */
	Size    uint32
	Members []UniformMember
	Stages  ShaderStage
}

/**
 * @brief A reflected descriptor set layout. Build it with NewDescriptorSetLayout so that
 * the bindings are ordered and the key is computed.
 */
type DescriptorSetLayout struct {
	Key      DescriptorSetLayoutKey
	Bindings []DescriptorBinding
}

/** @brief Sorts the bindings by slot and derives the layout key from everything that affects compatibility. */
func NewDescriptorSetLayout(bindings []DescriptorBinding) *DescriptorSetLayout {
	sorted := slices.Clone(bindings)
	slices.SortFunc(sorted, func(a, b DescriptorBinding) int {
		return int(a.Binding) - int(b.Binding)
	})
	h := NewHasher().Uint32(uint32(len(sorted)))
	for i := range sorted {
		b := &sorted[i]
		if b.Count == 0 {
			b.Count = 1
		}
		h.Uint32(b.Binding).Uint32(uint32(b.Type)).Uint32(b.Count).Uint32(uint32(b.Stages)).
			Uint32(b.Size).String(b.Name)
		for _, m := range b.Members {
			h.String(m.Name).Uint32(m.Offset).Uint32(m.Range)
		}
	}
	return &DescriptorSetLayout{
		Key:      DescriptorSetLayoutKey(h.Sum()),
		Bindings: sorted,
	}
}

/** @brief True when any binding is an image sampler. Such sets must never be reused from a cache. */
func (l *DescriptorSetLayout) HasImages() bool {
	for _, b := range l.Bindings {
		if b.Type == DescriptorTypeCombinedImageSampler {
			return true
		}
	}
	return false
}

/** @brief Number of dynamic offsets a bind of this layout consumes. */
func (l *DescriptorSetLayout) DynamicOffsetCount() int {
	n := 0
	for _, b := range l.Bindings {
		if b.Type == DescriptorTypeUniformBufferDynamic {
			n += int(b.Count)
		}
	}
	return n
}

/** @brief Descriptor counts per type, used to size pools. */
func (l *DescriptorSetLayout) TypeCounts() map[DescriptorType]uint32 {
	counts := map[DescriptorType]uint32{}
	for _, b := range l.Bindings {
		counts[b.Type] += b.Count
	}
	return counts
}

/** @brief Whether any binding of the layout is named name. */
func (l *DescriptorSetLayout) References(name string) bool {
	for _, b := range l.Bindings {
		if b.Name == name {
			return true
		}
	}
	return false
}
