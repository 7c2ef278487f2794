package immediate

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spaghettifunk/immediate/engine/core"
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

/** @brief One slot of a binding table: which block or image feeds a binding. */
type tableEntry struct {
	Binding uint32
	Type    metadata.DescriptorType
	Count   uint32
	Name    string
	Size    uint32
}

/** @brief An allocated descriptor set together with the binding table it was written with. */
type descriptorSetEntry struct {
	set    metadata.DescriptorSetHandle
	layout *metadata.DescriptorSetLayout
	table  []tableEntry
}

type framePools struct {
	pools   []metadata.DescriptorPoolHandle
	current int
	// sets written this frame, keyed by layout; image layouts never land here
	cache map[metadata.DescriptorSetLayoutKey]*descriptorSetEntry
}

/**
 * @brief Allocates and reuses descriptor sets per virtual frame. Native set layouts
 * are created once for every distinct layout key. Each frame owns a bank of pools
 * that is reset as a whole when the frame begins.
 */
type DescriptorSetCache struct {
	device  Device
	layouts map[metadata.DescriptorSetLayoutKey]metadata.DescriptorSetLayoutHandle

	maxSets  uint32
	sizes    []DescriptorPoolSize
	maxPools int
	frames   []framePools

	stats *core.RenderStats
}

/**
 * @brief Creates native set layouts and the first pool of every frame. Pools hold
 * setsPerLayout sets for each distinct layout and are sized from the summed
 * binding type counts.
 */
func NewDescriptorSetCache(device Device, layouts []*metadata.DescriptorSetLayout, frames, maxPools int, setsPerLayout uint32, stats *core.RenderStats) (*DescriptorSetCache, error) {
	if stats == nil {
		stats = &core.RenderStats{}
	}
	if setsPerLayout == 0 {
		setsPerLayout = 1
	}
	c := &DescriptorSetCache{
		device:   device,
		layouts:  make(map[metadata.DescriptorSetLayoutKey]metadata.DescriptorSetLayoutHandle),
		maxPools: max(maxPools, 1),
		frames:   make([]framePools, frames),
		stats:    stats,
	}

	counts := map[metadata.DescriptorType]uint32{}
	for _, l := range layouts {
		if l == nil {
			continue
		}
		if _, ok := c.layouts[l.Key]; ok {
			continue
		}
		h, err := device.CreateDescriptorSetLayout(l)
		if err != nil {
			c.Destroy()
			return nil, fmt.Errorf("failed to create descriptor set layout %016x: %w", l.Key, err)
		}
		c.layouts[l.Key] = h
		for t, n := range l.TypeCounts() {
			counts[t] += n * setsPerLayout
		}
	}
	c.maxSets = uint32(len(c.layouts)) * setsPerLayout

	types := make([]metadata.DescriptorType, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	slices.Sort(types)
	for _, t := range types {
		c.sizes = append(c.sizes, DescriptorPoolSize{Type: t, Count: counts[t]})
	}

	if c.maxSets == 0 {
		// nothing to allocate, keep the frames empty
		for i := range c.frames {
			c.frames[i].cache = map[metadata.DescriptorSetLayoutKey]*descriptorSetEntry{}
		}
		return c, nil
	}
	for i := range c.frames {
		pool, err := device.CreateDescriptorPool(c.maxSets, c.sizes)
		if err != nil {
			c.Destroy()
			return nil, fmt.Errorf("failed to create descriptor pool for frame %d: %w", i, err)
		}
		c.frames[i].pools = []metadata.DescriptorPoolHandle{pool}
		c.frames[i].cache = map[metadata.DescriptorSetLayoutKey]*descriptorSetEntry{}
	}
	return c, nil
}

/** @brief Native handle of the set layout with the given key. */
func (c *DescriptorSetCache) Layout(key metadata.DescriptorSetLayoutKey) (metadata.DescriptorSetLayoutHandle, bool) {
	h, ok := c.layouts[key]
	return h, ok
}

func (c *DescriptorSetCache) PoolSizes() (uint32, []DescriptorPoolSize) {
	return c.maxSets, c.sizes
}

func (c *DescriptorSetCache) PoolCount(frameIndex int) int {
	return len(c.frames[frameIndex].pools)
}

/** @brief Resets every pool of the frame, which frees all of its sets, and forgets the cached ones. */
func (c *DescriptorSetCache) BeginFrame(frameIndex int) error {
	f := &c.frames[frameIndex]
	for _, p := range f.pools {
		if err := c.device.ResetDescriptorPool(p); err != nil {
			return fmt.Errorf("failed to reset descriptor pool of frame %d: %w", frameIndex, err)
		}
	}
	f.current = 0
	clear(f.cache)
	return nil
}

/**
 * @brief Returns a set for layout in the given frame. Layouts without images are
 * served from the frame cache when possible; otherwise a fresh set is allocated and
 * its writes are appended to writes. The caller submits all writes in one batch.
 */
func (c *DescriptorSetCache) Resolve(frameIndex int, layout *metadata.DescriptorSetLayout, src writeSource, writes []DescriptorWrite) (*descriptorSetEntry, []DescriptorWrite, error) {
	f := &c.frames[frameIndex]
	cacheable := !layout.HasImages()
	if cacheable {
		if e, ok := f.cache[layout.Key]; ok {
			c.stats.DescriptorSetsReused++
			return e, writes, nil
		}
	}

	native, ok := c.layouts[layout.Key]
	if !ok {
		return nil, writes, fmt.Errorf("descriptor set layout %016x was not registered", layout.Key)
	}
	set, err := c.allocate(frameIndex, native)
	if err != nil {
		return nil, writes, err
	}

	e := &descriptorSetEntry{
		set:    set,
		layout: layout,
		table:  make([]tableEntry, 0, len(layout.Bindings)),
	}
	mark := len(writes)
	for _, b := range layout.Bindings {
		e.table = append(e.table, tableEntry{Binding: b.Binding, Type: b.Type, Count: b.Count, Name: b.Name, Size: b.Size})
		for el := uint32(0); el < b.Count; el++ {
			w := DescriptorWrite{Set: set, Binding: b.Binding, ArrayElement: el, Type: b.Type}
			switch b.Type {
			case metadata.DescriptorTypeUniformBufferDynamic:
				w.Buffer = src.uniformBuffer()
				w.Offset = 0
				w.Range = uint64(b.Size)
			case metadata.DescriptorTypeCombinedImageSampler:
				tex := src.boundTexture(b.Name)
				if !tex.Valid() {
					return nil, writes[:mark], fmt.Errorf("%w: '%s'", core.ErrMissingTexture, b.Name)
				}
				w.Sampler = tex.Sampler
				w.View = tex.View
			}
			writes = append(writes, w)
		}
	}
	c.stats.DescriptorSetsAllocated++
	c.stats.DescriptorWrites += uint64(len(writes) - mark)
	if cacheable {
		f.cache[layout.Key] = e
	}
	return e, writes, nil
}

// allocate walks the frame's pool bank, growing it when every pool is full.
func (c *DescriptorSetCache) allocate(frameIndex int, layout metadata.DescriptorSetLayoutHandle) (metadata.DescriptorSetHandle, error) {
	f := &c.frames[frameIndex]
	for {
		if f.current >= len(f.pools) {
			if len(f.pools) >= c.maxPools {
				return 0, fmt.Errorf("%w: frame %d uses all %d pools", core.ErrDescriptorPoolExhausted, frameIndex, len(f.pools))
			}
			pool, err := c.device.CreateDescriptorPool(c.maxSets, c.sizes)
			if err != nil {
				return 0, fmt.Errorf("failed to grow descriptor pools of frame %d: %w", frameIndex, err)
			}
			core.LogWarn("descriptor pool of frame %d exhausted, growing to %d pools", frameIndex, len(f.pools)+1)
			f.pools = append(f.pools, pool)
			c.stats.DescriptorPoolGrowths++
		}
		set, err := c.device.AllocateDescriptorSet(f.pools[f.current], layout)
		if err == nil {
			return set, nil
		}
		if !errors.Is(err, core.ErrDescriptorPoolExhausted) {
			return 0, err
		}
		f.current++
	}
}

func (c *DescriptorSetCache) Destroy() {
	for i := range c.frames {
		for _, p := range c.frames[i].pools {
			c.device.DestroyDescriptorPool(p)
		}
		c.frames[i].pools = nil
		clear(c.frames[i].cache)
	}
	for k, h := range c.layouts {
		c.device.DestroyDescriptorSetLayout(h)
		delete(c.layouts, k)
	}
}

/** @brief Where descriptor writes take their resources from. */
type writeSource interface {
	uniformBuffer() metadata.BufferHandle
	boundTexture(name string) *metadata.Texture
}

type boundSet struct {
	key   metadata.DescriptorSetLayoutKey
	entry *descriptorSetEntry
	dirty bool
}

/** @brief The sets bound for the current pipeline layout, by set index. */
type setBindingState struct {
	sets []boundSet
}

func (s *setBindingState) reset() {
	s.sets = s.sets[:0]
}

/**
 * @brief Compares the new layouts with the bound ones position by position. Every
 * index from the first mismatch on needs to be resolved again.
 */
func (s *setBindingState) bindLayouts(layouts []*metadata.DescriptorSetLayout) int {
	first := len(layouts)
	for i, l := range layouts {
		if i >= len(s.sets) || s.sets[i].key != l.Key {
			first = i
			break
		}
	}
	if cap(s.sets) < len(layouts) {
		grown := make([]boundSet, len(layouts))
		copy(grown, s.sets)
		s.sets = grown
	} else {
		s.sets = s.sets[:len(layouts)]
	}
	for i := first; i < len(layouts); i++ {
		s.sets[i] = boundSet{key: layouts[i].Key, dirty: true}
	}
	return first
}

/** @brief Marks every bound set that reads name dirty. */
func (s *setBindingState) invalidate(name string) {
	for i := range s.sets {
		if s.sets[i].entry != nil && s.sets[i].entry.layout.References(name) {
			s.sets[i].dirty = true
		}
	}
}
