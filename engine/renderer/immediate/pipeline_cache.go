package immediate

import (
	"fmt"

	"github.com/spaghettifunk/immediate/engine/core"
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

type pipelineEntry struct {
	key      PipelineStateKey
	pipeline metadata.PipelineHandle
	// set when compilation failed; the key is never compiled again
	err error
}

/**
 * @brief Maps the hash of a PipelineStateKey to a compiled pipeline. Entries are
 * filled lazily and live until Destroy.
 */
type PipelineCache struct {
	device  Device
	native  metadata.PipelineCacheHandle
	entries map[uint64]*pipelineEntry
	// keys whose hash collided with the key already stored under that hash
	collisions map[uint64][]*pipelineEntry
	stats      *core.RenderStats
	hash       func(PipelineStateKey) uint64
}

func NewPipelineCache(device Device, native metadata.PipelineCacheHandle, stats *core.RenderStats) *PipelineCache {
	if stats == nil {
		stats = &core.RenderStats{}
	}
	return &PipelineCache{
		device:     device,
		native:     native,
		entries:    make(map[uint64]*pipelineEntry),
		collisions: make(map[uint64][]*pipelineEntry),
		stats:      stats,
		hash:       PipelineStateKey.Hash,
	}
}

/** @brief Returns the pipeline for desc, compiling it on a miss. Compilation blocks. */
func (c *PipelineCache) Get(desc *PipelineDesc) (metadata.PipelineHandle, error) {
	hash := c.hash(desc.Key)
	e, ok := c.entries[hash]
	if !ok {
		return c.insert(hash, desc, func(e *pipelineEntry) { c.entries[hash] = e })
	}
	if e.key != desc.Key {
		e = nil
		for _, other := range c.collisions[hash] {
			if other.key == desc.Key {
				e = other
				break
			}
		}
		if e == nil {
			core.LogWarn("pipeline hash collision on %016x, keeping the key in a side list", hash)
			return c.insert(hash, desc, func(e *pipelineEntry) {
				c.collisions[hash] = append(c.collisions[hash], e)
			})
		}
	}
	c.stats.PipelineCacheHits++
	if e.err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrPipelineUnavailable, e.err)
	}
	return e.pipeline, nil
}

func (c *PipelineCache) insert(hash uint64, desc *PipelineDesc, store func(*pipelineEntry)) (metadata.PipelineHandle, error) {
	pipeline, err := c.compile(hash, desc)
	store(&pipelineEntry{key: desc.Key, pipeline: pipeline, err: err})
	return pipeline, err
}

func (c *PipelineCache) compile(hash uint64, desc *PipelineDesc) (metadata.PipelineHandle, error) {
	name := ""
	if desc.Shader != nil {
		name = desc.Shader.Name
	}
	core.LogInfo("Creating pipeline %016x for shader '%s', this can be very costly", hash, name)
	pipeline, err := c.device.CreateGraphicsPipeline(c.native, desc)
	if err != nil {
		c.stats.PipelineCompileErrors++
		return 0, fmt.Errorf("%w: shader '%s': %v", core.ErrPipelineCompilation, name, err)
	}
	c.stats.PipelinesCompiled++
	return pipeline, nil
}

func (c *PipelineCache) Len() int {
	n := len(c.entries)
	for _, list := range c.collisions {
		n += len(list)
	}
	return n
}

func (c *PipelineCache) Native() metadata.PipelineCacheHandle {
	return c.native
}

/** @brief Destroys every compiled pipeline. The native pipeline cache is left to the caller. */
func (c *PipelineCache) Destroy() {
	destroy := func(e *pipelineEntry) {
		if e.err == nil && e.pipeline != 0 {
			c.device.DestroyPipeline(e.pipeline)
		}
	}
	for hash, e := range c.entries {
		destroy(e)
		delete(c.entries, hash)
	}
	for hash, list := range c.collisions {
		for _, e := range list {
			destroy(e)
		}
		delete(c.collisions, hash)
	}
}
