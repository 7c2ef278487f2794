package immediate

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/immediate/engine/core"
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

type uniformRef struct {
	block  *UboState
	member string
}

/**
 * @brief An immediate mode rendering context. Shaders are registered first; the
 * context then locks its shader set, builds layouts and pools and renders frames
 * between Begin and End. A Context must only be used from one goroutine.
 */
type Context struct {
	device   Device
	settings Settings

	buffer    HostBuffer
	allocator *FrameAllocator

	shaders []*metadata.Shader
	// 1-based registration index, kept here so one shader can serve several contexts
	shaderIDs       map[*metadata.Shader]uint32
	pipelineLayouts []metadata.PipelineLayoutHandle
	// layouts the context created and must destroy
	ownedLayouts []metadata.PipelineLayoutHandle
	finalized    bool

	ubos     map[string]*UboState
	uniforms map[string]uniformRef

	pipelineState PipelineState
	pipelines     *PipelineCache
	descriptors   *DescriptorSetCache
	sets          setBindingState
	textures      map[string]*metadata.Texture

	frameIndex int
	recording  bool
	err        error
	stats      core.RenderStats

	// scratch reused between draws
	writes  []DescriptorWrite
	handles []metadata.DescriptorSetHandle
	offsets []uint32
}

/** @brief Creates the context, the shared frame buffer and the native pipeline cache. */
func NewContext(device Device, settings Settings) (*Context, error) {
	if device == nil {
		return nil, errors.New("immediate context needs a device")
	}
	if err := settings.validate(); err != nil {
		return nil, err
	}
	c := &Context{
		device:    device,
		settings:  settings,
		ubos:      make(map[string]*UboState),
		uniforms:  make(map[string]uniformRef),
		textures:  make(map[string]*metadata.Texture),
		shaderIDs: make(map[*metadata.Shader]uint32),
	}

	size := uint64(settings.VirtualFrames) * settings.FrameSize
	buffer, err := device.CreateHostBuffer(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create frame buffer of %d bytes: %w", size, err)
	}
	c.buffer = buffer
	c.allocator, err = NewFrameAllocator(buffer, settings.VirtualFrames, settings.FrameSize, device.Limits())
	if err != nil {
		device.DestroyBuffer(buffer.Handle)
		return nil, err
	}

	blob := LoadPipelineCacheData(settings.PipelineCachePath, device.Identity())
	native, err := device.CreatePipelineCache(blob)
	if err != nil && blob != nil {
		core.LogWarn("driver rejected pipeline cache data, starting empty: %v", err)
		native, err = device.CreatePipelineCache(nil)
	}
	if err != nil {
		device.DestroyBuffer(buffer.Handle)
		return nil, fmt.Errorf("failed to create pipeline cache: %w", err)
	}
	c.pipelines = NewPipelineCache(device, native, &c.stats)

	core.LogInfo("immediate context created: %d virtual frames of %d bytes", settings.VirtualFrames, settings.FrameSize)
	return c, nil
}

/** @brief Registers a shader. Only allowed before the context is finalized. */
func (c *Context) AddShader(shader *metadata.Shader) error {
	if c.finalized {
		name := ""
		if shader != nil {
			name = shader.Name
		}
		core.LogError("cannot add shader '%s': %v", name, core.ErrContextFinalized)
		return core.ErrContextFinalized
	}
	if shader == nil {
		return errors.New("cannot add a nil shader")
	}
	if _, ok := c.shaderIDs[shader]; ok {
		core.LogWarn("shader '%s' is already registered", shader.Name)
		return nil
	}
	c.shaders = append(c.shaders, shader)
	c.shaderIDs[shader] = uint32(len(c.shaders))
	return nil
}

func (c *Context) Shaders() []*metadata.Shader {
	return c.shaders
}

func (c *Context) Finalized() bool {
	return c.finalized
}

/**
 * @brief Locks the shader set and builds everything derived from it: native set
 * layouts, pipeline layouts, descriptor pools and uniform block storage.
 * Called by the first Begin when not called explicitly.
 */
func (c *Context) Finalize() error {
	if c.finalized {
		return nil
	}
	if len(c.shaders) == 0 {
		return core.ErrNoShader
	}

	var layouts []*metadata.DescriptorSetLayout
	for _, s := range c.shaders {
		for i, l := range s.SetLayouts {
			if l == nil {
				return fmt.Errorf("shader '%s' has no layout for set %d", s.Name, i)
			}
			layouts = append(layouts, l)
		}
	}
	descriptors, err := NewDescriptorSetCache(c.device, layouts, c.settings.VirtualFrames,
		c.settings.MaxDescriptorPoolsPerFrame, c.settings.DescriptorSetsPerPool, &c.stats)
	if err != nil {
		return err
	}
	c.descriptors = descriptors

	c.pipelineLayouts = make([]metadata.PipelineLayoutHandle, len(c.shaders))
	for i, s := range c.shaders {
		if s.PipelineLayout != 0 {
			c.pipelineLayouts[i] = s.PipelineLayout
			continue
		}
		handles := make([]metadata.DescriptorSetLayoutHandle, len(s.SetLayouts))
		for j, l := range s.SetLayouts {
			handles[j], _ = descriptors.Layout(l.Key)
		}
		pl, err := c.device.CreatePipelineLayout(handles)
		if err != nil {
			c.destroyLayouts()
			c.pipelineLayouts = nil
			descriptors.Destroy()
			c.descriptors = nil
			return fmt.Errorf("failed to create pipeline layout for shader '%s': %w", s.Name, err)
		}
		c.pipelineLayouts[i] = pl
		c.ownedLayouts = append(c.ownedLayouts, pl)
	}

	c.initialiseUniforms()
	c.finalized = true
	core.LogInfo("immediate context finalized with %d shaders, %d uniform blocks", len(c.shaders), len(c.ubos))
	return nil
}

// initialiseUniforms creates one block per distinct block name and indexes every
// member both as "Block.member" and as plain "member".
func (c *Context) initialiseUniforms() {
	for _, s := range c.shaders {
		s.EachUniformBlock(func(set int, b *metadata.DescriptorBinding) {
			if existing, ok := c.ubos[b.Name]; ok {
				if existing.Size() != int(b.Size) {
					core.LogError("uniform block '%s' of shader '%s' is %d bytes, first declared with %d; keeping the first",
						b.Name, s.Name, b.Size, existing.Size())
				}
				return
			}
			u := newUboState(b)
			c.ubos[b.Name] = u
			for _, m := range b.Members {
				c.uniforms[b.Name+"."+m.Name] = uniformRef{block: u, member: m.Name}
				if prev, ok := c.uniforms[m.Name]; ok && prev.block != u {
					core.LogWarn("uniform '%s' is declared in blocks '%s' and '%s', '%s' now refers to '%s.%s'",
						m.Name, prev.block.Name, u.Name, m.Name, u.Name, m.Name)
				}
				c.uniforms[m.Name] = uniformRef{block: u, member: m.Name}
			}
		})
	}
	// matrices start out as identity so that Translate and Rotate compose from a sane base
	identity, _ := encodeUniform(mgl32.Ident4())
	for _, name := range []string{ModelMatrixUniform, ViewMatrixUniform, ProjectionMatrixUniform} {
		if ref, ok := c.uniforms[name]; ok {
			if err := ref.block.setMember(ref.member, identity); err != nil {
				core.LogWarn("uniform '%s' cannot hold a 4x4 matrix: %v", name, err)
			}
		}
	}
}

/**
 * @brief Starts recording frame frameIndex. The caller guarantees that the GPU has
 * finished with the previous use of that slot.
 */
func (c *Context) Begin(frameIndex int) error {
	if !c.finalized {
		if err := c.Finalize(); err != nil {
			core.LogError("failed to finalize context: %v", err)
			return err
		}
	}
	if frameIndex < 0 || frameIndex >= c.settings.VirtualFrames {
		err := fmt.Errorf("%w: %d (frames=%d)", core.ErrInvalidFrameIndex, frameIndex, c.settings.VirtualFrames)
		core.LogError("begin: %v", err)
		return err
	}
	if err := c.allocator.Reset(frameIndex); err != nil {
		return err
	}
	if err := c.descriptors.BeginFrame(frameIndex); err != nil {
		core.LogError("begin: %v", err)
		return err
	}
	for _, u := range c.ubos {
		u.reset()
	}
	c.pipelineState.reset(c.shaders[0], 1, c.settings.DefaultRenderPass)
	c.sets.reset()

	c.frameIndex = frameIndex
	c.recording = true
	c.err = nil
	c.stats.Frames++
	return nil
}

/** @brief Ends the frame and reports the first error recorded since Begin. */
func (c *Context) End() error {
	c.recording = false
	return c.err
}

/** @brief First error recorded since the last Begin. Fluent calls report failures here. */
func (c *Context) Err() error {
	return c.err
}

func (c *Context) fail(err error) {
	core.LogError("%v", err)
	if c.err == nil {
		c.err = err
	}
}

func (c *Context) FrameIndex() int {
	return c.frameIndex
}

/** @brief Handle of the shared buffer every draw allocates from. */
func (c *Context) Buffer() metadata.BufferHandle {
	return c.buffer.Handle
}

func (c *Context) Stats() core.RenderStats {
	return c.stats
}

/** @brief Writes the pipeline cache blob back and releases every native object the context owns. */
func (c *Context) Destroy() {
	if c.pipelines != nil {
		if data, err := c.device.PipelineCacheData(c.pipelines.Native()); err != nil {
			core.LogWarn("failed to read pipeline cache data: %v", err)
		} else if err := SavePipelineCacheData(c.settings.PipelineCachePath, data); err != nil {
			core.LogWarn("failed to write pipeline cache '%s': %v", c.settings.PipelineCachePath, err)
		}
		c.pipelines.Destroy()
		c.device.DestroyPipelineCache(c.pipelines.Native())
		c.pipelines = nil
	}
	c.destroyLayouts()
	if c.descriptors != nil {
		c.descriptors.Destroy()
		c.descriptors = nil
	}
	if c.buffer.Handle != 0 {
		c.device.DestroyBuffer(c.buffer.Handle)
		c.buffer = HostBuffer{}
	}
	c.recording = false
}

func (c *Context) destroyLayouts() {
	for _, pl := range c.ownedLayouts {
		c.device.DestroyPipelineLayout(pl)
	}
	c.ownedLayouts = nil
}

func (c *Context) pipelineLayout(shader *metadata.Shader) (metadata.PipelineLayoutHandle, bool) {
	id, ok := c.shaderIDs[shader]
	if !ok || int(id) > len(c.pipelineLayouts) {
		return 0, false
	}
	return c.pipelineLayouts[id-1], true
}

// writeSource
func (c *Context) uniformBuffer() metadata.BufferHandle {
	return c.buffer.Handle
}

func (c *Context) boundTexture(name string) *metadata.Texture {
	if t, ok := c.textures[name]; ok {
		return t
	}
	return c.settings.DefaultTexture
}
