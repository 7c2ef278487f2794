package immediate

import (
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/immediate/engine/core"
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

/** @brief Where the attributes of one draw were uploaded. Absent attributes have zero size. */
type meshDrawRecord struct {
	present    metadata.VertexAttributeMask
	offsets    [metadata.VertexAttributeCount]uint64
	sizes      [metadata.VertexAttributeCount]uint64
	indexed    bool
	indexOff   uint64
	indexCount uint32
	vertices   uint32
}

/** @brief Draws mesh with the current state. Failures are logged and reported through Err. */
func (c *Context) Draw(cmd CommandRecorder, mesh *metadata.Mesh) *Context {
	if err := c.DrawMesh(cmd, mesh); err != nil {
		c.fail(err)
	}
	return c
}

/**
 * @brief Draws mesh with the current state: binds the pipeline when the state
 * changed, uploads dirty uniform blocks, brings descriptor sets up to date, uploads
 * the attributes into the current frame and records the draw.
 */
func (c *Context) DrawMesh(cmd CommandRecorder, mesh *metadata.Mesh) error {
	if !c.recording {
		return core.ErrContextNotRecording
	}
	shader := c.pipelineState.Shader()
	if shader == nil {
		return core.ErrNoShader
	}
	if mesh == nil || mesh.VertexCount() == 0 {
		core.LogDebug("skipping draw of an empty mesh")
		return nil
	}

	if err := c.bindPipeline(cmd, shader); err != nil {
		c.stats.DrawsFailed++
		return err
	}
	if err := c.bindDescriptorSets(cmd, shader); err != nil {
		c.stats.DrawsFailed++
		return err
	}
	rec, err := c.storeMesh(mesh, shader)
	if err != nil {
		c.stats.DrawsFailed++
		return err
	}
	c.recordDraw(cmd, rec)
	c.stats.Draws++
	return nil
}

func (c *Context) bindPipeline(cmd CommandRecorder, shader *metadata.Shader) error {
	if !c.pipelineState.Dirty() {
		return nil
	}
	layout, ok := c.pipelineLayout(shader)
	if !ok {
		return fmt.Errorf("%w: '%s' is not registered with this context", core.ErrNoShader, shader.Name)
	}
	desc := &PipelineDesc{
		Key:    c.pipelineState.Key(),
		Shader: shader,
		Layout: layout,
	}
	pipeline, err := c.pipelines.Get(desc)
	if err != nil {
		return err
	}
	cmd.BindPipeline(pipeline)
	c.sets.bindLayouts(shader.SetLayouts)
	c.pipelineState.clean()
	c.stats.PipelineBinds++
	return nil
}

func (c *Context) bindDescriptorSets(cmd CommandRecorder, shader *metadata.Shader) error {
	if len(c.sets.sets) == 0 {
		return nil
	}

	c.writes = c.writes[:0]
	for i := range c.sets.sets {
		bs := &c.sets.sets[i]
		if !bs.dirty {
			continue
		}
		entry, writes, err := c.descriptors.Resolve(c.frameIndex, shader.SetLayouts[i], c, c.writes)
		c.writes = writes
		if err != nil {
			// sets resolved so far keep their entries; this one stays dirty
			if len(c.writes) > 0 {
				c.device.UpdateDescriptorSets(c.writes)
			}
			return fmt.Errorf("set %d of shader '%s': %w", i, shader.Name, err)
		}
		bs.entry = entry
		bs.dirty = false
	}
	if len(c.writes) > 0 {
		c.device.UpdateDescriptorSets(c.writes)
	}

	c.handles = c.handles[:0]
	c.offsets = c.offsets[:0]
	for i := range c.sets.sets {
		e := c.sets.sets[i].entry
		c.handles = append(c.handles, e.set)
		for _, t := range e.table {
			if t.Type != metadata.DescriptorTypeUniformBufferDynamic {
				continue
			}
			offset, err := c.flushUniformBlock(t.Name)
			if err != nil {
				return err
			}
			for el := uint32(0); el < t.Count; el++ {
				c.offsets = append(c.offsets, uint32(offset))
			}
		}
	}
	layout, _ := c.pipelineLayout(shader)
	cmd.BindDescriptorSets(layout, 0, c.handles, c.offsets)
	return nil
}

func (c *Context) flushUniformBlock(name string) (uint64, error) {
	u, ok := c.ubos[name]
	if !ok {
		return 0, fmt.Errorf("%w: '%s'", core.ErrUnknownUniformBlock, name)
	}
	offset, uploaded, err := u.flush(c.allocator, c.frameIndex)
	if err != nil {
		c.stats.AllocationFailures++
		return 0, err
	}
	if uploaded {
		c.stats.UniformUploads++
		c.stats.BytesAllocated += uint64(u.Size())
	} else {
		c.stats.UniformReuses++
	}
	return offset, nil
}

/** @brief Copies the attributes the shader reads, and the indices, into the current frame. */
func (c *Context) storeMesh(mesh *metadata.Mesh, shader *metadata.Shader) (meshDrawRecord, error) {
	var rec meshDrawRecord
	wanted := shader.Attributes
	if wanted == 0 {
		wanted = metadata.VertexAttributeMaskAll
	}
	rec.vertices = uint32(mesh.VertexCount())

	for a := metadata.VertexAttributePosition; a < metadata.VertexAttributeCount; a++ {
		n := mesh.Count(a)
		if n == 0 || !wanted.Has(a) {
			continue
		}
		if n < mesh.VertexCount() {
			core.LogWarn("mesh has %d %s elements for %d vertices", n, a, mesh.VertexCount())
		}
		var data any
		switch a {
		case metadata.VertexAttributePosition:
			data = mesh.Positions
		case metadata.VertexAttributeColor:
			data = mesh.Colors
		case metadata.VertexAttributeNormal:
			data = mesh.Normals
		case metadata.VertexAttributeTexCoord:
			data = mesh.TexCoords
		}
		off, size, err := c.upload(data, uint64(n)*uint64(a.Stride()), UsageVertex)
		if err != nil {
			return rec, fmt.Errorf("%s attribute: %w", a, err)
		}
		rec.present = rec.present.With(a)
		rec.offsets[a] = off
		rec.sizes[a] = size
	}

	if len(mesh.Indices) > 0 {
		off, _, err := c.upload(mesh.Indices, uint64(len(mesh.Indices))*4, UsageIndex)
		if err != nil {
			return rec, fmt.Errorf("indices: %w", err)
		}
		rec.indexed = true
		rec.indexOff = off
		rec.indexCount = uint32(len(mesh.Indices))
	}
	c.stats.MeshUploads++
	return rec, nil
}

func (c *Context) upload(data any, size uint64, usage BufferUsage) (uint64, uint64, error) {
	mem, offset, err := c.allocator.Allocate(size, usage, c.frameIndex)
	if err != nil {
		c.stats.AllocationFailures++
		return 0, 0, err
	}
	if _, err := binary.Encode(mem, binary.LittleEndian, data); err != nil {
		return 0, 0, err
	}
	c.stats.BytesAllocated += size
	return offset, size, nil
}

// recordDraw binds every run of consecutive present attributes with one call so that
// each attribute keeps its binding number.
func (c *Context) recordDraw(cmd CommandRecorder, rec meshDrawRecord) {
	buffer := c.buffer.Handle
	for a := metadata.VertexAttributePosition; a < metadata.VertexAttributeCount; {
		if !rec.present.Has(a) {
			a++
			continue
		}
		first := a
		var buffers []metadata.BufferHandle
		var offsets []uint64
		for ; a < metadata.VertexAttributeCount && rec.present.Has(a); a++ {
			buffers = append(buffers, buffer)
			offsets = append(offsets, rec.offsets[a])
		}
		cmd.BindVertexBuffers(uint32(first), buffers, offsets)
	}

	if rec.indexed {
		cmd.BindIndexBuffer(buffer, rec.indexOff)
		cmd.DrawIndexed(rec.indexCount, 1, 0, 0, 0)
		return
	}
	cmd.Draw(rec.vertices, 1, 0, 0)
}
