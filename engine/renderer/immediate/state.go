package immediate

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/immediate/engine/core"
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

const (
	ModelMatrixUniform      = "modelMatrix"
	ViewMatrixUniform       = "viewMatrix"
	ProjectionMatrixUniform = "projectionMatrix"
)

/** @brief Selects the shader for the next draws. The shader must be registered with this context. */
func (c *Context) SetShader(shader *metadata.Shader) *Context {
	id, ok := c.shaderIDs[shader]
	if !ok {
		name := "<nil>"
		if shader != nil {
			name = shader.Name
		}
		c.fail(fmt.Errorf("%w: '%s' is not registered with this context", core.ErrNoShader, name))
		return c
	}
	c.pipelineState.setShader(shader, id)
	return c
}

func (c *Context) SetTopology(topology metadata.PrimitiveTopology) *Context {
	c.pipelineState.setTopology(topology)
	return c
}

func (c *Context) SetPolyMode(mode metadata.PolygonMode) *Context {
	c.pipelineState.setPolygonMode(mode)
	return c
}

func (c *Context) SetRenderPass(renderPass metadata.RenderPassHandle, subpass uint32) *Context {
	c.pipelineState.setRenderPass(renderPass, subpass)
	return c
}

func (c *Context) SetCullMode(mode metadata.FaceCullMode) *Context {
	c.pipelineState.setCullMode(mode)
	return c
}

func (c *Context) SetFrontFace(face metadata.FrontFace) *Context {
	c.pipelineState.setFrontFace(face)
	return c
}

func (c *Context) SetDepthTest(enabled bool) *Context {
	c.pipelineState.setDepthTest(enabled)
	return c
}

func (c *Context) SetDepthWrite(enabled bool) *Context {
	c.pipelineState.setDepthWrite(enabled)
	return c
}

func (c *Context) SetBlend(enabled bool) *Context {
	c.pipelineState.setBlend(enabled)
	return c
}

/** @brief Current pipeline state key. */
func (c *Context) PipelineState() PipelineStateKey {
	return c.pipelineState.Key()
}

/**
 * @brief Assigns a texture to every image binding called name. Sets that read it are
 * written again on the next draw. A nil texture falls back to the default texture.
 */
func (c *Context) SetTexture(name string, texture *metadata.Texture) *Context {
	if texture == nil {
		delete(c.textures, name)
	} else {
		c.textures[name] = texture
	}
	c.sets.invalidate(name)
	return c
}

/**
 * @brief Writes a uniform by "Block.member" or plain "member" name. Values are
 * packed little endian; see encodeUniform for the accepted types.
 */
func (c *Context) SetUniform(name string, value any) *Context {
	ref, ok := c.uniforms[name]
	if !ok {
		c.fail(c.uniformError(name))
		return c
	}
	data, err := encodeUniform(value)
	if err != nil {
		c.fail(fmt.Errorf("uniform '%s': %w", name, err))
		return c
	}
	if err := ref.block.setMember(ref.member, data); err != nil {
		c.fail(err)
	}
	return c
}

func (c *Context) uniformError(name string) error {
	if !c.finalized {
		return fmt.Errorf("%w: uniform '%s' is resolved by Finalize", core.ErrContextNotFinalized, name)
	}
	return fmt.Errorf("%w: '%s'", core.ErrUnknownUniform, name)
}

/** @brief Returns a copy of the current bytes of a uniform. */
func (c *Context) Uniform(name string) ([]byte, error) {
	ref, ok := c.uniforms[name]
	if !ok {
		return nil, c.uniformError(name)
	}
	data, _ := ref.block.member(ref.member)
	return append([]byte(nil), data...), nil
}

/** @brief Uniform block storage by block name. */
func (c *Context) UniformBlock(name string) (*UboState, bool) {
	u, ok := c.ubos[name]
	return u, ok
}

/** @brief Saves the state of a uniform block. */
func (c *Context) PushBuffer(block string) *Context {
	u, ok := c.ubos[block]
	if !ok {
		c.fail(fmt.Errorf("%w: '%s'", core.ErrUnknownUniformBlock, block))
		return c
	}
	u.push()
	return c
}

/** @brief Restores the last saved state of a uniform block. */
func (c *Context) PopBuffer(block string) *Context {
	u, ok := c.ubos[block]
	if !ok {
		c.fail(fmt.Errorf("%w: '%s'", core.ErrUnknownUniformBlock, block))
		return c
	}
	if err := u.pop(); err != nil {
		core.LogWarn("pop ignored: %v", err)
	}
	return c
}

// matrixBlock is the block holding the model matrix. Matrix stack operations act on it.
func (c *Context) matrixBlock() (*UboState, bool) {
	ref, ok := c.uniforms[ModelMatrixUniform]
	if !ok {
		c.fail(c.uniformError(ModelMatrixUniform))
		return nil, false
	}
	return ref.block, true
}

func (c *Context) PushMatrix() *Context {
	if u, ok := c.matrixBlock(); ok {
		u.push()
	}
	return c
}

func (c *Context) PopMatrix() *Context {
	if u, ok := c.matrixBlock(); ok {
		if err := u.pop(); err != nil {
			core.LogWarn("popMatrix ignored: %v", err)
		}
	}
	return c
}

/** @brief Current model matrix. Identity when the shader set declares none. */
func (c *Context) ModelMatrix() mgl32.Mat4 {
	return c.matrix(ModelMatrixUniform)
}

func (c *Context) matrix(name string) mgl32.Mat4 {
	ref, ok := c.uniforms[name]
	if !ok {
		return mgl32.Ident4()
	}
	data, _ := ref.block.member(ref.member)
	m, err := decodeMat4(data)
	if err != nil {
		return mgl32.Ident4()
	}
	return m
}

func (c *Context) SetModelMatrix(m mgl32.Mat4) *Context {
	return c.SetUniform(ModelMatrixUniform, m)
}

func (c *Context) SetViewMatrix(m mgl32.Mat4) *Context {
	return c.SetUniform(ViewMatrixUniform, m)
}

func (c *Context) SetProjectionMatrix(m mgl32.Mat4) *Context {
	return c.SetUniform(ProjectionMatrixUniform, m)
}

/** @brief Post-multiplies the model matrix with a translation. */
func (c *Context) Translate(v mgl32.Vec3) *Context {
	m := c.ModelMatrix().Mul4(mgl32.Translate3D(v[0], v[1], v[2]))
	return c.SetModelMatrix(m)
}

/** @brief Post-multiplies the model matrix with a rotation of radians around axis. */
func (c *Context) RotateRad(radians float32, axis mgl32.Vec3) *Context {
	if axis.Len() == 0 {
		core.LogWarn("rotate around a zero axis ignored")
		return c
	}
	m := c.ModelMatrix().Mul4(mgl32.HomogRotate3D(radians, axis.Normalize()))
	return c.SetModelMatrix(m)
}

/** @brief Like RotateRad, in degrees. */
func (c *Context) Rotate(degrees float32, axis mgl32.Vec3) *Context {
	return c.RotateRad(mgl32.DegToRad(degrees), axis)
}

/** @brief Post-multiplies the model matrix with a scale. */
func (c *Context) Scale(v mgl32.Vec3) *Context {
	m := c.ModelMatrix().Mul4(mgl32.Scale3D(v[0], v[1], v[2]))
	return c.SetModelMatrix(m)
}
