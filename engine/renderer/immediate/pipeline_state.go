package immediate

import (
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

/**
 * @brief The fields that decide which graphics pipeline a draw needs. Two keys with
 * equal fields always describe the same pipeline.
 */
type PipelineStateKey struct {
	ShaderID    uint32
	Topology    metadata.PrimitiveTopology
	PolygonMode metadata.PolygonMode
	RenderPass  metadata.RenderPassHandle
	Subpass     uint32
	CullMode    metadata.FaceCullMode
	FrontFace   metadata.FrontFace
	DepthTest   bool
	DepthWrite  bool
	Blend       bool
}

func (k PipelineStateKey) Hash() uint64 {
	return metadata.NewHasher().
		Uint32(k.ShaderID).
		Uint32(uint32(k.Topology)).
		Uint32(uint32(k.PolygonMode)).
		Uint64(uint64(k.RenderPass)).
		Uint32(k.Subpass).
		Uint32(uint32(k.CullMode)).
		Uint32(uint32(k.FrontFace)).
		Bool(k.DepthTest).
		Bool(k.DepthWrite).
		Bool(k.Blend).
		Sum()
}

func defaultPipelineStateKey(shaderID uint32, renderPass metadata.RenderPassHandle) PipelineStateKey {
	return PipelineStateKey{
		ShaderID:    shaderID,
		Topology:    metadata.PrimitiveTopologyTriangleList,
		PolygonMode: metadata.PolygonModeFill,
		RenderPass:  renderPass,
		CullMode:    metadata.FaceCullModeNone,
		FrontFace:   metadata.FrontFaceCounterClockwise,
		DepthTest:   true,
		DepthWrite:  true,
		Blend:       true,
	}
}

/**
 * @brief Dirty tracked pipeline state. Setters only mark the state dirty when the
 * value actually changes.
 */
type PipelineState struct {
	key    PipelineStateKey
	shader *metadata.Shader
	dirty  bool
}

// shaderID is the context local id of shader, 0 when shader is nil.
func (s *PipelineState) reset(shader *metadata.Shader, shaderID uint32, renderPass metadata.RenderPassHandle) {
	s.key = defaultPipelineStateKey(shaderID, renderPass)
	s.shader = shader
	s.dirty = true
}

func (s *PipelineState) Key() PipelineStateKey {
	return s.key
}

func (s *PipelineState) Shader() *metadata.Shader {
	return s.shader
}

func (s *PipelineState) Dirty() bool {
	return s.dirty
}

func (s *PipelineState) clean() {
	s.dirty = false
}

func (s *PipelineState) setShader(shader *metadata.Shader, shaderID uint32) {
	if s.shader == shader {
		return
	}
	s.shader = shader
	s.key.ShaderID = shaderID
	s.dirty = true
}

func (s *PipelineState) setTopology(v metadata.PrimitiveTopology) {
	if s.key.Topology != v {
		s.key.Topology = v
		s.dirty = true
	}
}

func (s *PipelineState) setPolygonMode(v metadata.PolygonMode) {
	if s.key.PolygonMode != v {
		s.key.PolygonMode = v
		s.dirty = true
	}
}

func (s *PipelineState) setRenderPass(v metadata.RenderPassHandle, subpass uint32) {
	if s.key.RenderPass != v || s.key.Subpass != subpass {
		s.key.RenderPass = v
		s.key.Subpass = subpass
		s.dirty = true
	}
}

func (s *PipelineState) setCullMode(v metadata.FaceCullMode) {
	if s.key.CullMode != v {
		s.key.CullMode = v
		s.dirty = true
	}
}

func (s *PipelineState) setFrontFace(v metadata.FrontFace) {
	if s.key.FrontFace != v {
		s.key.FrontFace = v
		s.dirty = true
	}
}

func (s *PipelineState) setDepthTest(v bool) {
	if s.key.DepthTest != v {
		s.key.DepthTest = v
		s.dirty = true
	}
}

func (s *PipelineState) setDepthWrite(v bool) {
	if s.key.DepthWrite != v {
		s.key.DepthWrite = v
		s.dirty = true
	}
}

func (s *PipelineState) setBlend(v bool) {
	if s.key.Blend != v {
		s.key.Blend = v
		s.dirty = true
	}
}
