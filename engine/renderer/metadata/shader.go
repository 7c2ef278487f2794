package metadata

/**
 * @brief A compiled stage of a shader program.
 */
type ShaderStageModule struct {
	Stage  ShaderStage
	Module ShaderModuleHandle
	/** @brief Entry point name, "main" when empty. */
	EntryPoint string
}

/**
 * @brief Represents a reflected shader program. Reflection and compilation happen
 * elsewhere; this is the finished description the renderer consumes.
 */
type Shader struct {
	Name string

	Stages []ShaderStageModule

	/** @brief Descriptor set layouts indexed by set number. */
	SetLayouts []*DescriptorSetLayout

	/** @brief Vertex attributes read by the vertex stage. */
	Attributes VertexAttributeMask

	/** @brief Optional pre-built pipeline layout. When zero the renderer creates one from SetLayouts. */
	PipelineLayout PipelineLayoutHandle
}

/** @brief Calls fn for every uniform block binding of the shader, in set then binding order. */
func (s *Shader) EachUniformBlock(fn func(set int, b *DescriptorBinding)) {
	for i, l := range s.SetLayouts {
		if l == nil {
			continue
		}
		for j := range l.Bindings {
			if l.Bindings[j].Type == DescriptorTypeUniformBufferDynamic {
				fn(i, &l.Bindings[j])
			}
		}
	}
}

func (s *Shader) EntryPoint(i int) string {
	if s.Stages[i].EntryPoint == "" {
		return "main"
	}
	return s.Stages[i].EntryPoint
}
