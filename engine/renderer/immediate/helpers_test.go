package immediate

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

func matricesBinding(slot uint32) metadata.DescriptorBinding {
	return metadata.DescriptorBinding{
		Binding: slot,
		Type:    metadata.DescriptorTypeUniformBufferDynamic,
		Name:    "DefaultMatrices",
		Size:    192,
		Stages:  metadata.ShaderStageVertex,
		Members: []metadata.UniformMember{
			{Name: "projectionMatrix", Offset: 0, Range: 64},
			{Name: "viewMatrix", Offset: 64, Range: 64},
			{Name: "modelMatrix", Offset: 128, Range: 64},
		},
	}
}

func styleBinding(slot uint32) metadata.DescriptorBinding {
	return metadata.DescriptorBinding{
		Binding: slot,
		Type:    metadata.DescriptorTypeUniformBufferDynamic,
		Name:    "Style",
		Size:    32,
		Stages:  metadata.ShaderStageFragment,
		Members: []metadata.UniformMember{
			{Name: "globalColor", Offset: 0, Range: 16},
			{Name: "intensity", Offset: 16, Range: 4},
		},
	}
}

func lightBinding(slot uint32) metadata.DescriptorBinding {
	return metadata.DescriptorBinding{
		Binding: slot,
		Type:    metadata.DescriptorTypeUniformBufferDynamic,
		Name:    "Light",
		Size:    32,
		Stages:  metadata.ShaderStageFragment,
		Members: []metadata.UniformMember{
			{Name: "direction", Offset: 0, Range: 16},
			{Name: "intensity", Offset: 16, Range: 4},
		},
	}
}

func samplerBinding(slot uint32, name string) metadata.DescriptorBinding {
	return metadata.DescriptorBinding{
		Binding: slot,
		Type:    metadata.DescriptorTypeCombinedImageSampler,
		Name:    name,
		Stages:  metadata.ShaderStageFragment,
	}
}

// flatShader: set 0 = {DefaultMatrices, Style}
func flatShader() *metadata.Shader {
	return &metadata.Shader{
		Name: "flat",
		Stages: []metadata.ShaderStageModule{
			{Stage: metadata.ShaderStageVertex, Module: 101},
			{Stage: metadata.ShaderStageFragment, Module: 102},
		},
		SetLayouts: []*metadata.DescriptorSetLayout{
			metadata.NewDescriptorSetLayout([]metadata.DescriptorBinding{matricesBinding(0), styleBinding(1)}),
		},
		Attributes: metadata.VertexAttributeMask(0).With(metadata.VertexAttributePosition).With(metadata.VertexAttributeColor),
	}
}

// texturedShader shares set 0 with flatShader and adds set 1 = {tex0}
func texturedShader() *metadata.Shader {
	return &metadata.Shader{
		Name: "textured",
		SetLayouts: []*metadata.DescriptorSetLayout{
			metadata.NewDescriptorSetLayout([]metadata.DescriptorBinding{matricesBinding(0), styleBinding(1)}),
			metadata.NewDescriptorSetLayout([]metadata.DescriptorBinding{samplerBinding(0, "tex0")}),
		},
		Attributes: metadata.VertexAttributeMaskAll,
	}
}

// litShader: set 0 = {DefaultMatrices}, set 1 = {Light}
func litShader() *metadata.Shader {
	return &metadata.Shader{
		Name: "lit",
		SetLayouts: []*metadata.DescriptorSetLayout{
			metadata.NewDescriptorSetLayout([]metadata.DescriptorBinding{matricesBinding(0)}),
			metadata.NewDescriptorSetLayout([]metadata.DescriptorBinding{lightBinding(0)}),
		},
		Attributes: metadata.VertexAttributeMask(0).With(metadata.VertexAttributePosition).With(metadata.VertexAttributeNormal),
	}
}

func triangle() *metadata.Mesh {
	return &metadata.Mesh{
		Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Colors:    []mgl32.Vec4{{1, 0, 0, 1}, {0, 1, 0, 1}, {0, 0, 1, 1}},
	}
}

func quad() *metadata.Mesh {
	return &metadata.Mesh{
		Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		Normals:   []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		TexCoords: []mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
		Indices:   []uint32{0, 1, 2, 2, 3, 0},
	}
}

func testSettings() Settings {
	s := DefaultSettings()
	s.VirtualFrames = 3
	s.FrameSize = 64 << 10
	s.PipelineCachePath = ""
	s.DescriptorSetsPerPool = 8
	s.DefaultRenderPass = 7
	return s
}

// newTestContext registers shaders and finalizes.
func newTestContext(t *testing.T, settings Settings, shaders ...*metadata.Shader) (*Context, *fakeDevice) {
	t.Helper()
	dev := newFakeDevice()
	c, err := NewContext(dev, settings)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	for _, s := range shaders {
		if err := c.AddShader(s); err != nil {
			t.Fatalf("AddShader(%s): %v", s.Name, err)
		}
	}
	if err := c.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	t.Cleanup(c.Destroy)
	return c, dev
}
