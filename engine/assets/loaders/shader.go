package loaders

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/immediate/engine/core"
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

/** @brief Turns the SPIR-V of one stage into a native module handle. */
type ModuleFactory func(stage metadata.ShaderStage, code []uint32) (metadata.ShaderModuleHandle, error)

type shaderFile struct {
	Name       string      `toml:"name"`
	Attributes []string    `toml:"attributes"`
	Stages     []stageFile `toml:"stages"`
	Sets       []setFile   `toml:"sets"`
}

type stageFile struct {
	Stage string `toml:"stage"`
	File  string `toml:"file"`
	Entry string `toml:"entry"`
}

type setFile struct {
	Set      uint32        `toml:"set"`
	Bindings []bindingFile `toml:"bindings"`
}

type bindingFile struct {
	Binding uint32       `toml:"binding"`
	Type    string       `toml:"type"`
	Name    string       `toml:"name"`
	Count   uint32       `toml:"count"`
	Size    uint32       `toml:"size"`
	Stages  []string     `toml:"stages"`
	Members []memberFile `toml:"members"`
}

type memberFile struct {
	Name   string `toml:"name"`
	Offset uint32 `toml:"offset"`
	Range  uint32 `toml:"range"`
}

/**
 * @brief Loads reflected shader descriptions. Stage files are resolved relative to
 * the description file.
 */
type ShaderLoader struct {
	Factory ModuleFactory
}

func (sl *ShaderLoader) Load(path string) (*metadata.Shader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	shader, err := sl.Parse(f, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if shader.Name == "" {
		shader.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	core.LogDebug("shader '%s' loaded from %s", shader.Name, path)
	return shader, nil
}

func (sl *ShaderLoader) Parse(r io.Reader, dir string) (*metadata.Shader, error) {
	var desc shaderFile
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&desc); err != nil {
		return nil, err
	}

	shader := &metadata.Shader{Name: desc.Name}
	for _, a := range desc.Attributes {
		attr, err := parseAttribute(a)
		if err != nil {
			return nil, err
		}
		shader.Attributes = shader.Attributes.With(attr)
	}

	layouts, err := parseSets(desc.Sets)
	if err != nil {
		return nil, err
	}
	shader.SetLayouts = layouts

	if len(desc.Stages) == 0 {
		return nil, fmt.Errorf("shader '%s' has no stages", desc.Name)
	}
	for _, s := range desc.Stages {
		stage, err := parseStage(s.Stage)
		if err != nil {
			return nil, err
		}
		module := metadata.ShaderModuleHandle(0)
		if sl.Factory != nil {
			code, err := LoadSPIRV(filepath.Join(dir, s.File))
			if err != nil {
				return nil, err
			}
			if module, err = sl.Factory(stage, code); err != nil {
				return nil, fmt.Errorf("stage %s: %w", s.Stage, err)
			}
		}
		shader.Stages = append(shader.Stages, metadata.ShaderStageModule{
			Stage:      stage,
			Module:     module,
			EntryPoint: s.Entry,
		})
	}
	return shader, nil
}

// Sets may be listed in any order but must be contiguous from 0.
func parseSets(sets []setFile) ([]*metadata.DescriptorSetLayout, error) {
	layouts := make([]*metadata.DescriptorSetLayout, len(sets))
	for _, s := range sets {
		if int(s.Set) >= len(sets) {
			return nil, fmt.Errorf("set %d out of range, %d sets declared", s.Set, len(sets))
		}
		if layouts[s.Set] != nil {
			return nil, fmt.Errorf("set %d declared twice", s.Set)
		}
		bindings := make([]metadata.DescriptorBinding, 0, len(s.Bindings))
		for _, b := range s.Bindings {
			binding, err := parseBinding(b)
			if err != nil {
				return nil, fmt.Errorf("set %d: %w", s.Set, err)
			}
			bindings = append(bindings, binding)
		}
		layouts[s.Set] = metadata.NewDescriptorSetLayout(bindings)
	}
	return layouts, nil
}

func parseBinding(b bindingFile) (metadata.DescriptorBinding, error) {
	binding := metadata.DescriptorBinding{
		Binding: b.Binding,
		Count:   b.Count,
		Name:    b.Name,
		Size:    b.Size,
	}
	switch b.Type {
	case "uniform_buffer", "uniform_buffer_dynamic":
		binding.Type = metadata.DescriptorTypeUniformBufferDynamic
		if b.Size == 0 {
			return binding, fmt.Errorf("uniform block '%s' has no size", b.Name)
		}
	case "combined_image_sampler", "sampler2D":
		binding.Type = metadata.DescriptorTypeCombinedImageSampler
	default:
		return binding, fmt.Errorf("binding %d: unsupported descriptor type '%s'", b.Binding, b.Type)
	}
	for _, s := range b.Stages {
		stage, err := parseStage(s)
		if err != nil {
			return binding, err
		}
		binding.Stages |= stage
	}
	if binding.Stages == 0 {
		binding.Stages = metadata.ShaderStageVertex | metadata.ShaderStageFragment
	}
	for _, m := range b.Members {
		if m.Offset+m.Range > b.Size {
			return binding, fmt.Errorf("member '%s.%s' ends at %d, past the block size %d", b.Name, m.Name, m.Offset+m.Range, b.Size)
		}
		binding.Members = append(binding.Members, metadata.UniformMember{Name: m.Name, Offset: m.Offset, Range: m.Range})
	}
	return binding, nil
}

func parseStage(s string) (metadata.ShaderStage, error) {
	switch strings.ToLower(s) {
	case "vertex", "vert":
		return metadata.ShaderStageVertex, nil
	case "fragment", "frag":
		return metadata.ShaderStageFragment, nil
	case "geometry", "geom":
		return metadata.ShaderStageGeometry, nil
	}
	return 0, fmt.Errorf("unknown shader stage '%s'", s)
}

func parseAttribute(s string) (metadata.VertexAttribute, error) {
	for a := metadata.VertexAttributePosition; a < metadata.VertexAttributeCount; a++ {
		if a.String() == strings.ToLower(s) {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown vertex attribute '%s'", s)
}
