//go:build mage

package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

const shaderDir = "shaders"

// Compiles every GLSL stage under shaders/ to SPIR-V next to its source, e.g. lit.vert -> lit.vert.spv.
func (Build) Shaders() error {
	sources, err := shaderSources(shaderDir)
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Println("No shaders directory, nothing to compile")
		return nil
	}
	if err != nil {
		return err
	}
	for _, src := range sources {
		if _, err := executeCmd("glslc", withArgs(src, "-o", src+".spv"), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Tidies the module and builds every package.
func (Build) All() error {
	if err := goTidy(); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("build", "./..."), withStream())
	return err
}

type Test mg.Namespace

// Runs the unit tests. None of them needs a GPU.
func (Test) Unit() error {
	_, err := executeCmd("go", withArgs("test", "./engine/..."), withStream())
	return err
}

// Runs the unit tests with the race detector.
func (Test) Race() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./engine/..."), withStream())
	return err
}
