//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

var shaderStages = []struct {
	source string
	stage  string
}{
	{"mesh.task", "task"},
	{"mesh.mesh", "mesh"},
	{"mesh.frag", "frag"},
}

// Compiles shaders/src into SPIR-V under shaders/spv with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

// Compiles the shaders and builds the binary.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/meshlet", "."), withStream()); err != nil {
		return err
	}
	return nil
}

func buildShaders() error {
	out := filepath.Join("shaders", "spv")
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	for _, s := range shaderStages {
		src := filepath.Join("shaders", "src", s.source)
		dst := filepath.Join(out, s.source+".spv")
		args := withArgs("--target-env=vulkan1.3", "-fshader-stage="+s.stage, src, "-o", dst)
		if _, err := executeCmd("glslc", args, withStream()); err != nil {
			return fmt.Errorf("compile %s: %w", src, err)
		}
	}
	return nil
}
