// Package shaders embeds the task, mesh and fragment programs drawn every frame.
// The SPIR-V binaries are produced from src/ by `mage build:shaders`.
package shaders

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/spaghettifunk/meshlet/engine/core"
	"github.com/spaghettifunk/meshlet/engine/renderer/metadata"
)

// spv/ only holds .gitkeep in a fresh checkout. `mage build:shaders` must run
// before `go build`, otherwise Load reports ErrNotCompiled at startup.
//
//go:embed all:spv
var compiled embed.FS

// ErrNotCompiled means the binaries were never built. Run `mage build:shaders`.
var ErrNotCompiled = fmt.Errorf("%w: shaders are not compiled, run `mage build:shaders`", core.ErrMissingShader)

// Stage binaries under spv/.
var stageFiles = map[metadata.ShaderStage]string{
	metadata.ShaderStageTask:     "mesh.task.spv",
	metadata.ShaderStageMesh:     "mesh.mesh.spv",
	metadata.ShaderStageFragment: "mesh.frag.spv",
}

// Load returns the embedded SPIR-V for every stage.
func Load() (metadata.ShaderSource, error) {
	return LoadFS(compiled, "spv")
}

// LoadFS reads the stage binaries from dir in fsys and validates them.
func LoadFS(fsys fs.FS, dir string) (metadata.ShaderSource, error) {
	read := func(stage metadata.ShaderStage) ([]byte, error) {
		data, err := fs.ReadFile(fsys, path.Join(dir, stageFiles[stage]))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotCompiled
		}
		if err != nil {
			return nil, fmt.Errorf("%s shader: %w", stage, err)
		}
		return data, nil
	}

	var src metadata.ShaderSource
	var err error
	if src.Task, err = read(metadata.ShaderStageTask); err != nil {
		return src, err
	}
	if src.Mesh, err = read(metadata.ShaderStageMesh); err != nil {
		return src, err
	}
	if src.Fragment, err = read(metadata.ShaderStageFragment); err != nil {
		return src, err
	}
	if err := src.Validate(); err != nil {
		return src, fmt.Errorf("%w: %w", core.ErrMissingShader, err)
	}
	return src, nil
}

// StageFile is the file name a stage is compiled to.
func StageFile(stage metadata.ShaderStage) string {
	return stageFiles[stage]
}
