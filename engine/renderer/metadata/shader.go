package metadata

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const spirvMagic uint32 = 0x07230203

var ErrInvalidSPIRV = errors.New("invalid SPIR-V binary")

type ShaderStage uint8

const (
	ShaderStageTask ShaderStage = iota
	ShaderStageMesh
	ShaderStageFragment
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageTask:
		return "task"
	case ShaderStageMesh:
		return "mesh"
	case ShaderStageFragment:
		return "fragment"
	}
	return fmt.Sprintf("ShaderStage(%d)", uint8(s))
}

/**
 * @brief Compiled SPIR-V for every stage of a mesh pipeline.
 * Each stage exposes the default entry point name "main".
 */
type ShaderSource struct {
	Task     []byte
	Mesh     []byte
	Fragment []byte
}

// Stage returns the binary for one stage.
func (s ShaderSource) Stage(stage ShaderStage) []byte {
	switch stage {
	case ShaderStageTask:
		return s.Task
	case ShaderStageMesh:
		return s.Mesh
	case ShaderStageFragment:
		return s.Fragment
	}
	return nil
}

// Validate checks that every stage is present and looks like SPIR-V.
func (s ShaderSource) Validate() error {
	for _, stage := range []ShaderStage{ShaderStageTask, ShaderStageMesh, ShaderStageFragment} {
		if err := ValidateSPIRV(s.Stage(stage)); err != nil {
			return fmt.Errorf("%s stage: %w", stage, err)
		}
	}
	return nil
}

// ValidateSPIRV checks the size and magic number of a SPIR-V module.
func ValidateSPIRV(code []byte) error {
	if len(code) < 20 || len(code)%4 != 0 {
		return fmt.Errorf("%w: %d bytes", ErrInvalidSPIRV, len(code))
	}
	if binary.LittleEndian.Uint32(code) != spirvMagic {
		return fmt.Errorf("%w: bad magic number", ErrInvalidSPIRV)
	}
	return nil
}

// SPIRVWords reinterprets a validated little-endian SPIR-V binary as 32-bit words.
func SPIRVWords(code []byte) []uint32 {
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	return words
}
