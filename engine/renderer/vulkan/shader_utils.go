package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/meshlet/engine/core"
	"github.com/spaghettifunk/meshlet/engine/renderer"
	"github.com/spaghettifunk/meshlet/engine/renderer/metadata"
)

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	Stage  vk.ShaderStageFlagBits
	Handle vk.ShaderModule
}

// ShaderModule holds one VkShaderModule per stage of a mesh pipeline.
type ShaderModule struct {
	device *Device
	label  string
	stages map[metadata.ShaderStage]*VulkanShaderStage
}

func vkShaderStage(stage metadata.ShaderStage) vk.ShaderStageFlagBits {
	switch stage {
	case metadata.ShaderStageTask:
		return shaderStageTask
	case metadata.ShaderStageMesh:
		return shaderStageMesh
	}
	return vk.ShaderStageFragmentBit
}

func (d *Device) CreateShaderModule(desc *renderer.ShaderModuleDescriptor) (renderer.ShaderModule, error) {
	if err := desc.Source.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrMissingShader, err)
	}

	m := &ShaderModule{device: d, label: desc.Label, stages: map[metadata.ShaderStage]*VulkanShaderStage{}}
	for _, stage := range []metadata.ShaderStage{metadata.ShaderStageTask, metadata.ShaderStageMesh, metadata.ShaderStageFragment} {
		code := desc.Source.Stage(stage)
		createInfo := vk.ShaderModuleCreateInfo{
			SType:    vk.StructureTypeShaderModuleCreateInfo,
			CodeSize: uint64(len(code)),
			PCode:    metadata.SPIRVWords(code),
		}

		s := &VulkanShaderStage{Stage: vkShaderStage(stage)}
		err := d.locks.SafeCall(ShaderManagement, func() error {
			if res := vk.CreateShaderModule(d.handle, &createInfo, nil, &s.Handle); res != vk.Success {
				return fmt.Errorf("%s shader module: %w", stage, resultError(res))
			}
			return nil
		})
		if err != nil {
			m.Destroy()
			return nil, err
		}
		m.stages[stage] = s
	}
	core.LogDebug("Shader module %q created.", desc.Label)
	return m, nil
}

// stageInfo describes one stage of the module for pipeline creation.
func (m *ShaderModule) stageInfo(stage metadata.ShaderStage, entryPoint string) (vk.PipelineShaderStageCreateInfo, error) {
	s, ok := m.stages[stage]
	if !ok {
		return vk.PipelineShaderStageCreateInfo{}, fmt.Errorf("%w: module %q has no %s stage", core.ErrMissingShader, m.label, stage)
	}
	if entryPoint == "" {
		entryPoint = "main"
	}
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  s.Stage,
		Module: s.Handle,
		PName:  VulkanSafeString(entryPoint),
	}, nil
}

func (m *ShaderModule) Destroy() {
	for stage, s := range m.stages {
		if s.Handle != vk.NullShaderModule {
			vk.DestroyShaderModule(m.device.handle, s.Handle, nil)
		}
		delete(m.stages, stage)
	}
}
