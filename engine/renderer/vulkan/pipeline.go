package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/meshlet/engine/core"
	"github.com/spaghettifunk/meshlet/engine/renderer"
	"github.com/spaghettifunk/meshlet/engine/renderer/metadata"
)

// PipelineLayout is an empty layout: the mesh pipeline binds no resources.
type PipelineLayout struct {
	device *Device
	Handle vk.PipelineLayout
}

func (d *Device) CreatePipelineLayout(desc *renderer.PipelineLayoutDescriptor) (renderer.PipelineLayout, error) {
	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}
	layout := &PipelineLayout{device: d}
	err := d.locks.SafeCall(PipelineManagement, func() error {
		if res := vk.CreatePipelineLayout(d.handle, &pipelineLayoutCreateInfo, nil, &layout.Handle); res != vk.Success {
			return fmt.Errorf("vkCreatePipelineLayout failed: %w", resultError(res))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return layout, nil
}

func (l *PipelineLayout) Destroy() {
	if l.Handle != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(l.device.handle, l.Handle, nil)
		l.Handle = vk.NullPipelineLayout
	}
}

/**
 * @brief Holds a Vulkan mesh pipeline and the format it renders to.
 */
type RenderPipeline struct {
	device *Device
	Handle vk.Pipeline
	format metadata.TextureFormat
}

func (p *RenderPipeline) Format() metadata.TextureFormat {
	return p.format
}

func (p *RenderPipeline) Destroy() {
	if p.Handle != vk.NullPipeline {
		vk.DestroyPipeline(p.device.handle, p.Handle, nil)
		p.Handle = vk.NullPipeline
	}
}

func moduleOf(stage renderer.ProgrammableStage) (*ShaderModule, error) {
	m, ok := stage.Module.(*ShaderModule)
	if !ok || m == nil {
		return nil, fmt.Errorf("%w: stage has no Vulkan shader module", core.ErrMissingShader)
	}
	return m, nil
}

// CreateMeshPipeline builds a graphics pipeline from task, mesh and fragment stages.
// It has no vertex input or input assembly state.
func (d *Device) CreateMeshPipeline(desc *renderer.MeshPipelineDescriptor) (renderer.RenderPipeline, error) {
	if d.drawMeshTasks == nil {
		return nil, fmt.Errorf("%w: device was created without mesh shading", core.ErrMissingFeature)
	}
	layout, ok := desc.Layout.(*PipelineLayout)
	if !ok || layout == nil {
		return nil, fmt.Errorf("%w: pipeline needs a Vulkan pipeline layout", core.ErrInvalidConfig)
	}
	if desc.Fragment == nil || len(desc.Fragment.Targets) != 1 {
		return nil, fmt.Errorf("%w: mesh pipeline renders to exactly one color target", core.ErrInvalidConfig)
	}
	target := desc.Fragment.Targets[0]
	format, ok := toVkFormat(target.Format)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported target format %s", core.ErrInvalidConfig, target.Format)
	}
	if desc.DepthStencil != nil {
		return nil, fmt.Errorf("%w: depth attachments are not supported", core.ErrInvalidConfig)
	}

	stages := []vk.PipelineShaderStageCreateInfo{}
	if desc.Task != nil {
		m, err := moduleOf(*desc.Task)
		if err != nil {
			return nil, err
		}
		info, err := m.stageInfo(metadata.ShaderStageTask, desc.Task.EntryPoint)
		if err != nil {
			return nil, err
		}
		stages = append(stages, info)
	}
	for _, s := range []struct {
		stage metadata.ShaderStage
		prog  renderer.ProgrammableStage
	}{
		{metadata.ShaderStageMesh, desc.Mesh},
		{metadata.ShaderStageFragment, desc.Fragment.ProgrammableStage},
	} {
		m, err := moduleOf(s.prog)
		if err != nil {
			return nil, err
		}
		info, err := m.stageInfo(s.stage, s.prog.EntryPoint)
		if err != nil {
			return nil, err
		}
		stages = append(stages, info)
	}

	rp, err := d.renderpasses.get(renderpassKey{format: format, load: vk.AttachmentLoadOpClear, store: vk.AttachmentStoreOpStore})
	if err != nil {
		return nil, err
	}

	// Viewport and scissor are set per pass.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             toVkPolygonMode(desc.Primitive.PolygonMode),
		LineWidth:               1.0,
		CullMode:                toVkCullMode(desc.Primitive.CullMode),
		FrontFace:               toVkFrontFace(desc.Primitive.FrontFace),
		DepthBiasEnable:         vk.False,
	}

	samples := desc.Multisample
	if samples.Count == 0 {
		samples = metadata.DefaultMultisampleState()
	}
	if samples.Count != 1 {
		return nil, fmt.Errorf("%w: multisampling is not supported", core.ErrInvalidConfig)
	}
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		PSampleMask:           []vk.SampleMask{vk.SampleMask(uint32(samples.Mask))},
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}
	if samples.AlphaToCoverageEnabled {
		multisamplingCreateInfo.AlphaToCoverageEnable = vk.True
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable:    vk.False,
		ColorWriteMask: toVkColorWrites(target.WriteMask),
	}
	if !target.Blend.IsReplace() {
		b := target.Blend
		colorBlendAttachmentState.BlendEnable = vk.True
		colorBlendAttachmentState.SrcColorBlendFactor = toVkBlendFactor(b.Color.SrcFactor)
		colorBlendAttachmentState.DstColorBlendFactor = toVkBlendFactor(b.Color.DstFactor)
		colorBlendAttachmentState.ColorBlendOp = toVkBlendOp(b.Color.Operation)
		colorBlendAttachmentState.SrcAlphaBlendFactor = toVkBlendFactor(b.Alpha.SrcFactor)
		colorBlendAttachmentState.DstAlphaBlendFactor = toVkBlendFactor(b.Alpha.DstFactor)
		colorBlendAttachmentState.AlphaBlendOp = toVkBlendOp(b.Alpha.Operation)
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              layout.Handle,
		RenderPass:          rp.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	err = d.locks.SafeCall(PipelineManagement, func() error {
		if res := vk.CreateGraphicsPipelines(d.handle, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, nil, pipelines); res != vk.Success {
			return fmt.Errorf("vkCreateGraphicsPipelines failed: %w", resultError(res))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	core.LogDebug("Mesh pipeline %q created for %s.", desc.Label, target.Format)
	return &RenderPipeline{device: d, Handle: pipelines[0], format: target.Format}, nil
}
