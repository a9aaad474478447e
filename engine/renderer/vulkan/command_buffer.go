package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/meshlet/engine/core"
	"github.com/spaghettifunk/meshlet/engine/renderer"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
)

// CommandEncoder records into the command buffer of the current frame slot.
type CommandEncoder struct {
	device *Device
	label  string
	slot   int
	handle vk.CommandBuffer
	state  VulkanCommandBufferState
	// swapchain image the recorded pass renders to
	target *SurfaceTexture
}

func (d *Device) CreateCommandEncoder(desc *renderer.CommandEncoderDescriptor) (renderer.CommandEncoder, error) {
	slot := d.frameIndex
	frame := d.currentFrame()
	if err := frame.inFlight.Wait(); err != nil {
		return nil, err
	}
	if res := vk.ResetCommandBuffer(frame.commands, 0); res != vk.Success {
		return nil, fmt.Errorf("vkResetCommandBuffer: %w", resultError(res))
	}

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(frame.commands, &beginInfo); res != vk.Success {
		return nil, fmt.Errorf("vkBeginCommandBuffer: %w", resultError(res))
	}
	return &CommandEncoder{
		device: d,
		label:  desc.Label,
		slot:   slot,
		handle: frame.commands,
		state:  COMMAND_BUFFER_STATE_RECORDING,
	}, nil
}

func (e *CommandEncoder) BeginRenderPass(desc *renderer.RenderPassDescriptor) (renderer.RenderPassEncoder, error) {
	if e.state != COMMAND_BUFFER_STATE_RECORDING {
		return nil, fmt.Errorf("command encoder %q is not recording", e.label)
	}
	if len(desc.ColorAttachments) != 1 {
		return nil, fmt.Errorf("%w: render pass %q needs exactly one color attachment", core.ErrInvalidConfig, desc.Label)
	}
	att := desc.ColorAttachments[0]
	view, ok := att.View.(*TextureView)
	if !ok || view == nil {
		return nil, fmt.Errorf("%w: render pass target is not a swapchain view", core.ErrInvalidConfig)
	}
	texture := view.texture
	s := texture.surface

	rp, err := e.device.renderpasses.get(renderpassKey{
		format: s.format,
		load:   toVkLoadOp(att.Load),
		store:  toVkStoreOp(att.Store),
	})
	if err != nil {
		return nil, err
	}
	fb, err := s.framebuffer(texture.index, rp)
	if err != nil {
		return nil, err
	}

	width, height := view.Size()
	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor([]float32{
		float32(att.ClearValue.R),
		float32(att.ClearValue.G),
		float32(att.ClearValue.B),
		float32(att.ClearValue.A),
	})
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp.Handle,
		Framebuffer: fb.Handle,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: width, Height: height},
		},
		ClearValueCount: 1,
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(e.handle, &beginInfo, vk.SubpassContentsInline)

	// Negative height flips the viewport so clip space is y-up.
	viewport := vk.Viewport{
		X:        0.0,
		Y:        float32(height),
		Width:    float32(width),
		Height:   -float32(height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: width, Height: height},
	}
	vk.CmdSetViewport(e.handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(e.handle, 0, 1, []vk.Rect2D{scissor})

	e.target = texture
	e.state = COMMAND_BUFFER_STATE_IN_RENDER_PASS
	return &RenderPassEncoder{encoder: e}, nil
}

func (e *CommandEncoder) Finish() (renderer.CommandBuffer, error) {
	if e.state != COMMAND_BUFFER_STATE_RECORDING {
		return nil, fmt.Errorf("command encoder %q finished while in state %d", e.label, e.state)
	}
	if res := vk.EndCommandBuffer(e.handle); res != vk.Success {
		return nil, fmt.Errorf("vkEndCommandBuffer: %w", resultError(res))
	}
	e.state = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return &CommandBuffer{handle: e.handle, label: e.label, target: e.target, slot: e.slot}, nil
}

type RenderPassEncoder struct {
	encoder *CommandEncoder
}

func (p *RenderPassEncoder) SetPipeline(pipeline renderer.RenderPipeline) {
	vp, ok := pipeline.(*RenderPipeline)
	if !ok {
		core.LogError("SetPipeline: not a Vulkan pipeline")
		return
	}
	vk.CmdBindPipeline(p.encoder.handle, vk.PipelineBindPointGraphics, vp.Handle)
}

func (p *RenderPassEncoder) DrawMeshTasks(x, y, z uint32) {
	cmdDrawMeshTasks(p.encoder.device.drawMeshTasks, p.encoder.handle, x, y, z)
}

func (p *RenderPassEncoder) End() error {
	if p.encoder.state != COMMAND_BUFFER_STATE_IN_RENDER_PASS {
		return fmt.Errorf("render pass already ended")
	}
	vk.CmdEndRenderPass(p.encoder.handle)
	p.encoder.state = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

// CommandBuffer is a finished recording ready for Queue.Submit.
type CommandBuffer struct {
	handle vk.CommandBuffer
	label  string
	target *SurfaceTexture
	slot   int
}

func (c *CommandBuffer) Label() string {
	return c.label
}
