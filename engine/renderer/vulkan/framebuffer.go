package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

type framebufferKey struct {
	image      uint32
	renderpass vk.RenderPass
}

type VulkanFramebuffer struct {
	Handle     vk.Framebuffer
	Attachment vk.ImageView
	Renderpass *VulkanRenderpass
}

func FramebufferCreate(device *Device, renderpass *VulkanRenderpass, width, height uint32, attachment vk.ImageView) (*VulkanFramebuffer, error) {
	out := &VulkanFramebuffer{
		Attachment: attachment,
		Renderpass: renderpass,
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{attachment},
		Width:           width,
		Height:          height,
		Layers:          1,
	}
	if res := vk.CreateFramebuffer(device.handle, &framebufferCreateInfo, nil, &out.Handle); res != vk.Success {
		return nil, fmt.Errorf("failed to create framebuffer: %w", resultError(res))
	}
	return out, nil
}

func (vfb *VulkanFramebuffer) Destroy(device *Device) {
	if vfb.Handle != vk.NullFramebuffer {
		vk.DestroyFramebuffer(device.handle, vfb.Handle, nil)
		vfb.Handle = vk.NullFramebuffer
	}
	vfb.Renderpass = nil
}

// framebuffer returns the framebuffer of one swapchain image for a render pass,
// creating it on first use. Framebuffers live until the swapchain is rebuilt.
func (s *Surface) framebuffer(image uint32, rp *VulkanRenderpass) (*VulkanFramebuffer, error) {
	key := framebufferKey{image: image, renderpass: rp.Handle}
	if fb, ok := s.framebuffers[key]; ok {
		return fb, nil
	}
	fb, err := FramebufferCreate(s.device, rp, s.extent.Width, s.extent.Height, s.views[image])
	if err != nil {
		return nil, err
	}
	s.framebuffers[key] = fb
	return fb, nil
}

func (s *Surface) destroyFramebuffers() {
	for key, fb := range s.framebuffers {
		fb.Destroy(s.device)
		delete(s.framebuffers, key)
	}
}
