package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/meshlet/engine/core"
)

// renderpassKey identifies a single color attachment render pass.
type renderpassKey struct {
	format vk.Format
	load   vk.AttachmentLoadOp
	store  vk.AttachmentStoreOp
}

type VulkanRenderpass struct {
	Handle vk.RenderPass
	key    renderpassKey
}

// renderpassCache shares render passes between pipelines and frames. Pipelines
// are compatible with every pass of the same format.
type renderpassCache struct {
	device *Device
	passes map[renderpassKey]*VulkanRenderpass
}

func newRenderpassCache(device *Device) *renderpassCache {
	return &renderpassCache{device: device, passes: map[renderpassKey]*VulkanRenderpass{}}
}

func (c *renderpassCache) get(key renderpassKey) (*VulkanRenderpass, error) {
	var out *VulkanRenderpass
	err := c.device.locks.SafeCall(RenderpassManagement, func() error {
		if rp, ok := c.passes[key]; ok {
			out = rp
			return nil
		}
		rp, err := RenderpassCreate(c.device, key)
		if err != nil {
			return err
		}
		c.passes[key] = rp
		out = rp
		return nil
	})
	return out, err
}

func (c *renderpassCache) destroy() {
	for key, rp := range c.passes {
		rp.Destroy(c.device)
		delete(c.passes, key)
	}
}

func RenderpassCreate(device *Device, key renderpassKey) (*VulkanRenderpass, error) {
	// Cleared passes do not care about previous contents, loading ones expect a presented image.
	initialLayout := vk.ImageLayoutUndefined
	if key.load == vk.AttachmentLoadOpLoad {
		initialLayout = vk.ImageLayoutPresentSrc
	}

	colorAttachment := vk.AttachmentDescription{
		Format:         key.format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         key.load,
		StoreOp:        key.store,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  initialLayout,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}},
	}

	// The acquire semaphore is waited on at color output, so the layout
	// transition has to wait there too.
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	rp := &VulkanRenderpass{key: key}
	if res := vk.CreateRenderPass(device.handle, &renderpassCreateInfo, nil, &rp.Handle); res != vk.Success {
		return nil, fmt.Errorf("vkCreateRenderPass: %w", resultError(res))
	}
	core.LogDebug("Render pass created for format %d.", key.format)
	return rp, nil
}

func (vr *VulkanRenderpass) Destroy(device *Device) {
	if vr.Handle != vk.NullRenderPass {
		vk.DestroyRenderPass(device.handle, vr.Handle, nil)
		vr.Handle = vk.NullRenderPass
	}
}
