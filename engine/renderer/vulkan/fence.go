package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/meshlet/engine/core"
)

// fenceTimeout bounds every CPU wait on the GPU.
const fenceTimeout = uint64(5_000_000_000)

type VulkanFence struct {
	device     *Device
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(device *Device, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		device:     device,
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	if res := vk.CreateFence(device.handle, &fenceCreateInfo, nil, &fence.Handle); res != vk.Success {
		return nil, fmt.Errorf("failed to create fence: %w", resultError(res))
	}
	return fence, nil
}

func (vf *VulkanFence) Destroy() {
	if vf.Handle != vk.NullFence {
		vk.DestroyFence(vf.device.handle, vf.Handle, nil)
		vf.Handle = vk.NullFence
	}
	vf.IsSignaled = false
}

// Wait blocks until the GPU signals the fence. A signaled fence returns at once.
func (vf *VulkanFence) Wait() error {
	if vf.IsSignaled {
		return nil
	}
	res := vk.WaitForFences(vf.device.handle, 1, []vk.Fence{vf.Handle}, vk.True, fenceTimeout)
	switch res {
	case vk.Success:
		vf.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
		return fmt.Errorf("fence wait: %w", core.ErrDeviceLost)
	}
	return fmt.Errorf("fence wait: %w", resultError(res))
}

func (vf *VulkanFence) Reset() error {
	if !vf.IsSignaled {
		return nil
	}
	if res := vk.ResetFences(vf.device.handle, 1, []vk.Fence{vf.Handle}); res != vk.Success {
		return fmt.Errorf("failed to reset fence: %w", resultError(res))
	}
	vf.IsSignaled = false
	return nil
}
