package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/meshlet/engine/core"
	"github.com/spaghettifunk/meshlet/engine/math"
	"github.com/spaghettifunk/meshlet/engine/renderer"
	"github.com/spaghettifunk/meshlet/engine/renderer/metadata"
)

const acquireTimeout = uint64(1_000_000_000)

// Surface is a window surface and the swapchain presenting into it.
type Surface struct {
	instance *Instance
	handle   vk.Surface
	device   *Device
	config   metadata.SurfaceConfiguration

	swapchain    vk.Swapchain
	format       vk.Format
	presentMode  vk.PresentMode
	extent       vk.Extent2D
	images       []vk.Image
	views        []vk.ImageView
	framebuffers map[framebufferKey]*VulkanFramebuffer

	// one per frame slot, signaled by acquire
	imageAvailable [maxFramesInFlight]vk.Semaphore
	// one per swapchain image, signaled by submit and waited on by present
	renderFinished []vk.Semaphore

	// the swapchain no longer matches the surface
	outdated bool
	// an acquired image went unused and left a semaphore pending
	needsRecreate bool
}

func newSurface(instance *Instance, handle vk.Surface) *Surface {
	return &Surface{
		instance:     instance,
		handle:       handle,
		framebuffers: map[framebufferKey]*VulkanFramebuffer{},
	}
}

type surfaceSupport struct {
	caps    vk.SurfaceCapabilities
	formats []vk.SurfaceFormat
	modes   []vk.PresentMode
}

func (s *Surface) querySupport(physical vk.PhysicalDevice) (*surfaceSupport, error) {
	out := &surfaceSupport{}
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physical, s.handle, &out.caps); res != vk.Success {
		return nil, fmt.Errorf("surface capabilities: %w", resultError(res))
	}
	out.caps.Deref()
	out.caps.CurrentExtent.Deref()
	out.caps.MinImageExtent.Deref()
	out.caps.MaxImageExtent.Deref()

	var count uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physical, s.handle, &count, nil); res != vk.Success {
		return nil, fmt.Errorf("surface formats: %w", resultError(res))
	}
	out.formats = make([]vk.SurfaceFormat, count)
	if count > 0 {
		if res := vk.GetPhysicalDeviceSurfaceFormats(physical, s.handle, &count, out.formats); res != vk.Success {
			return nil, fmt.Errorf("surface formats: %w", resultError(res))
		}
	}
	for i := range out.formats {
		out.formats[i].Deref()
	}

	count = 0
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physical, s.handle, &count, nil); res != vk.Success {
		return nil, fmt.Errorf("failed to get physical device surface present modes: %w", resultError(res))
	}
	out.modes = make([]vk.PresentMode, count)
	if count > 0 {
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physical, s.handle, &count, out.modes); res != vk.Success {
			return nil, fmt.Errorf("failed to get physical device surface present modes: %w", resultError(res))
		}
	}
	return out, nil
}

// capabilities keeps only the sRGB-nonlinear formats the renderer knows about.
func (sup *surfaceSupport) capabilities() metadata.SurfaceCapabilities {
	out := metadata.SurfaceCapabilities{}
	for _, f := range sup.formats {
		if f.ColorSpace != vk.ColorSpaceSrgbNonlinear {
			continue
		}
		if tf, ok := fromVkFormat(f.Format); ok {
			out.Formats = append(out.Formats, tf)
		}
	}
	for _, m := range sup.modes {
		if pm, ok := fromVkPresentMode(m); ok {
			out.PresentModes = append(out.PresentModes, pm)
		}
	}
	out.AlphaModes = alphaModesFromFlags(sup.caps.SupportedCompositeAlpha)
	return out
}

func (s *Surface) Capabilities(adapter renderer.Adapter) (metadata.SurfaceCapabilities, error) {
	a, ok := adapter.(*Adapter)
	if !ok {
		return metadata.SurfaceCapabilities{}, fmt.Errorf("%w: foreign adapter", core.ErrSurfaceUnsupported)
	}
	sup, err := s.querySupport(a.physical)
	if err != nil {
		return metadata.SurfaceCapabilities{}, err
	}
	return sup.capabilities(), nil
}

func (s *Surface) DefaultConfig(adapter renderer.Adapter, width, height uint32) *metadata.SurfaceConfiguration {
	a, ok := adapter.(*Adapter)
	if !ok {
		return nil
	}
	var supportsPresent vk.Bool32
	if res := vk.GetPhysicalDeviceSurfaceSupport(a.physical, a.graphicsFamily, s.handle, &supportsPresent); res != vk.Success || supportsPresent != vk.True {
		core.LogDebug("Queue family %d of %q cannot present to the surface.", a.graphicsFamily, a.info.Name)
		return nil
	}
	caps, err := s.Capabilities(a)
	if err != nil {
		core.LogWarn("Surface capabilities: %s", err)
		return nil
	}
	cfg, ok := caps.DefaultConfiguration(width, height)
	if !ok {
		return nil
	}
	return cfg
}

func (s *Surface) Configure(device renderer.Device, config *metadata.SurfaceConfiguration) error {
	if config.Width == 0 || config.Height == 0 {
		return core.ErrZeroSizedSurface
	}
	d, ok := device.(*Device)
	if !ok {
		return fmt.Errorf("%w: foreign device", core.ErrInvalidConfig)
	}
	if s.device != nil && s.device != d {
		return fmt.Errorf("%w: surface is already bound to another device", core.ErrInvalidConfig)
	}

	sup, err := s.querySupport(d.adapter.physical)
	if err != nil {
		return err
	}
	caps := sup.capabilities()

	format, ok := toVkFormat(config.Format)
	if !ok || !containsFormat(caps.Formats, config.Format) {
		return fmt.Errorf("%w: format %s is not supported by the surface", core.ErrInvalidConfig, config.Format)
	}
	mode, ok := metadata.ResolvePresentMode(config.PresentMode, caps.PresentModes)
	if !ok {
		return fmt.Errorf("%w: present mode %s is not supported by the surface", core.ErrInvalidConfig, config.PresentMode)
	}
	vkMode, _ := toVkPresentMode(mode)

	if err := d.WaitIdle(); err != nil {
		return err
	}

	return d.locks.SafeCall(SwapchainManagement, func() error {
		s.device = d
		s.config = *config
		s.format = format
		s.presentMode = vkMode
		return s.createSwapchain(sup)
	})
}

func containsFormat(formats []metadata.TextureFormat, f metadata.TextureFormat) bool {
	for _, have := range formats {
		if have == f {
			return true
		}
	}
	return false
}

// createSwapchain builds a new swapchain from s.config, retiring the previous one.
func (s *Surface) createSwapchain(sup *surfaceSupport) error {
	d := s.device

	extent := vk.Extent2D{Width: s.config.Width, Height: s.config.Height}
	// Clamp to the value allowed by the GPU.
	minExtent, maxExtent := sup.caps.MinImageExtent, sup.caps.MaxImageExtent
	extent.Width = math.Clamp(extent.Width, minExtent.Width, maxExtent.Width)
	extent.Height = math.Clamp(extent.Height, minExtent.Height, maxExtent.Height)
	if extent.Width == 0 || extent.Height == 0 {
		return core.ErrZeroSizedSurface
	}

	imageCount := sup.caps.MinImageCount + 1
	if sup.caps.MaxImageCount > 0 && imageCount > sup.caps.MaxImageCount {
		imageCount = sup.caps.MaxImageCount
	}

	oldSwapchain := s.swapchain
	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          s.handle,
		MinImageCount:    imageCount,
		ImageFormat:      s.format,
		ImageColorSpace:  vk.ColorSpaceSrgbNonlinear,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     sup.caps.CurrentTransform,
		CompositeAlpha:   toVkAlphaMode(s.config.AlphaMode, sup.caps.SupportedCompositeAlpha),
		PresentMode:      s.presentMode,
		Clipped:          vk.True,
		OldSwapchain:     oldSwapchain,
	}

	var swapchain vk.Swapchain
	if res := vk.CreateSwapchain(d.handle, &swapchainCreateInfo, nil, &swapchain); res != vk.Success {
		return fmt.Errorf("failed to create swapchain: %w", resultError(res))
	}

	s.destroyImages()
	if oldSwapchain != vk.NullSwapchain {
		vk.DestroySwapchain(d.handle, oldSwapchain, nil)
	}
	s.swapchain = swapchain
	s.extent = extent

	var count uint32
	if res := vk.GetSwapchainImages(d.handle, s.swapchain, &count, nil); res != vk.Success {
		return fmt.Errorf("failed to get swapchain images: %w", resultError(res))
	}
	s.images = make([]vk.Image, count)
	if res := vk.GetSwapchainImages(d.handle, s.swapchain, &count, s.images); res != vk.Success {
		return fmt.Errorf("failed to get swapchain images: %w", resultError(res))
	}

	s.views = make([]vk.ImageView, count)
	for i := range s.images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    s.images[i],
			ViewType: vk.ImageViewType2d,
			Format:   s.format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		if res := vk.CreateImageView(d.handle, &viewInfo, nil, &s.views[i]); res != vk.Success {
			return fmt.Errorf("failed to create image view: %w", resultError(res))
		}
	}

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	for i := range s.imageAvailable {
		if res := vk.CreateSemaphore(d.handle, &semaphoreCreateInfo, nil, &s.imageAvailable[i]); res != vk.Success {
			return fmt.Errorf("failed to create semaphore on image available: %w", resultError(res))
		}
	}
	s.renderFinished = make([]vk.Semaphore, count)
	for i := range s.renderFinished {
		if res := vk.CreateSemaphore(d.handle, &semaphoreCreateInfo, nil, &s.renderFinished[i]); res != vk.Success {
			return fmt.Errorf("failed to create semaphore on render finished: %w", resultError(res))
		}
	}

	s.outdated = false
	s.needsRecreate = false
	core.LogDebug("Swapchain created: %dx%d, %d images.", extent.Width, extent.Height, count)
	return nil
}

// destroyImages releases everything derived from the swapchain images. The
// device must be idle.
func (s *Surface) destroyImages() {
	if s.device == nil {
		return
	}
	d := s.device
	s.destroyFramebuffers()
	for i := range s.views {
		if s.views[i] != vk.NullImageView {
			vk.DestroyImageView(d.handle, s.views[i], nil)
		}
	}
	s.views = nil
	s.images = nil
	for i := range s.imageAvailable {
		if s.imageAvailable[i] != vk.NullSemaphore {
			vk.DestroySemaphore(d.handle, s.imageAvailable[i], nil)
			s.imageAvailable[i] = vk.NullSemaphore
		}
	}
	for i := range s.renderFinished {
		if s.renderFinished[i] != vk.NullSemaphore {
			vk.DestroySemaphore(d.handle, s.renderFinished[i], nil)
		}
	}
	s.renderFinished = nil
}

func (s *Surface) recreate() error {
	if err := s.device.WaitIdle(); err != nil {
		return err
	}
	sup, err := s.querySupport(s.device.adapter.physical)
	if err != nil {
		return err
	}
	return s.device.locks.SafeCall(SwapchainManagement, func() error {
		return s.createSwapchain(sup)
	})
}

func (s *Surface) CurrentTexture() (renderer.SurfaceTexture, error) {
	if s.device == nil || s.swapchain == vk.NullSwapchain {
		return nil, fmt.Errorf("%w: surface is not configured", core.ErrInvalidConfig)
	}
	if s.needsRecreate {
		if err := s.recreate(); err != nil {
			return nil, err
		}
	}
	if s.outdated {
		return nil, core.ErrSurfaceOutdated
	}

	d := s.device
	slot := d.frameIndex
	if err := d.frames[slot].inFlight.Wait(); err != nil {
		return nil, err
	}

	var index uint32
	res := vk.AcquireNextImage(d.handle, s.swapchain, acquireTimeout, s.imageAvailable[slot], vk.NullFence, &index)
	switch res {
	case vk.Success, vk.Suboptimal:
		return &SurfaceTexture{
			surface:    s,
			index:      index,
			slot:       slot,
			suboptimal: res == vk.Suboptimal,
		}, nil
	case vk.ErrorOutOfDate:
		s.outdated = true
	}
	return nil, resultError(res)
}

func (s *Surface) Destroy() {
	if s.device != nil && s.device.handle != nil {
		vk.DeviceWaitIdle(s.device.handle)
		s.destroyImages()
		if s.swapchain != vk.NullSwapchain {
			vk.DestroySwapchain(s.device.handle, s.swapchain, nil)
			s.swapchain = vk.NullSwapchain
		}
	}
	if s.handle != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(s.instance.handle, s.handle, nil)
		s.handle = vk.NullSurface
	}
}

// SurfaceTexture is one acquired swapchain image.
type SurfaceTexture struct {
	surface    *Surface
	index      uint32
	slot       int
	suboptimal bool
	submitted  bool
	done       bool
}

func (t *SurfaceTexture) Suboptimal() bool {
	return t.suboptimal
}

func (t *SurfaceTexture) Format() metadata.TextureFormat {
	return t.surface.config.Format
}

func (t *SurfaceTexture) CreateView() (renderer.TextureView, error) {
	return &TextureView{texture: t}, nil
}

// Present hands the image back to the presentation engine. The frame rendering
// into it must have been submitted.
func (t *SurfaceTexture) Present() error {
	if t.done {
		return fmt.Errorf("surface texture %d already returned", t.index)
	}
	t.done = true
	s := t.surface
	if !t.submitted {
		s.needsRecreate = true
		return fmt.Errorf("surface texture %d presented before any submission", t.index)
	}

	q := s.device.queue
	var res vk.Result
	_ = s.device.locks.SafeQueueCall(q.family, func() error {
		res = vk.QueuePresent(q.handle, &vk.PresentInfo{
			SType:              vk.StructureTypePresentInfo,
			WaitSemaphoreCount: 1,
			PWaitSemaphores:    []vk.Semaphore{s.renderFinished[t.index]},
			SwapchainCount:     1,
			PSwapchains:        []vk.Swapchain{s.swapchain},
			PImageIndices:      []uint32{t.index},
		})
		return nil
	})

	switch res {
	case vk.Success:
		return nil
	case vk.Suboptimal:
		core.LogDebug("Present reported a suboptimal swapchain.")
		return nil
	case vk.ErrorOutOfDate:
		s.outdated = true
		return nil
	}
	return resultError(res)
}

// Discard drops the image without presenting it. One of its semaphores stays
// pending, so the swapchain is rebuilt before the next acquire.
func (t *SurfaceTexture) Discard() {
	if t.done {
		return
	}
	t.done = true
	t.surface.needsRecreate = true
}

// TextureView renders into one swapchain image.
type TextureView struct {
	texture *SurfaceTexture
}

func (v *TextureView) Format() metadata.TextureFormat {
	return v.texture.Format()
}

func (v *TextureView) Size() (uint32, uint32) {
	e := v.texture.surface.extent
	return e.Width, e.Height
}
