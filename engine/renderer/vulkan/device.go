package vulkan

import (
	"fmt"
	"strings"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/meshlet/engine/core"
	"github.com/spaghettifunk/meshlet/engine/renderer"
	"github.com/spaghettifunk/meshlet/engine/renderer/metadata"
)

const (
	portabilitySubsetExtensionName = "VK_KHR_portability_subset"
	// frames the CPU may record ahead of the GPU
	maxFramesInFlight = 2
)

// Adapter is a physical device together with what it can do.
type Adapter struct {
	instance       *Instance
	physical       vk.PhysicalDevice
	info           metadata.AdapterInfo
	apiVersion     uint32
	features       metadata.Features
	limits         metadata.Limits
	graphicsFamily uint32
	extensions     map[string]bool
}

func newAdapter(instance *Instance, physical vk.PhysicalDevice) (*Adapter, error) {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(physical, &props)
	props.Deref()
	props.Limits.Deref()

	end := FindFirstZeroInByteArray(props.DeviceName[:])
	a := &Adapter{
		instance:   instance,
		physical:   physical,
		apiVersion: props.ApiVersion,
		info: metadata.AdapterInfo{
			Name:       string(props.DeviceName[:end]),
			Vendor:     props.VendorID,
			Device:     props.DeviceID,
			DeviceType: fromVkDeviceType(props.DeviceType),
			Driver:     fmt.Sprintf("%d.%d.%d", vk.Version(props.DriverVersion).Major(), vk.Version(props.DriverVersion).Minor(), vk.Version(props.DriverVersion).Patch()),
			DriverInfo: fmt.Sprintf("Vulkan %d.%d.%d", vk.Version(props.ApiVersion).Major(), vk.Version(props.ApiVersion).Minor(), vk.Version(props.ApiVersion).Patch()),
			Backend:    metadata.BackendVulkan,
		},
	}

	family, ok := graphicsQueueFamily(physical)
	if !ok {
		return nil, fmt.Errorf("%s has no graphics queue", a.info.Name)
	}
	a.graphicsFamily = family

	exts, err := deviceExtensions(physical)
	if err != nil {
		return nil, err
	}
	a.extensions = exts

	caps, err := queryMeshShaderCaps(instance.handle, physical, exts[meshShaderExtensionName])
	if err != nil {
		return nil, err
	}

	a.features = metadata.FeaturePushConstants
	if props.Limits.TimestampComputeAndGraphics == vk.True {
		a.features |= metadata.FeatureTimestampQuery
	}
	if exts[meshShaderExtensionName] && apiVersionAtLeast(props.ApiVersion, 1, 3) && caps.TaskShader && caps.MeshShader {
		a.features |= metadata.FeatureExperimentalMeshShader
		if caps.Multiview {
			a.features |= metadata.FeatureExperimentalMeshShaderMultiview
		}
	}

	a.limits = metadata.Limits{
		MaxTextureDimension2D:         props.Limits.MaxImageDimension2D,
		MaxColorAttachments:           props.Limits.MaxColorAttachments,
		MaxTaskWorkgroupTotalCount:    caps.MaxTaskWorkgroupTotalCount,
		MaxTaskWorkgroupsPerDimension: caps.MaxTaskWorkgroupsPerDimension,
		MaxMeshMultiviewViewCount:     caps.MaxMeshMultiviewViewCount,
		MaxMeshOutputLayers:           caps.MaxMeshOutputLayers,
	}

	core.LogDebug("Adapter %q (%s): features=%s", a.info.Name, a.info.DeviceType, a.features)
	return a, nil
}

func graphicsQueueFamily(physical vk.PhysicalDevice) (uint32, bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(physical, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(physical, &count, families)
	for i := range families {
		families[i].Deref()
		if vk.QueueFlagBits(families[i].QueueFlags)&vk.QueueGraphicsBit != 0 {
			return uint32(i), true
		}
	}
	return 0, false
}

func deviceExtensions(physical vk.PhysicalDevice) (map[string]bool, error) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(physical, "", &count, nil); res != vk.Success {
		return nil, fmt.Errorf("error in EnumerateDeviceExtensionProperties: %w", resultError(res))
	}
	props := make([]vk.ExtensionProperties, count)
	if count > 0 {
		if res := vk.EnumerateDeviceExtensionProperties(physical, "", &count, props); res != vk.Success {
			return nil, fmt.Errorf("error in EnumerateDeviceExtensionProperties: %w", resultError(res))
		}
	}
	out := make(map[string]bool, count)
	for i := range props {
		props[i].Deref()
		out[vk.ToString(props[i].ExtensionName[:])] = true
	}
	return out, nil
}

func (a *Adapter) Info() metadata.AdapterInfo {
	return a.info
}

func (a *Adapter) Features() metadata.Features {
	return a.features
}

func (a *Adapter) Limits() metadata.Limits {
	return a.limits
}

// RequestDevice creates the logical device synchronously. The returned request
// is always resolved.
func (a *Adapter) RequestDevice(desc *renderer.DeviceDescriptor) *renderer.DeviceRequest {
	req := renderer.NewDeviceRequest()
	d, err := a.createDevice(desc)
	if err != nil {
		req.Resolve(nil, nil, err)
		return req
	}
	req.Resolve(d, d.queue, nil)
	return req
}

func (a *Adapter) createDevice(desc *renderer.DeviceDescriptor) (*Device, error) {
	experimental := metadata.FeatureExperimentalMeshShader | metadata.FeatureExperimentalMeshShaderMultiview
	if desc.RequiredFeatures&experimental != 0 && !desc.ExperimentalFeatures.IsEnabled() {
		return nil, fmt.Errorf("%w: mesh shading is experimental and was not opted into", core.ErrMissingFeature)
	}
	if missing := desc.RequiredFeatures &^ a.features; missing != 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrMissingFeature, missing)
	}
	if failures := desc.RequiredLimits.Failures(a.limits); len(failures) > 0 {
		names := make([]string, len(failures))
		for i, f := range failures {
			names[i] = f.String()
		}
		return nil, fmt.Errorf("%w: %s", core.ErrLimitsExceeded, strings.Join(names, ", "))
	}

	core.LogInfo("Creating logical device on %q...", a.info.Name)

	extensions := []string{vk.KhrSwapchainExtensionName}
	meshShading := desc.RequiredFeatures.Contains(metadata.FeatureExperimentalMeshShader)
	if meshShading {
		extensions = append(extensions, meshShaderExtensionName)
	}
	if a.extensions[portabilitySubsetExtensionName] {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtensionName)
		extensions = append(extensions, portabilitySubsetExtensionName)
	}

	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: a.graphicsFamily,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}

	var chain unsafe.Pointer
	if meshShading {
		var err error
		if chain, err = meshShaderFeatureChain(); err != nil {
			return nil, err
		}
		defer freeFeatureChain(chain)
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   chain,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}

	d := &Device{
		adapter:  a,
		features: desc.RequiredFeatures,
		limits:   desc.RequiredLimits,
		locks:    NewVulkanLockPool(),
	}
	if res := vk.CreateDevice(a.physical, &deviceCreateInfo, nil, &d.handle); res != vk.Success {
		return nil, fmt.Errorf("vkCreateDevice: %w", resultError(res))
	}
	core.LogInfo("Logical device created.")

	if err := d.init(meshShading); err != nil {
		d.Destroy()
		return nil, err
	}
	return d, nil
}

// frameSlot holds what one in-flight frame records into.
type frameSlot struct {
	commands vk.CommandBuffer
	inFlight *VulkanFence
}

// Device is the logical device with its single graphics queue.
type Device struct {
	adapter  *Adapter
	handle   vk.Device
	features metadata.Features
	limits   metadata.Limits
	queue    *Queue
	locks    *VulkanLockPool

	commandPool vk.CommandPool
	frames      [maxFramesInFlight]frameSlot
	frameIndex  int

	renderpasses  *renderpassCache
	drawMeshTasks unsafe.Pointer
}

func (d *Device) init(meshShading bool) error {
	var q vk.Queue
	vk.GetDeviceQueue(d.handle, d.adapter.graphicsFamily, 0, &q)
	d.locks.SetQueueFamily(d.adapter.graphicsFamily)
	d.queue = &Queue{device: d, handle: q, family: d.adapter.graphicsFamily}
	core.LogDebug("Queues obtained.")

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.adapter.graphicsFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if res := vk.CreateCommandPool(d.handle, &poolCreateInfo, nil, &d.commandPool); res != vk.Success {
		return fmt.Errorf("failed to create command pool: %w", resultError(res))
	}
	core.LogDebug("Graphics command pool created.")

	buffers := make([]vk.CommandBuffer, maxFramesInFlight)
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: maxFramesInFlight,
	}
	if res := vk.AllocateCommandBuffers(d.handle, &allocateInfo, buffers); res != vk.Success {
		return fmt.Errorf("failed to allocate command buffers: %w", resultError(res))
	}
	for i := range d.frames {
		d.frames[i].commands = buffers[i]
		// signaled so the first wait on each slot returns at once
		f, err := NewFence(d, true)
		if err != nil {
			return err
		}
		d.frames[i].inFlight = f
	}

	d.renderpasses = newRenderpassCache(d)

	if meshShading {
		fn, err := loadDrawMeshTasks(d.adapter.instance.handle, d.handle)
		if err != nil {
			return err
		}
		d.drawMeshTasks = fn
	}
	return nil
}

func (d *Device) currentFrame() *frameSlot {
	return &d.frames[d.frameIndex]
}

func (d *Device) advanceFrame() {
	d.frameIndex = (d.frameIndex + 1) % maxFramesInFlight
}

func (d *Device) Features() metadata.Features {
	return d.features
}

func (d *Device) Limits() metadata.Limits {
	return d.limits
}

func (d *Device) WaitIdle() error {
	if d.handle == nil {
		return nil
	}
	return d.locks.SafeQueueCall(d.adapter.graphicsFamily, func() error {
		if res := vk.DeviceWaitIdle(d.handle); res != vk.Success {
			return fmt.Errorf("vkDeviceWaitIdle: %w", resultError(res))
		}
		return nil
	})
}

func (d *Device) Destroy() {
	if d.handle == nil {
		return
	}
	vk.DeviceWaitIdle(d.handle)

	if d.renderpasses != nil {
		d.renderpasses.destroy()
	}
	for i := range d.frames {
		if d.frames[i].inFlight != nil {
			d.frames[i].inFlight.Destroy()
		}
		if d.frames[i].commands != nil {
			vk.FreeCommandBuffers(d.handle, d.commandPool, 1, []vk.CommandBuffer{d.frames[i].commands})
			d.frames[i].commands = nil
		}
	}
	if d.commandPool != vk.NullCommandPool {
		core.LogDebug("Destroying command pools...")
		vk.DestroyCommandPool(d.handle, d.commandPool, nil)
		d.commandPool = vk.NullCommandPool
	}

	core.LogDebug("Destroying logical device...")
	vk.DestroyDevice(d.handle, nil)
	d.handle = nil
	d.queue = nil
}

// Queue submits recorded frames to the graphics queue.
type Queue struct {
	device *Device
	handle vk.Queue
	family uint32
}

// Submit runs the commands of one frame. The submission waits for the target image
// and signals the semaphore its present waits on.
func (q *Queue) Submit(commands ...renderer.CommandBuffer) error {
	d := q.device
	for _, c := range commands {
		cb, ok := c.(*CommandBuffer)
		if !ok {
			return fmt.Errorf("foreign command buffer %q", c.Label())
		}

		submitInfo := vk.SubmitInfo{
			SType:              vk.StructureTypeSubmitInfo,
			CommandBufferCount: 1,
			PCommandBuffers:    []vk.CommandBuffer{cb.handle},
		}
		if t := cb.target; t != nil {
			submitInfo.WaitSemaphoreCount = 1
			submitInfo.PWaitSemaphores = []vk.Semaphore{t.surface.imageAvailable[t.slot]}
			submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)}
			submitInfo.SignalSemaphoreCount = 1
			submitInfo.PSignalSemaphores = []vk.Semaphore{t.surface.renderFinished[t.index]}
		}

		fence := d.frames[cb.slot].inFlight
		if err := fence.Reset(); err != nil {
			return err
		}
		err := d.locks.SafeQueueCall(q.family, func() error {
			if res := vk.QueueSubmit(q.handle, 1, []vk.SubmitInfo{submitInfo}, fence.Handle); res != vk.Success {
				return fmt.Errorf("vkQueueSubmit: %w", resultError(res))
			}
			return nil
		})
		if err != nil {
			return err
		}
		if cb.target != nil {
			cb.target.submitted = true
		}
		d.advanceFrame()
	}
	return nil
}
