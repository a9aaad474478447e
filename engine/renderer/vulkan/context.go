package vulkan

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/meshlet/engine/core"
	"github.com/spaghettifunk/meshlet/engine/renderer"
	"github.com/spaghettifunk/meshlet/engine/renderer/metadata"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// reportedErrors counts every error message the validation layers have sent so far.
var reportedErrors atomic.Uint64

// Instance owns the VkInstance and, when validation is on, the debug callback.
type Instance struct {
	handle     vk.Instance
	debug      vk.DebugReportCallback
	validation bool
	// value of reportedErrors when this instance was created
	baseline uint64
}

func newInstance(desc *renderer.InstanceDescriptor) (*Instance, error) {
	appName := desc.ApplicationName
	if appName == "" {
		appName = "meshlet"
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 3, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Meshlet"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	extensions := []string{"VK_KHR_surface"}
	if w, ok := desc.Window.(Window); ok {
		for _, ext := range w.RequiredInstanceExtensions() {
			if ext != "VK_KHR_surface" {
				extensions = append(extensions, ext)
			}
		}
	}
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	validation := desc.Validation
	if validation {
		found, err := hasInstanceLayer(validationLayerName)
		if err != nil {
			return nil, err
		}
		if !found {
			core.LogWarn("Validation layer %s is not installed, continuing without it.", validationLayerName)
			validation = false
		}
	}

	layers := []string{}
	if validation {
		layers = append(layers, validationLayerName)
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
	}

	core.LogDebug("Required instance extensions: %v", extensions)
	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	inst := &Instance{validation: validation, baseline: reportedErrors.Load()}
	if res := vk.CreateInstance(&createInfo, nil, &inst.handle); res != vk.Success {
		return nil, fmt.Errorf("failed in creating the Vulkan Instance: %w", resultError(res))
	}
	if err := vk.InitInstance(inst.handle); err != nil {
		vk.DestroyInstance(inst.handle, nil)
		return nil, err
	}
	core.LogInfo("Vulkan Instance created.")

	if validation {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		if res := vk.CreateDebugReportCallback(inst.handle, &debugCreateInfo, nil, &inst.debug); res != vk.Success {
			core.LogWarn("vk.CreateDebugReportCallback failed with %s", VulkanResultString(res))
		} else {
			core.LogDebug("Vulkan debugger created.")
		}
	}
	return inst, nil
}

func hasInstanceLayer(name string) (bool, error) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return false, resultError(res)
	}
	layers := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
		return false, resultError(res)
	}
	for i := range layers {
		layers[i].Deref()
		end := FindFirstZeroInByteArray(layers[i].LayerName[:])
		if string(layers[i].LayerName[:end]) == name {
			return true, nil
		}
	}
	return false, nil
}

func (i *Instance) CreateSurface(window metadata.Window) (renderer.Surface, error) {
	w, ok := window.(Window)
	if !ok {
		return nil, fmt.Errorf("%w: window cannot create Vulkan surfaces", core.ErrSurfaceUnsupported)
	}
	ptr, err := w.CreateWindowSurface(i.handle)
	if err != nil {
		return nil, fmt.Errorf("vulkan surface creation failed: %w", err)
	}
	core.LogDebug("Vulkan surface created.")
	return newSurface(i, vk.SurfaceFromPointer(ptr)), nil
}

func (i *Instance) EnumerateAdapters(backends metadata.Backends) ([]renderer.Adapter, error) {
	out := []renderer.Adapter{}
	if !backends.Contains(metadata.BackendVulkan) {
		return out, nil
	}

	var count uint32
	if res := vk.EnumeratePhysicalDevices(i.handle, &count, nil); res != vk.Success {
		return nil, resultError(res)
	}
	if count == 0 {
		core.LogWarn("No devices which support Vulkan were found.")
		return out, nil
	}
	physicalDevices := make([]vk.PhysicalDevice, count)
	if res := vk.EnumeratePhysicalDevices(i.handle, &count, physicalDevices); res != vk.Success {
		return nil, resultError(res)
	}

	for _, pd := range physicalDevices {
		a, err := newAdapter(i, pd)
		if err != nil {
			core.LogWarn("Skipping physical device: %s", err)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (i *Instance) ValidationErrors() uint64 {
	if !i.validation {
		return 0
	}
	return reportedErrors.Load() - i.baseline
}

func (i *Instance) Destroy() {
	if i.handle == nil {
		return
	}
	if i.debug != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(i.handle, i.debug, nil)
		i.debug = vk.NullDebugReportCallback
	}
	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(i.handle, nil)
	i.handle = nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		reportedErrors.Add(1)
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
