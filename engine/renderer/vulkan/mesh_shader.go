package vulkan

/*
#define VK_NO_PROTOTYPES
#include <stdlib.h>
#include <vulkan/vulkan.h>

static PFN_vkGetInstanceProcAddr meshlet_gipa = NULL;

static void meshlet_set_gipa(void *fn) {
	meshlet_gipa = (PFN_vkGetInstanceProcAddr)fn;
}

typedef struct {
	uint32_t apiVersion;
	uint32_t taskShader;
	uint32_t meshShader;
	uint32_t multiviewMeshShader;
	uint32_t maxTaskWorkGroupTotalCount;
	uint32_t maxTaskWorkGroupCount[3];
	uint32_t maxMeshOutputLayers;
	uint32_t maxMeshMultiviewViewCount;
} meshlet_mesh_caps;

static VkResult meshlet_query_mesh_caps(VkInstance instance, VkPhysicalDevice physical, int hasExtension, meshlet_mesh_caps *out) {
	if (meshlet_gipa == NULL) {
		return VK_ERROR_INITIALIZATION_FAILED;
	}
	PFN_vkGetPhysicalDeviceFeatures2 getFeatures =
		(PFN_vkGetPhysicalDeviceFeatures2)meshlet_gipa(instance, "vkGetPhysicalDeviceFeatures2");
	PFN_vkGetPhysicalDeviceProperties2 getProperties =
		(PFN_vkGetPhysicalDeviceProperties2)meshlet_gipa(instance, "vkGetPhysicalDeviceProperties2");
	if (getFeatures == NULL || getProperties == NULL) {
		return VK_ERROR_EXTENSION_NOT_PRESENT;
	}

	VkPhysicalDeviceMeshShaderFeaturesEXT meshFeatures = {0};
	meshFeatures.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_MESH_SHADER_FEATURES_EXT;
	VkPhysicalDeviceFeatures2 features = {0};
	features.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_FEATURES_2;
	features.pNext = hasExtension ? &meshFeatures : NULL;

	VkPhysicalDeviceMeshShaderPropertiesEXT meshProperties = {0};
	meshProperties.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_MESH_SHADER_PROPERTIES_EXT;
	VkPhysicalDeviceProperties2 properties = {0};
	properties.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_PROPERTIES_2;
	properties.pNext = hasExtension ? &meshProperties : NULL;

	getFeatures(physical, &features);
	getProperties(physical, &properties);

	out->apiVersion = properties.properties.apiVersion;
	out->taskShader = meshFeatures.taskShader;
	out->meshShader = meshFeatures.meshShader;
	out->multiviewMeshShader = meshFeatures.multiviewMeshShader;
	out->maxTaskWorkGroupTotalCount = meshProperties.maxTaskWorkGroupTotalCount;
	out->maxTaskWorkGroupCount[0] = meshProperties.maxTaskWorkGroupCount[0];
	out->maxTaskWorkGroupCount[1] = meshProperties.maxTaskWorkGroupCount[1];
	out->maxTaskWorkGroupCount[2] = meshProperties.maxTaskWorkGroupCount[2];
	out->maxMeshOutputLayers = meshProperties.maxMeshOutputLayers;
	out->maxMeshMultiviewViewCount = meshProperties.maxMeshMultiviewViewCount;
	return VK_SUCCESS;
}

static void *meshlet_mesh_features_chain(void) {
	VkPhysicalDeviceMeshShaderFeaturesEXT *features = calloc(1, sizeof(VkPhysicalDeviceMeshShaderFeaturesEXT));
	if (features == NULL) {
		return NULL;
	}
	features->sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_MESH_SHADER_FEATURES_EXT;
	features->taskShader = VK_TRUE;
	features->meshShader = VK_TRUE;
	return features;
}

static void *meshlet_load_draw_mesh_tasks(VkInstance instance, VkDevice device) {
	if (meshlet_gipa == NULL) {
		return NULL;
	}
	PFN_vkGetDeviceProcAddr getDeviceProc =
		(PFN_vkGetDeviceProcAddr)meshlet_gipa(instance, "vkGetDeviceProcAddr");
	if (getDeviceProc == NULL) {
		return NULL;
	}
	return (void *)getDeviceProc(device, "vkCmdDrawMeshTasksEXT");
}

static void meshlet_cmd_draw_mesh_tasks(void *fn, VkCommandBuffer cmd, uint32_t x, uint32_t y, uint32_t z) {
	((PFN_vkCmdDrawMeshTasksEXT)fn)(cmd, x, y, z);
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/meshlet/engine/core"
)

const meshShaderExtensionName = "VK_EXT_mesh_shader"

var (
	shaderStageTask = vk.ShaderStageFlagBits(C.VK_SHADER_STAGE_TASK_BIT_EXT)
	shaderStageMesh = vk.ShaderStageFlagBits(C.VK_SHADER_STAGE_MESH_BIT_EXT)
)

// meshShaderCaps is what an adapter reports about task and mesh shading.
type meshShaderCaps struct {
	APIVersion uint32
	TaskShader bool
	MeshShader bool
	Multiview  bool

	MaxTaskWorkgroupTotalCount    uint32
	MaxTaskWorkgroupsPerDimension uint32
	MaxMeshOutputLayers           uint32
	MaxMeshMultiviewViewCount     uint32
}

// setInstanceProcAddr hands the loader entry point to the extension queries below.
func setInstanceProcAddr(fn unsafe.Pointer) {
	C.meshlet_set_gipa(fn)
}

func queryMeshShaderCaps(instance vk.Instance, physical vk.PhysicalDevice, hasExtension bool) (meshShaderCaps, error) {
	var out C.meshlet_mesh_caps
	ext := C.int(0)
	if hasExtension {
		ext = 1
	}
	res := C.meshlet_query_mesh_caps(
		C.VkInstance(unsafe.Pointer(instance)),
		C.VkPhysicalDevice(unsafe.Pointer(physical)),
		ext,
		&out,
	)
	if res != C.VK_SUCCESS {
		return meshShaderCaps{}, fmt.Errorf("query mesh shader support: %w", resultError(vk.Result(res)))
	}

	perDimension := uint32(out.maxTaskWorkGroupCount[0])
	for i := 1; i < 3; i++ {
		if v := uint32(out.maxTaskWorkGroupCount[i]); v < perDimension {
			perDimension = v
		}
	}
	return meshShaderCaps{
		APIVersion:                    uint32(out.apiVersion),
		TaskShader:                    out.taskShader != 0,
		MeshShader:                    out.meshShader != 0,
		Multiview:                     out.multiviewMeshShader != 0,
		MaxTaskWorkgroupTotalCount:    uint32(out.maxTaskWorkGroupTotalCount),
		MaxTaskWorkgroupsPerDimension: perDimension,
		MaxMeshOutputLayers:           uint32(out.maxMeshOutputLayers),
		MaxMeshMultiviewViewCount:     uint32(out.maxMeshMultiviewViewCount),
	}, nil
}

// meshShaderFeatureChain allocates the feature struct that enables task and mesh
// shaders at device creation. Release it with freeFeatureChain.
func meshShaderFeatureChain() (unsafe.Pointer, error) {
	chain := C.meshlet_mesh_features_chain()
	if chain == nil {
		return nil, core.ErrOutOfMemory
	}
	return chain, nil
}

func freeFeatureChain(chain unsafe.Pointer) {
	if chain != nil {
		C.free(chain)
	}
}

func loadDrawMeshTasks(instance vk.Instance, device vk.Device) (unsafe.Pointer, error) {
	fn := C.meshlet_load_draw_mesh_tasks(
		C.VkInstance(unsafe.Pointer(instance)),
		C.VkDevice(unsafe.Pointer(device)),
	)
	if fn == nil {
		return nil, fmt.Errorf("%w: vkCmdDrawMeshTasksEXT not available", core.ErrMissingFeature)
	}
	return fn, nil
}

func cmdDrawMeshTasks(fn unsafe.Pointer, cmd vk.CommandBuffer, x, y, z uint32) {
	C.meshlet_cmd_draw_mesh_tasks(fn, C.VkCommandBuffer(unsafe.Pointer(cmd)), C.uint32_t(x), C.uint32_t(y), C.uint32_t(z))
}
