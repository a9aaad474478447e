package vulkan

import (
	"fmt"
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/meshlet/engine/core"
	"github.com/spaghettifunk/meshlet/engine/renderer"
	"github.com/spaghettifunk/meshlet/engine/renderer/metadata"
)

// Window is what the Vulkan backend needs from the platform window.
type Window interface {
	metadata.Window
	RequiredInstanceExtensions() []string
	CreateWindowSurface(instance interface{}) (uintptr, error)
}

var (
	loadOnce sync.Once
	loadErr  error
)

// loadVulkan resolves the loader through GLFW. GLFW must be initialized first.
func loadVulkan() error {
	loadOnce.Do(func() {
		procAddr := glfw.GetVulkanGetInstanceProcAddress()
		if procAddr == nil {
			loadErr = fmt.Errorf("%w: GetInstanceProcAddress is nil, is a Vulkan loader installed?", core.ErrUnsupportedBackend)
			return
		}
		vk.SetGetInstanceProcAddr(procAddr)
		setInstanceProcAddr(procAddr)

		if err := vk.Init(); err != nil {
			loadErr = fmt.Errorf("%w: failed to initialize vk: %s", core.ErrUnsupportedBackend, err)
		}
	})
	return loadErr
}

// Backend implements renderer.Backend on top of Vulkan 1.3 with VK_EXT_mesh_shader.
type Backend struct{}

func NewBackend() *Backend {
	return &Backend{}
}

func (b *Backend) Name() string {
	return "Vulkan"
}

func (b *Backend) Backends() metadata.Backends {
	return metadata.BackendVulkan
}

func (b *Backend) CreateInstance(desc *renderer.InstanceDescriptor) (renderer.Instance, error) {
	if err := loadVulkan(); err != nil {
		return nil, err
	}
	return newInstance(desc)
}
