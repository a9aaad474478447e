package metadata

import (
	"fmt"
	"strings"
)

/** @brief Bit set of graphics API families. */
type Backends uint32

const (
	BackendVulkan Backends = 1 << iota
	BackendMetal
	BackendDX12
	BackendGL

	BackendPrimary = BackendVulkan | BackendMetal | BackendDX12
	BackendAll     = BackendPrimary | BackendGL
)

func (b Backends) Contains(other Backends) bool {
	return b&other == other && other != 0
}

func (b Backends) String() string {
	names := []string{}
	for _, n := range []struct {
		b    Backends
		name string
	}{{BackendVulkan, "Vulkan"}, {BackendMetal, "Metal"}, {BackendDX12, "Dx12"}, {BackendGL, "Gl"}} {
		if b&n.b != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "Empty"
	}
	return strings.Join(names, "|")
}

// ParseBackend maps a configuration name onto a backend set.
func ParseBackend(s string) (Backends, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary":
		return BackendPrimary, nil
	case "all":
		return BackendAll, nil
	case "", "vulkan":
		return BackendVulkan, nil
	case "metal":
		return BackendMetal, nil
	case "dx12":
		return BackendDX12, nil
	case "gl":
		return BackendGL, nil
	}
	return 0, fmt.Errorf("unknown backend %q", s)
}

type DeviceType uint8

const (
	DeviceTypeOther DeviceType = iota
	DeviceTypeIntegratedGPU
	DeviceTypeDiscreteGPU
	DeviceTypeVirtualGPU
	DeviceTypeCPU
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeIntegratedGPU:
		return "IntegratedGpu"
	case DeviceTypeDiscreteGPU:
		return "DiscreteGpu"
	case DeviceTypeVirtualGPU:
		return "VirtualGpu"
	case DeviceTypeCPU:
		return "Cpu"
	}
	return "Other"
}

/** @brief Descriptive information about an adapter, used only for logging. */
type AdapterInfo struct {
	Name       string
	Vendor     uint32
	Device     uint32
	DeviceType DeviceType
	Driver     string
	DriverInfo string
	Backend    Backends
}

/**
 * @brief The window a surface presents into.
 * Sizes are framebuffer pixels; a minimized window reports zero.
 */
type Window interface {
	FramebufferSize() (width, height uint32)
}
