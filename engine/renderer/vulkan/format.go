package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/meshlet/engine/renderer/metadata"
)

var textureFormats = []struct {
	format metadata.TextureFormat
	vk     vk.Format
}{
	{metadata.TextureFormatBGRA8Unorm, vk.FormatB8g8r8a8Unorm},
	{metadata.TextureFormatBGRA8UnormSrgb, vk.FormatB8g8r8a8Srgb},
	{metadata.TextureFormatRGBA8Unorm, vk.FormatR8g8b8a8Unorm},
	{metadata.TextureFormatRGBA8UnormSrgb, vk.FormatR8g8b8a8Srgb},
	{metadata.TextureFormatRGB10A2Unorm, vk.FormatA2b10g10r10UnormPack32},
	{metadata.TextureFormatRGBA16Float, vk.FormatR16g16b16a16Sfloat},
}

func toVkFormat(f metadata.TextureFormat) (vk.Format, bool) {
	for _, m := range textureFormats {
		if m.format == f {
			return m.vk, true
		}
	}
	return vk.FormatUndefined, false
}

func fromVkFormat(f vk.Format) (metadata.TextureFormat, bool) {
	for _, m := range textureFormats {
		if m.vk == f {
			return m.format, true
		}
	}
	return metadata.TextureFormatUndefined, false
}

var presentModes = []struct {
	mode metadata.PresentMode
	vk   vk.PresentMode
}{
	{metadata.PresentModeFifo, vk.PresentModeFifo},
	{metadata.PresentModeFifoRelaxed, vk.PresentModeFifoRelaxed},
	{metadata.PresentModeImmediate, vk.PresentModeImmediate},
	{metadata.PresentModeMailbox, vk.PresentModeMailbox},
}

// toVkPresentMode maps a concrete present mode. Auto modes must be resolved first.
func toVkPresentMode(m metadata.PresentMode) (vk.PresentMode, bool) {
	for _, p := range presentModes {
		if p.mode == m {
			return p.vk, true
		}
	}
	return vk.PresentModeFifo, false
}

func fromVkPresentMode(m vk.PresentMode) (metadata.PresentMode, bool) {
	for _, p := range presentModes {
		if p.vk == m {
			return p.mode, true
		}
	}
	return metadata.PresentModeFifo, false
}

var alphaModes = []struct {
	mode metadata.CompositeAlphaMode
	vk   vk.CompositeAlphaFlagBits
}{
	{metadata.CompositeAlphaModeOpaque, vk.CompositeAlphaOpaqueBit},
	{metadata.CompositeAlphaModePreMultiplied, vk.CompositeAlphaPreMultipliedBit},
	{metadata.CompositeAlphaModePostMultiplied, vk.CompositeAlphaPostMultipliedBit},
	{metadata.CompositeAlphaModeInherit, vk.CompositeAlphaInheritBit},
}

// alphaModesFromFlags lists the supported alpha modes in preference order.
func alphaModesFromFlags(flags vk.CompositeAlphaFlags) []metadata.CompositeAlphaMode {
	out := []metadata.CompositeAlphaMode{}
	for _, a := range alphaModes {
		if flags&vk.CompositeAlphaFlags(a.vk) != 0 {
			out = append(out, a.mode)
		}
	}
	return out
}

// toVkAlphaMode picks the requested alpha mode when the surface supports it,
// otherwise the first supported one. Auto always takes the fallback.
func toVkAlphaMode(m metadata.CompositeAlphaMode, supported vk.CompositeAlphaFlags) vk.CompositeAlphaFlagBits {
	for _, a := range alphaModes {
		if a.mode == m && supported&vk.CompositeAlphaFlags(a.vk) != 0 {
			return a.vk
		}
	}
	for _, a := range alphaModes {
		if supported&vk.CompositeAlphaFlags(a.vk) != 0 {
			return a.vk
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

func fromVkDeviceType(t vk.PhysicalDeviceType) metadata.DeviceType {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return metadata.DeviceTypeIntegratedGPU
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return metadata.DeviceTypeDiscreteGPU
	case vk.PhysicalDeviceTypeVirtualGpu:
		return metadata.DeviceTypeVirtualGPU
	case vk.PhysicalDeviceTypeCpu:
		return metadata.DeviceTypeCPU
	}
	return metadata.DeviceTypeOther
}

func toVkCullMode(m metadata.FaceCullMode) vk.CullModeFlags {
	switch m {
	case metadata.FaceCullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case metadata.FaceCullModeBack:
		return vk.CullModeFlags(vk.CullModeBackBit)
	}
	return vk.CullModeFlags(vk.CullModeNone)
}

// toVkFrontFace maps winding as seen in y-up clip space. Passes set a flipped
// viewport, so no extra inversion is needed.
func toVkFrontFace(f metadata.FrontFace) vk.FrontFace {
	if f == metadata.FrontFaceCW {
		return vk.FrontFaceClockwise
	}
	return vk.FrontFaceCounterClockwise
}

func toVkPolygonMode(m metadata.PolygonMode) vk.PolygonMode {
	if m == metadata.PolygonModeLine {
		return vk.PolygonModeLine
	}
	return vk.PolygonModeFill
}

func toVkBlendFactor(f metadata.BlendFactor) vk.BlendFactor {
	switch f {
	case metadata.BlendFactorOne:
		return vk.BlendFactorOne
	case metadata.BlendFactorSrcAlpha:
		return vk.BlendFactorSrcAlpha
	case metadata.BlendFactorOneMinusSrcAlpha:
		return vk.BlendFactorOneMinusSrcAlpha
	}
	return vk.BlendFactorZero
}

func toVkBlendOp(op metadata.BlendOperation) vk.BlendOp {
	if op == metadata.BlendOperationSubtract {
		return vk.BlendOpSubtract
	}
	return vk.BlendOpAdd
}

func toVkColorWrites(w metadata.ColorWrites) vk.ColorComponentFlags {
	var out vk.ColorComponentFlagBits
	if w&metadata.ColorWriteRed != 0 {
		out |= vk.ColorComponentRBit
	}
	if w&metadata.ColorWriteGreen != 0 {
		out |= vk.ColorComponentGBit
	}
	if w&metadata.ColorWriteBlue != 0 {
		out |= vk.ColorComponentBBit
	}
	if w&metadata.ColorWriteAlpha != 0 {
		out |= vk.ColorComponentABit
	}
	return vk.ColorComponentFlags(out)
}

func toVkLoadOp(op metadata.LoadOp) vk.AttachmentLoadOp {
	if op == metadata.LoadOpLoad {
		return vk.AttachmentLoadOpLoad
	}
	return vk.AttachmentLoadOpClear
}

func toVkStoreOp(op metadata.StoreOp) vk.AttachmentStoreOp {
	if op == metadata.StoreOpDiscard {
		return vk.AttachmentStoreOpDontCare
	}
	return vk.AttachmentStoreOpStore
}
