package metadata

import "fmt"

/** @brief Pixel format of a presentable texture. */
type TextureFormat uint32

const (
	TextureFormatUndefined TextureFormat = iota
	TextureFormatBGRA8Unorm
	TextureFormatBGRA8UnormSrgb
	TextureFormatRGBA8Unorm
	TextureFormatRGBA8UnormSrgb
	TextureFormatRGB10A2Unorm
	TextureFormatRGBA16Float
)

var textureFormatNames = map[TextureFormat]string{
	TextureFormatUndefined:      "Undefined",
	TextureFormatBGRA8Unorm:     "Bgra8Unorm",
	TextureFormatBGRA8UnormSrgb: "Bgra8UnormSrgb",
	TextureFormatRGBA8Unorm:     "Rgba8Unorm",
	TextureFormatRGBA8UnormSrgb: "Rgba8UnormSrgb",
	TextureFormatRGB10A2Unorm:   "Rgb10a2Unorm",
	TextureFormatRGBA16Float:    "Rgba16Float",
}

func (f TextureFormat) String() string {
	if name, ok := textureFormatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("TextureFormat(%d)", uint32(f))
}

/** @brief Reports whether writes to this format are sRGB encoded by the hardware. */
func (f TextureFormat) IsSrgb() bool {
	return f == TextureFormatBGRA8UnormSrgb || f == TextureFormatRGBA8UnormSrgb
}

type LoadOp uint8

const (
	LoadOpClear LoadOp = iota
	LoadOpLoad
)

type StoreOp uint8

const (
	StoreOpStore StoreOp = iota
	StoreOpDiscard
)

/** @brief RGBA color with double precision channels, used for clear values. */
type Color struct {
	R, G, B, A float64
}
