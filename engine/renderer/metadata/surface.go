package metadata

import (
	"fmt"
	"strings"
)

/** @brief How frames are queued for display. */
type PresentMode uint32

const (
	// Vsync-locked. Picks FifoRelaxed when available, otherwise Fifo.
	PresentModeAutoVsync PresentMode = iota
	// Not vsync-locked. Picks Immediate, then Mailbox, then Fifo.
	PresentModeAutoNoVsync
	PresentModeFifo
	PresentModeFifoRelaxed
	PresentModeImmediate
	PresentModeMailbox
)

var presentModeNames = map[PresentMode]string{
	PresentModeAutoVsync:   "AutoVsync",
	PresentModeAutoNoVsync: "AutoNoVsync",
	PresentModeFifo:        "Fifo",
	PresentModeFifoRelaxed: "FifoRelaxed",
	PresentModeImmediate:   "Immediate",
	PresentModeMailbox:     "Mailbox",
}

func (m PresentMode) String() string {
	if name, ok := presentModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("PresentMode(%d)", uint32(m))
}

// ParsePresentMode accepts the snake_case names used in configuration files.
func ParsePresentMode(s string) (PresentMode, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "")
	for mode, name := range presentModeNames {
		if strings.ToLower(name) == key {
			return mode, nil
		}
	}
	return PresentModeAutoVsync, fmt.Errorf("unknown present mode %q", s)
}

// ResolvePresentMode turns a requested mode into one of the supported concrete modes.
// Auto modes always resolve when Fifo is supported; concrete modes must be supported as-is.
func ResolvePresentMode(requested PresentMode, supported []PresentMode) (PresentMode, bool) {
	var candidates []PresentMode
	switch requested {
	case PresentModeAutoVsync:
		candidates = []PresentMode{PresentModeFifoRelaxed, PresentModeFifo}
	case PresentModeAutoNoVsync:
		candidates = []PresentMode{PresentModeImmediate, PresentModeMailbox, PresentModeFifo}
	default:
		candidates = []PresentMode{requested}
	}
	for _, c := range candidates {
		for _, s := range supported {
			if c == s {
				return c, true
			}
		}
	}
	return requested, false
}

/** @brief How the compositor treats the alpha channel of presented frames. */
type CompositeAlphaMode uint32

const (
	CompositeAlphaModeAuto CompositeAlphaMode = iota
	CompositeAlphaModeOpaque
	CompositeAlphaModePreMultiplied
	CompositeAlphaModePostMultiplied
	CompositeAlphaModeInherit
)

/**
 * @brief The negotiated presentation parameters of a surface.
 * Width and Height are always non-zero once a surface is configured.
 */
type SurfaceConfiguration struct {
	Format                     TextureFormat
	Width                      uint32
	Height                     uint32
	PresentMode                PresentMode
	AlphaMode                  CompositeAlphaMode
	DesiredMaximumFrameLatency uint32
}

func (c SurfaceConfiguration) String() string {
	return fmt.Sprintf("%dx%d %s %s", c.Width, c.Height, c.Format, c.PresentMode)
}

/** @brief What a surface supports on a given adapter. */
type SurfaceCapabilities struct {
	Formats      []TextureFormat
	PresentModes []PresentMode
	AlphaModes   []CompositeAlphaMode
}

// PreferredFormat returns the first sRGB format, or the first format when none is sRGB.
func (c SurfaceCapabilities) PreferredFormat() (TextureFormat, bool) {
	if len(c.Formats) == 0 {
		return TextureFormatUndefined, false
	}
	for _, f := range c.Formats {
		if f.IsSrgb() {
			return f, true
		}
	}
	return c.Formats[0], true
}

// DefaultConfiguration derives the configuration a surface would use at the given size.
// The boolean is false when the surface has nothing to offer.
func (c SurfaceCapabilities) DefaultConfiguration(width, height uint32) (*SurfaceConfiguration, bool) {
	format, ok := c.PreferredFormat()
	if !ok || len(c.PresentModes) == 0 {
		return nil, false
	}
	alpha := CompositeAlphaModeAuto
	if len(c.AlphaModes) > 0 {
		alpha = c.AlphaModes[0]
	}
	return &SurfaceConfiguration{
		Format:                     format,
		Width:                      width,
		Height:                     height,
		PresentMode:                PresentModeFifo,
		AlphaMode:                  alpha,
		DesiredMaximumFrameLatency: 2,
	}, true
}
