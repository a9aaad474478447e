package metadata

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePresentMode(t *testing.T) {
	fifoOnly := []PresentMode{PresentModeFifo}
	all := []PresentMode{PresentModeImmediate, PresentModeMailbox, PresentModeFifo, PresentModeFifoRelaxed}

	mode, ok := ResolvePresentMode(PresentModeAutoVsync, fifoOnly)
	require.True(t, ok)
	assert.Equal(t, PresentModeFifo, mode)

	mode, ok = ResolvePresentMode(PresentModeAutoVsync, all)
	require.True(t, ok)
	assert.Equal(t, PresentModeFifoRelaxed, mode)

	mode, ok = ResolvePresentMode(PresentModeAutoNoVsync, all)
	require.True(t, ok)
	assert.Equal(t, PresentModeImmediate, mode)

	mode, ok = ResolvePresentMode(PresentModeAutoNoVsync, []PresentMode{PresentModeFifo, PresentModeMailbox})
	require.True(t, ok)
	assert.Equal(t, PresentModeMailbox, mode)

	_, ok = ResolvePresentMode(PresentModeImmediate, fifoOnly)
	assert.False(t, ok)

	_, ok = ResolvePresentMode(PresentModeAutoVsync, nil)
	assert.False(t, ok)
}

func TestParsePresentMode(t *testing.T) {
	mode, err := ParsePresentMode("auto_vsync")
	require.NoError(t, err)
	assert.Equal(t, PresentModeAutoVsync, mode)

	mode, err = ParsePresentMode("FifoRelaxed")
	require.NoError(t, err)
	assert.Equal(t, PresentModeFifoRelaxed, mode)

	_, err = ParsePresentMode("triple")
	assert.Error(t, err)
}

func TestDefaultConfigurationPrefersSrgb(t *testing.T) {
	caps := SurfaceCapabilities{
		Formats:      []TextureFormat{TextureFormatBGRA8Unorm, TextureFormatBGRA8UnormSrgb},
		PresentModes: []PresentMode{PresentModeFifo, PresentModeMailbox},
		AlphaModes:   []CompositeAlphaMode{CompositeAlphaModeOpaque},
	}
	cfg, ok := caps.DefaultConfiguration(800, 600)
	require.True(t, ok)
	assert.Equal(t, TextureFormatBGRA8UnormSrgb, cfg.Format)
	assert.Equal(t, uint32(800), cfg.Width)
	assert.Equal(t, uint32(600), cfg.Height)
	assert.Equal(t, PresentModeFifo, cfg.PresentMode)
	assert.Equal(t, CompositeAlphaModeOpaque, cfg.AlphaMode)

	caps.Formats = []TextureFormat{TextureFormatRGBA16Float, TextureFormatBGRA8Unorm}
	cfg, ok = caps.DefaultConfiguration(1, 1)
	require.True(t, ok)
	assert.Equal(t, TextureFormatRGBA16Float, cfg.Format)

	_, ok = SurfaceCapabilities{}.DefaultConfiguration(800, 600)
	assert.False(t, ok)
}

func TestLimitsCheck(t *testing.T) {
	required := DefaultLimits().UsingRecommendedMinimumMeshShaderValues()
	assert.Equal(t, uint32(65536), required.MaxTaskWorkgroupTotalCount)
	assert.Equal(t, uint32(256), required.MaxTaskWorkgroupsPerDimension)
	assert.Equal(t, uint32(8), required.MaxMeshOutputLayers)

	capable := Limits{
		MaxTextureDimension2D:         16384,
		MaxColorAttachments:           8,
		MaxTaskWorkgroupTotalCount:    1 << 22,
		MaxTaskWorkgroupsPerDimension: 65535,
		MaxMeshMultiviewViewCount:     4,
		MaxMeshOutputLayers:           2048,
	}
	assert.True(t, required.Check(capable))
	assert.Empty(t, required.Failures(capable))

	// no mesh shading at all still satisfies the defaults
	assert.True(t, DefaultLimits().Check(Limits{MaxTextureDimension2D: 8192, MaxColorAttachments: 8}))

	weak := capable
	weak.MaxMeshOutputLayers = 4
	failures := required.Failures(weak)
	require.Len(t, failures, 1)
	assert.Equal(t, "max_mesh_output_layers", failures[0].Name)
	assert.False(t, required.Check(weak))
}

func TestFeatures(t *testing.T) {
	f := FeatureExperimentalMeshShader | FeatureTimestampQuery
	assert.True(t, f.Contains(FeatureExperimentalMeshShader))
	assert.False(t, f.Contains(FeatureExperimentalMeshShader|FeatureExperimentalMeshShaderMultiview))
	assert.Equal(t, "EXPERIMENTAL_MESH_SHADER|TIMESTAMP_QUERY", f.String())
	assert.True(t, ExperimentalFeaturesEnabled().IsEnabled())
	assert.False(t, ExperimentalFeatures{}.IsEnabled())
}

func TestBackends(t *testing.T) {
	assert.True(t, BackendPrimary.Contains(BackendVulkan))
	assert.False(t, BackendVulkan.Contains(BackendGL))
	assert.Equal(t, "Vulkan", BackendVulkan.String())

	b, err := ParseBackend("vulkan")
	require.NoError(t, err)
	assert.Equal(t, BackendVulkan, b)
	b, err = ParseBackend(" Primary ")
	require.NoError(t, err)
	assert.Equal(t, BackendPrimary, b)
	b, err = ParseBackend("all")
	require.NoError(t, err)
	assert.True(t, b.Contains(BackendGL|BackendVulkan))
	_, err = ParseBackend("webgl")
	assert.Error(t, err)
}

func TestValidateSPIRV(t *testing.T) {
	code := make([]byte, 20)
	binary.LittleEndian.PutUint32(code, 0x07230203)
	binary.LittleEndian.PutUint32(code[4:], 0x00010600)
	require.NoError(t, ValidateSPIRV(code))
	assert.Equal(t, []uint32{0x07230203, 0x00010600, 0, 0, 0}, SPIRVWords(code))

	assert.ErrorIs(t, ValidateSPIRV(code[:18]), ErrInvalidSPIRV)
	bad := append([]byte{}, code...)
	bad[0] = 0
	assert.ErrorIs(t, ValidateSPIRV(bad), ErrInvalidSPIRV)

	src := ShaderSource{Task: code, Mesh: code}
	err := src.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fragment stage")
}

func TestBlendReplace(t *testing.T) {
	var none *BlendState
	assert.True(t, none.IsReplace())
	replace := BlendStateReplace
	assert.True(t, replace.IsReplace())
	alpha := BlendState{Color: BlendComponent{SrcFactor: BlendFactorSrcAlpha, DstFactor: BlendFactorOneMinusSrcAlpha}}
	assert.False(t, alpha.IsReplace())
}
