package renderer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/meshlet/engine/core"
	"github.com/spaghettifunk/meshlet/engine/renderer/metadata"
)

func initialize(t *testing.T, b *fakeBackend, w *fakeWindow, opts ...Option) *FrameRenderer {
	t.Helper()
	opts = append([]Option{WithShaderSource(testShaders())}, opts...)
	r, err := Initialize(context.Background(), b, w, opts...)
	require.NoError(t, err)
	return r
}

func TestInitializeConfiguresSurface(t *testing.T) {
	gpu := newMeshAdapter("gpu")
	b := newFakeBackend(gpu)
	r := initialize(t, b, &fakeWindow{800, 600})

	cfg := r.Configuration()
	assert.Equal(t, uint32(800), cfg.Width)
	assert.Equal(t, uint32(600), cfg.Height)
	assert.Equal(t, metadata.PresentModeAutoVsync, cfg.PresentMode)
	assert.Equal(t, metadata.TextureFormatBGRA8UnormSrgb, cfg.Format)
	assert.Equal(t, cfg.Format, r.PipelineFormat())
	assert.Equal(t, StateConfigured, r.State())
	assert.Zero(t, r.ValidationErrors())
	assert.Equal(t, "gpu", r.AdapterInfo().Name)
	require.Len(t, b.surface.configs, 1)

	assert.Equal(t, "meshlet", b.lastDesc.ApplicationName)
	assert.Equal(t, metadata.BackendVulkan, b.lastDesc.Backends)

	desc := gpu.lastDesc
	require.NotNil(t, desc)
	assert.True(t, desc.ExperimentalFeatures.IsEnabled())
	assert.True(t, desc.RequiredFeatures.Contains(metadata.FeatureExperimentalMeshShader))
	assert.Equal(t, RequiredLimits(), desc.RequiredLimits)
}

func TestInitializeHonoursConfiguredOptions(t *testing.T) {
	b := newFakeBackend(newMeshAdapter("gpu"))
	r := initialize(t, b, &fakeWindow{800, 600},
		WithPresentMode(metadata.PresentModeMailbox),
		WithBackends(metadata.BackendAll),
	)

	assert.Equal(t, metadata.PresentModeMailbox, r.Configuration().PresentMode)
	assert.Equal(t, metadata.PresentModeMailbox, b.surface.current().PresentMode)
	assert.Equal(t, metadata.BackendAll, b.lastDesc.Backends)
}

func TestInitializeBuildsMeshPipeline(t *testing.T) {
	gpu := newMeshAdapter("gpu")
	b := newFakeBackend(gpu)
	initialize(t, b, &fakeWindow{800, 600}, WithLabel("triangle"))

	require.Len(t, gpu.device.moduleDescs, 1)
	assert.Equal(t, "triangle", gpu.device.moduleDescs[0].Label)

	p := gpu.device.pipelineDesc
	require.NotNil(t, p)
	assert.Equal(t, "triangle", p.Label)
	assert.NotNil(t, p.Task)
	assert.NotNil(t, p.Mesh.Module)
	require.NotNil(t, p.Fragment)
	require.Len(t, p.Fragment.Targets, 1)
	assert.True(t, p.Fragment.Targets[0].Blend.IsReplace())
	assert.Equal(t, metadata.ColorWriteAll, p.Fragment.Targets[0].WriteMask)
	assert.Equal(t, metadata.PrimitiveTopologyTriangleList, p.Primitive.Topology)
	assert.Equal(t, metadata.FrontFaceCCW, p.Primitive.FrontFace)
	assert.Equal(t, metadata.FaceCullModeBack, p.Primitive.CullMode)
	assert.Nil(t, p.DepthStencil)
	assert.Equal(t, metadata.DefaultMultisampleState(), p.Multisample)
}

func TestInitializeWithoutMeshAdapter(t *testing.T) {
	b := newFakeBackend(newPlainAdapter("integrated"))
	_, err := Initialize(context.Background(), b, &fakeWindow{800, 600}, WithShaderSource(testShaders()))

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoMeshShaderAdapter)
	assert.Contains(t, err.Error(), "mesh shader support")
	assert.True(t, b.surface.destroyed)
	assert.True(t, b.instance.destroyed)
}

func TestInitializePicksFirstCapableAdapter(t *testing.T) {
	weak := newMeshAdapter("weak")
	weak.limits.MaxMeshOutputLayers = 4
	b := newFakeBackend(newPlainAdapter("plain"), weak, newMeshAdapter("first"), newMeshAdapter("second"))

	r := initialize(t, b, &fakeWindow{640, 480})
	assert.Equal(t, "first", r.AdapterInfo().Name)
}

func TestInitializeDeviceRejected(t *testing.T) {
	gpu := newMeshAdapter("gpu")
	gpu.deviceErr = errors.New("driver said no")
	b := newFakeBackend(gpu)

	_, err := Initialize(context.Background(), b, &fakeWindow{800, 600}, WithShaderSource(testShaders()))
	assert.ErrorIs(t, err, core.ErrDeviceRequest)
	assert.Contains(t, err.Error(), "driver said no")
	assert.Equal(t, []string{"surface.destroy", "instance.destroy"}, b.rec.calls)
}

func TestInitializeSurfaceUnsupported(t *testing.T) {
	gpu := newMeshAdapter("gpu")
	gpu.noSurface = true
	b := newFakeBackend(gpu)

	_, err := Initialize(context.Background(), b, &fakeWindow{800, 600}, WithShaderSource(testShaders()))
	assert.ErrorIs(t, err, core.ErrSurfaceUnsupported)
	assert.Equal(t, []string{"surface.destroy", "device.destroy", "instance.destroy"}, b.rec.calls)
}

func TestInitializeMissingShader(t *testing.T) {
	gpu := newMeshAdapter("gpu")
	b := newFakeBackend(gpu)

	_, err := Initialize(context.Background(), b, &fakeWindow{800, 600})
	assert.ErrorIs(t, err, core.ErrMissingShader)
	assert.Nil(t, gpu.device.pipelineDesc)
	assert.True(t, gpu.device.destroyed)
	assert.True(t, b.surface.destroyed)
}

func TestInitializeReleasesPartialState(t *testing.T) {
	gpu := newMeshAdapter("gpu")
	gpu.device.pipelineErr = errors.New("pipeline compile failed")
	b := newFakeBackend(gpu)

	_, err := Initialize(context.Background(), b, &fakeWindow{800, 600}, WithShaderSource(testShaders()))
	require.Error(t, err)
	assert.Equal(t, []string{
		"configure",
		"layout.destroy",
		"module.destroy",
		"surface.destroy",
		"device.destroy",
		"instance.destroy",
	}, b.rec.calls)
}

func TestFinishInitializeHonoursContext(t *testing.T) {
	gpu := newMeshAdapter("gpu")
	gpu.hold = true
	b := newFakeBackend(gpu)

	pending, err := BeginInitialize(b, &fakeWindow{800, 600}, WithShaderSource(testShaders()))
	require.NoError(t, err)
	assert.Equal(t, "gpu", pending.AdapterInfo().Name)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = FinishInitialize(ctx, pending)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, b.surface.destroyed)
	assert.False(t, b.instance.destroyed, "the instance waits for the device")
	assert.False(t, gpu.device.destroyed)

	b.rec.calls = nil
	gpu.request.Resolve(gpu.device, gpu.device.queue, nil)
	assert.True(t, gpu.device.destroyed)
	assert.True(t, b.instance.destroyed)
	assert.Equal(t, []string{"device.destroy", "instance.destroy"}, b.rec.calls)
}

func TestFinishInitializeCancelledAfterFailedRequest(t *testing.T) {
	gpu := newMeshAdapter("gpu")
	gpu.hold = true
	b := newFakeBackend(gpu)

	pending, err := BeginInitialize(b, &fakeWindow{800, 600}, WithShaderSource(testShaders()))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = FinishInitialize(ctx, pending)
	require.ErrorIs(t, err, context.Canceled)

	gpu.request.Resolve(nil, nil, errors.New("out of memory"))
	assert.False(t, gpu.device.destroyed)
	assert.True(t, b.instance.destroyed)
}

func TestFinishInitializePrefersResolvedDevice(t *testing.T) {
	gpu := newMeshAdapter("gpu")
	b := newFakeBackend(gpu)

	pending, err := BeginInitialize(b, &fakeWindow{800, 600}, WithShaderSource(testShaders()))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 20; i++ {
		_, _, err := pending.request.Wait(ctx)
		require.NoError(t, err)
	}
	r, err := FinishInitialize(ctx, pending)
	require.NoError(t, err)
	assert.Equal(t, StateConfigured, r.State())
}

func TestDeviceRequestAbandon(t *testing.T) {
	req := NewDeviceRequest()
	dev := newFakeDevice()
	req.Resolve(dev, dev.queue, nil)

	var released []Device
	req.Abandon(func(d Device) { released = append(released, d) })
	req.Abandon(func(d Device) { released = append(released, d) })
	req.Resolve(nil, nil, errors.New("late"))
	require.Len(t, released, 1)
	assert.Same(t, dev, released[0])
}

func TestBeginInitializeRejectsBackendMismatch(t *testing.T) {
	b := newFakeBackend(newMeshAdapter("gpu"))
	_, err := BeginInitialize(b, &fakeWindow{800, 600}, WithBackends(metadata.BackendMetal))
	assert.ErrorIs(t, err, core.ErrUnsupportedBackend)
	assert.Nil(t, b.instance)
}

func TestSelectAdapter(t *testing.T) {
	_, err := SelectAdapter(nil, RequiredFeatures(), RequiredLimits())
	assert.ErrorIs(t, err, core.ErrNoMeshShaderAdapter)

	a, err := SelectAdapter([]Adapter{newPlainAdapter("a"), newMeshAdapter("b")}, RequiredFeatures(), RequiredLimits())
	require.NoError(t, err)
	assert.Equal(t, "b", a.Info().Name)
}

func TestParseAcquireRetryPolicy(t *testing.T) {
	cases := map[string]AcquireRetryPolicy{
		"":                 AcquireRetryReconfigureOnce,
		"reconfigure_once": AcquireRetryReconfigureOnce,
		"none":             AcquireRetryNone,
		"fail":             AcquireRetryNone,
	}
	for in, want := range cases {
		got, err := ParseAcquireRetryPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseAcquireRetryPolicy("forever")
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestDeviceRequestResolvesOnce(t *testing.T) {
	req := NewDeviceRequest()
	dev := newFakeDevice()
	req.Resolve(dev, dev.queue, nil)
	req.Resolve(nil, nil, errors.New("late"))

	select {
	case <-req.Done():
	default:
		t.Fatal("request should be done")
	}
	d, q, err := req.Wait(context.Background())
	require.NoError(t, err)
	assert.Same(t, dev, d)
	assert.Same(t, dev.queue, q)
}
