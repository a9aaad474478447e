package renderer

import (
	"context"
	"errors"
	"fmt"

	"github.com/spaghettifunk/meshlet/engine/core"
	"github.com/spaghettifunk/meshlet/engine/renderer/metadata"
)

// AcquireRetryPolicy decides what Render does when the next surface texture is unavailable.
type AcquireRetryPolicy uint8

const (
	// Any acquisition failure is returned to the caller.
	AcquireRetryNone AcquireRetryPolicy = iota
	// An outdated or timed out surface is reconfigured to the window size and acquired once more.
	AcquireRetryReconfigureOnce
)

func (p AcquireRetryPolicy) String() string {
	switch p {
	case AcquireRetryNone:
		return "none"
	case AcquireRetryReconfigureOnce:
		return "reconfigure_once"
	}
	return fmt.Sprintf("AcquireRetryPolicy(%d)", uint8(p))
}

func ParseAcquireRetryPolicy(s string) (AcquireRetryPolicy, error) {
	switch s {
	case "none", "fail":
		return AcquireRetryNone, nil
	case "", "reconfigure_once":
		return AcquireRetryReconfigureOnce, nil
	}
	return AcquireRetryNone, fmt.Errorf("%w: unknown acquire retry policy %q", core.ErrInvalidConfig, s)
}

// ClearColor is the color every frame starts from.
var ClearColor = metadata.Color{R: 0.01, G: 0.01, B: 0.01, A: 1.0}

type options struct {
	applicationName string
	label           string
	backends        metadata.Backends
	validation      bool
	shaderSource    metadata.ShaderSource
	acquireRetry    AcquireRetryPolicy
	presentMode     metadata.PresentMode
}

type Option func(*options)

func WithApplicationName(name string) Option {
	return func(o *options) { o.applicationName = name }
}

func WithLabel(label string) Option {
	return func(o *options) { o.label = label }
}

// WithBackends restricts adapter enumeration. Defaults to Vulkan.
func WithBackends(b metadata.Backends) Option {
	return func(o *options) { o.backends = b }
}

func WithValidation(enabled bool) Option {
	return func(o *options) { o.validation = enabled }
}

func WithShaderSource(src metadata.ShaderSource) Option {
	return func(o *options) { o.shaderSource = src }
}

func WithAcquireRetry(p AcquireRetryPolicy) Option {
	return func(o *options) { o.acquireRetry = p }
}

// WithPresentMode picks the requested present mode. Auto modes fall back to Fifo.
func WithPresentMode(m metadata.PresentMode) Option {
	return func(o *options) { o.presentMode = m }
}

func defaultOptions() *options {
	return &options{
		applicationName: "meshlet",
		label:           "mesh",
		backends:        metadata.BackendVulkan,
		acquireRetry:    AcquireRetryReconfigureOnce,
		presentMode:     metadata.PresentModeAutoVsync,
	}
}

// RequiredFeatures and RequiredLimits are what an adapter must offer to be selected.
func RequiredFeatures() metadata.Features {
	return metadata.FeatureExperimentalMeshShader
}

func RequiredLimits() metadata.Limits {
	return metadata.DefaultLimits().UsingRecommendedMinimumMeshShaderValues()
}

// SelectAdapter returns the first adapter that has every feature and meets every limit.
func SelectAdapter(adapters []Adapter, features metadata.Features, limits metadata.Limits) (Adapter, error) {
	for _, a := range adapters {
		info := a.Info()
		if !a.Features().Contains(features) {
			core.LogDebug("Adapter '%s' lacks features %s, skipping.", info.Name, features&^a.Features())
			continue
		}
		if failures := limits.Failures(a.Limits()); len(failures) > 0 {
			for _, f := range failures {
				core.LogDebug("Adapter '%s' limit %s, skipping.", info.Name, f)
			}
			continue
		}
		return a, nil
	}
	return nil, core.ErrNoMeshShaderAdapter
}

// PendingRenderer holds everything built before the device request resolves.
type PendingRenderer struct {
	opts     *options
	window   metadata.Window
	instance Instance
	surface  Surface
	adapter  Adapter
	request  *DeviceRequest
}

// AdapterInfo describes the adapter the device was requested from.
func (p *PendingRenderer) AdapterInfo() metadata.AdapterInfo {
	return p.adapter.Info()
}

// BeginInitialize creates the instance and surface, picks a mesh-capable adapter
// and dispatches the device request. It does not block on the device.
func BeginInitialize(backend Backend, window metadata.Window, opts ...Option) (*PendingRenderer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if window == nil {
		return nil, fmt.Errorf("begin initialize: nil window")
	}
	if backend.Backends()&o.backends == 0 {
		return nil, fmt.Errorf("%w: %s cannot serve %s", core.ErrUnsupportedBackend, backend.Name(), o.backends)
	}

	instance, err := backend.CreateInstance(&InstanceDescriptor{
		ApplicationName: o.applicationName,
		Backends:        o.backends,
		Validation:      o.validation,
		Window:          window,
	})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	surface, err := instance.CreateSurface(window)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("create surface: %w", err)
	}

	adapters, err := instance.EnumerateAdapters(o.backends)
	if err != nil {
		surface.Destroy()
		instance.Destroy()
		return nil, fmt.Errorf("enumerate adapters: %w", err)
	}
	core.LogDebug("Found %d adapter(s) for %s.", len(adapters), o.backends)

	adapter, err := SelectAdapter(adapters, RequiredFeatures(), RequiredLimits())
	if err != nil {
		surface.Destroy()
		instance.Destroy()
		return nil, err
	}

	info := adapter.Info()
	core.LogInfo("GPU: %s", info.Name)
	core.LogInfo("Render Backend: %s", info.Backend)
	core.LogDebug("Device type: %s, driver: %s %s", info.DeviceType, info.Driver, info.DriverInfo)

	request := adapter.RequestDevice(&DeviceDescriptor{
		Label:                o.label,
		RequiredFeatures:     RequiredFeatures(),
		RequiredLimits:       RequiredLimits(),
		ExperimentalFeatures: metadata.ExperimentalFeaturesEnabled(),
	})

	return &PendingRenderer{
		opts:     o,
		window:   window,
		instance: instance,
		surface:  surface,
		adapter:  adapter,
		request:  request,
	}, nil
}

// FinishInitialize waits for the device and builds the configured surface and pipeline.
func FinishInitialize(ctx context.Context, p *PendingRenderer) (*FrameRenderer, error) {
	return p.Finish(ctx)
}

func (p *PendingRenderer) Finish(ctx context.Context) (*FrameRenderer, error) {
	var cleanup []func()
	fail := func(err error) (*FrameRenderer, error) {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
		return nil, err
	}
	cleanup = append(cleanup, p.instance.Destroy)

	device, queue, err := p.request.Wait(ctx)
	if err != nil {
		p.surface.Destroy()
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			// the instance has to outlive a device that may still arrive
			p.request.Abandon(func(device Device) {
				if device != nil {
					device.Destroy()
				}
				p.instance.Destroy()
			})
			return nil, fmt.Errorf("waiting for device: %w", err)
		}
		return fail(fmt.Errorf("%w: %w", core.ErrDeviceRequest, err))
	}
	cleanup = append(cleanup, device.Destroy)
	// the surface's presentation chain depends on the device
	cleanup = append(cleanup, p.surface.Destroy)

	width, height := p.window.FramebufferSize()
	config := p.surface.DefaultConfig(p.adapter, width, height)
	if config == nil {
		return fail(core.ErrSurfaceUnsupported)
	}
	config.PresentMode = p.opts.presentMode
	core.LogInfo("Surface format: %s", config.Format)

	if err := p.surface.Configure(device, config); err != nil {
		return fail(fmt.Errorf("configure surface: %w", err))
	}

	src := p.opts.shaderSource
	if err := src.Validate(); err != nil {
		return fail(fmt.Errorf("%w: %w", core.ErrMissingShader, err))
	}
	module, err := device.CreateShaderModule(&ShaderModuleDescriptor{Label: p.opts.label, Source: src})
	if err != nil {
		return fail(fmt.Errorf("create shader module: %w", err))
	}
	cleanup = append(cleanup, module.Destroy)

	layout, err := device.CreatePipelineLayout(&PipelineLayoutDescriptor{Label: p.opts.label})
	if err != nil {
		return fail(fmt.Errorf("create pipeline layout: %w", err))
	}
	cleanup = append(cleanup, layout.Destroy)

	pipeline, err := device.CreateMeshPipeline(NewMeshPipelineDescriptor(p.opts.label, layout, module, config.Format))
	if err != nil {
		return fail(fmt.Errorf("create mesh pipeline: %w", err))
	}

	core.LogDebug("Renderer ready: %s", config)
	return &FrameRenderer{
		instance:     p.instance,
		surface:      p.surface,
		config:       *config,
		device:       device,
		queue:        queue,
		module:       module,
		layout:       layout,
		pipeline:     pipeline,
		window:       p.window,
		adapterInfo:  p.adapter.Info(),
		acquireRetry: p.opts.acquireRetry,
		state:        StateConfigured,
	}, nil
}

// Initialize runs both phases back to back.
func Initialize(ctx context.Context, backend Backend, window metadata.Window, opts ...Option) (*FrameRenderer, error) {
	pending, err := BeginInitialize(backend, window, opts...)
	if err != nil {
		return nil, err
	}
	return pending.Finish(ctx)
}

// NewMeshPipelineDescriptor describes the single task+mesh+fragment pipeline drawn every frame.
func NewMeshPipelineDescriptor(label string, layout PipelineLayout, module ShaderModule, format metadata.TextureFormat) *MeshPipelineDescriptor {
	return &MeshPipelineDescriptor{
		Label:  label,
		Layout: layout,
		Task:   &ProgrammableStage{Module: module},
		Mesh:   ProgrammableStage{Module: module},
		Fragment: &FragmentState{
			ProgrammableStage: ProgrammableStage{Module: module},
			Targets: []metadata.ColorTargetState{{
				Format:    format,
				Blend:     &metadata.BlendStateReplace,
				WriteMask: metadata.ColorWriteAll,
			}},
		},
		Primitive: metadata.PrimitiveState{
			Topology:    metadata.PrimitiveTopologyTriangleList,
			FrontFace:   metadata.FrontFaceCCW,
			CullMode:    metadata.FaceCullModeBack,
			PolygonMode: metadata.PolygonModeFill,
		},
		DepthStencil: nil,
		Multisample:  metadata.DefaultMultisampleState(),
	}
}
