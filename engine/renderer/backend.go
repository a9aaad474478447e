package renderer

import "github.com/spaghettifunk/meshlet/engine/renderer/metadata"

// Backend creates instances for one graphics API.
type Backend interface {
	Name() string
	Backends() metadata.Backends
	CreateInstance(desc *InstanceDescriptor) (Instance, error)
}

type Instance interface {
	CreateSurface(window metadata.Window) (Surface, error)
	EnumerateAdapters(backends metadata.Backends) ([]Adapter, error)
	// ValidationErrors counts error messages reported by the validation layers so far.
	ValidationErrors() uint64
	Destroy()
}

type Adapter interface {
	Info() metadata.AdapterInfo
	Features() metadata.Features
	Limits() metadata.Limits
	RequestDevice(desc *DeviceDescriptor) *DeviceRequest
}

type Surface interface {
	Capabilities(adapter Adapter) (metadata.SurfaceCapabilities, error)
	// DefaultConfig returns nil when the adapter cannot present to this surface.
	DefaultConfig(adapter Adapter, width, height uint32) *metadata.SurfaceConfiguration
	// Configure (re)builds the presentation chain. It waits for the device to be idle.
	Configure(device Device, config *metadata.SurfaceConfiguration) error
	CurrentTexture() (SurfaceTexture, error)
	Destroy()
}

type SurfaceTexture interface {
	Suboptimal() bool
	Format() metadata.TextureFormat
	CreateView() (TextureView, error)
	Present() error
	// Discard gives the texture back without presenting it.
	Discard()
}

type TextureView interface {
	Format() metadata.TextureFormat
	Size() (width, height uint32)
}

type Device interface {
	Features() metadata.Features
	Limits() metadata.Limits
	CreateShaderModule(desc *ShaderModuleDescriptor) (ShaderModule, error)
	CreatePipelineLayout(desc *PipelineLayoutDescriptor) (PipelineLayout, error)
	CreateMeshPipeline(desc *MeshPipelineDescriptor) (RenderPipeline, error)
	CreateCommandEncoder(desc *CommandEncoderDescriptor) (CommandEncoder, error)
	WaitIdle() error
	Destroy()
}

type Queue interface {
	Submit(commands ...CommandBuffer) error
}

type ShaderModule interface {
	Destroy()
}

type PipelineLayout interface {
	Destroy()
}

type RenderPipeline interface {
	Format() metadata.TextureFormat
	Destroy()
}

type CommandEncoder interface {
	BeginRenderPass(desc *RenderPassDescriptor) (RenderPassEncoder, error)
	Finish() (CommandBuffer, error)
}

type RenderPassEncoder interface {
	SetPipeline(pipeline RenderPipeline)
	DrawMeshTasks(x, y, z uint32)
	End() error
}

type CommandBuffer interface {
	Label() string
}
