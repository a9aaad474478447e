package renderer

import (
	"context"
	"sync"

	"github.com/spaghettifunk/meshlet/engine/renderer/metadata"
)

type InstanceDescriptor struct {
	ApplicationName string
	Backends        metadata.Backends
	// Enables the API validation layers when they are installed.
	Validation bool
	// Window the instance must be able to present to. Used to pick platform extensions.
	Window metadata.Window
}

type DeviceDescriptor struct {
	Label                string
	RequiredFeatures     metadata.Features
	RequiredLimits       metadata.Limits
	ExperimentalFeatures metadata.ExperimentalFeatures
}

type ShaderModuleDescriptor struct {
	Label  string
	Source metadata.ShaderSource
}

type PipelineLayoutDescriptor struct {
	Label string
}

// ProgrammableStage binds a shader module entry point. An empty EntryPoint selects "main".
type ProgrammableStage struct {
	Module     ShaderModule
	EntryPoint string
}

type FragmentState struct {
	ProgrammableStage
	Targets []metadata.ColorTargetState
}

type MeshPipelineDescriptor struct {
	Label        string
	Layout       PipelineLayout
	Task         *ProgrammableStage
	Mesh         ProgrammableStage
	Fragment     *FragmentState
	Primitive    metadata.PrimitiveState
	DepthStencil *metadata.DepthStencilState
	Multisample  metadata.MultisampleState
}

type CommandEncoderDescriptor struct {
	Label string
}

type RenderPassColorAttachment struct {
	View       TextureView
	Load       metadata.LoadOp
	Store      metadata.StoreOp
	ClearValue metadata.Color
}

type RenderPassDescriptor struct {
	Label            string
	ColorAttachments []RenderPassColorAttachment
}

// DeviceRequest is the pending result of Adapter.RequestDevice.
type DeviceRequest struct {
	mu       sync.Mutex
	resolved bool
	release  func(Device)
	done     chan struct{}
	device   Device
	queue    Queue
	err      error
}

func NewDeviceRequest() *DeviceRequest {
	return &DeviceRequest{done: make(chan struct{})}
}

// Resolve completes the request. Only the first call has an effect.
// A device nobody waits for anymore is handed to the Abandon callback.
func (r *DeviceRequest) Resolve(device Device, queue Queue, err error) {
	r.mu.Lock()
	if r.resolved {
		r.mu.Unlock()
		return
	}
	r.resolved = true
	r.device, r.queue, r.err = device, queue, err
	release := r.release
	close(r.done)
	r.mu.Unlock()

	if release != nil {
		release(r.owned())
	}
}

func (r *DeviceRequest) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the request resolves or ctx is done. A resolved request
// wins over a cancelled context.
func (r *DeviceRequest) Wait(ctx context.Context) (Device, Queue, error) {
	select {
	case <-r.done:
		return r.device, r.queue, r.err
	default:
	}
	select {
	case <-r.done:
		return r.device, r.queue, r.err
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// Abandon gives up on the request. release runs exactly once with the
// device, or nil when the request failed: right away if the request already
// resolved, otherwise from Resolve. Only the first call has an effect.
func (r *DeviceRequest) Abandon(release func(Device)) {
	r.mu.Lock()
	if r.release != nil {
		r.mu.Unlock()
		return
	}
	r.release = release
	resolved := r.resolved
	r.mu.Unlock()

	if resolved {
		release(r.owned())
	}
}

func (r *DeviceRequest) owned() Device {
	if r.err != nil {
		return nil
	}
	return r.device
}
