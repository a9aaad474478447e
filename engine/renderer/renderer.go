package renderer

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/meshlet/engine/core"
	"github.com/spaghettifunk/meshlet/engine/renderer/metadata"
)

type State uint8

const (
	StateConfigured State = iota
	StateDestroyed
)

func (s State) String() string {
	if s == StateConfigured {
		return "Configured"
	}
	return "Destroyed"
}

// FrameStats counts what happened to every Render call.
type FrameStats struct {
	Presented        uint64
	Skipped          uint64
	Reconfigurations uint64
	Retries          uint64
}

// FrameRenderer owns the GPU state behind one window and draws one mesh-task
// dispatch per frame. It must be used from a single goroutine.
type FrameRenderer struct {
	instance Instance
	surface  Surface
	config   metadata.SurfaceConfiguration
	device   Device
	queue    Queue
	module   ShaderModule
	layout   PipelineLayout
	pipeline RenderPipeline

	window       metadata.Window
	adapterInfo  metadata.AdapterInfo
	acquireRetry AcquireRetryPolicy
	state        State
	stats        FrameStats
}

func (r *FrameRenderer) Configuration() metadata.SurfaceConfiguration {
	return r.config
}

// PipelineFormat is the color target format the pipeline was built for.
func (r *FrameRenderer) PipelineFormat() metadata.TextureFormat {
	return r.pipeline.Format()
}

func (r *FrameRenderer) State() State {
	return r.state
}

func (r *FrameRenderer) Stats() FrameStats {
	return r.stats
}

func (r *FrameRenderer) AdapterInfo() metadata.AdapterInfo {
	return r.adapterInfo
}

func (r *FrameRenderer) ValidationErrors() uint64 {
	if r.instance == nil {
		return 0
	}
	return r.instance.ValidationErrors()
}

// Resize reconfigures the surface to the new size. Zero in either dimension is ignored.
func (r *FrameRenderer) Resize(width, height uint32) error {
	if r.state == StateDestroyed {
		return core.ErrRendererDestroyed
	}
	if width == 0 || height == 0 {
		core.LogDebug("Ignoring resize to %dx%d.", width, height)
		return nil
	}
	return r.reconfigure(width, height)
}

// reconfigure only records the new size once the surface accepted it.
func (r *FrameRenderer) reconfigure(width, height uint32) error {
	next := r.config
	next.Width = width
	next.Height = height
	if err := r.surface.Configure(r.device, &next); err != nil {
		return fmt.Errorf("reconfigure surface to %dx%d: %w", width, height, err)
	}
	r.config = next
	r.stats.Reconfigurations++
	core.LogDebug("Surface configured: %s", r.config)
	return nil
}

// windowArea reports the current window size and whether it can be drawn to.
func (r *FrameRenderer) windowArea() (uint32, uint32, bool) {
	if r.window == nil {
		return r.config.Width, r.config.Height, true
	}
	w, h := r.window.FramebufferSize()
	return w, h, w != 0 && h != 0
}

// Render draws and presents one frame. A frame is skipped, not failed,
// while the window has no area.
func (r *FrameRenderer) Render() error {
	if r.state == StateDestroyed {
		return core.ErrRendererDestroyed
	}
	if _, _, ok := r.windowArea(); !ok {
		r.stats.Skipped++
		return nil
	}

	texture, err := r.acquire()
	if err != nil {
		return err
	}
	if texture == nil {
		r.stats.Skipped++
		return nil
	}

	if err := r.draw(texture); err != nil {
		texture.Discard()
		return err
	}
	if err := texture.Present(); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	r.stats.Presented++
	return nil
}

func (r *FrameRenderer) acquire() (SurfaceTexture, error) {
	texture, err := r.surface.CurrentTexture()
	if err == nil {
		if texture.Suboptimal() {
			core.LogDebug("Surface texture is suboptimal.")
		}
		return texture, nil
	}

	retryable := errors.Is(err, core.ErrSurfaceOutdated) || errors.Is(err, core.ErrSurfaceTimeout)
	if r.acquireRetry != AcquireRetryReconfigureOnce || !retryable {
		return nil, fmt.Errorf("%w: %w", core.ErrSurfaceAcquire, err)
	}

	core.LogDebug("Acquire failed (%s), reconfiguring once.", err)
	width, height, ok := r.windowArea()
	if !ok {
		return nil, nil
	}
	if err := r.reconfigure(width, height); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSurfaceAcquire, err)
	}
	r.stats.Retries++

	texture, err = r.surface.CurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSurfaceAcquire, err)
	}
	return texture, nil
}

func (r *FrameRenderer) draw(texture SurfaceTexture) error {
	view, err := texture.CreateView()
	if err != nil {
		return fmt.Errorf("create view: %w", err)
	}

	encoder, err := r.device.CreateCommandEncoder(&CommandEncoderDescriptor{Label: "frame"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}

	pass, err := encoder.BeginRenderPass(&RenderPassDescriptor{
		Label: "mesh",
		ColorAttachments: []RenderPassColorAttachment{{
			View:       view,
			Load:       metadata.LoadOpClear,
			Store:      metadata.StoreOpStore,
			ClearValue: ClearColor,
		}},
	})
	if err != nil {
		return fmt.Errorf("begin render pass: %w", err)
	}
	pass.SetPipeline(r.pipeline)
	pass.DrawMeshTasks(1, 1, 1)
	if err := pass.End(); err != nil {
		return fmt.Errorf("end render pass: %w", err)
	}

	commands, err := encoder.Finish()
	if err != nil {
		return fmt.Errorf("finish commands: %w", err)
	}
	if err := r.queue.Submit(commands); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}

// Destroy releases every GPU object. The window must outlive this call.
func (r *FrameRenderer) Destroy() error {
	if r.state == StateDestroyed {
		return nil
	}
	r.state = StateDestroyed

	var err error
	if r.device != nil {
		err = r.device.WaitIdle()
	}
	if r.surface != nil {
		r.surface.Destroy()
	}
	if r.pipeline != nil {
		r.pipeline.Destroy()
	}
	if r.layout != nil {
		r.layout.Destroy()
	}
	if r.module != nil {
		r.module.Destroy()
	}
	if r.device != nil {
		r.device.Destroy()
	}
	if r.instance != nil {
		r.instance.Destroy()
	}
	core.LogDebug("Renderer destroyed after %d frame(s).", r.stats.Presented)
	return err
}
