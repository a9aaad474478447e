package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spaghettifunk/meshlet/engine/config"
	"github.com/spaghettifunk/meshlet/engine/core"
	"github.com/spaghettifunk/meshlet/engine/platform"
	"github.com/spaghettifunk/meshlet/engine/renderer"
	"github.com/spaghettifunk/meshlet/engine/renderer/metadata"
	"github.com/spaghettifunk/meshlet/engine/renderer/vulkan"
	"github.com/spaghettifunk/meshlet/shaders"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// The window exists and the renderer is being built
	EngineStageInitializing
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Renderer and window are gone
	EngineStageStopped
)

func (s Stage) String() string {
	switch s {
	case EngineStageUninitialized:
		return "Uninitialized"
	case EngineStageInitializing:
		return "Initializing"
	case EngineStageRunning:
		return "Running"
	case EngineStageShuttingDown:
		return "ShuttingDown"
	case EngineStageStopped:
		return "Stopped"
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

// Platform is the window system collaborator.
type Platform interface {
	metadata.Window
	Startup(title string, x, y int, width, height uint32) error
	// PumpMessages blocks until there is at least one event to handle.
	PumpMessages() []core.EventContext
	RequestRedraw()
	// Wake unblocks PumpMessages from another goroutine.
	Wake()
	Shutdown() error
}

// FrameRenderer is the part of *renderer.FrameRenderer the engine drives.
type FrameRenderer interface {
	Render() error
	Resize(width, height uint32) error
	Destroy() error
	Configuration() metadata.SurfaceConfiguration
	AdapterInfo() metadata.AdapterInfo
	ValidationErrors() uint64
}

// RendererFactory builds the renderer once the window exists.
type RendererFactory func(ctx context.Context, window metadata.Window, cfg *config.Config) (FrameRenderer, error)

// VulkanRendererFactory loads the embedded shaders and initializes a Vulkan frame renderer.
func VulkanRendererFactory(ctx context.Context, window metadata.Window, cfg *config.Config) (FrameRenderer, error) {
	src, err := shaders.Load()
	if err != nil {
		return nil, err
	}
	r, err := renderer.Initialize(ctx, vulkan.NewBackend(), window,
		renderer.WithApplicationName(cfg.Window.Title),
		renderer.WithValidation(cfg.Renderer.Validation),
		renderer.WithShaderSource(src),
		renderer.WithAcquireRetry(cfg.AcquireRetry()),
		renderer.WithBackends(cfg.Backends()),
		renderer.WithPresentMode(cfg.PresentMode()),
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

type Option func(*Engine)

func WithPlatform(p Platform) Option {
	return func(e *Engine) { e.platform = p }
}

func WithRendererFactory(f RendererFactory) Option {
	return func(e *Engine) { e.newRenderer = f }
}

type Engine struct {
	currentStage Stage
	config       *config.Config
	sessionID    string
	platform     Platform
	newRenderer  RendererFactory
	renderer     FrameRenderer
	width        uint32
	height       uint32
	clock        *core.Clock
	metrics      *core.Metrics
	lastTime     float64

	isRunning bool
	shutdown  atomic.Bool
	// set by a handler that returned ActionAbort
	err error
}

func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		currentStage: EngineStageUninitialized,
		config:       cfg,
		sessionID:    uuid.NewString(),
		newRenderer:  VulkanRendererFactory,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		width:        cfg.Window.Width,
		height:       cfg.Window.Height,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.platform == nil {
		e.platform = platform.New()
	}
	return e, nil
}

func (e *Engine) SessionID() string {
	return e.sessionID
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

// Run opens the window and handles events until the window is closed,
// Shutdown is called or a handler fails. It must run on the main goroutine.
func (e *Engine) Run() error {
	core.LogWith("session", e.sessionID)

	w := e.config.Window
	if err := e.platform.Startup(w.Title, w.PosX, w.PosY, w.Width, w.Height); err != nil {
		return err
	}

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()
	e.isRunning = true

	runErr := e.apply(e.OnEvent(core.EventContext{Type: core.EVENT_CODE_STARTUP}))
	for runErr == nil && e.isRunning {
		if e.shutdown.Load() {
			core.LogInfo("Shutdown requested, leaving the event loop.")
			break
		}
		for _, event := range e.platform.PumpMessages() {
			if runErr = e.apply(e.OnEvent(event)); runErr != nil || !e.isRunning {
				break
			}
		}
	}

	e.OnEvent(core.EventContext{Type: core.EVENT_CODE_EXITING})
	if err := e.platform.Shutdown(); err != nil {
		runErr = errors.Join(runErr, err)
	}
	e.currentStage = EngineStageStopped
	return runErr
}

// Shutdown asks a running loop to stop. Safe to call from any goroutine.
func (e *Engine) Shutdown() error {
	e.shutdown.Store(true)
	e.platform.Wake()
	return nil
}

func (e *Engine) apply(action core.Action) error {
	switch action {
	case core.ActionRequestRedraw:
		e.platform.RequestRedraw()
	case core.ActionExit:
		e.isRunning = false
	case core.ActionAbort:
		e.isRunning = false
		if e.err == nil {
			return errors.New("event handler aborted")
		}
		return e.err
	}
	return nil
}
