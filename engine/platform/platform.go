package platform

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/meshlet/engine/containers"
	"github.com/spaghettifunk/meshlet/engine/core"
)

// Events buffered between two pumps.
const eventQueueSize = 256

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type Platform struct {
	window        *glfw.Window
	events        *containers.RingQueue[core.EventContext]
	redrawPending bool
	width         uint32
	height        uint32
	// true between a successful Startup and Shutdown
	active atomic.Bool
}

func New() *Platform {
	return &Platform{
		events: containers.NewRingQueue[core.EventContext](eventQueueSize),
	}
}

func (p *Platform) Startup(applicationName string, x, y int, width, height uint32) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize glfw: %w", err)
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return fmt.Errorf("%w: glfw found no Vulkan loader", core.ErrUnsupportedBackend)
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create window: %w", err)
	}
	p.window = window

	p.window.SetKeyCallback(p.keyCallback)
	p.window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.window.SetCloseCallback(p.closeCallback)
	p.window.SetPos(x, y)
	p.window.Show()

	fw, fh := p.window.GetFramebufferSize()
	p.width, p.height = clampSize(fw), clampSize(fh)
	p.active.Store(true)

	core.LogDebug("Window '%s' created, framebuffer %dx%d.", applicationName, p.width, p.height)
	return nil
}

func (p *Platform) Shutdown() error {
	if !p.active.Swap(false) {
		return nil
	}
	if p.window != nil {
		p.window.Destroy()
		p.window = nil
	}
	glfw.Terminate()
	return nil
}

// FramebufferSize is the drawable size in pixels. A minimized window reports zero.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	return p.width, p.height
}

// RequestRedraw schedules a RedrawRequested event for the next pump.
func (p *Platform) RequestRedraw() {
	p.redrawPending = true
}

// Wake unblocks a pump waiting for events. Safe to call from any goroutine,
// and a no-op while no window is up.
func (p *Platform) Wake() {
	if !p.active.Load() {
		return
	}
	glfw.PostEmptyEvent()
}

// PumpMessages processes window-system events and returns them in order,
// followed by a RedrawRequested event if one was pending. With nothing
// pending it blocks until the window system has something to report.
func (p *Platform) PumpMessages() []core.EventContext {
	if p.redrawPending {
		glfw.PollEvents()
	} else {
		glfw.WaitEvents()
	}

	out := p.events.Drain()
	if p.redrawPending {
		p.redrawPending = false
		out = append(out, core.EventContext{Type: core.EVENT_CODE_REDRAW_REQUESTED})
	}
	return out
}

// RequiredInstanceExtensions lists the instance extensions a surface for this window needs.
func (p *Platform) RequiredInstanceExtensions() []string {
	return p.window.GetRequiredInstanceExtensions()
}

// CreateWindowSurface creates a VkSurfaceKHR for the window.
func (p *Platform) CreateWindowSurface(instance interface{}) (uintptr, error) {
	return p.window.CreateWindowSurface(instance, nil)
}

func (p *Platform) push(e core.EventContext) {
	if err := p.events.Enqueue(e); err != nil {
		core.LogWarn("Dropping %s event: %s", e.Type, err)
	}
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	code := translateKey(key)
	switch action {
	case glfw.Press:
		p.push(core.NewKeyEvent(code, true, false))
	case glfw.Repeat:
		p.push(core.NewKeyEvent(code, true, true))
	case glfw.Release:
		p.push(core.NewKeyEvent(code, false, false))
	}
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.width, p.height = clampSize(width), clampSize(height)
	p.push(core.NewResizedEvent(p.width, p.height))
}

// The application decides whether a close request ends the loop.
func (p *Platform) closeCallback(w *glfw.Window) {
	w.SetShouldClose(false)
	p.push(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
}

func clampSize(v int) uint32 {
	if v < 0 {
		return 0
	}
	return uint32(v)
}
