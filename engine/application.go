package engine

import (
	"context"
	"fmt"

	"github.com/spaghettifunk/meshlet/engine/core"
)

// OnEvent is the single entry point for window-system events. The returned
// action tells the loop what to do next.
func (e *Engine) OnEvent(event core.EventContext) core.Action {
	switch event.Type {
	case core.EVENT_CODE_STARTUP:
		return e.onStartup()
	case core.EVENT_CODE_RESIZED:
		return e.onResized(event)
	case core.EVENT_CODE_REDRAW_REQUESTED:
		return e.onRedraw()
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT recieved, shutting down.")
		return core.ActionExit
	case core.EVENT_CODE_KEY_PRESSED, core.EVENT_CODE_KEY_RELEASED:
		return e.onKey(event)
	case core.EVENT_CODE_EXITING:
		return e.onExiting()
	}
	core.LogWarn("Unhandled event %s.", event.Type)
	return core.ActionNone
}

func (e *Engine) abort(err error) core.Action {
	e.err = err
	core.LogError("%s", err)
	return core.ActionAbort
}

func (e *Engine) onStartup() core.Action {
	if e.renderer != nil {
		return core.ActionNone
	}
	e.currentStage = EngineStageInitializing

	ctx, cancel := context.WithTimeout(context.Background(), e.config.Renderer.InitTimeout.Duration)
	defer cancel()

	r, err := e.newRenderer(ctx, e.platform, e.config)
	if err != nil {
		return e.abort(fmt.Errorf("failed to initialize the renderer: %w", err))
	}
	e.renderer = r
	e.width, e.height = e.platform.FramebufferSize()
	e.currentStage = EngineStageRunning

	info := r.AdapterInfo()
	core.LogInfo("Rendering with '%s' (%s, %s).", info.Name, info.DeviceType, info.Backend)
	core.LogInfo("Surface configured: %s", r.Configuration())
	return core.ActionRequestRedraw
}

func (e *Engine) onResized(event core.EventContext) core.Action {
	e.width, e.height = event.Width, event.Height
	if e.renderer == nil {
		return core.ActionNone
	}
	if event.Width == 0 || event.Height == 0 {
		core.LogInfo("Window minimized, pausing frames.")
	} else {
		core.LogDebug("Window resize: %d, %d", event.Width, event.Height)
	}
	if err := e.renderer.Resize(event.Width, event.Height); err != nil {
		return e.abort(fmt.Errorf("failed to resize to %dx%d: %w", event.Width, event.Height, err))
	}
	return core.ActionRequestRedraw
}

func (e *Engine) onRedraw() core.Action {
	if e.renderer == nil {
		return core.ActionNone
	}
	if err := e.renderer.Render(); err != nil {
		return e.abort(fmt.Errorf("failed to render a frame: %w", err))
	}

	e.clock.Update()
	currentTime := e.clock.Elapsed()
	if e.metrics.Update(currentTime - e.lastTime) {
		fps, ms := e.metrics.Frame()
		core.LogDebug("%.0f FPS, %.2f ms/frame", fps, ms)
	}
	e.lastTime = currentTime

	// A minimized window stops the loop; the next resize restarts it.
	if e.width == 0 || e.height == 0 {
		return core.ActionNone
	}
	return core.ActionRequestRedraw
}

func (e *Engine) onKey(event core.EventContext) core.Action {
	if event.Type == core.EVENT_CODE_KEY_PRESSED {
		if event.Key == core.KEY_ESCAPE && !event.Repeat {
			core.LogInfo("Escape pressed, shutting down.")
			return core.ActionExit
		}
		core.LogDebug("'%s' key pressed in window.", event.Key)
	} else {
		core.LogDebug("'%s' key released in window.", event.Key)
	}
	return core.ActionNone
}

func (e *Engine) onExiting() core.Action {
	e.currentStage = EngineStageShuttingDown
	if e.renderer == nil {
		return core.ActionNone
	}
	if n := e.renderer.ValidationErrors(); n > 0 {
		core.LogWarn("%d validation errors were reported.", n)
	}
	if err := e.renderer.Destroy(); err != nil {
		core.LogError("Renderer teardown: %s", err)
	}
	e.renderer = nil
	return core.ActionNone
}
