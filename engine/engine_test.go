package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/meshlet/engine/config"
	"github.com/spaghettifunk/meshlet/engine/core"
	"github.com/spaghettifunk/meshlet/engine/renderer/metadata"
)

type fakePlatform struct {
	width, height uint32
	batches       [][]core.EventContext
	redraw        bool
	started       bool
	shutdown      bool
	pumps         int
	wakes         int
	onPump        func(p *fakePlatform)
}

func (p *fakePlatform) FramebufferSize() (uint32, uint32) { return p.width, p.height }

func (p *fakePlatform) Startup(title string, x, y int, width, height uint32) error {
	p.started = true
	p.width, p.height = width, height
	return nil
}

// PumpMessages hands out one scripted batch per call and closes the window once
// the script is exhausted.
func (p *fakePlatform) PumpMessages() []core.EventContext {
	p.pumps++
	if p.onPump != nil {
		p.onPump(p)
	}
	var out []core.EventContext
	if len(p.batches) > 0 {
		out = p.batches[0]
		p.batches = p.batches[1:]
	} else {
		out = []core.EventContext{{Type: core.EVENT_CODE_APPLICATION_QUIT}}
	}
	for _, e := range out {
		if e.Type == core.EVENT_CODE_RESIZED {
			p.width, p.height = e.Width, e.Height
		}
	}
	if p.redraw {
		p.redraw = false
		out = append(out, core.EventContext{Type: core.EVENT_CODE_REDRAW_REQUESTED})
	}
	return out
}

func (p *fakePlatform) RequestRedraw() { p.redraw = true }
func (p *fakePlatform) Wake()          { p.wakes++ }
func (p *fakePlatform) Shutdown() error {
	p.shutdown = true
	return nil
}

type fakeRenderer struct {
	renders   int
	resizes   [][2]uint32
	destroyed int
	renderErr error
}

func (r *fakeRenderer) Render() error {
	r.renders++
	return r.renderErr
}

func (r *fakeRenderer) Resize(w, h uint32) error {
	r.resizes = append(r.resizes, [2]uint32{w, h})
	return nil
}

func (r *fakeRenderer) Destroy() error {
	r.destroyed++
	return nil
}

func (r *fakeRenderer) Configuration() metadata.SurfaceConfiguration {
	return metadata.SurfaceConfiguration{Width: 800, Height: 600}
}

func (r *fakeRenderer) AdapterInfo() metadata.AdapterInfo {
	return metadata.AdapterInfo{Name: "fake", Backend: metadata.BackendVulkan}
}

func (r *fakeRenderer) ValidationErrors() uint64 { return 0 }

func newTestEngine(t *testing.T, p *fakePlatform, r *fakeRenderer, factoryErr error) *Engine {
	t.Helper()
	e, err := New(config.Default(),
		WithPlatform(p),
		WithRendererFactory(func(ctx context.Context, w metadata.Window, cfg *config.Config) (FrameRenderer, error) {
			if factoryErr != nil {
				return nil, factoryErr
			}
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline, "initialization is bounded by the configured timeout")
			return r, nil
		}),
	)
	require.NoError(t, err)
	return e
}

func TestOnEventMapping(t *testing.T) {
	p := &fakePlatform{width: 800, height: 600}
	r := &fakeRenderer{}
	e := newTestEngine(t, p, r, nil)

	assert.Equal(t, core.ActionNone, e.OnEvent(core.EventContext{Type: core.EVENT_CODE_REDRAW_REQUESTED}), "no renderer yet")

	assert.Equal(t, core.ActionRequestRedraw, e.OnEvent(core.EventContext{Type: core.EVENT_CODE_STARTUP}))
	assert.Equal(t, EngineStageRunning, e.Stage())
	assert.Equal(t, core.ActionNone, e.OnEvent(core.EventContext{Type: core.EVENT_CODE_STARTUP}), "startup runs once")

	assert.Equal(t, core.ActionRequestRedraw, e.OnEvent(core.NewResizedEvent(400, 300)))
	assert.Equal(t, [][2]uint32{{400, 300}}, r.resizes)

	assert.Equal(t, core.ActionRequestRedraw, e.OnEvent(core.EventContext{Type: core.EVENT_CODE_REDRAW_REQUESTED}))
	assert.Equal(t, 1, r.renders)

	assert.Equal(t, core.ActionExit, e.OnEvent(core.NewKeyEvent(core.KEY_ESCAPE, true, false)))
	assert.Equal(t, core.ActionNone, e.OnEvent(core.NewKeyEvent(core.KEY_ESCAPE, true, true)), "repeats are ignored")
	assert.Equal(t, core.ActionNone, e.OnEvent(core.NewKeyEvent(core.KEY_ESCAPE, false, false)))
	assert.Equal(t, core.ActionNone, e.OnEvent(core.NewKeyEvent(core.KEY_A, true, false)))
	assert.Equal(t, core.ActionExit, e.OnEvent(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT}))

	assert.Equal(t, core.ActionNone, e.OnEvent(core.EventContext{Type: core.EVENT_CODE_EXITING}))
	assert.Equal(t, 1, r.destroyed)
	assert.Equal(t, core.ActionNone, e.OnEvent(core.EventContext{Type: core.EVENT_CODE_EXITING}))
	assert.Equal(t, 1, r.destroyed, "teardown happens once")
}

func TestMinimizedWindowStopsRedraws(t *testing.T) {
	p := &fakePlatform{width: 800, height: 600}
	r := &fakeRenderer{}
	e := newTestEngine(t, p, r, nil)
	require.Equal(t, core.ActionRequestRedraw, e.OnEvent(core.EventContext{Type: core.EVENT_CODE_STARTUP}))

	e.OnEvent(core.NewResizedEvent(0, 0))
	assert.Equal(t, core.ActionNone, e.OnEvent(core.EventContext{Type: core.EVENT_CODE_REDRAW_REQUESTED}))

	assert.Equal(t, core.ActionRequestRedraw, e.OnEvent(core.NewResizedEvent(400, 300)))
	assert.Equal(t, core.ActionRequestRedraw, e.OnEvent(core.EventContext{Type: core.EVENT_CODE_REDRAW_REQUESTED}))
	assert.Equal(t, [][2]uint32{{0, 0}, {400, 300}}, r.resizes)
	assert.Equal(t, 2, r.renders)
}

func TestStartupFailureAborts(t *testing.T) {
	p := &fakePlatform{}
	e := newTestEngine(t, p, nil, core.ErrNoMeshShaderAdapter)

	err := e.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoMeshShaderAdapter)
	assert.Contains(t, err.Error(), "mesh shader support")
	assert.True(t, p.shutdown, "the window is destroyed on failure")
	assert.Zero(t, p.pumps)
}

func TestRenderFailureAborts(t *testing.T) {
	p := &fakePlatform{batches: [][]core.EventContext{{}}}
	r := &fakeRenderer{renderErr: core.ErrSurfaceAcquire}
	e := newTestEngine(t, p, r, nil)

	err := e.Run()
	assert.ErrorIs(t, err, core.ErrSurfaceAcquire)
	assert.Equal(t, 1, r.renders)
	assert.Equal(t, 1, r.destroyed)
}

func TestRunUntilClose(t *testing.T) {
	p := &fakePlatform{
		batches: [][]core.EventContext{
			{},
			{core.NewResizedEvent(0, 0)},
			{},
			{core.NewResizedEvent(1024, 768)},
			{core.NewKeyEvent(core.KEY_SPACE, true, false)},
		},
	}
	r := &fakeRenderer{}
	e := newTestEngine(t, p, r, nil)

	require.NoError(t, e.Run())
	assert.True(t, p.started)
	assert.True(t, p.shutdown)
	assert.Equal(t, [][2]uint32{{0, 0}, {1024, 768}}, r.resizes)
	assert.Equal(t, 1, r.destroyed)
	assert.Equal(t, EngineStageStopped, e.Stage())
	// the pump after the minimize still renders, then frames stop until the next resize
	assert.Equal(t, 4, r.renders)
}

func TestShutdownStopsLoop(t *testing.T) {
	p := &fakePlatform{}
	r := &fakeRenderer{}
	e := newTestEngine(t, p, r, nil)
	p.onPump = func(p *fakePlatform) {
		if p.pumps == 3 {
			_ = e.Shutdown()
		}
		// keep the window open
		p.batches = append(p.batches, []core.EventContext{})
	}

	require.NoError(t, e.Run())
	assert.Equal(t, 3, p.pumps)
	assert.Equal(t, 1, p.wakes)
	assert.Equal(t, 1, r.destroyed)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Window.Width = 0
	_, err := New(cfg, WithPlatform(&fakePlatform{}))
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))
}

func TestSessionIDs(t *testing.T) {
	a, err := New(nil, WithPlatform(&fakePlatform{}))
	require.NoError(t, err)
	b, err := New(nil, WithPlatform(&fakePlatform{}))
	require.NoError(t, err)
	assert.Len(t, a.SessionID(), 36)
	assert.NotEqual(t, a.SessionID(), b.SessionID())
	assert.Equal(t, EngineStageUninitialized, a.Stage())
}
