package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/meshlet/engine/core"
)

func TestTranslateKey(t *testing.T) {
	assert.Equal(t, core.KEY_ESCAPE, translateKey(glfw.KeyEscape))
	assert.Equal(t, core.KEY_A, translateKey(glfw.KeyA))
	assert.Equal(t, core.KEY_Z, translateKey(glfw.KeyZ))
	assert.Equal(t, core.KEY_9, translateKey(glfw.Key9))
	assert.Equal(t, core.KEY_F12, translateKey(glfw.KeyF12))
	assert.Equal(t, core.KEY_SHIFT, translateKey(glfw.KeyRightShift))
	assert.Equal(t, core.KEY_UNKNOWN, translateKey(glfw.KeyCapsLock))
}

func TestCallbacksQueueEvents(t *testing.T) {
	p := New()

	p.keyCallback(nil, glfw.KeyEscape, 0, glfw.Press, 0)
	p.keyCallback(nil, glfw.KeyEscape, 0, glfw.Repeat, 0)
	p.keyCallback(nil, glfw.KeyEscape, 0, glfw.Release, 0)
	p.framebufferSizeCallback(nil, 400, 300)

	events := p.events.Drain()
	require.Len(t, events, 4)
	assert.Equal(t, core.EventContext{Type: core.EVENT_CODE_KEY_PRESSED, Key: core.KEY_ESCAPE}, events[0])
	assert.Equal(t, core.EventContext{Type: core.EVENT_CODE_KEY_PRESSED, Key: core.KEY_ESCAPE, Repeat: true}, events[1])
	assert.Equal(t, core.EVENT_CODE_KEY_RELEASED, events[2].Type)
	assert.Equal(t, core.NewResizedEvent(400, 300), events[3])

	w, h := p.FramebufferSize()
	assert.Equal(t, uint32(400), w)
	assert.Equal(t, uint32(300), h)
}

func TestMinimizedWindowReportsZero(t *testing.T) {
	p := New()
	p.framebufferSizeCallback(nil, 0, 0)
	w, h := p.FramebufferSize()
	assert.Zero(t, w)
	assert.Zero(t, h)
	assert.Equal(t, core.NewResizedEvent(0, 0), p.events.Drain()[0])
}

func TestFullQueueDropsEvents(t *testing.T) {
	p := New()
	for i := 0; i < eventQueueSize+10; i++ {
		p.keyCallback(nil, glfw.KeySpace, 0, glfw.Press, 0)
	}
	assert.Len(t, p.events.Drain(), eventQueueSize)
	assert.True(t, p.events.IsEmpty())
}

func TestWakeWithoutWindow(t *testing.T) {
	p := New()
	assert.NotPanics(t, p.Wake, "before Startup")
	require.NoError(t, p.Shutdown())
	assert.NotPanics(t, p.Wake, "after Shutdown")
	assert.False(t, p.active.Load())
}
