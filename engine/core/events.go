package core

import "fmt"

// System internal event codes.
type SystemEventCode uint8

const (
	// The window exists and the application may build its GPU state.
	EVENT_CODE_STARTUP SystemEventCode = 0x01

	// The window asks to be closed by the user.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x02

	// Keyboard key pressed. Key and Repeat are set.
	EVENT_CODE_KEY_PRESSED SystemEventCode = 0x03

	// Keyboard key released. Key is set.
	EVENT_CODE_KEY_RELEASED SystemEventCode = 0x04

	// Resized/resolution changed from the OS. Width and Height are set, in pixels.
	EVENT_CODE_RESIZED SystemEventCode = 0x08

	// A new frame should be produced.
	EVENT_CODE_REDRAW_REQUESTED SystemEventCode = 0x09

	// The event loop is about to stop; release everything tied to the window.
	EVENT_CODE_EXITING SystemEventCode = 0x0A
)

var eventNames = map[SystemEventCode]string{
	EVENT_CODE_STARTUP:          "Startup",
	EVENT_CODE_APPLICATION_QUIT: "CloseRequested",
	EVENT_CODE_KEY_PRESSED:      "KeyPressed",
	EVENT_CODE_KEY_RELEASED:     "KeyReleased",
	EVENT_CODE_RESIZED:          "Resized",
	EVENT_CODE_REDRAW_REQUESTED: "RedrawRequested",
	EVENT_CODE_EXITING:          "Exiting",
}

func (c SystemEventCode) String() string {
	if name, ok := eventNames[c]; ok {
		return name
	}
	return fmt.Sprintf("SystemEventCode(%d)", uint8(c))
}

// EventContext is a single window-system event.
type EventContext struct {
	Type   SystemEventCode
	Width  uint32
	Height uint32
	Key    KeyCode
	Repeat bool
}

// Action is what the event loop must do after an event was handled.
type Action uint8

const (
	ActionNone Action = iota
	ActionRequestRedraw
	ActionExit
	// The handler hit an unrecoverable error; the loop exits with that error.
	ActionAbort
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "None"
	case ActionRequestRedraw:
		return "RequestRedraw"
	case ActionExit:
		return "Exit"
	case ActionAbort:
		return "Abort"
	}
	return fmt.Sprintf("Action(%d)", uint8(a))
}

func NewResizedEvent(width, height uint32) EventContext {
	return EventContext{Type: EVENT_CODE_RESIZED, Width: width, Height: height}
}

func NewKeyEvent(key KeyCode, pressed, repeat bool) EventContext {
	code := EVENT_CODE_KEY_RELEASED
	if pressed {
		code = EVENT_CODE_KEY_PRESSED
	}
	return EventContext{Type: code, Key: key, Repeat: repeat}
}
