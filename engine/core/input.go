package core

import "fmt"

// Key code definitions. Letters and digits share their ASCII values.
type KeyCode uint16

const (
	KEY_UNKNOWN   KeyCode = 0x00
	KEY_BACKSPACE KeyCode = 0x08
	KEY_TAB       KeyCode = 0x09
	KEY_ENTER     KeyCode = 0x0D
	KEY_SHIFT     KeyCode = 0x10
	KEY_PAUSE     KeyCode = 0x13
	KEY_ESCAPE    KeyCode = 0x1B
	KEY_SPACE     KeyCode = 0x20
	KEY_END       KeyCode = 0x23
	KEY_HOME      KeyCode = 0x24
	KEY_LEFT      KeyCode = 0x25
	KEY_UP        KeyCode = 0x26
	KEY_RIGHT     KeyCode = 0x27
	KEY_DOWN      KeyCode = 0x28
	KEY_INSERT    KeyCode = 0x2D
	KEY_DELETE    KeyCode = 0x2E
	KEY_0         KeyCode = 0x30
	KEY_9         KeyCode = 0x39
	KEY_A         KeyCode = 0x41
	KEY_Z         KeyCode = 0x5A
	KEY_F1        KeyCode = 0x70
	KEY_F12       KeyCode = 0x7B
	KEYS_MAX_KEYS KeyCode = 0xFF
)

var keyNames = map[KeyCode]string{
	KEY_UNKNOWN:   "Unknown",
	KEY_BACKSPACE: "Backspace",
	KEY_TAB:       "Tab",
	KEY_ENTER:     "Enter",
	KEY_SHIFT:     "Shift",
	KEY_PAUSE:     "Pause",
	KEY_ESCAPE:    "Escape",
	KEY_SPACE:     "Space",
	KEY_END:       "End",
	KEY_HOME:      "Home",
	KEY_LEFT:      "Left",
	KEY_UP:        "Up",
	KEY_RIGHT:     "Right",
	KEY_DOWN:      "Down",
	KEY_INSERT:    "Insert",
	KEY_DELETE:    "Delete",
}

func (k KeyCode) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	switch {
	case k >= KEY_A && k <= KEY_Z, k >= KEY_0 && k <= KEY_9:
		return string(rune(k))
	case k >= KEY_F1 && k <= KEY_F12:
		return fmt.Sprintf("F%d", k-KEY_F1+1)
	}
	return fmt.Sprintf("Key(0x%02X)", uint16(k))
}
