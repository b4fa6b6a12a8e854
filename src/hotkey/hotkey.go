package hotkey

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

// Binding ties a key combination such as "F8" or "Ctrl+Alt+T" to a callback.
// OnPress runs on the hook goroutine and must not block.
type Binding struct {
	Combo   string
	OnPress func()
}

var (
	listenMu  sync.Mutex
	listening bool
)

// Listen installs one global keyboard hook serving all bindings. The
// returned stop function removes the hook.
func Listen(bindings ...Binding) (stop func(), err error) {
	matchers := make([]*matcher, 0, len(bindings))
	for _, b := range bindings {
		m, err := newMatcher(b.Combo)
		if err != nil {
			return nil, err
		}
		m.onPress = b.OnPress
		matchers = append(matchers, m)
		log.Printf("Hotkey listener configured for: %s", b.Combo)
	}
	if len(matchers) == 0 {
		return nil, fmt.Errorf("no hotkeys to listen for")
	}

	listenMu.Lock()
	defer listenMu.Unlock()
	if listening {
		return nil, fmt.Errorf("hotkey listener already running")
	}

	evChan := gohook.Start()
	if evChan == nil {
		return nil, fmt.Errorf("gohook.Start() returned nil channel")
	}
	listening = true

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()
		for ev := range evChan {
			if ev.Kind != gohook.KeyDown && ev.Kind != gohook.KeyUp {
				continue
			}
			down := ev.Kind == gohook.KeyDown
			for _, m := range matchers {
				if m.feed(ev.Rawcode, down) && m.onPress != nil {
					log.Printf("Hotkey activated: %s", m.combo)
					m.onPress()
				}
			}
		}
		log.Printf("Hotkey event channel closed")
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			gohook.End()
			listenMu.Lock()
			listening = false
			listenMu.Unlock()
		})
	}, nil
}

// matcher tracks which keys of one combination are held down.
type matcher struct {
	mu      sync.Mutex
	combo   string
	keys    [][]uint16
	pressed []bool
	onPress func()
}

func newMatcher(combo string) (*matcher, error) {
	names := parseHotkey(combo)
	m := &matcher{combo: combo}
	for _, name := range names {
		codes := keyNameToRawcodes(name)
		if len(codes) == 0 {
			return nil, fmt.Errorf("invalid hotkey %q: unknown key %q", combo, name)
		}
		m.keys = append(m.keys, codes)
	}
	if len(m.keys) == 0 {
		return nil, fmt.Errorf("invalid hotkey %q", combo)
	}
	m.pressed = make([]bool, len(m.keys))
	return m, nil
}

// feed records one key event and reports whether the whole combination
// just became pressed. Firing resets the state, so holding the keys
// triggers once.
func (m *matcher) feed(rawcode uint16, down bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, codes := range m.keys {
		for _, c := range codes {
			if c == rawcode {
				m.pressed[i] = down
			}
		}
	}
	if !down {
		return false
	}
	for _, p := range m.pressed {
		if !p {
			return false
		}
	}
	for i := range m.pressed {
		m.pressed[i] = false
	}
	return true
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names.
func parseHotkey(hotkeyConfig string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(hotkeyConfig), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			part = "ctrl"
		case "win", "super":
			part = "cmd"
		}
		keys = append(keys, part)
	}
	return keys
}

var specialKeys = map[string][]uint16{
	// Modifiers map to both left and right variants.
	"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":   {164, 165}, // VK_LMENU, VK_RMENU
	"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":   {91, 92},   // VK_LWIN, VK_RWIN

	"space":       {32},
	"enter":       {13},
	"return":      {13},
	"esc":         {27},
	"escape":      {27},
	"tab":         {9},
	"backspace":   {8},
	"delete":      {46},
	"del":         {46},
	"insert":      {45},
	"ins":         {45},
	"home":        {36},
	"end":         {35},
	"pageup":      {33},
	"pgup":        {33},
	"pagedown":    {34},
	"pgdn":        {34},
	"left":        {37},
	"up":          {38},
	"right":       {39},
	"down":        {40},
	"printscreen": {44},
	"prtsc":       {44},
}

// keyNameToRawcodes maps a key name to its Windows virtual key codes.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))
	switch keyName {
	case "win", "super":
		keyName = "cmd"
	}
	if codes, ok := specialKeys[keyName]; ok {
		return codes
	}

	if len(keyName) == 1 {
		c := keyName[0]
		switch {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c-'a') + 65} // VK 0x41-0x5A
		case c >= '0' && c <= '9':
			return []uint16{uint16(c-'0') + 48} // VK 0x30-0x39
		}
	}

	// F1-F24 are VK_F1 (112) onward.
	if len(keyName) > 1 && keyName[0] == 'f' && keyName[1] >= '1' && keyName[1] <= '9' {
		if n, err := strconv.Atoi(keyName[1:]); err == nil && n <= 24 {
			return []uint16{uint16(111 + n)}
		}
	}

	log.Printf("WARNING: Unknown key name '%s', cannot map to rawcode", keyName)
	return nil
}
