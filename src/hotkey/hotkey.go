package hotkey

import (
	"fmt"
	"log"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

// Action runs when its combination is pressed. Actions are invoked from the
// hook goroutine and must be quick; anything slow belongs behind a channel or
// its own goroutine.
type Action func()

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

type binding struct {
	combo  string
	keys   []keyState
	action Action
}

// Dispatcher binds a fixed table of global key combinations to actions over
// one shared gohook event stream. All bindings are released by Close.
type Dispatcher struct {
	mu       sync.Mutex
	bindings []*binding
	started  bool
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Register adds one combination. It fails if any key in the combination
// cannot be mapped to a rawcode, or if registration happens after Start.
func (d *Dispatcher) Register(combo string, action Action) error {
	if combo == "" {
		return fmt.Errorf("empty hotkey combination")
	}
	var keys []keyState
	for _, name := range parseCombo(combo) {
		rawcodes := keyRawcodes(name)
		if len(rawcodes) == 0 {
			return fmt.Errorf("unknown key %q in combination %q", name, combo)
		}
		keys = append(keys, keyState{name: name, rawcodes: rawcodes})
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return fmt.Errorf("cannot register %q after dispatcher start", combo)
	}
	d.bindings = append(d.bindings, &binding{combo: combo, keys: keys, action: action})
	return nil
}

// Start begins listening for the registered combinations.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("hotkey: panic in hook goroutine: %v", r)
			}
		}()

		evChan := gohook.Start()
		if evChan == nil {
			log.Printf("hotkey: gohook.Start() returned nil channel")
			return
		}
		log.Printf("hotkey: listening for %d combinations", len(d.bindings))

		for ev := range evChan {
			switch ev.Kind {
			case gohook.KeyDown:
				d.handleKeyDown(ev.Rawcode)
			case gohook.KeyUp:
				d.handleKeyUp(ev.Rawcode)
			}
		}
		log.Printf("hotkey: event channel closed")
	}()
}

// Close releases all bindings and stops the hook stream.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	started := d.started
	d.started = false
	d.bindings = nil
	d.mu.Unlock()
	if started {
		gohook.End()
	}
}

func (d *Dispatcher) handleKeyDown(rawcode uint16) {
	var fired []Action
	d.mu.Lock()
	for _, b := range d.bindings {
		matched := false
		for i := range b.keys {
			if containsRawcode(b.keys[i].rawcodes, rawcode) {
				b.keys[i].pressed = true
				matched = true
			}
		}
		if !matched {
			continue
		}
		if allPressed(b.keys) {
			log.Printf("hotkey: %s triggered", b.combo)
			for i := range b.keys {
				b.keys[i].pressed = false
			}
			fired = append(fired, b.action)
		}
	}
	d.mu.Unlock()

	for _, action := range fired {
		if action != nil {
			action()
		}
	}
}

func (d *Dispatcher) handleKeyUp(rawcode uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range d.bindings {
		for i := range b.keys {
			if containsRawcode(b.keys[i].rawcodes, rawcode) {
				b.keys[i].pressed = false
			}
		}
	}
}

func containsRawcode(rawcodes []uint16, rc uint16) bool {
	for _, c := range rawcodes {
		if c == rc {
			return true
		}
	}
	return false
}

func allPressed(keys []keyState) bool {
	for i := range keys {
		if !keys[i].pressed {
			return false
		}
	}
	return true
}

// parseCombo normalizes a combination like "Ctrl+Alt+Q" to key names.
func parseCombo(combo string) []string {
	parts := strings.Split(strings.ToLower(combo), "+")
	var keys []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "win", "cmd", "super":
			keys = append(keys, "cmd")
		default:
			keys = append(keys, part)
		}
	}
	return keys
}

var specialRawcodes = map[string][]uint16{
	// Modifiers carry both left and right variants.
	"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":   {164, 165}, // VK_LMENU, VK_RMENU
	"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":   {91, 92},   // VK_LWIN, VK_RWIN

	"space":     {32},
	"enter":     {13},
	"return":    {13},
	"esc":       {27},
	"escape":    {27},
	"tab":       {9},
	"backspace": {8},
	"delete":    {46},
	"del":       {46},
	"insert":    {45},
	"ins":       {45},
	"home":      {36},
	"end":       {35},
	"pageup":    {33},
	"pgup":      {33},
	"pagedown":  {34},
	"pgdn":      {34},
	"left":      {37},
	"up":        {38},
	"right":     {39},
	"down":      {40},
}

// keyRawcodes maps a normalized key name to its Windows virtual-key rawcodes.
// Letters, digits and function keys are computed; the rest come from the
// table above. Unknown names return nil.
func keyRawcodes(name string) []uint16 {
	name = strings.ToLower(strings.TrimSpace(name))

	if rc, ok := specialRawcodes[name]; ok {
		return rc
	}
	if len(name) == 1 {
		c := name[0]
		switch {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c-'a') + 65} // VK_A..VK_Z
		case c >= '0' && c <= '9':
			return []uint16{uint16(c-'0') + 48} // VK_0..VK_9
		}
	}
	if strings.HasPrefix(name, "f") {
		var n int
		if _, err := fmt.Sscanf(name, "f%d", &n); err == nil && n >= 1 && n <= 24 {
			return []uint16{uint16(n-1) + 112} // VK_F1..VK_F24
		}
	}

	log.Printf("hotkey: unknown key name %q", name)
	return nil
}
