// Package hotkey turns raw global key events into push-to-talk capture
// signals. A two-key chord (configured modifier + option) must be held to
// record; the state machine guarantees exactly one start and one stop per
// physical hold, no matter how the raw events arrive.
package hotkey

import (
	"fmt"
	"sync"
)

// State is the controller's position in the push-to-talk lifecycle.
type State int

const (
	// StateIdle means no chord key is held.
	StateIdle State = iota
	// StateArmed means exactly one chord key is held.
	StateArmed
	// StateRecording means the full chord is held and capture is running.
	StateRecording
	// StateProcessing means capture stopped and the clip is in the pipeline.
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	default:
		return "unknown"
	}
}

// Action is the side effect a transition asks the caller to perform.
type Action int

const (
	// ActionNone means the event changed nothing observable.
	ActionNone Action = iota
	// ActionStart means capture should begin.
	ActionStart
	// ActionStop means capture should end and the clip be processed.
	ActionStop
	// ActionAbort means capture should end and the clip be discarded.
	ActionAbort
)

// Binding names the physical keycodes that form the chord. Left and right
// variants of a modifier are distinct physical keys, so each role lists
// every keycode it accepts.
type Binding struct {
	Name      string
	Primary   []uint16
	Secondary []uint16
}

// X11 keysyms for the physical modifier keys, as gohook reports them.
const (
	codeShiftLeft  uint16 = 65505
	codeShiftRight uint16 = 65506
	codeCtrlLeft   uint16 = 65507
	codeCtrlRight  uint16 = 65508
	codeAltLeft    uint16 = 65513
	codeAltRight   uint16 = 65514
)

// BindingFor returns the chord for a keybinding setting value. The secondary
// key is always the option/alt key; the setting selects the modifier paired
// with it.
func BindingFor(name string) (Binding, error) {
	secondary := []uint16{codeAltLeft, codeAltRight}
	switch name {
	case "ctrl":
		return Binding{Name: name, Primary: []uint16{codeCtrlLeft, codeCtrlRight}, Secondary: secondary}, nil
	case "shift":
		return Binding{Name: name, Primary: []uint16{codeShiftLeft, codeShiftRight}, Secondary: secondary}, nil
	default:
		return Binding{}, fmt.Errorf("hotkey: unknown keybinding %q", name)
	}
}

// Machine is the chord state machine. Every method applies one discrete
// event and returns the action the caller must perform. Methods are safe
// for concurrent use, though the listener drives them from one goroutine.
type Machine struct {
	mu      sync.Mutex
	binding Binding
	state   State

	// Keycode currently held for each chord role, 0 when released.
	heldPrimary   uint16
	heldSecondary uint16
}

// NewMachine creates a Machine in StateIdle with the given binding.
func NewMachine(b Binding) *Machine {
	return &Machine{binding: b}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SetBinding switches the active chord. The switch is rejected while a
// capture session is in flight so the held chord cannot be orphaned.
func (m *Machine) SetBinding(b Binding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateRecording || m.state == StateProcessing {
		return fmt.Errorf("hotkey: cannot switch keybinding while %s", m.state)
	}
	m.binding = b
	m.state = StateIdle
	m.heldPrimary = 0
	m.heldSecondary = 0
	return nil
}

// Press applies a key-down event for the given physical keycode.
func (m *Machine) Press(code uint16) Action {
	m.mu.Lock()
	defer m.mu.Unlock()

	primary := contains(m.binding.Primary, code)
	secondary := contains(m.binding.Secondary, code)
	if !primary && !secondary {
		return ActionNone
	}

	switch m.state {
	case StateIdle:
		if primary {
			m.heldPrimary = code
		} else {
			m.heldSecondary = code
		}
		m.state = StateArmed
		return ActionNone
	case StateArmed:
		// Key repeat of the held key, or a second physical key of the
		// same role, does not complete the chord.
		if primary && m.heldPrimary != 0 {
			return ActionNone
		}
		if secondary && m.heldSecondary != 0 {
			return ActionNone
		}
		if primary {
			m.heldPrimary = code
		} else {
			m.heldSecondary = code
		}
		m.state = StateRecording
		return ActionStart
	default:
		// Repeats while recording and re-presses while processing are
		// ignored until the controller returns to idle.
		return ActionNone
	}
}

// Release applies a key-up event for the given physical keycode.
func (m *Machine) Release(code uint16) Action {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateArmed:
		if code == m.heldPrimary {
			m.heldPrimary = 0
			m.state = StateIdle
		} else if code == m.heldSecondary {
			m.heldSecondary = 0
			m.state = StateIdle
		}
		return ActionNone
	case StateRecording:
		if code != m.heldPrimary && code != m.heldSecondary {
			return ActionNone
		}
		m.heldPrimary = 0
		m.heldSecondary = 0
		m.state = StateProcessing
		return ActionStop
	default:
		return ActionNone
	}
}

// Blur applies a loss-of-focus event. Any in-flight capture is aborted and
// the machine resets so stale key state cannot leak into the next session.
func (m *Machine) Blur() Action {
	m.mu.Lock()
	defer m.mu.Unlock()

	wasRecording := m.state == StateRecording
	m.state = StateIdle
	m.heldPrimary = 0
	m.heldSecondary = 0
	if wasRecording {
		return ActionAbort
	}
	return ActionNone
}

// Cancel applies an explicit cancel. Behaves like Blur.
func (m *Machine) Cancel() Action {
	return m.Blur()
}

// Expire applies the max-recording timeout. It behaves exactly like a chord
// key release: the clip recorded so far goes through the pipeline.
func (m *Machine) Expire() Action {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateRecording {
		return ActionNone
	}
	m.heldPrimary = 0
	m.heldSecondary = 0
	m.state = StateProcessing
	return ActionStop
}

// Finish applies the pipeline-done event, returning the machine to idle.
// The chord must be fully re-pressed to start the next session.
func (m *Machine) Finish() Action {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateProcessing {
		m.state = StateIdle
	}
	return ActionNone
}

func contains(codes []uint16, code uint16) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
