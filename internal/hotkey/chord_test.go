package hotkey

import (
	"testing"
	"time"
)

func ctrlBinding(t *testing.T) Binding {
	t.Helper()
	b, err := BindingFor("ctrl")
	if err != nil {
		t.Fatalf("BindingFor(ctrl) error = %v", err)
	}
	return b
}

func TestBindingFor(t *testing.T) {
	if _, err := BindingFor("shift"); err != nil {
		t.Errorf("BindingFor(shift) error = %v", err)
	}
	if _, err := BindingFor("super"); err == nil {
		t.Error("BindingFor(super) should fail")
	}
}

func TestSingleKeyNeverRecords(t *testing.T) {
	m := NewMachine(ctrlBinding(t))

	if got := m.Press(codeCtrlLeft); got != ActionNone {
		t.Errorf("Press(ctrl) = %v, want ActionNone", got)
	}
	if m.State() != StateArmed {
		t.Errorf("state = %v, want armed", m.State())
	}
	if got := m.Release(codeCtrlLeft); got != ActionNone {
		t.Errorf("Release(ctrl) = %v, want ActionNone", got)
	}
	if m.State() != StateIdle {
		t.Errorf("state = %v, want idle", m.State())
	}

	// Same with only the option key.
	m.Press(codeAltLeft)
	if m.State() != StateArmed {
		t.Errorf("state after alt press = %v, want armed", m.State())
	}
	m.Release(codeAltLeft)
	if m.State() != StateIdle {
		t.Errorf("state after alt release = %v, want idle", m.State())
	}
}

func TestFullChordStartsAndStopsOnce(t *testing.T) {
	m := NewMachine(ctrlBinding(t))

	m.Press(codeCtrlLeft)
	if got := m.Press(codeAltLeft); got != ActionStart {
		t.Fatalf("completing chord = %v, want ActionStart", got)
	}
	if m.State() != StateRecording {
		t.Fatalf("state = %v, want recording", m.State())
	}

	// Releasing either key stops exactly once.
	if got := m.Release(codeCtrlLeft); got != ActionStop {
		t.Fatalf("first release = %v, want ActionStop", got)
	}
	if got := m.Release(codeAltLeft); got != ActionNone {
		t.Errorf("second release = %v, want ActionNone (no double stop)", got)
	}
	if m.State() != StateProcessing {
		t.Errorf("state = %v, want processing", m.State())
	}
}

func TestChordOrderDoesNotMatter(t *testing.T) {
	m := NewMachine(ctrlBinding(t))

	m.Press(codeAltRight)
	if got := m.Press(codeCtrlRight); got != ActionStart {
		t.Errorf("option-first chord = %v, want ActionStart", got)
	}
}

func TestKeyRepeatDoesNotRestart(t *testing.T) {
	m := NewMachine(ctrlBinding(t))

	m.Press(codeCtrlLeft)
	if got := m.Press(codeCtrlLeft); got != ActionNone {
		t.Errorf("repeat while armed = %v, want ActionNone", got)
	}
	m.Press(codeAltLeft)
	if got := m.Press(codeAltLeft); got != ActionNone {
		t.Errorf("repeat while recording = %v, want ActionNone", got)
	}
	if m.State() != StateRecording {
		t.Errorf("state = %v, want recording", m.State())
	}
}

func TestUnrelatedKeysIgnored(t *testing.T) {
	m := NewMachine(ctrlBinding(t))

	const codeA uint16 = 97
	if got := m.Press(codeA); got != ActionNone {
		t.Errorf("unrelated press = %v", got)
	}
	if m.State() != StateIdle {
		t.Errorf("state = %v, want idle", m.State())
	}

	m.Press(codeCtrlLeft)
	m.Press(codeAltLeft)
	if got := m.Release(codeA); got != ActionNone {
		t.Errorf("unrelated release while recording = %v", got)
	}
	if m.State() != StateRecording {
		t.Errorf("state = %v, want recording", m.State())
	}
}

func TestLeftRightModifiersAreDistinct(t *testing.T) {
	b := Binding{Name: "ctrl-left-only", Primary: []uint16{codeCtrlLeft}, Secondary: []uint16{codeAltLeft}}
	m := NewMachine(b)

	if got := m.Press(codeCtrlRight); got != ActionNone {
		t.Errorf("Press(right ctrl) = %v, want ActionNone", got)
	}
	if m.State() != StateIdle {
		t.Errorf("right ctrl must not arm a left-ctrl binding, state = %v", m.State())
	}
}

func TestRepressDuringProcessingIgnored(t *testing.T) {
	m := NewMachine(ctrlBinding(t))

	m.Press(codeCtrlLeft)
	m.Press(codeAltLeft)
	m.Release(codeCtrlLeft)
	if m.State() != StateProcessing {
		t.Fatalf("state = %v, want processing", m.State())
	}

	if got := m.Press(codeCtrlLeft); got != ActionNone {
		t.Errorf("press during processing = %v, want ActionNone", got)
	}
	if got := m.Press(codeAltLeft); got != ActionNone {
		t.Errorf("chord during processing = %v, want ActionNone", got)
	}
	if m.State() != StateProcessing {
		t.Errorf("state = %v, want processing", m.State())
	}

	m.Finish()
	if m.State() != StateIdle {
		t.Fatalf("state after finish = %v, want idle", m.State())
	}

	// The chord works again after returning to idle.
	m.Press(codeCtrlLeft)
	if got := m.Press(codeAltLeft); got != ActionStart {
		t.Errorf("chord after finish = %v, want ActionStart", got)
	}
}

func TestBlurAbortsRecording(t *testing.T) {
	m := NewMachine(ctrlBinding(t))

	m.Press(codeCtrlLeft)
	m.Press(codeAltLeft)
	if got := m.Blur(); got != ActionAbort {
		t.Errorf("blur while recording = %v, want ActionAbort", got)
	}
	if m.State() != StateIdle {
		t.Errorf("state after blur = %v, want idle", m.State())
	}

	// Stale key releases after the reset change nothing.
	if got := m.Release(codeCtrlLeft); got != ActionNone {
		t.Errorf("stale release = %v, want ActionNone", got)
	}
}

func TestBlurWhileArmedResets(t *testing.T) {
	m := NewMachine(ctrlBinding(t))

	m.Press(codeCtrlLeft)
	if got := m.Blur(); got != ActionNone {
		t.Errorf("blur while armed = %v, want ActionNone", got)
	}
	if m.State() != StateIdle {
		t.Errorf("state = %v, want idle", m.State())
	}
}

func TestExpireActsLikeRelease(t *testing.T) {
	m := NewMachine(ctrlBinding(t))

	if got := m.Expire(); got != ActionNone {
		t.Errorf("expire while idle = %v, want ActionNone", got)
	}

	m.Press(codeCtrlLeft)
	m.Press(codeAltLeft)
	if got := m.Expire(); got != ActionStop {
		t.Errorf("expire while recording = %v, want ActionStop", got)
	}
	if m.State() != StateProcessing {
		t.Errorf("state = %v, want processing", m.State())
	}

	// Keys are still physically held; their release must not double-stop.
	if got := m.Release(codeCtrlLeft); got != ActionNone {
		t.Errorf("release after expire = %v, want ActionNone", got)
	}
	if got := m.Release(codeAltLeft); got != ActionNone {
		t.Errorf("release after expire = %v, want ActionNone", got)
	}
}

func TestSetBindingRejectedMidSession(t *testing.T) {
	m := NewMachine(ctrlBinding(t))
	shift, _ := BindingFor("shift")

	m.Press(codeCtrlLeft)
	m.Press(codeAltLeft)
	if err := m.SetBinding(shift); err == nil {
		t.Error("SetBinding while recording should fail")
	}

	m.Release(codeCtrlLeft)
	if err := m.SetBinding(shift); err == nil {
		t.Error("SetBinding while processing should fail")
	}

	m.Finish()
	if err := m.SetBinding(shift); err != nil {
		t.Errorf("SetBinding while idle error = %v", err)
	}

	// The new chord is live.
	m.Press(codeShiftLeft)
	if got := m.Press(codeAltLeft); got != ActionStart {
		t.Errorf("shift chord after switch = %v, want ActionStart", got)
	}
}

func TestControllerEmitsStartStop(t *testing.T) {
	c := NewController(ctrlBinding(t), 0)
	go c.Run()
	defer c.Stop()

	c.Press(codeCtrlLeft)
	c.Press(codeAltLeft)
	waitEvent(t, c, EventStart)

	c.Release(codeAltLeft)
	waitEvent(t, c, EventStop)
}

func TestControllerMaxHoldForcesStop(t *testing.T) {
	c := NewController(ctrlBinding(t), 20*time.Millisecond)
	go c.Run()
	defer c.Stop()

	c.Press(codeCtrlLeft)
	c.Press(codeAltLeft)
	waitEvent(t, c, EventStart)

	// No release; the timer must stop the session.
	waitEvent(t, c, EventStop)
	if c.State() != StateProcessing {
		t.Errorf("state = %v, want processing", c.State())
	}
}

func TestControllerBlurEmitsAbort(t *testing.T) {
	c := NewController(ctrlBinding(t), 0)
	go c.Run()
	defer c.Stop()

	c.Press(codeCtrlLeft)
	c.Press(codeAltLeft)
	waitEvent(t, c, EventStart)

	c.Blur()
	waitEvent(t, c, EventAbort)
	if c.State() != StateIdle {
		t.Errorf("state = %v, want idle", c.State())
	}
}

func waitEvent(t *testing.T, c *Controller, want EventType) {
	t.Helper()
	select {
	case ev := <-c.Events():
		if ev.Type != want {
			t.Fatalf("event = %v, want %v", ev.Type, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event %v", want)
	}
}
