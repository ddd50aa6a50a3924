package hotkey

import (
	"sync"
	"time"

	hook "github.com/robotn/gohook"
)

// EventType indicates what the capture layer should do.
type EventType int

const (
	// EventStart signals that the chord completed (start recording).
	EventStart EventType = iota
	// EventStop signals that the chord released (stop and process).
	EventStop
	// EventAbort signals a blur or cancel (stop and discard).
	EventAbort
)

// Event is emitted on the channel returned by Events.
type Event struct {
	Type EventType
}

// rawEvent is one entry in the listener's internal queue. All machine
// transitions happen on the queue goroutine, so raw key events, timer
// expiry, and pipeline completion can never race.
type rawEvent struct {
	kind rawKind
	code uint16
}

type rawKind int

const (
	rawPress rawKind = iota
	rawRelease
	rawBlur
	rawCancel
	rawExpire
	rawFinish
)

// Controller drives a Machine from a single-threaded event queue and emits
// capture events. A max-hold timer forces a stop when the chord is held
// longer than the configured recording limit.
type Controller struct {
	machine *Machine
	maxHold time.Duration

	queue chan rawEvent
	ch    chan Event
	done  chan struct{}
	once  sync.Once

	timerMu sync.Mutex
	timer   *time.Timer
}

// NewController creates a Controller for the given binding. maxHold bounds
// a single recording; zero disables the limit.
func NewController(b Binding, maxHold time.Duration) *Controller {
	return &Controller{
		machine: NewMachine(b),
		maxHold: maxHold,
		queue:   make(chan rawEvent, 64),
		ch:      make(chan Event, 16),
		done:    make(chan struct{}),
	}
}

// Events returns the channel that receives capture events. The channel is
// closed when Stop is called.
func (c *Controller) Events() <-chan Event {
	return c.ch
}

// State returns the machine's current state.
func (c *Controller) State() State {
	return c.machine.State()
}

// SetBinding switches the active chord, rejecting the switch while a
// session is in flight. Safe to call from any goroutine.
func (c *Controller) SetBinding(b Binding) error {
	return c.machine.SetBinding(b)
}

// Press enqueues a key-down event for a physical keycode.
func (c *Controller) Press(code uint16) { c.enqueue(rawEvent{kind: rawPress, code: code}) }

// Release enqueues a key-up event for a physical keycode.
func (c *Controller) Release(code uint16) { c.enqueue(rawEvent{kind: rawRelease, code: code}) }

// Blur enqueues a loss-of-focus event.
func (c *Controller) Blur() { c.enqueue(rawEvent{kind: rawBlur}) }

// Cancel enqueues an explicit cancel.
func (c *Controller) Cancel() { c.enqueue(rawEvent{kind: rawCancel}) }

// Finish enqueues the pipeline-done event, returning the controller to
// idle so the next chord press can start a session.
func (c *Controller) Finish() { c.enqueue(rawEvent{kind: rawFinish}) }

func (c *Controller) enqueue(ev rawEvent) {
	select {
	case c.queue <- ev:
	case <-c.done:
	}
}

// Run processes the event queue until Stop is called. Run it in a
// goroutine.
func (c *Controller) Run() {
	defer close(c.ch)
	for {
		select {
		case <-c.done:
			return
		case ev := <-c.queue:
			c.step(ev)
		}
	}
}

func (c *Controller) step(ev rawEvent) {
	var action Action
	switch ev.kind {
	case rawPress:
		action = c.machine.Press(ev.code)
	case rawRelease:
		action = c.machine.Release(ev.code)
	case rawBlur:
		action = c.machine.Blur()
	case rawCancel:
		action = c.machine.Cancel()
	case rawExpire:
		action = c.machine.Expire()
	case rawFinish:
		action = c.machine.Finish()
	}

	switch action {
	case ActionStart:
		c.armTimer()
		c.emit(Event{Type: EventStart})
	case ActionStop:
		c.disarmTimer()
		c.emit(Event{Type: EventStop})
	case ActionAbort:
		c.disarmTimer()
		c.emit(Event{Type: EventAbort})
	}
}

func (c *Controller) emit(ev Event) {
	select {
	case c.ch <- ev:
	default: // don't block the queue if the consumer stalls
	}
}

func (c *Controller) armTimer() {
	if c.maxHold <= 0 {
		return
	}
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	c.timer = time.AfterFunc(c.maxHold, func() {
		c.enqueue(rawEvent{kind: rawExpire})
	})
}

func (c *Controller) disarmTimer() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Stop terminates the controller. Safe to call multiple times.
func (c *Controller) Stop() {
	c.once.Do(func() {
		c.disarmTimer()
		close(c.done)
	})
}

// Listen attaches the controller to the global event hook and feeds raw
// key events into its queue. It blocks until the controller is stopped, so
// run it in a goroutine.
func Listen(c *Controller) {
	evChan := hook.Start()
	go func() {
		<-c.done
		hook.End()
	}()
	for ev := range evChan {
		switch ev.Kind {
		case hook.KeyDown, hook.KeyHold:
			c.Press(ev.Rawcode)
		case hook.KeyUp:
			c.Release(ev.Rawcode)
		}
	}
}
