// Package deliver hands finished transcripts to the user: the text goes to
// the system clipboard, optionally followed by a paste keystroke into the
// active application and a desktop notification.
package deliver

import (
	"fmt"
	"runtime"
	"time"

	"github.com/atotto/clipboard"
	"github.com/gen2brain/beeep"
	"github.com/go-vgo/robotgo"
)

// Options controls one delivery.
type Options struct {
	// AutoPaste sends a paste keystroke after the clipboard write and then
	// restores the previous clipboard contents.
	AutoPaste bool
	// ClipboardSyncDelay is the wait between the clipboard write and the
	// paste keystroke, giving the system clipboard time to settle.
	ClipboardSyncDelay time.Duration
	// PasteDelay is the wait after the paste keystroke before the previous
	// clipboard contents are restored.
	PasteDelay time.Duration
	// Notify shows a desktop notification with the delivered text.
	Notify bool
}

// board abstracts the system clipboard so tests can fake it.
type board interface {
	Read() (string, error)
	Write(text string) error
}

// keyboard abstracts the paste keystroke.
type keyboard interface {
	Paste() error
}

type systemBoard struct{}

func (systemBoard) Read() (string, error) { return clipboard.ReadAll() }

func (systemBoard) Write(text string) error { return clipboard.WriteAll(text) }

type systemKeyboard struct{}

func (systemKeyboard) Paste() error {
	return robotgo.KeyTap("v", pasteModifier())
}

func pasteModifier() string {
	if runtime.GOOS == "darwin" {
		return "cmd"
	}
	return "ctrl"
}

// Deliverer writes transcripts to the clipboard and optionally pastes them.
type Deliverer struct {
	board  board
	keys   keyboard
	notify func(title, message string) error
	sleep  func(time.Duration)
}

// New creates a Deliverer backed by the system clipboard and keyboard.
func New() *Deliverer {
	return &Deliverer{
		board: systemBoard{},
		keys:  systemKeyboard{},
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		sleep: time.Sleep,
	}
}

// Deliver places text on the clipboard and, when AutoPaste is set, pastes
// it into the active application and restores the previous clipboard
// contents. Empty text is a no-op.
func (d *Deliverer) Deliver(text string, opts Options) error {
	if text == "" {
		return nil
	}

	prev, _ := d.board.Read()

	if err := d.board.Write(text); err != nil {
		return fmt.Errorf("deliver: write clipboard: %w", err)
	}

	if opts.AutoPaste {
		d.sleep(opts.ClipboardSyncDelay)
		if err := d.keys.Paste(); err != nil {
			return fmt.Errorf("deliver: paste keystroke: %w", err)
		}
		// Restore what the user had before; without auto-paste the
		// transcript itself is the deliverable and stays put.
		d.sleep(opts.PasteDelay)
		if err := d.board.Write(prev); err != nil {
			return fmt.Errorf("deliver: restore clipboard: %w", err)
		}
	}

	if opts.Notify {
		if err := d.notify("Transcribed", text); err != nil {
			return fmt.Errorf("deliver: notify: %w", err)
		}
	}

	return nil
}

// Status shows a notification without touching the clipboard. Used for
// rejected or failed captures.
func (d *Deliverer) Status(title, message string) error {
	if err := d.notify(title, message); err != nil {
		return fmt.Errorf("deliver: notify: %w", err)
	}
	return nil
}
