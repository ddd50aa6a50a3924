// Command chord-probe is a manual test for the push-to-talk chord. Run it,
// hold the chosen modifier plus Option, and watch the events.
// Press Ctrl+C to exit.
//
// Usage:
//
//	go run ./cmd/chord-probe [--keybinding ctrl|shift]
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pttscribe/ptt-scribe/internal/hotkey"
)

func main() {
	keybinding := flag.String("keybinding", "ctrl", "chord modifier: ctrl or shift")
	flag.Parse()

	binding, err := hotkey.BindingFor(*keybinding)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("Listening for %s+option chord...\n", *keybinding)
	fmt.Println("Press Ctrl+C to exit.")

	controller := hotkey.NewController(binding, 0)
	go controller.Run()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nShutting down...")
		controller.Stop()
		os.Exit(0)
	}()

	go func() {
		for ev := range controller.Events() {
			switch ev.Type {
			case hotkey.EventStart:
				fmt.Println(">>> START (recording)")
			case hotkey.EventStop:
				fmt.Println("<<< STOP  (processing)")
			case hotkey.EventAbort:
				fmt.Println("xxx ABORT (discarded)")
			}
		}
		fmt.Println("Event channel closed.")
	}()

	// Blocks until stopped
	hotkey.Listen(controller)
	fmt.Println("Done.")
}
