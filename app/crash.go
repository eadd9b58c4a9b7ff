package app

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/lixenwraith/termframe/terminal"
)

// HandleCrash resets the terminal out of raw/alt-screen state and prints
// the panic with its stack before exiting. Without the reset the trace
// would be unreadable on a raw terminal.
func HandleCrash(r any) {
	if r == nil {
		return
	}

	terminal.EmergencyReset(os.Stdout)

	os.Stdout.Sync()
	os.Stderr.Sync()

	fmt.Fprintf(os.Stderr, "\r\n\x1b[31mCRASH DETECTED: %v\x1b[0m\r\n", r)
	fmt.Fprintf(os.Stderr, "Stack Trace:\r\n%s\r\n", debug.Stack())

	os.Stderr.Sync()
	os.Exit(1)
}

// Go runs fn on a new goroutine with panic recovery routed through
// HandleCrash. Use it instead of the go keyword for goroutines that may
// crash while the terminal is in raw mode.
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				HandleCrash(r)
			}
		}()
		fn()
	}()
}
