// Package terminal provides low-level terminal access: the Driver sink the
// paint engine writes to, an ANSI implementation over a real tty, an
// in-memory virtual screen, and a tcell-backed adapter.
package terminal

// Driver is the output sink consumed by the paint engine. Implementations
// must tolerate redundant SetColors calls without visual artifacts.
//
// Write errors are surfaced so the engine can invalidate and retry once
// after a concurrent resize or transient I/O failure.
type Driver interface {
	// Size returns current sink dimensions in cells.
	Size() (width, height int)

	// MoveCursor positions the write cursor (0-indexed).
	MoveCursor(x, y int) error

	// SetColors sets the style applied to subsequent WriteText calls.
	SetColors(fg, bg RGB, underline bool) error

	// WriteText writes s at the cursor and advances the cursor by one cell
	// per rune written.
	WriteText(s string) error

	// Clear fills the screen with the default background and invalidates
	// any cursor/style state the sink tracks.
	Clear() error

	// Flush commits buffered writes. Buffered write errors surface here.
	Flush() error
}

// RawSink is implemented by drivers that accept a pre-encoded ANSI escape
// stream. The paint engine's escape-sequence strategy requires it; drivers
// without it (e.g. tcell) are painted with the direct strategy instead.
type RawSink interface {
	WriteRaw(p []byte) error
}

// EventSource is implemented by drivers that deliver input events.
type EventSource interface {
	Events() <-chan Event
}
