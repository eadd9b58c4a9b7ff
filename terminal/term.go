package terminal

import (
	"bufio"
	"io"
	"os"
	"sync"
)

// Term is the live ANSI Driver over a raw-mode terminal. It buffers all
// output and commits on Flush. Input events and resize notifications are
// delivered on the Events channel.
type Term struct {
	backend Backend
	writer  *bufio.Writer
	mode    ColorMode
	input   *inputReader

	eventCh chan Event

	mu          sync.Mutex
	initialized bool
	finalized   bool
}

// backendWriter adapts Backend to io.Writer for bufio
type backendWriter struct{ b Backend }

func (w backendWriter) Write(p []byte) (int, error) { return w.b.Write(p) }

// New opens the process terminal: raw mode, alternate screen, hidden
// cursor, auto-wrap off. Close restores everything.
func New(colorMode ...ColorMode) (*Term, error) {
	b := newBackend()

	var c ColorMode
	if len(colorMode) == 0 {
		c = DetectColorMode()
	} else {
		c = colorMode[0]
	}

	t := &Term{
		backend: b,
		writer:  bufio.NewWriterSize(backendWriter{b}, 131072),
		mode:    c,
		eventCh: make(chan Event, 256),
	}

	if err := t.init(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Term) init() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.initialized {
		return nil
	}

	if err := t.backend.Init(); err != nil {
		return err
	}

	t.backend.SetResizeHandler(func(w, h int) {
		ev := Event{Type: EventResize, Width: w, Height: h}
		// Non-blocking, latest wins
		select {
		case t.eventCh <- ev:
		default:
			select {
			case <-t.eventCh:
			default:
			}
			select {
			case t.eventCh <- ev:
			default:
			}
		}
	})

	t.writer.Write(csiAltScreenEnter)
	t.writer.Write(csiCursorHide)
	t.writer.Write(csiAutoWrapOff)
	t.writer.Write(csiSGR0)
	t.writer.Write(csiClear)
	if err := t.writer.Flush(); err != nil {
		t.backend.Fini()
		return err
	}

	t.input = newInputReader(t.backend)
	t.input.start()
	go t.forwardInput()

	t.initialized = true
	return nil
}

// forwardInput merges parsed key events into the driver event channel
func (t *Term) forwardInput() {
	for ev := range t.input.events() {
		if ev.Type == EventClosed {
			return
		}
		select {
		case t.eventCh <- ev:
		default:
		}
	}
}

// Close restores terminal state. Safe to call multiple times.
func (t *Term) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized || t.finalized {
		return
	}

	if t.input != nil {
		t.input.stop()
	}

	t.writer.Write(csiCursorShow)
	t.writer.Write(csiAltScreenExit)
	// Re-enable auto-wrap after exiting alt screen so the main buffer
	// keeps wrapping
	t.writer.Write(csiAutoWrapOn)
	t.writer.Write(csiSGR0)
	t.writer.Flush()

	t.backend.Fini()
	t.finalized = true
}

// ColorMode returns the color capability the driver encodes for
func (t *Term) ColorMode() ColorMode {
	return t.mode
}

// Events returns the input/resize event channel
func (t *Term) Events() <-chan Event {
	return t.eventCh
}

// Size returns current terminal dimensions
func (t *Term) Size() (int, int) {
	return t.backend.Size()
}

// MoveCursor positions the write cursor (0-indexed)
func (t *Term) MoveCursor(x, y int) error {
	WriteCursorPos(t.writer, x, y)
	return nil
}

// SetColors emits a combined SGR for the given style
func (t *Term) SetColors(fg, bg RGB, underline bool) error {
	WriteSGR(t.writer, fg, bg, underline, t.mode)
	return nil
}

// WriteText writes s at the cursor
func (t *Term) WriteText(s string) error {
	_, err := t.writer.WriteString(s)
	return err
}

// WriteRaw writes a pre-encoded escape stream
func (t *Term) WriteRaw(p []byte) error {
	_, err := t.writer.Write(p)
	return err
}

// Clear erases the screen and homes the cursor
func (t *Term) Clear() error {
	t.writer.Write(csiSGR0)
	_, err := t.writer.Write(csiClear)
	return err
}

// Flush commits buffered output. bufio retains the first write error, so
// transient failures surface here.
func (t *Term) Flush() error {
	t.writer.Write(csiSGR0)
	return t.writer.Flush()
}

// EmergencyReset attempts to restore the terminal to a sane state.
// Call from panic recovery when Close cannot run normally.
func EmergencyReset(w io.Writer) {
	w.Write(csiCursorShow)
	w.Write(csiAltScreenExit)
	w.Write(csiSGR0)
	w.Write(csiAutoWrapOn)
	w.Write(csiRIS)

	if f, ok := w.(*os.File); ok {
		f.Sync()
	}

	// Escape sequences alone don't restore termios
	resetTerminalMode()
}
