package terminal

import "io"

// Pre-allocated ANSI sequence fragments (avoid allocations during render)
var (
	csi      = []byte("\x1b[")
	csiClear = []byte("\x1b[2J\x1b[H")
	csiRIS   = []byte("\x1bc") // Reset to Initial State (emergency)
	csiSGR0  = []byte("\x1b[0m")

	// Cursor control
	csiCursorHide = []byte("\x1b[?25l")
	csiCursorShow = []byte("\x1b[?25h")

	// Screen modes
	csiAltScreenEnter = []byte("\x1b[?1049h")
	csiAltScreenExit  = []byte("\x1b[?1049l")
	// DECAWM: ?7l disables wrapping so the bottom-right cell can be
	// written without scrolling
	csiAutoWrapOn  = []byte("\x1b[?7h")
	csiAutoWrapOff = []byte("\x1b[?7l")

	// Color prefixes
	sgrFg256 = []byte("38;5;")
	sgrBg256 = []byte("48;5;")
	sgrFgRGB = []byte("38;2;")
	sgrBgRGB = []byte("48;2;")
)

// escWriter is the byte sink the emitters target. Both *bufio.Writer and
// *bytes.Buffer satisfy it, so the live driver and the paint engine's
// escape-sequence strategy share one set of emitters.
type escWriter interface {
	io.Writer
	WriteByte(byte) error
	WriteString(string) (int, error)
	WriteRune(rune) (int, error)
}

// writeInt writes an integer without allocation.
// Optimized for terminal values (0-255 common, 0-999 typical max).
func writeInt(w escWriter, n int) {
	if n < 0 {
		n = 0
	}
	if n < 10 {
		w.WriteByte(byte(n) + '0')
		return
	}
	if n < 100 {
		w.WriteByte(byte(n/10) + '0')
		w.WriteByte(byte(n%10) + '0')
		return
	}
	if n < 1000 {
		w.WriteByte(byte(n/100) + '0')
		w.WriteByte(byte(n/10%10) + '0')
		w.WriteByte(byte(n%10) + '0')
		return
	}
	// Fallback for >999 (rare)
	var buf [8]byte
	i := 7
	for n > 0 {
		buf[i] = byte(n%10) + '0'
		n /= 10
		i--
	}
	w.Write(buf[i+1:])
}

// WriteCursorPos writes a cursor positioning sequence (0-indexed input).
func WriteCursorPos(w escWriter, x, y int) {
	w.Write(csi)
	writeInt(w, y+1)
	w.WriteByte(';')
	writeInt(w, x+1)
	w.WriteByte('H')
}

// WriteSGR writes one combined SGR sequence: reset, optional underline,
// then foreground and background in the requested color mode.
func WriteSGR(w escWriter, fg, bg RGB, underline bool, mode ColorMode) {
	w.Write(csi)
	w.WriteByte('0')
	if underline {
		w.WriteString(";4")
	}
	w.WriteByte(';')
	if mode == ColorModeTrueColor {
		w.Write(sgrFgRGB)
		writeInt(w, int(fg.R))
		w.WriteByte(';')
		writeInt(w, int(fg.G))
		w.WriteByte(';')
		writeInt(w, int(fg.B))
	} else {
		w.Write(sgrFg256)
		writeInt(w, int(RGBTo256(fg)))
	}
	w.WriteByte(';')
	if mode == ColorModeTrueColor {
		w.Write(sgrBgRGB)
		writeInt(w, int(bg.R))
		w.WriteByte(';')
		writeInt(w, int(bg.G))
		w.WriteByte(';')
		writeInt(w, int(bg.B))
	} else {
		w.Write(sgrBg256)
		writeInt(w, int(RGBTo256(bg)))
	}
	w.WriteByte('m')
}
