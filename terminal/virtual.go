package terminal

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrWriteFailed is returned by the virtual driver's induced failures.
var ErrWriteFailed = errors.New("virtual driver: induced write failure")

// ScreenCell is one cell of the virtual screen.
type ScreenCell struct {
	R         rune
	Fg, Bg    RGB
	Underline bool
}

// Virtual is an in-memory Driver used by tests and headless rendering. It
// accepts both the direct call surface and the escape-sequence strategy's
// raw stream (interpreting cursor moves and truecolor/256 SGR), so the two
// paint strategies can be compared cell-for-cell.
type Virtual struct {
	width, height int
	cells         []ScreenCell

	curX, curY int
	fg, bg     RGB
	underline  bool

	eventCh chan Event

	// Instrumentation for paint assertions
	CursorMoves int
	ColorSets   int
	TextWrites  int
	RawWrites   int
	Cleared     int

	failRemaining int
}

// NewVirtual creates a virtual screen of the given size.
func NewVirtual(width, height int) *Virtual {
	v := &Virtual{
		width:   width,
		height:  height,
		eventCh: make(chan Event, 64),
	}
	v.reset()
	return v
}

func (v *Virtual) reset() {
	v.cells = make([]ScreenCell, v.width*v.height)
	for i := range v.cells {
		v.cells[i] = ScreenCell{R: ' ', Fg: DefaultFg, Bg: DefaultBg}
	}
}

// SetSize simulates a host-side terminal resize.
func (v *Virtual) SetSize(width, height int) {
	v.width, v.height = width, height
	v.reset()
}

// FailNextWrites makes the next n write operations return ErrWriteFailed.
func (v *Virtual) FailNextWrites(n int) { v.failRemaining = n }

func (v *Virtual) failing() bool {
	if v.failRemaining > 0 {
		v.failRemaining--
		return true
	}
	return false
}

// Cell returns the screen cell at (x, y).
func (v *Virtual) Cell(x, y int) ScreenCell {
	if x < 0 || x >= v.width || y < 0 || y >= v.height {
		return ScreenCell{}
	}
	return v.cells[y*v.width+x]
}

// ResetCounters zeroes the instrumentation counters.
func (v *Virtual) ResetCounters() {
	v.CursorMoves, v.ColorSets, v.TextWrites, v.RawWrites, v.Cleared = 0, 0, 0, 0, 0
}

// PostEvent injects an input event, dropped if the queue is full.
func (v *Virtual) PostEvent(ev Event) {
	select {
	case v.eventCh <- ev:
	default:
	}
}

// Events returns the injected-event channel.
func (v *Virtual) Events() <-chan Event { return v.eventCh }

// Size returns the virtual dimensions.
func (v *Virtual) Size() (int, int) { return v.width, v.height }

// MoveCursor positions the write cursor.
func (v *Virtual) MoveCursor(x, y int) error {
	if v.failing() {
		return ErrWriteFailed
	}
	v.CursorMoves++
	v.curX, v.curY = x, y
	return nil
}

// SetColors sets the style for subsequent WriteText calls.
func (v *Virtual) SetColors(fg, bg RGB, underline bool) error {
	if v.failing() {
		return ErrWriteFailed
	}
	v.ColorSets++
	v.fg, v.bg, v.underline = fg, bg, underline
	return nil
}

// WriteText places s at the cursor, advancing one cell per rune.
func (v *Virtual) WriteText(s string) error {
	if v.failing() {
		return ErrWriteFailed
	}
	v.TextWrites++
	v.placeText(s)
	return nil
}

func (v *Virtual) placeText(s string) {
	for _, r := range s {
		if v.curX >= 0 && v.curX < v.width && v.curY >= 0 && v.curY < v.height {
			v.cells[v.curY*v.width+v.curX] = ScreenCell{R: r, Fg: v.fg, Bg: v.bg, Underline: v.underline}
		}
		v.curX++
	}
}

// Clear resets every cell to the default style.
func (v *Virtual) Clear() error {
	if v.failing() {
		return ErrWriteFailed
	}
	v.Cleared++
	v.reset()
	return nil
}

// Flush is a no-op for the in-memory screen.
func (v *Virtual) Flush() error { return nil }

// WriteRaw interprets the escape-sequence strategy's stream: CSI H cursor
// moves, CSI m SGR (reset / underline / 38;2, 48;2 truecolor / 38;5, 48;5
// palette), and literal text.
func (v *Virtual) WriteRaw(p []byte) error {
	if v.failing() {
		return ErrWriteFailed
	}
	v.RawWrites++
	i := 0
	for i < len(p) {
		if p[i] == 0x1b && i+1 < len(p) && p[i+1] == '[' {
			end := i + 2
			for end < len(p) && !isCSITerminator(p[end]) {
				end++
			}
			if end >= len(p) {
				break // Truncated sequence
			}
			body := string(p[i+2 : end])
			switch p[end] {
			case 'H':
				v.applyCursor(body)
			case 'm':
				v.applySGR(body)
			}
			i = end + 1
			continue
		}
		r, size := utf8.DecodeRune(p[i:])
		v.placeText(string(r))
		i += size
	}
	return nil
}

func isCSITerminator(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func (v *Virtual) applyCursor(body string) {
	v.CursorMoves++
	row, col := 1, 1
	if body != "" {
		parts := strings.SplitN(body, ";", 2)
		row, _ = strconv.Atoi(parts[0])
		if len(parts) == 2 {
			col, _ = strconv.Atoi(parts[1])
		}
	}
	v.curX, v.curY = col-1, row-1
}

func (v *Virtual) applySGR(body string) {
	if body == "" {
		body = "0"
	}
	params := strings.Split(body, ";")
	styled := false
	for i := 0; i < len(params); i++ {
		n, _ := strconv.Atoi(params[i])
		switch n {
		case 0:
			v.fg, v.bg, v.underline = DefaultFg, DefaultBg, false
		case 4:
			v.underline = true
		case 24:
			v.underline = false
		case 38, 48:
			c, used := parseSGRColor(params[i:])
			if used == 0 {
				return
			}
			if n == 38 {
				v.fg = c
			} else {
				v.bg = c
			}
			i += used - 1
			styled = true
		}
	}
	if styled {
		v.ColorSets++
	}
}

// parseSGRColor decodes 38/48;2;r;g;b or 38/48;5;n, returning the color and
// the number of params consumed (0 on malformed input).
func parseSGRColor(params []string) (RGB, int) {
	if len(params) < 2 {
		return RGB{}, 0
	}
	kind, _ := strconv.Atoi(params[1])
	switch kind {
	case 2:
		if len(params) < 5 {
			return RGB{}, 0
		}
		r, _ := strconv.Atoi(params[2])
		g, _ := strconv.Atoi(params[3])
		b, _ := strconv.Atoi(params[4])
		return RGB{uint8(r), uint8(g), uint8(b)}, 5
	case 5:
		if len(params) < 3 {
			return RGB{}, 0
		}
		n, _ := strconv.Atoi(params[2])
		return palette256ToRGB(n), 3
	}
	return RGB{}, 0
}

// palette256ToRGB expands a 256-palette index back to RGB (cube/grayscale
// entries only; the 16 base colors collapse to approximations).
func palette256ToRGB(n int) RGB {
	switch {
	case n >= 232 && n <= 255:
		v := uint8(8 + 10*(n-232))
		return RGB{v, v, v}
	case n >= 16 && n <= 231:
		n -= 16
		return RGB{cubeValues[n/36], cubeValues[n/6%6], cubeValues[n%6]}
	default:
		if n >= 8 {
			return RGBWhite
		}
		return RGBBlack
	}
}
