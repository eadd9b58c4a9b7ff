package codec

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/lixenwraith/termframe/canvas"
	"github.com/lixenwraith/termframe/terminal"
)

// The wire grammar is bracket-delimited tokens on a single line:
//
//	[W,H][ticks][Raw][F=#rrggbb][B=#rrggbb][U=1][c][c]...
//	[W,H][ticks][Diff][F=#rrggbb][x,y,c]...
//
// Raw cells are scanned column-major (x outer, y inner). Color and
// underline markers are emitted only when the style differs from the
// previously emitted cell. Literal '[' and ']' characters inside cell
// tokens are escaped as OB and CB.

func hexColor(c terminal.RGB) string {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hex()
}

func parseHexColor(s string) (terminal.RGB, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return terminal.RGB{}, fmt.Errorf("%w: color %q", ErrFormat, s)
	}
	return terminal.RGB{
		R: uint8(c.R*255 + 0.5),
		G: uint8(c.G*255 + 0.5),
		B: uint8(c.B*255 + 0.5),
	}, nil
}

// markerState tracks the last emitted (or decoded) style so markers are
// only written when something changes. Underline starts false on both
// sides, so an initial non-underlined cell needs no marker.
type markerState struct {
	fg, bg    terminal.RGB
	underline bool
	started   bool
}

func (m *markerState) emit(buf *bytes.Buffer, c canvas.Cell) {
	if !m.started || c.Fg != m.fg {
		buf.WriteString("[F=")
		buf.WriteString(hexColor(c.Fg))
		buf.WriteByte(']')
		m.fg = c.Fg
	}
	if !m.started || c.Bg != m.bg {
		buf.WriteString("[B=")
		buf.WriteString(hexColor(c.Bg))
		buf.WriteByte(']')
		m.bg = c.Bg
	}
	if c.Underline != m.underline {
		if c.Underline {
			buf.WriteString("[U=1]")
		} else {
			buf.WriteString("[U=0]")
		}
		m.underline = c.Underline
	}
	m.started = true
}

// apply consumes a marker token, returning false when tok is not a marker.
func (m *markerState) apply(tok string) (bool, error) {
	if len(tok) < 2 || tok[1] != '=' {
		return false, nil
	}
	switch tok[0] {
	case 'F':
		c, err := parseHexColor(tok[2:])
		if err != nil {
			return false, err
		}
		m.fg = c
	case 'B':
		c, err := parseHexColor(tok[2:])
		if err != nil {
			return false, err
		}
		m.bg = c
	case 'U':
		switch tok[2:] {
		case "0":
			m.underline = false
		case "1":
			m.underline = true
		default:
			return false, fmt.Errorf("%w: underline marker %q", ErrFormat, tok)
		}
	default:
		return false, nil
	}
	return true, nil
}

func (m *markerState) cell(r rune) canvas.Cell {
	return canvas.Cell{R: r, Fg: m.fg, Bg: m.bg, Underline: m.underline}
}

func appendEscaped(buf *bytes.Buffer, r rune) {
	switch r {
	case '[':
		buf.WriteString("OB")
	case ']':
		buf.WriteString("CB")
	default:
		buf.WriteRune(r)
	}
}

func decodeChar(tok string) (rune, error) {
	switch tok {
	case "OB":
		return '[', nil
	case "CB":
		return ']', nil
	}
	r, size := utf8.DecodeRuneInString(tok)
	if r == utf8.RuneError || size != len(tok) {
		return 0, fmt.Errorf("%w: cell token %q", ErrFormat, tok)
	}
	return r, nil
}

// Serialize encodes f as a single line without the trailing newline.
func Serialize(f Frame) ([]byte, error) {
	w, h := f.Size()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "[%d,%d][%d]", w, h, int64(f.Timestamp()))

	var ms markerState
	switch fr := f.(type) {
	case *RawFrame:
		buf.WriteString("[Raw]")
		for x := 0; x < w; x++ {
			for y := 0; y < h; y++ {
				c := fr.CellAt(x, y)
				ms.emit(&buf, c)
				buf.WriteByte('[')
				appendEscaped(&buf, c.R)
				buf.WriteByte(']')
			}
		}
	case *DiffFrame:
		buf.WriteString("[Diff]")
		for _, ch := range fr.changes {
			ms.emit(&buf, ch.Cell)
			fmt.Fprintf(&buf, "[%d,%d,", ch.X, ch.Y)
			appendEscaped(&buf, ch.Cell.R)
			buf.WriteByte(']')
		}
	default:
		return nil, fmt.Errorf("%w: unknown frame type %T", ErrFormat, f)
	}
	return buf.Bytes(), nil
}

// tokenize splits a frame line into its bracketed token bodies.
func tokenize(line string) ([]string, error) {
	var toks []string
	for i := 0; i < len(line); {
		if line[i] != '[' {
			return nil, fmt.Errorf("%w: stray byte %q at offset %d", ErrFormat, line[i], i)
		}
		end := strings.IndexByte(line[i+1:], ']')
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated token at offset %d", ErrFormat, i)
		}
		toks = append(toks, line[i+1:i+1+end])
		i += end + 2
	}
	return toks, nil
}

// Deserialize decodes one frame line produced by Serialize.
func Deserialize(line []byte) (Frame, error) {
	toks, err := tokenize(string(line))
	if err != nil {
		return nil, err
	}
	if len(toks) < 3 {
		return nil, fmt.Errorf("%w: frame line needs size, timestamp and type", ErrFormat)
	}

	w, h, err := parsePair(toks[0])
	if err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: frame size %dx%d", ErrFormat, w, h)
	}
	ticks, err := strconv.ParseInt(toks[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp %q", ErrFormat, toks[1])
	}
	ts := time.Duration(ticks)

	switch toks[2] {
	case "Raw":
		return deserializeRaw(ts, w, h, toks[3:])
	case "Diff":
		return deserializeDiff(ts, w, h, toks[3:])
	default:
		return nil, fmt.Errorf("%w: frame type %q", ErrFormat, toks[2])
	}
}

func deserializeRaw(ts time.Duration, w, h int, toks []string) (*RawFrame, error) {
	f := &RawFrame{ts: ts, width: w, height: h, cells: make([]canvas.Cell, w*h)}
	var ms markerState
	i := 0
	for _, tok := range toks {
		ok, err := ms.apply(tok)
		if err != nil {
			return nil, err
		}
		if ok {
			continue
		}
		if i >= w*h {
			return nil, fmt.Errorf("%w: raw payload exceeds %dx%d cells", ErrFormat, w, h)
		}
		r, err := decodeChar(tok)
		if err != nil {
			return nil, err
		}
		x, y := i/h, i%h
		f.cells[y*w+x] = ms.cell(r)
		i++
	}
	if i != w*h {
		return nil, fmt.Errorf("%w: raw payload has %d of %d cells", ErrFormat, i, w*h)
	}
	return f, nil
}

func deserializeDiff(ts time.Duration, w, h int, toks []string) (*DiffFrame, error) {
	f := &DiffFrame{ts: ts, width: w, height: h}
	var ms markerState
	for _, tok := range toks {
		ok, err := ms.apply(tok)
		if err != nil {
			return nil, err
		}
		if ok {
			continue
		}
		x, y, r, err := parseTuple(tok)
		if err != nil {
			return nil, err
		}
		if x < 0 || x >= w || y < 0 || y >= h {
			return nil, fmt.Errorf("%w: diff cell (%d,%d) outside %dx%d", ErrFormat, x, y, w, h)
		}
		f.changes = append(f.changes, CellChange{X: x, Y: y, Cell: ms.cell(r)})
	}
	return f, nil
}

func parsePair(tok string) (int, int, error) {
	c := strings.IndexByte(tok, ',')
	if c < 0 {
		return 0, 0, fmt.Errorf("%w: size token %q", ErrFormat, tok)
	}
	a, err1 := strconv.Atoi(tok[:c])
	b, err2 := strconv.Atoi(tok[c+1:])
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("%w: size token %q", ErrFormat, tok)
	}
	return a, b, nil
}

// parseTuple splits an x,y,value diff entry. The value may itself be a
// comma, so only the first two commas delimit.
func parseTuple(tok string) (int, int, rune, error) {
	c1 := strings.IndexByte(tok, ',')
	if c1 < 0 {
		return 0, 0, 0, fmt.Errorf("%w: diff token %q", ErrFormat, tok)
	}
	c2 := strings.IndexByte(tok[c1+1:], ',')
	if c2 < 0 {
		return 0, 0, 0, fmt.Errorf("%w: diff token %q", ErrFormat, tok)
	}
	c2 += c1 + 1
	x, err1 := strconv.Atoi(tok[:c1])
	y, err2 := strconv.Atoi(tok[c1+1 : c2])
	if err1 != nil || err2 != nil {
		return 0, 0, 0, fmt.Errorf("%w: diff token %q", ErrFormat, tok)
	}
	r, err := decodeChar(tok[c2+1:])
	if err != nil {
		return 0, 0, 0, err
	}
	return x, y, r, nil
}
