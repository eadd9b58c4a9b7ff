package canvas

import (
	"bytes"

	"github.com/lixenwraith/termframe/terminal"
)

// PaintMode selects the emission strategy. Both strategies produce
// identical screen cells for the same grid; they differ only in the wire
// bytes used to get there.
type PaintMode uint8

const (
	// PaintLegacy drives the sink through direct cursor/color/text calls,
	// one set per changed chunk.
	PaintLegacy PaintMode = iota

	// PaintANSI accumulates cursor-move and SGR escape sequences for the
	// whole frame into one buffer and hands it to the sink in a single
	// raw write.
	PaintANSI
)

// chunk is a transient run of cells sharing style and changed-status.
// Chunks are pooled on the bitmap to avoid per-frame allocation churn.
type chunk struct {
	x         int // Start column
	fg, bg    terminal.RGB
	underline bool
	changed   bool
	text      []rune
}

// ansiBuffer wraps bytes.Buffer so the escape emitters in the terminal
// package can target it directly.
type ansiBuffer struct {
	bytes.Buffer
}

// SetPaintMode switches emission strategy. Switching invalidates the
// shadow buffer: the two strategies share no cursor/style assumptions.
func (b *Bitmap) SetPaintMode(m PaintMode) {
	if m != b.mode {
		b.mode = m
		b.shadowValid = false
	}
}

// PaintMode returns the active emission strategy.
func (b *Bitmap) PaintMode() PaintMode { return b.mode }

// Paint diffs the grid against the shadow buffer and emits minimal writes
// to d. A sink failure (transient I/O, or cursor math broken by a
// concurrent resize) is recovered once by invalidating and repainting;
// a second failure propagates.
func (b *Bitmap) Paint(d terminal.Driver) error {
	if err := b.paintOnce(d); err != nil {
		b.shadowValid = false
		if err := b.paintOnce(d); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bitmap) paintOnce(d terminal.Driver) error {
	sinkW, _ := d.Size()
	if sinkW != b.sinkWidth {
		// A sink width change invalidates all cursor-position math
		if err := d.Clear(); err != nil {
			return err
		}
		b.shadowValid = false
		b.sinkWidth = sinkW
	}

	mode := b.mode
	var raw terminal.RawSink
	if mode == PaintANSI {
		var ok bool
		raw, ok = d.(terminal.RawSink)
		if !ok {
			mode = PaintLegacy
		}
	}
	if mode == PaintANSI {
		b.ansiBuf.Reset()
	}

	colorMode := terminal.ColorModeTrueColor
	if cm, ok := d.(interface{ ColorMode() terminal.ColorMode }); ok {
		colorMode = cm.ColorMode()
	}

	for y := 0; y < b.height; y++ {
		chunks := b.chunkRow(y)
		for _, c := range chunks {
			if !c.changed {
				continue
			}
			if mode == PaintANSI {
				terminal.WriteCursorPos(&b.ansiBuf, c.x, y)
				terminal.WriteSGR(&b.ansiBuf, c.fg, c.bg, c.underline, colorMode)
				for _, r := range c.text {
					b.ansiBuf.WriteRune(r)
				}
				continue
			}
			if err := d.MoveCursor(c.x, y); err != nil {
				return err
			}
			if err := d.SetColors(c.fg, c.bg, c.underline); err != nil {
				return err
			}
			if err := d.WriteText(string(c.text)); err != nil {
				return err
			}
		}
	}

	if mode == PaintANSI && b.ansiBuf.Len() > 0 {
		if err := raw.WriteRaw(b.ansiBuf.Bytes()); err != nil {
			return err
		}
	}
	if err := d.Flush(); err != nil {
		return err
	}

	copy(b.shadow, b.pixels)
	b.shadowValid = true
	return nil
}

// chunkRow groups row y into maximal runs sharing changed-status and, for
// changed runs, style. Unchanged runs are kept so column accounting stays
// correct, but they emit nothing.
func (b *Bitmap) chunkRow(y int) []chunk {
	b.chunks = b.chunks[:0]
	row := b.pixels[y*b.width : (y+1)*b.width]

	var cur *chunk
	for x, cell := range row {
		changed := !b.shadowValid || cell != b.shadow[y*b.width+x]

		if cur != nil && cur.changed == changed &&
			(!changed || (cur.fg == cell.Fg && cur.bg == cell.Bg && cur.underline == cell.Underline)) {
			cur.text = append(cur.text, cell.R)
			continue
		}

		// Recycle the rune slice left in this slot by a previous row
		var text []rune
		if n := len(b.chunks); n < cap(b.chunks) {
			text = b.chunks[:n+1][n].text[:0]
		}
		b.chunks = append(b.chunks, chunk{
			x:         x,
			fg:        cell.Fg,
			bg:        cell.Bg,
			underline: cell.Underline,
			changed:   changed,
			text:      append(text, cell.R),
		})
		cur = &b.chunks[len(b.chunks)-1]
	}
	return b.chunks
}
