// Package codec records and replays bitmap frame streams.
//
// A recording is line-oriented text: a fixed-width duration header, a WxH
// size line, then one encoded frame per line. Frames are either full
// snapshots (Raw) or sparse cell deltas against the previous frame (Diff).
package codec

import (
	"errors"
	"fmt"
	"time"

	"github.com/lixenwraith/termframe/canvas"
)

// ErrFormat marks any malformed recording input: broken bracket grammar,
// unparsable color tokens, or a failed write-time round-trip check.
var ErrFormat = errors.New("codec: malformed frame data")

// Frame is one recorded step of a bitmap stream.
type Frame interface {
	// Timestamp is the frame's offset from the start of the recording.
	Timestamp() time.Duration

	// Size returns the frame's grid dimensions.
	Size() (width, height int)

	// Apply paints the frame onto b. Raw frames resize b as needed; diff
	// frames require b to already hold the previous frame at matching
	// dimensions.
	Apply(b *canvas.Bitmap) error
}

// RawFrame is a complete snapshot of every cell.
type RawFrame struct {
	ts            time.Duration
	width, height int
	cells         []canvas.Cell
}

// NewRawFrame snapshots b at the given timestamp.
func NewRawFrame(ts time.Duration, b *canvas.Bitmap) *RawFrame {
	w, h := b.Width(), b.Height()
	f := &RawFrame{ts: ts, width: w, height: h, cells: make([]canvas.Cell, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f.cells[y*w+x] = b.AtUnchecked(x, y)
		}
	}
	return f
}

func (f *RawFrame) Timestamp() time.Duration { return f.ts }
func (f *RawFrame) Size() (int, int)         { return f.width, f.height }

// CellAt returns the snapshot cell at (x, y).
func (f *RawFrame) CellAt(x, y int) canvas.Cell { return f.cells[y*f.width+x] }

func (f *RawFrame) Apply(b *canvas.Bitmap) error {
	if b.Width() != f.width || b.Height() != f.height {
		b.Resize(f.width, f.height)
	}
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			b.SetUnchecked(x, y, f.cells[y*f.width+x])
		}
	}
	return nil
}

// CellChange is one diff entry: the new value of cell (X, Y).
type CellChange struct {
	X, Y int
	Cell canvas.Cell
}

// DiffFrame is a sparse set of cells that changed since the prior frame.
type DiffFrame struct {
	ts            time.Duration
	width, height int
	changes       []CellChange
}

// DiffBetween computes the delta from prev to cur. Both bitmaps must share
// dimensions; a size change requires a raw frame instead.
func DiffBetween(ts time.Duration, prev, cur *canvas.Bitmap) (*DiffFrame, error) {
	if prev.Width() != cur.Width() || prev.Height() != cur.Height() {
		return nil, fmt.Errorf("%w: diff across %dx%d -> %dx%d resize",
			ErrFormat, prev.Width(), prev.Height(), cur.Width(), cur.Height())
	}
	f := &DiffFrame{ts: ts, width: cur.Width(), height: cur.Height()}
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			if c := cur.AtUnchecked(x, y); c != prev.AtUnchecked(x, y) {
				f.changes = append(f.changes, CellChange{X: x, Y: y, Cell: c})
			}
		}
	}
	return f, nil
}

func (f *DiffFrame) Timestamp() time.Duration { return f.ts }
func (f *DiffFrame) Size() (int, int)         { return f.width, f.height }

// Changes returns the frame's delta entries in scan order.
func (f *DiffFrame) Changes() []CellChange { return f.changes }

func (f *DiffFrame) Apply(b *canvas.Bitmap) error {
	if b.Width() != f.width || b.Height() != f.height {
		return fmt.Errorf("%w: diff frame is %dx%d, canvas is %dx%d",
			ErrFormat, f.width, f.height, b.Width(), b.Height())
	}
	for _, ch := range f.changes {
		b.SetUnchecked(ch.X, ch.Y, ch.Cell)
	}
	return nil
}
