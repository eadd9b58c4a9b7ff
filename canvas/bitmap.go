package canvas

import (
	"github.com/mattn/go-runewidth"

	"github.com/lixenwraith/termframe/terminal"
)

// Bitmap is a 2D cell grid with a shadow buffer recording what was last
// painted. All storage is row-major: pixels[y*width+x].
//
// The grid and shadow buffer must only be touched from the goroutine that
// paints; the engine does no locking of its own.
type Bitmap struct {
	width, height int
	pixels        []Cell
	shadow        []Cell

	// shadowValid is false whenever the shadow buffer cannot be trusted
	// (fresh bitmap, resize, strategy switch, explicit invalidate); the
	// next paint then treats every cell as changed.
	shadowValid bool

	mode      PaintMode
	sinkWidth int // Sink width at last paint; change forces a clear

	chunks  []chunk // Freelist reused across paints
	ansiBuf ansiBuffer
}

// NewBitmap creates a bitmap filled with DefaultCell.
func NewBitmap(width, height int) *Bitmap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	b := &Bitmap{
		width:  width,
		height: height,
		pixels: make([]Cell, width*height),
		shadow: make([]Cell, width*height),
	}
	fillCells(b.pixels, DefaultCell)
	return b
}

// fillCells sets every element using exponential copy
func fillCells(cells []Cell, c Cell) {
	if len(cells) == 0 {
		return
	}
	cells[0] = c
	for filled := 1; filled < len(cells); filled *= 2 {
		copy(cells[filled:], cells[:filled])
	}
}

// Width returns the grid width.
func (b *Bitmap) Width() int { return b.width }

// Height returns the grid height.
func (b *Bitmap) Height() int { return b.height }

// Resize reallocates both buffers. Content is not preserved; the shadow
// buffer is invalidated so the next Paint repaints every cell.
func (b *Bitmap) Resize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	size := width * height
	b.pixels = make([]Cell, size)
	b.shadow = make([]Cell, size)
	fillCells(b.pixels, DefaultCell)
	b.width = width
	b.height = height
	b.shadowValid = false
	b.chunks = nil
}

// Invalidate discards the shadow buffer, forcing a full repaint on the
// next Paint call.
func (b *Bitmap) Invalidate() {
	b.shadowValid = false
}

// inBounds returns true if (x, y) lies inside the grid.
func (b *Bitmap) inBounds(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

// At returns the cell at (x, y); ok is false out of bounds.
func (b *Bitmap) At(x, y int) (Cell, bool) {
	if !b.inBounds(x, y) {
		return Cell{}, false
	}
	return b.pixels[y*b.width+x], true
}

// AtUnchecked returns the cell at (x, y) without bounds checking. The
// caller must have proven bounds validity.
func (b *Bitmap) AtUnchecked(x, y int) Cell {
	return b.pixels[y*b.width+x]
}

// Set writes the cell at (x, y); out-of-bounds writes are clipped.
func (b *Bitmap) Set(x, y int, c Cell) {
	if !b.inBounds(x, y) {
		return
	}
	b.pixels[y*b.width+x] = c
}

// SetUnchecked writes the cell at (x, y) without bounds checking. The
// caller must have proven bounds validity.
func (b *Bitmap) SetUnchecked(x, y int, c Cell) {
	b.pixels[y*b.width+x] = c
}

// Fill overwrites every cell.
func (b *Bitmap) Fill(c Cell) {
	fillCells(b.pixels, c)
}

// DrawPoint writes a single cell, clipped at the edges.
func (b *Bitmap) DrawPoint(x, y int, c Cell) {
	b.Set(x, y, c)
}

// FillRect fills the rectangle [x, x+w) x [y, y+h), clipped at the edges.
func (b *Bitmap) FillRect(x, y, w, h int, c Cell) {
	for yy := y; yy < y+h; yy++ {
		if yy < 0 || yy >= b.height {
			continue
		}
		for xx := x; xx < x+w; xx++ {
			if xx < 0 || xx >= b.width {
				continue
			}
			b.pixels[yy*b.width+xx] = c
		}
	}
}

// FillRectUnchecked fills without bounds checking. The caller must have
// proven the rectangle lies fully inside the grid.
func (b *Bitmap) FillRectUnchecked(x, y, w, h int, c Cell) {
	for yy := y; yy < y+h; yy++ {
		row := b.pixels[yy*b.width+x : yy*b.width+x+w]
		fillCells(row, c)
	}
}

// DrawRect draws the rectangle outline, clipped at the edges.
func (b *Bitmap) DrawRect(x, y, w, h int, c Cell) {
	if w <= 0 || h <= 0 {
		return
	}
	for xx := x; xx < x+w; xx++ {
		b.Set(xx, y, c)
		b.Set(xx, y+h-1, c)
	}
	for yy := y; yy < y+h; yy++ {
		b.Set(x, yy, c)
		b.Set(x+w-1, yy, c)
	}
}

// DrawLine draws a straight line between two points using integer error
// accumulation, clipped at the edges.
func (b *Bitmap) DrawLine(x0, y0, x1, y1 int, c Cell) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		b.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawString writes s starting at (x, y) with the given colors. Wide runes
// occupy two cells; the spill cell keeps the colors with a blank rune so
// column accounting stays correct. Writes past the edges are clipped.
func (b *Bitmap) DrawString(x, y int, s string, fg, bg terminal.RGB) {
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		b.Set(x, y, Cell{R: r, Fg: fg, Bg: bg})
		if w == 2 {
			b.Set(x+1, y, Cell{R: ' ', Fg: fg, Bg: bg})
		}
		x += w
	}
}

// Clone returns a deep copy sharing no storage. The clone's shadow buffer
// is invalid (it has never painted).
func (b *Bitmap) Clone() *Bitmap {
	out := NewBitmap(b.width, b.height)
	copy(out.pixels, b.pixels)
	return out
}

// Equal reports whether both grids hold identical cells and dimensions.
func (b *Bitmap) Equal(other *Bitmap) bool {
	if b.width != other.width || b.height != other.height {
		return false
	}
	for i := range b.pixels {
		if b.pixels[i] != other.pixels[i] {
			return false
		}
	}
	return true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
