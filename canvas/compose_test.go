package canvas

import (
	"testing"

	"github.com/lixenwraith/termframe/terminal"
)

func TestComposeOver(t *testing.T) {
	dst := NewBitmap(6, 6)
	src := NewBitmap(2, 2)
	src.Fill(Cell{R: 's', Fg: red, Bg: blue})

	dst.Compose(src, 2, 3, CompositeOver, 1)

	if got := cellAt(t, dst, 2, 3); got.R != 's' {
		t.Errorf("composed cell = %+v, want source copy", got)
	}
	if got := cellAt(t, dst, 1, 3); got != DefaultCell {
		t.Errorf("cell left of overlay = %+v, want untouched", got)
	}
}

func TestComposeClipsOffGrid(t *testing.T) {
	dst := NewBitmap(4, 4)
	src := NewBitmap(3, 3)
	src.Fill(Cell{R: 's', Fg: red, Bg: blue})

	dst.Compose(src, -2, -2, CompositeOver, 1)
	dst.Compose(src, 3, 3, CompositeOver, 1)

	if got := cellAt(t, dst, 0, 0).R; got != 's' {
		t.Errorf("cell (0,0) = %q, want clipped overlay corner", got)
	}
	if got := cellAt(t, dst, 3, 3).R; got != 's' {
		t.Errorf("cell (3,3) = %q, want clipped overlay corner", got)
	}
	if got := cellAt(t, dst, 1, 2); got != DefaultCell {
		t.Errorf("cell (1,2) = %+v, want untouched", got)
	}
}

func TestComposeBlendBackgroundKeepsRune(t *testing.T) {
	dst := NewBitmap(2, 2)
	dst.Fill(Cell{R: 'd', Fg: red, Bg: terminal.RGBBlack})
	src := NewBitmap(2, 2)
	src.Fill(Cell{R: 's', Fg: blue, Bg: terminal.RGBWhite})

	dst.Compose(src, 0, 0, CompositeBlendBackground, 0.5)

	got := cellAt(t, dst, 0, 0)
	if got.R != 'd' || got.Fg != red {
		t.Errorf("rune/fg changed by background blend: %+v", got)
	}
	if got.Bg == terminal.RGBBlack || got.Bg == terminal.RGBWhite {
		t.Errorf("bg = %+v, want midpoint of black and white", got.Bg)
	}
}

func TestComposeBlendAlphaEndpoints(t *testing.T) {
	dst := NewBitmap(1, 1)
	dst.Fill(Cell{R: 'd', Fg: red, Bg: red})
	src := NewBitmap(1, 1)
	src.Fill(Cell{R: 's', Fg: blue, Bg: blue})

	zero := dst.Clone()
	zero.Compose(src, 0, 0, CompositeBlendVisible, 0)
	if got := cellAt(t, zero, 0, 0); got.Fg != red || got.Bg != red {
		t.Errorf("alpha 0 blend moved colors: %+v", got)
	}

	one := dst.Clone()
	one.Compose(src, 0, 0, CompositeBlendVisible, 1)
	if got := cellAt(t, one, 0, 0); got.Fg != blue || got.Bg != blue {
		t.Errorf("alpha 1 blend did not reach source colors: %+v", got)
	}
}

func TestComposeBlendVisibleTakesSourceRune(t *testing.T) {
	dst := NewBitmap(1, 1)
	dst.Fill(Cell{R: 'd', Fg: red, Bg: red})
	src := NewBitmap(1, 1)
	src.Fill(Cell{R: 's', Fg: blue, Bg: blue, Underline: true})

	dst.Compose(src, 0, 0, CompositeBlendVisible, 0.5)
	got := cellAt(t, dst, 0, 0)
	if got.R != 's' || !got.Underline {
		t.Errorf("visible blend kept destination rune/underline: %+v", got)
	}
}
