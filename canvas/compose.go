package canvas

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/lixenwraith/termframe/terminal"
)

// CompositeMode controls how Compose merges source cells onto the grid.
type CompositeMode uint8

const (
	// CompositeOver copies source cells verbatim.
	CompositeOver CompositeMode = iota

	// CompositeBlendBackground keeps the destination rune and foreground
	// and blends only the backgrounds.
	CompositeBlendBackground

	// CompositeBlendVisible takes the source rune and blends both colors,
	// so the source shows through tinted by the destination.
	CompositeBlendVisible
)

// Compose merges src onto the grid at (offX, offY). Cells falling outside
// the grid are clipped. alpha in [0,1] weights the source contribution for
// the blend modes; CompositeOver ignores it.
func (b *Bitmap) Compose(src *Bitmap, offX, offY int, mode CompositeMode, alpha float64) {
	if alpha < 0 {
		alpha = 0
	} else if alpha > 1 {
		alpha = 1
	}
	for sy := 0; sy < src.height; sy++ {
		dy := sy + offY
		if dy < 0 || dy >= b.height {
			continue
		}
		for sx := 0; sx < src.width; sx++ {
			dx := sx + offX
			if dx < 0 || dx >= b.width {
				continue
			}
			s := src.pixels[sy*src.width+sx]
			d := &b.pixels[dy*b.width+dx]
			switch mode {
			case CompositeOver:
				*d = s
			case CompositeBlendBackground:
				d.Bg = blendRGB(d.Bg, s.Bg, alpha)
			case CompositeBlendVisible:
				d.R = s.R
				d.Underline = s.Underline
				d.Fg = blendRGB(d.Fg, s.Fg, alpha)
				d.Bg = blendRGB(d.Bg, s.Bg, alpha)
			}
		}
	}
}

// blendRGB interpolates from a toward b in linear RGB space. t=0 keeps a,
// t=1 yields b.
func blendRGB(a, b terminal.RGB, t float64) terminal.RGB {
	ca := colorful.Color{R: float64(a.R) / 255, G: float64(a.G) / 255, B: float64(a.B) / 255}
	cb := colorful.Color{R: float64(b.R) / 255, G: float64(b.G) / 255, B: float64(b.B) / 255}
	m := ca.BlendRgb(cb, t).Clamped()
	return terminal.RGB{
		R: uint8(m.R*255 + 0.5),
		G: uint8(m.G*255 + 0.5),
		B: uint8(m.B*255 + 0.5),
	}
}
