package terminal

// ColorMode indicates terminal color capability
type ColorMode uint8

const (
	ColorMode256       ColorMode = iota // xterm-256 palette
	ColorModeTrueColor                  // 24-bit RGB
)

// RGB represents a 24-bit color
type RGB struct {
	R, G, B uint8
}

var (
	// RGBBlack is the zero value black color
	RGBBlack = RGB{0, 0, 0}

	// RGBWhite is full-intensity white
	RGBWhite = RGB{255, 255, 255}

	// DefaultFg is the conventional light-gray terminal foreground
	DefaultFg = RGB{204, 204, 204}

	// DefaultBg is the conventional terminal background
	DefaultBg = RGBBlack
)

// Equal returns true if colors match
func (c RGB) Equal(other RGB) bool {
	return c.R == other.R && c.G == other.G && c.B == other.B
}

// Color cube values for the 6x6x6 palette (indices 16-231)
var cubeValues = [6]uint8{0, 95, 135, 175, 215, 255}

// grayscaleStart is the first grayscale index (232-255 = 24 shades)
const grayscaleStart = 232

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// nearestCube maps a 0-255 channel value to the nearest cube level 0-5
func nearestCube(v uint8) int {
	best := 0
	bestDist := abs(int(v) - int(cubeValues[0]))
	for j := 1; j < 6; j++ {
		d := abs(int(v) - int(cubeValues[j]))
		if d < bestDist {
			bestDist = d
			best = j
		}
	}
	return best
}

// RGBTo256 finds the nearest 256-color palette index for an RGB value
func RGBTo256(c RGB) uint8 {
	ri, gi, bi := nearestCube(c.R), nearestCube(c.G), nearestCube(c.B)
	cr, cg, cb := cubeValues[ri], cubeValues[gi], cubeValues[bi]
	cubeDist := sqDist(c.R, cr) + sqDist(c.G, cg) + sqDist(c.B, cb)

	// Grayscale ramp: 8 + 10*i for i in 0..23
	gray := (int(c.R) + int(c.G) + int(c.B)) / 3
	gi24 := (gray - 8) / 10
	if gi24 < 0 {
		gi24 = 0
	}
	if gi24 > 23 {
		gi24 = 23
	}
	gv := uint8(8 + 10*gi24)
	grayDist := sqDist(c.R, gv) + sqDist(c.G, gv) + sqDist(c.B, gv)

	if grayDist < cubeDist {
		return uint8(grayscaleStart + gi24)
	}
	return uint8(16 + 36*ri + 6*gi + bi)
}

func sqDist(a, b uint8) int {
	d := int(a) - int(b)
	return d * d
}
