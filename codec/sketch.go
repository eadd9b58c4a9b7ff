package codec

import (
	"fmt"
	"strings"

	"github.com/lixenwraith/termframe/canvas"
	"github.com/lixenwraith/termframe/terminal"
)

// Sketches are a hand-editable bitmap format: a character block framed top
// and bottom by '#' lines two wider than the image, then optional palette
// entries, then an optional second framed block of palette indices giving
// each cell its colors.
//
//	#########
//	# hello #
//	#########
//	0=#cccccc|#000000
//	1=#ff0000|#000000
//	#########
//	# 11111 #
//	#########
//
// Without an index block every cell takes the first palette entry; without
// a palette, white on black.

const sketchDigits = "0123456789abcdefghijklmnopqrstuvwxyz"

type sketchColors struct {
	fg, bg terminal.RGB
}

// ParseSketch decodes a sketch into a bitmap.
func ParseSketch(s string) (*canvas.Bitmap, error) {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")

	chars, rest, err := parseSketchBlock(lines)
	if err != nil {
		return nil, err
	}
	h := len(chars)
	w := len(chars[0])

	palette, rest, err := parseSketchPalette(rest)
	if err != nil {
		return nil, err
	}
	if len(palette) == 0 {
		palette = []sketchColors{{fg: terminal.RGBWhite, bg: terminal.RGBBlack}}
	}

	var indices [][]rune
	if hasSketchBlock(rest) {
		indices, _, err = parseSketchBlock(rest)
		if err != nil {
			return nil, err
		}
		if len(indices) != h || len(indices[0]) != w {
			return nil, fmt.Errorf("%w: index block is %dx%d, image is %dx%d",
				ErrFormat, len(indices[0]), len(indices), w, h)
		}
	}

	b := canvas.NewBitmap(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			col := palette[0]
			if indices != nil {
				d := indices[y][x]
				if d != ' ' {
					n := strings.IndexRune(sketchDigits, d)
					if n < 0 || n >= len(palette) {
						return nil, fmt.Errorf("%w: palette index %q at (%d,%d)", ErrFormat, d, x, y)
					}
					col = palette[n]
				}
			}
			b.SetUnchecked(x, y, canvas.Cell{R: chars[y][x], Fg: col.fg, Bg: col.bg})
		}
	}
	return b, nil
}

// parseSketchBlock reads one '#'-framed block, returning its rows as rune
// grids and the remaining lines.
func parseSketchBlock(lines []string) ([][]rune, []string, error) {
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i >= len(lines) || !isFrameLine(lines[i]) {
		return nil, nil, fmt.Errorf("%w: sketch missing '#' frame line", ErrFormat)
	}
	width := len([]rune(lines[i])) - 2
	if width < 1 {
		return nil, nil, fmt.Errorf("%w: sketch frame too narrow", ErrFormat)
	}
	i++

	var rows [][]rune
	for ; i < len(lines); i++ {
		if isFrameLine(lines[i]) {
			if len(rows) == 0 {
				return nil, nil, fmt.Errorf("%w: sketch has no rows", ErrFormat)
			}
			return rows, lines[i+1:], nil
		}
		rs := []rune(lines[i])
		if len(rs) < 2 || rs[0] != '#' || rs[len(rs)-1] != '#' {
			return nil, nil, fmt.Errorf("%w: sketch row %q not '#'-bounded", ErrFormat, lines[i])
		}
		row := make([]rune, width)
		for x := range row {
			row[x] = ' '
			if x+1 < len(rs)-1 {
				row[x] = rs[x+1]
			}
		}
		rows = append(rows, row)
	}
	return nil, nil, fmt.Errorf("%w: sketch frame never closed", ErrFormat)
}

func isFrameLine(line string) bool {
	line = strings.TrimRight(line, " \t")
	if len(line) < 3 {
		return false
	}
	for _, r := range line {
		if r != '#' {
			return false
		}
	}
	return true
}

func hasSketchBlock(lines []string) bool {
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		return isFrameLine(line)
	}
	return false
}

// parseSketchPalette reads contiguous "N=#rrggbb|#rrggbb" lines.
func parseSketchPalette(lines []string) ([]sketchColors, []string, error) {
	var palette []sketchColors
	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if !strings.ContainsRune(line, '=') || isFrameLine(line) {
			break
		}
		eq := strings.IndexByte(line, '=')
		idx := strings.IndexRune(sketchDigits, rune(line[0]))
		if eq != 1 || idx != len(palette) {
			return nil, nil, fmt.Errorf("%w: palette entry %q out of order", ErrFormat, line)
		}
		pipe := strings.IndexByte(line, '|')
		if pipe < 0 {
			return nil, nil, fmt.Errorf("%w: palette entry %q needs fg|bg", ErrFormat, line)
		}
		fg, err := parseHexColor(line[eq+1 : pipe])
		if err != nil {
			return nil, nil, err
		}
		bg, err := parseHexColor(line[pipe+1:])
		if err != nil {
			return nil, nil, err
		}
		palette = append(palette, sketchColors{fg: fg, bg: bg})
	}
	return palette, lines[i:], nil
}

// FormatSketch encodes b as a sketch. The palette is built in scan order;
// the index block is omitted when a single palette entry covers the image.
func FormatSketch(b *canvas.Bitmap) (string, error) {
	w, h := b.Width(), b.Height()
	frame := strings.Repeat("#", w+2)

	var palette []sketchColors
	index := map[sketchColors]int{}
	grid := make([][]int, h)
	for y := 0; y < h; y++ {
		grid[y] = make([]int, w)
		for x := 0; x < w; x++ {
			c := b.AtUnchecked(x, y)
			key := sketchColors{fg: c.Fg, bg: c.Bg}
			n, ok := index[key]
			if !ok {
				n = len(palette)
				if n >= len(sketchDigits) {
					return "", fmt.Errorf("%w: more than %d distinct color pairs", ErrFormat, len(sketchDigits))
				}
				index[key] = n
				palette = append(palette, key)
			}
			grid[y][x] = n
		}
	}

	var sb strings.Builder
	sb.WriteString(frame)
	sb.WriteByte('\n')
	for y := 0; y < h; y++ {
		sb.WriteByte('#')
		for x := 0; x < w; x++ {
			sb.WriteRune(b.AtUnchecked(x, y).R)
		}
		sb.WriteString("#\n")
	}
	sb.WriteString(frame)
	sb.WriteByte('\n')

	for i, p := range palette {
		fmt.Fprintf(&sb, "%c=%s|%s\n", sketchDigits[i], hexColor(p.fg), hexColor(p.bg))
	}

	if len(palette) > 1 {
		sb.WriteString(frame)
		sb.WriteByte('\n')
		for y := 0; y < h; y++ {
			sb.WriteByte('#')
			for x := 0; x < w; x++ {
				sb.WriteByte(sketchDigits[grid[y][x]])
			}
			sb.WriteString("#\n")
		}
		sb.WriteString(frame)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}
