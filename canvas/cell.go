// Package canvas implements the retained cell grid and the differential
// paint engine that turns grid mutations into minimal terminal writes.
package canvas

import (
	"github.com/lixenwraith/termframe/terminal"
)

// Cell is one character-sized position with its own styling. It is a
// comparable value type; equality is structural.
type Cell struct {
	R         rune
	Fg, Bg    terminal.RGB
	Underline bool
}

// DefaultCell is the untouched-cell sentinel: a space in the default
// foreground on the default background.
var DefaultCell = Cell{R: ' ', Fg: terminal.DefaultFg, Bg: terminal.DefaultBg}
