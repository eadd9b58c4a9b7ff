package terminal

import (
	"github.com/gdamore/tcell/v2"
)

// TcellDriver adapts a tcell.Screen to the Driver surface. It does not
// implement RawSink; the paint engine falls back to the direct strategy,
// which maps one-to-one onto tcell's SetContent model.
type TcellDriver struct {
	screen tcell.Screen

	curX, curY int
	style      tcell.Style

	eventCh chan Event
	stopCh  chan struct{}
}

// NewTcell initializes a tcell screen and wraps it as a Driver.
func NewTcell() (*TcellDriver, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.HideCursor()

	d := &TcellDriver{
		screen:  screen,
		style:   tcell.StyleDefault,
		eventCh: make(chan Event, 256),
		stopCh:  make(chan struct{}),
	}
	go d.pollEvents()
	return d, nil
}

// Close restores the terminal.
func (d *TcellDriver) Close() {
	close(d.stopCh)
	d.screen.Fini()
}

// Events returns converted tcell events.
func (d *TcellDriver) Events() <-chan Event { return d.eventCh }

func (d *TcellDriver) pollEvents() {
	for {
		select {
		case <-d.stopCh:
			return
		default:
		}
		ev := d.screen.PollEvent()
		if ev == nil {
			return
		}
		if converted, ok := convertTcellEvent(ev); ok {
			select {
			case d.eventCh <- converted:
			default:
			}
		}
	}
}

// Size returns the screen dimensions.
func (d *TcellDriver) Size() (int, int) { return d.screen.Size() }

// MoveCursor positions the write cursor.
func (d *TcellDriver) MoveCursor(x, y int) error {
	d.curX, d.curY = x, y
	return nil
}

// SetColors sets the style for subsequent WriteText calls.
func (d *TcellDriver) SetColors(fg, bg RGB, underline bool) error {
	d.style = tcell.StyleDefault.
		Foreground(tcell.NewRGBColor(int32(fg.R), int32(fg.G), int32(fg.B))).
		Background(tcell.NewRGBColor(int32(bg.R), int32(bg.G), int32(bg.B))).
		Underline(underline)
	return nil
}

// WriteText places s at the cursor, advancing one cell per rune.
func (d *TcellDriver) WriteText(s string) error {
	for _, r := range s {
		d.screen.SetContent(d.curX, d.curY, r, nil, d.style)
		d.curX++
	}
	return nil
}

// Clear erases the screen.
func (d *TcellDriver) Clear() error {
	d.screen.Clear()
	return nil
}

// Flush commits the frame.
func (d *TcellDriver) Flush() error {
	d.screen.Show()
	return nil
}

// convertTcellEvent maps tcell events onto the driver event type.
func convertTcellEvent(ev tcell.Event) (Event, bool) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		w, h := ev.Size()
		return Event{Type: EventResize, Width: w, Height: h}, true
	case *tcell.EventKey:
		out := Event{Type: EventKey, Modifiers: convertTcellMods(ev.Modifiers())}
		switch ev.Key() {
		case tcell.KeyRune:
			out.Key, out.Rune = KeyRune, ev.Rune()
		case tcell.KeyEnter:
			out.Key = KeyEnter
		case tcell.KeyEscape:
			out.Key = KeyEscape
		case tcell.KeyTab:
			out.Key = KeyTab
		case tcell.KeyBacktab:
			out.Key = KeyBacktab
		case tcell.KeyBackspace, tcell.KeyBackspace2:
			out.Key = KeyBackspace
		case tcell.KeyDelete:
			out.Key = KeyDelete
		case tcell.KeyUp:
			out.Key = KeyUp
		case tcell.KeyDown:
			out.Key = KeyDown
		case tcell.KeyLeft:
			out.Key = KeyLeft
		case tcell.KeyRight:
			out.Key = KeyRight
		case tcell.KeyHome:
			out.Key = KeyHome
		case tcell.KeyEnd:
			out.Key = KeyEnd
		case tcell.KeyPgUp:
			out.Key = KeyPageUp
		case tcell.KeyPgDn:
			out.Key = KeyPageDown
		case tcell.KeyInsert:
			out.Key = KeyInsert
		case tcell.KeyCtrlC:
			out.Key = KeyCtrlC
		case tcell.KeyCtrlQ:
			out.Key = KeyCtrlQ
		default:
			if ev.Key() >= tcell.KeyF1 && ev.Key() <= tcell.KeyF12 {
				out.Key = KeyF1 + Key(ev.Key()-tcell.KeyF1)
			} else {
				return Event{}, false
			}
		}
		return out, true
	}
	return Event{}, false
}

func convertTcellMods(m tcell.ModMask) Modifier {
	var out Modifier
	if m&tcell.ModShift != 0 {
		out |= ModShift
	}
	if m&tcell.ModAlt != 0 {
		out |= ModAlt
	}
	if m&tcell.ModCtrl != 0 {
		out |= ModCtrl
	}
	return out
}
