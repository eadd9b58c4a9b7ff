// Command termframe-demo runs an animated showcase of the toolkit: a
// bouncing block over a bordered canvas, key-driven cursor movement, and
// optional audio cues and frame recording.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/lixenwraith/termframe/app"
	"github.com/lixenwraith/termframe/audio"
	"github.com/lixenwraith/termframe/canvas"
	"github.com/lixenwraith/termframe/codec"
	"github.com/lixenwraith/termframe/config"
	"github.com/lixenwraith/termframe/loop"
	"github.com/lixenwraith/termframe/terminal"
)

func main() {
	cfgPath := flag.String("config", "", "path to a TOML config file")
	recordPath := flag.String("record", "", "record frames to this file")
	paint := flag.String("paint", "", "paint strategy: ansi or legacy")
	useTcell := flag.Bool("tcell", false, "render through tcell instead of the raw terminal")
	sound := flag.Bool("sound", false, "play audio cues")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			log.Fatalf("config: %v", err)
		}
	}
	if *paint != "" {
		cfg.Paint = *paint
	}
	if *sound {
		cfg.Sound = true
	}
	if *recordPath != "" {
		cfg.Record = config.Record{Enabled: true, Path: *recordPath}
	}

	if err := run(cfg, *useTcell); err != nil {
		log.Fatal(err)
	}
}

func run(cfg config.Config, useTcell bool) error {
	defer func() { app.HandleCrash(recover()) }()

	paintMode, err := cfg.PaintMode()
	if err != nil {
		return err
	}

	var driver terminal.Driver
	if useTcell {
		d, err := terminal.NewTcell()
		if err != nil {
			return err
		}
		defer d.Close()
		driver = d
	} else {
		d, err := terminal.New(terminal.DetectColorMode())
		if err != nil {
			return err
		}
		defer d.Close()
		driver = d
	}

	var provider audio.Provider = audio.NoOp{}
	if cfg.Sound {
		sp := audio.NewSpeaker()
		if err := sp.Init(); err != nil {
			// Non-fatal, the demo runs fine silent
			log.Printf("audio init failed: %v", err)
		} else {
			provider = sp
			defer sp.Close()
		}
	}

	var recorder *codec.Writer
	if cfg.Record.Enabled {
		f, err := os.Create(cfg.Record.Path)
		if err != nil {
			return err
		}
		defer f.Close()
		w, h := driver.Size()
		if recorder, err = codec.NewWriter(f, w, h); err != nil {
			return err
		}
	}

	a := app.New(driver, app.Options{
		TickInterval: cfg.TickInterval.Std(),
		KeyRepeatMin: cfg.KeyRepeatMin.Std(),
		ResizeQuiet:  cfg.ResizeQuiet.Std(),
		PaintMode:    paintMode,
		Sound:        provider,
		Recorder:     recorder,
		KeyCues:      cfg.Sound,
	})

	d := &demo{app: a, theme: cfg.Theme, sound: provider}
	a.OnFrame(d.draw)
	a.OnKey(d.handleKey)
	a.OnResize(func(w, h int) { d.clampCursor(w, h) })

	return a.Run()
}

// demo holds the showcase scene state. All fields are mutated on the loop
// goroutine only.
type demo struct {
	app   *app.App
	theme config.Theme
	sound audio.Provider

	frame          int
	ballX, ballY   int
	ballDX, ballDY int
	curX, curY     int
	paused         bool
}

func (d *demo) draw(b *canvas.Bitmap) error {
	d.frame++
	w, h := b.Width(), b.Height()
	fg := d.theme.Foreground.RGB()
	bg := d.theme.Background.RGB()
	accent := d.theme.Accent.RGB()

	b.Fill(canvas.Cell{R: ' ', Fg: fg, Bg: bg})
	b.DrawRect(0, 0, w, h, canvas.Cell{R: '#', Fg: accent, Bg: bg})
	b.DrawString(2, 0, " termframe demo ", bg, accent)
	b.DrawString(2, h-1, " q quit | space pause | arrows move ", fg, bg)

	if !d.paused && d.frame%2 == 0 {
		d.stepBall(w, h)
	}
	b.FillRect(d.ballX, d.ballY, 2, 1, canvas.Cell{R: '●', Fg: accent, Bg: bg})

	b.Set(d.curX, d.curY, canvas.Cell{R: '+', Fg: fg, Bg: bg, Underline: true})
	b.DrawString(2, 1, fmt.Sprintf("cycle %d", d.app.Loop().Cycle()), fg, bg)
	return nil
}

func (d *demo) stepBall(w, h int) {
	if d.ballDX == 0 && d.ballDY == 0 {
		d.ballX, d.ballY = w/2, h/2
		d.ballDX, d.ballDY = 1, 1
	}
	d.ballX += d.ballDX
	d.ballY += d.ballDY
	if d.ballX <= 1 || d.ballX >= w-3 {
		d.ballDX = -d.ballDX
		d.sound.Play(audio.CueNotify)
	}
	if d.ballY <= 1 || d.ballY >= h-2 {
		d.ballDY = -d.ballDY
	}
}

func (d *demo) handleKey(ev terminal.Event) error {
	switch {
	case ev.Key == terminal.KeyEscape, ev.Rune == 'q':
		return loop.ErrLoopStopped
	case ev.Rune == ' ':
		d.paused = !d.paused
	case ev.Key == terminal.KeyUp:
		d.curY--
	case ev.Key == terminal.KeyDown:
		d.curY++
	case ev.Key == terminal.KeyLeft:
		d.curX--
	case ev.Key == terminal.KeyRight:
		d.curX++
	default:
		d.sound.Play(audio.CueError)
	}
	w, h := d.app.Bitmap().Width(), d.app.Bitmap().Height()
	d.clampCursor(w, h)
	return nil
}

func (d *demo) clampCursor(w, h int) {
	if d.curX < 1 {
		d.curX = 1
	}
	if d.curX > w-2 {
		d.curX = w - 2
	}
	if d.curY < 1 {
		d.curY = 1
	}
	if d.curY > h-2 {
		d.curY = h - 2
	}
}
