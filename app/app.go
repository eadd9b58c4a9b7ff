// Package app ties the pieces together: a scheduler cycle that drains
// input, debounces resizes, repaints the canvas differentially, and
// optionally records every painted frame.
package app

import (
	"time"

	"github.com/lixenwraith/termframe/audio"
	"github.com/lixenwraith/termframe/canvas"
	"github.com/lixenwraith/termframe/codec"
	"github.com/lixenwraith/termframe/loop"
	"github.com/lixenwraith/termframe/terminal"
)

const (
	defaultTickInterval = 16 * time.Millisecond
	defaultKeyRepeatMin = 35 * time.Millisecond
	defaultResizeQuiet  = 250 * time.Millisecond
)

// Options configures an App. Zero values take the defaults above.
type Options struct {
	TickInterval time.Duration
	KeyRepeatMin time.Duration
	ResizeQuiet  time.Duration
	PaintMode    canvas.PaintMode
	Clock        loop.Clock
	Sound        audio.Provider
	Recorder     *codec.Writer
	KeyCues      bool // Play an audio cue per dispatched key
}

func (o *Options) fill() {
	if o.TickInterval <= 0 {
		o.TickInterval = defaultTickInterval
	}
	if o.KeyRepeatMin <= 0 {
		o.KeyRepeatMin = defaultKeyRepeatMin
	}
	if o.ResizeQuiet <= 0 {
		o.ResizeQuiet = defaultResizeQuiet
	}
	if o.Clock == nil {
		o.Clock = loop.SystemClock{}
	}
	if o.Sound == nil {
		o.Sound = audio.NoOp{}
	}
}

// App runs a canvas-backed application over one driver and one loop.
type App struct {
	opts   Options
	driver terminal.Driver
	events <-chan terminal.Event
	loop   *loop.Loop
	bitmap *canvas.Bitmap

	onKey    func(terminal.Event) error
	onFrame  func(*canvas.Bitmap) error
	onResize func(width, height int)

	// Key repeat throttle
	lastKey     terminal.Key
	lastRune    rune
	lastKeyTime time.Time
	keySeen     bool

	// Resize debounce
	resizing   bool
	resizeW    int
	resizeH    int
	quietSince time.Time

	started time.Time
}

// New builds an app over d. If d exposes an event channel it is drained
// every cycle.
func New(d terminal.Driver, opts Options) *App {
	opts.fill()
	w, h := d.Size()
	b := canvas.NewBitmap(w, h)
	b.SetPaintMode(opts.PaintMode)

	a := &App{
		opts:   opts,
		driver: d,
		loop:   loop.New(opts.Clock, opts.TickInterval),
		bitmap: b,
	}
	if src, ok := d.(terminal.EventSource); ok {
		a.events = src.Events()
	}
	a.loop.SetHostPoller(a.pollHost)
	a.loop.Subscribe(loop.HookCycleEnd, "paint", a.endOfCycle)
	return a
}

// Loop exposes the scheduler for enqueueing work and timers.
func (a *App) Loop() *loop.Loop { return a.loop }

// Bitmap is the canvas painted at the end of every cycle. Only mutate it
// from loop work or the OnFrame hook.
func (a *App) Bitmap() *canvas.Bitmap { return a.bitmap }

// OnKey installs the key handler. Dispatch happens as next-cycle work so
// keys interleave with other queued work in order.
func (a *App) OnKey(fn func(terminal.Event) error) { a.onKey = fn }

// OnFrame installs a hook that draws onto the bitmap before each paint.
func (a *App) OnFrame(fn func(*canvas.Bitmap) error) { a.onFrame = fn }

// OnResize installs a hook fired after a resize burst settles and the
// bitmap has been reallocated.
func (a *App) OnResize(fn func(width, height int)) { a.onResize = fn }

// Run drives the loop on the calling goroutine until stopped.
func (a *App) Run() error {
	a.started = a.opts.Clock.Now()
	err := a.loop.Run()
	if a.opts.Recorder != nil {
		if ferr := a.opts.Recorder.Finish(); err == nil {
			err = ferr
		}
	}
	return err
}

// Start runs the app on its own goroutine.
func (a *App) Start() *loop.Future {
	fut, settle := loop.NewPromise()
	go func() {
		settle(a.Run())
	}()
	return fut
}

// Stop requests cooperative shutdown.
func (a *App) Stop() { a.loop.Stop() }

// pollHost is the per-cycle host input step: resize detection with
// debounce, then key drain with repeat throttling.
func (a *App) pollHost() error {
	a.pollResize()
	return a.drainEvents()
}

func (a *App) pollResize() {
	w, h := a.driver.Size()
	now := a.opts.Clock.Now()

	if !a.resizing {
		if w == a.bitmap.Width() && h == a.bitmap.Height() {
			return
		}
		// A burst is starting; blank the screen once and wait it out
		_ = a.driver.Clear()
		a.resizing = true
		a.resizeW, a.resizeH = w, h
		a.quietSince = now
		return
	}

	if w != a.resizeW || h != a.resizeH {
		a.resizeW, a.resizeH = w, h
		a.quietSince = now
		return
	}
	if now.Sub(a.quietSince) < a.opts.ResizeQuiet {
		return
	}

	a.resizing = false
	a.bitmap.Resize(w, h)
	if a.onResize != nil {
		a.onResize(w, h)
	}
}

func (a *App) drainEvents() error {
	if a.events == nil {
		return nil
	}
	for {
		select {
		case ev := <-a.events:
			if err := a.handleEvent(ev); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (a *App) handleEvent(ev terminal.Event) error {
	switch ev.Type {
	case terminal.EventKey:
		if !a.shouldDispatch(ev, a.opts.Clock.Now()) {
			return nil
		}
		if a.opts.KeyCues {
			a.opts.Sound.Play(audio.CueKey)
		}
		if a.onKey != nil {
			a.loop.Enqueue("key", func() error { return a.onKey(ev) })
		}
	case terminal.EventResize:
		// Sizes are re-read from the driver by pollResize; the event is
		// just a wakeup
	case terminal.EventError:
		return ev.Err
	case terminal.EventClosed:
		return loop.ErrLoopStopped
	}
	return nil
}

// shouldDispatch applies key-repeat throttling: an identical key within
// the minimum interval is suppressed.
func (a *App) shouldDispatch(ev terminal.Event, now time.Time) bool {
	same := a.keySeen && ev.Key == a.lastKey && ev.Rune == a.lastRune
	if same && now.Sub(a.lastKeyTime) < a.opts.KeyRepeatMin {
		return false
	}
	a.keySeen = true
	a.lastKey = ev.Key
	a.lastRune = ev.Rune
	a.lastKeyTime = now
	return true
}

func (a *App) endOfCycle() error {
	if a.resizing {
		return nil
	}
	if a.onFrame != nil {
		if err := a.onFrame(a.bitmap); err != nil {
			return err
		}
	}
	if err := a.bitmap.Paint(a.driver); err != nil {
		return err
	}
	if a.opts.Recorder != nil {
		ts := a.opts.Clock.Now().Sub(a.started)
		return a.opts.Recorder.WriteFrame(a.bitmap, ts, false)
	}
	return nil
}
