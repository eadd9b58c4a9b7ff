// Command termframe-play replays a recording made with the frame codec.
// It can follow a file that is still being written, seek with the arrow
// keys, and export any paused frame as an editable text sketch.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lixenwraith/termframe/app"
	"github.com/lixenwraith/termframe/canvas"
	"github.com/lixenwraith/termframe/codec"
	"github.com/lixenwraith/termframe/loop"
	"github.com/lixenwraith/termframe/terminal"
)

func main() {
	follow := flag.Bool("follow", false, "keep reading as the file grows")
	speed := flag.Float64("speed", 1.0, "playback speed multiplier")
	sketchPath := flag.String("sketch", "", "write the currently paused frame here on 's'")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <recording>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	if err := run(flag.Arg(0), *follow, *speed, *sketchPath); err != nil {
		log.Fatal(err)
	}
}

func run(path string, follow bool, speed float64, sketchPath string) error {
	defer func() { app.HandleCrash(recover()) }()
	if speed <= 0 {
		return fmt.Errorf("speed must be positive, got %v", speed)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var src io.Reader = f
	if follow {
		tr, err := newTailReader(f, path)
		if err != nil {
			return err
		}
		defer tr.Close()
		src = tr
	}

	frames := make(chan codec.VideoFrame, 16)
	loadErr := make(chan error, 1)
	sr, err := codec.NewStreamReader(src)
	if err != nil {
		return err
	}
	go loadFrames(sr, frames, loadErr)

	driver, err := terminal.New(terminal.DetectColorMode())
	if err != nil {
		return err
	}
	defer driver.Close()

	a := app.New(driver, app.Options{})
	p := &player{
		video:      codec.NewVideo(sr.Duration()),
		frames:     frames,
		loadErr:    loadErr,
		speed:      speed,
		sketchPath: sketchPath,
		started:    time.Now(),
	}
	a.OnFrame(p.draw)
	a.OnKey(p.handleKey)
	return a.Run()
}

// loadFrames materializes the stream on its own goroutine; the player
// loop drains the channel so the video is only ever mutated there.
func loadFrames(sr *codec.StreamReader, frames chan<- codec.VideoFrame, loadErr chan<- error) {
	for {
		f, err := sr.Next()
		if err != nil {
			loadErr <- err
			close(frames)
			return
		}
		if f == nil {
			close(frames)
			return
		}
		frames <- codec.VideoFrame{Timestamp: f.Timestamp(), Bitmap: sr.Bitmap().Clone()}
	}
}

type player struct {
	video      *codec.Video
	frames     <-chan codec.VideoFrame
	loadErr    <-chan error
	speed      float64
	sketchPath string

	started time.Time
	offset  time.Duration // Seek offset added to wall-clock playback time
	idx     int
	paused  bool
	pauseAt time.Duration
	done    bool
	status  string
}

func (p *player) drain() error {
	for {
		select {
		case fr, ok := <-p.frames:
			if !ok {
				select {
				case err := <-p.loadErr:
					return err
				default:
				}
				if !p.video.Complete() {
					p.video.MarkComplete()
				}
				return nil
			}
			p.video.Append(fr.Timestamp, fr.Bitmap)
		default:
			return nil
		}
	}
}

func (p *player) position() time.Duration {
	if p.paused {
		return p.pauseAt
	}
	elapsed := time.Duration(float64(time.Since(p.started)) * p.speed)
	return elapsed + p.offset
}

func (p *player) draw(b *canvas.Bitmap) error {
	if err := p.drain(); err != nil {
		return err
	}

	pos := p.position()
	idx := p.video.Seek(pos, p.idx)

	b.Fill(canvas.DefaultCell)
	switch {
	case idx < 0 && p.video.Len() == 0:
		b.DrawString(1, 1, "loading...", terminal.DefaultFg, terminal.DefaultBg)
	case idx < 0:
		// Playback caught up with loading; hold the last frame
		idx = p.video.Len() - 1
		fallthrough
	default:
		if idx < p.idx {
			// Seek scans forward only; a backward jump restarts the scan
			idx = p.video.Seek(pos, 0)
		}
		if idx >= 0 {
			p.idx = idx
			b.Compose(p.video.Frame(idx).Bitmap, 0, 0, canvas.CompositeOver, 1)
		}
	}

	if p.video.Complete() && !p.done && pos > p.video.Duration() {
		p.done = true
	}
	p.drawStatus(b, pos)
	return nil
}

func (p *player) drawStatus(b *canvas.Bitmap, pos time.Duration) {
	state := "playing"
	switch {
	case p.paused:
		state = "paused"
	case p.done:
		state = "end"
	case !p.video.Complete():
		state = fmt.Sprintf("loading %3.0f%%", p.video.Progress()*100)
	}
	line := fmt.Sprintf(" %s  %v / %v  [space] pause  [</>] seek  [q] quit %s",
		state, pos.Round(time.Second), p.video.Duration().Round(time.Second), p.status)
	b.DrawString(0, b.Height()-1, line, terminal.RGBBlack, terminal.RGBWhite)
}

func (p *player) handleKey(ev terminal.Event) error {
	switch {
	case ev.Rune == 'q', ev.Key == terminal.KeyEscape:
		return loop.ErrLoopStopped
	case ev.Rune == ' ':
		p.togglePause()
	case ev.Key == terminal.KeyLeft, ev.Rune == '<':
		p.seekBy(-5 * time.Second)
	case ev.Key == terminal.KeyRight, ev.Rune == '>':
		p.seekBy(5 * time.Second)
	case ev.Rune == 's':
		p.exportSketch()
	}
	return nil
}

func (p *player) togglePause() {
	if p.paused {
		p.offset = p.pauseAt
		p.started = time.Now()
		p.paused = false
		p.done = false
		return
	}
	p.pauseAt = p.position()
	p.paused = true
}

func (p *player) seekBy(d time.Duration) {
	target := p.position() + d
	if target < 0 {
		target = 0
	}
	if p.paused {
		p.pauseAt = target
	} else {
		p.offset = target
		p.started = time.Now()
	}
	p.done = false
}

func (p *player) exportSketch() {
	if p.sketchPath == "" || p.idx >= p.video.Len() || p.video.Len() == 0 {
		return
	}
	s, err := codec.FormatSketch(p.video.Frame(p.idx).Bitmap)
	if err == nil {
		err = os.WriteFile(p.sketchPath, []byte(s), 0o644)
	}
	if err != nil {
		p.status = fmt.Sprintf("sketch: %v", err)
		return
	}
	p.status = "sketch saved"
}

// tailReader turns EOF into a wait for the file to grow, so a follow-mode
// stream behaves like a pipe that never closes.
type tailReader struct {
	f       *os.File
	watcher *fsnotify.Watcher
	closed  chan struct{}
}

func newTailReader(f *os.File, path string) (*tailReader, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}
	return &tailReader{f: f, watcher: w, closed: make(chan struct{})}, nil
}

func (t *tailReader) Read(p []byte) (int, error) {
	for {
		n, err := t.f.Read(p)
		if n > 0 || !errors.Is(err, io.EOF) {
			return n, err
		}
		select {
		case _, ok := <-t.watcher.Events:
			if !ok {
				return 0, io.EOF
			}
		case err, ok := <-t.watcher.Errors:
			if ok && err != nil {
				return 0, err
			}
			return 0, io.EOF
		case <-t.closed:
			return 0, io.EOF
		case <-time.After(time.Second):
			// Poll fallback for filesystems without change events
		}
	}
}

func (t *tailReader) Close() error {
	close(t.closed)
	return t.watcher.Close()
}
