package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/lixenwraith/termframe/canvas"
	"github.com/lixenwraith/termframe/codec"
	"github.com/lixenwraith/termframe/loop"
	"github.com/lixenwraith/termframe/terminal"
)

var red = terminal.RGB{R: 255}

func newTestApp(v *terminal.Virtual, opts Options) (*App, *loop.MockClock) {
	clock := loop.NewMockClock()
	opts.Clock = clock
	if opts.TickInterval == 0 {
		opts.TickInterval = 16 * time.Millisecond
	}
	return New(v, opts), clock
}

// stopAfter ends the app after n cycles.
func stopAfter(a *App, n int, atCycle func(int)) {
	count := 0
	a.Loop().Subscribe(loop.HookCycleEnd, "test driver", func() error {
		count++
		if atCycle != nil {
			atCycle(count)
		}
		if count >= n {
			return loop.ErrLoopStopped
		}
		return nil
	})
}

func keyEvent(r rune) terminal.Event {
	return terminal.Event{Type: terminal.EventKey, Key: terminal.KeyRune, Rune: r}
}

func TestShouldDispatchThrottle(t *testing.T) {
	v := terminal.NewVirtual(10, 4)
	a, clock := newTestApp(v, Options{KeyRepeatMin: 35 * time.Millisecond})

	now := clock.Now()
	if !a.shouldDispatch(keyEvent('a'), now) {
		t.Fatal("first key suppressed")
	}
	if a.shouldDispatch(keyEvent('a'), now.Add(10*time.Millisecond)) {
		t.Error("repeat within interval dispatched")
	}
	if !a.shouldDispatch(keyEvent('b'), now.Add(11*time.Millisecond)) {
		t.Error("different key suppressed")
	}
	if !a.shouldDispatch(keyEvent('b'), now.Add(11*time.Millisecond+35*time.Millisecond)) {
		t.Error("repeat beyond interval suppressed")
	}
}

func TestKeyThrottleEndToEnd(t *testing.T) {
	v := terminal.NewVirtual(20, 6)
	a, _ := newTestApp(v, Options{KeyRepeatMin: 35 * time.Millisecond})

	keys := 0
	a.OnKey(func(terminal.Event) error {
		keys++
		return nil
	})

	// Two identical keys in the same cycle: one dispatch
	v.PostEvent(keyEvent('a'))
	v.PostEvent(keyEvent('a'))

	stopAfter(a, 10, func(cycle int) {
		// ~64ms of mock time later the same key repeats legitimately
		if cycle == 4 {
			v.PostEvent(keyEvent('a'))
		}
	})
	if err := a.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if keys != 2 {
		t.Errorf("dispatched keys = %d, want 2", keys)
	}
}

func TestKeyDispatchIsNextCycleWork(t *testing.T) {
	v := terminal.NewVirtual(10, 4)
	a, _ := newTestApp(v, Options{})

	var dispatchCycle, pollCycle uint64
	a.OnKey(func(terminal.Event) error {
		dispatchCycle = a.Loop().Cycle()
		return nil
	})
	v.PostEvent(keyEvent('x'))

	stopAfter(a, 6, func(cycle int) {
		if cycle == 1 {
			pollCycle = a.Loop().Cycle()
		}
	})
	if err := a.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if dispatchCycle != pollCycle+1 {
		t.Errorf("key handled in cycle %d, polled in %d; want next cycle", dispatchCycle, pollCycle)
	}
}

func TestEndOfCyclePaints(t *testing.T) {
	v := terminal.NewVirtual(12, 4)
	a, _ := newTestApp(v, Options{})

	a.OnFrame(func(b *canvas.Bitmap) error {
		b.DrawString(1, 1, "frame", red, terminal.DefaultBg)
		return nil
	})
	stopAfter(a, 3, nil)
	if err := a.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := v.Cell(1, 1); got.R != 'f' {
		t.Errorf("screen (1,1) = %q, want painted frame text", got.R)
	}
}

func TestResizeDebounce(t *testing.T) {
	v := terminal.NewVirtual(20, 6)
	a, _ := newTestApp(v, Options{ResizeQuiet: 100 * time.Millisecond})

	resizes := 0
	var gotW, gotH int
	a.OnResize(func(w, h int) {
		resizes++
		gotW, gotH = w, h
	})

	var midBurstSize int
	stopAfter(a, 20, func(cycle int) {
		switch cycle {
		case 2:
			v.SetSize(30, 6)
		case 3:
			// Burst continues; quiet timer must restart
			v.SetSize(34, 8)
		case 6:
			midBurstSize = a.Bitmap().Width()
		}
	})
	if err := a.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if midBurstSize != 20 {
		t.Errorf("bitmap resized mid-burst to width %d", midBurstSize)
	}
	if resizes != 1 {
		t.Fatalf("resize callbacks = %d, want 1 per settled burst", resizes)
	}
	if gotW != 34 || gotH != 8 {
		t.Errorf("settled size = %dx%d, want 34x8", gotW, gotH)
	}
	if a.Bitmap().Width() != 34 || a.Bitmap().Height() != 8 {
		t.Errorf("bitmap = %dx%d after burst", a.Bitmap().Width(), a.Bitmap().Height())
	}
	if v.Cleared == 0 {
		t.Error("screen never cleared during resize burst")
	}
}

func TestEventClosedStopsCleanly(t *testing.T) {
	v := terminal.NewVirtual(10, 4)
	a, _ := newTestApp(v, Options{})
	v.PostEvent(terminal.Event{Type: terminal.EventClosed})
	if err := a.Run(); err != nil {
		t.Fatalf("Run after input close = %v, want nil", err)
	}
	if a.Loop().State() != loop.StateStopped {
		t.Errorf("state = %v, want stopped", a.Loop().State())
	}
}

func TestEventErrorPropagates(t *testing.T) {
	v := terminal.NewVirtual(10, 4)
	a, _ := newTestApp(v, Options{})
	boom := errors.New("tty gone")
	v.PostEvent(terminal.Event{Type: terminal.EventError, Err: boom})
	if err := a.Run(); !errors.Is(err, boom) {
		t.Fatalf("Run = %v, want tty error", err)
	}
}

// memSeeker is a minimal in-memory io.WriteSeeker for recording tests.
type memSeeker struct {
	buf []byte
	pos int
}

func (m *memSeeker) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	copy(m.buf[m.pos:], p)
	m.pos += len(p)
	return len(p), nil
}

func (m *memSeeker) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		m.pos = int(offset)
	case io.SeekCurrent:
		m.pos += int(offset)
	case io.SeekEnd:
		m.pos = len(m.buf) + int(offset)
	}
	if m.pos < 0 {
		return 0, fmt.Errorf("seek to %d", m.pos)
	}
	return int64(m.pos), nil
}

func TestRecordingEndToEnd(t *testing.T) {
	v := terminal.NewVirtual(8, 4)
	ms := &memSeeker{}
	rec, err := codec.NewWriter(ms, 8, 4)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	a, _ := newTestApp(v, Options{Recorder: rec})
	tick := 0
	a.OnFrame(func(b *canvas.Bitmap) error {
		tick++
		b.DrawString(0, 0, fmt.Sprintf("t%02d", tick), red, terminal.DefaultBg)
		return nil
	})
	stopAfter(a, 5, nil)
	if err := a.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	video, err := codec.ReadAll(bytes.NewReader(ms.buf), nil)
	if err != nil {
		t.Fatalf("ReadAll of recording: %v", err)
	}
	if video.Len() != 5 {
		t.Fatalf("recorded frames = %d, want one per drawing cycle", video.Len())
	}
	if video.Duration() <= 0 {
		t.Error("duration header not finalized by Finish")
	}
	last := video.Frame(video.Len() - 1).Bitmap
	if c, _ := last.At(1, 0); c.R != '0' {
		t.Errorf("last frame cell (1,0) = %q, want '0' of t05", c.R)
	}
}

func TestUnchangedFramesNotRecorded(t *testing.T) {
	v := terminal.NewVirtual(8, 4)
	ms := &memSeeker{}
	rec, err := codec.NewWriter(ms, 8, 4)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	a, _ := newTestApp(v, Options{Recorder: rec})
	a.OnFrame(func(b *canvas.Bitmap) error {
		b.DrawString(0, 0, "static", red, terminal.DefaultBg)
		return nil
	})
	stopAfter(a, 6, nil)
	if err := a.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if rec.Frames() != 1 {
		t.Errorf("recorded frames = %d for static content, want 1", rec.Frames())
	}
}
