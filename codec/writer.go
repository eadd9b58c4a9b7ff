package codec

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/lixenwraith/termframe/canvas"
)

// durationDigits is the fixed width of the duration header, wide enough
// for any int64 nanosecond count. The placeholder written at Start is
// overwritten in place by Finish once the true duration is known.
const durationDigits = 19

// Writer appends encoded frames to a seekable stream. The first frame is
// always a raw snapshot; later frames are diffs unless more than half the
// cells changed, the grid was resized, or the caller forces a snapshot.
type Writer struct {
	ws       io.WriteSeeker
	last     *canvas.Bitmap
	lastTS   time.Duration
	frames   int
	finished bool
}

// NewWriter writes the stream header for a width x height recording and
// returns a writer positioned for the first frame.
func NewWriter(ws io.WriteSeeker, width, height int) (*Writer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: recording size %dx%d", ErrFormat, width, height)
	}
	header := fmt.Sprintf("%0*d\n%dx%d\n", durationDigits, 0, width, height)
	if _, err := io.WriteString(ws, header); err != nil {
		return nil, err
	}
	return &Writer{ws: ws}, nil
}

// Frames returns the number of frame lines written so far.
func (w *Writer) Frames() int { return w.frames }

// WriteFrame encodes b at timestamp ts. An unchanged frame is skipped
// unless force is set; a forced unchanged frame is written as an empty
// diff so the timestamp survives.
func (w *Writer) WriteFrame(b *canvas.Bitmap, ts time.Duration, force bool) error {
	if w.finished {
		return fmt.Errorf("%w: write after Finish", ErrFormat)
	}

	total := b.Width() * b.Height()
	resized := w.last == nil || w.last.Width() != b.Width() || w.last.Height() != b.Height()
	changed := total
	if !resized {
		changed = countChanged(w.last, b)
	}

	if changed == 0 && !force {
		return nil
	}

	var line []byte
	var err error
	if resized || changed*2 > total {
		line, err = w.encodeRaw(b, ts)
	} else {
		var f *DiffFrame
		f, err = DiffBetween(ts, w.last, b)
		if err == nil {
			line, err = Serialize(f)
		}
	}
	if err != nil {
		return err
	}

	if _, err := w.ws.Write(append(line, '\n')); err != nil {
		return err
	}
	w.last = b.Clone()
	w.lastTS = ts
	w.frames++
	return nil
}

// encodeRaw serializes a snapshot and proves it round-trips byte-for-byte
// before it is committed. A corrupt raw frame would poison every diff that
// follows it, so a mismatch is fatal for the write.
func (w *Writer) encodeRaw(b *canvas.Bitmap, ts time.Duration) ([]byte, error) {
	f := NewRawFrame(ts, b)
	line, err := Serialize(f)
	if err != nil {
		return nil, err
	}

	decoded, err := Deserialize(line)
	if err != nil {
		return nil, fmt.Errorf("round-trip verification: %w", err)
	}
	check := canvas.NewBitmap(b.Width(), b.Height())
	if err := decoded.Apply(check); err != nil {
		return nil, fmt.Errorf("round-trip verification: %w", err)
	}
	again, err := Serialize(NewRawFrame(ts, check))
	if err != nil {
		return nil, fmt.Errorf("round-trip verification: %w", err)
	}
	if !bytes.Equal(line, again) {
		return nil, fmt.Errorf("%w: raw frame failed round-trip verification", ErrFormat)
	}
	return line, nil
}

// Finish rewrites the duration header with the last frame's timestamp.
// The writer accepts no frames afterwards.
func (w *Writer) Finish() error {
	if w.finished {
		return nil
	}
	w.finished = true
	if _, err := w.ws.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w.ws, "%0*d", durationDigits, int64(w.lastTS)); err != nil {
		return err
	}
	_, err := w.ws.Seek(0, io.SeekEnd)
	return err
}

func countChanged(prev, cur *canvas.Bitmap) int {
	n := 0
	for y := 0; y < cur.Height(); y++ {
		for x := 0; x < cur.Width(); x++ {
			if cur.AtUnchecked(x, y) != prev.AtUnchecked(x, y) {
				n++
			}
		}
	}
	return n
}
