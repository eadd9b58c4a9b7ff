package codec

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/lixenwraith/termframe/canvas"
)

// maxFrameLine bounds a single encoded frame line. A fully styled raw
// frame of a very large terminal stays well under this.
const maxFrameLine = 16 << 20

// StreamReader decodes a recording incrementally. It owns a canvas that
// always holds the fully painted state of the most recent frame, so diff
// frames have their base to apply against.
type StreamReader struct {
	sc            *bufio.Scanner
	duration      time.Duration
	width, height int
	bitmap        *canvas.Bitmap
	cur           Frame
}

// NewStreamReader consumes the duration and size headers and prepares to
// decode frames.
func NewStreamReader(r io.Reader) (*StreamReader, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxFrameLine)

	if !sc.Scan() {
		return nil, headerErr(sc, "duration")
	}
	ticks, err := strconv.ParseInt(strings.TrimSpace(sc.Text()), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: duration header %q", ErrFormat, sc.Text())
	}

	if !sc.Scan() {
		return nil, headerErr(sc, "size")
	}
	w, h, err := parseSizeHeader(sc.Text())
	if err != nil {
		return nil, err
	}

	return &StreamReader{
		sc:       sc,
		duration: time.Duration(ticks),
		width:    w,
		height:   h,
		bitmap:   canvas.NewBitmap(w, h),
	}, nil
}

func headerErr(sc *bufio.Scanner, which string) error {
	if err := sc.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%w: missing %s header", ErrFormat, which)
}

func parseSizeHeader(line string) (int, int, error) {
	x := strings.IndexByte(line, 'x')
	if x < 0 {
		return 0, 0, fmt.Errorf("%w: size header %q", ErrFormat, line)
	}
	w, err1 := strconv.Atoi(line[:x])
	h, err2 := strconv.Atoi(line[x+1:])
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: size header %q", ErrFormat, line)
	}
	return w, h, nil
}

// Duration returns the total recording length from the stream header.
func (r *StreamReader) Duration() time.Duration { return r.duration }

// Size returns the recording dimensions from the stream header.
func (r *StreamReader) Size() (int, int) { return r.width, r.height }

// Current returns the most recently decoded frame, nil once the stream is
// exhausted.
func (r *StreamReader) Current() Frame { return r.cur }

// Bitmap returns the reader's canvas holding the painted current frame.
func (r *StreamReader) Bitmap() *canvas.Bitmap { return r.bitmap }

// Next decodes and applies one frame. End of stream returns (nil, nil)
// and clears Current; it is not an error.
func (r *StreamReader) Next() (Frame, error) {
	if !r.sc.Scan() {
		r.cur = nil
		if err := r.sc.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	f, err := Deserialize(r.sc.Bytes())
	if err != nil {
		return nil, err
	}
	if err := f.Apply(r.bitmap); err != nil {
		return nil, err
	}
	r.cur = f
	return f, nil
}

// VideoFrame is one fully materialized step of a video.
type VideoFrame struct {
	Timestamp time.Duration
	Bitmap    *canvas.Bitmap
}

// Video is a recording expanded into independent per-frame bitmaps, built
// incrementally so playback can begin before loading finishes.
type Video struct {
	duration time.Duration
	frames   []VideoFrame
	complete bool
}

// NewVideo creates an empty video with the stream's declared duration.
func NewVideo(duration time.Duration) *Video {
	return &Video{duration: duration}
}

// Duration returns the declared total length.
func (v *Video) Duration() time.Duration { return v.duration }

// Len returns the number of frames loaded so far.
func (v *Video) Len() int { return len(v.frames) }

// Frame returns the materialized frame at index i.
func (v *Video) Frame(i int) VideoFrame { return v.frames[i] }

// Append clones b as the frame at ts. Timestamps must be non-decreasing.
func (v *Video) Append(ts time.Duration, b *canvas.Bitmap) {
	v.frames = append(v.frames, VideoFrame{Timestamp: ts, Bitmap: b.Clone()})
}

// MarkComplete records that no further frames will arrive.
func (v *Video) MarkComplete() { v.complete = true }

// Complete reports whether loading has finished.
func (v *Video) Complete() bool { return v.complete }

// Progress returns the loaded fraction in [0,1], by timestamp against the
// declared duration.
func (v *Video) Progress() float64 {
	if v.complete {
		return 1.0
	}
	if v.duration <= 0 || len(v.frames) == 0 {
		return 0.0
	}
	p := float64(v.frames[len(v.frames)-1].Timestamp) / float64(v.duration)
	if p > 1 {
		p = 1
	}
	return p
}

// Seek scans forward from index `from` for the latest frame whose
// timestamp is at most target. It returns -1 when the target lies beyond
// what has loaded so far and loading is still in progress (the caller
// retries later), or the last frame when loading is complete.
func (v *Video) Seek(target time.Duration, from int) int {
	if len(v.frames) == 0 {
		return -1
	}
	if from < 0 {
		from = 0
	}
	if from >= len(v.frames) {
		from = len(v.frames) - 1
	}
	i := from
	for i+1 < len(v.frames) && v.frames[i+1].Timestamp <= target {
		i++
	}
	if i == len(v.frames)-1 && v.frames[i].Timestamp < target && !v.complete {
		return -1
	}
	return i
}

// ReadAll materializes an entire recording, invoking onProgress (if any)
// after each frame and once more at 1.0.
func ReadAll(r io.Reader, onProgress func(float64)) (*Video, error) {
	sr, err := NewStreamReader(r)
	if err != nil {
		return nil, err
	}
	v := NewVideo(sr.Duration())
	for {
		f, err := sr.Next()
		if err != nil {
			return nil, err
		}
		if f == nil {
			break
		}
		v.Append(f.Timestamp(), sr.Bitmap())
		if onProgress != nil {
			onProgress(v.Progress())
		}
	}
	v.MarkComplete()
	if onProgress != nil {
		onProgress(1.0)
	}
	return v, nil
}
