package codec

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lixenwraith/termframe/canvas"
	"github.com/lixenwraith/termframe/terminal"
)

var (
	red  = terminal.RGB{R: 255}
	blue = terminal.RGB{B: 255}
)

func serializeOK(t *testing.T, f Frame) []byte {
	t.Helper()
	line, err := Serialize(f)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	return line
}

func deserializeOK(t *testing.T, line []byte) Frame {
	t.Helper()
	f, err := Deserialize(line)
	if err != nil {
		t.Fatalf("Deserialize(%q): %v", line, err)
	}
	return f
}

func TestRawFrameRoundTrip(t *testing.T) {
	b := canvas.NewBitmap(4, 3)
	b.DrawString(0, 0, "ab", red, blue)
	b.Set(3, 2, canvas.Cell{R: 'z', Fg: blue, Bg: red, Underline: true})

	line := serializeOK(t, NewRawFrame(250*time.Millisecond, b))
	f := deserializeOK(t, line)

	if got := f.Timestamp(); got != 250*time.Millisecond {
		t.Errorf("timestamp = %v, want 250ms", got)
	}
	out := canvas.NewBitmap(4, 3)
	if err := f.Apply(out); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !b.Equal(out) {
		t.Error("raw round trip did not reproduce the bitmap")
	}
}

func TestDiffFrameRoundTrip(t *testing.T) {
	prev := canvas.NewBitmap(5, 5)
	cur := prev.Clone()
	cur.Set(2, 3, canvas.Cell{R: 'Q', Fg: red, Bg: blue})
	cur.Set(4, 0, canvas.Cell{R: 'W', Fg: red, Bg: blue, Underline: true})

	d, err := DiffBetween(time.Second, prev, cur)
	if err != nil {
		t.Fatalf("DiffBetween: %v", err)
	}
	line := serializeOK(t, d)
	f := deserializeOK(t, line)

	out := prev.Clone()
	if err := f.Apply(out); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !cur.Equal(out) {
		t.Error("diff round trip did not reproduce the mutated bitmap")
	}
}

func TestSerializeBracketEscapes(t *testing.T) {
	b := canvas.NewBitmap(2, 1)
	b.Set(0, 0, canvas.Cell{R: '[', Fg: red, Bg: blue})
	b.Set(1, 0, canvas.Cell{R: ']', Fg: red, Bg: blue})

	line := serializeOK(t, NewRawFrame(0, b))
	s := string(line)
	if !strings.Contains(s, "[OB]") || !strings.Contains(s, "[CB]") {
		t.Fatalf("escapes missing from %q", s)
	}

	out := canvas.NewBitmap(2, 1)
	if err := deserializeOK(t, line).Apply(out); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !b.Equal(out) {
		t.Error("bracket cells did not round trip")
	}
}

func TestDiffTupleCommaValue(t *testing.T) {
	prev := canvas.NewBitmap(3, 3)
	cur := prev.Clone()
	cur.Set(1, 2, canvas.Cell{R: ',', Fg: red, Bg: blue})

	d, err := DiffBetween(0, prev, cur)
	if err != nil {
		t.Fatalf("DiffBetween: %v", err)
	}
	out := prev.Clone()
	if err := deserializeOK(t, serializeOK(t, d)).Apply(out); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got, _ := out.At(1, 2); got.R != ',' {
		t.Errorf("cell (1,2) = %q, want comma", got.R)
	}
}

func TestSerializeColorMarkerDedup(t *testing.T) {
	b := canvas.NewBitmap(3, 1)
	b.Fill(canvas.Cell{R: 'a', Fg: red, Bg: blue})

	s := string(serializeOK(t, NewRawFrame(0, b)))
	if n := strings.Count(s, "[F="); n != 1 {
		t.Errorf("foreground markers = %d, want 1 for uniform row: %q", n, s)
	}
	if n := strings.Count(s, "[B="); n != 1 {
		t.Errorf("background markers = %d, want 1 for uniform row: %q", n, s)
	}
	if strings.Contains(s, "[U=") {
		t.Errorf("underline marker emitted for never-underlined frame: %q", s)
	}
}

func TestRawScanOrderIsColumnMajor(t *testing.T) {
	b := canvas.NewBitmap(2, 2)
	b.Set(0, 0, canvas.Cell{R: 'a', Fg: red, Bg: blue})
	b.Set(0, 1, canvas.Cell{R: 'b', Fg: red, Bg: blue})
	b.Set(1, 0, canvas.Cell{R: 'c', Fg: red, Bg: blue})
	b.Set(1, 1, canvas.Cell{R: 'd', Fg: red, Bg: blue})

	s := string(serializeOK(t, NewRawFrame(0, b)))
	// Column 0 top-to-bottom before column 1
	if !strings.Contains(s, "[a][b][c][d]") {
		t.Errorf("payload cell order not column-major: %q", s)
	}
}

func TestDeserializeMalformed(t *testing.T) {
	cases := []string{
		"",
		"[1,1][0]",
		"garbage",
		"[1,1][0][Bogus][x]",
		"[1,1][0][Raw]",
		"[1,1][0][Raw][F=nothex][x]",
		"[2,2][0][Raw][a][b][c]",
		"[1,1][0][Raw][a][b]",
		"[2,2][0][Diff][9,9,x]",
		"[1,1][notatime][Raw][a]",
		"[1,1][0][Raw][a",
	}
	for _, line := range cases {
		if _, err := Deserialize([]byte(line)); !errors.Is(err, ErrFormat) {
			t.Errorf("Deserialize(%q) err = %v, want ErrFormat", line, err)
		}
	}
}

func TestDiffBetweenSizeMismatch(t *testing.T) {
	a := canvas.NewBitmap(2, 2)
	b := canvas.NewBitmap(3, 2)
	if _, err := DiffBetween(0, a, b); !errors.Is(err, ErrFormat) {
		t.Errorf("DiffBetween across sizes err = %v, want ErrFormat", err)
	}
}
