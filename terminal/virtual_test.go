package terminal

import (
	"bytes"
	"errors"
	"testing"
)

func TestVirtualDirectWrites(t *testing.T) {
	v := NewVirtual(10, 4)
	if err := v.MoveCursor(2, 1); err != nil {
		t.Fatalf("MoveCursor: %v", err)
	}
	if err := v.SetColors(RGB{255, 0, 0}, RGB{0, 0, 255}, true); err != nil {
		t.Fatalf("SetColors: %v", err)
	}
	if err := v.WriteText("hi"); err != nil {
		t.Fatalf("WriteText: %v", err)
	}

	want := ScreenCell{R: 'h', Fg: RGB{255, 0, 0}, Bg: RGB{0, 0, 255}, Underline: true}
	if got := v.Cell(2, 1); got != want {
		t.Errorf("cell (2,1) = %+v, want %+v", got, want)
	}
	if got := v.Cell(3, 1).R; got != 'i' {
		t.Errorf("cell (3,1) rune = %q, want 'i'", got)
	}
	if v.CursorMoves != 1 || v.ColorSets != 1 || v.TextWrites != 1 {
		t.Errorf("counters = %d/%d/%d, want 1/1/1", v.CursorMoves, v.ColorSets, v.TextWrites)
	}
}

func TestVirtualWriteOffScreenIgnored(t *testing.T) {
	v := NewVirtual(4, 2)
	v.MoveCursor(3, 0)
	v.WriteText("abc") // b and c run past the right edge

	if got := v.Cell(3, 0).R; got != 'a' {
		t.Errorf("cell (3,0) rune = %q, want 'a'", got)
	}
	if got := v.Cell(0, 1).R; got != ' ' {
		t.Errorf("overflow wrapped to next row: cell (0,1) = %q", got)
	}
}

func TestVirtualRawCursorAndText(t *testing.T) {
	v := NewVirtual(10, 4)
	if err := v.WriteRaw([]byte("\x1b[2;3Hok")); err != nil {
		t.Fatalf("WriteRaw: %v", err)
	}
	if got := v.Cell(2, 1).R; got != 'o' {
		t.Errorf("cell (2,1) rune = %q, want 'o'", got)
	}
	if got := v.Cell(3, 1).R; got != 'k' {
		t.Errorf("cell (3,1) rune = %q, want 'k'", got)
	}
	if v.CursorMoves != 1 {
		t.Errorf("CursorMoves = %d, want 1", v.CursorMoves)
	}
}

func TestVirtualRawSGRTrueColor(t *testing.T) {
	v := NewVirtual(10, 2)
	v.WriteRaw([]byte("\x1b[1;1H\x1b[0;4;38;2;10;20;30;48;2;40;50;60mX"))

	got := v.Cell(0, 0)
	want := ScreenCell{R: 'X', Fg: RGB{10, 20, 30}, Bg: RGB{40, 50, 60}, Underline: true}
	if got != want {
		t.Errorf("cell = %+v, want %+v", got, want)
	}
}

func TestVirtualRawSGRPalette(t *testing.T) {
	v := NewVirtual(10, 2)
	// 196 = cube(5,0,0) = pure red, 16 = cube(0,0,0) = black
	v.WriteRaw([]byte("\x1b[1;1H\x1b[0;38;5;196;48;5;16mX"))

	got := v.Cell(0, 0)
	if got.Fg != (RGB{255, 0, 0}) || got.Bg != RGBBlack {
		t.Errorf("cell colors = fg %+v bg %+v, want red on black", got.Fg, got.Bg)
	}
}

func TestVirtualRawSGRReset(t *testing.T) {
	v := NewVirtual(10, 2)
	v.WriteRaw([]byte("\x1b[38;2;1;2;3;4m\x1b[0mX"))

	got := v.Cell(0, 0)
	if got.Fg != DefaultFg || got.Bg != DefaultBg || got.Underline {
		t.Errorf("reset did not restore defaults: %+v", got)
	}
}

func TestVirtualRawTruncatedSequenceStops(t *testing.T) {
	v := NewVirtual(10, 2)
	if err := v.WriteRaw([]byte("A\x1b[2;3")); err != nil {
		t.Fatalf("WriteRaw: %v", err)
	}
	if got := v.Cell(0, 0).R; got != 'A' {
		t.Errorf("text before truncated sequence lost: %q", got)
	}
}

func TestVirtualFailNextWrites(t *testing.T) {
	v := NewVirtual(4, 2)
	v.FailNextWrites(2)

	if err := v.MoveCursor(0, 0); !errors.Is(err, ErrWriteFailed) {
		t.Errorf("first write err = %v, want ErrWriteFailed", err)
	}
	if err := v.WriteText("x"); !errors.Is(err, ErrWriteFailed) {
		t.Errorf("second write err = %v, want ErrWriteFailed", err)
	}
	if err := v.WriteText("x"); err != nil {
		t.Errorf("third write err = %v, want nil", err)
	}
}

func TestVirtualPostEventDelivery(t *testing.T) {
	v := NewVirtual(4, 2)
	v.PostEvent(Event{Type: EventKey, Key: KeyRune, Rune: 'z'})

	select {
	case ev := <-v.Events():
		if ev.Rune != 'z' {
			t.Errorf("event rune = %q, want 'z'", ev.Rune)
		}
	default:
		t.Fatal("no event queued")
	}
}

func TestWriteCursorPos(t *testing.T) {
	var buf bytes.Buffer
	WriteCursorPos(&buf, 4, 9)
	if got := buf.String(); got != "\x1b[10;5H" {
		t.Errorf("WriteCursorPos(4,9) = %q, want \\x1b[10;5H", got)
	}
}

func TestWriteSGRModes(t *testing.T) {
	var buf bytes.Buffer
	WriteSGR(&buf, RGB{1, 2, 3}, RGB{4, 5, 6}, false, ColorModeTrueColor)
	if got := buf.String(); got != "\x1b[0;38;2;1;2;3;48;2;4;5;6m" {
		t.Errorf("truecolor SGR = %q", got)
	}

	buf.Reset()
	WriteSGR(&buf, RGBWhite, RGBBlack, true, ColorMode256)
	want := "\x1b[0;4;38;5;231;48;5;16m"
	if got := buf.String(); got != want {
		t.Errorf("256-color SGR = %q, want %q", got, want)
	}
}

func TestWriteInt(t *testing.T) {
	cases := []struct {
		n    int
		want string
	}{
		{0, "0"}, {7, "7"}, {42, "42"}, {255, "255"}, {1024, "1024"}, {-3, "0"},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		writeInt(&buf, tc.n)
		if got := buf.String(); got != tc.want {
			t.Errorf("writeInt(%d) = %q, want %q", tc.n, got, tc.want)
		}
	}
}

func TestRGBTo256RoundTrip(t *testing.T) {
	cases := []struct {
		c    RGB
		want uint8
	}{
		{RGBBlack, 16},
		{RGB{255, 0, 0}, 196},
		{RGB{0, 255, 0}, 46},
		{RGB{0, 0, 255}, 21},
		{RGB{128, 128, 128}, 244}, // grayscale ramp beats the cube
	}
	for _, tc := range cases {
		if got := RGBTo256(tc.c); got != tc.want {
			t.Errorf("RGBTo256(%+v) = %d, want %d", tc.c, got, tc.want)
		}
	}
}
