package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/lixenwraith/termframe/canvas"
	"github.com/lixenwraith/termframe/terminal"
)

func TestParseOverridesDefaults(t *testing.T) {
	data := []byte(`
tick_interval = "20ms"
key_repeat_min = "50ms"
paint = "legacy"
sound = true

[record]
enabled = true
path = "session.rec"

[theme]
accent = "#336699"
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := Default()
	want.TickInterval = Duration(20 * time.Millisecond)
	want.KeyRepeatMin = Duration(50 * time.Millisecond)
	want.Paint = "legacy"
	want.Sound = true
	want.Record = Record{Enabled: true, Path: "session.rec"}
	want.Theme.Accent = Color{R: 0x33, G: 0x66, B: 0x99}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEmptyKeepsDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("empty config not defaults (-want +got):\n%s", diff)
	}
	if cfg.ResizeQuiet != Duration(250*time.Millisecond) {
		t.Errorf("ResizeQuiet default = %v", time.Duration(cfg.ResizeQuiet))
	}
}

func TestParseRejectsBadValues(t *testing.T) {
	cases := []string{
		`tick_interval = "soon"`,
		`paint = "carrier-pigeon"`,
		"[theme]\nforeground = \"red\"",
		`tick_interval = [1, 2]`,
	}
	for _, s := range cases {
		if _, err := Parse([]byte(s)); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", s)
		}
	}
}

func TestPaintModeMapping(t *testing.T) {
	cfg := Default()
	cfg.Paint = "legacy"
	if m, _ := cfg.PaintMode(); m != canvas.PaintLegacy {
		t.Errorf("legacy mapped to %v", m)
	}
	cfg.Paint = ""
	if m, _ := cfg.PaintMode(); m != canvas.PaintANSI {
		t.Errorf("empty paint mapped to %v, want ansi default", m)
	}
}

func TestColorRoundTrip(t *testing.T) {
	var c Color
	if err := c.UnmarshalText([]byte("#a1b2c3")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if c.RGB() != (terminal.RGB{R: 0xa1, G: 0xb2, B: 0xc3}) {
		t.Errorf("parsed color = %+v", c)
	}
	out, err := c.MarshalText()
	if err != nil || string(out) != "#a1b2c3" {
		t.Errorf("MarshalText = %q, %v", out, err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "termframe.toml")
	if err := os.WriteFile(path, []byte(`sound = false`), 0o644); err != nil {
		t.Fatal(err)
	}

	reloads := make(chan Config, 4)
	stop, err := Watch(path, func(cfg Config, err error) {
		if err == nil {
			reloads <- cfg
		}
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer stop()

	if err := os.WriteFile(path, []byte(`sound = true`), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-reloads:
			if cfg.Sound {
				return
			}
		case <-deadline:
			t.Fatal("no reload observed after rewrite")
		}
	}
}
