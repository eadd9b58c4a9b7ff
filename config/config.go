// Package config loads application settings from TOML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pelletier/go-toml/v2"

	"github.com/lixenwraith/termframe/canvas"
	"github.com/lixenwraith/termframe/terminal"
)

// Duration accepts Go duration strings like "35ms" in TOML values.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std converts to the standard library type.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Color accepts "#rrggbb" hex values.
type Color terminal.RGB

func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := colorful.Hex(string(text))
	if err != nil {
		return fmt.Errorf("color %q: %w", text, err)
	}
	*c = Color{
		R: uint8(parsed.R*255 + 0.5),
		G: uint8(parsed.G*255 + 0.5),
		B: uint8(parsed.B*255 + 0.5),
	}
	return nil
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hex()), nil
}

// RGB converts back to the terminal color type.
func (c Color) RGB() terminal.RGB { return terminal.RGB(c) }

// Record configures frame recording.
type Record struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Theme holds the demo drawing colors.
type Theme struct {
	Foreground Color `toml:"foreground"`
	Background Color `toml:"background"`
	Accent     Color `toml:"accent"`
}

// Config is the full application configuration.
type Config struct {
	TickInterval Duration `toml:"tick_interval"`
	KeyRepeatMin Duration `toml:"key_repeat_min"`
	ResizeQuiet  Duration `toml:"resize_quiet"`
	Paint        string   `toml:"paint"`
	Sound        bool     `toml:"sound"`
	Record       Record   `toml:"record"`
	Theme        Theme    `toml:"theme"`
}

// Default returns the settings used when no file or key is present.
func Default() Config {
	return Config{
		TickInterval: Duration(16 * time.Millisecond),
		KeyRepeatMin: Duration(35 * time.Millisecond),
		ResizeQuiet:  Duration(250 * time.Millisecond),
		Paint:        "ansi",
		Sound:        false,
		Theme: Theme{
			Foreground: Color(terminal.DefaultFg),
			Background: Color(terminal.DefaultBg),
			Accent:     Color{R: 0xff, G: 0x87, B: 0x00},
		},
	}
}

// Parse decodes TOML over the defaults, so partial files work.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if _, err := cfg.PaintMode(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// PaintMode maps the paint key onto the engine's emission strategy.
func (c Config) PaintMode() (canvas.PaintMode, error) {
	switch c.Paint {
	case "", "ansi":
		return canvas.PaintANSI, nil
	case "legacy":
		return canvas.PaintLegacy, nil
	}
	return 0, fmt.Errorf("config: unknown paint strategy %q", c.Paint)
}
