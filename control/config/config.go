// Package config loads the alarm clock's settings from a YAML file and fills in defaults.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFilename is used when no path is given.
const DefaultConfigFilename = "alarm-clock.yaml"

// Error is a configuration problem: a missing or invalid setting, or a resource named by a
// setting that does not exist.  The clock does not start when one is reported.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration: %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	errRequired = errors.New("required")
	errPositive = errors.New("must be positive")
)

// Duration is a time.Duration written in YAML as a Go duration string ("200ms", "2h").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// D returns d as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// Display configures the OLED.
type Display struct {
	// I2CBus is the periph.io bus name; empty opens the default bus and "none" runs without a
	// display, keeping only the debug preview.
	I2CBus      string  `yaml:"i2c_bus"`
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	SmallPoints float64 `yaml:"small_points"`
	LargePoints float64 `yaml:"large_points"`
}

// Buttons names the GPIO pin behind each button.
type Buttons struct {
	Left      string `yaml:"left"`
	Right     string `yaml:"right"`
	Up        string `yaml:"up"`
	Down      string `yaml:"down"`
	Confirm   string `yaml:"confirm"`
	Cancel    string `yaml:"cancel"`
	ActiveLow *bool  `yaml:"active_low"`
}

// Touch names the touch sensor's pin.
type Touch struct {
	Pin       string `yaml:"pin"`
	ActiveLow bool   `yaml:"active_low"`
}

// LEDs configures the indicator: either an APA102 pair on an SPI port, or GPIO pins.
type LEDs struct {
	SPI   string   `yaml:"spi"`
	Pins  []string `yaml:"pins"`
	Color Color    `yaml:"color"`
}

// Color is an RGB triple.
type Color struct {
	R uint8 `yaml:"r"`
	G uint8 `yaml:"g"`
	B uint8 `yaml:"b"`
}

// NRGBA returns c as an opaque color.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

// Speaker configures the buzzer and the optional speech command.
type Speaker struct {
	Pin          string   `yaml:"pin"`
	Frequency    int      `yaml:"frequency"` // Hz
	Beep         Duration `yaml:"beep"`
	SpeakCommand []string `yaml:"speak_command"`
}

// Messages holds every string the clock shows or speaks.
type Messages struct {
	AlarmOff  string `yaml:"alarm_off"`
	AlarmOn   string `yaml:"alarm_on"` // prefix before HH:MM
	Armed     string `yaml:"armed"`
	Disarmed  string `yaml:"disarmed"`
	Exiting   string `yaml:"exiting"`
	EditTitle string `yaml:"edit_title"`
	WakeUp    string `yaml:"wake_up"`
}

// Config is the whole settings file.
type Config struct {
	Timezone string `yaml:"timezone"`
	// FallbackOffset, if set, is used as a fixed UTC offset when Timezone cannot be loaded.
	// Without it a missing zone database is fatal.
	FallbackOffset *Duration `yaml:"fallback_offset"`

	Tick         Duration `yaml:"tick"`
	Dwell        Duration `yaml:"dwell"`
	Debounce     Duration `yaml:"debounce"`
	EditPause    Duration `yaml:"edit_pause"`
	PollInterval Duration `yaml:"poll_interval"`

	Display  Display  `yaml:"display"`
	Buttons  Buttons  `yaml:"buttons"`
	Touch    Touch    `yaml:"touch"`
	LEDs     LEDs     `yaml:"leds"`
	Speaker  Speaker  `yaml:"speaker"`
	Messages Messages `yaml:"messages"`

	// Chrony is the chronyd command address checked at startup; empty skips the check.
	Chrony   string `yaml:"chrony"`
	LogLevel string `yaml:"log_level"`
}

// Load reads and validates the settings at path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, &Error{Field: "file", Err: fmt.Errorf("read settings: %w", err)}
	}
	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, &Error{Field: "file", Err: fmt.Errorf("unmarshal settings: %w", err)}
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefault[T comparable](v *T, def T) {
	var zero T
	if *v == zero {
		*v = def
	}
}

// Validate fills in defaults and checks that every required setting is present.
func Validate(c *Config) error {
	setDefault(&c.Timezone, "Europe/Berlin")
	setDefault(&c.Tick, Duration(time.Second))
	setDefault(&c.Dwell, Duration(time.Second))
	setDefault(&c.Debounce, Duration(200*time.Millisecond))
	setDefault(&c.EditPause, Duration(500*time.Millisecond))
	setDefault(&c.PollInterval, Duration(20*time.Millisecond))

	setDefault(&c.Display.Width, 128)
	setDefault(&c.Display.Height, 64)
	setDefault(&c.Display.SmallPoints, 12)
	setDefault(&c.Display.LargePoints, 24)
	if c.Buttons.ActiveLow == nil {
		t := true
		c.Buttons.ActiveLow = &t
	}
	setDefault(&c.LEDs.Color, Color{G: 0xff})
	setDefault(&c.Speaker.Frequency, 440)
	setDefault(&c.Speaker.Beep, Duration(200*time.Millisecond))

	m := &c.Messages
	setDefault(&m.AlarmOff, "Alarm aus")
	setDefault(&m.AlarmOn, "Alarm: ")
	setDefault(&m.Armed, "Alarm EIN")
	setDefault(&m.Disarmed, "Alarm AUS")
	setDefault(&m.Exiting, "Beende Programm...")
	setDefault(&m.EditTitle, "Wecker stellen")
	setDefault(&m.WakeUp, "Aufstehen!")

	for field, d := range map[string]Duration{
		"tick":          c.Tick,
		"dwell":         c.Dwell,
		"debounce":      c.Debounce,
		"edit_pause":    c.EditPause,
		"poll_interval": c.PollInterval,
		"speaker.beep":  c.Speaker.Beep,
	} {
		if d < 0 {
			return &Error{Field: field, Err: errPositive}
		}
	}
	if c.Display.Width < 0 || c.Display.Height < 0 {
		return &Error{Field: "display", Err: errPositive}
	}
	if c.Speaker.Frequency < 0 {
		return &Error{Field: "speaker.frequency", Err: errPositive}
	}

	for field, pin := range map[string]string{
		"buttons.left":    c.Buttons.Left,
		"buttons.right":   c.Buttons.Right,
		"buttons.up":      c.Buttons.Up,
		"buttons.down":    c.Buttons.Down,
		"buttons.confirm": c.Buttons.Confirm,
		"buttons.cancel":  c.Buttons.Cancel,
		"speaker.pin":     c.Speaker.Pin,
	} {
		if pin == "" {
			return &Error{Field: field, Err: errRequired}
		}
	}
	if c.LEDs.SPI != "" && len(c.LEDs.Pins) > 0 {
		return &Error{Field: "leds", Err: errors.New("set either spi or pins, not both")}
	}
	return nil
}
