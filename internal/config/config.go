// Package config holds the operator settings of the clock and their
// persisted form.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sweeney/ledclock/internal/clock"
	"github.com/sweeney/ledclock/internal/color"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid settings")

// EffectCount is the number of selectable background effects (modes 0..7).
const EffectCount = 8

// NightMode selects the night-light illumination pattern.
type NightMode int

const (
	NightBottom NightMode = iota
	NightCorners
	NightCustom
	NightBreathing
)

var nightModeNames = [...]string{"bottom", "corners", "custom", "breathing"}

func (m NightMode) String() string {
	if m < 0 || int(m) >= len(nightModeNames) {
		return fmt.Sprintf("NightMode(%d)", int(m))
	}
	return nightModeNames[m]
}

// Valid reports whether m names a known pattern.
func (m NightMode) Valid() bool {
	return m >= NightBottom && m <= NightBreathing
}

// ParseNightMode accepts the pattern name case-insensitively.
func ParseNightMode(s string) (NightMode, error) {
	for i, name := range nightModeNames {
		if strings.EqualFold(s, name) {
			return NightMode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown night-light mode %q", ErrInvalid, s)
}

func (m NightMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: night-light mode %d", ErrInvalid, int(m))
	}
	return []byte(m.String()), nil
}

func (m *NightMode) UnmarshalText(text []byte) error {
	parsed, err := ParseNightMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// NightLight is the night-light sub-record.
//
// CustomMask addresses ring positions 0..31 only; positions 32..59 cannot be
// selected by the custom pattern.
type NightLight struct {
	Enabled    bool            `yaml:"enabled" json:"enabled"`
	Mode       NightMode       `yaml:"mode" json:"mode"`
	Brightness int             `yaml:"brightness" json:"brightness"`
	Color      color.RGB       `yaml:"color" json:"color"`
	ShowTime   bool            `yaml:"show_time" json:"showTime"`
	Start      clock.TimeOfDay `yaml:"start" json:"start"`
	End        clock.TimeOfDay `yaml:"end" json:"end"`
	CustomMask uint32          `yaml:"custom_mask" json:"customMask"`

	// Runtime only; never persisted.
	TestActive      bool   `yaml:"-" json:"testActive"`
	TestStartedAtMs uint32 `yaml:"-" json:"-"`
}

// SyncSchedule is the weekly NTP sync slot. The sync fires at minute 0 of
// Hour on Weekday (0 = Sunday).
type SyncSchedule struct {
	Weekday int `yaml:"weekday" json:"weekday"`
	Hour    int `yaml:"hour" json:"hour"`
}

// Network holds station WiFi and time-sync settings.
type Network struct {
	SSID             string `yaml:"ssid" json:"ssid"`
	Password         string `yaml:"password" json:"-"`
	NTPServer        string `yaml:"ntp_server" json:"ntpServer"`
	UTCOffsetSeconds int    `yaml:"utc_offset_seconds" json:"utcOffsetSeconds"`
	Hostname         string `yaml:"hostname" json:"hostname"`
}

// ClockConfig is the full operator settings record. A single instance is
// owned by the device and mutated only through its update operations.
type ClockConfig struct {
	EffectMode           int                         `yaml:"effect_mode" json:"effectMode"`
	ActiveBrightness     int                         `yaml:"active_brightness" json:"activeBrightness"`
	BackgroundBrightness int                         `yaml:"background_brightness" json:"backgroundBrightness"`
	HourColor            color.RGB                   `yaml:"hour_color" json:"hourColor"`
	MinuteColor          color.RGB                   `yaml:"minute_color" json:"minuteColor"`
	SecondColor          color.RGB                   `yaml:"second_color" json:"secondColor"`
	MarkerColors         [MarkerColorCount]color.RGB `yaml:"marker_colors" json:"markerColors"`
	NightLight           NightLight                  `yaml:"night_light" json:"nightLight"`
	Sync                 SyncSchedule                `yaml:"sync" json:"sync"`
	Network              Network                     `yaml:"network" json:"network"`
}

// MarkerColorCount is the number of hour markers with their own colour.
const MarkerColorCount = 12

// Defaults returns the factory settings.
func Defaults() ClockConfig {
	cfg := ClockConfig{
		EffectMode:           0,
		ActiveBrightness:     80,
		BackgroundBrightness: 20,
		HourColor:            color.RGB{R: 255},
		MinuteColor:          color.RGB{G: 255},
		SecondColor:          color.RGB{B: 255},
		NightLight: NightLight{
			Enabled:    false,
			Mode:       NightBottom,
			Brightness: 20,
			Color:      color.RGB{R: 255, G: 140},
			ShowTime:   true,
			Start:      clock.TimeOfDay{Hour: 22},
			End:        clock.TimeOfDay{Hour: 6},
		},
		Sync: SyncSchedule{Weekday: 0, Hour: 3},
		Network: Network{
			NTPServer: "pool.ntp.org",
			Hostname:  "ledclock",
		},
	}
	for i := range cfg.MarkerColors {
		cfg.MarkerColors[i] = color.White
	}
	return cfg
}

// Validate checks the fields the request handlers accept from operators.
// Brightness values are not checked; they are clamped where used.
func (c *ClockConfig) Validate() error {
	if c.EffectMode < 0 || c.EffectMode >= EffectCount {
		return fmt.Errorf("%w: effect mode %d not in [0,%d]", ErrInvalid, c.EffectMode, EffectCount-1)
	}
	if err := c.NightLight.Validate(); err != nil {
		return err
	}
	return c.Sync.Validate()
}

// Validate checks the night-light pattern and window.
func (n *NightLight) Validate() error {
	if !n.Mode.Valid() {
		return fmt.Errorf("%w: night-light mode %d", ErrInvalid, int(n.Mode))
	}
	if !n.Start.Valid() {
		return fmt.Errorf("%w: night-light start %v", ErrInvalid, n.Start)
	}
	if !n.End.Valid() {
		return fmt.Errorf("%w: night-light end %v", ErrInvalid, n.End)
	}
	return nil
}

// Validate checks the weekly sync slot.
func (s SyncSchedule) Validate() error {
	if s.Weekday < 0 || s.Weekday > 6 {
		return fmt.Errorf("%w: sync weekday %d not in [0,6]", ErrInvalid, s.Weekday)
	}
	if s.Hour < 0 || s.Hour > 23 {
		return fmt.Errorf("%w: sync hour %d not in [0,23]", ErrInvalid, s.Hour)
	}
	return nil
}
