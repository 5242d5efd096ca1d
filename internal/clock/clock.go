// Package clock contains the wall-time snapshot taken on each tick and the
// mapping from that time onto hand positions around the ring.
// Like the rest of the rendering core it has no hardware dependencies.
package clock

import (
	"fmt"
	"time"
)

// RingSize is the number of positions on the clock face.
const RingSize = 60

// WallTime is an immutable snapshot of the displayed time for one tick.
type WallTime struct {
	Hour    int // 0-23
	Minute  int // 0-59
	Second  int // 0-59
	Weekday int // 0-6, Sunday = 0
}

// FromTime takes the wall-clock fields of t in its own location.
func FromTime(t time.Time) WallTime {
	h, m, s := t.Clock()
	return WallTime{Hour: h, Minute: m, Second: s, Weekday: int(t.Weekday())}
}

// MinuteOfDay returns hour*60+minute, in [0,1439].
func (w WallTime) MinuteOfDay() int {
	return w.Hour*60 + w.Minute
}

func (w WallTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", w.Hour, w.Minute, w.Second)
}

// TimeOfDay is a minute-precision time used by the night-light window.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Minutes returns the minute of day, in [0,1439] for valid values.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// Valid reports whether the hour and minute are in range.
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses "HH:MM" in 24-hour form.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if len(s) != 5 || s[2] != ':' {
		return t, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	if _, err := fmt.Sscanf(s, "%02d:%02d", &t.Hour, &t.Minute); err != nil {
		return t, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if !t.Valid() {
		return t, fmt.Errorf("time of day %q out of range", s)
	}
	return t, nil
}

// MarshalText encodes the time as "HH:MM".
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes "HH:MM".
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
