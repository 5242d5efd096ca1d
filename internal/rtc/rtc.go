// Package rtc provides the wall-clock time source. The hardware source is a
// DS3231 on the I2C bus; when it is missing the device runs from a
// free-running SoftClock for the rest of the boot.
package rtc

import (
	"sync"
	"time"
)

// Source supplies wall time. Times carry the local wall-clock fields; the
// location is always UTC and carries no meaning.
type Source interface {
	// Now reads the current wall time.
	Now() (time.Time, error)

	// Adjust sets the wall time, e.g. after an NTP sync or a manual set.
	Adjust(t time.Time) error

	// Available reports whether a hardware clock backs this source.
	Available() bool
}

// DefaultSoftStart is the time a SoftClock shows before anything sets it.
var DefaultSoftStart = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// SoftClock is an in-memory clock advanced explicitly by its owner, once per
// tick. It does not survive a power cycle.
type SoftClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewSoftClock returns a soft clock showing start.
func NewSoftClock(start time.Time) *SoftClock {
	return &SoftClock{now: wall(start)}
}

func (c *SoftClock) Now() (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now, nil
}

func (c *SoftClock) Adjust(t time.Time) error {
	c.mu.Lock()
	c.now = wall(t)
	c.mu.Unlock()
	return nil
}

// Available is always false: there is no hardware behind a soft clock.
func (c *SoftClock) Available() bool {
	return false
}

// Advance moves the clock forward by d.
func (c *SoftClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// wall strips sub-second precision and relabels t as UTC without changing
// its wall-clock fields.
func wall(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// FromEpoch converts a Unix time to wall time at the given UTC offset.
func FromEpoch(epoch int64, utcOffsetSeconds int) time.Time {
	return wall(time.Unix(epoch+int64(utcOffsetSeconds), 0).UTC())
}
