package strip

import (
	"sync"

	"github.com/sweeney/ledclock/internal/ring"
)

// FakeDriver records everything pushed to it.
type FakeDriver struct {
	mu         sync.Mutex
	Frames     []ring.Frame
	Levels     []uint8
	Brightness uint8
	ShowError  error
	Closed     bool
}

func NewFakeDriver() *FakeDriver {
	return &FakeDriver{Brightness: 255}
}

func (d *FakeDriver) SetBrightness(level uint8) {
	d.mu.Lock()
	d.Brightness = level
	d.mu.Unlock()
}

func (d *FakeDriver) Show(f ring.Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Closed {
		return ErrClosed
	}
	if d.ShowError != nil {
		return d.ShowError
	}
	d.Frames = append(d.Frames, f)
	d.Levels = append(d.Levels, d.Brightness)
	return nil
}

func (d *FakeDriver) Close() error {
	d.mu.Lock()
	d.Closed = true
	d.mu.Unlock()
	return nil
}

// Shown returns how many frames were accepted.
func (d *FakeDriver) Shown() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Frames)
}

// Last returns the most recent frame and the brightness it was shown at.
func (d *FakeDriver) Last() (ring.Frame, uint8, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Frames) == 0 {
		return ring.Frame{}, 0, false
	}
	n := len(d.Frames) - 1
	return d.Frames[n], d.Levels[n], true
}

var (
	_ Driver = (*NRZ)(nil)
	_ Driver = (*Console)(nil)
	_ Driver = (*FakeDriver)(nil)
	_ Driver = Discard{}
)
