// Package strip pushes composed frames to the LED ring.
// The real implementation drives WS2812 LEDs over SPI. The console
// implementation prints the ring to a terminal, and the fake records frames
// for tests.
package strip

import (
	"errors"

	"github.com/sweeney/ledclock/internal/ring"
)

// ErrClosed is returned by Show after Close.
var ErrClosed = errors.New("strip: closed")

// Driver accepts a frame and a global brightness and flushes them to the LEDs.
type Driver interface {
	// SetBrightness sets the global brightness (0-255) used by the next Show.
	SetBrightness(level uint8)

	// Show flushes f to the LEDs at the current brightness.
	Show(f ring.Frame) error

	// Close blanks the LEDs and releases the device.
	Close() error
}

// Discard drops every frame, for running without LEDs attached.
type Discard struct{}

func (Discard) SetBrightness(level uint8) {}
func (Discard) Show(f ring.Frame) error   { return nil }
func (Discard) Close() error              { return nil }
