// Package gpio reads the front-panel push button.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the button line.
type Reader interface {
	// Read returns true while the button is held. The line is pulled up and
	// the button shorts it to ground, so raw 0 = pressed.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// PinButton is the default button line (BCM numbering).
const PinButton = 17
