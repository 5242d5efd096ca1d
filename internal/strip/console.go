package strip

import (
	"image"
	"image/color"
	"sync"

	"periph.io/x/conn/v3/display"
	"periph.io/x/extra/devices/screen"

	"github.com/sweeney/ledclock/internal/ring"
)

// Console renders the ring as a row of coloured cells on the terminal. It is
// used on hosts without an SPI port.
type Console struct {
	mu         sync.Mutex
	drawer     display.Drawer
	brightness uint8
	closed     bool
}

// NewConsole returns a driver printing to stdout.
func NewConsole() *Console {
	return NewConsoleDrawer(screen.New(ring.Size))
}

// NewConsoleDrawer wraps any periph drawer at least ring.Size pixels wide.
func NewConsoleDrawer(d display.Drawer) *Console {
	return &Console{drawer: d, brightness: 255}
}

func (c *Console) SetBrightness(level uint8) {
	c.mu.Lock()
	c.brightness = level
	c.mu.Unlock()
}

func (c *Console) Show(f ring.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	img := FrameImage(f.Dimmed(c.brightness))
	return c.drawer.Draw(c.drawer.Bounds(), img, image.Point{})
}

func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.drawer.Halt()
}

// FrameImage lays the frame out as a ring.Size x 1 image.
func FrameImage(f ring.Frame) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, ring.Size, 1))
	for i, px := range f {
		img.SetNRGBA(i, 0, color.NRGBA{R: px.R, G: px.G, B: px.B, A: 255})
	}
	return img
}
