package strip

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"

	"github.com/sweeney/ledclock/internal/ring"
)

// DefaultFreq is the NRZ bit rate for WS2812 LEDs.
const DefaultFreq = 800 * physic.KiloHertz

// NRZ drives a WS2812 ring through an SPI port.
type NRZ struct {
	mu         sync.Mutex
	port       spi.PortCloser
	dev        *nrzled.Dev
	brightness uint8
	closed     bool
}

// OpenNRZ opens the named SPI port ("" for the first available) and
// prepares a 60-pixel NRZ encoder on it.
func OpenNRZ(portName string) (*NRZ, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("open spi port %q: %w", portName, err)
	}
	s, err := NewNRZ(port)
	if err != nil {
		port.Close()
		return nil, err
	}
	s.port = port
	return s, nil
}

// NewNRZ wraps an already opened SPI port. The caller keeps ownership of p.
func NewNRZ(p spi.Port) (*NRZ, error) {
	dev, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: ring.Size,
		Channels:  3,
		Freq:      DefaultFreq,
	})
	if err != nil {
		return nil, fmt.Errorf("init nrzled: %w", err)
	}
	return &NRZ{dev: dev, brightness: 255}, nil
}

// SetBrightness sets the global brightness applied on the next Show.
func (s *NRZ) SetBrightness(level uint8) {
	s.mu.Lock()
	s.brightness = level
	s.mu.Unlock()
}

// Show encodes the frame, dimmed by the global brightness, and writes it.
func (s *NRZ) Show(f ring.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	dimmed := f.Dimmed(s.brightness)
	if _, err := s.dev.Write(dimmed.Bytes()); err != nil {
		return fmt.Errorf("write leds: %w", err)
	}
	return nil
}

// Close blanks the ring and releases the SPI port.
func (s *NRZ) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.dev.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("halt leds: %w", err))
	}
	if s.port != nil {
		if err := s.port.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close spi port: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
