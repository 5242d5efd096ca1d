// Package battery samples the backup cell voltage through an ADS1115 ADC and
// maps it to a charge percentage.
package battery

import (
	"fmt"
	"math"
	"time"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

// Two-point calibration of the cell.
const (
	EmptyVolts = 3.00
	FullVolts  = 3.30
)

// SampleInterval is how often the device reads the battery.
const SampleInterval = 30 * time.Second

// Sampler reads the battery voltage in volts.
type Sampler interface {
	Voltage() (float64, error)
}

// Percent maps a voltage onto 0..100 linearly between EmptyVolts and
// FullVolts. Readings outside the range saturate; NaN reads as empty.
func Percent(volts float64) int {
	if math.IsNaN(volts) {
		return 0
	}
	pct := math.Round((volts - EmptyVolts) / (FullVolts - EmptyVolts) * 100)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return int(pct)
}

// ADC samples one analog input and scales by the resistor divider in front
// of it.
type ADC struct {
	pin     analog.PinADC
	divider float64
	dev     *ads1x15.Dev
	bus     i2c.BusCloser
}

// OpenADS1115 opens the I2C bus, finds an ADS1115 at its default address and
// configures the given input channel (0-3) for single-ended reads.
func OpenADS1115(busName string, channel int, divider float64) (*ADC, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	ch, err := channelFor(channel)
	if err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	dev, err := ads1x15.NewADS1115(bus, &ads1x15.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("init ads1115: %w", err)
	}
	pin, err := dev.PinForChannel(ch, 4096*physic.MilliVolt, 1*physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		dev.Halt()
		bus.Close()
		return nil, fmt.Errorf("configure adc channel %d: %w", channel, err)
	}
	a := NewADC(pin, divider)
	a.dev = dev
	a.bus = bus
	return a, nil
}

// NewADC wraps an already configured analog pin. A divider of 0 is treated
// as 1.
func NewADC(pin analog.PinADC, divider float64) *ADC {
	if divider <= 0 {
		divider = 1
	}
	return &ADC{pin: pin, divider: divider}
}

func (a *ADC) Voltage() (float64, error) {
	s, err := a.pin.Read()
	if err != nil {
		return 0, fmt.Errorf("read adc: %w", err)
	}
	return float64(s.V) / float64(physic.Volt) * a.divider, nil
}

// Close stops the pin and releases the bus if OpenADS1115 created them.
func (a *ADC) Close() error {
	var errs []error
	if err := a.pin.Halt(); err != nil {
		errs = append(errs, err)
	}
	if a.dev != nil {
		if err := a.dev.Halt(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func channelFor(n int) (ads1x15.Channel, error) {
	switch n {
	case 0:
		return ads1x15.Channel0, nil
	case 1:
		return ads1x15.Channel1, nil
	case 2:
		return ads1x15.Channel2, nil
	case 3:
		return ads1x15.Channel3, nil
	}
	return 0, fmt.Errorf("invalid adc channel %d", n)
}
