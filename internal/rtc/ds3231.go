package rtc

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// DS3231 register map.
const (
	Addr = 0x68

	regSeconds = 0x00
	regStatus  = 0x0F

	statusOSF = 0x80 // oscillator stopped since last set
	hour12    = 0x40
	hourPM    = 0x20
	century   = 0x80
)

// DS3231 reads and sets a DS3231 real-time clock.
type DS3231 struct {
	mu        sync.Mutex
	dev       *i2c.Dev
	closer    i2c.BusCloser
	lostPower bool
}

// Open initialises periph, opens the named I2C bus ("" for the default) and
// looks for a DS3231. An error means no usable RTC.
func Open(busName string) (*DS3231, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	d, err := New(bus)
	if err != nil {
		bus.Close()
		return nil, err
	}
	d.closer = bus
	return d, nil
}

// New looks for a DS3231 on bus by reading its status register.
func New(bus i2c.Bus) (*DS3231, error) {
	d := &DS3231{dev: &i2c.Dev{Bus: bus, Addr: Addr}}
	status, err := d.readStatus()
	if err != nil {
		return nil, fmt.Errorf("detect ds3231: %w", err)
	}
	d.lostPower = status&statusOSF != 0
	if d.lostPower {
		log.Warn().Msg("RTC oscillator stopped; time is unreliable until set")
	}
	return d, nil
}

// Available is true once the chip answered at startup.
func (d *DS3231) Available() bool {
	return true
}

// LostPower reports whether the oscillator stopped before this boot and the
// time has not been set since.
func (d *DS3231) LostPower() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lostPower
}

func (d *DS3231) Now() (time.Time, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var r [7]byte
	if err := d.dev.Tx([]byte{regSeconds}, r[:]); err != nil {
		return time.Time{}, fmt.Errorf("read rtc: %w", err)
	}
	return decodeTime(r), nil
}

// Adjust writes t and clears the oscillator-stopped flag.
func (d *DS3231) Adjust(t time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	w := append([]byte{regSeconds}, encodeTime(t)...)
	if err := d.dev.Tx(w, nil); err != nil {
		return fmt.Errorf("write rtc: %w", err)
	}
	status, err := d.readStatus()
	if err != nil {
		return err
	}
	if status&statusOSF != 0 {
		if err := d.dev.Tx([]byte{regStatus, status &^ statusOSF}, nil); err != nil {
			return fmt.Errorf("clear rtc status: %w", err)
		}
	}
	d.lostPower = false
	return nil
}

// Close releases the bus if Open created it.
func (d *DS3231) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

func (d *DS3231) readStatus() (byte, error) {
	var r [1]byte
	if err := d.dev.Tx([]byte{regStatus}, r[:]); err != nil {
		return 0, fmt.Errorf("read rtc status: %w", err)
	}
	return r[0], nil
}

func decodeTime(r [7]byte) time.Time {
	sec := fromBCD(r[0] & 0x7F)
	minute := fromBCD(r[1] & 0x7F)

	var hour int
	if r[2]&hour12 != 0 {
		hour = fromBCD(r[2]&0x1F) % 12
		if r[2]&hourPM != 0 {
			hour += 12
		}
	} else {
		hour = fromBCD(r[2] & 0x3F)
	}

	day := fromBCD(r[4] & 0x3F)
	month := fromBCD(r[5] & 0x1F)
	year := 2000 + fromBCD(r[6])
	if r[5]&century != 0 {
		year += 100
	}
	return time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC)
}

// encodeTime produces registers 0x00..0x06 in 24-hour mode. The chip's
// day-of-week register runs 1..7 with 1 = Sunday.
func encodeTime(t time.Time) []byte {
	year := t.Year() - 2000
	var c byte
	if year >= 100 {
		year -= 100
		c = century
	}
	return []byte{
		toBCD(t.Second()),
		toBCD(t.Minute()),
		toBCD(t.Hour()),
		byte(t.Weekday()) + 1,
		toBCD(t.Day()),
		toBCD(int(t.Month())) | c,
		toBCD(year),
	}
}

func fromBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}

func toBCD(v int) byte {
	return byte(v/10)<<4 | byte(v%10)
}
