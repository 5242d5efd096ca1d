package rtc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

var sample = time.Date(2024, time.March, 10, 14, 5, 9, 0, time.UTC) // a Sunday

var sampleRegs = []byte{0x09, 0x05, 0x14, 0x01, 0x10, 0x03, 0x24}

func TestDS3231_ProbeAndRead(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: Addr, W: []byte{regStatus}, R: []byte{0x00}},
			{Addr: Addr, W: []byte{regSeconds}, R: sampleRegs},
		},
	}
	d, err := New(bus)
	require.NoError(t, err)
	assert.True(t, d.Available())
	assert.False(t, d.LostPower())

	got, err := d.Now()
	require.NoError(t, err)
	assert.Equal(t, sample, got)
	assert.NoError(t, bus.Close())
}

func TestDS3231_AdjustClearsOscillatorFlag(t *testing.T) {
	w := append([]byte{regSeconds}, sampleRegs...)
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: Addr, W: []byte{regStatus}, R: []byte{0x88}},
			{Addr: Addr, W: w},
			{Addr: Addr, W: []byte{regStatus}, R: []byte{0x88}},
			{Addr: Addr, W: []byte{regStatus, 0x08}},
		},
	}
	d, err := New(bus)
	require.NoError(t, err)
	assert.True(t, d.LostPower())

	require.NoError(t, d.Adjust(sample))
	assert.False(t, d.LostPower())
	assert.NoError(t, bus.Close())
}

func TestDS3231_ProbeFailure(t *testing.T) {
	bus := &i2ctest.Playback{DontPanic: true}
	_, err := New(bus)
	assert.Error(t, err)
}

func TestDecodeTime_TwelveHourMode(t *testing.T) {
	regs := [7]byte{0x00, 0x30, hour12 | hourPM | 0x11, 0x02, 0x01, 0x01, 0x25}
	got := decodeTime(regs)
	assert.Equal(t, 23, got.Hour())
	assert.Equal(t, 30, got.Minute())

	regs[2] = hour12 | 0x12 // 12 AM
	assert.Equal(t, 0, decodeTime(regs).Hour())
}

func TestEncodeDecodeCentury(t *testing.T) {
	ts := time.Date(2101, time.July, 4, 23, 59, 58, 0, time.UTC)
	var regs [7]byte
	copy(regs[:], encodeTime(ts))
	assert.Equal(t, byte(century|0x07), regs[5])
	assert.Equal(t, ts, decodeTime(regs))
}

func TestBCD(t *testing.T) {
	for v := 0; v < 100; v++ {
		assert.Equal(t, v, fromBCD(toBCD(v)))
	}
	assert.Equal(t, byte(0x59), toBCD(59))
}

func TestSoftClock(t *testing.T) {
	c := NewSoftClock(DefaultSoftStart)
	assert.False(t, c.Available())

	c.Advance(time.Second)
	c.Advance(time.Second)
	now, err := c.Now()
	require.NoError(t, err)
	assert.Equal(t, DefaultSoftStart.Add(2*time.Second), now)

	require.NoError(t, c.Adjust(time.Date(2025, 1, 2, 3, 4, 5, 999, time.FixedZone("x", 3600))))
	now, _ = c.Now()
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), now, "wall fields kept, zone dropped")
}

func TestFromEpoch(t *testing.T) {
	epoch := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC), FromEpoch(epoch, 3600))
	assert.Equal(t, time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC), FromEpoch(epoch, -5*3600))
}

func TestFakeSource(t *testing.T) {
	f := NewFakeSource(sample)
	assert.True(t, f.Available())
	require.NoError(t, f.Adjust(sample.Add(time.Hour)))
	now, err := f.Now()
	require.NoError(t, err)
	assert.Equal(t, sample.Add(time.Hour), now)
	assert.Len(t, f.Adjusted, 1)
}
