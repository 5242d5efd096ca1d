package strip

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/display/displaytest"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/sweeney/ledclock/internal/color"
	"github.com/sweeney/ledclock/internal/ring"
)

func redFrame() ring.Frame {
	var f ring.Frame
	for i := range f {
		f[i] = color.RGB{R: 255}
	}
	return f
}

func TestNRZ_ZeroBrightnessEncodesBlack(t *testing.T) {
	var dark, blank bytes.Buffer

	a, err := NewNRZ(spitest.NewRecordRaw(&dark))
	require.NoError(t, err)
	a.SetBrightness(0)
	require.NoError(t, a.Show(redFrame()))

	b, err := NewNRZ(spitest.NewRecordRaw(&blank))
	require.NoError(t, err)
	require.NoError(t, b.Show(ring.Frame{}))

	assert.NotZero(t, dark.Len())
	assert.Equal(t, blank.Bytes(), dark.Bytes())
}

func TestNRZ_LitFrameDiffersFromBlank(t *testing.T) {
	var lit, blank bytes.Buffer

	a, err := NewNRZ(spitest.NewRecordRaw(&lit))
	require.NoError(t, err)
	require.NoError(t, a.Show(redFrame()))

	b, err := NewNRZ(spitest.NewRecordRaw(&blank))
	require.NoError(t, err)
	require.NoError(t, b.Show(ring.Frame{}))

	assert.Equal(t, blank.Len(), lit.Len())
	assert.NotEqual(t, blank.Bytes(), lit.Bytes())
}

func TestNRZ_ShowAfterClose(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewNRZ(spitest.NewRecordRaw(&buf))
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Show(redFrame()), ErrClosed)
	assert.NoError(t, s.Close(), "second close is a no-op")
}

func TestConsole_DrawsDimmedFrame(t *testing.T) {
	d := &displaytest.Drawer{Img: image.NewNRGBA(image.Rect(0, 0, ring.Size, 1))}
	c := NewConsoleDrawer(d)
	c.SetBrightness(128)

	var f ring.Frame
	f[7] = color.RGB{R: 200, B: 100}
	require.NoError(t, c.Show(f))

	px := d.Img.NRGBAAt(7, 0)
	assert.Equal(t, uint8(100), px.R)
	assert.Equal(t, uint8(50), px.B)
	assert.Equal(t, uint8(0), d.Img.NRGBAAt(8, 0).R)

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Show(f), ErrClosed)
}

func TestFrameImage(t *testing.T) {
	var f ring.Frame
	f[0] = color.RGB{R: 1, G: 2, B: 3}
	img := FrameImage(f)
	assert.Equal(t, image.Rect(0, 0, ring.Size, 1), img.Bounds())
	px := img.NRGBAAt(0, 0)
	assert.Equal(t, [4]uint8{1, 2, 3, 255}, [4]uint8{px.R, px.G, px.B, px.A})
}

func TestFakeDriver(t *testing.T) {
	d := NewFakeDriver()
	_, _, ok := d.Last()
	assert.False(t, ok)

	d.SetBrightness(40)
	require.NoError(t, d.Show(redFrame()))
	f, level, ok := d.Last()
	require.True(t, ok)
	assert.Equal(t, uint8(40), level)
	assert.Equal(t, redFrame(), f)

	d.ShowError = errors.New("spi gone")
	assert.EqualError(t, d.Show(f), "spi gone")
	assert.Equal(t, 1, d.Shown())

	require.NoError(t, d.Close())
	assert.ErrorIs(t, d.Show(f), ErrClosed)
}

func TestDiscard(t *testing.T) {
	var d Driver = Discard{}
	d.SetBrightness(10)
	assert.NoError(t, d.Show(redFrame()))
	assert.NoError(t, d.Close())
}
