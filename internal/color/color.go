// Package color holds the RGB triplet used across the LED pipeline along with
// brightness scaling and hex conversion helpers.
package color

import (
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGB is one LED colour, 8 bits per channel.
type RGB struct {
	R uint8
	G uint8
	B uint8
}

var (
	Black = RGB{}
	White = RGB{R: 255, G: 255, B: 255}
)

// ClampPercent limits a brightness percentage to [0,100].
func ClampPercent(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// PercentTo255 clamps pct and maps it onto the strip's 0..255 brightness range.
func PercentTo255(pct int) uint8 {
	return uint8(ClampPercent(pct) * 255 / 100)
}

// Scale returns c with every channel multiplied by pct/100. No gamma is applied.
func (c RGB) Scale(pct int) RGB {
	p := uint32(ClampPercent(pct))
	return RGB{
		R: uint8(uint32(c.R) * p / 100),
		G: uint8(uint32(c.G) * p / 100),
		B: uint8(uint32(c.B) * p / 100),
	}
}

// Scale255 multiplies every channel by level/255.
func (c RGB) Scale255(level uint8) RGB {
	l := uint32(level)
	return RGB{
		R: uint8(uint32(c.R) * l / 255),
		G: uint8(uint32(c.G) * l / 255),
		B: uint8(uint32(c.B) * l / 255),
	}
}

// IsBlack reports whether all channels are zero.
func (c RGB) IsBlack() bool {
	return c == Black
}

// Hex formats c as a lowercase "#rrggbb" string.
func (c RGB) Hex() string {
	return c.colorful().Hex()
}

func (c RGB) String() string {
	return c.Hex()
}

func (c RGB) colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

func fromColorful(c colorful.Color) RGB {
	r, g, b := c.Clamped().RGB255()
	return RGB{R: r, G: g, B: b}
}

// HexToRGB parses a 7-character "#rrggbb" string. Upper and lower case hex
// digits are accepted.
func HexToRGB(s string) (RGB, error) {
	if len(s) != 7 || s[0] != '#' {
		return RGB{}, fmt.Errorf("invalid hex color %q: want #rrggbb", s)
	}
	c, err := colorful.Hex(strings.ToLower(s))
	if err != nil {
		return RGB{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return fromColorful(c), nil
}

// MustHex is HexToRGB for package-level literals.
func MustHex(s string) RGB {
	c, err := HexToRGB(s)
	if err != nil {
		panic(err)
	}
	return c
}

// FromHSV8 converts hue, saturation and value given on 0..255 scales.
func FromHSV8(h, s, v uint8) RGB {
	return fromColorful(colorful.Hsv(float64(h)*360.0/256.0, float64(s)/255.0, float64(v)/255.0))
}

// MarshalText encodes the colour as "#rrggbb" for YAML and JSON.
func (c RGB) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText decodes a "#rrggbb" string.
func (c *RGB) UnmarshalText(text []byte) error {
	parsed, err := HexToRGB(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
