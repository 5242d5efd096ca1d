// Package ring describes the 60-LED clock face and the frame buffer that is
// recomputed for it on every tick.
//
// Index 0 is the 12 o'clock position and indices increase clockwise in
// 6-degree steps. Every fifth index is also an hour marker.
package ring

import (
	"github.com/sweeney/ledclock/internal/clock"
	"github.com/sweeney/ledclock/internal/color"
)

const (
	Size         = clock.RingSize
	MarkerCount  = 12
	MarkerStride = Size / MarkerCount
)

// Frame is one full set of LED colours, index i driving ring position i.
type Frame [Size]color.RGB

// Clear turns every LED off.
func (f *Frame) Clear() {
	*f = Frame{}
}

// Lit returns the indices of all LEDs that are not black.
func (f *Frame) Lit() []int {
	var out []int
	for i, c := range f {
		if !c.IsBlack() {
			out = append(out, i)
		}
	}
	return out
}

// Bytes flattens the frame into R,G,B order, three bytes per LED.
func (f *Frame) Bytes() []byte {
	out := make([]byte, 0, Size*3)
	for _, c := range f {
		out = append(out, c.R, c.G, c.B)
	}
	return out
}

// Dimmed returns a copy of f with every LED scaled by brightness/255, which
// is how the physical strip renders a frame at that global brightness.
func (f Frame) Dimmed(brightness uint8) Frame {
	if brightness == 255 {
		return f
	}
	for i := range f {
		f[i] = f[i].Scale255(brightness)
	}
	return f
}

// IsMarker reports whether ring position i is an hour marker.
func IsMarker(i int) bool {
	return i%MarkerStride == 0
}

// Marker returns the ring position of hour marker m (0 = 12 o'clock).
func Marker(m int) int {
	return m * MarkerStride
}
