package nightlight

import (
	"math"

	"github.com/sweeney/ledclock/internal/clock"
	"github.com/sweeney/ledclock/internal/color"
	"github.com/sweeney/ledclock/internal/config"
	"github.com/sweeney/ledclock/internal/ring"
)

// Bottom arc, inclusive: 4 o'clock through 8 o'clock around the 6.
const (
	BottomArcFirst = 20
	BottomArcLast  = 40
)

// CustomMaskBits is the number of ring positions the custom pattern reaches.
const CustomMaskBits = 32

// Breathing pulse timing and floor.
const (
	BreathPeriodMs   = 4000
	breathFloorShare = 10 // percent of the configured brightness
)

// CornerPositions are 12, 3, 6 and 9 o'clock.
var CornerPositions = [4]int{0, 15, 30, 45}

// HandColors are the full-brightness hand colours used by the time overlay.
type HandColors struct {
	Hour   color.RGB
	Minute color.RGB
	Second color.RGB
}

// OverlayPercent is the brightness of the hands drawn over the night light.
const OverlayPercent = 25

// Render clears f and draws the configured pattern. When ShowTime is set the
// three hands are drawn last at OverlayPercent of their colours.
func Render(f *ring.Frame, cfg *config.NightLight, now clock.WallTime, hands HandColors, nowMs uint32) {
	f.Clear()
	night := cfg.Color.Scale(cfg.Brightness)

	switch cfg.Mode {
	case config.NightBottom:
		for i := BottomArcFirst; i <= BottomArcLast; i++ {
			f[i] = night
		}
	case config.NightCorners:
		for _, i := range CornerPositions {
			f[i] = night
		}
	case config.NightCustom:
		for i := 0; i < CustomMaskBits; i++ {
			if cfg.CustomMask&(1<<uint(i)) != 0 {
				f[i] = night
			}
		}
	case config.NightBreathing:
		c := cfg.Color.Scale(BreathPercent(cfg.Brightness, nowMs))
		for m := 0; m < ring.MarkerCount; m++ {
			f[ring.Marker(m)] = c
		}
	}

	if cfg.ShowTime {
		h := clock.HandPositions(now)
		f[h.Hour] = hands.Hour.Scale(OverlayPercent)
		f[h.Minute] = hands.Minute.Scale(OverlayPercent)
		f[h.Second] = hands.Second.Scale(OverlayPercent)
	}
}

// BreathPercent is the shared brightness of the breathing pattern: a raised
// cosine between a tenth of peak and peak, one cycle per BreathPeriodMs.
func BreathPercent(peak int, nowMs uint32) int {
	peak = color.ClampPercent(peak)
	floor := peak * breathFloorShare / 100
	phase := float64(nowMs%BreathPeriodMs) / BreathPeriodMs
	level := (1 - math.Cos(2*math.Pi*phase)) / 2
	return floor + int(math.Round(float64(peak-floor)*level))
}
