// Package render composes the LED frame for one tick: either the night-light
// pattern or the clock face with its background effect and hands.
package render

import (
	"github.com/sweeney/ledclock/internal/clock"
	"github.com/sweeney/ledclock/internal/config"
	"github.com/sweeney/ledclock/internal/effect"
	"github.com/sweeney/ledclock/internal/nightlight"
	"github.com/sweeney/ledclock/internal/ring"
)

// NightBrightness is the global strip brightness while the night light is
// on. The pattern colours already carry the night-light brightness.
const NightBrightness = 255

// Result is a composed frame ready for the strip.
type Result struct {
	Frame      ring.Frame
	Brightness uint8
	Night      bool
	Hands      clock.Hands
}

// Compositor builds frames. It owns the effect engine and therefore the
// effect state that persists between ticks.
type Compositor struct {
	effects *effect.Engine
}

// NewCompositor returns a compositor driving the given effect engine.
func NewCompositor(effects *effect.Engine) *Compositor {
	return &Compositor{effects: effects}
}

// Effects returns the compositor's effect engine.
func (c *Compositor) Effects() *effect.Engine {
	return c.effects
}

// Compose renders the frame for now. nowMs is the monotonic millisecond
// clock; it drives the night-light test timeout and the periodic effects.
// The night-light check may clear an expired test in cfg.
func (c *Compositor) Compose(now clock.WallTime, cfg *config.ClockConfig, nowMs uint32) Result {
	r := Result{Hands: clock.HandPositions(now)}

	if nightlight.IsActive(now, &cfg.NightLight, nowMs) {
		nightlight.Render(&r.Frame, &cfg.NightLight, now, HandColors(cfg), nowMs)
		r.Brightness = NightBrightness
		r.Night = true
		return r
	}

	PaintMarkers(&r.Frame, cfg)
	r.Brightness = c.effects.Apply(&r.Frame, cfg, int(nowMs/1000))
	PaintHands(&r.Frame, r.Hands, cfg)
	return r
}

// PaintMarkers clears f and paints each hour marker in its colour at the
// background brightness.
func PaintMarkers(f *ring.Frame, cfg *config.ClockConfig) {
	f.Clear()
	for m := 0; m < ring.MarkerCount; m++ {
		f[ring.Marker(m)] = cfg.MarkerColors[m].Scale(cfg.BackgroundBrightness)
	}
}

// PaintHands draws the hands at full colour over whatever is in f. The
// second hand wins when hands overlap.
func PaintHands(f *ring.Frame, h clock.Hands, cfg *config.ClockConfig) {
	f[h.Hour] = cfg.HourColor
	f[h.Minute] = cfg.MinuteColor
	f[h.Second] = cfg.SecondColor
}

// HandColors extracts the hand colours for the night-light overlay.
func HandColors(cfg *config.ClockConfig) nightlight.HandColors {
	return nightlight.HandColors{Hour: cfg.HourColor, Minute: cfg.MinuteColor, Second: cfg.SecondColor}
}

// Preview renders a single frame with a fresh effect state. It is used by
// the print-frame command and the web preview of unsaved settings.
func Preview(now clock.WallTime, cfg config.ClockConfig, nowMs uint32) Result {
	return NewCompositor(effect.NewEngine(nil)).Compose(now, &cfg, nowMs)
}
