// Package effect animates the hour-marker LEDs between hand updates.
//
// An Engine is called once per tick after the markers have been painted at
// the background brightness and before the hands are drawn. It may rewrite
// marker colours and returns the global strip brightness for the frame.
package effect

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/sweeney/ledclock/internal/color"
	"github.com/sweeney/ledclock/internal/config"
	"github.com/sweeney/ledclock/internal/ring"
)

// Mode selects an effect. The numbering is part of the settings format.
type Mode int

const (
	Normal Mode = iota
	Fade
	Pulse
	Rainbow
	Wave
	Sparkle
	Fire
	Ice
)

var modeNames = [...]string{"normal", "fade", "pulse", "rainbow", "wave", "sparkle", "fire", "ice"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// Names lists the effect names in mode order.
func Names() []string {
	return modeNames[:]
}

// Fade reflects between these counter bounds.
const (
	FadeLow  = 50
	FadeHigh = 255
	FadeStep = 2
)

// Tuning for the procedural effects. Hues and values are on 0..255 scales.
const (
	pulsePeriod = 60
	wavePeriod  = 30
	waveOffset  = 8
	waveLow     = 50
	rainbowStep = 2
	rainbowGap  = 8

	sparkleChancePct = 10

	fireHueSpan  = 25
	fireValueMin = 180

	iceHue    = 150
	iceSat    = 200
	icePeriod = 40
	iceOffset = 5
	iceLow    = 60
)

// State is carried across ticks by effects that need continuity.
type State struct {
	Counter   uint8
	Direction bool // true while the fade counter is rising
}

// InitialState is the boot value.
func InitialState() State {
	return State{Counter: 0, Direction: true}
}

// Engine applies the configured effect. It is not safe for concurrent use.
type Engine struct {
	state State
	rng   *rand.Rand
}

// NewEngine returns an engine at the boot state. rng drives the sparkle and
// fire effects; nil seeds one from the current time.
func NewEngine(rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{state: InitialState(), rng: rng}
}

// State returns the current effect state.
func (e *Engine) State() State {
	return e.state
}

// Apply runs one tick of the configured effect over the marker LEDs of f.
// elapsedSec is the monotonic uptime in seconds and drives the periodic
// effects. The returned value is the global strip brightness (0..255).
//
// Switching modes does not reset State; an effect picks up whatever counter
// the previous one left behind.
func (e *Engine) Apply(f *ring.Frame, cfg *config.ClockConfig, elapsedSec int) uint8 {
	active := color.PercentTo255(cfg.ActiveBrightness)
	background := color.PercentTo255(cfg.BackgroundBrightness)

	switch Mode(cfg.EffectMode) {
	case Fade:
		e.stepFade()
		return scale(active, int(e.state.Counter))

	case Pulse:
		return scale(active, color.TriangleWave(elapsedSec, pulsePeriod, FadeLow, FadeHigh))

	case Rainbow:
		for m := 0; m < ring.MarkerCount; m++ {
			hue := (int(e.state.Counter) + m*rainbowGap) % 255
			f[ring.Marker(m)] = color.FromHSV8(uint8(hue), 255, background)
		}
		e.state.Counter += rainbowStep // uint8, wraps at 256

	case Wave:
		for m := 0; m < ring.MarkerCount; m++ {
			i := ring.Marker(m)
			level := color.TriangleWave(elapsedSec+m*waveOffset, wavePeriod, waveLow, 255)
			f[i] = f[i].Scale255(uint8(level))
		}

	case Sparkle:
		if e.rng.Intn(100) < sparkleChancePct {
			f[ring.Marker(e.rng.Intn(ring.MarkerCount))] = color.White
		}

	case Fire:
		for m := 0; m < ring.MarkerCount; m++ {
			hue := uint8(e.rng.Intn(fireHueSpan))
			val := uint8(fireValueMin + e.rng.Intn(256-fireValueMin))
			f[ring.Marker(m)] = color.FromHSV8(hue, 255, val)
		}

	case Ice:
		for m := 0; m < ring.MarkerCount; m++ {
			level := color.TriangleWave(elapsedSec+m*iceOffset, icePeriod, iceLow, 255)
			f[ring.Marker(m)] = color.FromHSV8(iceHue, iceSat, scale(background, level))
		}
	}
	return active
}

// stepFade moves the counter by FadeStep and reflects it at the bounds. The
// counter is clamped onto the bound it crossed before the direction flips,
// so it never leaves [0,255].
func (e *Engine) stepFade() {
	c := int(e.state.Counter)
	if e.state.Direction {
		c += FadeStep
		if c >= FadeHigh {
			c = FadeHigh
			e.state.Direction = false
		}
	} else {
		c -= FadeStep
		if c <= FadeLow {
			c = FadeLow
			e.state.Direction = true
		}
	}
	e.state.Counter = uint8(c)
}

func scale(level uint8, by int) uint8 {
	return uint8(int(level) * by / 255)
}
