// Package nightlight decides when the night light is on and renders its
// illumination patterns.
package nightlight

import (
	"github.com/sweeney/ledclock/internal/clock"
	"github.com/sweeney/ledclock/internal/config"
)

// TestDurationMs is how long a manual test keeps the night light on.
const TestDurationMs = 10_000

// IsActive reports whether the night light should be lit at now.
//
// A running test wins over the schedule. Once the test has run for
// TestDurationMs the call clears cfg.TestActive and reports false, so the
// query mutates cfg on exactly that transition.
//
// The window is [Start, End) in minutes of day. When Start > End it wraps
// past midnight. Start == End is an empty window and is never active.
func IsActive(now clock.WallTime, cfg *config.NightLight, nowMs uint32) bool {
	if cfg.TestActive {
		if nowMs-cfg.TestStartedAtMs < TestDurationMs {
			return true
		}
		cfg.TestActive = false
		return false
	}
	if !cfg.Enabled {
		return false
	}
	return InWindow(now.MinuteOfDay(), cfg.Start.Minutes(), cfg.End.Minutes())
}

// InWindow is the pure window test behind IsActive.
func InWindow(cur, start, end int) bool {
	if start > end {
		return cur >= start || cur < end
	}
	return start <= cur && cur < end
}

// StartTest turns the night light on for TestDurationMs from nowMs. Calling
// it while a test runs restarts the countdown.
func StartTest(cfg *config.NightLight, nowMs uint32) {
	cfg.TestActive = true
	cfg.TestStartedAtMs = nowMs
}

// Transition is a change of night-light state between two ticks.
type Transition int

const (
	NoChange Transition = iota
	TurnedOn
	TurnedOff
)

// Watcher remembers the previous decision so callers can react to edges.
type Watcher struct {
	active bool
}

// Observe records the latest decision and returns the edge, if any.
func (w *Watcher) Observe(active bool) Transition {
	if active == w.active {
		return NoChange
	}
	w.active = active
	if active {
		return TurnedOn
	}
	return TurnedOff
}
