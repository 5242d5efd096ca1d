package gpio

// Edge is a debounced button transition.
type Edge int

const (
	NoEdge Edge = iota
	Pressed
	Released
)

func (e Edge) String() string {
	switch e {
	case Pressed:
		return "PRESSED"
	case Released:
		return "RELEASED"
	}
	return "NONE"
}

// DefaultDebounceMs is how long a level must hold before it counts.
const DefaultDebounceMs = 50

// Debouncer turns raw samples into edges. The first stable level becomes the
// baseline and produces no edge, so a button held at boot does not fire.
type Debouncer struct {
	debounceMs uint32

	stable       bool
	pending      bool
	hasPending   bool
	pendingSince uint32
	baselined    bool
}

// NewDebouncer creates a debouncer that needs debounceMs of a steady level.
func NewDebouncer(debounceMs uint32) *Debouncer {
	return &Debouncer{debounceMs: debounceMs}
}

// Process feeds one sample taken at nowMs.
func (d *Debouncer) Process(pressed bool, nowMs uint32) Edge {
	if !d.baselined {
		if !d.hasPending || d.pending != pressed {
			// Start observing, or restart on change.
			d.pending = pressed
			d.hasPending = true
			d.pendingSince = nowMs
			return NoEdge
		}
		if nowMs-d.pendingSince >= d.debounceMs {
			d.stable = pressed
			d.baselined = true
			d.hasPending = false
		}
		return NoEdge
	}

	if pressed == d.stable {
		d.hasPending = false
		return NoEdge
	}

	if !d.hasPending || d.pending != pressed {
		d.pending = pressed
		d.hasPending = true
		d.pendingSince = nowMs
		return NoEdge
	}

	if nowMs-d.pendingSince < d.debounceMs {
		return NoEdge
	}
	d.stable = pressed
	d.hasPending = false
	if pressed {
		return Pressed
	}
	return Released
}
