package color

// TriangleWave returns a value that ramps linearly from lo up to hi over the
// first half of period and back down over the second half. t may be any
// integer; it is reduced modulo period.
func TriangleWave(t, period, lo, hi int) int {
	if period < 2 {
		return hi
	}
	p := t % period
	if p < 0 {
		p += period
	}
	half := period / 2
	span := hi - lo
	if p < half {
		return lo + span*p/half
	}
	return hi - span*(p-half)/(period-half)
}
