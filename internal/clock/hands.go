package clock

// Hands are the ring positions of the three clock hands.
type Hands struct {
	Hour   int
	Minute int
	Second int
}

// HandPositions maps a wall time onto the 60-position ring. The hour hand
// creeps through its five-LED sector as the minutes advance, one LED every
// twelve minutes.
func HandPositions(t WallTime) Hands {
	return Hands{
		Hour:   (t.Hour%12)*5 + t.Minute/12,
		Minute: t.Minute,
		Second: t.Second,
	}
}
