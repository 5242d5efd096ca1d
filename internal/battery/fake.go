package battery

import "sync"

// FakeSampler returns a settable voltage.
type FakeSampler struct {
	mu      sync.Mutex
	Volts   float64
	Err     error
	Samples int
}

func (f *FakeSampler) Voltage() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Samples++
	if f.Err != nil {
		return 0, f.Err
	}
	return f.Volts, nil
}

// Set changes the reported voltage.
func (f *FakeSampler) Set(v float64) {
	f.mu.Lock()
	f.Volts = v
	f.mu.Unlock()
}

var (
	_ Sampler = (*ADC)(nil)
	_ Sampler = (*FakeSampler)(nil)
)
