package rtc

import (
	"sync"
	"time"
)

// FakeSource is a settable Source for tests.
type FakeSource struct {
	mu        sync.Mutex
	Time      time.Time
	Hardware  bool
	ReadError error
	Adjusted  []time.Time
}

func NewFakeSource(t time.Time) *FakeSource {
	return &FakeSource{Time: t, Hardware: true}
}

func (f *FakeSource) Now() (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return time.Time{}, f.ReadError
	}
	return f.Time, nil
}

func (f *FakeSource) Adjust(t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Time = t
	f.Adjusted = append(f.Adjusted, t)
	return nil
}

func (f *FakeSource) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Hardware
}

// Set moves the fake clock without recording an adjustment.
func (f *FakeSource) Set(t time.Time) {
	f.mu.Lock()
	f.Time = t
	f.mu.Unlock()
}

var (
	_ Source = (*DS3231)(nil)
	_ Source = (*SoftClock)(nil)
	_ Source = (*FakeSource)(nil)
)
