package ntp

import "sync"

// FakeClient returns a scripted result from Update.
type FakeClient struct {
	mu      sync.Mutex
	Epoch   int64
	Err     error
	Updates int
}

func (f *FakeClient) Update() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Updates++
	return f.Err
}

func (f *FakeClient) EpochTime() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Epoch
}

// Calls returns how many times Update ran.
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Updates
}

var (
	_ Client = (*Querier)(nil)
	_ Client = (*FakeClient)(nil)
)
