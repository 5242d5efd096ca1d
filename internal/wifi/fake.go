package wifi

import "sync"

// FakeConnector reports whatever the test sets.
type FakeConnector struct {
	mu       sync.Mutex
	Up       bool
	IP       string
	BeginErr error
	Begins   []string
}

func (f *FakeConnector) Begin(ssid, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Begins = append(f.Begins, ssid)
	return f.BeginErr
}

func (f *FakeConnector) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Up
}

func (f *FakeConnector) Address() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.Up {
		return ""
	}
	return f.IP
}

// SetUp flips the link state.
func (f *FakeConnector) SetUp(up bool) {
	f.mu.Lock()
	f.Up = up
	f.mu.Unlock()
}

var (
	_ Connector = (*NMCLI)(nil)
	_ Connector = (*FakeConnector)(nil)
)
