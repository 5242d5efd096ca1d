// Package status provides a thread-safe status tracker for the ledclock daemon.
// The device loop writes it; HTTP handlers and MQTT heartbeats read it.
package status

import (
	"runtime"
	"sync"
	"time"
)

// NetworkInfo contains WiFi state. The state is a plain string so status
// does not depend on the wifi package.
type NetworkInfo struct {
	State    string
	SSID     string
	IP       string
	Hostname string
	Attempts int // polls spent on the current connection attempt
}

// Battery is the last backup-cell reading.
type Battery struct {
	Volts   float64
	Percent int
	Sampled bool
}

// Sync describes the most recent NTP attempt.
type Sync struct {
	Attempts int
	LastAt   time.Time // wall time of the last attempt
	OK       bool
	Error    string
}

// Display is what the ring showed on the last tick.
type Display struct {
	Time        time.Time
	NightActive bool
	NightTest   bool
	Effect      string
	Brightness  uint8
	Frames      uint64
}

// Memory is the Go heap in use.
type Memory struct {
	AllocBytes uint64
	SysBytes   uint64
}

// Config contains daemon configuration for display.
type Config struct {
	HeartbeatMs  int64
	Broker       string
	HTTPAddr     string
	Strip        string
	SettingsPath string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	StartTime     time.Time
	Now           time.Time
	Network       *NetworkInfo
	Battery       Battery
	RTCAvailable  bool
	RTCLostPower  bool
	Sync          Sync
	Display       Display
	ButtonPresses int
	MQTTConnected bool
	Memory        Memory
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot

	now    func() time.Time
	memory func() Memory
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now:    time.Now,
		memory: readMemory,
	}
}

func readMemory() Memory {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return Memory{AllocBytes: ms.HeapAlloc, SysBytes: ms.Sys}
}

// SetDisplay records the frame shown on this tick and bumps the frame count.
func (t *Tracker) SetDisplay(wall time.Time, night, test bool, effect string, brightness uint8) {
	t.mu.Lock()
	d := &t.snap.Display
	d.Time = wall
	d.NightActive = night
	d.NightTest = test
	d.Effect = effect
	d.Brightness = brightness
	d.Frames++
	t.mu.Unlock()
}

// SetBattery records a battery sample.
func (t *Tracker) SetBattery(volts float64, percent int) {
	t.mu.Lock()
	t.snap.Battery = Battery{Volts: volts, Percent: percent, Sampled: true}
	t.mu.Unlock()
}

// SetRTC records whether a hardware clock is present.
func (t *Tracker) SetRTC(available, lostPower bool) {
	t.mu.Lock()
	t.snap.RTCAvailable = available
	t.snap.RTCLostPower = lostPower
	t.mu.Unlock()
}

// RecordSync records an NTP attempt made at wall time at.
func (t *Tracker) RecordSync(at time.Time, err error) {
	t.mu.Lock()
	s := &t.snap.Sync
	s.Attempts++
	s.LastAt = at
	s.OK = err == nil
	s.Error = ""
	if err != nil {
		s.Error = err.Error()
	}
	t.mu.Unlock()
}

// RecordButton counts a debounced button press.
func (t *Tracker) RecordButton() {
	t.mu.Lock()
	t.snap.ButtonPresses++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// Now and Memory are sampled at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	if s.Network != nil {
		n := *s.Network
		s.Network = &n
	}
	s.Now = t.now()
	s.Memory = t.memory()
	return s
}
