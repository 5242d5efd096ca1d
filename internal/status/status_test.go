package status

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

func fixedTracker(start time.Time, now time.Time) *Tracker {
	tr := NewTracker(start, Config{Broker: "tcp://localhost:1883", HTTPAddr: ":80", Strip: "spi"})
	tr.now = func() time.Time { return now }
	tr.memory = func() Memory { return Memory{AllocBytes: 1024, SysBytes: 4096} }
	return tr
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(start, Config{HeartbeatMs: 900000, HTTPAddr: ":80"})

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.HTTPAddr != ":80" {
		t.Errorf("Config.HTTPAddr: got %q, want %q", snap.Config.HTTPAddr, ":80")
	}
	if snap.MQTTConnected || snap.RTCAvailable || snap.Battery.Sampled {
		t.Error("expected zero state initially")
	}
	if snap.Memory.SysBytes == 0 {
		t.Error("expected memory stats to be sampled")
	}
}

func TestSetDisplayCountsFrames(t *testing.T) {
	tr := fixedTracker(time.Now(), time.Now())
	wall := time.Date(2026, 1, 1, 22, 15, 0, 0, time.UTC)

	tr.SetDisplay(wall, false, false, "rainbow", 204)
	tr.SetDisplay(wall.Add(time.Second), true, true, "rainbow", 255)

	d := tr.Snapshot().Display
	if d.Frames != 2 {
		t.Errorf("Frames: got %d, want 2", d.Frames)
	}
	if !d.NightActive || !d.NightTest {
		t.Error("expected night state from the latest tick")
	}
	if !d.Time.Equal(wall.Add(time.Second)) {
		t.Errorf("Time: got %v", d.Time)
	}
	if d.Brightness != 255 {
		t.Errorf("Brightness: got %d, want 255", d.Brightness)
	}
}

func TestRecordSync(t *testing.T) {
	tr := fixedTracker(time.Now(), time.Now())
	at := time.Date(2026, 1, 4, 3, 0, 0, 0, time.UTC)

	tr.RecordSync(at, errors.New("i/o timeout"))
	s := tr.Snapshot().Sync
	if s.OK || s.Error != "i/o timeout" || s.Attempts != 1 {
		t.Errorf("unexpected failed sync: %+v", s)
	}

	tr.RecordSync(at.Add(time.Hour), nil)
	s = tr.Snapshot().Sync
	if !s.OK || s.Error != "" || s.Attempts != 2 {
		t.Errorf("unexpected successful sync: %+v", s)
	}
}

func TestSetBatteryRTCButtonMQTT(t *testing.T) {
	tr := fixedTracker(time.Now(), time.Now())
	tr.SetBattery(3.15, 50)
	tr.SetRTC(true, true)
	tr.RecordButton()
	tr.RecordButton()
	tr.SetMQTTConnected(true)

	snap := tr.Snapshot()
	if snap.Battery != (Battery{Volts: 3.15, Percent: 50, Sampled: true}) {
		t.Errorf("Battery: got %+v", snap.Battery)
	}
	if !snap.RTCAvailable || !snap.RTCLostPower {
		t.Error("expected RTC available and lost power")
	}
	if snap.ButtonPresses != 2 {
		t.Errorf("ButtonPresses: got %d, want 2", snap.ButtonPresses)
	}
	if !snap.MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := fixedTracker(start, start.Add(90*time.Minute))
	if got := tr.Snapshot().Uptime(); got != 90*time.Minute {
		t.Errorf("Uptime: got %v, want 90m", got)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := fixedTracker(time.Now(), time.Now())
	tr.SetNetwork(&NetworkInfo{State: "connected", IP: "10.0.0.2"})
	tr.SetBattery(3.3, 100)

	snap1 := tr.Snapshot()
	snap1.Network.IP = "mutated"

	tr.SetBattery(3.0, 0)

	if snap1.Battery.Percent != 100 {
		t.Error("snapshot should be a copy; battery was modified")
	}
	if tr.Snapshot().Network.IP != "10.0.0.2" {
		t.Error("mutating a snapshot should not reach the tracker")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := fixedTracker(start, start.Add(15*time.Minute))
	tr.SetDisplay(time.Date(2026, 1, 1, 7, 8, 9, 0, time.UTC), false, false, "fire", 204)
	tr.SetBattery(3.15, 50)
	tr.SetMQTTConnected(true)

	data := FormatJSON(tr.Snapshot())

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.Time != "07:08:09" || s.Date != "2026-01-01" {
		t.Errorf("Time/Date: got %q %q", s.Time, s.Date)
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if s.Display.Effect != "fire" || s.Display.Frames != 1 {
		t.Errorf("Display: got %+v", s.Display)
	}
	if s.Battery.Percent != 50 {
		t.Errorf("Battery.Percent: got %d, want 50", s.Battery.Percent)
	}
	if !s.MQTT.Connected || s.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("MQTT: got %+v", s.MQTT)
	}
	if s.Memory.AllocBytes != 1024 {
		t.Errorf("Memory.AllocBytes: got %d", s.Memory.AllocBytes)
	}
	if s.Event != "" || s.Reason != "" {
		t.Error("event and reason should be empty for web format")
	}
	if s.Sync.LastAt != "" {
		t.Errorf("Sync.LastAt should be empty before any sync, got %q", s.Sync.LastAt)
	}
	if s.Network != nil {
		t.Error("Network should be omitted when unset")
	}
}

func TestFormatJSONWithSyncAndNetwork(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := fixedTracker(start, start.Add(time.Minute))
	tr.SetNetwork(&NetworkInfo{State: "connected", SSID: "MyNet", IP: "192.168.1.42", Hostname: "ledclock", Attempts: 3})
	tr.RecordSync(time.Date(2026, 1, 4, 3, 0, 0, 0, time.UTC), nil)

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Network == nil || parsed.Status.Network.IP != "192.168.1.42" {
		t.Fatalf("Network: got %+v", parsed.Status.Network)
	}
	if parsed.Status.Network.Attempts != 3 {
		t.Errorf("Network.Attempts: got %d, want 3", parsed.Status.Network.Attempts)
	}
	if parsed.Status.Sync.LastAt != "2026-01-04 03:00:00" || !parsed.Status.Sync.OK {
		t.Errorf("Sync: got %+v", parsed.Status.Sync)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := fixedTracker(start, start.Add(30*time.Minute))

	data := FormatStatusEvent(tr.Snapshot(), "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("got event %q reason %q", parsed.Status.Event, parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	data := FormatStatusEvent(fixedTracker(start, start).Snapshot(), "STARTUP", "")

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.SetDisplay(time.Now(), i%2 == 0, false, "normal", 200)
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
		}
	}()

	wg.Wait()
}
