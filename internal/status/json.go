package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Time          string       `json:"time"`
	Date          string       `json:"date"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Display       DisplayJSON  `json:"display"`
	Battery       BatteryJSON  `json:"battery"`
	RTC           RTCJSON      `json:"rtc"`
	Sync          SyncJSON     `json:"sync"`
	Memory        MemoryJSON   `json:"memory"`
	ButtonPresses int          `json:"button_presses"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// DisplayJSON reports what the ring is showing.
type DisplayJSON struct {
	NightLight bool   `json:"night_light"`
	NightTest  bool   `json:"night_test"`
	Effect     string `json:"effect"`
	Brightness uint8  `json:"brightness"`
	Frames     uint64 `json:"frames"`
}

// BatteryJSON reports the backup cell.
type BatteryJSON struct {
	Voltage float64 `json:"voltage"`
	Percent int     `json:"percent"`
	Sampled bool    `json:"sampled"`
}

// RTCJSON reports the hardware clock.
type RTCJSON struct {
	Available bool `json:"available"`
	LostPower bool `json:"lost_power"`
}

// SyncJSON reports the last NTP attempt. LastAt is empty before the first.
type SyncJSON struct {
	Attempts int    `json:"attempts"`
	LastAt   string `json:"last_at,omitempty"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// MemoryJSON reports heap usage.
type MemoryJSON struct {
	AllocBytes uint64 `json:"alloc_bytes"`
	SysBytes   uint64 `json:"sys_bytes"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	State    string `json:"state"`
	SSID     string `json:"ssid"`
	IP       string `json:"ip"`
	Hostname string `json:"hostname"`
	Attempts int    `json:"attempts"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	Broker       string `json:"broker"`
	HTTPAddr     string `json:"http_addr"`
	Strip        string `json:"strip"`
	SettingsPath string `json:"settings_path"`
}

// Wall-clock layouts. Display times carry no meaningful zone.
const (
	timeLayout = "15:04:05"
	dateLayout = "2006-01-02"
)

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Display: DisplayJSON{
			NightLight: snap.Display.NightActive,
			NightTest:  snap.Display.NightTest,
			Effect:     snap.Display.Effect,
			Brightness: snap.Display.Brightness,
			Frames:     snap.Display.Frames,
		},
		Battery: BatteryJSON{
			Voltage: snap.Battery.Volts,
			Percent: snap.Battery.Percent,
			Sampled: snap.Battery.Sampled,
		},
		RTC: RTCJSON{Available: snap.RTCAvailable, LostPower: snap.RTCLostPower},
		Sync: SyncJSON{
			Attempts: snap.Sync.Attempts,
			OK:       snap.Sync.OK,
			Error:    snap.Sync.Error,
		},
		Memory:        MemoryJSON{AllocBytes: snap.Memory.AllocBytes, SysBytes: snap.Memory.SysBytes},
		ButtonPresses: snap.ButtonPresses,
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			HeartbeatMs:  snap.Config.HeartbeatMs,
			Broker:       snap.Config.Broker,
			HTTPAddr:     snap.Config.HTTPAddr,
			Strip:        snap.Config.Strip,
			SettingsPath: snap.Config.SettingsPath,
		},
	}
	if !snap.Display.Time.IsZero() {
		inner.Time = snap.Display.Time.Format(timeLayout)
		inner.Date = snap.Display.Time.Format(dateLayout)
	}
	if !snap.Sync.LastAt.IsZero() {
		inner.Sync.LastAt = snap.Sync.LastAt.Format(dateLayout + " " + timeLayout)
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			State:    snap.Network.State,
			SSID:     snap.Network.SSID,
			IP:       snap.Network.IP,
			Hostname: snap.Network.Hostname,
			Attempts: snap.Network.Attempts,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
