package config

import (
	"fmt"

	"github.com/sweeney/ledclock/internal/color"
)

// EffectSettings is the effect-config update.
type EffectSettings struct {
	Mode                 int `json:"effectMode"`
	ActiveBrightness     int `json:"activeBrightness"`
	BackgroundBrightness int `json:"backgroundBrightness"`
}

// ColorSettings is the colour-config update.
type ColorSettings struct {
	Hour    color.RGB                   `json:"hourColor"`
	Minute  color.RGB                   `json:"minuteColor"`
	Second  color.RGB                   `json:"secondColor"`
	Markers [MarkerColorCount]color.RGB `json:"markerColors"`
}

// Edits build an update from the live settings. The device runs them on its
// loop, so no other update can land between the read and the write.
type (
	NetworkEdit    func(cur ClockConfig) (Network, SyncSchedule, error)
	ColorEdit      func(cur ColorSettings) (ColorSettings, error)
	NightLightEdit func(cur NightLight) (NightLight, error)
)

// Effect returns the current effect settings.
func (c *ClockConfig) Effect() EffectSettings {
	return EffectSettings{
		Mode:                 c.EffectMode,
		ActiveBrightness:     c.ActiveBrightness,
		BackgroundBrightness: c.BackgroundBrightness,
	}
}

// SetEffect selects the background effect and brightness levels.
// Brightness values are clamped to [0,100].
func (c *ClockConfig) SetEffect(e EffectSettings) error {
	if e.Mode < 0 || e.Mode >= EffectCount {
		return fmt.Errorf("%w: effect mode %d not in [0,%d]", ErrInvalid, e.Mode, EffectCount-1)
	}
	c.EffectMode = e.Mode
	c.ActiveBrightness = color.ClampPercent(e.ActiveBrightness)
	c.BackgroundBrightness = color.ClampPercent(e.BackgroundBrightness)
	return nil
}

// Colors returns the current hand and marker colours.
func (c *ClockConfig) Colors() ColorSettings {
	return ColorSettings{
		Hour:    c.HourColor,
		Minute:  c.MinuteColor,
		Second:  c.SecondColor,
		Markers: c.MarkerColors,
	}
}

// SetColors replaces the hand and marker colours.
func (c *ClockConfig) SetColors(s ColorSettings) {
	c.HourColor = s.Hour
	c.MinuteColor = s.Minute
	c.SecondColor = s.Second
	c.MarkerColors = s.Markers
}

// SetNightLight replaces the persisted night-light fields. A running test
// keeps running.
func (c *ClockConfig) SetNightLight(n NightLight) error {
	if err := n.Validate(); err != nil {
		return err
	}
	n.Brightness = color.ClampPercent(n.Brightness)
	n.TestActive = c.NightLight.TestActive
	n.TestStartedAtMs = c.NightLight.TestStartedAtMs
	c.NightLight = n
	return nil
}

// SetNetwork replaces the network settings and reports whether the station
// credentials changed. An empty password keeps the stored one for the same
// SSID.
func (c *ClockConfig) SetNetwork(n Network) (wifiChanged bool) {
	if n.Password == "" && n.SSID == c.Network.SSID {
		n.Password = c.Network.Password
	}
	if n.NTPServer == "" {
		n.NTPServer = c.Network.NTPServer
	}
	if n.Hostname == "" {
		n.Hostname = c.Network.Hostname
	}
	wifiChanged = n.SSID != c.Network.SSID || n.Password != c.Network.Password
	c.Network = n
	return wifiChanged
}

// SetSyncSchedule replaces the weekly NTP sync slot.
func (c *ClockConfig) SetSyncSchedule(s SyncSchedule) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.Sync = s
	return nil
}
