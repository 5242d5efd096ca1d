// Package wifi runs the station connection as a non-blocking state machine
// stepped from the device loop.
package wifi

import (
	"github.com/rs/zerolog/log"
)

// State of the station connection.
type State int

const (
	Idle State = iota
	Connecting
	Connected
	Failed
)

var stateNames = [...]string{"idle", "connecting", "connected", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText encodes the state name for JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	DefaultMaxAttempts      = 20
	DefaultAttemptTimeoutMs = 500
	DefaultRetryAfterMs     = 60_000
)

// Connector starts association with an access point and reports progress.
// Begin must not block.
type Connector interface {
	Begin(ssid, password string) error
	Connected() bool
	Address() string
}

// Machine bounds a connection attempt to MaxAttempts polls spaced
// AttemptTimeoutMs apart. A failed attempt starts over after RetryAfterMs.
type Machine struct {
	MaxAttempts      int
	AttemptTimeoutMs uint32
	RetryAfterMs     uint32

	conn     Connector
	state    State
	ssid     string
	password string
	attempts int
	lastMs   uint32
}

// NewMachine returns an idle machine using conn.
func NewMachine(conn Connector) *Machine {
	return &Machine{
		MaxAttempts:      DefaultMaxAttempts,
		AttemptTimeoutMs: DefaultAttemptTimeoutMs,
		RetryAfterMs:     DefaultRetryAfterMs,
		conn:             conn,
	}
}

// Begin starts connecting to ssid. An empty ssid leaves the machine idle.
func (m *Machine) Begin(ssid, password string, nowMs uint32) {
	m.ssid = ssid
	m.password = password
	m.attempts = 0
	m.lastMs = nowMs

	if ssid == "" {
		m.state = Idle
		return
	}
	if err := m.conn.Begin(ssid, password); err != nil {
		log.Error().Err(err).Str("ssid", ssid).Msg("WiFi connect failed to start")
		m.state = Failed
		return
	}
	log.Info().Str("ssid", ssid).Msg("WiFi connecting")
	m.state = Connecting
}

// Step advances the machine and returns the state after the step. It never
// blocks; call it every loop iteration.
func (m *Machine) Step(nowMs uint32) State {
	switch m.state {
	case Connecting:
		if m.conn.Connected() {
			m.state = Connected
			log.Info().Str("ssid", m.ssid).Str("ip", m.conn.Address()).Int("attempts", m.attempts).Msg("WiFi connected")
			return m.state
		}
		if nowMs-m.lastMs < m.AttemptTimeoutMs {
			return m.state
		}
		m.lastMs = nowMs
		m.attempts++
		if m.attempts >= m.MaxAttempts {
			m.state = Failed
			log.Warn().Str("ssid", m.ssid).Int("attempts", m.attempts).Msg("WiFi connect gave up")
		}
	case Connected:
		if !m.conn.Connected() {
			log.Warn().Str("ssid", m.ssid).Msg("WiFi link lost")
			m.Begin(m.ssid, m.password, nowMs)
		}
	case Failed:
		if nowMs-m.lastMs >= m.RetryAfterMs {
			log.Info().Str("ssid", m.ssid).Msg("WiFi retrying")
			m.Begin(m.ssid, m.password, nowMs)
		}
	}
	return m.state
}

func (m *Machine) State() State  { return m.state }
func (m *Machine) SSID() string  { return m.ssid }
func (m *Machine) Attempts() int { return m.attempts }

// Connected is shorthand for State() == Connected.
func (m *Machine) Connected() bool {
	return m.state == Connected
}

// Address returns the station IP while connected.
func (m *Machine) Address() string {
	if m.state != Connected {
		return ""
	}
	return m.conn.Address()
}
