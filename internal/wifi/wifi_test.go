package wifi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_EmptySSIDStaysIdle(t *testing.T) {
	fc := &FakeConnector{}
	m := NewMachine(fc)
	m.Begin("", "", 0)
	assert.Equal(t, Idle, m.Step(1000))
	assert.Empty(t, fc.Begins)
}

func TestMachine_Connects(t *testing.T) {
	fc := &FakeConnector{IP: "192.168.1.20"}
	m := NewMachine(fc)
	m.Begin("home", "secret", 0)
	require.Equal(t, Connecting, m.State())
	assert.Equal(t, []string{"home"}, fc.Begins)
	assert.Equal(t, "", m.Address())

	assert.Equal(t, Connecting, m.Step(100))
	fc.SetUp(true)
	assert.Equal(t, Connected, m.Step(200))
	assert.True(t, m.Connected())
	assert.Equal(t, "192.168.1.20", m.Address())
}

func TestMachine_GivesUpAfterMaxAttempts(t *testing.T) {
	fc := &FakeConnector{}
	m := NewMachine(fc)
	m.MaxAttempts = 3
	m.AttemptTimeoutMs = 100
	m.Begin("home", "", 0)

	assert.Equal(t, Connecting, m.Step(50), "inside first window")
	assert.Equal(t, 0, m.Attempts())
	assert.Equal(t, Connecting, m.Step(100))
	assert.Equal(t, Connecting, m.Step(200))
	assert.Equal(t, Failed, m.Step(300))
	assert.Equal(t, 3, m.Attempts())

	assert.Equal(t, Failed, m.Step(10_000), "inside the retry delay")
	assert.Len(t, fc.Begins, 1)
}

func TestMachine_RetriesAfterFailure(t *testing.T) {
	fc := &FakeConnector{}
	m := NewMachine(fc)
	m.MaxAttempts = 2
	m.AttemptTimeoutMs = 100
	m.RetryAfterMs = 5000
	m.Begin("home", "pw", 0)

	m.Step(100)
	require.Equal(t, Failed, m.Step(200))
	assert.Equal(t, Failed, m.Step(5199))

	assert.Equal(t, Connecting, m.Step(5200))
	assert.Equal(t, 0, m.Attempts())
	assert.Equal(t, []string{"home", "home"}, fc.Begins)

	fc.SetUp(true)
	assert.Equal(t, Connected, m.Step(5201))
	assert.Equal(t, "home", m.SSID())
}

func TestMachine_RetriesAfterBeginError(t *testing.T) {
	fc := &FakeConnector{BeginErr: errors.New("nmcli busy")}
	m := NewMachine(fc)
	m.RetryAfterMs = 1000
	m.Begin("home", "", 0)
	require.Equal(t, Failed, m.State())

	fc.mu.Lock()
	fc.BeginErr = nil
	fc.mu.Unlock()
	assert.Equal(t, Connecting, m.Step(1000))
}

func TestMachine_BeginError(t *testing.T) {
	fc := &FakeConnector{BeginErr: errors.New("nmcli missing")}
	m := NewMachine(fc)
	m.Begin("home", "", 0)
	assert.Equal(t, Failed, m.State())
}

func TestMachine_ReconnectsOnLinkLoss(t *testing.T) {
	fc := &FakeConnector{Up: true}
	m := NewMachine(fc)
	m.Begin("home", "pw", 0)
	require.Equal(t, Connected, m.Step(1))

	fc.SetUp(false)
	assert.Equal(t, Connecting, m.Step(5000))
	assert.Equal(t, []string{"home", "home"}, fc.Begins)
}

func TestMachine_MillisWrap(t *testing.T) {
	fc := &FakeConnector{}
	m := NewMachine(fc)
	m.MaxAttempts = 1
	m.AttemptTimeoutMs = 100
	start := ^uint32(0) - 20
	m.Begin("home", "", start)
	assert.Equal(t, Connecting, m.Step(start+50))
	assert.Equal(t, Failed, m.Step(start+100))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "unknown", State(9).String())
	b, err := Failed.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "failed", string(b))
}

func TestInterfaceIPv4_Missing(t *testing.T) {
	assert.Equal(t, "", InterfaceIPv4("does-not-exist0"))
}
