package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/ledclock/internal/clock"
	"github.com/sweeney/ledclock/internal/config"
	"github.com/sweeney/ledclock/internal/mqtt"
	"github.com/sweeney/ledclock/internal/render"
	"github.com/sweeney/ledclock/internal/status"
	"github.com/sweeney/ledclock/internal/strip"
	"github.com/sweeney/ledclock/internal/web"
)

func TestSignalName(t *testing.T) {
	assert.Equal(t, "SIGINT", signalName(syscall.SIGINT))
	assert.Equal(t, "SIGTERM", signalName(syscall.SIGTERM))
	assert.Equal(t, "UNKNOWN", signalName(syscall.SIGHUP))
}

func TestOpenStrip(t *testing.T) {
	drv, err := openStrip("console", "")
	require.NoError(t, err)
	assert.IsType(t, &strip.Console{}, drv)

	drv, err = openStrip("none", "")
	require.NoError(t, err)
	assert.Equal(t, strip.Discard{}, drv)

	_, err = openStrip("apa102", "")
	assert.ErrorContains(t, err, "unknown strip driver")
}

func newTracker() *status.Tracker {
	return status.NewTracker(time.Now(), status.Config{Broker: "tcp://broker:1883", Strip: "none"})
}

func TestPublishSystemStartupRetained(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.Connected = true
	tracker := newTracker()

	publishSystem(pub, tracker, "STARTUP", "")

	require.Len(t, pub.SystemEvents, 1)
	e := pub.SystemEvents[0]
	assert.Equal(t, "STARTUP", e.Event)
	assert.True(t, e.Retained)
	assert.Contains(t, string(e.RawPayload), `"event":"STARTUP"`)
	assert.True(t, tracker.Snapshot().MQTTConnected)
}

func TestPublishSystemShutdownReason(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	publishSystem(pub, newTracker(), "SHUTDOWN", "SIGTERM")

	require.Len(t, pub.SystemEvents, 1)
	assert.True(t, pub.SystemEvents[0].Retained)
	assert.Contains(t, string(pub.SystemPayloads[0]), `"reason":"SIGTERM"`)
}

func TestPublishSystemNilPublisher(t *testing.T) {
	assert.NotPanics(t, func() { publishSystem(nil, newTracker(), "STARTUP", "") })
}

func TestPublishSystemError(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.PublishSystemError = assert.AnError
	assert.NotPanics(t, func() { publishSystem(pub, newTracker(), "HEARTBEAT", "") })
	assert.Empty(t, pub.SystemEvents)
}

func TestHeartbeatLoop(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	tick := make(chan time.Time)
	dying := make(chan struct{})
	done := make(chan struct{})

	go func() {
		heartbeatLoop(dying, pub, newTracker(), tick)
		close(done)
	}()

	tick <- time.Now()
	tick <- time.Now()
	close(dying)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("heartbeat loop did not stop")
	}
	assert.Equal(t, []string{"HEARTBEAT", "HEARTBEAT"}, pub.SystemEventNames())
	for _, e := range pub.SystemEvents {
		assert.False(t, e.Retained)
	}
}

func newWebServer(addr string) *web.Server {
	return web.New(addr, newTracker(), web.NewFakeController(time.Now()), web.NewHub())
}

func TestServeHTTPShutdown(t *testing.T) {
	dying := make(chan struct{})
	errc := make(chan error, 1)
	go func() { errc <- serveHTTP(dying, newWebServer("127.0.0.1:0"), "127.0.0.1:0") }()

	close(dying)
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serveHTTP did not return after shutdown")
	}
}

func TestServeHTTPListenErrorKeepsRunning(t *testing.T) {
	errc := make(chan error, 1)
	go func() { errc <- serveHTTP(make(chan struct{}), newWebServer("no-port"), "no-port") }()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serveHTTP did not return on listen failure")
	}
}

func TestStationIP(t *testing.T) {
	tracker := newTracker()
	assert.Equal(t, "", stationIP(tracker))

	tracker.SetNetwork(&status.NetworkInfo{State: "connected", IP: "192.168.1.50"})
	assert.Equal(t, "192.168.1.50", stationIP(tracker))
}

func TestLinkUp(t *testing.T) {
	tracker := newTracker()
	assert.False(t, linkUp(tracker.Snapshot()))

	tracker.SetNetwork(&status.NetworkInfo{State: "failed", Attempts: 20})
	assert.False(t, linkUp(tracker.Snapshot()))

	tracker.SetNetwork(&status.NetworkInfo{State: "connected", IP: "192.168.1.50"})
	assert.True(t, linkUp(tracker.Snapshot()))
}

func TestPrintFrame(t *testing.T) {
	cfg := config.Defaults()
	now := clock.WallTime{Hour: 3, Minute: 10, Second: 20}

	var buf bytes.Buffer
	printFrame(&buf, now, &cfg, render.Preview(now, cfg, 0))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 13)
	assert.Equal(t, "03:10:20 normal brightness=204", lines[0])
	assert.Equal(t, " 0 #333333", lines[1])
	assert.Equal(t, "10 #00ff00", lines[3])
	assert.Equal(t, "15 #ff0000", lines[4])
	assert.Equal(t, "20 #0000ff", lines[5])
}

func TestPrintFrameNight(t *testing.T) {
	cfg := config.Defaults()
	cfg.NightLight.Enabled = true
	now := clock.WallTime{Hour: 23, Minute: 0, Second: 0}

	var buf bytes.Buffer
	printFrame(&buf, now, &cfg, render.Preview(now, cfg, 0))

	assert.True(t, strings.HasPrefix(buf.String(), "23:00:00 night/bottom brightness=255\n"))
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	assert.Equal(t, "ledclock dev\n", execute(t, "version"))
}

func TestResetCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store := config.NewFileStore(path)
	cfg := config.Defaults()
	cfg.EffectMode = 3
	require.NoError(t, store.Save(cfg))

	out := execute(t, "reset", "--settings", path)
	assert.Equal(t, "settings reset: "+path+"\n", out)

	got, fresh, err := store.Load()
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Equal(t, 0, got.EffectMode)
}

func TestPrintFrameCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	out := execute(t, "print-frame", "--settings", path, "--at", "03:10:20")
	assert.True(t, strings.HasPrefix(out, "03:10:20 normal brightness=204\n"))

	_, err := os.Stat(path)
	assert.NoError(t, err, "first run stores the factory settings")
}

func TestPrintFrameCommandBadTime(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"print-frame", "--settings", filepath.Join(t.TempDir(), "s.yaml"), "--at", "noon"})
	assert.ErrorContains(t, root.Execute(), "HH:MM:SS")
}

func TestEnvOverridesFlagDefault(t *testing.T) {
	t.Setenv("LEDCLOCK_STRIP", "console")
	t.Setenv("LEDCLOCK_ADC_CHANNEL", "2")
	execute(t, "version")

	cfg := configFromViper()
	assert.Equal(t, "console", cfg.Strip)
	assert.Equal(t, 2, cfg.ADCChannel)
	assert.Equal(t, ":80", cfg.HTTPAddr)
}
