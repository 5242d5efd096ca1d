// Package device runs the clock: a single control loop that owns the
// settings, reads the time, composes a frame every second and drives the
// strip, while servicing operator commands between frames.
package device

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/ledclock/internal/battery"
	"github.com/sweeney/ledclock/internal/clock"
	"github.com/sweeney/ledclock/internal/config"
	"github.com/sweeney/ledclock/internal/effect"
	"github.com/sweeney/ledclock/internal/gpio"
	"github.com/sweeney/ledclock/internal/mqtt"
	"github.com/sweeney/ledclock/internal/nightlight"
	"github.com/sweeney/ledclock/internal/ntp"
	"github.com/sweeney/ledclock/internal/render"
	"github.com/sweeney/ledclock/internal/ring"
	"github.com/sweeney/ledclock/internal/rtc"
	"github.com/sweeney/ledclock/internal/status"
	"github.com/sweeney/ledclock/internal/strip"
	"github.com/sweeney/ledclock/internal/wifi"
)

// ErrRestart is returned by Run after a change that needs a fresh process:
// new WiFi credentials or a factory reset.
var ErrRestart = errors.New("device: restart requested")

// TickMs is the frame period.
const TickMs = 1000

// DefaultPoll is how often Run services the button, WiFi and tick check.
const DefaultPoll = 20 * time.Millisecond

// FrameSink receives every frame pushed to the strip.
type FrameSink interface {
	Broadcast(f ring.Frame, brightness uint8, night bool)
}

// powerLosser is implemented by hardware clocks that can tell whether they
// ran down while the board was off.
type powerLosser interface {
	LostPower() bool
}

// serverSetter is implemented by NTP clients whose server can change at
// runtime.
type serverSetter interface {
	SetServer(server string)
}

// Options wires a Device. Store, Strip and Tracker are required; the other
// collaborators may be nil when the hardware is absent.
type Options struct {
	Store   config.Store
	Strip   strip.Driver
	Tracker *status.Tracker

	// Clock is the hardware time source. Nil or unavailable means the
	// device keeps time with a soft clock for the whole boot.
	Clock     rtc.Source
	Battery   battery.Sampler
	NTP       ntp.Client
	WiFi      *wifi.Machine
	Button    gpio.Reader
	Publisher mqtt.Publisher
	Preview   FrameSink

	// Millis is the monotonic millisecond counter. Defaults to time since
	// New; tests inject their own.
	Millis func() uint32

	// Rand drives the random effects. Nil seeds from the time.
	Rand *rand.Rand

	// Spawn runs network I/O off the loop. Nil starts a goroutine.
	Spawn func(func())

	DebounceMs uint32
}

type command struct {
	fn   func() error
	done chan error
}

type syncResult struct {
	epoch int64
	err   error
}

// Device is the clock. All fields are owned by the goroutine running Run;
// other goroutines reach them through the Controller methods.
type Device struct {
	cfg   config.ClockConfig
	store config.Store

	hw   rtc.Source
	soft *rtc.SoftClock
	wall time.Time

	strip     strip.Driver
	battery   battery.Sampler
	ntp       ntp.Client
	wifi      *wifi.Machine
	button    gpio.Reader
	debouncer *gpio.Debouncer
	pub       mqtt.Publisher
	tracker   *status.Tracker
	preview   FrameSink

	comp    *render.Compositor
	watcher nightlight.Watcher
	sched   ntp.Scheduler
	millis  func() uint32
	spawn   func(func())

	// One NTP exchange at a time; its result comes back on syncs.
	syncs       chan syncResult
	syncing     bool
	syncWaiters []chan error

	ticked        bool
	lastTickMs    uint32
	softMs        uint32
	sampled       bool
	lastBatteryMs uint32
	wifiState     wifi.State
	wifiAttempts  int
	bootSynced    bool
	stripFailing  bool
	buttonFailing bool
	restart       bool

	hostname string
	cmds     chan command
}

// New loads the settings and prepares the device. It does not touch the
// strip or the network until Start.
func New(opts Options) (*Device, error) {
	if opts.Store == nil || opts.Strip == nil || opts.Tracker == nil {
		return nil, errors.New("device: store, strip and tracker are required")
	}
	cfg, fresh, err := opts.Store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if fresh {
		log.Info().Msg("first boot: factory settings stored")
	}

	d := &Device{
		cfg:     cfg,
		store:   opts.Store,
		soft:    rtc.NewSoftClock(rtc.DefaultSoftStart),
		strip:   opts.Strip,
		battery: opts.Battery,
		ntp:     opts.NTP,
		wifi:    opts.WiFi,
		button:  opts.Button,
		pub:     opts.Publisher,
		tracker: opts.Tracker,
		preview: opts.Preview,
		comp:    render.NewCompositor(effect.NewEngine(opts.Rand)),
		millis:  opts.Millis,
		spawn:   opts.Spawn,
		syncs:   make(chan syncResult, 1),
		cmds:    make(chan command),

		hostname: cfg.Network.Hostname,
	}
	if opts.Clock != nil && opts.Clock.Available() {
		d.hw = opts.Clock
	} else {
		log.Warn().Msg("no hardware clock; keeping time in software until restart")
	}
	if d.millis == nil {
		start := time.Now()
		d.millis = func() uint32 { return uint32(time.Since(start).Milliseconds()) }
	}
	debounce := opts.DebounceMs
	if debounce == 0 {
		debounce = gpio.DefaultDebounceMs
	}
	d.debouncer = gpio.NewDebouncer(debounce)
	if d.spawn == nil {
		d.spawn = func(fn func()) { go fn() }
	}
	if s, ok := d.ntp.(serverSetter); ok {
		s.SetServer(cfg.Network.NTPServer)
	}
	return d, nil
}

// Hostname returns the host name from the settings loaded at boot.
func (d *Device) Hostname() string {
	return d.hostname
}

// Start seeds the clock and begins connecting to WiFi.
func (d *Device) Start() {
	d.softMs = d.millis()
	d.wall = d.soft.Advance(0)
	if d.hw != nil {
		if t, err := d.hw.Now(); err != nil {
			log.Error().Err(err).Msg("RTC read failed at boot")
		} else {
			d.soft.Adjust(t)
			d.wall = t
		}
	}
	d.tracker.SetRTC(d.hw != nil, d.lostPower())

	if d.wifi != nil {
		d.wifi.Begin(d.cfg.Network.SSID, d.cfg.Network.Password, d.millis())
		d.wifiState = d.wifi.State()
	}
	d.updateNetwork()
	log.Info().
		Str("time", d.wall.Format(time.DateTime)).
		Str("effect", effect.Mode(d.cfg.EffectMode).String()).
		Bool("rtc", d.hw != nil).
		Msg("device started")
}

// Run starts the device and loops until ctx is done or a restart is needed.
// Commands from other goroutines run between iterations.
func (d *Device) Run(ctx context.Context, poll time.Duration) error {
	if poll <= 0 {
		poll = DefaultPoll
	}
	d.Start()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-d.cmds:
			c.done <- c.fn()
		case <-ticker.C:
			if err := d.Step(); err != nil {
				return err
			}
		}
	}
}

// Step runs one loop iteration: button, WiFi, a frame if one is due, then
// the result of a finished time sync. It returns ErrRestart once a restart
// has been requested and the frame in flight has been shown.
func (d *Device) Step() error {
	nowMs := d.millis()
	d.pollButton(nowMs)
	d.stepWiFi(nowMs)

	if d.tickDue(nowMs) {
		d.tick(nowMs)
	}
	d.collectSync()
	if d.restart {
		return ErrRestart
	}
	return nil
}

// tickDue schedules frames on a fixed 1 s grid so poll jitter does not
// accumulate. A loop that fell more than a period behind starts a new grid.
func (d *Device) tickDue(nowMs uint32) bool {
	if !d.ticked {
		d.ticked = true
		d.lastTickMs = nowMs
		return true
	}
	if nowMs-d.lastTickMs < TickMs {
		return false
	}
	d.lastTickMs += TickMs
	if nowMs-d.lastTickMs >= TickMs {
		d.lastTickMs = nowMs
	}
	return true
}

func (d *Device) tick(nowMs uint32) {
	d.wall = d.readClock(nowMs)
	now := clock.FromTime(d.wall)

	res := d.comp.Compose(now, &d.cfg, nowMs)
	d.show(res)

	switch d.watcher.Observe(res.Night) {
	case nightlight.TurnedOn:
		log.Info().Str("mode", d.cfg.NightLight.Mode.String()).Bool("test", d.cfg.NightLight.TestActive).Msg("night light on")
		d.publish(mqtt.Event{Type: mqtt.EventNightOn, Mode: d.cfg.NightLight.Mode.String()})
	case nightlight.TurnedOff:
		log.Info().Msg("night light off")
		d.publish(mqtt.Event{Type: mqtt.EventNightOff, Mode: d.cfg.NightLight.Mode.String()})
	}

	name := effect.Mode(d.cfg.EffectMode).String()
	if res.Night {
		name = "night"
	}
	d.tracker.SetDisplay(d.wall, res.Night, res.Night && d.cfg.NightLight.TestActive, name, res.Brightness)
	if cs, ok := d.pub.(mqtt.ConnectionStatus); ok {
		d.tracker.SetMQTTConnected(cs.IsConnected())
	}

	d.sampleBattery(nowMs)
	if d.ntp != nil && d.sched.Due(now, d.cfg.Sync, nowMs) {
		log.Info().Int("weekday", now.Weekday).Int("hour", now.Hour).Msg("scheduled time sync")
		d.startSync(nowMs, nil)
	}
}

func (d *Device) show(res render.Result) {
	d.strip.SetBrightness(res.Brightness)
	err := d.strip.Show(res.Frame)
	switch {
	case err != nil && !d.stripFailing:
		log.Error().Err(err).Msg("strip write failed")
		d.stripFailing = true
	case err == nil && d.stripFailing:
		log.Info().Msg("strip write recovered")
		d.stripFailing = false
	}
	if d.preview != nil {
		d.preview.Broadcast(res.Frame, res.Brightness, res.Night)
	}
}

// readClock returns the wall time for this tick. Without a hardware clock,
// or when a read fails, the soft clock advances by the monotonic time since
// it was last set or advanced.
func (d *Device) readClock(nowMs uint32) time.Time {
	if d.hw != nil {
		t, err := d.hw.Now()
		if err == nil {
			d.soft.Adjust(t)
			d.softMs = nowMs
			return t
		}
		log.Warn().Err(err).Msg("RTC read failed; advancing soft clock")
	}
	elapsed := time.Duration(nowMs-d.softMs) * time.Millisecond
	d.softMs = nowMs
	return d.soft.Advance(elapsed)
}

// setWall sets the time on every source.
func (d *Device) setWall(t time.Time) error {
	if d.hw != nil {
		if err := d.hw.Adjust(t); err != nil {
			return fmt.Errorf("set rtc: %w", err)
		}
		d.tracker.SetRTC(true, d.lostPower())
	}
	d.soft.Adjust(t)
	d.softMs = d.millis()
	d.wall, _ = d.soft.Now()
	return nil
}

func (d *Device) lostPower() bool {
	if lp, ok := d.hw.(powerLosser); ok {
		return lp.LostPower()
	}
	return false
}

func (d *Device) sampleBattery(nowMs uint32) {
	if d.battery == nil {
		return
	}
	if d.sampled && nowMs-d.lastBatteryMs < uint32(battery.SampleInterval.Milliseconds()) {
		return
	}
	d.sampled = true
	d.lastBatteryMs = nowMs

	v, err := d.battery.Voltage()
	if err != nil {
		log.Warn().Err(err).Msg("battery read failed")
		return
	}
	pct := battery.Percent(v)
	d.tracker.SetBattery(v, pct)
	log.Debug().Float64("volts", v).Int("percent", pct).Msg("battery sampled")
}

// startSync begins an NTP exchange off the loop. reply, when set, receives
// the outcome once the loop has applied it. The attempt counts against the
// schedule whatever the outcome.
func (d *Device) startSync(nowMs uint32, reply chan error) {
	d.sched.MarkAttempt(nowMs)
	if reply != nil {
		d.syncWaiters = append(d.syncWaiters, reply)
	}
	if d.syncing {
		return
	}
	if d.ntp == nil {
		d.finishSync(syncResult{err: ntp.ErrNotConnected})
		return
	}

	d.syncing = true
	client := d.ntp
	d.spawn(func() {
		var res syncResult
		if res.err = client.Update(); res.err == nil {
			res.epoch = client.EpochTime()
		}
		d.syncs <- res
	})
}

// collectSync applies the result of a finished exchange, if there is one.
func (d *Device) collectSync() {
	select {
	case res := <-d.syncs:
		d.syncing = false
		d.finishSync(res)
	default:
	}
}

func (d *Device) finishSync(res syncResult) {
	err := res.err
	if err == nil {
		err = d.setWall(rtc.FromEpoch(res.epoch, d.cfg.Network.UTCOffsetSeconds))
	}
	d.tracker.RecordSync(d.wall, err)

	if err != nil {
		log.Warn().Err(err).Msg("time sync failed")
		d.publish(mqtt.Event{Type: mqtt.EventSyncFailed, Error: err.Error()})
	} else {
		log.Info().Str("time", d.wall.Format(time.DateTime)).Msg("time synced")
		d.publish(mqtt.Event{Type: mqtt.EventSyncOK})
	}

	for _, w := range d.syncWaiters {
		w <- err
	}
	d.syncWaiters = nil
}

func (d *Device) pollButton(nowMs uint32) {
	if d.button == nil {
		return
	}
	pressed, err := d.button.Read()
	if err != nil {
		if !d.buttonFailing {
			log.Error().Err(err).Msg("button read failed")
			d.buttonFailing = true
		}
		return
	}
	d.buttonFailing = false

	if d.debouncer.Process(pressed, nowMs) != gpio.Pressed {
		return
	}
	log.Info().Msg("button pressed; night-light test")
	d.tracker.RecordButton()
	nightlight.StartTest(&d.cfg.NightLight, nowMs)
	d.publish(mqtt.Event{Type: mqtt.EventButton, Mode: d.cfg.NightLight.Mode.String()})
}

func (d *Device) stepWiFi(nowMs uint32) {
	if d.wifi == nil {
		return
	}
	state := d.wifi.Step(nowMs)
	if state == d.wifiState && d.wifi.Attempts() == d.wifiAttempts {
		return
	}
	d.wifiState = state
	d.wifiAttempts = d.wifi.Attempts()
	d.updateNetwork()

	// A clock that cannot be trusted gets one sync as soon as the network
	// is up rather than waiting for the weekly slot.
	if state == wifi.Connected && !d.bootSynced && (d.hw == nil || d.lostPower()) {
		d.bootSynced = true
		log.Info().Bool("rtc", d.hw != nil).Msg("clock untrusted; syncing on connect")
		d.startSync(nowMs, nil)
	}
}

func (d *Device) updateNetwork() {
	info := &status.NetworkInfo{
		State:    wifi.Idle.String(),
		SSID:     d.cfg.Network.SSID,
		Hostname: d.cfg.Network.Hostname,
	}
	if d.wifi != nil {
		info.State = d.wifi.State().String()
		info.IP = d.wifi.Address()
		info.Attempts = d.wifi.Attempts()
		if ssid := d.wifi.SSID(); ssid != "" {
			info.SSID = ssid
		}
	}
	d.tracker.SetNetwork(info)
}

func (d *Device) publish(e mqtt.Event) {
	if d.pub == nil {
		return
	}
	e.Timestamp = d.wall
	if err := d.pub.Publish(e); err != nil {
		log.Warn().Err(err).Str("event", string(e.Type)).Msg("publish failed")
	}
}
