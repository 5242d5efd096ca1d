package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/sweeney/ledclock/internal/battery"
	"github.com/sweeney/ledclock/internal/config"
	"github.com/sweeney/ledclock/internal/device"
	"github.com/sweeney/ledclock/internal/discovery"
	"github.com/sweeney/ledclock/internal/gpio"
	"github.com/sweeney/ledclock/internal/mqtt"
	"github.com/sweeney/ledclock/internal/ntp"
	"github.com/sweeney/ledclock/internal/rtc"
	"github.com/sweeney/ledclock/internal/status"
	"github.com/sweeney/ledclock/internal/strip"
	"github.com/sweeney/ledclock/internal/web"
	"github.com/sweeney/ledclock/internal/wifi"
)

const shutdownTimeout = 3 * time.Second

// runDaemon runs the clock and replaces the process when the device asks
// for a restart.
func runDaemon(ctx context.Context, cfg daemonConfig) error {
	err := run(ctx, cfg)
	if errors.Is(err, device.ErrRestart) {
		log.Info().Msg("restarting")
		return reexec()
	}
	return err
}

func reexec() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("restart: %w", err)
	}
	return syscall.Exec(exe, os.Args, os.Environ())
}

func run(ctx context.Context, cfg daemonConfig) error {
	drv, err := openStrip(cfg.Strip, cfg.SPIPort)
	if err != nil {
		return fmt.Errorf("open strip: %w", err)
	}
	defer drv.Close()

	opts := device.Options{
		Store:      config.NewFileStore(cfg.Settings),
		Strip:      drv,
		DebounceMs: gpio.DefaultDebounceMs,
	}

	if clk, err := rtc.Open(cfg.I2CBus); err != nil {
		log.Warn().Err(err).Msg("DS3231 not found")
	} else {
		defer clk.Close()
		opts.Clock = clk
	}

	if cfg.Battery {
		adc, err := battery.OpenADS1115(cfg.ADCBus, cfg.ADCChannel, cfg.ADCDivider)
		if err != nil {
			log.Warn().Err(err).Msg("battery ADC not found")
		} else {
			defer adc.Close()
			opts.Battery = adc
		}
	}

	if cfg.ButtonPin >= 0 {
		btn, err := gpio.NewRealReader(cfg.ButtonPin)
		if err != nil {
			log.Warn().Err(err).Int("pin", cfg.ButtonPin).Msg("button unavailable")
		} else {
			defer btn.Close()
			opts.Button = btn
		}
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		HeartbeatMs:  cfg.Heartbeat.Milliseconds(),
		Broker:       cfg.Broker,
		HTTPAddr:     cfg.HTTPAddr,
		Strip:        cfg.Strip,
		SettingsPath: cfg.Settings,
	})
	opts.Tracker = tracker

	// The exchange runs off the device loop, so it checks the link through
	// the tracker rather than the machine the loop owns.
	connected := func() bool { return true }
	if cfg.WiFiIface != "" {
		opts.WiFi = wifi.NewMachine(wifi.NewNMCLI(cfg.WiFiIface))
		connected = func() bool { return linkUp(tracker.Snapshot()) }
	}
	opts.NTP = ntp.NewQuerier(config.Defaults().Network.NTPServer, connected)

	var pub mqtt.Publisher
	if cfg.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.Broker, mqtt.ClientID("ledclock"))
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		pub = p
		opts.Publisher = p
	}

	hub := web.NewHub()
	opts.Preview = hub

	d, err := device.New(opts)
	if err != nil {
		return err
	}

	publishSystem(pub, tracker, "STARTUP", "")
	log.Info().
		Str("http", cfg.HTTPAddr).
		Str("strip", cfg.Strip).
		Str("broker", cfg.Broker).
		Dur("heartbeat", cfg.Heartbeat).
		Msg("started")

	t, tctx := tomb.WithContext(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	var reason string
	t.Go(func() error {
		select {
		case s := <-sig:
			reason = signalName(s)
			log.Info().Str("signal", reason).Msg("shutting down")
			t.Kill(nil)
		case <-t.Dying():
		}
		return nil
	})

	t.Go(func() error {
		err := d.Run(tctx, cfg.Poll)
		if err == nil {
			t.Kill(nil)
		}
		return err
	})

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, d, hub)
		t.Go(func() error {
			return serveHTTP(t.Dying(), srv, cfg.HTTPAddr)
		})

		if cfg.MDNS {
			if port, err := discovery.Port(cfg.HTTPAddr); err != nil {
				log.Warn().Err(err).Msg("mDNS disabled")
			} else {
				ann := discovery.NewAnnouncer(d.Hostname(), port, func() string {
					return stationIP(tracker)
				})
				t.Go(func() error { return ann.Run(tctx) })
			}
		}
	}

	if pub != nil && cfg.Heartbeat > 0 {
		ticker := time.NewTicker(cfg.Heartbeat)
		defer ticker.Stop()
		t.Go(func() error {
			heartbeatLoop(t.Dying(), pub, tracker, ticker.C)
			return nil
		})
	}

	err = t.Wait()
	if errors.Is(err, device.ErrRestart) {
		reason = "RESTART"
	}
	if reason == "" {
		reason = "STOPPED"
	}
	publishSystem(pub, tracker, "SHUTDOWN", reason)
	return err
}

func openStrip(kind, port string) (strip.Driver, error) {
	switch kind {
	case "spi":
		s, err := strip.OpenNRZ(port)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "console":
		return strip.NewConsole(), nil
	case "none":
		return strip.Discard{}, nil
	}
	return nil, fmt.Errorf("unknown strip driver %q (want spi, console or none)", kind)
}

// serveHTTP runs srv until dying closes. A listen failure is logged but
// does not stop the clock.
func serveHTTP(dying <-chan struct{}, srv *web.Server, addr string) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info().Str("addr", addr).Msg("http panel listening")

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("http server failed")
		}
		return nil
	case <-dying:
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

func heartbeatLoop(dying <-chan struct{}, pub mqtt.Publisher, tracker *status.Tracker, tick <-chan time.Time) {
	for {
		select {
		case <-dying:
			return
		case <-tick:
			publishSystem(pub, tracker, "HEARTBEAT", "")
		}
	}
}

// publishSystem sends a lifecycle event carrying a full status snapshot.
// STARTUP and SHUTDOWN are retained so late subscribers see the last one.
func publishSystem(pub mqtt.Publisher, tracker *status.Tracker, event, reason string) {
	if pub == nil {
		return
	}
	if cs, ok := pub.(mqtt.ConnectionStatus); ok {
		tracker.SetMQTTConnected(cs.IsConnected())
	}
	snap := tracker.Snapshot()
	e := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   event != "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := pub.PublishSystem(e); err != nil {
		log.Error().Err(err).Str("event", event).Msg("system event publish failed")
		return
	}
	log.Debug().Str("event", event).Str("reason", reason).Msg("published system event")
}

func linkUp(snap status.Snapshot) bool {
	return snap.Network != nil && snap.Network.State == wifi.Connected.String()
}

func stationIP(tracker *status.Tracker) string {
	snap := tracker.Snapshot()
	if snap.Network == nil {
		return ""
	}
	return snap.Network.IP
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
