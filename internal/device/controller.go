package device

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/ledclock/internal/config"
	"github.com/sweeney/ledclock/internal/mqtt"
	"github.com/sweeney/ledclock/internal/nightlight"
)

// do runs fn on the loop goroutine and waits for its result.
func (d *Device) do(ctx context.Context, fn func() error) error {
	c := command{fn: fn, done: make(chan error, 1)}
	select {
	case d.cmds <- c:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-c.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// commit persists next and only then makes it the live settings.
func (d *Device) commit(next config.ClockConfig) error {
	if err := d.store.Save(next); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	d.cfg = next
	return nil
}

// Now returns the displayed wall time.
func (d *Device) Now(ctx context.Context) (time.Time, error) {
	var t time.Time
	err := d.do(ctx, func() error {
		t = d.wall
		return nil
	})
	return t, err
}

// SetTime sets the clock by hand.
func (d *Device) SetTime(ctx context.Context, t time.Time) error {
	return d.do(ctx, func() error {
		if err := d.setWall(t); err != nil {
			return err
		}
		log.Info().Str("time", d.wall.Format(time.DateTime)).Msg("time set by hand")
		return nil
	})
}

// Settings returns a copy of the live settings.
func (d *Device) Settings(ctx context.Context) (config.ClockConfig, error) {
	var cfg config.ClockConfig
	err := d.do(ctx, func() error {
		cfg = d.cfg
		return nil
	})
	return cfg, err
}

// SetNetwork stores the WiFi, NTP and schedule settings edit builds from the
// live ones. A credentials change makes the loop stop with ErrRestart after
// the next frame.
func (d *Device) SetNetwork(ctx context.Context, edit config.NetworkEdit) (bool, error) {
	var restart bool
	err := d.do(ctx, func() error {
		n, s, err := edit(d.cfg)
		if err != nil {
			return err
		}
		next := d.cfg
		if err := next.SetSyncSchedule(s); err != nil {
			return err
		}
		restart = next.SetNetwork(n)
		if err := d.commit(next); err != nil {
			return err
		}
		if ss, ok := d.ntp.(serverSetter); ok {
			ss.SetServer(d.cfg.Network.NTPServer)
		}
		d.updateNetwork()
		log.Info().
			Str("ssid", d.cfg.Network.SSID).
			Str("ntp", d.cfg.Network.NTPServer).
			Int("utc_offset", d.cfg.Network.UTCOffsetSeconds).
			Bool("restart", restart).
			Msg("network settings saved")
		if restart {
			d.restart = true
		}
		return nil
	})
	return restart, err
}

// SetEffect changes the background effect. The effect state carries over.
func (d *Device) SetEffect(ctx context.Context, e config.EffectSettings) error {
	return d.do(ctx, func() error {
		next := d.cfg
		if err := next.SetEffect(e); err != nil {
			return err
		}
		if err := d.commit(next); err != nil {
			return err
		}
		log.Info().Int("mode", e.Mode).Int("active", d.cfg.ActiveBrightness).Int("background", d.cfg.BackgroundBrightness).Msg("effect changed")
		return nil
	})
}

// SetColors changes hand and marker colours.
func (d *Device) SetColors(ctx context.Context, edit config.ColorEdit) error {
	return d.do(ctx, func() error {
		c, err := edit(d.cfg.Colors())
		if err != nil {
			return err
		}
		next := d.cfg
		next.SetColors(c)
		if err := d.commit(next); err != nil {
			return err
		}
		log.Info().Str("hour", c.Hour.Hex()).Str("minute", c.Minute.Hex()).Str("second", c.Second.Hex()).Msg("colors changed")
		return nil
	})
}

// SetNightLight replaces the night-light settings.
func (d *Device) SetNightLight(ctx context.Context, edit config.NightLightEdit) error {
	return d.do(ctx, func() error {
		n, err := edit(d.cfg.NightLight)
		if err != nil {
			return err
		}
		next := d.cfg
		if err := next.SetNightLight(n); err != nil {
			return err
		}
		if err := d.commit(next); err != nil {
			return err
		}
		log.Info().
			Bool("enabled", n.Enabled).
			Str("mode", n.Mode.String()).
			Str("window", n.Start.String()+"-"+n.End.String()).
			Msg("night light changed")
		return nil
	})
}

// TestNightLight shows the night light for ten seconds.
func (d *Device) TestNightLight(ctx context.Context) error {
	return d.do(ctx, func() error {
		nightlight.StartTest(&d.cfg.NightLight, d.millis())
		d.publish(mqtt.Event{Type: mqtt.EventNightTest, Mode: d.cfg.NightLight.Mode.String()})
		return nil
	})
}

// SyncNow starts a time sync and waits for the loop to apply its result.
// A sync already in flight is joined rather than repeated.
func (d *Device) SyncNow(ctx context.Context) error {
	reply := make(chan error, 1)
	err := d.do(ctx, func() error {
		d.startSync(d.millis(), reply)
		return nil
	})
	if err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FactoryReset stores the factory settings and requests a restart.
func (d *Device) FactoryReset(ctx context.Context) error {
	return d.do(ctx, func() error {
		if err := d.commit(config.Defaults()); err != nil {
			return err
		}
		log.Warn().Msg("factory reset")
		d.restart = true
		return nil
	})
}
