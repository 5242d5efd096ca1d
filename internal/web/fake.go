package web

import (
	"context"
	"sync"
	"time"

	"github.com/sweeney/ledclock/internal/config"
)

// FakeController applies requests to an in-memory config.
type FakeController struct {
	mu sync.Mutex

	Cfg      config.ClockConfig
	Clock    time.Time
	Err      error // returned by every call when set
	SyncErr  error
	Tests    int
	Syncs    int
	Resets   int
	Restarts int
}

// NewFakeController starts from factory settings.
func NewFakeController(now time.Time) *FakeController {
	return &FakeController{Cfg: config.Defaults(), Clock: now}
}

func (f *FakeController) Now(ctx context.Context) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Clock, f.Err
}

func (f *FakeController) SetTime(ctx context.Context, t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Clock = t
	return nil
}

func (f *FakeController) Settings(ctx context.Context) (config.ClockConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Cfg, f.Err
}

func (f *FakeController) SetNetwork(ctx context.Context, edit config.NetworkEdit) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return false, f.Err
	}
	n, s, err := edit(f.Cfg)
	if err != nil {
		return false, err
	}
	next := f.Cfg
	if err := next.SetSyncSchedule(s); err != nil {
		return false, err
	}
	restart := next.SetNetwork(n)
	f.Cfg = next
	if restart {
		f.Restarts++
	}
	return restart, nil
}

func (f *FakeController) SetEffect(ctx context.Context, e config.EffectSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	return f.Cfg.SetEffect(e)
}

func (f *FakeController) SetColors(ctx context.Context, edit config.ColorEdit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	c, err := edit(f.Cfg.Colors())
	if err != nil {
		return err
	}
	f.Cfg.SetColors(c)
	return nil
}

func (f *FakeController) SetNightLight(ctx context.Context, edit config.NightLightEdit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	n, err := edit(f.Cfg.NightLight)
	if err != nil {
		return err
	}
	return f.Cfg.SetNightLight(n)
}

func (f *FakeController) TestNightLight(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Tests++
	f.Cfg.NightLight.TestActive = true
	return nil
}

func (f *FakeController) SyncNow(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Syncs++
	return f.SyncErr
}

func (f *FakeController) FactoryReset(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Resets++
	f.Cfg = config.Defaults()
	return nil
}

var _ Controller = (*FakeController)(nil)
