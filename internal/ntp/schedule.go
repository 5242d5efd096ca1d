package ntp

import (
	"github.com/sweeney/ledclock/internal/clock"
	"github.com/sweeney/ledclock/internal/config"
)

// MinIntervalMs is the least time between two automatic sync attempts.
const MinIntervalMs = 60 * 60 * 1000

// Scheduler tracks the weekly sync slot against the monotonic millisecond
// clock.
type Scheduler struct {
	attempted     bool
	lastAttemptMs uint32
}

// Due reports whether a sync should start now: the weekday and hour match
// the schedule, the minute is 0, and no attempt was made in the last hour.
func (s *Scheduler) Due(now clock.WallTime, sched config.SyncSchedule, nowMs uint32) bool {
	if now.Weekday != sched.Weekday || now.Hour != sched.Hour || now.Minute != 0 {
		return false
	}
	return s.Elapsed(nowMs)
}

// Elapsed reports whether at least MinIntervalMs passed since the last
// attempt, or no attempt was made yet.
func (s *Scheduler) Elapsed(nowMs uint32) bool {
	return !s.attempted || nowMs-s.lastAttemptMs >= MinIntervalMs
}

// MarkAttempt records an attempt, successful or not.
func (s *Scheduler) MarkAttempt(nowMs uint32) {
	s.attempted = true
	s.lastAttemptMs = nowMs
}
