// Package progress holds the displayed-progress state of a job and the two
// timer-driven components that move it: the animator, which eases the
// displayed value toward the authoritative target, and the simulator, which
// adds bounded drift while the backend is silent.
package progress

import (
	"math"
	"time"

	"whisperctl/internal/loop"
)

// State is the progress of one job as seen by the viewer.
type State struct {
	Displayed float64   // the only rendered value, 0..100
	Target    float64   // last authoritative value, 0..100
	StartTime time.Time // zero until the job is submitted
}

// Reset clears the state for a freshly submitted job.
func (s *State) Reset(now time.Time) {
	*s = State{StartTime: now}
}

// Raise sets a new authoritative target. Values are clamped to 0..100 and
// a value below the current target is ignored, so the target never
// decreases within a job. It reports whether the target changed.
func (s *State) Raise(p float64) bool {
	if math.IsNaN(p) {
		return false
	}
	p = math.Max(0, math.Min(100, p))
	if p <= s.Target {
		return false
	}
	s.Target = p
	return true
}

// Finish pins both values to 100.
func (s *State) Finish() {
	s.Target = 100
	s.Displayed = 100
}

// Elapsed returns the time since StartTime, or 0 if it is unset.
func (s *State) Elapsed(now time.Time) time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	return now.Sub(s.StartTime)
}

// periodic owns at most one running timer.
type periodic struct {
	sched    loop.Scheduler
	interval time.Duration
	handle   loop.Handle
}

func (p *periodic) start(fn func()) {
	p.stop()
	p.handle = p.sched.Every(p.interval, fn)
}

func (p *periodic) stop() {
	if p.handle == nil {
		return
	}
	h := p.handle
	p.handle = nil
	h.Stop()
}

func (p *periodic) active() bool {
	return p.handle != nil && p.handle.Active()
}
