package progress

import (
	"math"
	"math/rand/v2"
	"time"

	"whisperctl/internal/loop"
)

// SimulationInterval is the default simulator cadence.
const SimulationInterval = 800 * time.Millisecond

// Simulated drift never runs further than this past the target.
const simulationHeadroom = 2.0

// Simulate nudges Displayed upward by a random amount drawn from the
// target's band and reports whether it moved. rnd returns values in [0,1).
//
//	5 <= target < 20   +[0.3, 0.8)
//	20 <= target < 95  +[0.05, 0.2)
//
// Nothing moves outside those bands, and Displayed is capped at target+2.
func Simulate(s *State, rnd func() float64) bool {
	var inc float64
	switch {
	case s.Target >= 5 && s.Target < 20:
		inc = 0.3 + rnd()*0.5
	case s.Target >= 20 && s.Target < 95:
		inc = 0.05 + rnd()*0.15
	default:
		return false
	}
	ceiling := s.Target + simulationHeadroom
	if s.Displayed >= ceiling {
		return false
	}
	s.Displayed = math.Min(s.Displayed+inc, ceiling)
	return true
}

// Simulator runs Simulate on a timer until stopped.
type Simulator struct {
	timer periodic
	rnd   func() float64
}

// NewSimulator returns a Simulator ticking every interval on sched. A nil
// rnd uses math/rand/v2.
func NewSimulator(sched loop.Scheduler, interval time.Duration, rnd func() float64) *Simulator {
	if interval <= 0 {
		interval = SimulationInterval
	}
	if rnd == nil {
		rnd = rand.Float64
	}
	return &Simulator{timer: periodic{sched: sched, interval: interval}, rnd: rnd}
}

// Start cancels any running simulation and starts a new one over s.
// frame is called after every tick that moved the value.
func (m *Simulator) Start(s *State, frame func()) {
	m.timer.start(func() {
		if Simulate(s, m.rnd) && frame != nil {
			frame()
		}
	})
}

// Stop cancels the simulation, if running.
func (m *Simulator) Stop() { m.timer.stop() }

// Active reports whether a simulation timer is running.
func (m *Simulator) Active() bool { return m.timer.active() }
