package progress

import (
	"time"

	"whisperctl/internal/loop"
)

// AnimationInterval is the default animator cadence.
const AnimationInterval = 100 * time.Millisecond

// Differences below this are closed in one step.
const snapThreshold = 0.5

// Speed returns the fraction of the remaining distance covered per tick.
// Setup (target up to 20) and the finish (95 and above) move quickly; the
// long main processing band moves slowly.
func Speed(target float64) float64 {
	switch {
	case target <= 20:
		return 0.3
	case target < 95:
		return 0.05
	default:
		return 0.2
	}
}

// Animate advances s by one eased step toward its target and reports
// whether the animation has settled. Displayed never moves down: when it
// is already at or ahead of the target it is held.
func Animate(s *State) bool {
	diff := s.Target - s.Displayed
	if diff <= 0 {
		return true
	}
	if diff < snapThreshold {
		s.Displayed = s.Target
		return true
	}
	s.Displayed += diff * Speed(s.Target)
	return false
}

// Animator runs Animate on a timer until the state settles.
type Animator struct {
	timer periodic
}

// NewAnimator returns an Animator ticking every interval on sched.
func NewAnimator(sched loop.Scheduler, interval time.Duration) *Animator {
	if interval <= 0 {
		interval = AnimationInterval
	}
	return &Animator{timer: periodic{sched: sched, interval: interval}}
}

// Start cancels any running animation and, unless s is already settled,
// starts a new one. frame is called after every step.
func (a *Animator) Start(s *State, frame func()) {
	a.Stop()
	if diff := s.Target - s.Displayed; diff < snapThreshold {
		return
	}
	a.timer.start(func() {
		if Animate(s) {
			a.Stop()
		}
		if frame != nil {
			frame()
		}
	})
}

// Stop cancels the running animation, if any.
func (a *Animator) Stop() { a.timer.stop() }

// Active reports whether an animation timer is running.
func (a *Animator) Active() bool { return a.timer.active() }
