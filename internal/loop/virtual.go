package loop

import "time"

// Virtual is a Scheduler driven by a manual clock. Work passed to Go runs
// immediately on the caller; its continuation is queued until Flush or
// Advance, which mirrors a real loop where I/O completes later.
type Virtual struct {
	now     time.Time
	seq     int
	timers  []*vtimer
	pending []func()
}

// NewVirtual returns a Virtual clock starting at start.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start}
}

func (v *Virtual) Now() time.Time { return v.now }

func (v *Virtual) Every(d time.Duration, fn func()) Handle {
	if d <= 0 {
		d = time.Millisecond
	}
	v.seq++
	t := &vtimer{next: v.now.Add(d), every: d, fn: fn, seq: v.seq}
	v.timers = append(v.timers, t)
	return t
}

func (v *Virtual) Go(work func() func()) {
	if next := work(); next != nil {
		v.pending = append(v.pending, next)
	}
}

// Flush runs queued continuations, including ones they queue in turn.
func (v *Virtual) Flush() {
	for len(v.pending) > 0 {
		next := v.pending[0]
		v.pending = v.pending[1:]
		next()
	}
}

// Advance moves the clock forward by d, firing due timers in time order
// and flushing continuations after each one.
func (v *Virtual) Advance(d time.Duration) {
	end := v.now.Add(d)
	v.Flush()
	for {
		t := v.nextDue(end)
		if t == nil {
			break
		}
		v.now = t.next
		t.next = t.next.Add(t.every)
		t.fn()
		v.Flush()
	}
	v.now = end
}

// ActiveTimers returns the number of timers that have not been stopped.
func (v *Virtual) ActiveTimers() int {
	v.prune()
	return len(v.timers)
}

func (v *Virtual) nextDue(end time.Time) *vtimer {
	v.prune()
	var due *vtimer
	for _, t := range v.timers {
		if t.next.After(end) {
			continue
		}
		if due == nil || t.next.Before(due.next) || (t.next.Equal(due.next) && t.seq < due.seq) {
			due = t
		}
	}
	return due
}

func (v *Virtual) prune() {
	live := v.timers[:0]
	for _, t := range v.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	v.timers = live
}

type vtimer struct {
	next    time.Time
	every   time.Duration
	fn      func()
	seq     int
	stopped bool
}

func (t *vtimer) Stop()        { t.stopped = true }
func (t *vtimer) Active() bool { return !t.stopped }
