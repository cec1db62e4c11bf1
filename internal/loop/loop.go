// Package loop provides the single-goroutine scheduler that owns all job
// state. Periodic tasks and I/O continuations are posted to one goroutine
// and run to completion, so callers never need locks around shared state.
package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Handle is a running periodic task.
type Handle interface {
	// Stop cancels the task. It is safe to call more than once; once it
	// returns on the loop goroutine the task callback never runs again.
	Stop()
	Active() bool
}

// Scheduler runs callbacks on a single logical thread.
type Scheduler interface {
	Now() time.Time
	// Every runs fn every d until the returned handle is stopped.
	Every(d time.Duration, fn func()) Handle
	// Go runs work off the loop. The function work returns, if non-nil,
	// is then run on the loop.
	Go(work func() func())
}

// Loop is the production Scheduler backed by one goroutine.
type Loop struct {
	tasks    chan func()
	done     chan struct{}
	quitOnce sync.Once
}

// New returns a Loop. Nothing runs until Run is called.
func New() *Loop {
	return &Loop{
		tasks: make(chan func(), 64),
		done:  make(chan struct{}),
	}
}

// Run executes posted callbacks until ctx is canceled or Quit is called.
func (l *Loop) Run(ctx context.Context) error {
	defer l.Quit()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Quit stops Run. Pending callbacks are discarded.
func (l *Loop) Quit() {
	l.quitOnce.Do(func() { close(l.done) })
}

// Post queues fn to run on the loop. It is a no-op after the loop has quit.
func (l *Loop) Post(fn func()) {
	select {
	case l.tasks <- fn:
	case <-l.done:
	}
}

func (l *Loop) Now() time.Time { return time.Now() }

func (l *Loop) Every(d time.Duration, fn func()) Handle {
	t := &ticker{stop: make(chan struct{})}
	go func() {
		tk := time.NewTicker(d)
		defer tk.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-l.done:
				return
			case <-tk.C:
				l.Post(func() {
					// A tick may already be queued when Stop runs.
					if t.Active() {
						fn()
					}
				})
			}
		}
	}()
	return t
}

func (l *Loop) Go(work func() func()) {
	go func() {
		if next := work(); next != nil {
			l.Post(next)
		}
	}()
}

type ticker struct {
	stopped atomic.Bool
	stop    chan struct{}
	once    sync.Once
}

func (t *ticker) Stop() {
	t.stopped.Store(true)
	t.once.Do(func() { close(t.stop) })
}

func (t *ticker) Active() bool { return !t.stopped.Load() }
