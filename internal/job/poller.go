package job

import (
	"context"
	"io"
	"log/slog"
	"time"

	"whisperctl/internal/api"
	"whisperctl/internal/loop"
)

// PollInterval is the default time between status checks.
const PollInterval = 2 * time.Second

// StatusFetcher fetches the authoritative status of one job.
type StatusFetcher interface {
	Status(ctx context.Context, fileID string) (api.Status, error)
}

// Poller checks job status at a fixed interval until stopped. Failed
// checks are logged and dropped; the next tick is the retry.
type Poller struct {
	sched    loop.Scheduler
	fetch    StatusFetcher
	deliver  func(api.Status)
	interval time.Duration
	log      *slog.Logger
	onError  func(error)

	timer  loop.Handle
	fileID string
	gen    uint64
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithPollInterval sets the time between checks.
func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithPollLogger sets the logger for failed checks.
func WithPollLogger(l *slog.Logger) PollerOption {
	return func(p *Poller) {
		p.log = l
	}
}

// WithPollErrorHandler is called on the loop for every failed check.
func WithPollErrorHandler(fn func(error)) PollerOption {
	return func(p *Poller) {
		p.onError = fn
	}
}

// NewPoller returns a stopped Poller delivering every successfully fetched
// status to deliver on sched's loop.
func NewPoller(sched loop.Scheduler, fetch StatusFetcher, deliver func(api.Status), opts ...PollerOption) *Poller {
	p := &Poller{
		sched:    sched,
		fetch:    fetch,
		deliver:  deliver,
		interval: PollInterval,
	}
	for _, o := range opts {
		o(p)
	}
	if p.log == nil {
		p.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p
}

// Start cancels any running poll, checks fileID immediately and then every
// interval.
func (p *Poller) Start(ctx context.Context, fileID string) {
	p.Stop()
	p.fileID = fileID
	// The timer exists before the first check so that a terminal status
	// delivered by that check can stop it.
	p.timer = p.sched.Every(p.interval, func() { p.check(ctx) })
	p.check(ctx)
}

// Stop cancels polling. Results of checks still in flight are discarded.
func (p *Poller) Stop() {
	p.gen++
	if p.timer == nil {
		return
	}
	t := p.timer
	p.timer = nil
	t.Stop()
}

// Active reports whether polling is running.
func (p *Poller) Active() bool {
	return p.timer != nil && p.timer.Active()
}

func (p *Poller) check(ctx context.Context) {
	gen, fileID := p.gen, p.fileID
	p.sched.Go(func() func() {
		st, err := p.fetch.Status(ctx, fileID)
		return func() {
			if gen != p.gen {
				return
			}
			if err != nil {
				p.log.Warn("status check failed", "file_id", fileID, "err", err)
				if p.onError != nil {
					p.onError(err)
				}
				return
			}
			p.deliver(st)
		}
	})
}
