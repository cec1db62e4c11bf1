// Package job drives one transcription job through upload, submission,
// status polling and result retrieval, and owns the progress shown for it.
//
// A Controller must only be used from its scheduler's loop goroutine.
// Network calls run off the loop and re-enter it through continuations.
package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"whisperctl/internal/api"
	"whisperctl/internal/loop"
	"whisperctl/internal/model"
	"whisperctl/internal/progress"
)

// ErrNotReady is returned by StartJob when there is no matching upload to submit.
var ErrNotReady = errors.New("no uploaded file ready for transcription")

// BasicCompletionText is shown when the transcript itself cannot be fetched.
const BasicCompletionText = "Transcription complete."

// JobError is a failure reported by the backend for a running job.
type JobError struct {
	JobID   string
	Message string // verbatim from the backend
}

func (e *JobError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("job %s failed", e.JobID)
	}
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Message)
}

// API is the subset of the backend client the controller needs.
type API interface {
	StatusFetcher
	Upload(ctx context.Context, path string) (api.UploadResponse, error)
	Transcribe(ctx context.Context, req api.TranscribeRequest) error
	Result(ctx context.Context, fileID string) (api.ResultResponse, error)
}

// Controller is the job state machine:
//
//	Idle → Uploaded → Submitted → Polling → Completing → Completed
//	                                      ↘ Failed
type Controller struct {
	api      API
	sched    loop.Scheduler
	reporter progress.Reporter
	log      *slog.Logger

	pollInterval time.Duration
	animInterval time.Duration
	simInterval  time.Duration
	rnd          func() float64

	poller    *Poller
	animator  *progress.Animator
	simulator *progress.Simulator

	ctx        context.Context // of the running job
	gen        uint64          // bumped on every reset
	phase      model.Phase
	job        model.Job
	progress   progress.State
	transcript *model.Transcript
}

// Option configures a Controller.
type Option func(*Controller)

// WithReporter attaches the observer that renders progress.
func WithReporter(r progress.Reporter) Option {
	return func(c *Controller) {
		c.reporter = r
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// WithIntervals overrides the poll, animation and simulation cadences.
// Zero values keep the defaults.
func WithIntervals(poll, animate, simulate time.Duration) Option {
	return func(c *Controller) {
		c.pollInterval = poll
		c.animInterval = animate
		c.simInterval = simulate
	}
}

// WithRand sets the simulator's random source, returning values in [0,1).
func WithRand(rnd func() float64) Option {
	return func(c *Controller) {
		c.rnd = rnd
	}
}

// NewController returns an idle Controller.
func NewController(client API, sched loop.Scheduler, opts ...Option) *Controller {
	c := &Controller{
		api:   client,
		sched: sched,
		ctx:   context.Background(),
		phase: model.PhaseIdle,
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c.poller = NewPoller(sched, client, c.OnStatus,
		WithPollInterval(c.pollInterval),
		WithPollLogger(c.log),
		WithPollErrorHandler(c.onPollError),
	)
	c.animator = progress.NewAnimator(sched, c.animInterval)
	c.simulator = progress.NewSimulator(sched, c.simInterval, c.rnd)
	return c
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() model.Phase { return c.phase }

// Job returns a snapshot of the current job.
func (c *Controller) Job() model.Job { return c.job }

// Progress returns a snapshot of the displayed progress.
func (c *Controller) Progress() progress.State { return c.progress }

// Transcript returns the fetched transcript, or nil.
func (c *Controller) Transcript() *model.Transcript { return c.transcript }

// SubmitFile resets all job state and uploads path. done receives the new
// job id, or an *api.UploadError.
func (c *Controller) SubmitFile(ctx context.Context, path string, done func(fileID string, err error)) {
	c.reset()
	if _, err := api.CheckUpload(path); err != nil {
		done("", err)
		return
	}

	gen := c.gen
	c.sched.Go(func() func() {
		resp, err := c.api.Upload(ctx, path)
		return func() {
			if gen != c.gen {
				c.log.Debug("dropping stale upload result", "path", path)
				return
			}
			if err != nil {
				done("", err)
				return
			}
			c.job = model.Job{ID: resp.FileID, Status: model.StatusPending}
			c.phase = model.PhaseUploaded
			c.log.Info("uploaded", "file_id", resp.FileID, "path", path)
			c.emit()
			done(resp.FileID, nil)
		}
	})
}

// StartJob submits the uploaded file for transcription and, on success,
// starts polling and simulation. done receives nil or an
// *api.SubmissionError; after a failure the job can be started again.
func (c *Controller) StartJob(ctx context.Context, fileID string, opts model.TranscribeOptions, done func(error)) {
	if fileID == "" || fileID != c.job.ID || (c.phase != model.PhaseUploaded && c.phase != model.PhaseFailed) {
		done(ErrNotReady)
		return
	}
	c.stopTimers()
	c.phase = model.PhaseSubmitted
	c.progress = progress.State{}
	c.job.Stage = ""
	c.emit()

	gen := c.gen
	req := api.NewTranscribeRequest(fileID, opts)
	c.sched.Go(func() func() {
		err := c.api.Transcribe(ctx, req)
		return func() {
			if gen != c.gen {
				return
			}
			if err != nil {
				c.phase = model.PhaseUploaded
				c.log.Warn("submission failed", "file_id", fileID, "err", err)
				c.emit()
				done(err)
				return
			}
			c.ctx = ctx
			c.progress.Reset(c.sched.Now())
			c.job.Status = model.StatusPending
			c.phase = model.PhasePolling
			c.poller.Start(ctx, fileID)
			c.simulator.Start(&c.progress, c.emit)
			c.emit()
			done(nil)
		}
	})
}

// OnStatus ingests one poll result. It is the only place job status and
// the progress target change while a job runs.
func (c *Controller) OnStatus(st api.Status) {
	if c.phase != model.PhasePolling {
		c.log.Debug("ignoring status outside polling", "phase", c.phase, "status", st.Status)
		return
	}
	if !st.Status.Known() {
		c.log.Warn("ignoring unknown job status", "file_id", c.job.ID, "status", st.Status)
		return
	}

	c.job.Status = st.Status
	c.job.Progress = min(max(int(st.Progress), 0), 100)
	if st.Stage != "" {
		c.job.Stage = st.Stage
	}
	if st.ProcessingTime != nil {
		pt := *st.ProcessingTime
		c.job.ProcessingTime = &pt
	}

	if !c.progress.Raise(float64(st.Progress)) && float64(st.Progress) < c.progress.Target {
		c.log.Debug("progress regression ignored", "file_id", c.job.ID,
			"reported", int(st.Progress), "target", c.progress.Target)
	}
	c.animator.Start(&c.progress, c.emit)
	c.emit()

	switch st.Status {
	case model.StatusCompleted:
		c.complete()
	case model.StatusError:
		c.fail(st.Message)
	}
}

func (c *Controller) complete() {
	c.phase = model.PhaseCompleting
	c.stopTimers()
	c.progress.Finish()
	c.emit()

	gen, fileID, ctx := c.gen, c.job.ID, c.ctx
	c.sched.Go(func() func() {
		res, err := c.api.Result(ctx, fileID)
		return func() {
			if gen != c.gen {
				return
			}
			c.phase = model.PhaseCompleted
			c.emit()
			if err != nil {
				c.log.Warn("result fetch failed, reporting basic completion", "file_id", fileID, "err", err)
				c.logLine(slog.LevelWarn, fmt.Sprintf("could not fetch transcript: %s", api.Detail(err)))
				c.report(progress.Result{
					JobID:          fileID,
					ProcessingTime: c.processingTime(0),
					Basic:          true,
				})
				return
			}
			tr := res.Transcript()
			tr.ProcessingTime = c.processingTime(tr.ProcessingTime)
			c.transcript = &tr
			c.report(progress.Result{
				JobID:          fileID,
				Transcript:     &tr,
				ProcessingTime: tr.ProcessingTime,
			})
		}
	})
}

func (c *Controller) fail(message string) {
	c.phase = model.PhaseFailed
	c.stopTimers()
	c.emit()
	err := &JobError{JobID: c.job.ID, Message: message}
	c.log.Warn("job failed", "file_id", c.job.ID, "message", message)
	c.report(progress.Result{JobID: c.job.ID, ProcessingTime: c.processingTime(0), Err: err})
}

func (c *Controller) onPollError(err error) {
	c.logLine(slog.LevelWarn, fmt.Sprintf("status check failed: %v", err))
}

// processingTime prefers the result's own value, then the last status value.
func (c *Controller) processingTime(fromResult float64) float64 {
	if fromResult > 0 {
		return fromResult
	}
	if c.job.ProcessingTime != nil {
		return *c.job.ProcessingTime
	}
	return 0
}

func (c *Controller) reset() {
	c.stopTimers()
	c.gen++
	c.ctx = context.Background()
	c.phase = model.PhaseIdle
	c.job = model.Job{}
	c.progress = progress.State{}
	c.transcript = nil
}

func (c *Controller) stopTimers() {
	c.poller.Stop()
	c.animator.Stop()
	c.simulator.Stop()
}

func (c *Controller) emit() {
	if c.reporter == nil {
		return
	}
	c.reporter.Update(progress.Update{
		JobID:   c.job.ID,
		Phase:   c.phase,
		Percent: c.progress.Displayed,
		Target:  c.progress.Target,
		Stage:   c.job.Stage,
		Elapsed: c.progress.Elapsed(c.sched.Now()),
	})
}

func (c *Controller) logLine(level slog.Level, line string) {
	if c.reporter == nil {
		return
	}
	c.reporter.Log(progress.Log{JobID: c.job.ID, Level: level, Line: line})
}

func (c *Controller) report(r progress.Result) {
	if c.reporter == nil {
		return
	}
	c.reporter.Result(r)
}
