package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"

	"whisperctl/internal/job"
	"whisperctl/internal/model"
	"whisperctl/internal/progress"
	"whisperctl/internal/util"
	"whisperctl/internal/util/format"
)

// session records the outcome of one transcribe run and saves the
// transcript before the renderer sees the result.
type session struct {
	outDir string
	next   progress.Reporter
	log    *slog.Logger

	once sync.Once
	done chan struct{}
	res  progress.Result
}

func newSession(outDir string, next progress.Reporter, log *slog.Logger) *session {
	return &session{outDir: outDir, next: next, log: log, done: make(chan struct{})}
}

func (s *session) Update(u progress.Update) { s.next.Update(u) }
func (s *session) Log(l progress.Log)       { s.next.Log(l) }

func (s *session) Result(r progress.Result) {
	s.once.Do(func() {
		if r.Err == nil && r.Transcript != nil {
			path, err := util.WriteTranscriptFile(s.outDir, r.Transcript.Text)
			if err != nil {
				r.Err = fmt.Errorf("write transcript: %w", err)
			} else {
				s.log.Info("transcript saved", "path", path)
				s.next.Log(progress.Log{JobID: r.JobID, Level: slog.LevelInfo, Line: "Saved: " + path})
			}
		}
		s.res = r
		s.next.Result(r)
		close(s.done)
	})
}

// fail ends the session with err before any job result exists.
func (s *session) fail(err error) {
	s.Result(progress.Result{Err: err})
}

// outcome is only valid once done is closed.
func (s *session) outcome() (progress.Result, bool) {
	select {
	case <-s.done:
		return s.res, true
	default:
		return progress.Result{}, false
	}
}

// plainReporter prints one line per phase change, stage change or 10%
// step of the displayed progress.
type plainReporter struct {
	out, errOut io.Writer

	phase  model.Phase
	stage  string
	bucket int
}

func newPlainReporter(out, errOut io.Writer) *plainReporter {
	return &plainReporter{out: out, errOut: errOut, bucket: -1}
}

func (r *plainReporter) Update(u progress.Update) {
	bucket := int(math.Floor(u.Percent / 10))
	if u.Phase == r.phase && u.Stage == r.stage && bucket == r.bucket {
		return
	}
	r.phase, r.stage, r.bucket = u.Phase, u.Stage, bucket
	switch u.Phase {
	case model.PhaseUploaded:
		fmt.Fprintf(r.out, "Uploaded: %s\n", u.JobID)
	case model.PhaseSubmitted:
		fmt.Fprintln(r.out, "Submitting...")
	case model.PhasePolling, model.PhaseCompleting:
		line := fmt.Sprintf("[%s] %5.1f%%", format.Clock(u.Elapsed), u.Percent)
		if u.Stage != "" {
			line += "  " + u.Stage
		}
		fmt.Fprintln(r.out, line)
	}
}

func (r *plainReporter) Log(l progress.Log) {
	if l.Level >= slog.LevelWarn {
		fmt.Fprintf(r.errOut, "warning: %s\n", l.Line)
		return
	}
	fmt.Fprintln(r.out, l.Line)
}

func (r *plainReporter) Result(res progress.Result) {
	switch {
	case res.Err != nil:
		// printed by main with the exit code
	case res.Basic:
		fmt.Fprintf(r.out, "%s (%s)\n", job.BasicCompletionText, format.Seconds(res.ProcessingTime))
	case res.Transcript != nil:
		fmt.Fprintf(r.out, "Transcription complete: %d words, %d characters, %s\n",
			res.Transcript.WordCount, res.Transcript.CharCount, format.Seconds(res.ProcessingTime))
	}
}

func joinOr(items []string) string {
	return strings.Join(items, "|")
}
