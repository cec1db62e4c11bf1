package progress

import (
	"log/slog"
	"time"

	"whisperctl/internal/model"
)

// Update conveys the rendered state of a job after any change.
type Update struct {
	JobID   string
	Phase   model.Phase
	Percent float64 // displayed value, 0..100
	Target  float64 // last authoritative value
	Stage   string  // backend stage label
	Elapsed time.Duration
}

// Log is a structured log line associated with a job.
type Log struct {
	JobID string
	Level slog.Level
	Line  string
}

// Result is emitted once per job when it completes or fails.
type Result struct {
	JobID          string
	Transcript     *model.Transcript // nil when Basic or Err is set
	ProcessingTime float64           // seconds, 0 if never reported
	// Basic is set when the job completed but the transcript could not be
	// fetched; only the completion itself is known.
	Basic bool
	Err   error // nil on success
}

// Reporter is implemented by renderers or any observer interested in job events.
type Reporter interface {
	Update(u Update)
	Log(l Log)
	Result(r Result)
}
