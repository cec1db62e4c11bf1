package model

import "time"

// JobStatus is the backend-reported state of a transcription job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusError      JobStatus = "error"
)

// Known reports whether s is one of the statuses the backend documents.
func (s JobStatus) Known() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusError:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further status changes are expected.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Phase is the client-side lifecycle of a job.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseUploaded   Phase = "uploaded"
	PhaseSubmitted  Phase = "submitted"
	PhasePolling    Phase = "polling"
	PhaseCompleting Phase = "completing"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
)

// Terminal reports whether the phase is only left through a new upload.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// Job is the client's view of one uploaded file and its transcription.
type Job struct {
	ID             string
	Status         JobStatus
	Stage          string
	Progress       int      // authoritative, 0..100
	ProcessingTime *float64 // seconds; nil until the backend reports it
}

const (
	DefaultModel    = "base"
	DefaultLanguage = "auto"
)

// Languages accepted by the backend.
var Languages = []string{"auto", "zh", "en", "ja", "ko"}

// TranscribeOptions are the parameters posted when a job is submitted.
type TranscribeOptions struct {
	ModelSize         string
	Language          string
	IncludeTimestamps bool
}

// ModelInfo describes one selectable Whisper model.
type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size string `json:"size,omitempty"`
}

// Transcript is the final artifact of a completed job.
type Transcript struct {
	Text           string
	WordCount      int
	CharCount      int
	ProcessingTime float64 // seconds
}

// CLIOptions holds user-configurable runtime options as resolved from flags,
// environment and the config file.
type CLIOptions struct {
	Server       string
	OutDir       string
	Verbose      bool
	NoUI         bool
	PollInterval time.Duration
	Timeout      time.Duration // 0 disables per-request timeouts.

	Transcribe TranscribeOptions
}
