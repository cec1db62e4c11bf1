package api

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFile is returned when no file was given for upload.
	ErrNoFile = errors.New("no file selected")
	// ErrUnsupportedFormat is returned for extensions the backend rejects.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrFileTooLarge is returned for files above MaxUploadBytes.
	ErrFileTooLarge = errors.New("file exceeds upload size limit")
)

// HTTPError is a non-2xx response. Detail carries the backend's message.
type HTTPError struct {
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Detail)
}

// UploadError reports a failed or rejected upload.
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string { return fmt.Sprintf("upload %s: %v", e.Path, e.Err) }
func (e *UploadError) Unwrap() error { return e.Err }

// SubmissionError reports a failure to start transcription.
type SubmissionError struct {
	FileID string
	Err    error
}

func (e *SubmissionError) Error() string { return fmt.Sprintf("submit %s: %v", e.FileID, e.Err) }
func (e *SubmissionError) Unwrap() error { return e.Err }

// PollTransportError reports a status fetch that did not produce a payload.
// It is never fatal to a job; the next poll is the retry.
type PollTransportError struct {
	FileID string
	Err    error
}

func (e *PollTransportError) Error() string { return fmt.Sprintf("status %s: %v", e.FileID, e.Err) }
func (e *PollTransportError) Unwrap() error { return e.Err }

// ResultFetchError reports a completed job whose transcript could not be read.
type ResultFetchError struct {
	FileID string
	Err    error
}

func (e *ResultFetchError) Error() string { return fmt.Sprintf("result %s: %v", e.FileID, e.Err) }
func (e *ResultFetchError) Unwrap() error { return e.Err }

// Detail returns the backend's message from err if it wraps an HTTPError,
// otherwise err's own text.
func Detail(err error) string {
	var he *HTTPError
	if errors.As(err, &he) && he.Detail != "" {
		return he.Detail
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
