package util

import (
	"os"
	"path/filepath"

	"whisperctl/internal/dirs"
)

// TranscriptFileName is the artifact written for every completed job.
const TranscriptFileName = "transcript.txt"

// EnsureDir creates the directory path if it does not exist.
func EnsureDir(path string) error {
	return dirs.Ensure(path)
}

// WriteTranscriptFile writes text unchanged to transcript.txt under dir,
// creating dir first, and returns the file path.
func WriteTranscriptFile(dir, text string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := EnsureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, TranscriptFileName)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
