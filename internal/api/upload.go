package api

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// MaxUploadBytes is the largest file the backend accepts.
const MaxUploadBytes = 500 * 1024 * 1024

// AllowedExtensions lists the audio and video containers the backend accepts.
var AllowedExtensions = []string{".mp3", ".wav", ".m4a", ".flac", ".mp4", ".avi", ".mov", ".mkv", ".webm"}

// CheckUpload validates path before any network traffic and returns its
// size. Errors are *UploadError.
func CheckUpload(path string) (int64, error) {
	if strings.TrimSpace(path) == "" {
		return 0, &UploadError{Path: path, Err: ErrNoFile}
	}
	fi, err := os.Stat(path)
	if err != nil {
		return 0, &UploadError{Path: path, Err: err}
	}
	if !fi.Mode().IsRegular() {
		return 0, &UploadError{Path: path, Err: fmt.Errorf("%w: not a regular file", ErrNoFile)}
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !lo.Contains(AllowedExtensions, ext) {
		return 0, &UploadError{Path: path, Err: fmt.Errorf("%w %q (supported: %s)",
			ErrUnsupportedFormat, ext, strings.Join(AllowedExtensions, ", "))}
	}
	if fi.Size() > MaxUploadBytes {
		return 0, &UploadError{Path: path, Err: ErrFileTooLarge}
	}
	return fi.Size(), nil
}

// EstimateMinutes guesses processing time from file size: one minute per
// 10 MB, at least half a minute.
func EstimateMinutes(size int64) float64 {
	mb := float64(size) / (1024 * 1024)
	return max(0.5, mb/10)
}
