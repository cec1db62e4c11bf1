package api

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"whisperctl/internal/model"
)

// Health is the body of GET /api/health.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type modelsResponse struct {
	Models []model.ModelInfo `json:"models"`
}

// UploadResponse is the body of a successful POST /api/upload.
type UploadResponse struct {
	FileID        string  `json:"file_id"`
	Filename      string  `json:"filename"`
	Size          int64   `json:"size"`
	EstimatedTime float64 `json:"estimated_time"` // minutes
}

// TranscribeRequest is the body of POST /api/transcribe.
type TranscribeRequest struct {
	FileID            string `json:"file_id"`
	ModelSize         string `json:"model_size"`
	Language          string `json:"language"`
	IncludeTimestamps bool   `json:"include_timestamps"`
}

// NewTranscribeRequest builds the request for fileID from opts, filling
// in backend defaults for empty fields.
func NewTranscribeRequest(fileID string, opts model.TranscribeOptions) TranscribeRequest {
	req := TranscribeRequest{
		FileID:            fileID,
		ModelSize:         opts.ModelSize,
		Language:          opts.Language,
		IncludeTimestamps: opts.IncludeTimestamps,
	}
	if req.ModelSize == "" {
		req.ModelSize = model.DefaultModel
	}
	if req.Language == "" {
		req.Language = model.DefaultLanguage
	}
	return req
}

// Status is the body of GET /api/status/{id}.
type Status struct {
	Status         model.JobStatus `json:"status"`
	Progress       Progress        `json:"progress"`
	Stage          string          `json:"stage"`
	ProcessingTime *float64        `json:"processing_time,omitempty"`
	Message        string          `json:"message,omitempty"`
}

// Progress is an integer percentage decoded leniently: numbers are
// truncated, numeric strings are read up to the first non-digit, and
// anything else decodes as 0 instead of failing the whole payload.
type Progress int

func (p *Progress) UnmarshalJSON(b []byte) error {
	*p = 0
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			*p = Progress(leadingInt(s))
		}
	case 'n', 't', 'f', '[', '{':
	default:
		if f, err := strconv.ParseFloat(string(b), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			*p = Progress(math.Trunc(f))
		}
	}
	return nil
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// ResultResponse is the body of GET /api/result/{id}.
type ResultResponse struct {
	Result struct {
		Text string `json:"text"`
	} `json:"result"`
	WordCount      int     `json:"word_count"`
	CharCount      int     `json:"char_count"`
	ProcessingTime float64 `json:"processing_time"`
}

// Transcript converts the response into the domain artifact.
func (r ResultResponse) Transcript() model.Transcript {
	return model.Transcript{
		Text:           r.Result.Text,
		WordCount:      r.WordCount,
		CharCount:      r.CharCount,
		ProcessingTime: r.ProcessingTime,
	}
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// detailText flattens FastAPI's detail, which is a string for handled
// errors and a list of objects for validation failures.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return string(raw)
}
