// Package api is the HTTP client for the transcription backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"whisperctl/internal/model"
)

// DefaultServer is used when no server URL is configured.
const DefaultServer = "http://localhost:8000"

// Client talks to the backend's /api endpoints.
type Client struct {
	base    string
	http    *http.Client
	timeout time.Duration
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout bounds every request by d. Zero, the default, means requests
// may wait indefinitely.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// New returns a Client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultServer
	}
	c := &Client{base: strings.TrimRight(baseURL, "/")}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.log == nil {
		c.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Health checks GET /api/health.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	if err := c.getJSON(ctx, "/api/health", &h); err != nil {
		return Health{}, fmt.Errorf("health: %w", err)
	}
	return h, nil
}

// Models lists the models offered by the backend.
func (c *Client) Models(ctx context.Context) ([]model.ModelInfo, error) {
	var out modelsResponse
	if err := c.getJSON(ctx, "/api/models", &out); err != nil {
		return nil, fmt.Errorf("models: %w", err)
	}
	return out.Models, nil
}

// Upload streams the file at path as multipart field "file".
// Errors are *UploadError.
func (c *Client) Upload(ctx context.Context, path string) (UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return UploadResponse{}, &UploadError{Path: path, Err: err}
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	var out UploadResponse
	if err := c.do(ctx, http.MethodPost, "/api/upload", mw.FormDataContentType(), pr, &out); err != nil {
		// Unblock the writer if the request died before draining the body.
		pr.CloseWithError(err)
		return UploadResponse{}, &UploadError{Path: path, Err: err}
	}
	if out.FileID == "" {
		return UploadResponse{}, &UploadError{Path: path, Err: fmt.Errorf("response has no file_id")}
	}
	return out, nil
}

// Transcribe starts transcription of an uploaded file. Errors are *SubmissionError.
func (c *Client) Transcribe(ctx context.Context, req TranscribeRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return &SubmissionError{FileID: req.FileID, Err: err}
	}
	if err := c.do(ctx, http.MethodPost, "/api/transcribe", "application/json", bytes.NewReader(body), nil); err != nil {
		return &SubmissionError{FileID: req.FileID, Err: err}
	}
	return nil
}

// Status fetches the current job status. Errors are *PollTransportError.
func (c *Client) Status(ctx context.Context, fileID string) (Status, error) {
	var st Status
	if err := c.getJSON(ctx, "/api/status/"+url.PathEscape(fileID), &st); err != nil {
		return Status{}, &PollTransportError{FileID: fileID, Err: err}
	}
	return st, nil
}

// Result fetches the transcript of a completed job. Errors are *ResultFetchError.
func (c *Client) Result(ctx context.Context, fileID string) (ResultResponse, error) {
	var res ResultResponse
	if err := c.getJSON(ctx, "/api/result/"+url.PathEscape(fileID), &res); err != nil {
		return ResultResponse{}, &ResultFetchError{FileID: fileID, Err: err}
	}
	return res, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, "", nil, out)
}

// do sends one request and decodes a 2xx JSON body into out (if non-nil).
// Non-2xx responses become *HTTPError carrying the backend's detail.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", "method", method, "path", path, "request_id", reqID, "err", err)
		return err
	}
	defer resp.Body.Close()
	c.log.Debug("request", "method", method, "path", path, "status", resp.StatusCode,
		"request_id", reqID, "duration", time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		he := &HTTPError{StatusCode: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil {
			he.Detail = detailText(eb.Detail)
		}
		if he.Detail == "" {
			he.Detail = strings.TrimSpace(string(data))
		}
		return he
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
