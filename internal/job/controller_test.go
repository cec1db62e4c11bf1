package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"whisperctl/internal/api"
	"whisperctl/internal/loop"
	"whisperctl/internal/model"
	"whisperctl/internal/progress"
)

type reply struct {
	st  api.Status
	err error
}

// fakeAPI answers status checks from a script; the last reply repeats.
type fakeAPI struct {
	uploadID    string
	uploadErr   error
	uploadCalls int

	transcribeErr  error
	transcribeReqs []api.TranscribeRequest

	replies     []reply
	statusCalls int

	result      api.ResultResponse
	resultErr   error
	resultCalls int
}

func (f *fakeAPI) Upload(_ context.Context, path string) (api.UploadResponse, error) {
	f.uploadCalls++
	if f.uploadErr != nil {
		return api.UploadResponse{}, &api.UploadError{Path: path, Err: f.uploadErr}
	}
	return api.UploadResponse{FileID: f.uploadID, Filename: filepath.Base(path)}, nil
}

func (f *fakeAPI) Transcribe(_ context.Context, req api.TranscribeRequest) error {
	f.transcribeReqs = append(f.transcribeReqs, req)
	if f.transcribeErr != nil {
		return &api.SubmissionError{FileID: req.FileID, Err: f.transcribeErr}
	}
	return nil
}

func (f *fakeAPI) Status(_ context.Context, fileID string) (api.Status, error) {
	i := f.statusCalls
	f.statusCalls++
	if len(f.replies) == 0 {
		return api.Status{Status: model.StatusPending}, nil
	}
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	r := f.replies[i]
	if r.err != nil {
		return api.Status{}, &api.PollTransportError{FileID: fileID, Err: r.err}
	}
	return r.st, nil
}

func (f *fakeAPI) Result(_ context.Context, fileID string) (api.ResultResponse, error) {
	f.resultCalls++
	if f.resultErr != nil {
		return api.ResultResponse{}, &api.ResultFetchError{FileID: fileID, Err: f.resultErr}
	}
	return f.result, nil
}

type recordingReporter struct {
	updates []progress.Update
	logs    []progress.Log
	results []progress.Result
}

func (r *recordingReporter) Update(u progress.Update)   { r.updates = append(r.updates, u) }
func (r *recordingReporter) Log(l progress.Log)         { r.logs = append(r.logs, l) }
func (r *recordingReporter) Result(res progress.Result) { r.results = append(r.results, res) }

func status(s model.JobStatus, p int) reply {
	return reply{st: api.Status{Status: s, Progress: api.Progress(p), Stage: string(s)}}
}

func ptr(f float64) *float64 { return &f }

type harness struct {
	t   *testing.T
	api *fakeAPI
	v   *loop.Virtual
	rep *recordingReporter
	c   *Controller
}

func newHarness(t *testing.T, f *fakeAPI) *harness {
	t.Helper()
	if f.uploadID == "" {
		f.uploadID = "abc"
	}
	v := loop.NewVirtual(time.Unix(1_700_000_000, 0))
	rep := &recordingReporter{}
	c := NewController(f, v, WithReporter(rep), WithRand(func() float64 { return 0.5 }))
	return &harness{t: t, api: f, v: v, rep: rep, c: c}
}

func (h *harness) audioFile() string {
	h.t.Helper()
	p := filepath.Join(h.t.TempDir(), "meeting.wav")
	if err := os.WriteFile(p, []byte("RIFF"), 0o644); err != nil {
		h.t.Fatal(err)
	}
	return p
}

func (h *harness) upload() string {
	h.t.Helper()
	var gotID string
	var gotErr error
	h.c.SubmitFile(context.Background(), h.audioFile(), func(id string, err error) {
		gotID, gotErr = id, err
	})
	h.v.Flush()
	if gotErr != nil {
		h.t.Fatalf("SubmitFile() error: %v", gotErr)
	}
	return gotID
}

// startPolling uploads and submits; the poller's immediate check has been
// delivered when it returns.
func (h *harness) startPolling() string {
	h.t.Helper()
	id := h.upload()
	var startErr error
	h.c.StartJob(context.Background(), id, model.TranscribeOptions{ModelSize: "base", Language: "en"}, func(err error) {
		startErr = err
	})
	h.v.Flush()
	if startErr != nil {
		h.t.Fatalf("StartJob() error: %v", startErr)
	}
	return id
}

func TestController_UploadAndStart(t *testing.T) {
	h := newHarness(t, &fakeAPI{replies: []reply{status(model.StatusPending, 0)}})

	id := h.upload()
	if id != "abc" || h.c.Phase() != model.PhaseUploaded {
		t.Fatalf("after upload: id=%q phase=%s", id, h.c.Phase())
	}

	h.startPolling()
	if h.c.Phase() != model.PhasePolling {
		t.Fatalf("phase = %s, want polling", h.c.Phase())
	}
	want := api.TranscribeRequest{FileID: "abc", ModelSize: "base", Language: "en"}
	if got := h.api.transcribeReqs[len(h.api.transcribeReqs)-1]; got != want {
		t.Errorf("transcribe request = %+v, want %+v", got, want)
	}
	if h.api.statusCalls != 1 {
		t.Errorf("status checked %d times on start, want 1", h.api.statusCalls)
	}
	if !h.c.Progress().StartTime.Equal(h.v.Now()) {
		t.Errorf("StartTime = %v, want %v", h.c.Progress().StartTime, h.v.Now())
	}
}

// First poll reports 10%; the bar moves with the fast band speed.
func TestController_FirstPollAnimatesFast(t *testing.T) {
	h := newHarness(t, &fakeAPI{replies: []reply{status(model.StatusProcessing, 10)}})
	h.startPolling()

	if got := h.c.Progress().Target; got != 10 {
		t.Fatalf("Target = %v, want 10", got)
	}
	if n := h.v.ActiveTimers(); n != 3 {
		t.Fatalf("active timers = %d, want poll+animate+simulate", n)
	}

	h.v.Advance(progress.AnimationInterval)
	if got := h.c.Progress().Displayed; got < 2.999 || got > 3.001 {
		t.Errorf("Displayed after one tick = %v, want 3 (10 * 0.3)", got)
	}
}

// A lower authoritative value never moves the bar backwards.
func TestController_RegressionIsClamped(t *testing.T) {
	h := newHarness(t, &fakeAPI{replies: []reply{
		status(model.StatusProcessing, 50),
		status(model.StatusProcessing, 48),
	}})
	h.startPolling()

	h.v.Advance(PollInterval)
	if h.api.statusCalls != 2 {
		t.Fatalf("status calls = %d, want 2", h.api.statusCalls)
	}
	if got := h.c.Progress().Target; got != 50 {
		t.Errorf("Target after regression = %v, want 50", got)
	}
	if got := h.c.Job().Progress; got != 48 {
		t.Errorf("Job().Progress = %d, want the reported 48", got)
	}

	h.v.Advance(30 * time.Second)
	prev := -1.0
	for i, u := range h.rep.updates {
		if u.Phase != model.PhasePolling {
			continue
		}
		if u.Percent < prev {
			t.Fatalf("update %d: percent went from %v to %v", i, prev, u.Percent)
		}
		prev = u.Percent
	}
}

// Completion with a failed result fetch degrades to a basic summary.
func TestController_CompletedResultFetchFails(t *testing.T) {
	done := status(model.StatusCompleted, 100)
	done.st.ProcessingTime = ptr(12.3)
	h := newHarness(t, &fakeAPI{
		replies:   []reply{done},
		resultErr: &api.HTTPError{StatusCode: 404, Detail: "result not found"},
	})
	h.startPolling()

	if h.c.Phase() != model.PhaseCompleted {
		t.Fatalf("phase = %s, want completed", h.c.Phase())
	}
	if len(h.rep.results) != 1 {
		t.Fatalf("results = %d, want 1", len(h.rep.results))
	}
	res := h.rep.results[0]
	if !res.Basic || res.Err != nil || res.Transcript != nil {
		t.Errorf("result = %+v, want basic completion", res)
	}
	if got := fmt.Sprintf("%.1fs", res.ProcessingTime); got != "12.3s" {
		t.Errorf("processing time = %s, want 12.3s", got)
	}
	if h.c.Progress().Displayed != 100 {
		t.Errorf("Displayed = %v, want 100", h.c.Progress().Displayed)
	}
}

// Transient poll failures are swallowed and the next tick recovers.
func TestController_PollFailuresAreTransient(t *testing.T) {
	h := newHarness(t, &fakeAPI{replies: []reply{
		{err: errors.New("connection refused")},
		{err: errors.New("connection reset")},
		status(model.StatusProcessing, 30),
	}})
	h.startPolling()

	h.v.Advance(PollInterval)
	if h.c.Phase() != model.PhasePolling {
		t.Fatalf("phase after two failures = %s", h.c.Phase())
	}
	if h.c.Progress().Target != 0 {
		t.Fatalf("Target moved without a status: %v", h.c.Progress().Target)
	}

	h.v.Advance(PollInterval)
	if h.c.Phase() != model.PhasePolling {
		t.Fatalf("phase = %s, want polling", h.c.Phase())
	}
	if got := h.c.Progress().Target; got != 30 {
		t.Errorf("Target = %v, want 30", got)
	}
	if len(h.rep.results) != 0 {
		t.Errorf("results surfaced: %+v", h.rep.results)
	}
	if len(h.rep.logs) != 2 {
		t.Errorf("logs = %d, want 2 warnings", len(h.rep.logs))
	}
}

func TestController_CompletionStopsAllMotion(t *testing.T) {
	done := status(model.StatusCompleted, 100)
	f := &fakeAPI{replies: []reply{status(model.StatusProcessing, 40), done}}
	f.result.Result.Text = "hello world"
	f.result.WordCount = 2
	f.result.CharCount = 11
	f.result.ProcessingTime = 4.2
	h := newHarness(t, f)
	h.startPolling()

	h.v.Advance(PollInterval)
	if h.c.Phase() != model.PhaseCompleted {
		t.Fatalf("phase = %s, want completed", h.c.Phase())
	}
	if n := h.v.ActiveTimers(); n != 0 {
		t.Fatalf("active timers after completion = %d", n)
	}
	tr := h.c.Transcript()
	if tr == nil || tr.Text != "hello world" || tr.WordCount != 2 {
		t.Fatalf("Transcript() = %+v", tr)
	}

	calls, updates := h.api.statusCalls, len(h.rep.updates)
	h.v.Advance(time.Minute)
	if h.api.statusCalls != calls {
		t.Errorf("status polled after completion: %d -> %d", calls, h.api.statusCalls)
	}
	if len(h.rep.updates) != updates {
		t.Errorf("updates after completion: %d -> %d", updates, len(h.rep.updates))
	}
	if h.c.Progress().Displayed != 100 {
		t.Errorf("Displayed = %v", h.c.Progress().Displayed)
	}
	if h.api.resultCalls != 1 {
		t.Errorf("result fetched %d times", h.api.resultCalls)
	}
}

func TestController_JobErrorIsTerminalAndRetryable(t *testing.T) {
	failed := status(model.StatusError, 20)
	failed.st.Message = "CUDA out of memory"
	f := &fakeAPI{replies: []reply{status(model.StatusProcessing, 20), failed}}
	h := newHarness(t, f)
	id := h.startPolling()

	h.v.Advance(PollInterval)
	if h.c.Phase() != model.PhaseFailed {
		t.Fatalf("phase = %s, want failed", h.c.Phase())
	}
	if n := h.v.ActiveTimers(); n != 0 {
		t.Fatalf("active timers after failure = %d", n)
	}
	if len(h.rep.results) != 1 {
		t.Fatalf("results = %d", len(h.rep.results))
	}
	var je *JobError
	if !errors.As(h.rep.results[0].Err, &je) || je.Message != "CUDA out of memory" {
		t.Fatalf("result error = %v, want JobError with server message", h.rep.results[0].Err)
	}

	f.replies = []reply{status(model.StatusProcessing, 5)}
	f.statusCalls = 0
	var retryErr error
	h.c.StartJob(context.Background(), id, model.TranscribeOptions{}, func(err error) { retryErr = err })
	h.v.Flush()
	if retryErr != nil || h.c.Phase() != model.PhasePolling {
		t.Fatalf("retry: err=%v phase=%s", retryErr, h.c.Phase())
	}
	if h.c.Progress().Displayed != 0 || h.c.Progress().Target != 5 {
		t.Errorf("retry did not reset progress: %+v", h.c.Progress())
	}
}

func TestController_SubmissionErrorIsRetryable(t *testing.T) {
	f := &fakeAPI{transcribeErr: &api.HTTPError{StatusCode: 400, Detail: "invalid model size"}}
	h := newHarness(t, f)
	id := h.upload()

	var err error
	h.c.StartJob(context.Background(), id, model.TranscribeOptions{ModelSize: "huge"}, func(e error) { err = e })
	h.v.Flush()

	var se *api.SubmissionError
	if !errors.As(err, &se) {
		t.Fatalf("StartJob() error = %v, want *api.SubmissionError", err)
	}
	if h.c.Phase() != model.PhaseUploaded {
		t.Errorf("phase = %s, want uploaded", h.c.Phase())
	}
	if n := h.v.ActiveTimers(); n != 0 {
		t.Errorf("active timers = %d", n)
	}

	f.transcribeErr = nil
	err = errors.New("not called")
	h.c.StartJob(context.Background(), id, model.TranscribeOptions{}, func(e error) { err = e })
	h.v.Flush()
	if err != nil || h.c.Phase() != model.PhasePolling {
		t.Fatalf("retry: err=%v phase=%s", err, h.c.Phase())
	}
}

func TestController_StartJobNotReady(t *testing.T) {
	h := newHarness(t, &fakeAPI{})

	var err error
	h.c.StartJob(context.Background(), "abc", model.TranscribeOptions{}, func(e error) { err = e })
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("StartJob() before upload = %v, want ErrNotReady", err)
	}

	h.upload()
	h.c.StartJob(context.Background(), "other", model.TranscribeOptions{}, func(e error) { err = e })
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("StartJob() with wrong id = %v, want ErrNotReady", err)
	}
	if len(h.api.transcribeReqs) != 0 {
		t.Errorf("transcribe called %d times", len(h.api.transcribeReqs))
	}
}

func TestController_UploadErrors(t *testing.T) {
	t.Run("rejected before upload", func(t *testing.T) {
		h := newHarness(t, &fakeAPI{})
		p := filepath.Join(t.TempDir(), "notes.txt")
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		var err error
		h.c.SubmitFile(context.Background(), p, func(_ string, e error) { err = e })
		var ue *api.UploadError
		if !errors.As(err, &ue) || !errors.Is(err, api.ErrUnsupportedFormat) {
			t.Fatalf("error = %v, want unsupported format UploadError", err)
		}
		if h.api.uploadCalls != 0 {
			t.Errorf("upload called %d times", h.api.uploadCalls)
		}
	})

	t.Run("no file", func(t *testing.T) {
		h := newHarness(t, &fakeAPI{})
		var err error
		h.c.SubmitFile(context.Background(), "", func(_ string, e error) { err = e })
		if !errors.Is(err, api.ErrNoFile) {
			t.Fatalf("error = %v, want ErrNoFile", err)
		}
	})

	t.Run("server failure", func(t *testing.T) {
		h := newHarness(t, &fakeAPI{uploadErr: &api.HTTPError{StatusCode: 500, Detail: "disk full"}})
		var err error
		h.c.SubmitFile(context.Background(), h.audioFile(), func(_ string, e error) { err = e })
		h.v.Flush()
		var ue *api.UploadError
		if !errors.As(err, &ue) || api.Detail(err) != "disk full" {
			t.Fatalf("error = %v, want UploadError with detail", err)
		}
		if h.c.Phase() != model.PhaseIdle {
			t.Errorf("phase = %s, want idle", h.c.Phase())
		}
	})
}

func TestController_NewFileResetsRunningJob(t *testing.T) {
	h := newHarness(t, &fakeAPI{replies: []reply{status(model.StatusProcessing, 60)}})
	h.startPolling()
	h.v.Advance(time.Second)

	h.api.uploadID = "def"
	id := h.upload()
	if id != "def" || h.c.Phase() != model.PhaseUploaded {
		t.Fatalf("after new upload: id=%q phase=%s", id, h.c.Phase())
	}
	if n := h.v.ActiveTimers(); n != 0 {
		t.Errorf("active timers after reset = %d", n)
	}
	if p := h.c.Progress(); p.Displayed != 0 || p.Target != 0 {
		t.Errorf("progress not reset: %+v", p)
	}
}

func TestController_StaleUploadIsDropped(t *testing.T) {
	h := newHarness(t, &fakeAPI{})
	calls := 0
	path := h.audioFile()
	h.c.SubmitFile(context.Background(), path, func(string, error) { calls++ })
	h.c.SubmitFile(context.Background(), path, func(string, error) { calls++ })
	h.v.Flush()
	if calls != 1 {
		t.Errorf("done called %d times, want 1", calls)
	}
}

func TestController_UnknownStatusIsNoop(t *testing.T) {
	h := newHarness(t, &fakeAPI{replies: []reply{
		status(model.StatusProcessing, 10),
		{st: api.Status{Status: "paused", Progress: 80}},
	}})
	h.startPolling()
	h.v.Advance(PollInterval)

	if h.c.Phase() != model.PhasePolling {
		t.Fatalf("phase = %s", h.c.Phase())
	}
	if got := h.c.Progress().Target; got != 10 {
		t.Errorf("Target = %v, want 10", got)
	}
	if got := h.c.Job().Status; got != model.StatusProcessing {
		t.Errorf("Job().Status = %s", got)
	}
}

func TestController_ElapsedReported(t *testing.T) {
	h := newHarness(t, &fakeAPI{replies: []reply{status(model.StatusProcessing, 30)}})
	h.startPolling()
	h.v.Advance(65 * time.Second)

	last := h.rep.updates[len(h.rep.updates)-1]
	if last.Elapsed < 64*time.Second || last.Elapsed > 65*time.Second {
		t.Errorf("Elapsed = %v, want about 65s", last.Elapsed)
	}
	if last.Stage != string(model.StatusProcessing) {
		t.Errorf("Stage = %q", last.Stage)
	}
}

func TestController_JobProgressIsClamped(t *testing.T) {
	tests := []struct {
		name     string
		reported int
		want     int
	}{
		{name: "negative", reported: -5, want: 0},
		{name: "in range", reported: 37, want: 37},
		{name: "over 100", reported: 140, want: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, &fakeAPI{replies: []reply{status(model.StatusProcessing, tt.reported)}})
			h.startPolling()
			if got := h.c.Job().Progress; got != tt.want {
				t.Errorf("Job().Progress = %d, want %d", got, tt.want)
			}
			if got := h.c.Progress().Target; got != float64(tt.want) {
				t.Errorf("Target = %v, want %d", got, tt.want)
			}
		})
	}
}
