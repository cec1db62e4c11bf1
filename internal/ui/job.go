package ui

import (
	"time"

	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"

	"whisperctl/internal/model"
	"whisperctl/internal/progress"
)

const maxLogLines = 5

type jobState struct {
	id      string
	file    string
	phase   model.Phase
	stage   string
	percent float64
	elapsed time.Duration

	result *progress.Result
	done   bool

	spinner spinner.Model
	bar     bubblesprogress.Model

	// recent warnings, oldest first
	logs []string
}

func newJobState(file string, styles Styles) *jobState {
	sp := spinner.New()
	sp.Style = styles.Spinner
	bar := bubblesprogress.New(
		bubblesprogress.WithDefaultGradient(),
		bubblesprogress.WithWidth(40),
	)
	return &jobState{
		file:    file,
		phase:   model.PhaseIdle,
		spinner: sp,
		bar:     bar,
	}
}

func (js *jobState) apply(u progress.Update) {
	js.id = u.JobID
	js.phase = u.Phase
	js.percent = u.Percent
	js.elapsed = u.Elapsed
	if u.Stage != "" {
		js.stage = u.Stage
	}
}

func (js *jobState) log(line string) {
	if len(js.logs) >= maxLogLines {
		js.logs = js.logs[1:]
	}
	js.logs = append(js.logs, line)
}
