package ui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"whisperctl/internal/progress"
)

// Model renders a single transcription job. It is fed by the Reporter
// returned from Reporter and quits once the job reports its result.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	server string
	job    *jobState

	width  int
	styles Styles

	// Internal event channel used by reporter to feed tea messages
	eventCh chan tea.Msg
}

// NewModel returns a Model for file. Cancelling the returned model's
// context (q or ctrl+c) is visible through Context.
func NewModel(ctx context.Context, file, server string) Model {
	c, cancel := context.WithCancel(ctx)
	sty := defaultStyles()
	return Model{
		ctx:     c,
		cancel:  cancel,
		server:  server,
		job:     newJobState(file, sty),
		styles:  sty,
		eventCh: make(chan tea.Msg, 256),
	}
}

// Context is cancelled when the user quits the TUI.
func (m Model) Context() context.Context { return m.ctx }

// Reporter returns a progress.Reporter that forwards events into the TUI.
func (m Model) Reporter() progress.Reporter {
	return teaReporter{ctx: m.ctx, ch: m.eventCh}
}

// Result returns the job result once the TUI has received it.
func (m Model) Result() (progress.Result, bool) {
	if m.job.result == nil {
		return progress.Result{}, false
	}
	return *m.job.result, true
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.job.spinner.Tick, m.listenEventsCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 24; w > 10 && w < 60 {
			m.job.bar.Width = w
		}
		return m, nil
	// Exactly one listener is outstanding; it is re-armed only after it
	// delivered an event, so reporter events are applied in send order.
	case jobUpdateMsg:
		m.job.apply(msg.U)
		return m, m.listenEventsCmd()
	case jobLogMsg:
		m.job.log(strings.TrimRight(msg.L.Line, "\r\n"))
		return m, m.listenEventsCmd()
	case jobResultMsg:
		r := msg.R
		m.job.result = &r
		m.job.done = true
		return m, tea.Quit
	case allDoneMsg:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.job.spinner, cmd = m.job.spinner.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return m.viewHeader() + "\n\n" + m.viewJob() + m.viewSummary()
}

func (m Model) listenEventsCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return allDoneMsg{}
		case msg := <-m.eventCh:
			return msg
		}
	}
}

// Run shows m until the job reports a result, the user quits or ctx is
// done, and returns the final model.
func Run(ctx context.Context, m Model) (Model, error) {
	prog := tea.NewProgram(m, tea.WithContext(ctx))
	final, err := prog.Run()
	if fm, ok := final.(Model); ok {
		m = fm
	}
	return m, err
}

type teaReporter struct {
	ctx context.Context
	ch  chan tea.Msg
}

func (r teaReporter) Update(u progress.Update) {
	// Block on terminal phases so the final frame is not dropped
	if u.Phase.Terminal() {
		r.send(jobUpdateMsg{U: u})
		return
	}
	select {
	case r.ch <- jobUpdateMsg{U: u}:
	default:
	}
}

func (r teaReporter) Log(l progress.Log) {
	select {
	case r.ch <- jobLogMsg{L: l}:
	default:
	}
}

func (r teaReporter) Result(res progress.Result) {
	r.send(jobResultMsg{R: res})
}

func (r teaReporter) send(msg tea.Msg) {
	select {
	case r.ch <- msg:
	case <-r.ctx.Done():
	}
}
