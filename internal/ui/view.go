package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"whisperctl/internal/job"
	"whisperctl/internal/model"
	"whisperctl/internal/util/format"
)

func (m Model) viewHeader() string {
	title := m.styles.Title.Render("whisperctl · " + truncate(filepath.Base(m.job.file), 48))
	sub := m.styles.Subtitle.Render(fmt.Sprintf("Server: %s • q: quit", m.server))
	return title + "\n" + sub
}

func (m Model) viewJob() string {
	js := m.job
	phaseStyle := m.styles.JobInfo
	switch js.phase {
	case model.PhaseUploaded, model.PhaseSubmitted:
		phaseStyle = m.styles.StageUpload
	case model.PhasePolling, model.PhaseCompleting:
		phaseStyle = m.styles.StageRun
	case model.PhaseCompleted:
		phaseStyle = m.styles.Success
	case model.PhaseFailed:
		phaseStyle = m.styles.Error
	}

	left := m.styles.JobTitle.Render(phaseLabel(js.phase))
	if js.id != "" {
		left += " " + m.styles.Faint.Render(js.id)
	}

	var bar string
	switch {
	case js.phase == model.PhasePolling || js.phase == model.PhaseCompleting || js.phase == model.PhaseCompleted:
		bar = fmt.Sprintf("%s %5.1f%%  %s", js.bar.ViewAs(js.percent/100.0), js.percent, format.Clock(js.elapsed))
	case js.phase == model.PhaseFailed:
		bar = m.styles.Error.Render("✗ failed")
	default:
		bar = m.styles.Spinner.Render(js.spinner.View()) + " " + m.styles.Faint.Render("waiting")
	}

	lines := []string{left + "  " + phaseStyle.Render(string(js.phase)), bar}
	if js.stage != "" {
		lines = append(lines, m.styles.JobInfo.Render(js.stage))
	}
	for _, l := range js.logs {
		lines = append(lines, m.styles.Warning.Render(l))
	}
	return m.styles.Box.Render(strings.Join(lines, "\n")) + "\n"
}

func (m Model) viewSummary() string {
	r := m.job.result
	if r == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n")
	switch {
	case r.Err != nil:
		b.WriteString(m.styles.Error.Render("✗ " + r.Err.Error()))
	case r.Basic:
		b.WriteString(m.styles.Success.Render("✓ " + job.BasicCompletionText))
		if r.ProcessingTime > 0 {
			b.WriteString(m.styles.Faint.Render("  " + format.Seconds(r.ProcessingTime)))
		}
	case r.Transcript != nil:
		b.WriteString(m.styles.Success.Render("✓ Transcription complete"))
		b.WriteString("\n")
		b.WriteString(m.styles.JobInfo.Render(fmt.Sprintf("  %d words • %d characters • %s",
			r.Transcript.WordCount, r.Transcript.CharCount, format.Seconds(r.ProcessingTime))))
	}
	b.WriteString("\n")
	return b.String()
}

func phaseLabel(p model.Phase) string {
	switch p {
	case model.PhaseIdle:
		return "Uploading"
	case model.PhaseUploaded:
		return "Uploaded"
	case model.PhaseSubmitted:
		return "Submitting"
	case model.PhasePolling:
		return "Transcribing"
	case model.PhaseCompleting:
		return "Fetching transcript"
	case model.PhaseCompleted:
		return "Done"
	case model.PhaseFailed:
		return "Failed"
	default:
		return string(p)
	}
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if n <= 0 || len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}
