package tui

import (
	"fmt"
	"strings"

	"github.com/joe/client-sync/internal/syncengine"
	"github.com/joe/client-sync/internal/tui/shared"
)

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var builder strings.Builder

	builder.WriteString(shared.RenderTitle("Arena Returns client sync"))
	builder.WriteString("\n")
	builder.WriteString(shared.RenderTimeline(m.reached, m.outcome(), m.repair))
	builder.WriteString("\n\n")

	left := m.renderStatus() + "\n" + m.renderSession()
	right := shared.RenderActivityLog("Activity", m.activity, shared.ActivityLogEntries)

	if m.width >= shared.TwoColumnMinWidth {
		builder.WriteString(shared.RenderTwoColumnLayout(left, right, m.width))
	} else {
		builder.WriteString(left)
		builder.WriteString("\n")
		builder.WriteString(right)
	}

	builder.WriteString("\n\n")

	if errs := m.renderErrors(); errs != "" {
		builder.WriteString(errs)
		builder.WriteString("\n")
	}

	builder.WriteString(shared.RenderDim(m.helpText()))
	builder.WriteString("\n")

	return builder.String()
}

func (m Model) outcome() syncengine.Phase {
	if m.finished != nil {
		return m.finished.Outcome
	}

	return ""
}

func (m Model) renderStatus() string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "%s %s\n", shared.RenderLabel("Install:"), m.opts.Root)

	if !m.statusLoaded {
		fmt.Fprintf(&builder, "%s %s checking...\n", shared.RenderLabel("Version:"), m.spinner.View())

		return builder.String()
	}

	local := m.status.LocalVersion
	if !m.status.Installed {
		local = "not installed"
	}

	fmt.Fprintf(&builder, "%s %s\n", shared.RenderLabel("Installed:"), local)

	switch {
	case m.status.Error != nil:
		fmt.Fprintf(&builder, "%s %s\n", shared.RenderLabel("Available:"), shared.RenderWarning("unknown"))
	case m.status.NeedsUpdate:
		fmt.Fprintf(&builder, "%s %s %s\n", shared.RenderLabel("Available:"), m.status.RemoteVersion,
			shared.RenderWarning("(update available)"))
	default:
		fmt.Fprintf(&builder, "%s %s %s\n", shared.RenderLabel("Available:"), m.status.RemoteVersion,
			shared.RenderSuccess("(up to date)"))
	}

	return builder.String()
}

func (m Model) renderSession() string {
	var builder strings.Builder

	switch {
	case m.finished != nil:
		builder.WriteString(m.renderResult())
	case m.active():
		builder.WriteString(m.renderRunning())
	default:
		return ""
	}

	return builder.String()
}

func (m Model) renderRunning() string {
	var builder strings.Builder

	label := m.progress.Phase.Label()
	if m.cancelling {
		label = "Cancelling"
	}

	fmt.Fprintf(&builder, "%s %s\n", m.spinner.View(), shared.RenderLabel(label))

	if m.progress.FilesTotal > 0 {
		builder.WriteString(shared.RenderProgress(m.bar, m.progress.Percent()/shared.ProgressPercentageScale))
		fmt.Fprintf(&builder, "\n%d / %d\n", m.progress.FilesLoaded, m.progress.FilesTotal)
	}

	if m.progress.CurrentItem != "" {
		builder.WriteString(shared.RenderDim(shared.TruncatePath(m.progress.CurrentItem, m.bar.Width)))
		builder.WriteString("\n")
	}

	builder.WriteString(m.renderTransfer())

	return builder.String()
}

func (m Model) renderResult() string {
	var builder strings.Builder

	switch m.finished.Outcome {
	case syncengine.PhaseCompleting:
		fmt.Fprintf(&builder, "%s %s\n", shared.SuccessSymbol(),
			shared.RenderSuccess("Version "+m.finished.Version+" is installed"))
	case syncengine.PhaseCancelled:
		fmt.Fprintf(&builder, "%s %s\n", shared.CancelledSymbol(), shared.RenderWarning("Sync cancelled"))
	default:
		fmt.Fprintf(&builder, "%s %s\n", shared.ErrorSymbol(), shared.RenderError("Sync failed"))
	}

	fmt.Fprintf(&builder, "Downloaded %d, removed %d in %s\n",
		m.finished.Downloaded, m.finished.Removed, shared.FormatDuration(m.elapsed()))
	builder.WriteString(m.renderTransfer())

	return builder.String()
}

func (m Model) renderTransfer() string {
	// Streamed bytes run ahead of placed files while a large file is in flight
	transferred := max(m.bytes, m.progress.BytesTransferred)
	if transferred == 0 {
		return ""
	}

	line := shared.FormatBytes(transferred)

	if seconds := m.elapsed().Seconds(); seconds > 0 {
		line += " at " + shared.FormatRate(float64(transferred)/seconds)
	}

	return shared.RenderDim(line) + "\n"
}

func (m Model) renderErrors() string {
	var builder strings.Builder

	if m.finished != nil && m.finished.Outcome == syncengine.PhaseFailed {
		builder.WriteString(shared.RenderSessionError(m.finished.Err, m.width))
	}

	if m.startErr != nil {
		builder.WriteString(shared.RenderSessionError(m.startErr, m.width))
	}

	context := shared.ContextInProgress
	if m.finished != nil {
		context = shared.ContextFinished
	}

	builder.WriteString(shared.RenderErrorList(shared.ErrorListConfig{
		Errors:   m.cleanupErrors,
		Context:  context,
		MaxWidth: m.width,
	}))

	return builder.String()
}

func (m Model) helpText() string {
	switch {
	case m.cancelling:
		return "ctrl+c again to quit"
	case m.active():
		return "ctrl+c cancel"
	default:
		return "s sync • r repair • q quit"
	}
}
