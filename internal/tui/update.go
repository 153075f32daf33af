package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"

	"github.com/joe/client-sync/internal/syncengine"
	"github.com/joe/client-sync/internal/tui/shared"
	pkgerrors "github.com/joe/client-sync/pkg/errors"
)

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.bridge.ListenCmd(), m.spinner.Tick, m.fetchStatus(), shared.TickCmd()}

	if m.opts.AutoStart {
		cmds = append(cmds, m.startSync(m.opts.Repair))
	}

	return tea.Batch(cmds...)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = min(max(msg.Width-10, shared.ProgressBarWidth/2), shared.MaxProgressBarWidth)

		return m, nil

	case shared.EngineEventMsg:
		cmd := m.handleEvent(msg.Event)

		return m, tea.Batch(m.bridge.ListenCmd(), cmd)

	case statusMsg:
		m.status = msg.Status
		m.statusLoaded = true

		return m, nil

	case syncDoneMsg:
		if msg.Err != nil && errors.Is(msg.Err, pkgerrors.ErrAlreadyInProgress) {
			m.startErr = msg.Err
			m.logActivity("A sync is already running")
		}

		return m, nil

	case shared.TickMsg:
		// Refresh elapsed time and rate between progress events
		return m, shared.TickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case shared.KeyCtrlC:
		if m.active() && !m.cancelling {
			m.cancelling = true
			m.engine.Cancel()
			m.logActivity("Cancelling...")

			return m, nil
		}

		m.quitting = true

		return m, tea.Quit

	case shared.KeyQuit, "esc":
		if m.active() {
			return m, nil
		}

		m.quitting = true

		return m, tea.Quit

	case shared.KeySync, shared.KeyRepair:
		if m.active() {
			return m, nil
		}

		return m, m.startSync(msg.String() == shared.KeyRepair)
	}

	return m, nil
}

func (m *Model) handleEvent(event syncengine.Event) tea.Cmd {
	switch ev := event.(type) {
	case syncengine.PhaseChanged:
		m.onPhaseChanged(ev)

	case syncengine.ProgressUpdated:
		m.progress = ev.Progress

	case syncengine.FileDownloaded:
		m.bytes += ev.Bytes
		m.logActivity(fmt.Sprintf("Downloaded %s (%s)", ev.Path, shared.FormatBytes(ev.Bytes)))

	case syncengine.CleanupFailed:
		m.cleanupErrors = append(m.cleanupErrors, shared.PathError{Path: ev.Path, Err: ev.Err})
		m.logActivity("Could not remove " + ev.Path)

	case syncengine.SessionFinished:
		return m.onSessionFinished(ev)
	}

	return nil
}

func (m *Model) onPhaseChanged(ev syncengine.PhaseChanged) {
	if ev.Phase == syncengine.PhaseCheckingVersion {
		m.bytes = 0
		m.cleanupErrors = nil
		m.finished = nil
		m.startErr = nil
		m.endedAt = time.Time{}
	}

	m.repair = ev.Repair
	m.progress.Phase = ev.Phase

	if ev.Phase != syncengine.PhaseCancelled && ev.Phase != syncengine.PhaseFailed {
		m.reached = ev.Phase
	}

	m.logActivity(ev.Phase.Label())
}

func (m *Model) onSessionFinished(ev syncengine.SessionFinished) tea.Cmd {
	m.finished = &ev
	m.cancelling = false
	m.endedAt = m.clock.Now()

	switch ev.Outcome {
	case syncengine.PhaseCompleting:
		m.logActivity(fmt.Sprintf("Version %s installed: %d downloaded, %d removed", ev.Version, ev.Downloaded, ev.Removed))
	case syncengine.PhaseCancelled:
		m.logActivity(fmt.Sprintf("Cancelled after %d downloads", ev.Downloaded))
	default:
		m.logActivity("Failed")
	}

	if m.opts.ExitWhenDone {
		m.quitting = true

		return tea.Quit
	}

	return m.fetchStatus()
}

func (m Model) fetchStatus() tea.Cmd {
	engine := m.engine
	ctx := m.ctx

	return func() tea.Msg {
		return statusMsg{Status: engine.GetStatus(ctx)}
	}
}

func (m Model) startSync(repair bool) tea.Cmd {
	engine := m.engine
	ctx := m.ctx

	return func() tea.Msg {
		return syncDoneMsg{Err: engine.StartSync(ctx, repair)}
	}
}
