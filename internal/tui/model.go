// Package tui renders sync sessions in the terminal with bubbletea.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/jonboulle/clockwork"

	"github.com/joe/client-sync/internal/syncengine"
	"github.com/joe/client-sync/internal/tui/shared"
)

// Engine is the part of syncengine.Engine the UI drives.
type Engine interface {
	Cancel()
	GetProgress() syncengine.Progress
	GetStatus(ctx context.Context) syncengine.GameStatus
	IsActive() bool
	StartSync(ctx context.Context, repair bool) error
}

// Options configures the model.
type Options struct {
	// Root is shown in the header
	Root string
	// AutoStart starts a session as soon as the UI is up
	AutoStart bool
	// Repair selects repair for AutoStart
	Repair bool
	// ExitWhenDone quits after the first session finishes
	ExitWhenDone bool
	// Clock stamps activity entries; nil means the real clock
	Clock clockwork.Clock
}

// Model is the bubbletea model for the sync screen.
type Model struct {
	engine Engine
	bridge *shared.EventBridge
	opts   Options
	clock  clockwork.Clock
	ctx    context.Context //nolint:containedctx // Sessions outlive a single Update call

	status       syncengine.GameStatus
	statusLoaded bool

	progress      syncengine.Progress
	reached       syncengine.Phase
	repair        bool
	bytes         int64
	finished      *syncengine.SessionFinished
	cleanupErrors []shared.PathError
	startErr      error
	endedAt       time.Time
	activity      []string

	bar     progress.Model
	spinner spinner.Model

	width      int
	height     int
	cancelling bool
	quitting   bool
}

// NewModel creates a model that receives engine events through bridge.
func NewModel(ctx context.Context, engine Engine, bridge *shared.EventBridge, opts Options) Model {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return Model{
		engine:   engine,
		bridge:   bridge,
		opts:     opts,
		clock:    clock,
		ctx:      ctx,
		progress: engine.GetProgress(),
		reached:  syncengine.PhaseIdle,
		repair:   opts.Repair,
		bar:      shared.NewProgressModel(shared.ProgressBarWidth),
		spinner:  spin,
	}
}

// Finished returns the last SessionFinished event, or nil if no session ended.
func (m Model) Finished() *syncengine.SessionFinished {
	return m.finished
}

// StartErr returns the error from the last refused start.
func (m Model) StartErr() error {
	return m.startErr
}

func (m Model) active() bool {
	return m.engine.IsActive()
}

func (m Model) elapsed() time.Duration {
	if m.progress.StartTime.IsZero() {
		return 0
	}

	if !m.endedAt.IsZero() {
		return m.endedAt.Sub(m.progress.StartTime)
	}

	return m.clock.Now().Sub(m.progress.StartTime)
}

func (m *Model) logActivity(text string) {
	const maxActivity = 200

	m.activity = append(m.activity, m.clock.Now().Format("15:04:05")+" - "+text)
	if len(m.activity) > maxActivity {
		m.activity = m.activity[len(m.activity)-maxActivity:]
	}
}
