package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"

	"github.com/joe/client-sync/internal/syncengine"
	"github.com/joe/client-sync/internal/tui/shared"
)

// Subscriber registers an event emitter and returns its unsubscribe function.
type Subscriber interface {
	Subscribe(emitter syncengine.EventEmitter) func()
}

// Run shows the sync screen until the user quits, or the session ends when
// ExitWhenDone is set. It returns the model's final state.
func Run(ctx context.Context, engine Engine, events Subscriber, opts Options) (Model, error) {
	bridge := shared.NewEventBridge()
	defer bridge.Close()

	unsubscribe := events.Subscribe(bridge)
	defer unsubscribe()

	program := tea.NewProgram(NewModel(ctx, engine, bridge, opts), tea.WithContext(ctx), tea.WithAltScreen())

	final, err := program.Run()

	// A quit during a session leaves it running
	engine.Cancel()

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return Model{}, errors.Wrap(err, "run terminal UI")
	}

	model, ok := final.(Model)
	if !ok {
		return Model{}, errors.New("unexpected model type")
	}

	return model, nil
}
