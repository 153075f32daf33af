package tui

import (
	"github.com/joe/client-sync/internal/syncengine"
)

// statusMsg carries the result of a GetStatus call
type statusMsg struct {
	Status syncengine.GameStatus
}

// syncDoneMsg is sent when StartSync returns
type syncDoneMsg struct {
	Err error
}
