package syncengine

// Event is the interface implemented by all sync engine events.
type Event interface {
	isEvent()
}

// EventEmitter is the interface for emitting events.
type EventEmitter interface {
	Emit(event Event)
}

// EmitterFunc adapts a function to EventEmitter.
type EmitterFunc func(event Event)

// Emit calls f(event).
func (f EmitterFunc) Emit(event Event) {
	f(event)
}

// PhaseChanged is emitted when the session enters a new phase.
type PhaseChanged struct {
	SessionID string
	Phase     Phase
	Repair    bool
}

func (PhaseChanged) isEvent() {}

// ProgressUpdated carries a progress snapshot. Updates within a phase are throttled
// but the last one of each phase is always delivered.
type ProgressUpdated struct {
	Progress Progress
}

func (ProgressUpdated) isEvent() {}

// FileDownloaded is emitted after each file is placed in the install tree.
type FileDownloaded struct {
	Path  string
	Bytes int64
}

func (FileDownloaded) isEvent() {}

// CleanupFailed is emitted for each obsolete path that could not be removed.
// The session continues.
type CleanupFailed struct {
	Path string
	Err  error
}

func (CleanupFailed) isEvent() {}

// SessionFinished is always the last event of a session.
type SessionFinished struct {
	SessionID  string
	Outcome    Phase // PhaseCompleting, PhaseCancelled or PhaseFailed
	Version    string
	Downloaded int
	Removed    int
	Err        error
}

func (SessionFinished) isEvent() {}
