package syncengine

import "time"

// Phase is the state of the sync session.
type Phase string

// Session phases.
const (
	PhaseIdle            Phase = "idle"
	PhaseCheckingVersion Phase = "checking_version"
	PhaseVerifying       Phase = "verifying"
	PhaseDownloading     Phase = "downloading"
	PhaseRepairing       Phase = "repairing"
	PhaseCleaningUp      Phase = "cleaning_up"
	PhaseCompleting      Phase = "completing"
	PhaseCancelled       Phase = "cancelled"
	PhaseFailed          Phase = "failed"
)

// IsTerminal reports whether p ends a session.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleting || p == PhaseCancelled || p == PhaseFailed
}

// Label returns a short human-readable description.
func (p Phase) Label() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseCheckingVersion:
		return "Checking version"
	case PhaseVerifying:
		return "Verifying files"
	case PhaseDownloading:
		return "Downloading"
	case PhaseRepairing:
		return "Repairing"
	case PhaseCleaningUp:
		return "Cleaning up"
	case PhaseCompleting:
		return "Complete"
	case PhaseCancelled:
		return "Cancelled"
	case PhaseFailed:
		return "Failed"
	default:
		return string(p)
	}
}

// Progress is a snapshot of the current or most recent session.
type Progress struct {
	SessionID string
	Phase     Phase
	Repair    bool

	// FilesTotal and FilesLoaded count items of the current phase
	FilesTotal  int
	FilesLoaded int
	// CurrentItem is advisory only
	CurrentItem string

	Downloaded int
	Removed    int
	// BytesTransferred counts artifact bytes received this session, partial files included
	BytesTransferred int64
	StartTime        time.Time

	// LastOutcome and LastError describe the previous finished session
	LastOutcome Phase
	LastError   error
}

// Percent returns FilesLoaded as a percentage of FilesTotal.
func (p Progress) Percent() float64 {
	if p.FilesTotal <= 0 {
		return 0
	}

	return float64(p.FilesLoaded) / float64(p.FilesTotal) * percentScale
}

// GameStatus is the installed state as seen by GetStatus.
type GameStatus struct {
	Installed     bool
	NeedsUpdate   bool
	LocalVersion  string
	RemoteVersion string
	Error         error
}

const percentScale = 100
