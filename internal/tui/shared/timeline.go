package shared

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joe/client-sync/internal/syncengine"
)

// ActiveSymbol returns a circled dot symbol with ASCII fallback
func ActiveSymbol() string {
	if unicodeDisabled {
		return "[*]"
	}

	return "◉"
}

// CancelledSymbol returns a cancelled/prohibited symbol with ASCII fallback
func CancelledSymbol() string {
	if unicodeDisabled {
		return "[!]"
	}

	return "⊘"
}

type timelineStep struct {
	name   string
	phases []syncengine.Phase
}

// TimelineSteps returns the step names shown by RenderTimeline, in order.
func TimelineSteps(repair bool) []string {
	steps := timelineSteps(repair)
	names := make([]string, 0, len(steps))

	for _, step := range steps {
		names = append(names, step.name)
	}

	return names
}

// RenderTimeline renders the session's progression for the header.
// reached is the last non-terminal phase the session entered; outcome is
// Cancelled or Failed once the session ended that way, empty otherwise.
// Steps before reached show ✓, reached shows ◉ (✗ on failure, ⊘ on cancel),
// later steps show ○. Reaching Completing marks every step done.
func RenderTimeline(reached, outcome syncengine.Phase, repair bool) string {
	steps := timelineSteps(repair)

	currentIdx := -1

	for i, step := range steps {
		for _, phase := range step.phases {
			if phase == reached {
				currentIdx = i
			}
		}
	}

	ended := outcome == syncengine.PhaseFailed || outcome == syncengine.PhaseCancelled
	done := reached == syncengine.PhaseCompleting && !ended
	parts := make([]string, 0, len(steps))

	for stepIdx, step := range steps {
		var symbol string
		var style lipgloss.Style

		switch {
		case done || stepIdx < currentIdx:
			symbol = SuccessSymbol()
			style = lipgloss.NewStyle().Foreground(SuccessColor())
		case stepIdx == currentIdx && outcome == syncengine.PhaseFailed:
			symbol = ErrorSymbol()
			style = lipgloss.NewStyle().Foreground(ErrorColor())
		case stepIdx == currentIdx && outcome == syncengine.PhaseCancelled:
			symbol = CancelledSymbol()
			style = lipgloss.NewStyle().Foreground(WarningColor())
		case stepIdx == currentIdx:
			symbol = ActiveSymbol()
			style = lipgloss.NewStyle().Foreground(PrimaryColor())
		case ended:
			symbol = CancelledSymbol()
			style = DimStyle()
		default:
			symbol = PendingSymbol()
			style = DimStyle()
		}

		parts = append(parts, style.Render(symbol+" "+step.name))
	}

	return strings.Join(parts, DimStyle().Render(" ── "))
}

func timelineSteps(repair bool) []timelineStep {
	transfer := timelineStep{"Download", []syncengine.Phase{syncengine.PhaseDownloading, syncengine.PhaseRepairing}}
	if repair {
		transfer.name = "Repair"
	}

	return []timelineStep{
		{"Version", []syncengine.Phase{syncengine.PhaseCheckingVersion}},
		{"Verify", []syncengine.Phase{syncengine.PhaseVerifying}},
		transfer,
		{"Cleanup", []syncengine.Phase{syncengine.PhaseCleaningUp}},
		{"Done", []syncengine.Phase{syncengine.PhaseCompleting}},
	}
}
