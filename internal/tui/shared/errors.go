package shared

import (
	"fmt"
	"strings"

	"github.com/joe/client-sync/pkg/errors"
)

// Error display limits for different contexts
const (
	// ErrorLimitInProgress is for errors shown while a session runs
	ErrorLimitInProgress = 3

	// ErrorLimitFinished is for errors shown after a session ended
	ErrorLimitFinished = 10
)

// ErrorDisplayContext defines the context in which errors are being displayed
type ErrorDisplayContext int

const (
	// ContextInProgress indicates errors shown during a session
	ContextInProgress ErrorDisplayContext = iota
	// ContextFinished indicates errors shown after the session ended
	ContextFinished
)

// PathError is a failure tied to one install-relative path.
type PathError struct {
	Path string
	Err  error
}

// ErrorListConfig holds configuration for rendering error lists
type ErrorListConfig struct {
	Errors  []PathError
	Context ErrorDisplayContext
	// MaxWidth truncates paths and messages when positive
	MaxWidth int
}

// RenderErrorList renders path errors with suggestions, limited by context.
func RenderErrorList(config ErrorListConfig) string {
	if len(config.Errors) == 0 {
		return ""
	}

	var builder strings.Builder

	enricher := errors.NewEnricher()
	limit := getErrorLimit(config.Context)

	for i, pathErr := range config.Errors {
		if i >= limit {
			fmt.Fprintf(&builder, "%s\n", getOverflowMessage(config.Context, len(config.Errors)-limit))

			break
		}

		enrichedErr := enricher.Enrich(pathErr.Err, pathErr.Path)

		displayPath := pathErr.Path
		if config.MaxWidth > 0 {
			displayPath = TruncatePath(displayPath, config.MaxWidth)
		}

		fmt.Fprintf(&builder, "  %s %s\n", ErrorSymbol(), FileItemErrorStyle().Render(displayPath))
		fmt.Fprintf(&builder, "    %s\n", truncateMessage(enrichedErr.Error(), config.MaxWidth))

		if suggestions := errors.FormatSuggestions(enrichedErr); suggestions != "" {
			fmt.Fprintf(&builder, "%s\n", indent(suggestions, "    "))
		}
	}

	return builder.String()
}

// RenderSessionError renders the error that ended a session with its suggestions.
func RenderSessionError(err error, maxWidth int) string {
	if err == nil {
		return ""
	}

	enrichedErr := errors.NewEnricher().Enrich(err, "")

	var builder strings.Builder

	fmt.Fprintf(&builder, "%s %s\n", ErrorSymbol(), RenderError(truncateMessage(enrichedErr.Error(), maxWidth)))

	if suggestions := errors.FormatSuggestions(enrichedErr); suggestions != "" {
		fmt.Fprintf(&builder, "%s\n", indent(suggestions, "  "))
	}

	return builder.String()
}

// getErrorLimit returns the error display limit for a given context
func getErrorLimit(context ErrorDisplayContext) int {
	if context == ContextInProgress {
		return ErrorLimitInProgress
	}

	return ErrorLimitFinished
}

// getOverflowMessage returns the appropriate message when error limit is exceeded
func getOverflowMessage(context ErrorDisplayContext, remaining int) string {
	if context == ContextInProgress {
		return fmt.Sprintf("  ... and %d more (see log)", remaining)
	}

	return fmt.Sprintf("... and %d more error(s)", remaining)
}

func indent(text, prefix string) string {
	return prefix + strings.ReplaceAll(text, "\n", "\n"+prefix)
}

func truncateMessage(msg string, maxWidth int) string {
	if maxWidth > ProgressEllipsisLength && len(msg) > maxWidth {
		return msg[:maxWidth-ProgressEllipsisLength] + "..."
	}

	return msg
}
