// Package errors defines the sync error taxonomy and turns failures into
// actionable messages with suggestions.
//
// Sentinels (ErrNetwork, ErrDownload, ...) are built with cockroachdb/errors and
// matched with its Is. The Enricher categorizes any error, first by taxonomy and
// then by message patterns, and attaches suggestions for the user:
//
//	enricher := errors.NewEnricher()
//	actionable := enricher.Enrich(err, "")
//	fmt.Println(actionable.Error())
//	fmt.Println(errors.FormatSuggestions(actionable))
package errors

import (
	"strings"

	crdb "github.com/cockroachdb/errors"
)

// Exported constants.
const (
	CategoryCancelled  ErrorCategory = "cancelled"
	CategoryCleanup    ErrorCategory = "cleanup"
	CategoryDiskSpace  ErrorCategory = "disk_space"
	CategoryDownload   ErrorCategory = "download"
	CategoryManifest   ErrorCategory = "manifest"
	CategoryNetwork    ErrorCategory = "network"
	CategoryPath       ErrorCategory = "path"
	CategoryPermission ErrorCategory = "permission"
	CategoryUnknown    ErrorCategory = "unknown"
)

// ActionableError represents an error with actionable suggestions for the user.
type ActionableError interface {
	error
	OriginalError() string
	Category() ErrorCategory
	Suggestions() []string
	AffectedPath() string
}

// NewActionableError creates a new ActionableError with the given details.
func NewActionableError(
	originalError string,
	category ErrorCategory,
	suggestions []string,
	affectedPath string,
) ActionableError {
	return &actionableError{
		originalError: originalError,
		category:      category,
		suggestions:   suggestions,
		affectedPath:  affectedPath,
	}
}

// ErrorCategory represents the type of error that occurred.
type ErrorCategory string

// FormatSuggestions formats the suggestions from an ActionableError as a bulleted list
// for display in the TUI. Returns empty string if the error is nil or has no suggestions.
func FormatSuggestions(err error) string {
	if err == nil {
		return ""
	}

	var actionable ActionableError
	if !crdb.As(err, &actionable) {
		return ""
	}

	suggestions := actionable.Suggestions()
	if len(suggestions) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, suggestion := range suggestions {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString("  • ")
		builder.WriteString(suggestion)
	}

	return builder.String()
}

// actionableError is the concrete implementation of ActionableError.
type actionableError struct {
	originalError string
	category      ErrorCategory
	suggestions   []string
	affectedPath  string
}

// AffectedPath returns the file path affected by this error.
func (e *actionableError) AffectedPath() string {
	return e.affectedPath
}

// Category returns the error category.
func (e *actionableError) Category() ErrorCategory {
	return e.category
}

// Error implements the error interface.
func (e *actionableError) Error() string {
	return e.originalError
}

// OriginalError returns the original error message.
func (e *actionableError) OriginalError() string {
	return e.originalError
}

// Suggestions returns the list of actionable suggestions.
func (e *actionableError) Suggestions() []string {
	return e.suggestions
}
