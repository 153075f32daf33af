package errors

import (
	"regexp"
	"strings"

	crdb "github.com/cockroachdb/errors"
)

// Enricher enriches standard errors with actionable suggestions.
type Enricher interface {
	Enrich(err error, affectedPath string) error
}

// NewEnricher creates a new Enricher with default pattern matcher and suggestion generator.
func NewEnricher() Enricher {
	return &enricher{
		matcher:   NewPatternMatcher(),
		generator: NewSuggestionGenerator(),
	}
}

// unexported variables.
var (
	//nolint:gochecknoglobals // Compiled regexes shared across all enricher instances for performance
	pathExtractionPatterns = []*regexp.Regexp{
		// Unix/Linux paths (absolute and relative)
		regexp.MustCompile(`\b\w+\s+([./][^\s:]+):`),
		// Windows paths with backslashes
		regexp.MustCompile(`\b\w+\s+([A-Za-z]:\\[^\s:]+):`),
		// Windows paths with forward slashes
		regexp.MustCompile(`\b\w+\s+([A-Za-z]:/[^\s:]+):`),
	}
)

// enricher is the concrete implementation of Enricher.
type enricher struct {
	matcher   PatternMatcher
	generator SuggestionGenerator
}

// Enrich takes an error and enriches it with category and actionable suggestions.
// If the error is already an ActionableError, it is returned unchanged.
// If affectedPath is empty, the path of a DownloadError or one found in the message is used.
// Hints attached with cockroachdb/errors WithHint come before the generated suggestions.
func (e *enricher) Enrich(err error, affectedPath string) error {
	var actionableErr ActionableError
	if crdb.As(err, &actionableErr) {
		return actionableErr
	}

	errMsg := err.Error()

	if affectedPath == "" {
		var downloadErr *DownloadError
		if crdb.As(err, &downloadErr) {
			affectedPath = downloadErr.Path
		} else {
			affectedPath = extractPath(errMsg)
		}
	}

	category := e.categorize(err, errMsg)

	suggestions := append(crdb.GetAllHints(err), e.generator.Generate(category, affectedPath)...)

	// Create and return actionable error
	return NewActionableError(
		errMsg,
		category,
		suggestions,
		affectedPath,
	)
}

// categorize prefers the taxonomy; a download or network failure whose message
// names a local disk space or permission problem is categorized by that cause.
func (e *enricher) categorize(err error, errMsg string) ErrorCategory {
	byTaxonomy := TaxonomyCategory(err)
	byMessage := e.matcher.Match(errMsg)

	switch byTaxonomy {
	case CategoryUnknown:
		return byMessage
	case CategoryDownload, CategoryNetwork:
		if byMessage == CategoryDiskSpace || byMessage == CategoryPermission {
			return byMessage
		}
	}

	return byTaxonomy
}

// extractPath attempts to extract a file path from common Go error message formats
// such as "open /path/to/file: permission denied". Returns empty string if none is found.
func extractPath(errorMsg string) string {
	for _, pattern := range pathExtractionPatterns {
		if matches := pattern.FindStringSubmatch(errorMsg); len(matches) > 1 {
			path := strings.TrimSpace(matches[1])
			if path != "" {
				return path
			}
		}
	}

	return ""
}
