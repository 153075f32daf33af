package errors

import (
	"strings"

	crdb "github.com/cockroachdb/errors"
)

// PatternMatcher matches error messages to categories using string patterns.
type PatternMatcher interface {
	Match(errorMsg string) ErrorCategory
}

// NewPatternMatcher creates a new PatternMatcher with predefined patterns.
func NewPatternMatcher() PatternMatcher {
	return &patternMatcher{
		patterns: []categoryPatterns{
			{CategoryPermission, []string{
				"permission denied",
				"access denied",
				"operation not permitted",
			}},
			{CategoryDiskSpace, []string{
				"no space left on device",
				"disk full",
				"quota exceeded",
			}},
			{CategoryNetwork, []string{
				"connection refused",
				"connection reset",
				"no such host",
				"i/o timeout",
				"deadline exceeded",
				"tls handshake",
				"unexpected status",
			}},
			{CategoryManifest, []string{
				"unexpected end of json",
				"invalid character",
				"cannot unmarshal",
			}},
			{CategoryDownload, []string{
				"digest mismatch",
				"short write",
				"input/output error",
				"i/o error",
			}},
			{CategoryCleanup, []string{
				"directory not empty",
				"cannot remove",
			}},
			{CategoryPath, []string{
				"no such file or directory",
				"file not found",
				"path does not exist",
			}},
		},
	}
}

// TaxonomyCategory returns the category of err based on the sentinels it matches,
// or CategoryUnknown when it matches none.
func TaxonomyCategory(err error) ErrorCategory {
	switch {
	case err == nil:
		return CategoryUnknown
	case crdb.Is(err, ErrCancelled):
		return CategoryCancelled
	case crdb.Is(err, ErrManifestParse):
		return CategoryManifest
	case crdb.Is(err, ErrNetwork):
		return CategoryNetwork
	case crdb.Is(err, ErrDownload):
		return CategoryDownload
	case crdb.Is(err, ErrCleanup):
		return CategoryCleanup
	default:
		return CategoryUnknown
	}
}

type categoryPatterns struct {
	category ErrorCategory
	patterns []string
}

// patternMatcher is the concrete implementation of PatternMatcher.
type patternMatcher struct {
	patterns []categoryPatterns
}

// Match returns the error category based on pattern matching.
// Categories are tried in declaration order.
func (m *patternMatcher) Match(errorMsg string) ErrorCategory {
	lowerMsg := strings.ToLower(errorMsg)

	for _, entry := range m.patterns {
		for _, pattern := range entry.patterns {
			if strings.Contains(lowerMsg, pattern) {
				return entry.category
			}
		}
	}

	return CategoryUnknown
}
