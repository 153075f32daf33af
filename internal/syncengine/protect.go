package syncengine

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ProtectedPaths decides which install-relative paths cleanup must never touch.
// An entry protects itself and everything below it; entries containing glob
// metacharacters are matched with doublestar. Matching ignores case.
type ProtectedPaths struct {
	prefixes []string
	globs    []string
}

// NewProtectedPaths builds a matcher from slash-separated entries.
func NewProtectedPaths(entries []string) *ProtectedPaths {
	protected := &ProtectedPaths{}

	for _, entry := range entries {
		normalized := strings.ToLower(strings.Trim(strings.TrimSpace(entry), "/"))
		if normalized == "" {
			continue
		}

		if strings.ContainsAny(normalized, "*?[{") {
			if doublestar.ValidatePattern(normalized) {
				protected.globs = append(protected.globs, normalized)
			}

			continue
		}

		protected.prefixes = append(protected.prefixes, normalized)
	}

	return protected
}

// Protects returns true if relativePath or one of its ancestors is protected.
func (p *ProtectedPaths) Protects(relativePath string) bool {
	normalizedPath := strings.ToLower(relativePath)

	for _, prefix := range p.prefixes {
		if normalizedPath == prefix || strings.HasPrefix(normalizedPath, prefix+"/") {
			return true
		}
	}

	for _, pattern := range p.globs {
		matched, err := doublestar.Match(pattern, normalizedPath)
		if err == nil && matched {
			return true
		}

		// A match on an ancestor protects its descendants too
		if ok, _ := doublestar.Match(pattern+"/**", normalizedPath); ok {
			return true
		}
	}

	return false
}
