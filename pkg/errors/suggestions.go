package errors

import "fmt"

// SuggestionGenerator generates actionable suggestions based on error category.
type SuggestionGenerator interface {
	Generate(category ErrorCategory, affectedPath string) []string
}

// NewSuggestionGenerator creates a new SuggestionGenerator.
func NewSuggestionGenerator() SuggestionGenerator {
	return &suggestionGenerator{}
}

// suggestionGenerator is the concrete implementation of SuggestionGenerator.
type suggestionGenerator struct{}

// Generate returns actionable suggestions based on the error category and affected path.
func (g *suggestionGenerator) Generate(category ErrorCategory, affectedPath string) []string {
	switch category {
	case CategoryCancelled:
		return g.generateCancelledSuggestions(affectedPath)
	case CategoryCleanup:
		return g.generateCleanupSuggestions(affectedPath)
	case CategoryDiskSpace:
		return g.generateDiskSpaceSuggestions(affectedPath)
	case CategoryDownload:
		return g.generateDownloadSuggestions(affectedPath)
	case CategoryManifest:
		return g.generateManifestSuggestions(affectedPath)
	case CategoryNetwork:
		return g.generateNetworkSuggestions(affectedPath)
	case CategoryPath:
		return g.generatePathSuggestions(affectedPath)
	case CategoryPermission:
		return g.generatePermissionSuggestions(affectedPath)
	case CategoryUnknown:
		return g.generateUnknownSuggestions(affectedPath)
	default:
		return g.generateUnknownSuggestions(affectedPath)
	}
}

func (g *suggestionGenerator) generateCancelledSuggestions(_ string) []string {
	return []string{
		"Run sync again to resume; files already downloaded will be kept",
	}
}

func (g *suggestionGenerator) generateCleanupSuggestions(path string) []string {
	suggestions := []string{
		"Leftover files do not affect the game and can be removed by hand",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("List contents with 'ls -la %s'", path))
	}

	return suggestions
}

func (g *suggestionGenerator) generateDiskSpaceSuggestions(path string) []string {
	suggestions := []string{
		"Free up space on the device holding the install directory",
		"Check available space with 'df -h'",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify disk usage for the filesystem containing "+path)
	}

	return suggestions
}

func (g *suggestionGenerator) generateDownloadSuggestions(path string) []string {
	suggestions := []string{
		"Run sync again; files that already match are skipped",
		"Run repair if the problem persists",
	}

	if path != "" {
		suggestions = append(suggestions, "The failing file was "+path)
	}

	return suggestions
}

func (g *suggestionGenerator) generateManifestSuggestions(_ string) []string {
	return []string{
		"The published manifest is invalid; try again later",
		"Switch environment with --env if you are testing a staging build",
	}
}

func (g *suggestionGenerator) generateNetworkSuggestions(_ string) []string {
	return []string{
		"Check your internet connection",
		"Verify the CDN address with --cdn or the cdn setting",
		"Try again in a few minutes; the server may be temporarily unavailable",
	}
}

func (g *suggestionGenerator) generatePathSuggestions(path string) []string {
	suggestions := []string{
		"Verify the path exists and is spelled correctly",
	}

	if path != "" {
		suggestions = append(suggestions, "Check if the path exists: "+path)
		suggestions = append(suggestions, "Ensure all parent directories exist for "+path)
	} else {
		suggestions = append(suggestions, "Ensure all parent directories exist")
	}

	return suggestions
}

func (g *suggestionGenerator) generatePermissionSuggestions(path string) []string {
	suggestions := []string{
		"Ensure you have read/write permissions for the install directory",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("Check permissions with 'ls -la %s'", path))
	} else {
		suggestions = append(suggestions, "Check permissions with 'ls -la' on the affected path")
	}

	return suggestions
}

func (g *suggestionGenerator) generateUnknownSuggestions(path string) []string {
	suggestions := []string{
		"Check the error message for more details",
		"Run with --log-file to capture a detailed log",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify the path is accessible: "+path)
	}

	return suggestions
}
