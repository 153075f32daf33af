package errors_test

import (
	"strings"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/client-sync/pkg/errors"
)

func TestSuggestionGenerator_EveryCategoryHasSuggestions(t *testing.T) {
	t.Parallel()

	categories := []errors.ErrorCategory{
		errors.CategoryCancelled,
		errors.CategoryCleanup,
		errors.CategoryDiskSpace,
		errors.CategoryDownload,
		errors.CategoryManifest,
		errors.CategoryNetwork,
		errors.CategoryPath,
		errors.CategoryPermission,
		errors.CategoryUnknown,
		errors.ErrorCategory("not-a-category"),
	}

	gen := errors.NewSuggestionGenerator()

	for _, category := range categories {
		t.Run(string(category), func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			g.Expect(gen.Generate(category, "")).ToNot(BeEmpty())
			g.Expect(gen.Generate(category, "/games/client")).ToNot(BeEmpty())
		})
	}
}

func TestSuggestionGenerator_PathIsMentioned(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		category errors.ErrorCategory
		path     string
	}{
		{errors.CategoryPermission, "/games/client/version.dat"},
		{errors.CategoryDiskSpace, "/games/client"},
		{errors.CategoryDownload, "game/lib/core.jar"},
		{errors.CategoryCleanup, "/games/client/old"},
		{errors.CategoryPath, "/missing/root"},
	}

	gen := errors.NewSuggestionGenerator()

	for _, testCase := range testCases {
		t.Run(string(testCase.category), func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			joined := strings.Join(gen.Generate(testCase.category, testCase.path), "\n")
			g.Expect(joined).To(ContainSubstring(testCase.path))
		})
	}
}

func TestSuggestionGenerator_NetworkMentionsConnection(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	suggestions := errors.NewSuggestionGenerator().Generate(errors.CategoryNetwork, "")

	g.Expect(strings.Join(suggestions, "\n")).To(ContainSubstring("internet connection"))
}
