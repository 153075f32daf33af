package errors_test

import (
	"errors"
	"testing"

	crdb "github.com/cockroachdb/errors"

	pkgerrors "github.com/joe/client-sync/pkg/errors"
)

func TestPatternMatcher_CaseInsensitive(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		errorMsg string
		expected pkgerrors.ErrorCategory
	}{
		{
			name:     "uppercase permission denied",
			errorMsg: "PERMISSION DENIED",
			expected: pkgerrors.CategoryPermission,
		},
		{
			name:     "mixed case no space left",
			errorMsg: "No Space Left On Device",
			expected: pkgerrors.CategoryDiskSpace,
		},
		{
			name:     "mixed case connection refused",
			errorMsg: "Connection Refused",
			expected: pkgerrors.CategoryNetwork,
		},
	}

	matcher := pkgerrors.NewPatternMatcher()

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			category := matcher.Match(testCase.errorMsg)
			if category != testCase.expected {
				t.Errorf("expected category %q, got %q for error: %q",
					testCase.expected, category, testCase.errorMsg)
			}
		})
	}
}

func TestPatternMatcher_Match(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		errorMsg string
		expected pkgerrors.ErrorCategory
	}{
		{"operation not permitted", "rename a b: operation not permitted", pkgerrors.CategoryPermission},
		{"quota exceeded", "write x: quota exceeded", pkgerrors.CategoryDiskSpace},
		{"dns failure", "dial tcp: lookup cdn.example: no such host", pkgerrors.CategoryNetwork},
		{"timeout", "Get \"https://cdn.example/production.json\": context deadline exceeded", pkgerrors.CategoryNetwork},
		{"bad status", "unexpected status 503 Service Unavailable", pkgerrors.CategoryNetwork},
		{"truncated json", "unexpected end of JSON input", pkgerrors.CategoryManifest},
		{"digest mismatch", "digest mismatch: want abc got def", pkgerrors.CategoryDownload},
		{"io error", "read /dev/sdb: input/output error", pkgerrors.CategoryDownload},
		{"directory not empty", "remove game/old: directory not empty", pkgerrors.CategoryCleanup},
		{"missing file", "open game/x: no such file or directory", pkgerrors.CategoryPath},
		{"unknown", "the cat sat on the keyboard", pkgerrors.CategoryUnknown},
		{"empty", "", pkgerrors.CategoryUnknown},
	}

	matcher := pkgerrors.NewPatternMatcher()

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			category := matcher.Match(testCase.errorMsg)
			if category != testCase.expected {
				t.Errorf("expected category %q, got %q for error: %q",
					testCase.expected, category, testCase.errorMsg)
			}
		})
	}
}

func TestTaxonomyCategory(t *testing.T) {
	t.Parallel()

	base := errors.New("boom")

	testCases := []struct {
		name     string
		err      error
		expected pkgerrors.ErrorCategory
	}{
		{"nil", nil, pkgerrors.CategoryUnknown},
		{"plain", base, pkgerrors.CategoryUnknown},
		{"network", pkgerrors.Network(base, "GET %s", "/x"), pkgerrors.CategoryNetwork},
		{"manifest", pkgerrors.ManifestParse("missing version"), pkgerrors.CategoryManifest},
		{"download", &pkgerrors.DownloadError{Path: "a", Err: base}, pkgerrors.CategoryDownload},
		{"download wrapping network", &pkgerrors.DownloadError{Path: "a", Err: pkgerrors.Network(base, "GET")}, pkgerrors.CategoryNetwork},
		{"cleanup", pkgerrors.Cleanup(base, "old.txt"), pkgerrors.CategoryCleanup},
		{"cancelled", crdb.Wrap(pkgerrors.ErrCancelled, "verifying"), pkgerrors.CategoryCancelled},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			category := pkgerrors.TaxonomyCategory(testCase.err)
			if category != testCase.expected {
				t.Errorf("expected category %q, got %q", testCase.expected, category)
			}
		})
	}
}
