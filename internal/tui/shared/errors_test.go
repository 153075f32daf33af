package shared_test

import (
	"os"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/client-sync/internal/tui/shared"
	pkgerrors "github.com/joe/client-sync/pkg/errors"
)

func TestRenderErrorList_Empty(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(shared.RenderErrorList(shared.ErrorListConfig{})).To(BeEmpty())
}

func TestRenderErrorList_ShowsPathAndSuggestions(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	result := stripANSI(shared.RenderErrorList(shared.ErrorListConfig{
		Errors: []shared.PathError{{
			Path: "old/file.bin",
			Err:  pkgerrors.Cleanup(os.ErrPermission, "old/file.bin"),
		}},
		Context: shared.ContextFinished,
	}))

	g.Expect(result).To(ContainSubstring("old/file.bin"))
	g.Expect(result).To(ContainSubstring("permission denied"))
	g.Expect(result).To(ContainSubstring("•"))
}

func TestRenderErrorList_LimitsByContext(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	errs := make([]shared.PathError, 5)
	for i := range errs {
		errs[i] = shared.PathError{Path: "p", Err: errors.New("directory not empty")}
	}

	inProgress := shared.RenderErrorList(shared.ErrorListConfig{Errors: errs, Context: shared.ContextInProgress})
	g.Expect(strings.Count(inProgress, shared.ErrorSymbol())).To(Equal(shared.ErrorLimitInProgress))
	g.Expect(inProgress).To(ContainSubstring("... and 2 more (see log)"))

	finished := shared.RenderErrorList(shared.ErrorListConfig{Errors: errs, Context: shared.ContextFinished})
	g.Expect(strings.Count(finished, shared.ErrorSymbol())).To(Equal(5))
	g.Expect(finished).NotTo(ContainSubstring("more"))
}

func TestRenderErrorList_TruncatesToWidth(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	result := stripANSI(shared.RenderErrorList(shared.ErrorListConfig{
		Errors:   []shared.PathError{{Path: strings.Repeat("d/", 40) + "f", Err: errors.New(strings.Repeat("x", 100))}},
		MaxWidth: 20,
		Context:  shared.ContextFinished,
	}))

	g.Expect(result).To(ContainSubstring("..."))
	g.Expect(result).NotTo(ContainSubstring(strings.Repeat("x", 30)))
}

func TestRenderSessionError(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(shared.RenderSessionError(nil, 80)).To(BeEmpty())

	result := stripANSI(shared.RenderSessionError(
		pkgerrors.Network(errors.New("no such host"), "fetch production.json"), 0))
	g.Expect(result).To(ContainSubstring("no such host"))
	g.Expect(result).To(ContainSubstring("Check your internet connection"))
}
