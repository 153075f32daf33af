//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package syncengine_test

import (
	"context"
	"testing"

	crdb "github.com/cockroachdb/errors"
	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/joe/client-sync/internal/syncengine"
	pkgerrors "github.com/joe/client-sync/pkg/errors"
)

func writeTree(t *testing.T, fsys afero.Fs, files ...string) {
	t.Helper()

	for _, path := range files {
		if err := afero.WriteFile(fsys, installRoot+"/"+path, []byte(path), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}

func TestReclaim_RemovesOnlyObsoleteEntries(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fsys := afero.NewMemMapFs()
	writeTree(t, fsys,
		"game/client.jar",
		"game/lib/core.jar",
		"game/lib/old.jar",
		"game/retired/a.bin",
		"game/retired/sub/b.bin",
		"game/saves/slot1.sav",
		"version.dat",
	)

	reclaimer := syncengine.NewObsoleteFileReclaimer(fsys, installRoot, nil, nil)
	protected := syncengine.NewProtectedPaths([]string{"version.dat", "game/saves"})

	result, err := reclaimer.Reclaim(context.Background(), []string{"game/client.jar", "game/lib/core.jar"}, protected)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(result.Failures).To(BeEmpty())
	// old.jar, a.bin, b.bin, retired/sub, retired
	g.Expect(result.Removed).To(Equal(5))

	for _, kept := range []string{"game/client.jar", "game/lib/core.jar", "game/saves/slot1.sav", "version.dat"} {
		ok, err := afero.Exists(fsys, installRoot+"/"+kept)
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(ok).To(BeTrue(), kept)
	}

	for _, gone := range []string{"game/lib/old.jar", "game/retired"} {
		ok, err := afero.Exists(fsys, installRoot+"/"+gone)
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(ok).To(BeFalse(), gone)
	}
}

func TestReclaim_KeepsDirectoryHoldingProtectedContent(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, "legacy/keep.cfg", "legacy/drop.txt")

	reclaimer := syncengine.NewObsoleteFileReclaimer(fsys, installRoot, nil, nil)
	protected := syncengine.NewProtectedPaths([]string{"**/*.cfg"})

	result, err := reclaimer.Reclaim(context.Background(), nil, protected)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(result.Removed).To(Equal(1))

	ok, err := afero.DirExists(fsys, installRoot+"/legacy")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(ok).To(BeTrue())
}

func TestReclaim_MissingRootIsNoop(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	reclaimer := syncengine.NewObsoleteFileReclaimer(afero.NewMemMapFs(), installRoot, nil, nil)

	result, err := reclaimer.Reclaim(context.Background(), []string{"a.bin"}, syncengine.NewProtectedPaths(nil))
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(result.Removed).To(Equal(0))
	g.Expect(result.Failures).To(BeEmpty())
}

func TestReclaim_FailuresAreLoggedAndReported(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	base := afero.NewMemMapFs()
	writeTree(t, base, "game/old.jar", "game/older.jar")

	core, logs := observer.New(zapcore.WarnLevel)

	var reported []string

	reclaimer := syncengine.NewObsoleteFileReclaimer(afero.NewReadOnlyFs(base), installRoot, zap.New(core),
		func(path string, err error) {
			g.Expect(crdb.Is(err, pkgerrors.ErrCleanup)).To(BeTrue())

			reported = append(reported, path)
		})

	result, err := reclaimer.Reclaim(context.Background(), nil, syncengine.NewProtectedPaths(nil))
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(result.Removed).To(Equal(0))
	g.Expect(result.Failures).To(HaveLen(2))
	g.Expect(reported).To(Equal([]string{"game/old.jar", "game/older.jar"}))
	g.Expect(logs.FilterMessage("cleanup failed").Len()).To(Equal(2))
}

func TestReclaim_StopsWhenCancelled(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, "a.bin", "b.bin")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reclaimer := syncengine.NewObsoleteFileReclaimer(fsys, installRoot, nil, nil)

	result, err := reclaimer.Reclaim(ctx, nil, syncengine.NewProtectedPaths(nil))
	g.Expect(crdb.Is(err, pkgerrors.ErrCancelled)).To(BeTrue())
	g.Expect(result.Removed).To(Equal(0))
}
