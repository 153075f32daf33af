package syncengine

import (
	"context"
	"path"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/joe/client-sync/internal/logger"
	pkgerrors "github.com/joe/client-sync/pkg/errors"
	"github.com/joe/client-sync/pkg/filesystem"
)

// ReclaimResult summarizes a cleanup pass.
type ReclaimResult struct {
	Removed  int
	Failures []error
}

// ObsoleteFileReclaimer removes local paths that are neither expected nor protected.
type ObsoleteFileReclaimer struct {
	fsys      afero.Fs
	root      string
	log       *zap.Logger
	onFailure func(path string, err error)
}

// NewObsoleteFileReclaimer creates a reclaimer for the tree under root. onFailure,
// when set, is called for every path that could not be removed.
func NewObsoleteFileReclaimer(
	fsys afero.Fs,
	root string,
	log *zap.Logger,
	onFailure func(path string, err error),
) *ObsoleteFileReclaimer {
	return &ObsoleteFileReclaimer{fsys: fsys, root: root, log: logger.OrNop(log), onFailure: onFailure}
}

// Reclaim deletes obsolete files, then obsolete directories deepest first when they
// are empty at that moment. Individual failures are recorded and skipped; only
// cancellation stops the pass early.
func (r *ObsoleteFileReclaimer) Reclaim(
	ctx context.Context,
	expectedPaths []string,
	protected *ProtectedPaths,
) (ReclaimResult, error) {
	var result ReclaimResult

	listing, err := filesystem.ListAllPaths(r.fsys, r.root)
	if err != nil {
		r.recordFailure(&result, ".", err)

		return result, nil
	}

	for _, skipped := range listing.Skipped {
		r.log.Debug("entry skipped during cleanup scan", zap.Error(skipped))
	}

	keep := keepSet(expectedPaths)
	obsolete := func(rel string) bool {
		_, kept := keep[rel]

		return !kept && !protected.Protects(rel)
	}

	for _, rel := range listing.Files() {
		if err := ctx.Err(); err != nil {
			return result, errors.Mark(errors.Wrap(err, "cleanup"), pkgerrors.ErrCancelled)
		}

		if !obsolete(rel) {
			continue
		}

		if err := r.fsys.Remove(filesystem.Join(r.root, rel)); err != nil {
			r.recordFailure(&result, rel, err)

			continue
		}

		result.Removed++

		r.log.Debug("removed obsolete file", zap.String(logger.FieldPath, rel))
	}

	for _, rel := range listing.Dirs() {
		if err := ctx.Err(); err != nil {
			return result, errors.Mark(errors.Wrap(err, "cleanup"), pkgerrors.ErrCancelled)
		}

		if !obsolete(rel) {
			continue
		}

		r.removeIfEmpty(&result, rel)
	}

	return result, nil
}

func (r *ObsoleteFileReclaimer) removeIfEmpty(result *ReclaimResult, rel string) {
	target := filesystem.Join(r.root, rel)

	empty, err := afero.IsEmpty(r.fsys, target)
	if err != nil {
		r.recordFailure(result, rel, err)

		return
	}

	if !empty {
		r.log.Debug("keeping non-empty directory", zap.String(logger.FieldPath, rel))

		return
	}

	if err := r.fsys.Remove(target); err != nil {
		r.recordFailure(result, rel, err)

		return
	}

	result.Removed++

	r.log.Debug("removed obsolete directory", zap.String(logger.FieldPath, rel))
}

func (r *ObsoleteFileReclaimer) recordFailure(result *ReclaimResult, rel string, err error) {
	cleanupErr := pkgerrors.Cleanup(err, rel)
	result.Failures = append(result.Failures, cleanupErr)

	r.log.Warn("cleanup failed", zap.String(logger.FieldPath, rel), zap.Error(cleanupErr))

	if r.onFailure != nil {
		r.onFailure(rel, cleanupErr)
	}
}

// keepSet returns the expected paths together with all of their ancestor directories.
func keepSet(expectedPaths []string) map[string]struct{} {
	keep := make(map[string]struct{}, len(expectedPaths))

	for _, expected := range expectedPaths {
		for p := expected; p != "." && p != "/" && p != ""; p = path.Dir(p) {
			if _, seen := keep[p]; seen {
				break
			}

			keep[p] = struct{}{}
		}
	}

	return keep
}
