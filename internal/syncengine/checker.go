package syncengine

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/joe/client-sync/internal/logger"
	"github.com/joe/client-sync/internal/manifest"
	pkgerrors "github.com/joe/client-sync/pkg/errors"
	"github.com/joe/client-sync/pkg/fileops"
	"github.com/joe/client-sync/pkg/filesystem"
)

// IntegrityChecker decides whether a manifest entry must be fetched.
type IntegrityChecker struct {
	fileOps       *fileops.FileOps
	root          string
	existenceOnly bool
	log           *zap.Logger

	mu       sync.Mutex
	verified map[string]string // path -> digest that matched during this session
}

// NewIntegrityChecker creates a checker for the tree under root. With existenceOnly,
// a file that exists is trusted unless a content check is forced.
func NewIntegrityChecker(fileOps *fileops.FileOps, root string, existenceOnly bool, log *zap.Logger) *IntegrityChecker {
	return &IntegrityChecker{
		fileOps:       fileOps,
		root:          root,
		existenceOnly: existenceOnly,
		log:           logger.OrNop(log),
		verified:      map[string]string{},
	}
}

// NeedsFetch reports whether entry is missing or differs from its manifest digest.
// Unreadable local files need fetching; read errors are logged, never returned.
// The only error is an ErrCancelled one when ctx ends mid-hash.
func (c *IntegrityChecker) NeedsFetch(ctx context.Context, entry manifest.FileEntry, forceContentCheck bool) (bool, error) {
	target := filesystem.Join(c.root, entry.Path)

	info, err := c.fileOps.FS.Stat(target)
	if err != nil || info.IsDir() {
		return true, nil
	}

	if !forceContentCheck {
		if c.existenceOnly || c.alreadyVerified(entry) {
			return false, nil
		}
	}

	actual, err := c.fileOps.ComputeFileHash(ctx, target, entry.Hash)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, errors.Mark(errors.Wrapf(ctxErr, "verify %s", entry.Path), pkgerrors.ErrCancelled)
		}

		c.log.Debug("local file unreadable, scheduling fetch",
			zap.String(logger.FieldPath, entry.Path),
			zap.Error(pkgerrors.IntegrityRead(err, entry.Path)))

		return true, nil
	}

	if !fileops.HashMatches(actual, entry.Hash) {
		c.log.Debug("digest mismatch",
			zap.String(logger.FieldPath, entry.Path),
			zap.String(logger.FieldHash, entry.Hash),
			zap.String("actual", actual))

		return true, nil
	}

	c.MarkVerified(entry)

	return false, nil
}

// MarkVerified records that entry's content is known to match for this session.
func (c *IntegrityChecker) MarkVerified(entry manifest.FileEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.verified[entry.Path] = entry.Hash
}

// Reset forgets every verification made so far.
func (c *IntegrityChecker) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.verified = map[string]string{}
}

func (c *IntegrityChecker) alreadyVerified(entry manifest.FileEntry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	digest, ok := c.verified[entry.Path]

	return ok && fileops.HashMatches(digest, entry.Hash)
}
