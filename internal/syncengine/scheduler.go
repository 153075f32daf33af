package syncengine

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/joe/client-sync/internal/cdn"
	"github.com/joe/client-sync/internal/logger"
	"github.com/joe/client-sync/internal/manifest"
	pkgerrors "github.com/joe/client-sync/pkg/errors"
	"github.com/joe/client-sync/pkg/fileops"
	"github.com/joe/client-sync/pkg/filesystem"
)

// DefaultWorkers is the width of the download worker pool.
const DefaultWorkers = 3

// DownloadProgress is called once per placed file, serialized, with completed
// counting up to total.
type DownloadProgress func(completed, total int, entry manifest.FileEntry, bytes int64)

// TransferProgress is called from the workers as chunks land, with the bytes
// added since the previous call for the same entry. Calls may be concurrent.
type TransferProgress func(entry manifest.FileEntry, delta int64)

// DownloadScheduler fetches artifacts by content hash and places them atomically.
type DownloadScheduler struct {
	origin  cdn.Origin
	fileOps *fileops.FileOps
	root    string
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewDownloadScheduler creates a scheduler writing below root. A nil limiter means
// no bandwidth cap.
func NewDownloadScheduler(
	origin cdn.Origin,
	fileOps *fileops.FileOps,
	root string,
	limiter *rate.Limiter,
	log *zap.Logger,
) *DownloadScheduler {
	return &DownloadScheduler{
		origin:  origin,
		fileOps: fileOps,
		root:    root,
		limiter: limiter,
		log:     logger.OrNop(log),
	}
}

// Run downloads entries with at most concurrency transfers in flight. The first
// failure cancels the remaining work and is returned as a *DownloadError; files
// placed before it stay on disk. Cancelling ctx returns an ErrCancelled error.
// Either callback may be nil.
func (s *DownloadScheduler) Run(
	ctx context.Context,
	entries []manifest.FileEntry,
	concurrency int,
	onProgress DownloadProgress,
	onTransfer TransferProgress,
) error {
	if len(entries) == 0 {
		return nil
	}

	if concurrency <= 0 {
		concurrency = DefaultWorkers
	}

	batchCtx, cancelBatch := context.WithCancel(ctx)
	defer cancelBatch()

	jobs := make(chan manifest.FileEntry)

	var (
		failOnce   sync.Once
		firstErr   error
		progressMu sync.Mutex
		completed  int
		wg         sync.WaitGroup //nolint:varnamelen // wg is idiomatic for WaitGroup
	)

	fail := func(err error) {
		failOnce.Do(func() {
			firstErr = err
			cancelBatch()
		})
	}

	for range min(concurrency, len(entries)) {
		wg.Go(func() {
			for entry := range jobs {
				if batchCtx.Err() != nil {
					continue
				}

				written, err := s.fetch(batchCtx, entry, onTransfer)
				if err != nil {
					// Failures caused by the caller's cancellation are not the batch's fault
					if ctx.Err() == nil {
						fail(err)
					}

					continue
				}

				progressMu.Lock()
				completed++

				if onProgress != nil {
					onProgress(completed, len(entries), entry, written)
				}
				progressMu.Unlock()
			}
		})
	}

	s.enqueue(batchCtx, entries, jobs)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	if err := ctx.Err(); err != nil {
		return errors.Mark(errors.Wrap(err, "download batch"), pkgerrors.ErrCancelled)
	}

	return nil
}

// enqueue feeds entries to the workers until done or cancelled, then closes jobs.
func (s *DownloadScheduler) enqueue(ctx context.Context, entries []manifest.FileEntry, jobs chan<- manifest.FileEntry) {
	defer close(jobs)

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return
		case jobs <- entry:
		}
	}
}

func (s *DownloadScheduler) fetch(ctx context.Context, entry manifest.FileEntry, onTransfer TransferProgress) (int64, error) {
	key, err := cdn.ArtifactKey(entry.Hash)
	if err != nil {
		return 0, &pkgerrors.DownloadError{Path: entry.Path, Err: err}
	}

	body, err := s.origin.Open(ctx, key)
	if err != nil {
		return 0, &pkgerrors.DownloadError{Path: entry.Path, Err: err}
	}

	defer func() {
		_ = body.Close()
	}()

	reader := fileops.NewLimitedReader(ctx, body, s.limiter)

	var progress fileops.ProgressCallback

	if onTransfer != nil {
		var reported int64

		progress = func(written int64, _ string) {
			onTransfer(entry, written-reported)
			reported = written
		}
	}

	stats, err := s.fileOps.PlaceFile(ctx, filesystem.Join(s.root, entry.Path), reader, entry.Hash, progress)
	if err != nil {
		return stats.BytesCopied, &pkgerrors.DownloadError{Path: entry.Path, Err: err}
	}

	s.log.Debug("placed file",
		zap.String(logger.FieldPath, entry.Path),
		zap.String(logger.FieldHash, entry.Hash),
		zap.Int64("bytes", stats.BytesCopied),
		zap.Duration("read_time", stats.ReadTime),
		zap.Duration("write_time", stats.WriteTime))

	return stats.BytesCopied, nil
}
