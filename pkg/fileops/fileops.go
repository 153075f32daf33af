// Package fileops provides the file operations the sync engine performs on the install
// tree: content hashing, verified atomic placement and bandwidth limiting.
package fileops

import (
	"context"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

// Exported constants.
const (
	// BufferSize is the size of the buffer used for copy and hash operations (32KB)
	BufferSize = 32 * 1024
	// DefaultDirPermissions is the default permission mode for created directories
	DefaultDirPermissions = 0o750
	// DefaultFilePermissions is the permission mode of placed files
	DefaultFilePermissions = 0o644
)

// Exported variables.
var (
	ErrCopyCancelled     = errors.New("copy cancelled")
	ErrDigestMismatch    = errors.New("digest mismatch")
	ErrUnsupportedDigest = errors.New("unsupported digest length")
)

// CopyStats contains timing information about a copy operation
type CopyStats struct {
	BytesCopied int64
	ReadTime    time.Duration
	WriteTime   time.Duration
}

// ProgressCallback is called during a copy after each chunk lands.
type ProgressCallback func(bytesTransferred int64, currentFile string)

// FileOps performs file operations against an injected filesystem so the engine can
// run against the OS filesystem and in-memory test filesystems alike.
type FileOps struct {
	FS afero.Fs
}

// NewFileOps creates a new FileOps instance with the given filesystem.
func NewFileOps(fsys afero.Fs) *FileOps {
	return &FileOps{FS: fsys}
}

// checkCancellation checks if the copy operation has been cancelled.
func checkCancellation(ctx context.Context) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}

	return errors.Mark(err, ErrCopyCancelled)
}

// copyLoop copies src to dst in BufferSize chunks, honoring cancellation between chunks.
func copyLoop(
	ctx context.Context,
	src io.Reader,
	dst io.Writer,
	stats *CopyStats,
	name string,
	progress ProgressCallback,
) (int64, error) {
	var written int64

	buf := make([]byte, BufferSize)

	var (
		nr, nw int //nolint:varnamelen // nr/nw are idiomatic for bytes read/written
		err    error
	)

	for {
		err = checkCancellation(ctx)
		if err != nil {
			return written, err
		}

		readStart := time.Now()
		nr, err = src.Read(buf)
		stats.ReadTime += time.Since(readStart)

		if nr > 0 {
			writeStart := time.Now()

			var werr error

			nw, werr = dst.Write(buf[0:nr])
			stats.WriteTime += time.Since(writeStart)

			if werr != nil {
				return written, errors.Wrap(werr, "write destination")
			}

			if nr != nw {
				return written, errors.Wrap(io.ErrShortWrite, "short write")
			}

			written += int64(nw)

			if progress != nil {
				progress(written, name)
			}
		}

		if errors.Is(err, io.EOF) {
			return written, nil
		}

		if err != nil {
			if ctxErr := checkCancellation(ctx); ctxErr != nil {
				return written, ctxErr
			}

			return written, errors.Wrap(err, "read source")
		}
	}
}
