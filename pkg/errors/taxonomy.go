package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Exported variables.
var (
	ErrAlreadyInProgress = crdb.New("sync already in progress")
	ErrCancelled         = crdb.New("sync cancelled")
	ErrCleanup           = crdb.New("cleanup failed")
	ErrDownload          = crdb.New("download failed")
	ErrIntegrityRead     = crdb.New("local file unreadable")
	ErrManifestParse     = crdb.New("malformed manifest")
	ErrNetwork           = crdb.New("network error")
)

// DownloadError identifies the entry whose fetch or placement aborted a download batch.
type DownloadError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *DownloadError) Error() string {
	return "download " + e.Path + ": " + e.Err.Error()
}

// Is reports whether target is ErrDownload.
func (e *DownloadError) Is(target error) bool {
	return target == ErrDownload //nolint:errorlint,err113 // Sentinel identity check
}

// Unwrap returns the underlying cause.
func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Network marks err as a network failure, keeping its message and stack.
func Network(err error, format string, args ...any) error {
	return crdb.Mark(crdb.Wrapf(err, format, args...), ErrNetwork)
}

// ManifestParse returns a manifest validation failure with the given detail.
func ManifestParse(format string, args ...any) error {
	return crdb.Mark(crdb.Newf(format, args...), ErrManifestParse)
}

// Cleanup marks err as a best-effort cleanup failure for path.
func Cleanup(err error, path string) error {
	return crdb.Mark(crdb.Wrapf(err, "remove %s", path), ErrCleanup)
}

// IntegrityRead marks err as an unreadable local file.
func IntegrityRead(err error, path string) error {
	return crdb.Mark(crdb.Wrapf(err, "hash %s", path), ErrIntegrityRead)
}
