package fileops

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

// tempPattern names in-flight files so they are easy to spot and never collide with
// manifest paths.
const tempPattern = ".%s.*.part"

// PlaceFile streams src into a temporary file next to dst, verifies the digest while
// writing and renames the result over dst. On any failure the temporary file is
// removed and dst is left untouched.
func (fo *FileOps) PlaceFile(
	ctx context.Context,
	dst string,
	src io.Reader,
	expectedHash string,
	progress ProgressCallback,
) (*CopyStats, error) {
	stats := &CopyStats{}

	hasher, err := NewHash(len(expectedHash))
	if err != nil {
		return stats, err
	}

	dstDir := filepath.Dir(dst)

	err = fo.FS.MkdirAll(dstDir, DefaultDirPermissions)
	if err != nil {
		return stats, errors.Wrapf(err, "create directory %s", dstDir)
	}

	tmp, err := afero.TempFile(fo.FS, dstDir, fmt.Sprintf(tempPattern, filepath.Base(dst)))
	if err != nil {
		return stats, errors.Wrapf(err, "create temporary file in %s", dstDir)
	}

	tmpName := tmp.Name()
	placed := false

	defer func() {
		_ = tmp.Close()
		// Partial or unverified content never reaches dst
		if !placed {
			_ = fo.FS.Remove(tmpName)
		}
	}()

	written, err := copyLoop(ctx, src, io.MultiWriter(tmp, hasher), stats, dst, progress)
	if err != nil {
		return stats, errors.Wrapf(err, "write %s", dst)
	}

	stats.BytesCopied = written

	err = tmp.Sync()
	if err != nil {
		return stats, errors.Wrapf(err, "sync %s", tmpName)
	}

	err = tmp.Close()
	if err != nil {
		return stats, errors.Wrapf(err, "close %s", tmpName)
	}

	actual := hex.EncodeToString(hasher.Sum(nil))
	if !HashMatches(actual, expectedHash) {
		return stats, errors.Wrapf(ErrDigestMismatch, "%s: expected %s, got %s", dst, expectedHash, actual)
	}

	err = fo.FS.Chmod(tmpName, DefaultFilePermissions)
	if err != nil {
		return stats, errors.Wrapf(err, "chmod %s", tmpName)
	}

	err = fo.clearDirectory(dst)
	if err != nil {
		return stats, err
	}

	err = fo.FS.Rename(tmpName, dst)
	if err != nil {
		return stats, errors.Wrapf(err, "rename %s to %s", tmpName, dst)
	}

	placed = true

	return stats, nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames it into place.
func (fo *FileOps) WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	err := fo.FS.MkdirAll(dir, DefaultDirPermissions)
	if err != nil {
		return errors.Wrapf(err, "create directory %s", dir)
	}

	tmp, err := afero.TempFile(fo.FS, dir, fmt.Sprintf(tempPattern, filepath.Base(path)))
	if err != nil {
		return errors.Wrapf(err, "create temporary file in %s", dir)
	}

	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}

	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}

	if err == nil {
		err = fo.FS.Chmod(tmpName, DefaultFilePermissions)
	}

	if err == nil {
		err = fo.FS.Rename(tmpName, path)
	}

	if err != nil {
		_ = fo.FS.Remove(tmpName)

		return errors.Wrapf(err, "write %s", path)
	}

	return nil
}

// clearDirectory removes an empty directory occupying a file's final path. A non-empty
// directory is left alone and reported.
func (fo *FileOps) clearDirectory(path string) error {
	info, err := fo.FS.Stat(path)
	if err != nil || !info.IsDir() {
		return nil //nolint:nilerr // Anything but an existing directory is handled by Rename
	}

	empty, err := afero.IsEmpty(fo.FS, path)
	if err != nil {
		return errors.Wrapf(err, "inspect %s", path)
	}

	if !empty {
		return errors.Newf("%s is a non-empty directory", path)
	}

	err = fo.FS.Remove(path)
	if err != nil {
		return errors.Wrapf(err, "remove directory %s", path)
	}

	return nil
}
