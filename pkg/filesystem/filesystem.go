// Package filesystem walks and inspects the install tree through afero so the same
// code runs against the OS filesystem and in-memory test filesystems.
package filesystem

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Join converts a slash-separated relative path to a host path under root.
func Join(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

// Lstat returns file info without following a final symlink when fsys supports it.
func Lstat(fsys afero.Fs, name string) (os.FileInfo, error) {
	if lstater, ok := fsys.(afero.Lstater); ok {
		info, _, err := lstater.LstatIfPossible(name)

		return info, err //nolint:wrapcheck // Callers wrap with their own context
	}

	return fsys.Stat(name) //nolint:wrapcheck // Callers wrap with their own context
}

// walkFS adapts afero.Fs to the kr/fs walker. The walk root itself is resolved with
// Stat so an install root that is a symlink to a directory is still descended.
type walkFS struct {
	fsys afero.Fs
	root string
}

// Join joins path elements with the host separator.
func (w walkFS) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// Lstat returns the info of name, following symlinks only for the root.
func (w walkFS) Lstat(name string) (os.FileInfo, error) {
	if name == w.root {
		return w.fsys.Stat(name) //nolint:wrapcheck // Reported through the walker
	}

	return Lstat(w.fsys, name)
}

// ReadDir lists a directory sorted by name.
func (w walkFS) ReadDir(dirname string) ([]os.FileInfo, error) {
	return afero.ReadDir(w.fsys, dirname) //nolint:wrapcheck // Reported through the walker
}
