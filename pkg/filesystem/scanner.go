package filesystem

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kr/fs"
	"github.com/spf13/afero"
)

// FileScanner is an iterator over the entries below a root directory.
type FileScanner interface {
	// Next advances to the next entry and returns its info.
	// Returns (FileInfo{}, false) when done or on error.
	// Check Err() after Next() returns false to distinguish between end-of-scan and error.
	Next() (FileInfo, bool)

	// Err returns the error that stopped the scan, if any.
	Err() error

	// Skipped returns errors for entries that could not be read and were left out.
	Skipped() []error
}

// FileInfo contains metadata about a scanned entry.
type FileInfo struct {
	// RelativePath is the slash-separated path relative to the scan root
	RelativePath string

	// Size is the file size in bytes (of the target for symlinks)
	Size int64

	// ModTime is the modification time
	ModTime time.Time

	// IsDir reports a directory, or a symlink resolving to one
	IsDir bool

	// IsSymlink reports that the entry itself is a symbolic link
	IsSymlink bool
}

// Scan returns an iterator over every entry below root. A missing root yields no
// entries and no error. Symlinks report the type of their target but directory
// symlinks are never descended; broken symlinks are reported as files.
func Scan(fsys afero.Fs, root string) FileScanner {
	return &walkScanner{fsys: fsys, root: filepath.Clean(root)}
}

// walkScanner implements FileScanner on top of the kr/fs walker.
type walkScanner struct {
	fsys    afero.Fs
	root    string
	walker  *fs.Walker
	err     error
	skipped []error
	done    bool
}

// Err returns the error that stopped the scan.
func (s *walkScanner) Err() error {
	return s.err
}

// Next advances to the next entry.
func (s *walkScanner) Next() (FileInfo, bool) {
	if s.done {
		return FileInfo{}, false
	}

	if s.walker == nil && !s.start() {
		return FileInfo{}, false
	}

	for s.walker.Step() {
		path := s.walker.Path()

		if err := s.walker.Err(); err != nil {
			if path == s.root {
				return s.fail(errors.Wrapf(err, "scan %s", s.root))
			}

			s.skipped = append(s.skipped, errors.Wrapf(err, "scan %s", path))

			continue
		}

		if path == s.root {
			continue
		}

		entry, err := s.describe(path, s.walker.Stat())
		if err != nil {
			s.skipped = append(s.skipped, err)

			continue
		}

		return entry, true
	}

	s.done = true

	return FileInfo{}, false
}

// Skipped returns errors for entries left out of the scan.
func (s *walkScanner) Skipped() []error {
	return s.skipped
}

func (s *walkScanner) describe(path string, info os.FileInfo) (FileInfo, error) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return FileInfo{}, errors.Wrapf(err, "relative path of %s", path)
	}

	entry := FileInfo{
		RelativePath: filepath.ToSlash(rel),
		Size:         info.Size(),
		ModTime:      info.ModTime(),
		IsDir:        info.IsDir(),
	}

	if info.Mode()&os.ModeSymlink != 0 {
		entry.IsSymlink = true

		target, err := s.fsys.Stat(path)
		if err == nil {
			entry.IsDir = target.IsDir()
			entry.Size = target.Size()
		}
	}

	return entry, nil
}

func (s *walkScanner) fail(err error) (FileInfo, bool) {
	s.err = err
	s.done = true

	return FileInfo{}, false
}

func (s *walkScanner) start() bool {
	info, err := s.fsys.Stat(s.root)

	switch {
	case errors.Is(err, os.ErrNotExist):
		s.done = true

		return false
	case err != nil:
		s.fail(errors.Wrapf(err, "scan %s", s.root))

		return false
	case !info.IsDir():
		s.fail(errors.Newf("scan %s: not a directory", s.root))

		return false
	}

	s.walker = fs.WalkFS(s.root, walkFS{fsys: s.fsys, root: s.root})

	return true
}
