package filesystem

import (
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Kind distinguishes files from directories in a Listing.
type Kind int

const (
	// KindFile is a regular file, a file symlink or a broken symlink
	KindFile Kind = iota
	// KindDir is a directory or a symlink to one
	KindDir
)

// Listing is the set of paths found below a root, keyed by slash-separated relative path.
type Listing struct {
	Paths   map[string]Kind
	Skipped []error
}

// ListAllPaths lists every file and directory below root. A missing root gives an empty listing.
func ListAllPaths(fsys afero.Fs, root string) (*Listing, error) {
	listing := &Listing{Paths: map[string]Kind{}}

	scanner := Scan(fsys, root)
	for {
		entry, ok := scanner.Next()
		if !ok {
			break
		}

		kind := KindFile
		if entry.IsDir {
			kind = KindDir
		}

		listing.Paths[entry.RelativePath] = kind
	}

	listing.Skipped = scanner.Skipped()

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return listing, nil
}

// Dirs returns the directories sorted deepest first, then by name.
func (l *Listing) Dirs() []string {
	var dirs []string

	for path, kind := range l.Paths {
		if kind == KindDir {
			dirs = append(dirs, path)
		}
	}

	SortDeepestFirst(dirs)

	return dirs
}

// Files returns the files sorted by name.
func (l *Listing) Files() []string {
	var files []string

	for path, kind := range l.Paths {
		if kind == KindFile {
			files = append(files, path)
		}
	}

	sort.Strings(files)

	return files
}

// SortDeepestFirst orders slash-separated paths by descending depth, then by name.
func SortDeepestFirst(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		di, dj := strings.Count(paths[i], "/"), strings.Count(paths[j], "/")
		if di != dj {
			return di > dj
		}

		return paths[i] < paths[j]
	})
}
