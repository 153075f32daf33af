package syncengine

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"

	"github.com/joe/client-sync/pkg/fileops"
	"github.com/joe/client-sync/pkg/filesystem"
)

// VersionFileName is the installed-version marker inside the install root.
const VersionFileName = "version.dat"

// ReadInstalledVersion returns the trimmed marker contents. A missing marker is
// reported as the empty string, meaning not installed.
func ReadInstalledVersion(fsys afero.Fs, root string) (string, error) {
	data, err := afero.ReadFile(fsys, filesystem.Join(root, VersionFileName))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}

	if err != nil {
		return "", errors.Wrapf(err, "read %s", VersionFileName)
	}

	return strings.TrimSpace(string(data)), nil
}

// WriteInstalledVersion replaces the marker atomically.
func WriteInstalledVersion(fileOps *fileops.FileOps, root, version string) error {
	return fileOps.WriteFileAtomic(filesystem.Join(root, VersionFileName), []byte(version))
}
