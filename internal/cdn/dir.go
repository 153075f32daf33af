package cdn

import (
	"context"
	"io"
	"path/filepath"

	"github.com/spf13/afero"

	pkgerrors "github.com/joe/client-sync/pkg/errors"
)

// DirOrigin serves objects from a mirror directory laid out like the CDN.
type DirOrigin struct {
	fsys afero.Fs
	root string
}

// NewDirOrigin creates an origin rooted at root on fsys.
func NewDirOrigin(fsys afero.Fs, root string) *DirOrigin {
	return &DirOrigin{fsys: fsys, root: root}
}

// Close is a no-op.
func (o *DirOrigin) Close() error {
	return nil
}

// Open opens root/key.
func (o *DirOrigin) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.Network(err, "open %s", key)
	}

	file, err := o.fsys.Open(filepath.Join(o.root, filepath.FromSlash(key)))
	if err != nil {
		return nil, pkgerrors.Network(err, "open %s", key)
	}

	return file, nil
}
