package cdn

import (
	"context"
	"io"
	"path"

	pkgerrors "github.com/joe/client-sync/pkg/errors"
)

// SFTPOrigin reads objects from a directory on an SFTP server.
type SFTPOrigin struct {
	conn *SFTPConnection
	root string
}

// NewSFTPOrigin creates an origin rooted at root on conn.
func NewSFTPOrigin(conn *SFTPConnection, root string) *SFTPOrigin {
	return &SFTPOrigin{conn: conn, root: root}
}

// Close closes the SSH connection.
func (o *SFTPOrigin) Close() error {
	return o.conn.Close()
}

// Open opens root/key on the server. The returned file honors ctx only between reads;
// callers check ctx while copying.
func (o *SFTPOrigin) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.Network(err, "sftp open %s", key)
	}

	remote := path.Join(o.root, key)

	file, err := o.conn.Client().Open(remote)
	if err != nil {
		return nil, pkgerrors.Network(err, "sftp open %s on %s", remote, o.conn)
	}

	return file, nil
}
