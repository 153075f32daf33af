package fileops

import (
	"context"
	"crypto/md5" //nolint:gosec // MD5 is a published manifest digest format, not a security boundary
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strings"

	"github.com/cockroachdb/errors"
)

// Digest lengths in hex characters.
const (
	MD5HexLength    = 32
	SHA256HexLength = 64
)

// NewHash returns the digest algorithm whose hex encoding has hexLen characters.
func NewHash(hexLen int) (hash.Hash, error) {
	switch hexLen {
	case MD5HexLength:
		return md5.New(), nil //nolint:gosec // See import
	case SHA256HexLength:
		return sha256.New(), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedDigest, "%d hex characters", hexLen)
	}
}

// HashMatches reports whether two hex digests are equal, ignoring case.
func HashMatches(actual, expected string) bool {
	return strings.EqualFold(actual, expected)
}

// ComputeFileHash hashes filePath with the algorithm implied by the expected digest.
// Cancelling ctx stops the read between chunks with an ErrCopyCancelled error.
func (fo *FileOps) ComputeFileHash(ctx context.Context, filePath, expected string) (string, error) {
	hasher, err := NewHash(len(expected))
	if err != nil {
		return "", err
	}

	file, err := fo.FS.Open(filePath)
	if err != nil {
		return "", errors.Wrapf(err, "open %s", filePath)
	}

	defer func() {
		_ = file.Close()
	}()

	_, err = copyLoop(ctx, file, hasher, &CopyStats{}, filePath, nil)
	if err != nil {
		return "", errors.Wrapf(err, "hash %s", filePath)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
