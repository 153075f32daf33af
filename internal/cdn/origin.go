// Package cdn reads version pointers, manifests and content-addressed artifacts
// from the remote store over HTTP(S), SFTP or a local mirror directory.
package cdn

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/joe/client-sync/internal/logger"
)

// Exported constants.
const (
	// DefaultUserAgent identifies the client to the CDN.
	DefaultUserAgent = "ArenaReturnsLauncher/1.0.0"
	// ShardPrefixLength is the number of hash characters used as the artifact shard directory.
	ShardPrefixLength = 2
)

// Exported variables.
var (
	ErrHashTooShort   = errors.New("hash too short for artifact key")
	ErrInvalidKey     = errors.New("invalid object key")
	ErrUnsupportedCDN = errors.New("unsupported CDN scheme")
)

// Origin is a read-only view of the remote store addressed by slash-separated keys.
type Origin interface {
	// Open streams the object stored under key. Failures are marked as network errors.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Close releases connections held by the origin.
	Close() error
}

// Options configures NewOrigin.
type Options struct {
	UserAgent  string
	HTTPClient *http.Client
	// Fs backs file:// origins. Nil means the OS filesystem.
	Fs     afero.Fs
	Logger *zap.Logger
}

// ArtifactKey returns the content-addressed key of an artifact: artifacts/<hash[0:2]>/<hash>.
// The hash is used exactly as the manifest spells it.
func ArtifactKey(hash string) (string, error) {
	if len(hash) <= ShardPrefixLength {
		return "", errors.Wrapf(ErrHashTooShort, "%q", hash)
	}

	return "artifacts/" + hash[:ShardPrefixLength] + "/" + hash, nil
}

// ManifestKey returns the key of the file manifest for version.
func ManifestKey(version string) string {
	return "versions/" + version + ".json"
}

// VersionPointerKey returns the key of the latest-version pointer for environment.
func VersionPointerKey(environment string) string {
	return environment + ".json"
}

// NewOrigin creates the Origin for rawURL: http(s)://, sftp://user@host[:port]/path,
// file:///path or a plain local path.
func NewOrigin(rawURL string, opts Options) (Origin, error) {
	loc, err := ParseLocation(rawURL)
	if err != nil {
		return nil, err
	}

	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	log := logger.OrNop(opts.Logger)

	switch loc.Scheme {
	case SchemeHTTP, SchemeHTTPS:
		return NewHTTPOrigin(loc.URL, opts.HTTPClient, opts.UserAgent), nil
	case SchemeSFTP:
		conn, err := Connect(loc.Host, loc.Port, loc.User, log)
		if err != nil {
			return nil, errors.Wrapf(err, "connect to %s@%s:%d", loc.User, loc.Host, loc.Port)
		}

		return NewSFTPOrigin(conn, loc.Path), nil
	case SchemeFile:
		fsys := opts.Fs
		if fsys == nil {
			fsys = afero.NewOsFs()
		}

		return NewDirOrigin(fsys, loc.Path), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedCDN, "%q", loc.Scheme)
	}
}

// validateKey rejects keys that could escape the origin root.
func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return errors.Wrapf(ErrInvalidKey, "%q", key)
	}

	for _, segment := range strings.Split(key, "/") {
		if segment == ".." || segment == "" {
			return errors.Wrapf(ErrInvalidKey, "%q", key)
		}
	}

	return nil
}
