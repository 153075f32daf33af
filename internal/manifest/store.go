package manifest

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/joe/client-sync/internal/cdn"
	"github.com/joe/client-sync/internal/logger"
	pkgerrors "github.com/joe/client-sync/pkg/errors"
)

// Exported constants.
const (
	// DefaultFetchTimeout bounds version pointer and manifest requests.
	DefaultFetchTimeout = 5 * time.Second
	// MaxDocumentSize bounds the size of a pointer or manifest document.
	MaxDocumentSize = 64 << 20
)

// StoreOptions configures a Store.
type StoreOptions struct {
	Environment string
	// ForceVersion pins the version instead of following the environment pointer.
	ForceVersion string
	Timeout      time.Duration
	Logger       *zap.Logger
}

// Store reads version pointers and manifests from an Origin.
type Store struct {
	origin       cdn.Origin
	environment  string
	forceVersion string
	timeout      time.Duration
	log          *zap.Logger
}

// NewStore creates a Store on origin.
func NewStore(origin cdn.Origin, opts StoreOptions) *Store {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	return &Store{
		origin:       origin,
		environment:  opts.Environment,
		forceVersion: strings.TrimSpace(opts.ForceVersion),
		timeout:      timeout,
		log:          logger.OrNop(opts.Logger),
	}
}

// FetchLatestVersion reads {environment}.json and returns its gameVersion.
// Any failure, including a missing gameVersion, is a network error.
func (s *Store) FetchLatestVersion(ctx context.Context, environment string) (string, error) {
	key := cdn.VersionPointerKey(environment)

	data, err := s.fetch(ctx, key)
	if err != nil {
		return "", err
	}

	var pointer struct {
		GameVersion *string `json:"gameVersion"`
	}

	if err := json.Unmarshal(data, &pointer); err != nil {
		return "", pkgerrors.Network(err, "decode %s", key)
	}

	if pointer.GameVersion == nil || strings.TrimSpace(*pointer.GameVersion) == "" {
		return "", pkgerrors.Network(errors.New("missing gameVersion"), "decode %s", key)
	}

	version := strings.TrimSpace(*pointer.GameVersion)
	if err := ValidateVersion(version); err != nil {
		return "", pkgerrors.Network(err, "decode %s", key)
	}

	return version, nil
}

// FetchManifest reads and validates versions/{version}.json.
func (s *Store) FetchManifest(ctx context.Context, version string) (*VersionManifest, error) {
	if err := ValidateVersion(version); err != nil {
		return nil, err
	}

	data, err := s.fetch(ctx, cdn.ManifestKey(version))
	if err != nil {
		return nil, err
	}

	manifest, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if manifest.Version != version {
		s.log.Warn("manifest version differs from requested version",
			zap.String(logger.FieldVersion, version),
			zap.String("manifest_version", manifest.Version))
	}

	if invalid := manifest.InvalidGroups(); len(invalid) > 0 {
		s.log.Warn("manifest has malformed groups",
			zap.String(logger.FieldVersion, version),
			zap.Strings("groups", invalid))
	}

	return manifest, nil
}

// ResolveVersion returns the pinned version when one is configured, otherwise the
// latest version of the configured environment.
func (s *Store) ResolveVersion(ctx context.Context) (string, error) {
	if s.forceVersion != "" {
		return s.forceVersion, nil
	}

	return s.FetchLatestVersion(ctx, s.environment)
}

func (s *Store) fetch(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := s.origin.Open(ctx, key)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(body, MaxDocumentSize))
	if err != nil {
		return nil, pkgerrors.Network(err, "read %s", key)
	}

	s.log.Debug("fetched document", zap.String("key", key), zap.Int("bytes", len(data)))

	return data, nil
}
