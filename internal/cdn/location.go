package cdn

import (
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/go-homedir"
)

// Supported CDN schemes.
const (
	SchemeFile  = "file"
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
	SchemeSFTP  = "sftp"
)

// DefaultSFTPPort is used when an sftp:// URL has no port.
const DefaultSFTPPort = 22

// Location is a parsed CDN address.
type Location struct {
	Scheme string

	// For http and https
	URL *url.URL

	// For sftp
	Host string
	Port int
	User string

	// Remote path for sftp, local directory for file
	Path string
}

// ParseLocation parses a CDN address.
// Examples:
//   - https://launcher.cdn.arenareturns.com
//   - sftp://deploy@mirror.lan:2222/srv/cdn
//   - file:///srv/cdn
//   - ~/cdn-mirror (local path)
func ParseLocation(raw string) (*Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("CDN address is empty")
	}

	switch {
	case strings.HasPrefix(raw, "sftp://"):
		return parseSFTPURL(raw)
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return parseHTTPURL(raw)
	case strings.HasPrefix(raw, "file://"):
		return localLocation(strings.TrimPrefix(raw, "file://"))
	case strings.Contains(raw, "://"):
		return nil, errors.Wrapf(ErrUnsupportedCDN, "%q", raw)
	default:
		return localLocation(raw)
	}
}

func localLocation(path string) (*Location, error) {
	if path == "" {
		return nil, errors.New("file CDN address must include a directory")
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrapf(err, "expand %q", path)
	}

	return &Location{Scheme: SchemeFile, Path: filepath.Clean(expanded)}, nil
}

func parseHTTPURL(raw string) (*Location, error) {
	u, err := url.Parse(raw) //nolint:varnamelen // u is idiomatic for URL
	if err != nil {
		return nil, errors.Wrap(err, "invalid CDN URL")
	}

	if u.Host == "" {
		return nil, errors.Newf("CDN URL must include host: %q", raw)
	}

	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""

	return &Location{Scheme: u.Scheme, URL: u}, nil
}

// parseSFTPURL parses an SFTP URL into its components.
//
//nolint:cyclop // Complexity from comprehensive SFTP URL validation (scheme, user, host, port, path)
func parseSFTPURL(sftpURL string) (*Location, error) {
	u, err := url.Parse(sftpURL) //nolint:varnamelen // u is idiomatic for URL
	if err != nil {
		return nil, errors.Wrap(err, "invalid SFTP URL")
	}

	if u.User == nil || u.User.Username() == "" {
		return nil, errors.New("SFTP URL must include username (sftp://user@host/path)")
	}

	user := u.User.Username()

	host := u.Hostname()
	if host == "" {
		return nil, errors.New("SFTP URL must include host")
	}

	port := DefaultSFTPPort
	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, errors.Wrap(err, "invalid port number")
		}

		port = p
	}

	// SFTP path convention:
	//   sftp://user@host/path  → relative to home directory (strip leading /)
	//   sftp://user@host//path → absolute path /path (strip one /)
	//   sftp://user@host       → home directory (.)
	remotePath := u.Path
	//nolint:gocritic // if-else chain is clearer than switch for mixed conditions (OR, prefix check, fallthrough)
	if remotePath == "" || remotePath == "/" {
		remotePath = "."
	} else if strings.HasPrefix(remotePath, "//") {
		remotePath = remotePath[1:]
	} else {
		remotePath = strings.TrimPrefix(remotePath, "/")
	}

	remotePath = strings.TrimSuffix(remotePath, "/")
	if remotePath == "" {
		remotePath = "/"
	}

	return &Location{
		Scheme: SchemeSFTP,
		Host:   host,
		Port:   port,
		User:   user,
		Path:   remotePath,
	}, nil
}
