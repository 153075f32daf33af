// Package manifest fetches, validates and resolves the remote version manifest.
package manifest

import (
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	pkgerrors "github.com/joe/client-sync/pkg/errors"
	"github.com/joe/client-sync/pkg/fileops"
)

// Platform group tags.
const (
	GroupBase       = "base"
	GroupLinux      = "linux"
	GroupMacOSArm   = "macos-arm"
	GroupMacOSIntel = "macos-intel"
	GroupWindows    = "windows"
)

// Digest widths in hex characters.
const (
	MD5HexLength    = fileops.MD5HexLength
	SHA256HexLength = fileops.SHA256HexLength
)

// FileEntry is one expected file: a slash-separated path relative to the install
// root and the content digest that also addresses the artifact.
type FileEntry struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

// VersionManifest lists the files of one version, grouped by platform tag.
type VersionManifest struct {
	Version    string
	FileGroups map[string][]FileEntry

	// invalid holds the array-valued fields that are not well-formed file groups
	invalid map[string]error
}

// InvalidGroups returns the sorted tags of array-valued fields that did not parse
// as file groups.
func (m *VersionManifest) InvalidGroups() []string {
	tags := make([]string, 0, len(m.invalid))
	for tag := range m.invalid {
		tags = append(tags, tag)
	}

	sort.Strings(tags)

	return tags
}

// KnownPlatforms returns the platform tags a client can run as.
func KnownPlatforms() []string {
	return []string{GroupLinux, GroupMacOSArm, GroupMacOSIntel, GroupWindows}
}

// PlatformGroup maps a GOOS/GOARCH pair to its manifest group tag.
// Unsupported operating systems map to the empty string.
func PlatformGroup(goos, goarch string) string {
	switch goos {
	case "windows":
		return GroupWindows
	case "linux":
		return GroupLinux
	case "darwin":
		if goarch == "amd64" {
			return GroupMacOSIntel
		}

		return GroupMacOSArm
	default:
		return ""
	}
}

// Parse decodes a manifest document. The version field is required; every
// array-valued field is a candidate file group and other fields are ignored. A
// malformed group is set aside rather than failing the document; EffectiveFiles
// reports it when selected.
func Parse(data []byte) (*VersionManifest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, pkgerrors.ManifestParse("manifest is not a JSON object: %v", err)
	}

	versionRaw, ok := raw["version"]
	if !ok {
		return nil, pkgerrors.ManifestParse("manifest is missing version")
	}

	var version string
	if err := json.Unmarshal(versionRaw, &version); err != nil {
		return nil, pkgerrors.ManifestParse("manifest version is not a string")
	}

	if err := ValidateVersion(version); err != nil {
		return nil, err
	}

	manifest := &VersionManifest{
		Version:    version,
		FileGroups: map[string][]FileEntry{},
		invalid:    map[string]error{},
	}

	for tag, value := range raw {
		if tag == "version" || !isJSONArray(value) {
			continue
		}

		entries, err := parseGroup(tag, value)
		if err != nil {
			manifest.invalid[tag] = err

			continue
		}

		manifest.FileGroups[tag] = entries
	}

	return manifest, nil
}

func parseGroup(tag string, value json.RawMessage) ([]FileEntry, error) {
	var entries []FileEntry
	if err := json.Unmarshal(value, &entries); err != nil {
		return nil, pkgerrors.ManifestParse("group %q: %v", tag, err)
	}

	for i, entry := range entries {
		if err := ValidateEntry(entry); err != nil {
			return nil, pkgerrors.ManifestParse("group %q entry %d: %v", tag, i, err)
		}
	}

	return entries, nil
}

// ValidateVersion rejects empty identifiers and ones that cannot be used as a key segment.
func ValidateVersion(version string) error {
	if strings.TrimSpace(version) == "" {
		return pkgerrors.ManifestParse("version is empty")
	}

	if strings.ContainsAny(version, `/\`) || strings.Contains(version, "..") {
		return pkgerrors.ManifestParse("version %q contains path characters", version)
	}

	return nil
}

// ValidateEntry checks that the path stays inside the install root and that the
// hash is a supported hex digest.
func ValidateEntry(entry FileEntry) error {
	if entry.Path == "" {
		return pkgerrors.ManifestParse("empty path")
	}

	if strings.HasPrefix(entry.Path, "/") || strings.Contains(entry.Path, `\`) || strings.Contains(entry.Path, ":") {
		return pkgerrors.ManifestParse("path %q is not relative", entry.Path)
	}

	for _, segment := range strings.Split(entry.Path, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return pkgerrors.ManifestParse("path %q has an invalid segment", entry.Path)
		}
	}

	if len(entry.Hash) != MD5HexLength && len(entry.Hash) != SHA256HexLength {
		return pkgerrors.ManifestParse("path %q: hash %q has unsupported length %d", entry.Path, entry.Hash, len(entry.Hash))
	}

	if _, err := hex.DecodeString(entry.Hash); err != nil {
		return pkgerrors.ManifestParse("path %q: hash %q is not hex", entry.Path, entry.Hash)
	}

	return nil
}

// EffectiveFiles returns the base group followed by the platform group. A path listed
// more than once keeps the position of its first occurrence and the hash of its last.
// Other groups are ignored, malformed or not; a malformed selected group is an
// ErrManifestParse error.
func EffectiveFiles(m *VersionManifest, platform string) ([]FileEntry, error) {
	tags := []string{GroupBase}
	if platform != "" && platform != GroupBase {
		tags = append(tags, platform)
	}

	index := map[string]int{}

	var effective []FileEntry

	for _, tag := range tags {
		if err, bad := m.invalid[tag]; bad {
			return nil, err
		}

		for _, entry := range m.FileGroups[tag] {
			if i, seen := index[entry.Path]; seen {
				effective[i] = entry

				continue
			}

			index[entry.Path] = len(effective)
			effective = append(effective, entry)
		}
	}

	return effective, nil
}

func isJSONArray(value json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(value))

	return strings.HasPrefix(trimmed, "[")
}
