package config

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// Settings is the YAML settings file. Every field is optional.
type Settings struct {
	InstallRoot    string      `yaml:"install_root"`
	CDN            string      `yaml:"cdn"`
	Environment    string      `yaml:"environment"`
	Platform       string      `yaml:"platform"`
	Workers        int         `yaml:"workers"`
	Verify         *VerifyMode `yaml:"verify"`
	ProtectedPaths []string    `yaml:"protected_paths"`
	MaxBytesPerSec int64       `yaml:"max_bytes_per_sec"`
	UserAgent      string      `yaml:"user_agent"`
	Log            LogSettings `yaml:"log"`
	Dev            DevSettings `yaml:"dev"`
}

// LogSettings configures logging
type LogSettings struct {
	File  string `yaml:"file"`
	JSON  bool   `yaml:"json"`
	Level string `yaml:"level"`
}

// DevSettings are only honored when Enabled is set
type DevSettings struct {
	Enabled        bool   `yaml:"enabled"`
	ForceVersion   string `yaml:"force_version"`
	CDNEnvironment string `yaml:"cdn_environment"`
}

// DefaultSettingsPath returns ~/.config/client-sync/config.yaml.
func DefaultSettingsPath() string {
	path, err := homedir.Expand(filepath.Join("~", ".config", "client-sync", "config.yaml"))
	if err != nil {
		return ""
	}

	return path
}

// LoadSettings reads and parses the settings file. A missing file yields empty
// settings unless required is set.
func LoadSettings(path string, required bool) (*Settings, error) {
	settings := &Settings{}

	if path == "" {
		return settings, nil
	}

	path, err := homedir.Expand(os.ExpandEnv(path))
	if err != nil {
		return nil, errors.Wrapf(err, "expand settings path %s", path)
	}

	data, err := os.ReadFile(path) // #nosec G304 - path from user config
	if errors.Is(err, os.ErrNotExist) && !required {
		return settings, nil
	}

	if err != nil {
		return nil, errors.Wrap(err, "failed to read settings file")
	}

	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, errors.Wrapf(err, "failed to parse settings file %s", path)
	}

	settings.expandEnv()

	return settings, nil
}

// expandEnv expands environment variables and ~ in path-like fields
func (s *Settings) expandEnv() {
	s.InstallRoot = expandPath(s.InstallRoot)
	s.CDN = os.ExpandEnv(s.CDN)
	s.Log.File = expandPath(s.Log.File)
	s.UserAgent = os.ExpandEnv(s.UserAgent)
}

func expandPath(path string) string {
	expanded, err := homedir.Expand(os.ExpandEnv(path))
	if err != nil {
		return os.ExpandEnv(path)
	}

	return expanded
}
