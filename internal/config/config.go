// Package config handles application configuration and command-line argument parsing.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/cockroachdb/errors"
	"github.com/mitchellh/go-homedir"

	"github.com/joe/client-sync/internal/cdn"
	"github.com/joe/client-sync/internal/logger"
	"github.com/joe/client-sync/internal/manifest"
	"github.com/joe/client-sync/internal/syncengine"
)

// Exported constants.
const (
	// DefaultCDN is the production artifact store
	DefaultCDN = "https://launcher.cdn.arenareturns.com"
	// DefaultEnvironment is the release channel followed by default
	DefaultEnvironment = "production"
	// InstallDirName is the install directory created under the user config dir
	InstallDirName = "ArenaReturnsClient"
	// MaxWorkers bounds the download concurrency
	MaxWorkers = 32
)

// Exported variables.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Command is the subcommand selected on the command line.
type Command string

// Commands.
const (
	CommandRepair  Command = "repair"
	CommandReplays Command = "replays"
	CommandStatus  Command = "status"
	CommandSync    Command = "sync"
)

// VerifyMode selects how existing files are checked outside repair mode.
type VerifyMode int

const (
	// VerifyContent hashes every file
	VerifyContent VerifyMode = iota
	// VerifyExistence trusts files that exist
	VerifyExistence
)

// String returns the string representation of VerifyMode
func (vm VerifyMode) String() string {
	switch vm {
	case VerifyContent:
		return "content"
	case VerifyExistence:
		return "existence"
	default:
		return "unknown"
	}
}

// ParseVerifyMode parses a string into a VerifyMode
func ParseVerifyMode(s string) (VerifyMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "content", "hash":
		return VerifyContent, nil
	case "existence", "exists", "fast":
		return VerifyExistence, nil
	default:
		return VerifyContent, errors.Newf("invalid verify mode: %s (valid: content, existence)", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for go-arg and yaml
func (vm *VerifyMode) UnmarshalText(text []byte) error {
	parsed, err := ParseVerifyMode(string(text))
	if err != nil {
		return err
	}

	*vm = parsed

	return nil
}

// StatusCmd prints the installed and remote versions.
type StatusCmd struct{}

// SyncCmd installs or updates the game.
type SyncCmd struct{}

// RepairCmd re-verifies every file and fixes what differs.
type RepairCmd struct{}

// ReplaysCmd lists recorded matches.
type ReplaysCmd struct{}

// Args holds the command-line arguments. Zero values mean "not given".
type Args struct {
	Status  *StatusCmd  `arg:"subcommand:status" help:"show installed and available versions"`
	Sync    *SyncCmd    `arg:"subcommand:sync" help:"install or update the game"`
	Repair  *RepairCmd  `arg:"subcommand:repair" help:"re-verify every file and repair differences"`
	Replays *ReplaysCmd `arg:"subcommand:replays" help:"list recorded matches"`

	ConfigFile     string      `arg:"-c,--config" help:"settings file (default ~/.config/client-sync/config.yaml)"`
	InstallRoot    string      `arg:"-r,--root" help:"install directory"`
	CDN            string      `arg:"--cdn" help:"artifact store URL (https://, http://, sftp://user@host/path or a local directory)"`
	Environment    string      `arg:"-e,--env" help:"release channel: production|staging"`
	Platform       string      `arg:"--platform" help:"manifest platform group (default derived from this machine)"`
	Workers        int         `arg:"-w,--workers" help:"concurrent downloads (1-32, default 3)"`
	Verify         *VerifyMode `arg:"--verify" help:"verification mode outside repair: content|existence"`
	MaxBytesPerSec *int64      `arg:"--max-rate" help:"download bandwidth cap in bytes per second (0 = unlimited)"`
	LogFile        string      `arg:"--log-file" help:"append a JSON log to this file"`
	LogJSON        bool        `arg:"--log-json" help:"log as JSON"`
	LogLevel       string      `arg:"--log-level" help:"debug|info|warn|error"`
	Plain          bool        `arg:"--plain" help:"plain output even on a terminal"`
	Dev            bool        `arg:"--dev" help:"enable developer settings"`
	ForceVersion   string      `arg:"--force-version" help:"install this version instead of the latest (dev only)"`
}

// Description returns the program description for go-arg
func (Args) Description() string {
	return "Keeps the Arena Returns game client installed, verified and up to date"
}

// Version returns the version string for go-arg
func (Args) Version() string {
	return "client-sync 1.0.0"
}

// Command returns the selected subcommand, status when none was given.
func (a *Args) Command() Command {
	switch {
	case a.Sync != nil:
		return CommandSync
	case a.Repair != nil:
		return CommandRepair
	case a.Replays != nil:
		return CommandReplays
	default:
		return CommandStatus
	}
}

// LogConfig configures logging.
type LogConfig struct {
	File  string
	JSON  bool
	Level string
}

// Config holds the effective configuration after merging defaults, the settings
// file and flags.
type Config struct {
	Command        Command
	InstallRoot    string
	CDN            string
	Environment    string
	Platform       string
	Workers        int
	Verify         VerifyMode
	ProtectedPaths []string
	MaxBytesPerSec int64
	UserAgent      string
	Log            LogConfig
	Plain          bool
	ForceVersion   string
}

// BuiltinProtectedPaths lists user-owned paths cleanup never removes.
func BuiltinProtectedPaths() []string {
	return []string{
		syncengine.VersionFileName,
		"game/userPreferences.properties",
		"game/saves",
		syncengine.ReplaysDir,
		"game/logs",
	}
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Command:        CommandStatus,
		InstallRoot:    defaultInstallRoot(),
		CDN:            DefaultCDN,
		Environment:    DefaultEnvironment,
		Workers:        syncengine.DefaultWorkers,
		Verify:         VerifyContent,
		ProtectedPaths: BuiltinProtectedPaths(),
		UserAgent:      cdn.DefaultUserAgent,
		Log:            LogConfig{Level: "info"},
	}
}

// ParseFlags parses command-line flags, loads the settings file and returns the
// effective configuration
func ParseFlags() (*Config, error) {
	args := &Args{}

	arg.MustParse(args)

	return Load(args)
}

// Load merges defaults, the settings file named by args (or the default one) and args.
func Load(args *Args) (*Config, error) {
	path := args.ConfigFile
	explicit := path != ""

	if !explicit {
		path = DefaultSettingsPath()
	}

	settings, err := LoadSettings(path, explicit)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	cfg.applySettings(settings)
	cfg.applyArgs(args, settings.Dev.Enabled)

	return PostProcessConfig(cfg)
}

// PostProcessConfig fills derived values and validates a merged config
func PostProcessConfig(cfg *Config) (*Config, error) {
	if cfg.Platform == "" {
		cfg.Platform = manifest.PlatformGroup(runtime.GOOS, runtime.GOARCH)
	}

	root, err := homedir.Expand(strings.TrimSpace(cfg.InstallRoot))
	if err != nil {
		return nil, errors.Wrapf(err, "expand install root %s", cfg.InstallRoot)
	}

	if root != "" {
		root, err = filepath.Abs(root)
		if err != nil {
			return nil, errors.Wrapf(err, "resolve install root %s", cfg.InstallRoot)
		}
	}

	cfg.InstallRoot = root

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for errors
func (cfg *Config) Validate() error {
	if cfg.InstallRoot == "" {
		return errors.Wrap(ErrInvalidConfig, "install root is required")
	}

	switch cfg.Environment {
	case "production", "staging":
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown environment %q (valid: production, staging)", cfg.Environment)
	}

	if _, err := cdn.ParseLocation(cfg.CDN); err != nil {
		return errors.Wrapf(errors.Mark(err, ErrInvalidConfig), "cdn %q", cfg.CDN)
	}

	if cfg.Workers < 1 || cfg.Workers > MaxWorkers {
		return errors.Wrapf(ErrInvalidConfig, "workers must be between 1 and %d, got %d", MaxWorkers, cfg.Workers)
	}

	if cfg.MaxBytesPerSec < 0 {
		return errors.Wrapf(ErrInvalidConfig, "max bytes per second must not be negative, got %d", cfg.MaxBytesPerSec)
	}

	if !knownPlatform(cfg.Platform) {
		return errors.Wrapf(ErrInvalidConfig, "unknown platform %q (valid: %s)",
			cfg.Platform, strings.Join(manifest.KnownPlatforms(), ", "))
	}

	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return errors.Mark(err, ErrInvalidConfig)
	}

	if cfg.ForceVersion != "" {
		if err := manifest.ValidateVersion(cfg.ForceVersion); err != nil {
			return errors.Wrap(errors.Mark(err, ErrInvalidConfig), "force version")
		}
	}

	return nil
}

func (cfg *Config) applySettings(s *Settings) {
	setString(&cfg.InstallRoot, s.InstallRoot)
	setString(&cfg.CDN, s.CDN)
	setString(&cfg.Environment, s.Environment)
	setString(&cfg.Platform, s.Platform)
	setString(&cfg.UserAgent, s.UserAgent)
	setString(&cfg.Log.File, s.Log.File)
	setString(&cfg.Log.Level, s.Log.Level)

	if s.Workers != 0 {
		cfg.Workers = s.Workers
	}

	if s.Verify != nil {
		cfg.Verify = *s.Verify
	}

	if s.MaxBytesPerSec != 0 {
		cfg.MaxBytesPerSec = s.MaxBytesPerSec
	}

	cfg.Log.JSON = cfg.Log.JSON || s.Log.JSON
	cfg.ProtectedPaths = append(cfg.ProtectedPaths, s.ProtectedPaths...)

	if s.Dev.Enabled {
		setString(&cfg.ForceVersion, s.Dev.ForceVersion)
		setString(&cfg.Environment, s.Dev.CDNEnvironment)
	}
}

func (cfg *Config) applyArgs(args *Args, devEnabled bool) {
	cfg.Command = args.Command()

	setString(&cfg.InstallRoot, args.InstallRoot)
	setString(&cfg.CDN, args.CDN)
	setString(&cfg.Environment, args.Environment)
	setString(&cfg.Platform, args.Platform)
	setString(&cfg.Log.File, args.LogFile)
	setString(&cfg.Log.Level, args.LogLevel)

	if args.Workers != 0 {
		cfg.Workers = args.Workers
	}

	if args.Verify != nil {
		cfg.Verify = *args.Verify
	}

	if args.MaxBytesPerSec != nil {
		cfg.MaxBytesPerSec = *args.MaxBytesPerSec
	}

	cfg.Log.JSON = cfg.Log.JSON || args.LogJSON
	cfg.Plain = args.Plain

	if devEnabled || args.Dev {
		setString(&cfg.ForceVersion, args.ForceVersion)
	}
}

func defaultInstallRoot() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, homeErr := homedir.Dir()
		if homeErr != nil {
			return ""
		}

		dir = filepath.Join(home, ".config")
	}

	return filepath.Join(dir, InstallDirName)
}

func knownPlatform(platform string) bool {
	for _, known := range manifest.KnownPlatforms() {
		if platform == known {
			return true
		}
	}

	return false
}

func setString(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}
