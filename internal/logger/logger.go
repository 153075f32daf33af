// Package logger builds the zap logger shared by the sync engine and the CLI.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field names used across packages.
const (
	FieldCount   = "count"
	FieldError   = "error"
	FieldHash    = "hash"
	FieldPath    = "path"
	FieldPhase   = "phase"
	FieldRepair  = "repair"
	FieldSession = "session"
	FieldVersion = "version"
)

// Options configures New.
type Options struct {
	// JSON selects the production JSON encoder instead of the console encoder.
	JSON bool
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// File, when set, receives every entry in addition to Console.
	File string
	// Console is the human-facing sink. Nil disables it.
	Console io.Writer
}

// New returns a logger and a function that flushes and closes its sinks.
func New(opts Options) (*zap.Logger, func(), error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var cores []zapcore.Core

	closers := []func(){}

	if opts.Console != nil {
		cores = append(cores, zapcore.NewCore(newEncoder(opts.JSON), zapcore.AddSync(opts.Console), level))
	}

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) // #nosec G304 - path from user config
		if err != nil {
			return nil, nil, errors.Wrapf(err, "open log file %s", opts.File)
		}

		cores = append(cores, zapcore.NewCore(newEncoder(true), zapcore.AddSync(f), level))
		closers = append(closers, func() { _ = f.Close() })
	}

	if len(cores) == 0 {
		return zap.NewNop(), func() {}, nil
	}

	log := zap.New(zapcore.NewTee(cores...))

	return log, func() {
		_ = log.Sync()
		for _, closeFn := range closers {
			closeFn()
		}
	}, nil
}

// OrNop returns log, or a no-op logger when log is nil.
func OrNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}

	return log
}

// ParseLevel maps a level name to a zap level. Empty means info.
func ParseLevel(name string) (zapcore.Level, error) {
	if strings.TrimSpace(name) == "" {
		return zapcore.InfoLevel, nil
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return zapcore.InfoLevel, errors.Wrapf(err, "invalid log level %q", name)
	}

	return level, nil
}

func newEncoder(json bool) zapcore.Encoder {
	if json {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder

		return zapcore.NewJSONEncoder(cfg)
	}

	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")

	return zapcore.NewConsoleEncoder(cfg)
}
