// Package main is the entry point for the client-sync application.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/term" //nolint:depguard // Required for TTY detection

	"github.com/joe/client-sync/internal/cdn"
	"github.com/joe/client-sync/internal/config"
	"github.com/joe/client-sync/internal/logger"
	"github.com/joe/client-sync/internal/manifest"
	"github.com/joe/client-sync/internal/syncengine"
	"github.com/joe/client-sync/internal/tui"
	"github.com/joe/client-sync/internal/tui/shared"
	pkgerrors "github.com/joe/client-sync/pkg/errors"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailed    = 1
	exitConfig    = 2
	exitCancelled = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitConfig
	}

	interactive := !cfg.Plain && cfg.Command != config.CommandReplays && term.IsTerminal(int(os.Stdout.Fd()))

	// The terminal UI owns the screen, so only the log file receives entries
	var console io.Writer = os.Stderr
	if interactive {
		console = nil
	}

	log, closeLog, err := logger.New(logger.Options{
		JSON:    cfg.Log.JSON,
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Console: console,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitConfig
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, closeEngine, err := newEngine(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitConfig
	}
	defer closeEngine()

	if interactive {
		return runInteractive(ctx, cfg, engine)
	}

	switch cfg.Command {
	case config.CommandReplays:
		return listReplays(engine)
	case config.CommandSync, config.CommandRepair:
		return runPlain(ctx, engine, cfg.Command == config.CommandRepair)
	default:
		return printStatus(ctx, engine)
	}
}

func newEngine(cfg *config.Config, log *zap.Logger) (*syncengine.Engine, func(), error) {
	origin, err := cdn.NewOrigin(cfg.CDN, cdn.Options{UserAgent: cfg.UserAgent, Logger: log})
	if err != nil {
		return nil, nil, errors.Wrap(err, "open CDN")
	}

	closeOrigin := func() {
		if closeErr := origin.Close(); closeErr != nil {
			log.Warn("close CDN", zap.Error(closeErr))
		}
	}

	store := manifest.NewStore(origin, manifest.StoreOptions{
		Environment:  cfg.Environment,
		ForceVersion: cfg.ForceVersion,
		Logger:       log,
	})

	engine, err := syncengine.NewEngine(syncengine.Options{
		Root:          cfg.InstallRoot,
		Store:         store,
		Origin:        origin,
		Platform:      cfg.Platform,
		Workers:       cfg.Workers,
		ExistenceOnly: cfg.Verify == config.VerifyExistence,
		Protected:     cfg.ProtectedPaths,
		RateLimit:     cfg.MaxBytesPerSec,
		Logger:        log,
	})
	if err != nil {
		closeOrigin()
		return nil, nil, err
	}

	return engine, closeOrigin, nil
}

func runInteractive(ctx context.Context, cfg *config.Config, engine *syncengine.Engine) int {
	model, err := tui.Run(ctx, engine, engine, tui.Options{
		Root:      cfg.InstallRoot,
		AutoStart: cfg.Command == config.CommandSync || cfg.Command == config.CommandRepair,
		Repair:    cfg.Command == config.CommandRepair,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailed
	}

	finished := model.Finished()
	if finished == nil {
		return exitOK
	}

	return exitCode(finished.Outcome)
}

func runPlain(ctx context.Context, engine *syncengine.Engine, repair bool) int {
	var finished syncengine.SessionFinished

	unsubscribe := engine.Subscribe(syncengine.EmitterFunc(func(event syncengine.Event) {
		switch ev := event.(type) {
		case syncengine.PhaseChanged:
			fmt.Fprintln(os.Stdout, ev.Phase.Label())
		case syncengine.CleanupFailed:
			fmt.Fprint(os.Stderr, shared.RenderErrorList(shared.ErrorListConfig{
				Errors:  []shared.PathError{{Path: ev.Path, Err: ev.Err}},
				Context: shared.ContextFinished,
			}))
		case syncengine.SessionFinished:
			finished = ev
		}
	}))
	defer unsubscribe()

	err := engine.StartSync(ctx, repair)

	switch {
	case errors.Is(err, pkgerrors.ErrAlreadyInProgress):
		fmt.Fprint(os.Stderr, shared.RenderSessionError(err, 0))
		return exitFailed
	case finished.Outcome == syncengine.PhaseCompleting:
		fmt.Fprintf(os.Stdout, "Version %s installed: %d downloaded, %d removed\n",
			finished.Version, finished.Downloaded, finished.Removed)
	case finished.Outcome == syncengine.PhaseCancelled:
		fmt.Fprintf(os.Stdout, "Cancelled after %d downloads; run sync again to resume\n", finished.Downloaded)
	default:
		fmt.Fprint(os.Stderr, shared.RenderSessionError(err, 0))
	}

	return exitCode(finished.Outcome)
}

func printStatus(ctx context.Context, engine *syncengine.Engine) int {
	status := engine.GetStatus(ctx)

	local := status.LocalVersion
	if !status.Installed {
		local = "not installed"
	}

	fmt.Fprintf(os.Stdout, "Installed: %s\n", local)

	if status.Error != nil {
		fmt.Fprint(os.Stderr, shared.RenderSessionError(status.Error, 0))
		return exitFailed
	}

	fmt.Fprintf(os.Stdout, "Available: %s\n", status.RemoteVersion)

	if status.NeedsUpdate {
		fmt.Fprintln(os.Stdout, "An update is available; run 'client-sync sync'")
	}

	return exitOK
}

func listReplays(engine *syncengine.Engine) int {
	replays, err := engine.ListReplays()
	if err != nil {
		fmt.Fprint(os.Stderr, shared.RenderSessionError(err, 0))
		return exitFailed
	}

	if len(replays) == 0 {
		fmt.Fprintln(os.Stdout, "No replays recorded")
		return exitOK
	}

	for _, replay := range replays {
		when := replay.ModTime
		if replay.Date != nil {
			when = *replay.Date
		}

		match := replay.Name
		if replay.IsValidFormat {
			match = replay.Player1 + " vs " + replay.Player2 + "  (" + replay.Name + ")"
		}

		fmt.Fprintf(os.Stdout, "%s  %8s  %s\n", when.Format("2006-01-02 15:04"), shared.FormatBytes(replay.Size), match)
	}

	return exitOK
}

func exitCode(outcome syncengine.Phase) int {
	switch outcome {
	case syncengine.PhaseCompleting:
		return exitOK
	case syncengine.PhaseCancelled:
		return exitCancelled
	default:
		return exitFailed
	}
}
