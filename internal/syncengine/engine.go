// Package syncengine converges a local game install to a remote version manifest:
// it verifies every expected file, downloads what is missing or corrupt, removes
// what the manifest no longer lists and records the installed version.
package syncengine

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/joe/client-sync/internal/cdn"
	"github.com/joe/client-sync/internal/logger"
	"github.com/joe/client-sync/internal/manifest"
	pkgerrors "github.com/joe/client-sync/pkg/errors"
	"github.com/joe/client-sync/pkg/fileops"
)

// Exported constants.
const (
	// VerifyYieldInterval is how many entries verification checks between yields
	VerifyYieldInterval = 25
)

// Exported variables.
var (
	ErrNoOrigin = errors.New("no artifact origin configured")
	ErrNoRoot   = errors.New("no install root configured")
	ErrNoStore  = errors.New("no manifest store configured")
)

// ManifestSource resolves the version to install and fetches its manifest.
type ManifestSource interface {
	ResolveVersion(ctx context.Context) (string, error)
	FetchManifest(ctx context.Context, version string) (*manifest.VersionManifest, error)
}

// Options configures an Engine.
type Options struct {
	Root   string
	FS     afero.Fs // defaults to the OS filesystem
	Store  ManifestSource
	Origin cdn.Origin

	Platform      string // manifest group for this machine
	Workers       int    // download concurrency, DefaultWorkers when zero
	ExistenceOnly bool   // trust existing files outside repair mode
	Protected     []string
	RateLimit     int64 // bytes per second across all workers, 0 for unlimited

	ProgressInterval time.Duration
	Clock            clockwork.Clock
	Logger           *zap.Logger
}

// Engine runs at most one sync session at a time over an install root.
type Engine struct {
	root      string
	fsys      afero.Fs
	store     ManifestSource
	platform  string
	workers   int
	protected *ProtectedPaths
	clock     clockwork.Clock
	log       *zap.Logger

	fileOps   *fileops.FileOps
	checker   *IntegrityChecker
	scheduler *DownloadScheduler
	reclaimer *ObsoleteFileReclaimer

	sessionMu sync.Mutex
	active    bool
	cancel    context.CancelFunc

	// emitMu is taken before statusMu so events leave in the order state changed
	emitMu   sync.Mutex
	throttle *progressThrottle

	statusMu sync.RWMutex
	progress Progress

	subsMu      sync.Mutex
	subscribers map[int]EventEmitter
	nextSubID   int
}

// NewEngine creates an engine from opts.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Root == "" {
		return nil, errors.WithStack(ErrNoRoot)
	}

	if opts.Store == nil {
		return nil, errors.WithStack(ErrNoStore)
	}

	if opts.Origin == nil {
		return nil, errors.WithStack(ErrNoOrigin)
	}

	fsys := opts.FS
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	log := logger.OrNop(opts.Logger)
	fileOps := fileops.NewFileOps(fsys)

	engine := &Engine{
		root:        opts.Root,
		fsys:        fsys,
		store:       opts.Store,
		platform:    opts.Platform,
		workers:     workers,
		protected:   NewProtectedPaths(append([]string{VersionFileName}, opts.Protected...)),
		clock:       clock,
		log:         log,
		fileOps:     fileOps,
		checker:     NewIntegrityChecker(fileOps, opts.Root, opts.ExistenceOnly, log),
		scheduler:   NewDownloadScheduler(opts.Origin, fileOps, opts.Root, fileops.NewLimiter(opts.RateLimit), log),
		throttle:    newProgressThrottle(clock, opts.ProgressInterval),
		progress:    Progress{Phase: PhaseIdle},
		subscribers: map[int]EventEmitter{},
	}

	engine.reclaimer = NewObsoleteFileReclaimer(fsys, opts.Root, log, engine.cleanupFailed)

	return engine, nil
}

// Cancel stops the active session. It is a no-op when no session is active and
// safe to call repeatedly.
func (e *Engine) Cancel() {
	e.sessionMu.Lock()
	defer e.sessionMu.Unlock()

	if e.active && e.cancel != nil {
		e.cancel()
	}
}

// GetProgress returns a snapshot of the current or last session.
func (e *Engine) GetProgress() Progress {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()

	return e.progress
}

// GetStatus reads the installed version marker and the remote version. It never
// reads file contents and may run while a session is active.
func (e *Engine) GetStatus(ctx context.Context) GameStatus {
	var status GameStatus

	local, err := ReadInstalledVersion(e.fsys, e.root)
	if err != nil {
		status.Error = err
	}

	status.LocalVersion = local
	status.Installed = local != ""

	remote, err := e.store.ResolveVersion(ctx)
	if err != nil {
		if status.Error == nil {
			status.Error = err
		}

		return status
	}

	status.RemoteVersion = remote
	status.NeedsUpdate = status.Installed && local != remote

	return status
}

// IsActive reports whether a session is running.
func (e *Engine) IsActive() bool {
	e.sessionMu.Lock()
	defer e.sessionMu.Unlock()

	return e.active
}

// StartSync runs a full session and blocks until it ends. With repair, every file
// is re-hashed regardless of the existence-only setting. It returns an
// ErrAlreadyInProgress error without touching state when a session is running,
// an ErrCancelled error when cancelled, and the fatal error on failure.
func (e *Engine) StartSync(ctx context.Context, repair bool) error {
	sessionCtx, sessionID, err := e.beginSession(ctx, repair)
	if err != nil {
		return err
	}

	log := e.log.With(zap.String(logger.FieldSession, sessionID), zap.Bool(logger.FieldRepair, repair))
	log.Info("sync started")

	version, err := e.runSession(sessionCtx, log, repair)

	return e.finishSession(sessionCtx, log, version, err)
}

// Subscribe registers emitter for every future event and returns a function that
// unregisters it. Emit is called synchronously and must not start a session.
func (e *Engine) Subscribe(emitter EventEmitter) func() {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()

	id := e.nextSubID
	e.nextSubID++
	e.subscribers[id] = emitter

	return func() {
		e.subsMu.Lock()
		defer e.subsMu.Unlock()

		delete(e.subscribers, id)
	}
}

func (e *Engine) beginSession(ctx context.Context, repair bool) (context.Context, string, error) {
	e.sessionMu.Lock()
	defer e.sessionMu.Unlock()

	if e.active {
		return nil, "", errors.WithStack(pkgerrors.ErrAlreadyInProgress)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	sessionID := uuid.NewString()

	e.active = true
	e.cancel = cancel
	e.checker.Reset()

	e.statusMu.Lock()
	e.progress = Progress{
		SessionID:   sessionID,
		Phase:       PhaseIdle,
		Repair:      repair,
		StartTime:   time.Now(),
		LastOutcome: e.progress.LastOutcome,
	}
	e.statusMu.Unlock()

	return sessionCtx, sessionID, nil
}

func (e *Engine) runSession(ctx context.Context, log *zap.Logger, repair bool) (string, error) {
	e.setPhase(log, PhaseCheckingVersion, 0)

	version, err := e.store.ResolveVersion(ctx)
	if err != nil {
		return "", err
	}

	versionManifest, err := e.store.FetchManifest(ctx, version)
	if err != nil {
		return version, err
	}

	// The manifest names the version its files make up
	version = versionManifest.Version

	entries, err := manifest.EffectiveFiles(versionManifest, e.platform)
	if err != nil {
		return version, err
	}

	log.Info("manifest resolved",
		zap.String(logger.FieldVersion, version),
		zap.String("platform", e.platform),
		zap.Int(logger.FieldCount, len(entries)))

	e.setPhase(log, PhaseVerifying, len(entries))

	toFetch, err := e.verify(ctx, entries, repair)
	if err != nil {
		return version, err
	}

	log.Info("verification finished", zap.Int("to_fetch", len(toFetch)))

	if len(toFetch) > 0 {
		err = e.download(ctx, log, toFetch, repair)
		if err != nil {
			return version, err
		}
	}

	e.setPhase(log, PhaseCleaningUp, 0)

	expected := make([]string, 0, len(entries))
	for _, entry := range entries {
		expected = append(expected, entry.Path)
	}

	result, err := e.reclaimer.Reclaim(ctx, expected, e.protected)
	e.update(true, func(p *Progress) { p.Removed = result.Removed })

	if err != nil {
		return version, err
	}

	log.Info("cleanup finished", zap.Int("removed", result.Removed), zap.Int("failures", len(result.Failures)))

	if err := ctx.Err(); err != nil {
		return version, errors.Mark(errors.Wrap(err, "before writing version"), pkgerrors.ErrCancelled)
	}

	e.setPhase(log, PhaseCompleting, 1)

	err = WriteInstalledVersion(e.fileOps, e.root, version)
	if err != nil {
		return version, err
	}

	e.update(true, func(p *Progress) {
		p.FilesLoaded = 1
		p.CurrentItem = VersionFileName
	})

	return version, nil
}

// verify checks every entry and returns those that must be fetched. Cancellation
// is honored before each entry and between chunks of a hash.
func (e *Engine) verify(ctx context.Context, entries []manifest.FileEntry, repair bool) ([]manifest.FileEntry, error) {
	var toFetch []manifest.FileEntry

	for i, entry := range entries {
		if i > 0 && i%VerifyYieldInterval == 0 {
			runtime.Gosched()
		}

		if err := ctx.Err(); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "verification"), pkgerrors.ErrCancelled)
		}

		needsFetch, err := e.checker.NeedsFetch(ctx, entry, repair)
		if err != nil {
			return nil, errors.Wrap(err, "verification")
		}

		if needsFetch {
			toFetch = append(toFetch, entry)
		}

		loaded := i + 1
		e.update(loaded == len(entries), func(p *Progress) {
			p.FilesLoaded = loaded
			p.CurrentItem = entry.Path
		})
	}

	return toFetch, nil
}

func (e *Engine) download(ctx context.Context, log *zap.Logger, entries []manifest.FileEntry, repair bool) error {
	phase := PhaseDownloading
	if repair {
		phase = PhaseRepairing
	}

	e.setPhase(log, phase, len(entries))

	return e.scheduler.Run(ctx, entries, e.workers, func(completed, total int, entry manifest.FileEntry, bytes int64) {
		e.checker.MarkVerified(entry)

		e.emitMu.Lock()
		defer e.emitMu.Unlock()

		e.statusMu.Lock()
		e.progress.FilesLoaded = completed
		e.progress.Downloaded = completed
		e.progress.CurrentItem = entry.Path
		snapshot := e.progress
		e.statusMu.Unlock()

		e.broadcast(FileDownloaded{Path: entry.Path, Bytes: bytes})

		if e.throttle.allow(completed == total) {
			e.broadcast(ProgressUpdated{Progress: snapshot})
		}
	}, e.transferred)
}

// transferred accounts bytes as they stream in so progress moves during large files.
func (e *Engine) transferred(entry manifest.FileEntry, delta int64) {
	e.update(false, func(p *Progress) {
		p.BytesTransferred += delta
		p.CurrentItem = entry.Path
	})
}

func (e *Engine) finishSession(ctx context.Context, log *zap.Logger, version string, err error) error {
	outcome := PhaseCompleting

	switch {
	case err == nil:
	case ctx.Err() != nil:
		outcome = PhaseCancelled
		if !errors.Is(err, pkgerrors.ErrCancelled) {
			err = errors.Mark(err, pkgerrors.ErrCancelled)
		}
	default:
		outcome = PhaseFailed
	}

	if outcome != PhaseCompleting {
		e.setPhase(log, outcome, 0)
	}

	e.emitMu.Lock()

	e.statusMu.Lock()
	finished := SessionFinished{
		SessionID:  e.progress.SessionID,
		Outcome:    outcome,
		Version:    version,
		Downloaded: e.progress.Downloaded,
		Removed:    e.progress.Removed,
		Err:        err,
	}
	e.progress = Progress{
		SessionID:        finished.SessionID,
		Phase:            PhaseIdle,
		Repair:           e.progress.Repair,
		Downloaded:       finished.Downloaded,
		Removed:          finished.Removed,
		BytesTransferred: e.progress.BytesTransferred,
		StartTime:        e.progress.StartTime,
		LastOutcome:      outcome,
		LastError:        err,
	}
	e.statusMu.Unlock()

	e.broadcast(finished)
	e.emitMu.Unlock()

	switch outcome {
	case PhaseCompleting:
		log.Info("sync finished",
			zap.String(logger.FieldVersion, version),
			zap.Int("downloaded", finished.Downloaded),
			zap.Int("removed", finished.Removed))
	case PhaseCancelled:
		log.Info("sync cancelled", zap.Int("downloaded", finished.Downloaded))
	default:
		log.Error("sync failed", zap.Error(err))
	}

	e.sessionMu.Lock()
	e.active = false
	e.cancel()
	e.cancel = nil
	e.sessionMu.Unlock()

	return err
}

// setPhase enters phase with a fresh item count and announces it.
func (e *Engine) setPhase(log *zap.Logger, phase Phase, total int) {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	e.statusMu.Lock()
	e.progress.Phase = phase
	e.progress.FilesTotal = total
	e.progress.FilesLoaded = 0
	e.progress.CurrentItem = ""
	snapshot := e.progress
	e.statusMu.Unlock()

	log.Info("phase changed", zap.String(logger.FieldPhase, string(phase)))

	e.broadcast(PhaseChanged{SessionID: snapshot.SessionID, Phase: phase, Repair: snapshot.Repair})
	e.throttle.allow(true)
	e.broadcast(ProgressUpdated{Progress: snapshot})
}

// update mutates progress and publishes it unless throttled. force bypasses the throttle.
func (e *Engine) update(force bool, mutate func(p *Progress)) {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	e.statusMu.Lock()
	mutate(&e.progress)
	snapshot := e.progress
	e.statusMu.Unlock()

	if e.throttle.allow(force) {
		e.broadcast(ProgressUpdated{Progress: snapshot})
	}
}

func (e *Engine) cleanupFailed(path string, err error) {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	e.broadcast(CleanupFailed{Path: path, Err: err})
}

// broadcast delivers event to every subscriber. Callers hold emitMu.
func (e *Engine) broadcast(event Event) {
	e.subsMu.Lock()
	ids := make([]int, 0, len(e.subscribers))

	for id := range e.subscribers {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	emitters := make([]EventEmitter, 0, len(ids))
	for _, id := range ids {
		emitters = append(emitters, e.subscribers[id])
	}
	e.subsMu.Unlock()

	for _, emitter := range emitters {
		emitter.Emit(event)
	}
}
