package tui

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joe/client-sync/internal/syncengine"
	"github.com/joe/client-sync/internal/tui/shared"
	pkgerrors "github.com/joe/client-sync/pkg/errors"
)

type fakeEngine struct {
	mu       sync.Mutex
	active   bool
	cancels  int
	starts   []bool
	startErr error
	status   syncengine.GameStatus
	progress syncengine.Progress
}

func (f *fakeEngine) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cancels++
}

func (f *fakeEngine) GetProgress() syncengine.Progress {
	return f.progress
}

func (f *fakeEngine) GetStatus(context.Context) syncengine.GameStatus {
	return f.status
}

func (f *fakeEngine) IsActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.active
}

func (f *fakeEngine) StartSync(_ context.Context, repair bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.starts = append(f.starts, repair)

	return f.startErr
}

func (f *fakeEngine) setActive(active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.active = active
}

func key(s string) tea.KeyMsg {
	if s == shared.KeyCtrlC {
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}

	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)

	return next.(Model), cmd //nolint:forcetypeassert // Update always returns Model
}

func event(m Model, ev syncengine.Event) Model {
	next, _ := update(m, shared.EngineEventMsg{Event: ev})

	return next
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}

	_, ok := cmd().(tea.QuitMsg)

	return ok
}

var _ = Describe("Model", func() {
	var (
		engine *fakeEngine
		bridge *shared.EventBridge
		clock  clockwork.FakeClock
		model  Model
	)

	BeforeEach(func() {
		engine = &fakeEngine{status: syncengine.GameStatus{Installed: true, LocalVersion: "1.0.0", RemoteVersion: "1.1.0", NeedsUpdate: true}}
		bridge = shared.NewEventBridge()
		clock = clockwork.NewFakeClock()
		model = NewModel(context.Background(), engine, bridge, Options{Root: "/games/arena", Clock: clock})
	})

	AfterEach(func() {
		bridge.Close()
	})

	Describe("status", func() {
		It("shows a placeholder until the status arrives", func() {
			Expect(model.View()).To(ContainSubstring("checking..."))
		})

		It("shows installed and available versions", func() {
			model, _ = update(model, statusMsg{Status: engine.status})

			view := model.View()
			Expect(view).To(ContainSubstring("/games/arena"))
			Expect(view).To(ContainSubstring("1.0.0"))
			Expect(view).To(ContainSubstring("1.1.0"))
			Expect(view).To(ContainSubstring("update available"))
		})

		It("reports a missing install", func() {
			model, _ = update(model, statusMsg{Status: syncengine.GameStatus{RemoteVersion: "2.0.0", NeedsUpdate: true}})

			Expect(model.View()).To(ContainSubstring("not installed"))
		})
	})

	Describe("keys", func() {
		It("starts a sync on s and a repair on r when idle", func() {
			_, cmd := update(model, key(shared.KeySync))
			Expect(cmd).NotTo(BeNil())
			Expect(cmd()).To(Equal(syncDoneMsg{}))

			_, cmd = update(model, key(shared.KeyRepair))
			Expect(cmd).NotTo(BeNil())
			cmd()

			Expect(engine.starts).To(Equal([]bool{false, true}))
		})

		It("ignores start keys while a session runs", func() {
			engine.setActive(true)

			_, cmd := update(model, key(shared.KeySync))
			Expect(cmd).To(BeNil())
			Expect(engine.starts).To(BeEmpty())
		})

		It("cancels on the first ctrl+c and quits on the second", func() {
			engine.setActive(true)

			model, cmd := update(model, key(shared.KeyCtrlC))
			Expect(isQuit(cmd)).To(BeFalse())
			Expect(engine.cancels).To(Equal(1))
			Expect(model.View()).To(ContainSubstring("ctrl+c again to quit"))

			model, cmd = update(model, key(shared.KeyCtrlC))
			Expect(isQuit(cmd)).To(BeTrue())
			Expect(engine.cancels).To(Equal(1))
			Expect(model.View()).To(BeEmpty())
		})

		It("quits on ctrl+c when idle", func() {
			_, cmd := update(model, key(shared.KeyCtrlC))
			Expect(isQuit(cmd)).To(BeTrue())
			Expect(engine.cancels).To(BeZero())
		})

		It("does not quit on q during a session", func() {
			engine.setActive(true)

			_, cmd := update(model, key(shared.KeyQuit))
			Expect(isQuit(cmd)).To(BeFalse())
		})
	})

	Describe("engine events", func() {
		BeforeEach(func() {
			engine.setActive(true)
			model = event(model, syncengine.PhaseChanged{SessionID: "s1", Phase: syncengine.PhaseCheckingVersion})
		})

		It("tracks the phase on the timeline", func() {
			model = event(model, syncengine.PhaseChanged{SessionID: "s1", Phase: syncengine.PhaseVerifying})

			Expect(model.reached).To(Equal(syncengine.PhaseVerifying))
			Expect(model.View()).To(ContainSubstring("Verifying files"))
		})

		It("labels the transfer step Repair for repair sessions", func() {
			model = event(model, syncengine.PhaseChanged{SessionID: "s1", Phase: syncengine.PhaseRepairing, Repair: true})

			Expect(model.View()).To(ContainSubstring("Repair"))
		})

		It("renders progress counts", func() {
			model = event(model, syncengine.ProgressUpdated{Progress: syncengine.Progress{
				Phase: syncengine.PhaseDownloading, FilesTotal: 10, FilesLoaded: 4, CurrentItem: "game/data.pak",
				StartTime: clock.Now(),
			}})

			view := model.View()
			Expect(view).To(ContainSubstring("4 / 10"))
			Expect(view).To(ContainSubstring("game/data.pak"))
		})

		It("shows bytes streamed before any file is placed", func() {
			model = event(model, syncengine.ProgressUpdated{Progress: syncengine.Progress{
				Phase: syncengine.PhaseDownloading, FilesTotal: 2, CurrentItem: "game/big.pak",
				BytesTransferred: 3 * 1024 * 1024, StartTime: clock.Now(),
			}})

			Expect(model.bytes).To(BeZero())
			Expect(model.View()).To(ContainSubstring("3.0 MB"))
		})

		It("logs downloads with their size", func() {
			model = event(model, syncengine.FileDownloaded{Path: "game/data.pak", Bytes: 2048})

			Expect(model.bytes).To(Equal(int64(2048)))
			Expect(model.View()).To(ContainSubstring("Downloaded game/data.pak (2.0 KB)"))
		})

		It("lists cleanup failures with suggestions", func() {
			model.width = 120
			model = event(model, syncengine.CleanupFailed{
				Path: "old/file.bin",
				Err:  pkgerrors.Cleanup(errors.New("permission denied"), "old/file.bin"),
			})

			view := model.View()
			Expect(view).To(ContainSubstring("old/file.bin"))
			Expect(view).To(ContainSubstring("•"))
		})

		It("shows the result of a completed session", func() {
			clock.Advance(5 * time.Second)
			engine.setActive(false)
			model = event(model, syncengine.SessionFinished{
				SessionID: "s1", Outcome: syncengine.PhaseCompleting, Version: "1.1.0", Downloaded: 3, Removed: 1,
			})

			Expect(model.Finished()).NotTo(BeNil())
			view := model.View()
			Expect(view).To(ContainSubstring("Version 1.1.0 is installed"))
			Expect(view).To(ContainSubstring("Downloaded 3, removed 1"))
			Expect(view).To(ContainSubstring("s sync"))
		})

		It("shows the error and suggestions of a failed session", func() {
			engine.setActive(false)
			model = event(model, syncengine.PhaseChanged{SessionID: "s1", Phase: syncengine.PhaseFailed})
			model = event(model, syncengine.SessionFinished{
				SessionID: "s1",
				Outcome:   syncengine.PhaseFailed,
				Err:       pkgerrors.Network(errors.New("connection refused"), "fetch production.json"),
			})

			Expect(model.reached).To(Equal(syncengine.PhaseCheckingVersion))
			view := model.View()
			Expect(view).To(ContainSubstring("Sync failed"))
			Expect(view).To(ContainSubstring("connection refused"))
			Expect(view).To(ContainSubstring("Check your internet connection"))
		})

		It("quits after the session when ExitWhenDone is set", func() {
			model.opts.ExitWhenDone = true
			engine.setActive(false)

			next, cmd := update(model, shared.EngineEventMsg{Event: syncengine.SessionFinished{
				SessionID: "s1", Outcome: syncengine.PhaseCancelled,
			}})
			Expect(next.Finished().Outcome).To(Equal(syncengine.PhaseCancelled))
			Expect(cmd).NotTo(BeNil())
		})

		It("resets per-session state when a new session begins", func() {
			model = event(model, syncengine.FileDownloaded{Path: "a", Bytes: 10})
			model = event(model, syncengine.SessionFinished{SessionID: "s1", Outcome: syncengine.PhaseCompleting})
			model = event(model, syncengine.PhaseChanged{SessionID: "s2", Phase: syncengine.PhaseCheckingVersion})

			Expect(model.bytes).To(BeZero())
			Expect(model.Finished()).To(BeNil())
		})
	})

	It("records a refused start", func() {
		model, _ = update(model, syncDoneMsg{Err: errors.WithStack(pkgerrors.ErrAlreadyInProgress)})

		Expect(model.StartErr()).To(HaveOccurred())
		Expect(model.View()).To(ContainSubstring("sync already in progress"))
	})

	It("starts immediately with AutoStart", func() {
		model = NewModel(context.Background(), engine, bridge, Options{AutoStart: true, Repair: true, Clock: clock})

		Expect(model.Init()).NotTo(BeNil())
		Expect(model.opts.Repair).To(BeTrue())
	})
})
