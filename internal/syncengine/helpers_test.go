//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package syncengine_test

import (
	"context"
	"crypto/md5" //nolint:gosec // Matches the manifest digest format
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/joe/client-sync/internal/cdn"
	"github.com/joe/client-sync/internal/manifest"
	"github.com/joe/client-sync/internal/syncengine"
)

const (
	installRoot = "/install"
	mirrorRoot  = "/mirror"
)

func md5Hex(content string) string {
	sum := md5.Sum([]byte(content)) //nolint:gosec // Matches the manifest digest format

	return hex.EncodeToString(sum[:])
}

// fixture is a published mirror plus an in-memory install tree.
type fixture struct {
	t       *testing.T
	mirror  afero.Fs
	install afero.Fs
	origin  *countingOrigin
	store   *manifest.Store
	files   map[string]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mirror := afero.NewMemMapFs()
	origin := &countingOrigin{inner: cdn.NewDirOrigin(mirror, mirrorRoot)}

	return &fixture{
		t:       t,
		mirror:  mirror,
		install: afero.NewMemMapFs(),
		origin:  origin,
		store:   manifest.NewStore(origin, manifest.StoreOptions{Environment: "production"}),
	}
}

// publish uploads files as the base group of version and points production at it.
func (f *fixture) publish(version string, files map[string]string) {
	f.t.Helper()

	f.files = files

	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}

	sort.Strings(paths)

	base := make([]manifest.FileEntry, 0, len(paths))

	for _, path := range paths {
		hash := md5Hex(files[path])
		base = append(base, manifest.FileEntry{Path: path, Hash: hash})

		key, err := cdn.ArtifactKey(hash)
		if err != nil {
			f.t.Fatalf("artifact key: %v", err)
		}

		f.write(f.mirror, mirrorRoot+"/"+key, files[path])
	}

	f.publishManifest(version, map[string]any{"version": version, "base": base})
	f.write(f.mirror, mirrorRoot+"/production.json", `{"gameVersion":"`+version+`"}`)
}

// publishManifest replaces the manifest document stored for version.
func (f *fixture) publishManifest(version string, doc map[string]any) {
	f.t.Helper()

	data, err := json.Marshal(doc)
	if err != nil {
		f.t.Fatalf("marshal manifest: %v", err)
	}

	f.write(f.mirror, mirrorRoot+"/versions/"+version+".json", string(data))
}

// installCorrect writes every published file into the install tree.
func (f *fixture) installCorrect() {
	f.t.Helper()

	for path, content := range f.files {
		f.writeLocal(path, content)
	}
}

func (f *fixture) writeLocal(path, content string) {
	f.t.Helper()
	f.write(f.install, installRoot+"/"+path, content)
}

func (f *fixture) readLocal(path string) string {
	f.t.Helper()

	data, err := afero.ReadFile(f.install, installRoot+"/"+path)
	if err != nil {
		f.t.Fatalf("read %s: %v", path, err)
	}

	return string(data)
}

func (f *fixture) existsLocal(path string) bool {
	f.t.Helper()

	ok, err := afero.Exists(f.install, installRoot+"/"+path)
	if err != nil {
		f.t.Fatalf("exists %s: %v", path, err)
	}

	return ok
}

func (f *fixture) write(fsys afero.Fs, path, content string) {
	f.t.Helper()

	if err := afero.WriteFile(fsys, path, []byte(content), 0o644); err != nil {
		f.t.Fatalf("write %s: %v", path, err)
	}
}

func (f *fixture) engine(mutate ...func(*syncengine.Options)) *syncengine.Engine {
	f.t.Helper()

	opts := syncengine.Options{
		Root:      installRoot,
		FS:        f.install,
		Store:     f.store,
		Origin:    f.origin,
		Platform:  manifest.GroupLinux,
		Protected: []string{"version.dat", "game/userPreferences.properties", "game/saves", "game/replays", "game/logs"},
	}

	for _, m := range mutate {
		m(&opts)
	}

	engine, err := syncengine.NewEngine(opts)
	if err != nil {
		f.t.Fatalf("new engine: %v", err)
	}

	return engine
}

// countingOrigin counts artifact opens and tracks how many run at once.
type countingOrigin struct {
	inner  cdn.Origin
	delay  time.Duration
	onOpen func(n int)

	opens       atomic.Int32
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (o *countingOrigin) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if !strings.HasPrefix(key, "artifacts/") {
		return o.inner.Open(ctx, key)
	}

	n := o.opens.Add(1)
	if o.onOpen != nil {
		o.onOpen(int(n))
	}

	current := o.inFlight.Add(1)
	defer o.inFlight.Add(-1)

	for {
		seen := o.maxInFlight.Load()
		if current <= seen || o.maxInFlight.CompareAndSwap(seen, current) {
			break
		}
	}

	if o.delay > 0 {
		select {
		case <-time.After(o.delay):
		case <-ctx.Done():
			return nil, ctx.Err() //nolint:wrapcheck // Test double
		}
	}

	return o.inner.Open(ctx, key)
}

func (o *countingOrigin) Close() error {
	return nil
}

func (o *countingOrigin) downloads() int {
	return int(o.opens.Load())
}

func (o *countingOrigin) reset() {
	o.opens.Store(0)
	o.maxInFlight.Store(0)
}

// openCountingFs counts Open calls on the install tree, which the engine only makes
// to hash files, and runs onOpen before each one.
type openCountingFs struct {
	afero.Fs

	onOpen func(n int)
	opens  atomic.Int32
}

func (o *openCountingFs) Open(name string) (afero.File, error) {
	n := o.opens.Add(1)
	if o.onOpen != nil {
		o.onOpen(int(n))
	}

	return o.Fs.Open(name) //nolint:wrapcheck // Test double
}

// recorder captures events in delivery order.
type recorder struct {
	mu     sync.Mutex
	events []syncengine.Event
}

func (r *recorder) Emit(event syncengine.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

func (r *recorder) all() []syncengine.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]syncengine.Event(nil), r.events...)
}

func (r *recorder) phases() []syncengine.Phase {
	var phases []syncengine.Phase

	for _, event := range r.all() {
		if changed, ok := event.(syncengine.PhaseChanged); ok {
			phases = append(phases, changed.Phase)
		}
	}

	return phases
}

func (r *recorder) last() syncengine.Event {
	events := r.all()
	if len(events) == 0 {
		return nil
	}

	return events[len(events)-1]
}

func tenFiles() map[string]string {
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		files["game/lib/"+name+".jar"] = "content of " + name
	}

	return files
}

func manyFiles(n int) map[string]string {
	files := map[string]string{}
	for i := range n {
		files[fmt.Sprintf("game/assets/pack%03d.pak", i)] = strings.Repeat(fmt.Sprintf("pack %d;", i), 64)
	}

	return files
}

func fiveFiles() map[string]string {
	return map[string]string{
		"game/client.jar":        "client",
		"game/lib/core.jar":      "core",
		"game/lib/net.jar":       "net",
		"game/assets/map.pak":    "map",
		"game/assets/sounds.pak": "sounds",
	}
}

func cdnKey(hash string) (string, error) {
	return cdn.ArtifactKey(hash) //nolint:wrapcheck // Test helper
}
