package cdn_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	crdb "github.com/cockroachdb/errors"
	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers
	"github.com/spf13/afero"

	"github.com/joe/client-sync/internal/cdn"
	pkgerrors "github.com/joe/client-sync/pkg/errors"
)

func TestArtifactKey(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	key, err := cdn.ArtifactKey("d41d8cd98f00b204e9800998ecf8427e")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(key).To(Equal("artifacts/d4/d41d8cd98f00b204e9800998ecf8427e"))

	key, err = cdn.ArtifactKey("D41D8CD98F00B204E9800998ECF8427E")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(key).To(Equal("artifacts/D4/D41D8CD98F00B204E9800998ECF8427E"))

	_, err = cdn.ArtifactKey("ab")
	g.Expect(err).To(MatchError(cdn.ErrHashTooShort))

	g.Expect(cdn.ManifestKey("1.4.2")).To(Equal("versions/1.4.2.json"))
	g.Expect(cdn.VersionPointerKey("staging")).To(Equal("staging.json"))
}

func TestHTTPOrigin_Open(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	var userAgent atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.UserAgent())

		if r.URL.Path == "/cdn/production.json" {
			_, _ = w.Write([]byte(`{"gameVersion":"1.0.0"}`))

			return
		}

		http.NotFound(w, r)
	}))
	defer server.Close()

	origin, err := cdn.NewOrigin(server.URL+"/cdn", cdn.Options{UserAgent: "ArenaReturnsLauncher/9.9.9"})
	g.Expect(err).ToNot(HaveOccurred())

	defer func() { _ = origin.Close() }()

	body, err := origin.Open(context.Background(), "production.json")
	g.Expect(err).ToNot(HaveOccurred())

	data, err := io.ReadAll(body)
	_ = body.Close()
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(string(data)).To(Equal(`{"gameVersion":"1.0.0"}`))
	g.Expect(userAgent.Load()).To(Equal("ArenaReturnsLauncher/9.9.9"))

	_, err = origin.Open(context.Background(), "missing.json")
	g.Expect(err).To(HaveOccurred())
	g.Expect(crdb.Is(err, pkgerrors.ErrNetwork)).To(BeTrue())
	g.Expect(err.Error()).To(ContainSubstring("404"))
}

func TestHTTPOrigin_TransportFailureIsNetworkError(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	server := httptest.NewServer(http.NotFoundHandler())
	base, err := url.Parse(server.URL)
	g.Expect(err).ToNot(HaveOccurred())
	server.Close()

	origin := cdn.NewHTTPOrigin(base, nil, cdn.DefaultUserAgent)

	_, err = origin.Open(context.Background(), "production.json")
	g.Expect(crdb.Is(err, pkgerrors.ErrNetwork)).To(BeTrue())
}

func TestOrigin_RejectsEscapingKeys(t *testing.T) {
	t.Parallel()

	origin := cdn.NewDirOrigin(afero.NewMemMapFs(), "/cdn")

	for _, key := range []string{"", "/etc/passwd", "../secret", "versions/../../x", `artifacts\ab`, "a//b"} {
		t.Run(key, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			_, err := origin.Open(context.Background(), key)
			g.Expect(err).To(MatchError(cdn.ErrInvalidKey))
		})
	}
}

func TestDirOrigin_Open(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fsys := afero.NewMemMapFs()
	g.Expect(afero.WriteFile(fsys, "/cdn/artifacts/ab/abcdef", []byte("payload"), 0o644)).To(Succeed())

	origin, err := cdn.NewOrigin("file:///cdn", cdn.Options{Fs: fsys})
	g.Expect(err).ToNot(HaveOccurred())

	body, err := origin.Open(context.Background(), "artifacts/ab/abcdef")
	g.Expect(err).ToNot(HaveOccurred())

	data, err := io.ReadAll(body)
	_ = body.Close()
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(string(data)).To(Equal("payload"))

	_, err = origin.Open(context.Background(), "artifacts/cd/cdef")
	g.Expect(crdb.Is(err, pkgerrors.ErrNetwork)).To(BeTrue())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = origin.Open(ctx, "artifacts/ab/abcdef")
	g.Expect(err).To(HaveOccurred())
}
