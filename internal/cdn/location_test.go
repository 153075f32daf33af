//nolint:varnamelen // Test files use idiomatic short variable names (t, tt, etc.)
package cdn_test

import (
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/client-sync/internal/cdn"
)

func TestParseLocation_Local(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	loc, err := cdn.ParseLocation("/srv/cdn/")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(loc.Scheme).To(Equal(cdn.SchemeFile))
	g.Expect(loc.Path).To(Equal("/srv/cdn"))

	loc, err = cdn.ParseLocation("file:///srv/mirror")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(loc.Scheme).To(Equal(cdn.SchemeFile))
	g.Expect(loc.Path).To(Equal("/srv/mirror"))
}

func TestParseLocation_HTTP(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	loc, err := cdn.ParseLocation("https://launcher.cdn.arenareturns.com/")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(loc.Scheme).To(Equal(cdn.SchemeHTTPS))
	g.Expect(loc.URL.String()).To(Equal("https://launcher.cdn.arenareturns.com"))

	_, err = cdn.ParseLocation("http:///no-host")
	g.Expect(err).To(HaveOccurred())
}

//nolint:funlen // Table-driven test with many SFTP URL parsing cases
func TestParseLocation_SFTP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		wantErr  bool
		wantUser string
		wantHost string
		wantPort int
		wantPath string
	}{
		{
			name:     "basic SFTP URL",
			input:    "sftp://user@host/path",
			wantUser: "user",
			wantHost: "host",
			wantPort: 22,
			wantPath: "path",
		},
		{
			name:     "SFTP URL with custom port",
			input:    "sftp://admin@server.com:2222/home/data",
			wantUser: "admin",
			wantHost: "server.com",
			wantPort: 2222,
			wantPath: "home/data",
		},
		{
			name:     "absolute remote path",
			input:    "sftp://deploy@mirror//srv/cdn/",
			wantUser: "deploy",
			wantHost: "mirror",
			wantPort: 22,
			wantPath: "/srv/cdn",
		},
		{
			name:     "home directory",
			input:    "sftp://deploy@mirror",
			wantUser: "deploy",
			wantHost: "mirror",
			wantPort: 22,
			wantPath: ".",
		},
		{
			name:    "SFTP URL without username",
			input:   "sftp://host/path",
			wantErr: true,
		},
		{
			name:    "bad port",
			input:   "sftp://user@host:ssh/path",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			loc, err := cdn.ParseLocation(tt.input)
			if tt.wantErr {
				g.Expect(err).To(HaveOccurred())

				return
			}

			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(loc.Scheme).To(Equal(cdn.SchemeSFTP))
			g.Expect(loc.User).To(Equal(tt.wantUser))
			g.Expect(loc.Host).To(Equal(tt.wantHost))
			g.Expect(loc.Port).To(Equal(tt.wantPort))
			g.Expect(loc.Path).To(Equal(tt.wantPath))
		})
	}
}

func TestParseLocation_Rejects(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	_, err := cdn.ParseLocation("")
	g.Expect(err).To(HaveOccurred())

	_, err = cdn.ParseLocation("ftp://host/path")
	g.Expect(err).To(MatchError(ContainSubstring("unsupported CDN scheme")))
}
