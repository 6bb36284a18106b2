package driver

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/admitted/internal/httpclient"
	"github.com/GriffinCanCode/admitted/internal/platform"
)

// fakeRunner answers the browser probe with a canned line and the driver
// probe with the contents of the installed "executable", which in tests is
// a text file holding what the real binary would print.
type fakeRunner struct {
	mu         sync.Mutex
	browserOut string
	browserErr error
	calls      []string
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, strings.Join(append([]string{name}, args...), " "))
	f.mu.Unlock()

	if filepath.IsAbs(name) {
		return os.ReadFile(name)
	}
	if f.browserErr != nil {
		return nil, f.browserErr
	}
	return []byte(f.browserOut), nil
}

func driverOutput(version string) string {
	return fmt.Sprintf("ChromeDriver %s (f0e1d2c3-refs/branch-heads/6099@{#1234})\n", version)
}

func testProfile(t *testing.T) platform.Profile {
	t.Helper()
	p, err := platform.ForEnv(platform.Env{GOOS: "linux", GOARCH: "amd64", Home: t.TempDir()})
	require.NoError(t, err)
	return p.With(platform.Overrides{InstallDir: filepath.Join(t.TempDir(), "chrome-linux64")})
}

func installFake(t *testing.T, p platform.Profile, version string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(p.InstallDir, 0o755))
	require.NoError(t, os.WriteFile(p.DriverPath(), []byte(driverOutput(version)), 0o755))
}

func makeZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func makeTarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o755,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
			ModTime:  time.Unix(0, 0),
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// fixture is a fake version/download host.
type fixture struct {
	srv       *httptest.Server
	mu        sync.Mutex
	files     map[string][]byte
	hits      map[string]int
	catalogFn func(base string) string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{files: map[string][]byte{}, hits: map[string]int{}}
	f.catalogFn = defaultCatalog
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.hits[r.URL.Path]++

		if r.URL.Path == "/catalog.json" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(f.catalogFn(f.srv.URL)))
			return
		}
		body, ok := f.files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) put(path string, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = body
}

func (f *fixture) hitCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fixture) resolver(t *testing.T) *Resolver {
	t.Helper()
	c, err := httpclient.New(httpclient.Options{Retries: 0})
	require.NoError(t, err)
	return &Resolver{
		HTTP:       c,
		LegacyURL:  f.srv.URL + "/legacy",
		CatalogURL: f.srv.URL + "/catalog.json",
		Cutover:    DefaultCutover,
	}
}

func defaultCatalog(base string) string {
	return fmt.Sprintf(`{
  "timestamp": "2024-01-10T12:00:00.000Z",
  "versions": [
    {"version": "114.0.5735.90", "revision": "1135570", "downloads": {
      "chrome": [{"platform": "linux64", "url": "%[1]s/cft/114.0.5735.90/chrome-linux64.zip"}]}},
    {"version": "120.0.6099.71", "revision": "1217362", "downloads": {
      "chromedriver": [{"platform": "linux64", "url": "%[1]s/cft/120.0.6099.71/chromedriver-linux64.zip"}]}},
    {"version": "120.0.6099.109", "revision": "1217362", "downloads": {
      "chrome": [{"platform": "linux64", "url": "%[1]s/cft/120.0.6099.109/chrome-linux64.zip"}],
      "chromedriver": [
        {"platform": "linux64", "url": "%[1]s/cft/120.0.6099.109/chromedriver-linux64.zip"},
        {"platform": "win64", "url": "%[1]s/cft/120.0.6099.109/chromedriver-win64.zip"}]}},
    {"version": "121.0.6167.85", "revision": "1233107", "downloads": {
      "chromedriver": [{"platform": "linux64", "url": "%[1]s/cft/121.0.6167.85/chromedriver-linux64.tar.gz"}]}},
    {"version": "122.0.6261.57", "revision": "1250580", "downloads": {
      "chrome": [{"platform": "linux64", "url": "%[1]s/cft/122.0.6261.57/chrome-linux64.zip"}]}}
  ]
}`, base)
}
