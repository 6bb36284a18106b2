package driver

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/admitted/internal/httpclient"
	"github.com/GriffinCanCode/admitted/internal/platform"
)

func newInstaller(t *testing.T, f *fixture, p platform.Profile) *Installer {
	t.Helper()
	r := f.resolver(t)
	return &Installer{Profile: p, HTTP: r.HTTP, Resolver: r, Runner: &fakeRunner{}}
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestInstall(t *testing.T) {
	ctx := context.Background()

	t.Run("nested zip entry replaces old driver", func(t *testing.T) {
		f := newFixture(t)
		f.put("/cft/120.0.6099.109/chromedriver-linux64.zip", makeZip(t, map[string]string{
			"chromedriver-linux64/LICENSE.chromedriver": "license text",
			"chromedriver-linux64/chromedriver":         driverOutput("120.0.6099.109"),
		}))
		p := testProfile(t)
		installFake(t, p, "119.0.6045.105")

		in := newInstaller(t, f, p)
		require.NoError(t, in.Install(ctx, "120.0.6099.109"))

		got, err := DriverVersion(ctx, in.Runner, p.DriverProbe(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, "120.0.6099.109", got)
		assert.Equal(t, []string{"chromedriver"}, dirNames(t, p.InstallDir))

		if runtime.GOOS != "windows" {
			info, err := os.Stat(p.DriverPath())
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
		}
	})

	t.Run("legacy zip with entry at the root", func(t *testing.T) {
		f := newFixture(t)
		f.put("/legacy/114.0.5735.90/chromedriver_linux64.zip", makeZip(t, map[string]string{
			"chromedriver": driverOutput("114.0.5735.90"),
		}))
		p := testProfile(t)

		in := newInstaller(t, f, p)
		require.NoError(t, in.Install(ctx, "114.0.5735.90"))
		assert.Zero(t, f.hitCount("/catalog.json"))
	})

	t.Run("verification mismatch is a hard failure", func(t *testing.T) {
		f := newFixture(t)
		f.put("/cft/120.0.6099.109/chromedriver-linux64.zip", makeZip(t, map[string]string{
			"chromedriver-linux64/chromedriver": driverOutput("120.0.6099.71"),
		}))
		p := testProfile(t)
		installFake(t, p, "119.0.6045.105")

		err := newInstaller(t, f, p).Install(ctx, "120.0.6099.109")
		require.ErrorIs(t, err, ErrVerifyMismatch)

		var ve *VersionError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "verify", ve.Op)
		assert.Equal(t, "120.0.6099.71", ve.Installed)
		assert.Equal(t, "120.0.6099.109", ve.Wanted)
		assert.Contains(t, err.Error(), "from 119.0.6045.105 to 120.0.6099.109")
	})

	t.Run("archive without the executable", func(t *testing.T) {
		f := newFixture(t)
		f.put("/cft/120.0.6099.109/chromedriver-linux64.zip", makeZip(t, map[string]string{
			"chromedriver-linux64/LICENSE.chromedriver": "license text",
		}))
		p := testProfile(t)

		err := newInstaller(t, f, p).Install(ctx, "120.0.6099.109")
		require.ErrorIs(t, err, ErrEntryNotFound)
		assert.NoFileExists(t, p.DriverPath())
		assert.Empty(t, dirNames(t, p.InstallDir))
	})

	t.Run("download failure", func(t *testing.T) {
		f := newFixture(t)
		p := testProfile(t)

		err := newInstaller(t, f, p).Install(ctx, "120.0.6099.109")
		var se *httpclient.StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusNotFound, se.StatusCode)
	})

	t.Run("version without catalog download", func(t *testing.T) {
		f := newFixture(t)
		err := newInstaller(t, f, testProfile(t)).Install(ctx, "122.0.6261.57")
		assert.ErrorIs(t, err, ErrNoDownload)
	})
}

func TestInstallLatest(t *testing.T) {
	f := newFixture(t)
	f.put("/cft/121.0.6167.85/chromedriver-linux64.tar.gz", makeTarGz(t, map[string]string{
		"chromedriver-linux64/THIRD_PARTY_NOTICES.chromedriver": "notices",
		"chromedriver-linux64/chromedriver":                     driverOutput("121.0.6167.85"),
	}))
	p := testProfile(t)

	v, err := newInstaller(t, f, p).InstallLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "121.0.6167.85", v)

	data, err := os.ReadFile(p.DriverPath())
	require.NoError(t, err)
	assert.Equal(t, driverOutput("121.0.6167.85"), string(data))
}

func TestClean(t *testing.T) {
	p := testProfile(t)
	in := &Installer{Profile: p}

	n, err := in.Clean(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "missing install dir is fine")

	installFake(t, p, "120.0.6099.109")
	require.NoError(t, os.WriteFile(filepath.Join(p.InstallDir, ".admitted-download-123"), []byte("partial"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(p.InstallDir, ".admitted-extract-456"), []byte("partial"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(p.InstallDir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(p.InstallDir, "nested", ".admitted-download-9"), []byte("x"), 0o644))

	n, err = in.Clean(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"chromedriver", "nested"}, dirNames(t, p.InstallDir))
}
