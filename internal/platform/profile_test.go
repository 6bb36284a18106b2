package platform

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEnv(t *testing.T) {
	home := filepath.Join("/", "home", "ada")

	tests := []struct {
		name       string
		env        Env
		id         string
		filename   string
		installDir string
		probe0     string
	}{
		{
			name:       "linux",
			env:        Env{GOOS: "linux", GOARCH: "amd64", Home: home},
			id:         Linux64,
			filename:   "chromedriver",
			installDir: filepath.Join(home, ".local", "bin", "chrome-linux64"),
			probe0:     "google-chrome",
		},
		{
			name:       "mac arm",
			env:        Env{GOOS: "darwin", GOARCH: "arm64", Home: home},
			id:         MacARM64,
			filename:   "chromedriver",
			installDir: filepath.Join("/usr/local/bin", "chrome-mac-arm64"),
			probe0:     "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		},
		{
			name:       "mac intel",
			env:        Env{GOOS: "darwin", GOARCH: "amd64", Home: home},
			id:         MacX64,
			filename:   "chromedriver",
			installDir: filepath.Join("/usr/local/bin", "chrome-mac-x64"),
			probe0:     "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		},
		{
			name:       "windows 64-bit",
			env:        Env{GOOS: "windows", GOARCH: "amd64", Home: home},
			id:         Win64,
			filename:   "chromedriver.exe",
			installDir: filepath.Join(home, "AppData", "Local", "Microsoft", "WindowsApps", "chrome-win64"),
			probe0:     "reg",
		},
		{
			name:       "windows 32-bit",
			env:        Env{GOOS: "windows", GOARCH: "386", Home: home},
			id:         Win32,
			filename:   "chromedriver.exe",
			installDir: filepath.Join(home, "AppData", "Local", "Microsoft", "WindowsApps", "chrome-win32"),
			probe0:     "reg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ForEnv(tt.env)
			require.NoError(t, err)

			assert.Equal(t, tt.id, p.ID)
			assert.Equal(t, tt.filename, p.DriverFilename)
			assert.Equal(t, tt.installDir, p.InstallDir)
			assert.Equal(t, filepath.Join(tt.installDir, tt.filename), p.DriverPath())
			assert.Equal(t, []string{p.DriverPath(), "--version"}, p.DriverProbe())
			require.NotEmpty(t, p.BrowserProbe)
			assert.Equal(t, tt.probe0, p.BrowserProbe[0])
			assert.Equal(t, filepath.Join(home, "Downloads"), p.DownloadDir)
		})
	}
}

func TestWindowsUserDataDir(t *testing.T) {
	env := Env{
		GOOS:   "windows",
		GOARCH: "amd64",
		Home:   "/home/ada",
		Getenv: func(k string) string {
			if k == "LOCALAPPDATA" {
				return "/appdata"
			}
			return ""
		},
	}
	p, err := ForEnv(env)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/appdata", "Google", "Chrome", "User Data"), p.UserDataDir)
	assert.Equal(t, []string{"reg", "query", windowsBrowserKey, "/v", "pv"}, p.BrowserProbe)
}

func TestUnsupported(t *testing.T) {
	_, err := ForEnv(Env{GOOS: "plan9", GOARCH: "amd64"})
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Contains(t, err.Error(), "plan9/amd64")
}

func TestWith(t *testing.T) {
	p, err := ForEnv(Env{GOOS: "linux", GOARCH: "amd64", Home: "/home/ada"})
	require.NoError(t, err)

	o := p.With(Overrides{InstallDir: "/opt/driver"})
	assert.Equal(t, "/opt/driver", o.InstallDir)
	assert.Equal(t, p.UserDataDir, o.UserDataDir)
	// original untouched
	assert.NotEqual(t, "/opt/driver", p.InstallDir)
}
