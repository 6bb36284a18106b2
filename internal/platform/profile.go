// Package platform resolves the per-OS paths, executable names and version
// probes used to manage the control-channel executable.
//
// A Profile is built once at startup and passed to the components that need
// it. It is a plain value and never mutated after construction.
package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ErrUnsupported is returned for operating systems without a known layout.
var ErrUnsupported = errors.New("unsupported platform")

// Catalog platform identifiers.
const (
	Linux64  = "linux64"
	MacARM64 = "mac-arm64"
	MacX64   = "mac-x64"
	Win32    = "win32"
	Win64    = "win64"
)

// windowsBrowserKey holds the installed browser version in its "pv" value.
const windowsBrowserKey = `HKLM\SOFTWARE\WOW6432Node\Google\Update\ClientState\{8A69D345-D564-463C-AFF1-A69D9E530F96}`

// Profile describes where things live on one operating system.
type Profile struct {
	ID             string // catalog platform identifier
	OS             string // GOOS the profile was built for
	DriverFilename string
	InstallDir     string
	UserDataDir    string
	DownloadDir    string
	// BrowserProbe is the command whose output ends with the browser version.
	BrowserProbe []string
}

// DriverPath is the full path of the installed control-channel executable.
func (p Profile) DriverPath() string {
	return filepath.Join(p.InstallDir, p.DriverFilename)
}

// DriverProbe is the command that prints the installed driver version.
func (p Profile) DriverProbe() []string {
	return []string{p.DriverPath(), "--version"}
}

// Env is the slice of the process environment a Profile depends on.
type Env struct {
	GOOS   string
	GOARCH string
	Home   string
	Getenv func(string) string
}

// CurrentEnv reads Env from the running process.
func CurrentEnv() (Env, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Env{}, fmt.Errorf("resolve home directory: %w", err)
	}
	return Env{
		GOOS:   runtime.GOOS,
		GOARCH: runtime.GOARCH,
		Home:   home,
		Getenv: os.Getenv,
	}, nil
}

// Detect builds the Profile for the running process.
func Detect() (Profile, error) {
	env, err := CurrentEnv()
	if err != nil {
		return Profile{}, err
	}
	return ForEnv(env)
}

// ForEnv builds the Profile for env.
func ForEnv(env Env) (Profile, error) {
	getenv := env.Getenv
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	home := env.Home

	p := Profile{
		OS:             env.GOOS,
		DriverFilename: "chromedriver",
		DownloadDir:    filepath.Join(home, "Downloads"),
	}

	switch env.GOOS {
	case "windows":
		p.ID = Win32
		if env.GOARCH == "amd64" || env.GOARCH == "arm64" {
			p.ID = Win64
		}
		p.DriverFilename = "chromedriver.exe"
		p.InstallDir = filepath.Join(home, "AppData", "Local", "Microsoft", "WindowsApps", "chrome-"+p.ID)
		local := getenv("LOCALAPPDATA")
		if local == "" {
			local = filepath.Join(home, "AppData", "Local")
		}
		p.UserDataDir = filepath.Join(local, "Google", "Chrome", "User Data")
		p.BrowserProbe = []string{"reg", "query", windowsBrowserKey, "/v", "pv"}

	case "linux":
		p.ID = Linux64
		p.InstallDir = filepath.Join(home, ".local", "bin", "chrome-"+p.ID)
		p.UserDataDir = filepath.Join(home, ".config", "google-chrome", "Default")
		p.BrowserProbe = []string{"google-chrome", "--version"}

	case "darwin":
		p.ID = MacX64
		if env.GOARCH == "arm64" {
			p.ID = MacARM64
		}
		p.InstallDir = filepath.Join("/usr/local/bin", "chrome-"+p.ID)
		p.UserDataDir = filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default")
		p.BrowserProbe = []string{"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome", "--version"}

	default:
		return Profile{}, fmt.Errorf("%w: %s/%s", ErrUnsupported, env.GOOS, env.GOARCH)
	}

	return p, nil
}

// Overrides replaces profile directories; empty fields keep the defaults.
type Overrides struct {
	InstallDir  string
	UserDataDir string
	DownloadDir string
}

// With returns a copy of p with the non-empty overrides applied.
func (p Profile) With(o Overrides) Profile {
	if o.InstallDir != "" {
		p.InstallDir = o.InstallDir
	}
	if o.UserDataDir != "" {
		p.UserDataDir = o.UserDataDir
	}
	if o.DownloadDir != "" {
		p.DownloadDir = o.DownloadDir
	}
	return p
}
