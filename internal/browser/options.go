package browser

import (
	"fmt"
	"time"

	"github.com/GriffinCanCode/admitted/internal/infrastructure/config"
	"github.com/GriffinCanCode/admitted/internal/platform"
	"github.com/GriffinCanCode/admitted/internal/webdriver"
)

// Options configures one launched session.
type Options struct {
	DriverPath    string
	Headless      bool
	Debug         bool
	DriverLogPath string
	UserDataDir   string
	DownloadDir   string
	ExtraArgs     []string

	// Timeout is the default for every wait on the session.
	Timeout time.Duration
	// StartupTimeout bounds how long the control channel has to come up.
	StartupTimeout time.Duration

	// AttachURL reuses a control channel that is already running. The
	// session then owns no processes.
	AttachURL string

	// ShutdownTimeout bounds the graceful part of Close, before any
	// signal is sent.
	ShutdownTimeout time.Duration
	Grace           time.Duration
	Rounds          int
	CleanLocks      bool
}

// NewOptions combines the platform paths with configuration.
func NewOptions(p platform.Profile, cfg *config.Config) Options {
	return Options{
		DriverPath:      p.DriverPath(),
		Headless:        cfg.Browser.Headless,
		Debug:           cfg.Browser.Debug,
		DriverLogPath:   cfg.Browser.DriverLogPath,
		UserDataDir:     p.UserDataDir,
		DownloadDir:     p.DownloadDir,
		ExtraArgs:       cfg.Browser.ExtraArgs,
		Timeout:         cfg.Browser.Timeout.Std(),
		StartupTimeout:  cfg.Browser.StartupTimeout.Std(),
		AttachURL:       cfg.Browser.AttachURL,
		ShutdownTimeout: cfg.Termination.Shutdown.Std(),
		Grace:           cfg.Termination.Grace.Std(),
		Rounds:          cfg.Termination.Rounds,
		CleanLocks:      cfg.Termination.CleanLocks,
	}
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return 30 * time.Second
	}
	return o.Timeout
}

func (o Options) startupTimeout() time.Duration {
	if o.StartupTimeout <= 0 {
		return 20 * time.Second
	}
	return o.StartupTimeout
}

func (o Options) shutdownTimeout() time.Duration {
	if o.ShutdownTimeout <= 0 {
		return 10 * time.Second
	}
	return o.ShutdownTimeout
}

// driverArgs are the control-channel command line flags.
func (o Options) driverArgs(port int) []string {
	args := []string{fmt.Sprintf("--port=%d", port)}
	if o.Debug {
		args = append(args, "--verbose")
		if o.DriverLogPath != "" {
			args = append(args, "--log-path="+o.DriverLogPath)
		}
		return args
	}
	return append(args, "--silent")
}

// capabilities are the browser startup options: a dedicated profile so
// logins survive between runs, PDFs downloaded instead of rendered, and
// browser logging turned down.
func (o Options) capabilities() webdriver.Capabilities {
	var args []string
	if o.Headless {
		args = append(args, "--headless=new")
	}
	if o.UserDataDir != "" {
		args = append(args, "--user-data-dir="+o.UserDataDir)
	}
	args = append(args,
		"--disable-gpu",
		"--start-maximized",
		"--disable-logging",
		"--log-level=3",
	)
	args = append(args, o.ExtraArgs...)

	prefs := map[string]any{
		"plugins.always_open_pdf_externally": true,
		"download.prompt_for_download":       false,
		"download.directory_upgrade":         true,
		"safebrowsing.enabled":               false,
	}
	if o.DownloadDir != "" {
		prefs["download.default_directory"] = o.DownloadDir
	}

	return webdriver.Capabilities{
		BrowserName: "chrome",
		PageLoad:    "normal",
		ChromeOptions: &webdriver.ChromeOptions{
			Args:  args,
			Prefs: prefs,
		},
	}
}
