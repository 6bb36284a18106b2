package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes every environment variable, e.g. ADMITTED_BROWSER_HEADLESS.
const EnvPrefix = "ADMITTED"

// Config holds all application configuration.
type Config struct {
	Driver      DriverConfig      `yaml:"driver" toml:"driver"`
	Browser     BrowserConfig     `yaml:"browser" toml:"browser"`
	Navigation  NavigationConfig  `yaml:"navigation" toml:"navigation"`
	Termination TerminationConfig `yaml:"termination" toml:"termination"`
	HTTP        HTTPConfig        `yaml:"http" toml:"http"`
	Logging     LogConfig         `yaml:"logging" toml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics" toml:"metrics"`
}

// DriverConfig controls where the control-channel executable lives and
// where its versions are resolved. Empty directories fall back to the
// platform defaults.
type DriverConfig struct {
	InstallDir  string `envconfig:"INSTALL_DIR" yaml:"install_dir" toml:"install_dir"`
	UserDataDir string `envconfig:"USER_DATA_DIR" yaml:"user_data_dir" toml:"user_data_dir"`
	DownloadDir string `envconfig:"DOWNLOAD_DIR" yaml:"download_dir" toml:"download_dir"`
	LegacyURL   string `envconfig:"LEGACY_URL" yaml:"legacy_url" toml:"legacy_url"`
	CatalogURL  string `envconfig:"CATALOG_URL" yaml:"catalog_url" toml:"catalog_url"`
	Cutover     int    `envconfig:"CUTOVER" yaml:"cutover" toml:"cutover"`
}

// BrowserConfig holds session launch options.
type BrowserConfig struct {
	Headless       bool     `envconfig:"HEADLESS" yaml:"headless" toml:"headless"`
	Debug          bool     `envconfig:"DEBUG" yaml:"debug" toml:"debug"`
	Timeout        Duration `envconfig:"TIMEOUT" yaml:"timeout" toml:"timeout"`
	StartupTimeout Duration `envconfig:"STARTUP_TIMEOUT" yaml:"startup_timeout" toml:"startup_timeout"`
	DriverLogPath  string   `envconfig:"DRIVER_LOG_PATH" yaml:"driver_log_path" toml:"driver_log_path"`
	AttachURL      string   `envconfig:"ATTACH_URL" yaml:"attach_url" toml:"attach_url"`
	ExtraArgs      []string `envconfig:"EXTRA_ARGS" yaml:"extra_args" toml:"extra_args"`
}

// NavigationConfig holds the default retry policy for page loads.
type NavigationConfig struct {
	Retries int      `envconfig:"RETRIES" yaml:"retries" toml:"retries"`
	Backoff Duration `envconfig:"BACKOFF" yaml:"backoff" toml:"backoff"`
}

// TerminationConfig controls the signal escalation used to end a session.
type TerminationConfig struct {
	// Shutdown bounds the graceful delete and shutdown before any signal.
	Shutdown   Duration `envconfig:"SHUTDOWN" yaml:"shutdown" toml:"shutdown"`
	Grace      Duration `envconfig:"GRACE" yaml:"grace" toml:"grace"`
	Rounds     int      `envconfig:"ROUNDS" yaml:"rounds" toml:"rounds"`
	CleanLocks bool     `envconfig:"CLEAN_LOCKS" yaml:"clean_locks" toml:"clean_locks"`
}

// HTTPConfig holds standalone client configuration.
type HTTPConfig struct {
	Timeout   Duration `envconfig:"TIMEOUT" yaml:"timeout" toml:"timeout"`
	Retries   int      `envconfig:"RETRIES" yaml:"retries" toml:"retries"`
	RateLimit float64  `envconfig:"RATE_LIMIT" yaml:"rate_limit" toml:"rate_limit"`
	UserAgent string   `envconfig:"USER_AGENT" yaml:"user_agent" toml:"user_agent"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LEVEL" yaml:"level" toml:"level"`
	Development bool   `envconfig:"DEV" yaml:"development" toml:"development"`
}

// MetricsConfig holds the status server address. Empty disables it.
type MetricsConfig struct {
	Addr string `envconfig:"ADDR" yaml:"addr" toml:"addr"`
}

// Load builds configuration from defaults, then the optional file at path,
// then environment variables. Later sources win.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Driver: DriverConfig{
			LegacyURL:  "https://chromedriver.storage.googleapis.com",
			CatalogURL: "https://googlechromelabs.github.io/chrome-for-testing/known-good-versions-with-downloads.json",
			Cutover:    115,
		},
		Browser: BrowserConfig{
			Headless:       true,
			Timeout:        Duration(30 * time.Second),
			StartupTimeout: Duration(20 * time.Second),
		},
		Navigation: NavigationConfig{
			Retries: 3,
			Backoff: Duration(10 * time.Second),
		},
		Termination: TerminationConfig{
			Shutdown:   Duration(10 * time.Second),
			Grace:      Duration(100 * time.Millisecond),
			Rounds:     5,
			CleanLocks: true,
		},
		HTTP: HTTPConfig{
			Timeout:   Duration(30 * time.Second),
			Retries:   3,
			UserAgent: "admitted/1.0",
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Driver.Cutover <= 0 {
		errs = append(errs, fmt.Errorf("driver cutover must be positive, got %d", c.Driver.Cutover))
	}
	if c.Navigation.Retries < 0 {
		errs = append(errs, fmt.Errorf("navigation retries must not be negative, got %d", c.Navigation.Retries))
	}
	if c.Termination.Rounds <= 0 {
		errs = append(errs, fmt.Errorf("termination rounds must be positive, got %d", c.Termination.Rounds))
	}
	if c.Browser.Timeout <= 0 {
		errs = append(errs, errors.New("browser timeout must be positive"))
	}
	if c.HTTP.Retries < 0 {
		errs = append(errs, fmt.Errorf("http retries must not be negative, got %d", c.HTTP.Retries))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// mergeFile decodes a YAML or TOML file over the current values.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("unsupported config file extension %q", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}
