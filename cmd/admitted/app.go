package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/admitted/internal/driver"
	"github.com/GriffinCanCode/admitted/internal/httpclient"
	"github.com/GriffinCanCode/admitted/internal/infrastructure/config"
	"github.com/GriffinCanCode/admitted/internal/infrastructure/logging"
	"github.com/GriffinCanCode/admitted/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/admitted/internal/platform"
)

// app holds the components shared by every command. It is built once per
// invocation, after flags are parsed.
type app struct {
	cfg     *config.Config
	profile platform.Profile
	logger  *logging.Logger
	metrics *monitoring.Metrics
	http    *httpclient.Client

	reconciler *driver.Reconciler
	installer  *driver.Installer
}

func newApp(configPath string, verbose bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logCfg := logging.DefaultConfig()
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	if cfg.Logging.Level != "" {
		logCfg.Level = cfg.Logging.Level
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}

	profile, err := platform.Detect()
	if err != nil {
		return nil, err
	}
	profile = profile.With(platform.Overrides{
		InstallDir:  cfg.Driver.InstallDir,
		UserDataDir: cfg.Driver.UserDataDir,
		DownloadDir: cfg.Driver.DownloadDir,
	})
	logger.Debug("Platform detected",
		zap.String("platform", profile.ID),
		zap.String("driver", profile.DriverPath()),
		zap.String("user_data_dir", profile.UserDataDir),
	)

	metrics := monitoring.NewMetrics()
	client, err := httpclient.New(httpclient.Options{
		Name:      "driver-downloads",
		Timeout:   cfg.HTTP.Timeout.Std(),
		Retries:   cfg.HTTP.Retries,
		RateLimit: cfg.HTTP.RateLimit,
		UserAgent: cfg.HTTP.UserAgent,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}

	resolver := &driver.Resolver{
		HTTP:       client,
		LegacyURL:  cfg.Driver.LegacyURL,
		CatalogURL: cfg.Driver.CatalogURL,
		Cutover:    cfg.Driver.Cutover,
	}
	runner := driver.ExecRunner{}

	return &app{
		cfg:     cfg,
		profile: profile,
		logger:  logger,
		metrics: metrics,
		http:    client,
		reconciler: &driver.Reconciler{
			Profile:  profile,
			Runner:   runner,
			Resolver: resolver,
			Logger:   logger,
			Metrics:  metrics,
		},
		installer: &driver.Installer{
			Profile:  profile,
			HTTP:     client,
			Resolver: resolver,
			Runner:   runner,
			Logger:   logger,
			Metrics:  metrics,
		},
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}
