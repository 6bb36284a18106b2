package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/admitted/internal/infrastructure/logging"
	"github.com/GriffinCanCode/admitted/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/admitted/internal/platform"
)

// tempPattern names the scratch files an install leaves behind if it is
// interrupted; Clean removes them.
const tempPattern = ".admitted-*"

// Installer downloads and swaps in a driver build. It is not safe to run
// two installs against the same install directory at once.
type Installer struct {
	Profile  platform.Profile
	HTTP     HTTP
	Resolver *Resolver
	Runner   Runner
	Logger   *logging.Logger
	Metrics  *monitoring.Metrics
}

// Install installs version and verifies it.
func (i *Installer) Install(ctx context.Context, version string) (err error) {
	start := time.Now()
	defer func() { i.Metrics.RecordInstall(err, time.Since(start)) }()

	url, err := i.Resolver.DownloadURL(ctx, version, i.Profile.ID)
	if err != nil {
		return err
	}
	return i.installFrom(ctx, url, version)
}

// InstallLatest installs the newest catalog driver for the platform and
// returns its version.
func (i *Installer) InstallLatest(ctx context.Context) (version string, err error) {
	start := time.Now()
	defer func() { i.Metrics.RecordInstall(err, time.Since(start)) }()

	version, url, err := i.Resolver.Latest(ctx, i.Profile.ID)
	if err != nil {
		return "", err
	}
	if err := i.installFrom(ctx, url, version); err != nil {
		return "", err
	}
	return version, nil
}

func (i *Installer) installFrom(ctx context.Context, url, version string) error {
	logger := logging.OrNop(i.Logger).With(zap.String("version", version), zap.String("platform", i.Profile.ID))
	target := i.Profile.DriverPath()

	previous, err := DriverVersion(ctx, i.Runner, i.Profile.DriverProbe(), i.Profile.ID)
	if err != nil {
		previous = "unknown"
	}

	if err := os.MkdirAll(i.Profile.InstallDir, 0o755); err != nil {
		return i.installErr(version, fmt.Errorf("create install dir: %w", err))
	}
	if _, err := i.Clean(ctx); err != nil {
		logger.Warn("Could not clean stale downloads", zap.Error(err))
	}

	archive, err := os.CreateTemp(i.Profile.InstallDir, ".admitted-download-*")
	if err != nil {
		return i.installErr(version, err)
	}
	defer os.Remove(archive.Name())

	logger.Info("Downloading driver", zap.String("url", url))
	n, err := i.HTTP.Download(ctx, url, archive)
	if cerr := archive.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return i.installErr(version, fmt.Errorf("download %s: %w", url, err))
	}
	logger.Debug("Driver archive downloaded", zap.Int64("bytes", n))

	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return i.installErr(version, fmt.Errorf("remove old driver: %w", err))
	}
	if err := i.extract(archive.Name(), target); err != nil {
		return i.installErr(version, err)
	}

	got, err := DriverVersion(ctx, i.Runner, i.Profile.DriverProbe(), i.Profile.ID)
	if err != nil {
		return &VersionError{Op: "verify", Platform: i.Profile.ID, Wanted: version, Err: err}
	}
	if got != version {
		return &VersionError{
			Op:        "verify",
			Platform:  i.Profile.ID,
			Installed: got,
			Wanted:    version,
			Err:       fmt.Errorf("%w: failed to upgrade driver from %s to %s", ErrVerifyMismatch, previous, version),
		}
	}

	logger.Info("Driver installed", zap.String("previous", previous), zap.String("path", target))
	return nil
}

// extract writes the executable to a scratch file next to target, then
// renames it into place with the executable bit set.
func (i *Installer) extract(archivePath, target string) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".admitted-extract-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	err = extractEntry(archivePath, i.Profile.DriverFilename, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o755); err != nil {
		return fmt.Errorf("set executable bit: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("move driver into place: %w", err)
	}
	return nil
}

func (i *Installer) installErr(version string, err error) error {
	return &VersionError{Op: "install", Platform: i.Profile.ID, Wanted: version, Err: err}
}

// Clean removes scratch files left in the install directory by interrupted
// installs and returns how many it removed.
func (i *Installer) Clean(ctx context.Context) (int, error) {
	root := i.Profile.InstallDir
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}

	var removed atomic.Int32
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			return fastwalk.SkipDir
		}
		if ok, _ := doublestar.Match(tempPattern, d.Name()); !ok {
			return nil
		}
		if err := os.Remove(path); err == nil {
			removed.Add(1)
		}
		return nil
	})
	return int(removed.Load()), err
}
