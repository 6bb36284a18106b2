package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"syscall"
)

// Runner runs a probe command and returns its standard output.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs probes as child processes.
type ExecRunner struct{}

func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// errBadExeFormat is ERROR_BAD_EXE_FORMAT, what Windows reports for a
// binary built for another architecture. errNotExecutable (216) is the
// 64-bit-binary-on-32-bit-Windows variant.
const (
	errBadExeFormat  = syscall.Errno(193)
	errNotExecutable = syscall.Errno(216)
)

// notRunnable reports errors that mean "there is no usable driver here".
func notRunnable(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, exec.ErrNotFound) ||
		errors.Is(err, syscall.ENOEXEC) ||
		errors.Is(err, errBadExeFormat) ||
		errors.Is(err, errNotExecutable)
}

// BrowserVersion runs the browser probe and returns the last token of its
// output, e.g. "Google Chrome 120.0.6099.109" or the registry "pv" line.
func BrowserVersion(ctx context.Context, r Runner, probe []string, platform string) (string, error) {
	if len(probe) == 0 {
		return "", &VersionError{Op: "probe browser", Platform: platform, Err: errors.New("no probe command")}
	}
	out, err := r.Output(ctx, probe[0], probe[1:]...)
	if err != nil {
		return "", &VersionError{Op: "probe browser", Platform: platform, Err: probeErr(probe, err)}
	}

	fields := strings.Fields(string(out))
	if len(fields) == 0 {
		return "", &VersionError{Op: "probe browser", Platform: platform, Err: fmt.Errorf("%w: empty output", ErrBadVersion)}
	}
	version := fields[len(fields)-1]
	if _, err := ParseVersion(version); err != nil {
		return "", &VersionError{Op: "probe browser", Platform: platform, Err: err}
	}
	return version, nil
}

// DriverVersion runs "<driver> --version", which prints
// "ChromeDriver 120.0.6099.109 (<hash>)", and returns the second token.
// A missing or unrunnable driver reports NotInstalled.
func DriverVersion(ctx context.Context, r Runner, probe []string, platform string) (string, error) {
	out, err := r.Output(ctx, probe[0], probe[1:]...)
	if err != nil {
		if notRunnable(err) {
			return NotInstalled, nil
		}
		return "", &VersionError{Op: "probe driver", Platform: platform, Err: probeErr(probe, err)}
	}

	fields := strings.Fields(string(out))
	if len(fields) < 2 {
		return "", &VersionError{Op: "probe driver", Platform: platform, Err: fmt.Errorf("%w: %q", ErrBadVersion, strings.TrimSpace(string(out)))}
	}
	version := fields[1]
	if _, err := ParseVersion(version); err != nil {
		return "", &VersionError{Op: "probe driver", Platform: platform, Err: err}
	}
	return version, nil
}

func probeErr(probe []string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		if stderr != "" {
			return fmt.Errorf("%s exited with %d: %s", probe[0], exitErr.ExitCode(), stderr)
		}
		return fmt.Errorf("%s exited with %d", probe[0], exitErr.ExitCode())
	}
	return fmt.Errorf("run %s: %w", probe[0], err)
}
