package driver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/admitted/internal/platform"
)

var (
	// ErrNewerThanRecommended means the installed driver is ahead of the
	// version the endpoints recommend for this browser.
	ErrNewerThanRecommended = errors.New("installed driver is newer than recommended")
	// ErrNoDownload means the catalog has no build for the version/platform pair.
	ErrNoDownload = errors.New("no driver download for platform")
	// ErrEntryNotFound means the archive did not contain the executable.
	ErrEntryNotFound = errors.New("driver executable not found in archive")
	// ErrVerifyMismatch means the freshly installed driver reports another version.
	ErrVerifyMismatch = errors.New("installed driver version mismatch")
	// ErrBadVersion means a probe printed something that is not a dotted version.
	ErrBadVersion = errors.New("not a dotted numeric version")
	// ErrUnsupportedPlatform is returned when no profile exists for this OS.
	ErrUnsupportedPlatform = platform.ErrUnsupported
)

// VersionError is the single error type for probing, resolving,
// installing and verifying driver versions.
type VersionError struct {
	Op        string // "probe browser", "probe driver", "resolve", "install", "verify", ...
	Platform  string
	Installed string
	Wanted    string
	Err       error
}

func (e *VersionError) Error() string {
	var b strings.Builder
	b.WriteString("driver ")
	b.WriteString(e.Op)
	if e.Platform != "" {
		fmt.Fprintf(&b, " [%s]", e.Platform)
	}
	switch {
	case e.Installed != "" && e.Wanted != "":
		fmt.Fprintf(&b, " (installed %s, wanted %s)", e.Installed, e.Wanted)
	case e.Wanted != "":
		fmt.Fprintf(&b, " (wanted %s)", e.Wanted)
	case e.Installed != "":
		fmt.Fprintf(&b, " (installed %s)", e.Installed)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *VersionError) Unwrap() error {
	return e.Err
}
