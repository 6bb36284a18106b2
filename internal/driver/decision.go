package driver

import "fmt"

// DecisionKind is the outcome of reconciling driver and browser versions.
type DecisionKind int

const (
	NoUpgrade DecisionKind = iota
	UpgradeTo
	InstallLatest
)

func (k DecisionKind) String() string {
	switch k {
	case NoUpgrade:
		return "no_upgrade"
	case UpgradeTo:
		return "upgrade_to"
	case InstallLatest:
		return "install_latest"
	default:
		return "unknown"
	}
}

// Decision says what, if anything, to install. Version is set for
// UpgradeTo; Installed always carries the probed driver version. Browser
// is the probed browser version when the decision came from NeedsUpgrade.
type Decision struct {
	Kind      DecisionKind
	Version   string
	Installed string
	Browser   string
}

func (d Decision) String() string {
	if d.Kind == UpgradeTo {
		return fmt.Sprintf("%s %s (installed %s)", d.Kind, d.Version, d.Installed)
	}
	return fmt.Sprintf("%s (installed %s)", d.Kind, d.Installed)
}

// Decide compares an installed driver version with the recommended one.
// An installed version ahead of the recommendation is an error.
func Decide(installed, recommended string) (Decision, error) {
	iv, err := ParseVersion(installed)
	if err != nil {
		return Decision{}, &VersionError{Op: "compare", Installed: installed, Err: err}
	}
	rv, err := ParseVersion(recommended)
	if err != nil {
		return Decision{}, &VersionError{Op: "compare", Wanted: recommended, Err: err}
	}

	switch Compare(iv, rv) {
	case 0:
		return Decision{Kind: NoUpgrade, Installed: installed}, nil
	case -1:
		return Decision{Kind: UpgradeTo, Version: recommended, Installed: installed}, nil
	default:
		return Decision{}, &VersionError{
			Op:        "compare",
			Installed: installed,
			Wanted:    recommended,
			Err:       ErrNewerThanRecommended,
		}
	}
}
