package driver

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/admitted/internal/infrastructure/logging"
	"github.com/GriffinCanCode/admitted/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/admitted/internal/platform"
)

// Reconciler decides whether the installed driver matches the browser.
type Reconciler struct {
	Profile  platform.Profile
	Runner   Runner
	Resolver *Resolver
	Logger   *logging.Logger
	Metrics  *monitoring.Metrics
}

// Versions probes the installed browser and driver.
func (r *Reconciler) Versions(ctx context.Context) (browser, installed string, err error) {
	browser, err = BrowserVersion(ctx, r.Runner, r.Profile.BrowserProbe, r.Profile.ID)
	if err != nil {
		return "", "", err
	}
	installed, err = DriverVersion(ctx, r.Runner, r.Profile.DriverProbe(), r.Profile.ID)
	if err != nil {
		return "", "", err
	}
	return browser, installed, nil
}

// NeedsUpgrade returns the version decision for the current machine.
func (r *Reconciler) NeedsUpgrade(ctx context.Context) (Decision, error) {
	logger := logging.OrNop(r.Logger)

	browser, installed, err := r.Versions(ctx)
	if err != nil {
		return Decision{}, err
	}
	bv, _ := ParseVersion(browser)

	recommended, ok, err := r.Resolver.Recommended(ctx, bv, r.Profile.ID)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{Kind: InstallLatest, Installed: installed}
	if ok {
		d, err = Decide(installed, recommended)
		if err != nil {
			var ve *VersionError
			if errors.As(err, &ve) {
				ve.Platform = r.Profile.ID
			}
			return Decision{}, err
		}
	}
	d.Browser = browser

	r.Metrics.RecordDecision(d.Kind.String())
	logger.Info("Driver version reconciled",
		zap.String("browser", browser),
		zap.String("installed", installed),
		zap.String("recommended", recommended),
		zap.Stringer("decision", d.Kind),
	)
	return d, nil
}
