package driver

import "context"

// Ensure reconciles and, when needed, installs the driver. It returns the
// driver version that is installed afterwards.
func Ensure(ctx context.Context, r *Reconciler, in *Installer) (string, error) {
	d, err := r.NeedsUpgrade(ctx)
	if err != nil {
		return "", err
	}

	switch d.Kind {
	case NoUpgrade:
		return d.Installed, nil
	case UpgradeTo:
		if err := in.Install(ctx, d.Version); err != nil {
			return "", err
		}
		return d.Version, nil
	default:
		return in.InstallLatest(ctx)
	}
}
