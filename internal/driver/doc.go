// Package driver keeps the control-channel executable (chromedriver) in
// step with the installed browser.
//
// The Reconciler probes both installed versions and asks the version
// endpoints which driver matches the browser's major version. Below the
// cutover major version (115) that is the legacy LATEST_RELEASE_<major>
// file; from the cutover on it is the known-good-versions catalog. The
// Installer downloads the chosen build, swaps the executable in place and
// re-reads its version to prove the swap worked.
//
// A driver that is not installed, or cannot run on this machine, reports
// version 0.0.0.0 and is simply upgraded. A driver newer than the
// recommended one is a hard VersionError: nothing is ever downgraded.
package driver
