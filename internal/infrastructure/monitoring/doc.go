// Package monitoring provides Prometheus metrics for driver reconciliation,
// session lifecycle, navigation and fetches.
//
// Metrics live in a private registry exposed through Handler, which the
// status server mounts at /metrics.
package monitoring
