// Package server exposes a small read-only status API next to a running
// automation: health, Prometheus metrics and the live browser sessions.
package server
