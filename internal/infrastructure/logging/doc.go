// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: colored console output for human readability
//
// Output defaults to stderr so that CLI results printed on stdout can be
// piped.
//
// Example Usage:
//
//	logger, err := logging.New(logging.DefaultConfig())
//	logger.Info("Driver installed", zap.String("version", v))
//	logger.Error("Launch failed", zap.Error(err))
package logging
