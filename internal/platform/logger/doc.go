// Package logger configures the application's structured logging.
//
// It uses Go's standard library log/slog package to emit structured
// JSON logs with a configurable level.
package logger
