// Package logging assembles structured slog loggers and formatting helpers used
// across Splice.
//
// It owns the console and JSON handlers, level and output plumbing, and
// context-aware helpers that tag log lines with project ids, version ids, and
// request correlation ids. A no-op logger is provided for tests and wiring code
// that cannot fail.
package logging
