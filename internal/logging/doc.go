// Package logging assembles structured slog loggers for the inpaint CLI and
// its storage layer.
//
// It owns the console and JSON handlers, output routing (stderr plus an
// optional log file), per-process session identifiers, and helpers that keep
// warning and error lines shaped the same way everywhere: an event_type, an
// error_hint, and an impact. NewNop gives tests and optional wiring a logger
// that discards everything.
package logging
