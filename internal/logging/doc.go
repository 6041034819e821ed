// Package logging assembles the structured slog loggers used by splicer.
//
// It owns the console and JSON handlers, the tee handler that copies the
// terminal stream into a daily JSON file, per-component levels from
// [logging.components], and session stamping. Context helpers tag records with the track, edit
// operation, and project being worked on so engine log lines can be filtered
// per edit. A no-op logger is provided for tests and optional wiring.
package logging
