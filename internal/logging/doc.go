// Package logging assembles the slog loggers used by kaldialign.
//
// It owns the console and JSON handlers, the per-run log file that mirrors
// console output in JSON, and context helpers that tag records with the run
// ID and stage name. Stage code should log through WithContext so every line
// can be traced back to a run in the history database.
package logging
