// Package services defines shared utilities consumed by the pipeline stages and
// the external tool wrappers.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers and stage names for logging.
//   - Structured error markers plus the Wrap helper that tag failures so the
//     orchestrator and the run history can classify them consistently.
//
// Use these helpers when wiring new stage logic so failures read the same way
// no matter which external tool produced them.
package services
