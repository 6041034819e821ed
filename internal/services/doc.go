// Package services defines shared utilities consumed by the render engine and
// the command surface that drives it.
//
// Key responsibilities:
//   - Context helpers that stamp track indices, edit operations, project paths,
//     and correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures as
//     topology, occupancy, producer, or capacity problems.
//
// Use these helpers when wiring new edit operations so error handling and
// observability stay uniform across the engine.
package services
