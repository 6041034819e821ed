// Package config loads, normalizes, and validates the splicer TOML
// configuration.
//
// Load applies repository defaults, decodes the file, expands "~" in paths,
// and validates the result. The embedded sample is written by
// `splicer config init`. Helpers derive the snapshot database location, the
// frame rate of new projects, and the autosave and refresh durations.
package config
