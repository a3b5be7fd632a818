// Package config loads, normalizes, and validates aaxconv configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// AAXCONV_OUTPUT_DIR. The Config type centralizes every knob the CLI and the
// conversion pipeline need, so output/state directories, encoder binaries,
// and scheduler timings are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
