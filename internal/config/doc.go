// Package config loads, normalizes, and validates inpaint configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours the INPAINT_* environment overrides. Callers get a
// Config whose data directory is absolute and whose enum-like fields are
// lower-cased and checked.
package config
