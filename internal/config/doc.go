// Package config loads, normalizes, and validates subextract configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SUBEXTRACT_API_TOKEN and NTFY_TOPIC. The Config type centralizes every knob
// the daemon, the extraction pipeline, and the CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical language tags, and clear validation errors.
package config
