// Package config loads, normalizes, and validates Splice configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SPLICE_API_TOKEN and OPENROUTER_API_KEY. The data directory anchors the
// on-disk layout: projects/, the render intake queue/, and queue/Output/ where
// the external renderer writes finished media.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
