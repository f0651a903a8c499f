// Package config loads, normalizes, and validates vidchunk configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// VIDCHUNK_MODEL_DIR and VIDCHUNK_FFMPEG. The Config type centralizes every
// knob the extraction engine and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical language tags, and clear validation errors.
package config
