// Package config loads, normalizes, and validates cgex configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// NO_UPSCALE and COMPRESSION. The Config type centralizes every knob the CLI
// and pipeline need, and PipelineConfig freezes the image toggles for a run.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
