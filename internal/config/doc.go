// Package config loads, normalizes, and validates fragreel configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file that sits next to
// the config file, and honours environment overrides such as FRAGREEL_DECODER.
// The Config type centralizes every knob the CLI and the local API need so the
// workspace, tool binaries, and render limits are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
