// Package config loads, normalizes, and validates ClipForge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TWITCH_CLIENT_ID and OPENROUTER_API_KEY (optionally via a local .env file).
// The Config type centralizes every knob the pipeline and CLI need, allowing
// data/output directories and external service credentials to be discovered in
// one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
