// Package config loads, normalizes, and validates vidscribe configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and applies environment overrides such as
// OPENAI_API_KEY and VIDSCRIBE_ENGINE. The Config type centralizes every knob
// the CLI and API server need so chunking policy, engine selection and
// credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
