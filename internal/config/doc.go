// Package config loads, normalizes, and validates kaldialign configuration data.
//
// It supplies defaults that reproduce the stock ASpIRE chain model layout,
// expands user paths (including tilde shortcuts), reads TOML files, and honours
// the KALDI_ROOT environment fallback. Relative model paths are resolved
// against the Kaldi recipe directory so every external tool receives absolute
// paths regardless of the caller's working directory.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
