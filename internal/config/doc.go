// Package config loads, validates, and normalizes photokeep configuration.
//
// Configuration lives in a TOML file (default ~/.config/photokeep/config.toml,
// with a photokeep.toml in the working directory as a development fallback).
// Load applies defaults for missing values, expands ~ in paths, and rejects
// unusable combinations so downstream code never re-checks basics.
package config
