// Package config loads, normalizes, and validates crosspost configuration.
//
// Configuration lives in a TOML file; credentials come exclusively from the
// process environment so the file can be checked into dotfiles safely. The
// source account list may be inline or in an external YAML file.
package config
