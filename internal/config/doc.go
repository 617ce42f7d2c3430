// Package config holds the optimizer settings.
//
// Settings are an immutable value threaded into every pass. They are read
// from YAML, TOML or CUE files and validated against an embedded CUE
// schema; problems are reported once, as a *ConfigError, by Load.
package config
