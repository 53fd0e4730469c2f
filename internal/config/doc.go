// Package config defines subtitlegen's configuration schema and the
// load/normalize/validate pipeline used to produce a ready-to-use Config
// from a TOML file and environment overrides.
package config
