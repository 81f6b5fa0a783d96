// Package config loads and validates daybook configuration from TOML with
// environment overrides for secrets and bind addresses.
package config
