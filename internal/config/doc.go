// Package config loads, validates, and normalizes the TOML configuration for
// the jukebox ingestion worker. Secrets are supplied via environment variables
// rather than the config file.
package config
