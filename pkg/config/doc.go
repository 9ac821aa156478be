// Package config loads application configuration from LEGATE_* environment
// variables, applies an optional YAML overlay when LEGATE_CONFIG_FILE is
// set, and validates the result before the server boots. Configuration is
// read once at startup; there is no live reload.
package config
