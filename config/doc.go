// Package config loads server configuration from defaults, an optional yaml
// file and STT_ prefixed environment variables.
package config
