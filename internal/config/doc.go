// Package config provides configuration types and loading for the score gateway.
//
// Configuration is read from a YAML file with ${VAR} and ${VAR:-default}
// environment substitution. Every knob has a default, so a missing file
// yields a working configuration. The knobs are fixed for the lifetime of
// the process; there is no reload and no per-caller override.
package config
