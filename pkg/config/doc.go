// Package config loads client configuration from defaults, a YAML file,
// GA_-prefixed environment variables and explicit overrides, in that order.
package config
