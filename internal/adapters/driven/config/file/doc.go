// Package file stores whis configuration as TOML under the config directory
// (~/.whis/config.toml unless --config-dir names another directory).
package file
