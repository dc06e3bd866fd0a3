// Package config loads and watches the agent configuration file.
//
// Load(path) reads the YAML, applies defaults (5s poll, 10s ship, 1000 row
// buffer) and validates it. Each source is either a gauge endpoint serving
// Prometheus text format or a CSV file written by a rig data logger.
//
// Watch(ctx, path, onChange) reloads the file on write and calls onChange
// with the new Config. A reload that fails validation is logged and the
// previous config stays in effect.
package config
