// Package config holds the settings of a sitemirror run: the values that
// come from CLI flags, their defaults, and the per-site overrides read
// from a .sitemirror YAML file.
package config
